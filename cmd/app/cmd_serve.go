package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "net/http/pprof" // For pprof profiling
)

var pprofAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook relay until interrupted",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&pprofAddr, "pprof", "", "serve pprof on this address, e.g. localhost:6060 (disabled when empty)")
}

func runServe(cmd *cobra.Command, args []string) error {
	b, err := bootstrap()
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.InitializeRelay(); err != nil {
		return err
	}

	if pprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", pprofAddr))
			if err := http.ListenAndServe(pprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return b.Serve(ctx)
}
