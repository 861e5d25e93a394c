package main

import (
	"log/slog"
	"os"

	"trade_relay/internal/app"
	"trade_relay/internal/infra"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "app",
	Short:         "WhatsApp trade relay",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", infra.DefaultConfigPath, "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, tradesCmd, messagesCmd)
}

// bootstrap loads config, installs the logger and opens the store.
// The caller must Close the result.
func bootstrap() (*app.Bootstrap, error) {
	b := app.NewBootstrap(configPath)
	if err := b.Initialize(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("❌ Command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
