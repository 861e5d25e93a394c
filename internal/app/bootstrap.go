package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"trade_relay/internal/domain"
	"trade_relay/internal/infra"
	"trade_relay/internal/infra/feed"
	"trade_relay/internal/infra/storage"
	"trade_relay/internal/infra/whatsapp"
	"trade_relay/internal/message"
	"trade_relay/internal/service"
	"trade_relay/internal/webhook"
)

const shutdownTimeout = 5 * time.Second

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string

	Config  *infra.Config
	Store   storage.Store
	Metrics *infra.Metrics

	Client     *whatsapp.Client
	Hub        *feed.Hub
	Dispatcher *service.Dispatcher
	Intake     *service.Intake
	Server     *webhook.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	if configPath == "" {
		configPath = infra.DefaultConfigPath
	}
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize performs core system initialization: config, logger and store.
// CLI maintenance commands need nothing more.
func (b *Bootstrap) Initialize() error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(b.ConfigPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping trade relay...", slog.String("env", cfg.App.Env))

	// 3. Open Record Store
	store, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("✅ Record store ready", slog.String("backend", cfg.Storage.Backend))

	b.Metrics = infra.NewMetrics()
	return nil
}

// InitializeRelay wires the send client, dispatcher, order intake and HTTP surface.
// Initialize must have succeeded first.
func (b *Bootstrap) InitializeRelay() error {
	if b.Config == nil || b.Store == nil {
		return errors.New("bootstrap: Initialize must run before InitializeRelay")
	}
	cfg := b.Config

	b.Client = whatsapp.NewClient(whatsapp.ClientConfig{
		BaseURL:       cfg.WhatsApp.BaseURL,
		Version:       cfg.WhatsApp.Version,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
		Timeout:       cfg.SendTimeout(),
	})

	b.Hub = feed.NewHub()

	flow := message.FlowConfig{
		ID:     cfg.WhatsApp.Flow.ID,
		Token:  cfg.WhatsApp.Flow.Token,
		Screen: cfg.WhatsApp.Flow.Screen,
		CTA:    cfg.WhatsApp.Flow.CTA,
		Data:   cfg.WhatsApp.Flow.Data,
	}
	b.Dispatcher = service.NewDispatcher(b.Store, b.Client, flow, b.Metrics, b.Hub.PublishTrade)
	b.Intake = service.NewIntake(b.Store, b.Client, cfg.WhatsApp.ApproverWAID, b.Metrics, b.Hub.PublishTrade)

	verifier := whatsapp.NewVerifier(cfg.WhatsApp.AppSecret)
	if !verifier.Enabled() {
		slog.Warn("⚠️ APP_SECRET not set, webhook signatures are NOT verified")
	}
	if cfg.WhatsApp.ApproverWAID == "" {
		slog.Warn("⚠️ APPROVER_WAID not set, orders will not request approval")
	}

	b.Server = webhook.NewServer(webhook.Options{
		VerifyToken: cfg.WhatsApp.VerifyToken,
		Verifier:    verifier,
		Messages:    b.Dispatcher,
		Orders:      b.Intake,
		Metrics:     b.Metrics,
		Feed:        b.Hub,
	})

	slog.Info("✅ Relay wired", slog.String("send_url", b.Client.MessagesURL()))
	return nil
}

// Serve runs the HTTP server until ctx is cancelled, then shuts down gracefully
func (b *Bootstrap) Serve(ctx context.Context) error {
	if b.Server == nil {
		return errors.New("bootstrap: InitializeRelay must run before Serve")
	}

	srv := &http.Server{
		Addr:              b.Config.App.ListenAddr,
		Handler:           b.Server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("✨ Trade relay listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("👋 Shutting down gracefully...")
	b.Hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// ClearAll wipes every trade and message and restarts the counters. Refused in production.
func (b *Bootstrap) ClearAll() error {
	if b.Config.IsProduction() {
		return domain.ErrClearForbidden
	}
	if err := b.Store.ClearAll(); err != nil {
		return err
	}
	if b.Metrics != nil {
		b.Metrics.Reset()
	}
	slog.Warn("🧹 Record store cleared", slog.String("backend", b.Config.Storage.Backend))
	return nil
}

// Close releases the record store
func (b *Bootstrap) Close() error {
	if b.Store == nil {
		return nil
	}
	return b.Store.Close()
}
