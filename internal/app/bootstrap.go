package app

import (
	"log/slog"

	"ocobot/internal/infra"
	"ocobot/internal/infra/storage"
	"ocobot/internal/notify"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Journal *storage.Journal
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger)
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	slog.Info("🚀 Bootstrapping ocobot", slog.String("version", cfg.App.Version))
	return nil
}

// OpenJournal starts the trade journal for this run. Called after the
// trade parameters are known so the run record carries them.
func (b *Bootstrap) OpenJournal(pair, amount string) error {
	journal, err := storage.NewJournal(b.Config.Storage.Path, pair, amount)
	if err != nil {
		return err
	}
	b.Journal = journal
	slog.Info("✅ Trade journal initialized", slog.String("path", b.Config.Storage.Path))
	return nil
}

// BuildNotifier assembles the notification fan-out from the config.
func (b *Bootstrap) BuildNotifier() notify.Notifier {
	sinks := notify.Multi{notify.NewLogNotifier(slog.Default())}
	if b.Config.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookNotifier(b.Config.Notify.WebhookURL))
		slog.Info("✅ Webhook notifier ready")
	}
	return sinks
}
