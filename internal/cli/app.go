package cli

import (
	"log/slog"
	"time"

	"github.com/roach88/groupmeal/internal/config"
	"github.com/roach88/groupmeal/internal/fetch"
	"github.com/roach88/groupmeal/internal/notify"
	"github.com/roach88/groupmeal/internal/pipeline"
	"github.com/roach88/groupmeal/internal/reconcile"
	"github.com/roach88/groupmeal/internal/store"
)

// app holds what a command needs after the config and database are open.
type app struct {
	cfg      config.Config
	store    *store.Store
	location *time.Location
	by       reconcile.Attribution
	logger   *slog.Logger
}

// loadConfig reads the config file named by the root options and applies
// flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, nil
}

// openApp loads the configuration and opens the store. Callers must close
// the app.
func openApp(opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	by, err := reconcile.ParseAttribution(cfg.Chat.By)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}

	logger := slog.Default()
	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return &app{cfg: cfg, store: st, location: loc, by: by, logger: logger}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// channels builds the notification channels. Chat goes to the configured
// webhook, or to the store outbox when none is set.
func (a *app) channels() []notify.Channel {
	var chat notify.ChatNotifier = notify.NewOutboxNotifier(a.store)
	if a.cfg.Chat.WebhookURL != "" {
		chat = notify.NewWebhookNotifier(a.cfg.Chat.WebhookURL, nil)
	}
	return []notify.Channel{
		notify.NewRecordChannel(a.store),
		notify.NewEmailChannel(a.store, a.cfg.Email.Sender, a.location),
		notify.NewPushChannel(a.store, a.cfg.AppURL),
		notify.NewChatChannel(chat),
	}
}

// runner wires the pipeline over the app's store.
func (a *app) runner(opts ...pipeline.Option) *pipeline.Runner {
	opts = append([]pipeline.Option{pipeline.WithLogger(a.logger)}, opts...)
	return pipeline.New(a.store,
		fetch.New(a.store, a.cfg.BatchSize),
		notify.NewDispatcher(a.logger, a.channels()...),
		pipeline.Config{
			DefaultDeliveryHour: a.cfg.DefaultDeliveryHour,
			Location:            a.location,
			By:                  a.by,
		},
		opts...,
	)
}
