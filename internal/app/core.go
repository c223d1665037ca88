package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"neuralflow/internal/config"
	"neuralflow/internal/generate"
	"neuralflow/internal/leads"
	"neuralflow/internal/notify"
	"neuralflow/internal/secret"
	"neuralflow/internal/service"
	"neuralflow/internal/storage"
)

// Core holds the stores and services shared by the desktop app, the
// standalone MCP server and the CLI. Everything is built once here and
// injected downwards.
type Core struct {
	Config *config.Config
	Log    *zap.Logger

	DB        *storage.DB
	Settings  *storage.SettingsStore
	History   *storage.HistoryStore
	Approvals *storage.ApprovalStore
	Secrets   secret.SecretStore
	LeadStore *leads.Store

	Flows  *service.FlowService
	Leads  *service.LeadService
	Sync   *service.SyncService
	Window *service.WindowSettingsService

	mu     sync.Mutex
	closed bool
}

// ErrClosed is returned by StartSync once the core is closed.
var ErrClosed = errors.New("core closed")

// OpenCore opens the local database under cfg.DataDir and wires the
// services. Without a Gemini API key the app still starts; generation then
// fails with generate.ErrUpstream.
func OpenCore(cfg *config.Config, emitter service.EventEmitter, log *zap.Logger) (*Core, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if emitter == nil {
		emitter = service.NopEmitter{}
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := storage.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	c := &Core{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Settings:  storage.NewSettingsStore(db),
		History:   storage.NewHistoryStore(db, cfg.Editor.HistoryLimit),
		Approvals: storage.NewApprovalStore(db),
		Secrets:   secret.Default(),
	}

	c.LeadStore = leads.NewStore(c.Settings, log)
	if err := c.LeadStore.Load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load leads: %w", err)
	}

	c.Flows = service.NewFlowService(c.gateway(), c.History, c.Settings, emitter, log, service.FlowOptions{
		GridSize:  cfg.Editor.GridSize,
		UndoLimit: cfg.Editor.UndoLimit,
	})
	if err := c.Flows.Restore(); err != nil {
		log.Warn("could not restore flow", zap.Error(err))
	}

	c.Leads = service.NewLeadService(c.LeadStore,
		notify.NewLogNotifier(cfg.Leads.NotifyDelay, log),
		cfg.Leads.OwnerEmail, emitter, log)
	c.Sync = service.NewSyncService(c.LeadStore, c.Secrets, nil, emitter, log)
	c.Window = service.NewWindowSettingsService(c.Settings)

	log.Debug("core opened", zap.String("db", db.Path()))
	return c, nil
}

// gateway builds the Gemini client. It returns a nil interface, not a nil
// client, when the key is missing.
func (c *Core) gateway() generate.Gateway {
	key, err := secret.GetString(c.Secrets, secret.KeyGeminiAPIKey)
	if err != nil {
		c.Log.Warn("could not read gemini api key", zap.Error(err))
	}
	if key == "" {
		c.Log.Warn("gemini api key not set; generation disabled",
			zap.String("env", secret.EnvName(secret.KeyGeminiAPIKey)))
		return nil
	}
	client, err := generate.NewGeminiClient(generate.Config{
		APIKey:        key,
		Model:         c.Config.Gemini.Model,
		BaseURL:       c.Config.Gemini.BaseURL,
		Timeout:       c.Config.Gemini.Timeout,
		RatePerMinute: c.Config.Gemini.RatePerMinute,
		Burst:         c.Config.Gemini.Burst,
	}, c.Log)
	if err != nil {
		c.Log.Warn("gemini client disabled", zap.Error(err))
		return nil
	}
	return client
}

// StartSync applies the sync section and starts its schedule.
func (c *Core) StartSync(ctx context.Context, cfg config.SyncConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.Sync.Reconfigure(ctx, cfg); err != nil {
		return fmt.Errorf("configure lead sync: %w", err)
	}
	return nil
}

// Close stops scheduled work and closes the database. Later calls are
// no-ops.
func (c *Core) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.Sync != nil {
		c.Sync.Stop()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
