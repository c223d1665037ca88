package app

import (
	"context"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"neuralflow/internal/config"
)

// ShareBaseURL is the public page referral links point at.
const ShareBaseURL = "https://neuralflow.ai/"

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx     context.Context
	core    *Core
	log     *zap.Logger
	emitter *wailsEmitter
	watcher *flowWatcher

	stopConfigWatch func()

	// cfgPath is watched for sync changes while the window is open.
	cfgPath string
}

// New opens the core for the desktop app. referral is the code from the
// launch link, if any.
func New(cfg *config.Config, cfgPath, referral string, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	emitter := &wailsEmitter{}
	core, err := OpenCore(cfg, emitter, log)
	if err != nil {
		return nil, err
	}
	if referral != "" {
		core.Leads.SetReferral(referral)
	}
	return &App{
		core:    core,
		log:     log.Named("app"),
		emitter: emitter,
		cfgPath: cfgPath,
	}, nil
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	a.emitter.bind(ctx)

	if err := a.core.StartSync(ctx, a.core.Config.Sync); err != nil {
		a.log.Error("lead sync not started", zap.Error(err))
	}
	stop, err := config.Watch(ctx, a.cfgPath, a.log, func(cfg *config.Config) {
		if err := a.core.StartSync(ctx, cfg.Sync); err != nil {
			a.log.Error("lead sync not reconfigured", zap.Error(err))
		}
	})
	if err != nil {
		a.log.Debug("config hot reload disabled", zap.Error(err))
	}
	a.stopConfigWatch = stop

	// Picks up edits made by the standalone MCP server.
	a.watcher = newFlowWatcher(ctx, a.core, a.emitter, a.log)
	a.watcher.Start()

	a.log.Info("started",
		zap.String("view", string(a.core.Leads.InitialView())),
		zap.Bool("referral", a.core.Leads.Referral() != ""),
	)
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.stopConfigWatch != nil {
		a.stopConfigWatch()
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}

	if w, h := wailsRuntime.WindowGetSize(ctx); w > 0 && h > 0 {
		if err := a.core.Window.SaveWindowSize(w, h); err != nil {
			a.log.Warn("could not save window size", zap.Error(err))
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	a.core.Sync.WaitRunning(waitCtx)

	a.core.Close()
	a.log.Info("stopped")
}

// Core exposes the shared stores, e.g. for tests and the CLI.
func (a *App) Core() *Core {
	return a.core
}
