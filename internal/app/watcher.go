package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"neuralflow/internal/editor"
	"neuralflow/internal/leads"
	mcpserver "neuralflow/internal/mcp"
	"neuralflow/internal/service"
)

const watchInterval = 2 * time.Second

// flowWatcher polls the database for changes made outside this process
// (e.g. from the standalone MCP server) and emits events so the frontend
// auto-refreshes.
type flowWatcher struct {
	ctx      context.Context
	core     *Core
	emitter  service.EventEmitter
	log      *zap.Logger
	interval time.Duration

	mu        sync.Mutex
	lastFlow  time.Time // updated_at of the stored flow
	lastLeads time.Time
	leadsSeen bool
	stopCh    chan struct{}
	stopOnce  sync.Once
	// Track emitted approval IDs to avoid infinite re-emission
	emittedApprovals map[string]bool
}

func newFlowWatcher(ctx context.Context, core *Core, emitter service.EventEmitter, log *zap.Logger) *flowWatcher {
	return &flowWatcher{
		ctx:              ctx,
		core:             core,
		emitter:          emitter,
		log:              log.Named("watcher"),
		interval:         watchInterval,
		stopCh:           make(chan struct{}),
		emittedApprovals: map[string]bool{},
	}
}

// Start begins the polling loop. Should be called once on app startup.
func (w *flowWatcher) Start() {
	go w.pollLoop()
}

// Stop terminates the polling loop.
func (w *flowWatcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *flowWatcher) pollLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.stopCh:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *flowWatcher) check() {
	w.checkFlow()
	w.checkLeads()
	w.checkApprovals()
}

// ── Flow ───────────────────────────────────────────────────

func (w *flowWatcher) checkFlow() {
	at, err := w.core.Settings.UpdatedAt(service.KeyCurrentFlow)
	if err != nil {
		w.log.Debug("flow fingerprint", zap.Error(err))
		return
	}

	w.mu.Lock()
	unchanged := at.Equal(w.lastFlow)
	w.mu.Unlock()
	if unchanged {
		return
	}
	// Retry on the next tick once the gesture ends.
	if w.core.Flows.State().Mode != editor.ModeIdle {
		return
	}

	changed, err := w.core.Flows.Reload(w.ctx)
	if err != nil {
		w.log.Warn("reload flow", zap.Error(err))
		return
	}
	w.mu.Lock()
	w.lastFlow = at
	w.mu.Unlock()
	if changed {
		w.log.Info("flow changed outside the app, canvas reloaded")
	}
}

// ── Leads ──────────────────────────────────────────────────

func (w *flowWatcher) checkLeads() {
	at, err := w.core.Settings.UpdatedAt(leads.KeyLeads)
	if err != nil {
		return
	}

	w.mu.Lock()
	changed := w.leadsSeen && !at.Equal(w.lastLeads)
	w.lastLeads = at
	w.leadsSeen = true
	w.mu.Unlock()
	if !changed {
		return
	}

	if err := w.core.LeadStore.Load(); err != nil {
		w.log.Warn("reload leads", zap.Error(err))
		return
	}
	w.emitter.Emit(w.ctx, service.EventLeadsChanged, w.core.LeadStore.Stats())
}

// ── Approvals (cross-process IPC) ──────────────────────────

func (w *flowWatcher) checkApprovals() {
	rows, err := w.core.Approvals.Pending()
	if err != nil {
		w.log.Debug("pending approvals", zap.Error(err))
		return
	}

	pending := make(map[string]bool, len(rows))
	for _, r := range rows {
		pending[r.ID] = true

		w.mu.Lock()
		alreadySent := w.emittedApprovals[r.ID]
		w.emittedApprovals[r.ID] = true
		w.mu.Unlock()
		if alreadySent {
			continue
		}
		w.emitter.Emit(w.ctx, mcpserver.EventApprovalRequired, mcpserver.PendingAction{
			ID:          r.ID,
			Tool:        r.Tool,
			Description: r.Description,
			CreatedAt:   r.CreatedAt,
			Metadata:    r.Metadata,
		})
	}

	// Rows the MCP process removed (answered or timed out) close their dialog.
	var gone []string
	w.mu.Lock()
	for id := range w.emittedApprovals {
		if !pending[id] {
			delete(w.emittedApprovals, id)
			gone = append(gone, id)
		}
	}
	w.mu.Unlock()
	for _, id := range gone {
		w.emitter.Emit(w.ctx, mcpserver.EventApprovalDismissed, map[string]string{"id": id})
	}
}

// forget drops an approval the user answered in this window.
func (w *flowWatcher) forget(id string) {
	w.mu.Lock()
	delete(w.emittedApprovals, id)
	w.mu.Unlock()
}
