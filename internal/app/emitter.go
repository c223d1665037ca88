package app

import (
	"context"
	"sync"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// wailsEmitter forwards service events to the webview. Events emitted
// before the runtime context is bound are dropped.
type wailsEmitter struct {
	mu  sync.RWMutex
	ctx context.Context
}

func (e *wailsEmitter) bind(ctx context.Context) {
	e.mu.Lock()
	e.ctx = ctx
	e.mu.Unlock()
}

// Emit ignores the caller's context: Wails needs its own runtime context.
func (e *wailsEmitter) Emit(_ context.Context, event string, data any) {
	e.mu.RLock()
	ctx := e.ctx
	e.mu.RUnlock()
	if ctx == nil {
		return
	}
	wailsRuntime.EventsEmit(ctx, event, data)
}
