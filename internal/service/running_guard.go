package service

import (
	"context"
	"sync"
)

// ExportedJobGuard is an exported alias so _test packages can test the guard.
type ExportedJobGuard = jobGuard

// Guard keys.
const (
	jobGenerate = "generate"
	jobLeadSync = "lead-sync"
)

// ─────────────────────────────────────────────────────────────
// jobGuard: one run per key at a time
// ─────────────────────────────────────────────────────────────

// jobGuard rejects, rather than queues, a second run of a job that is
// still in progress. It guards generation and lead sync.
type jobGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks key as running. Returns false if it already is.
func (g *jobGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[key]; ok {
		return false
	}
	g.running[key] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock must follow a successful TryLock.
func (g *jobGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, key)
	g.wg.Done()
}

func (g *jobGuard) Running(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[key]
	return ok
}

// WaitAll blocks until all running jobs complete or ctx is cancelled.
func (g *jobGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
