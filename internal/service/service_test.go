package service_test

import (
	"context"
	"testing"
	"time"

	"neuralflow/internal/service"
)

// ─────────────────────────────────────────────────────────────
// jobGuard tests
// ─────────────────────────────────────────────────────────────

func TestJobGuard_TryLock(t *testing.T) {
	var g service.ExportedJobGuard

	if !g.TryLock("generate") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("generate") {
		t.Fatal("expected second TryLock for same key to fail")
	}
	if !g.TryLock("lead-sync") {
		t.Fatal("expected TryLock for different key to succeed")
	}
	if !g.Running("generate") {
		t.Fatal("expected generate to be running")
	}
	g.Unlock("generate")
	g.Unlock("lead-sync")

	if g.Running("generate") {
		t.Fatal("expected generate to be released")
	}
	if !g.TryLock("generate") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("generate")
}

func TestJobGuard_WaitAll(t *testing.T) {
	var g service.ExportedJobGuard

	if !g.TryLock("job-a") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("job-a")
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, service.EventFlowChanged, map[string]string{"foo": "bar"})
	m.Emit(ctx, service.EventHistoryChanged, nil)
	m.Emit(ctx, service.EventFlowChanged, nil)

	if len(m.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(m.Events))
	}
	if got := m.Names()[1]; got != service.EventHistoryChanged {
		t.Errorf("expected %q, got %q", service.EventHistoryChanged, got)
	}
	if n := m.Count(service.EventFlowChanged); n != 2 {
		t.Errorf("expected 2 flow:changed, got %d", n)
	}
}

func TestNopEmitter(t *testing.T) {
	// must not panic
	service.NopEmitter{}.Emit(context.Background(), "anything", 1)
}
