package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neuralflow/internal/storage"
)

// Events emitted while an approval is outstanding.
const (
	EventApprovalRequired  = "mcp:approval-required"
	EventApprovalDismissed = "mcp:approval-dismissed"
)

var (
	ErrRejected        = errors.New("action rejected by user")
	ErrApprovalTimeout = errors.New("approval timed out")
)

// EventEmitter allows the approval queue to notify the frontend.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// PendingAction represents a destructive operation awaiting user approval.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	Metadata    string `json:"metadata"` // JSON with extra context (e.g. node IDs to highlight)
}

// actionResult is sent through the channel when user approves/rejects.
type actionResult struct {
	approved bool
}

// ApprovalQueue manages human-in-the-loop approval for destructive MCP tool calls.
// It supports two modes:
//   - In-process (desktop app running MCP): uses channels + Wails events
//   - Store-based (standalone MCP): writes to mcp_approvals, polls for result
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]chan actionResult
	actions map[string]PendingAction
	ctx     context.Context
	emitter EventEmitter
	log     *zap.Logger
	timeout time.Duration
	poll    time.Duration
	// cross-process mode for standalone MCP
	store *storage.ApprovalStore
}

func NewApprovalQueue(ctx context.Context, emitter EventEmitter, log *zap.Logger) *ApprovalQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &ApprovalQueue{
		pending: make(map[string]chan actionResult),
		actions: make(map[string]PendingAction),
		ctx:     ctx,
		emitter: emitter,
		log:     log.Named("approval"),
		timeout: 120 * time.Second,
		poll:    500 * time.Millisecond,
	}
}

// SetStore enables cross-process approval for standalone MCP. The
// standalone process writes pending actions to SQLite and polls until the
// desktop app resolves them.
func (q *ApprovalQueue) SetStore(store *storage.ApprovalStore) {
	q.store = store
}

// SetTimeout changes how long a request waits for the user.
func (q *ApprovalQueue) SetTimeout(d time.Duration) {
	q.timeout = d
}

// Request asks the user to approve tool and blocks until they answer. It
// returns nil only on approval. metadata is optional JSON with extra
// context for the frontend.
func (q *ApprovalQueue) Request(ctx context.Context, tool, description string, metadata ...string) error {
	action := PendingAction{
		ID:          uuid.NewString(),
		Tool:        tool,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		Metadata:    "{}",
	}
	if len(metadata) > 0 && metadata[0] != "" {
		action.Metadata = metadata[0]
	}
	q.log.Info("approval requested", zap.String("tool", tool), zap.String("id", action.ID))

	if q.store != nil {
		return q.requestViaStore(ctx, action)
	}
	return q.requestViaChannel(ctx, action)
}

// requestViaStore writes a pending approval and polls until resolved.
func (q *ApprovalQueue) requestViaStore(ctx context.Context, a PendingAction) error {
	if err := q.store.Insert(a.ID, a.Tool, a.Description, a.Metadata); err != nil {
		return err
	}
	defer q.store.Delete(a.ID)

	deadline := time.NewTimer(q.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status, err := q.store.Status(a.ID)
			if err != nil {
				continue
			}
			switch status {
			case storage.ApprovalApproved:
				return nil
			case storage.ApprovalRejected:
				return fmt.Errorf("%w: %s", ErrRejected, a.Tool)
			}
		case <-deadline.C:
			return fmt.Errorf("%w after %s: %s", ErrApprovalTimeout, q.timeout, a.Tool)
		case <-ctx.Done():
			return ctx.Err()
		case <-q.ctx.Done():
			return q.ctx.Err()
		}
	}
}

// requestViaChannel is the in-process mode using frontend events.
func (q *ApprovalQueue) requestViaChannel(ctx context.Context, a PendingAction) error {
	ch := make(chan actionResult, 1)

	q.mu.Lock()
	q.pending[a.ID] = ch
	q.actions[a.ID] = a
	q.mu.Unlock()
	defer q.cleanup(a.ID)

	q.emitter.Emit(q.ctx, EventApprovalRequired, a)

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case result := <-ch:
		if !result.approved {
			return fmt.Errorf("%w: %s", ErrRejected, a.Tool)
		}
		return nil
	case <-timer.C:
		q.emitter.Emit(q.ctx, EventApprovalDismissed, map[string]string{"id": a.ID})
		return fmt.Errorf("%w after %s: %s", ErrApprovalTimeout, q.timeout, a.Tool)
	case <-ctx.Done():
		q.emitter.Emit(q.ctx, EventApprovalDismissed, map[string]string{"id": a.ID})
		return ctx.Err()
	}
}

// Pending lists in-process actions awaiting an answer, oldest first.
func (q *ApprovalQueue) Pending() []PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PendingAction, 0, len(q.actions))
	for _, a := range q.actions {
		out = append(out, a)
	}
	sortActions(out)
	return out
}

// Approve marks a pending action as approved (in-process mode).
func (q *ApprovalQueue) Approve(actionID string) bool {
	return q.resolve(actionID, true)
}

// Reject marks a pending action as rejected (in-process mode).
func (q *ApprovalQueue) Reject(actionID string) bool {
	return q.resolve(actionID, false)
}

func (q *ApprovalQueue) resolve(actionID string, approved bool) bool {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	q.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- actionResult{approved: approved}:
		return true
	default:
		// already answered
		return false
	}
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	delete(q.actions, id)
	q.mu.Unlock()
}
