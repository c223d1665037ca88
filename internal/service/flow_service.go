package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"neuralflow/internal/domain"
	"neuralflow/internal/editor"
	"neuralflow/internal/generate"
)

// KeyCurrentFlow holds the flow on the canvas between sessions.
const KeyCurrentFlow = "neuralflow_current_flow"

var (
	ErrBusy          = errors.New("a generation is already in progress")
	ErrGroupTooSmall = errors.New("a group needs at least two nodes")
)

// ─────────────────────────────────────────────────────────────
// Flow Service: the editor behind one lock
// ─────────────────────────────────────────────────────────────

// FlowOptions configures a FlowService. Zero values take the editor
// defaults.
type FlowOptions struct {
	GridSize  float64
	UndoLimit int
	NewID     func() string
	Now       func() time.Time
}

// FlowService serialises every editor operation. Wails bindings, MCP tool
// handlers and background jobs all go through it.
type FlowService struct {
	mu    sync.Mutex
	store *editor.FlowStore
	sel   *editor.Selection
	ctl   *editor.Controller

	gateway generate.Gateway
	history domain.HistoryStore
	kv      domain.KVStore
	emitter EventEmitter
	log     *zap.Logger
	guard   jobGuard
	newID   func() string
	now     func() time.Time
}

func NewFlowService(gw generate.Gateway, history domain.HistoryStore, kv domain.KVStore, emitter EventEmitter, log *zap.Logger, opts FlowOptions) *FlowService {
	if log == nil {
		log = zap.NewNop()
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	store := editor.NewFlowStore(opts.UndoLimit)
	sel := editor.NewSelection()
	return &FlowService{
		store:   store,
		sel:     sel,
		ctl:     editor.NewController(store, sel, editor.WithGridSize(opts.GridSize), editor.WithIDGenerator(opts.NewID)),
		gateway: gw,
		history: history,
		kv:      kv,
		emitter: emitter,
		log:     log.Named("flow"),
		newID:   opts.NewID,
		now:     opts.Now,
	}
}

// FlowState is the snapshot the canvas renders from.
type FlowState struct {
	Flow       *domain.Flow              `json:"flow"`
	Selection  editor.SelectionState     `json:"selection"`
	Mode       editor.Mode               `json:"mode"`
	CanUndo    bool                      `json:"canUndo"`
	CanRedo    bool                      `json:"canRedo"`
	Scene      editor.Scene              `json:"scene"`
	Preview    *editor.ConnectionPreview `json:"preview,omitempty"`
	Generating bool                      `json:"generating"`
	GridSize   float64                   `json:"gridSize"`
}

func (s *FlowService) State() FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *FlowService) stateLocked() FlowState {
	st := FlowState{
		Selection:  s.sel.State(),
		Mode:       s.ctl.Mode(),
		CanUndo:    s.store.CanUndo(),
		CanRedo:    s.store.CanRedo(),
		Generating: s.guard.Running(jobGenerate),
		GridSize:   s.ctl.GridSize(),
	}
	if f, ok := s.store.Flow(); ok {
		st.Flow = &f
		st.Scene = editor.BuildScene(&f)
	} else {
		st.Scene = editor.BuildScene(nil)
	}
	if p, ok := s.ctl.Preview(); ok {
		st.Preview = &p
	}
	return st
}

// Flow returns a copy of the current flow.
func (s *FlowService) Flow() (domain.Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Flow()
}

// ── Persistence ────────────────────────────────────────────

// Restore loads the flow saved by the previous session. A corrupt value is
// logged and ignored.
func (s *FlowService) Restore() error {
	raw, ok, err := s.kv.Get(KeyCurrentFlow)
	if err != nil {
		return fmt.Errorf("restore flow: %w", err)
	}
	if !ok || raw == "" {
		return nil
	}
	var f domain.Flow
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		s.log.Warn("stored flow is corrupt, starting empty", zap.Error(err))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Replace(f)
	s.sel.Clear()
	s.ctl.Reset()
	s.log.Debug("flow restored", zap.String("title", f.Title), zap.Int("nodes", len(f.Nodes)))
	return nil
}

// Reload picks up a flow written by another process, such as the standalone
// MCP server, and reports whether the canvas changed. The replaced flow is
// recorded for undo. A gesture in progress defers the reload.
func (s *FlowService) Reload(ctx context.Context) (bool, error) {
	raw, ok, err := s.kv.Get(KeyCurrentFlow)
	if err != nil {
		return false, fmt.Errorf("reload flow: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctl.Mode() != editor.ModeIdle {
		return false, nil
	}

	cur, loaded := s.store.Flow()
	if !ok || raw == "" {
		return false, nil
	}
	if loaded {
		if data, err := json.Marshal(cur); err == nil && string(data) == raw {
			return false, nil
		}
	}

	var f domain.Flow
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		s.log.Warn("stored flow is corrupt, keeping canvas", zap.Error(err))
		return false, nil
	}
	if loaded {
		s.store.RecordState()
	}
	s.store.Replace(f)
	s.dropStaleSelectionLocked()
	st := s.stateLocked()
	s.emitter.Emit(ctx, EventFlowChanged, st)
	s.log.Debug("flow reloaded", zap.String("title", f.Title))
	return true, nil
}

// persistLocked writes the current flow. Failures are logged; the in-memory
// state stays authoritative.
func (s *FlowService) persistLocked() {
	f, ok := s.store.Flow()
	if !ok {
		if err := s.kv.Delete(KeyCurrentFlow); err != nil {
			s.log.Warn("clear stored flow", zap.Error(err))
		}
		return
	}
	data, err := json.Marshal(f)
	if err != nil {
		s.log.Warn("marshal flow", zap.Error(err))
		return
	}
	if err := s.kv.Set(KeyCurrentFlow, string(data)); err != nil {
		s.log.Warn("persist flow", zap.Error(err))
	}
}

// commitLocked persists and announces a change to the flow.
func (s *FlowService) commitLocked(ctx context.Context) FlowState {
	s.persistLocked()
	st := s.stateLocked()
	s.emitter.Emit(ctx, EventFlowChanged, st)
	return st
}

// ── Generation ─────────────────────────────────────────────

// Generate replaces the current flow with one generated from prompt. The
// previous flow is pushed onto the undo stack and the selection is
// cleared. A second call while one is in flight returns ErrBusy. On failure
// nothing changes.
func (s *FlowService) Generate(ctx context.Context, prompt string) (domain.Flow, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return domain.Flow{}, generate.ErrEmptyPrompt
	}
	if s.gateway == nil {
		return domain.Flow{}, fmt.Errorf("%w: no generation gateway configured", generate.ErrUpstream)
	}
	if !s.guard.TryLock(jobGenerate) {
		return domain.Flow{}, ErrBusy
	}
	defer s.guard.Unlock(jobGenerate)

	s.emitter.Emit(ctx, EventGenerationStarted, map[string]string{"prompt": prompt})
	start := s.now()

	flow, err := s.gateway.Generate(ctx, prompt)
	if err != nil {
		s.log.Warn("generation failed", zap.String("prompt", prompt), zap.Error(err))
		s.emitter.Emit(ctx, EventGenerationFailed, map[string]string{"prompt": prompt, "error": err.Error()})
		return domain.Flow{}, err
	}
	flow = flow.Clone()

	s.mu.Lock()
	if s.store.Loaded() {
		s.store.RecordState()
	}
	s.store.Replace(flow)
	s.sel.Clear()
	s.ctl.Reset()
	s.commitLocked(ctx)
	s.mu.Unlock()

	entry := domain.HistoryEntry{ID: s.newID(), Prompt: prompt, Timestamp: s.now(), Flow: flow}
	if err := s.history.Push(entry); err != nil {
		s.log.Warn("history push failed", zap.Error(err))
	} else {
		s.emitter.Emit(ctx, EventHistoryChanged, entry.ID)
	}

	s.log.Info("flow generated",
		zap.String("title", flow.Title),
		zap.Int("nodes", len(flow.Nodes)),
		zap.Int("edges", len(flow.Edges)),
		zap.Duration("took", s.now().Sub(start)),
	)
	return flow, nil
}

func (s *FlowService) Generating() bool {
	return s.guard.Running(jobGenerate)
}

// ── History ────────────────────────────────────────────────

func (s *FlowService) ListHistory() ([]domain.HistoryEntry, error) {
	return s.history.List()
}

func (s *FlowService) SearchHistory(query string) ([]domain.HistoryEntry, error) {
	return s.history.Search(strings.TrimSpace(query))
}

// LoadHistory puts a past generation back on the canvas. The flow it
// replaces can be restored with Undo.
func (s *FlowService) LoadHistory(ctx context.Context, id string) (FlowState, error) {
	entry, err := s.history.Get(id)
	if err != nil {
		return FlowState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store.Loaded() {
		s.store.RecordState()
	}
	s.store.Replace(entry.Flow)
	s.sel.Clear()
	s.ctl.Reset()
	return s.commitLocked(ctx), nil
}

// ── Pointer events ─────────────────────────────────────────

func (s *FlowService) PointerDownNode(ctx context.Context, nodeID string, x, y float64, multi bool) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl.PointerDownNode(nodeID, domain.Point{X: x, Y: y}, multi)
	return s.stateLocked()
}

func (s *FlowService) PointerDownHandle(ctx context.Context, nodeID string, x, y float64) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl.PointerDownHandle(nodeID, domain.Point{X: x, Y: y})
	return s.stateLocked()
}

func (s *FlowService) PointerMove(ctx context.Context, x, y float64) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl.PointerMove(domain.Point{X: x, Y: y})
	return s.stateLocked()
}

// PointerUp ends a drag or connection. targetID is the node under the
// pointer, or empty.
func (s *FlowService) PointerUp(ctx context.Context, targetID string) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasActive := s.ctl.Mode() != editor.ModeIdle
	s.ctl.PointerUp(targetID)
	if wasActive {
		return s.commitLocked(ctx)
	}
	return s.stateLocked()
}

func (s *FlowService) PointerLeave(ctx context.Context) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasDragging := s.ctl.Mode() == editor.ModeDragging
	s.ctl.PointerLeave()
	if wasDragging {
		return s.commitLocked(ctx)
	}
	return s.stateLocked()
}

func (s *FlowService) ClickCanvas(ctx context.Context) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl.ClickCanvas()
	return s.stateLocked()
}

func (s *FlowService) ClickEdge(ctx context.Context, edgeID string) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl.ClickEdge(edgeID)
	return s.stateLocked()
}

func (s *FlowService) ClickGroup(ctx context.Context, groupID string) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctl.ClickGroup(groupID)
	return s.stateLocked()
}

// SelectNode makes nodeID the single selection; empty clears everything.
func (s *FlowService) SelectNode(ctx context.Context, nodeID string) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.SelectNode(nodeID)
	return s.stateLocked()
}

// ── Structural edits ───────────────────────────────────────

// NodeInput describes a node to add. Nil coordinates place it at the
// centre of the default layout.
type NodeInput struct {
	Label       string          `json:"label"`
	Description string          `json:"description"`
	Type        domain.NodeType `json:"type"`
	X           *float64        `json:"x,omitempty"`
	Y           *float64        `json:"y,omitempty"`
}

func (s *FlowService) AddNode(ctx context.Context, in NodeInput) (domain.Node, error) {
	pos := generate.DefaultLayout.Center
	if in.X != nil {
		pos.X = *in.X
	}
	if in.Y != nil {
		pos.Y = *in.Y
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pos = editor.SnapPoint(pos, s.ctl.GridSize())
	n := domain.Node{
		ID:          s.newID(),
		Label:       strings.TrimSpace(in.Label),
		Description: in.Description,
		Type:        in.Type,
		X:           pos.X,
		Y:           pos.Y,
	}
	if err := s.store.AddNode(n); err != nil {
		return domain.Node{}, err
	}
	s.sel.SelectNode(n.ID)
	s.commitLocked(ctx)
	return n, nil
}

func (s *FlowService) UpdateNode(ctx context.Context, id string, patch domain.NodePatch) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.UpdateNode(id, patch); err != nil {
		return domain.Node{}, err
	}
	s.commitLocked(ctx)
	f, _ := s.store.Flow()
	n, _ := f.Node(id)
	return n, nil
}

// MoveNode places a node at a snapped position as one undoable step.
func (s *FlowService) MoveNode(ctx context.Context, id string, x, y float64) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.store.Flow()
	if !ok {
		return domain.Node{}, editor.ErrNoFlow
	}
	if _, ok := f.Node(id); !ok {
		return domain.Node{}, editor.ErrNodeNotFound
	}
	p := editor.SnapPoint(domain.Point{X: x, Y: y}, s.ctl.GridSize())
	s.store.RecordState()
	if err := s.store.MoveNode(id, p.X, p.Y); err != nil {
		return domain.Node{}, err
	}
	s.commitLocked(ctx)
	f, _ = s.store.Flow()
	n, _ := f.Node(id)
	return n, nil
}

func (s *FlowService) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctl.DeleteNode(id); err != nil {
		return err
	}
	s.commitLocked(ctx)
	return nil
}

// Connect adds an edge from one node to another. An empty label gets the
// default.
func (s *FlowService) Connect(ctx context.Context, from, to, label string) (domain.Edge, error) {
	if strings.TrimSpace(label) == "" {
		label = domain.DefaultEdgeLabel
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := domain.Edge{ID: s.newID(), From: from, To: to, Label: label}
	if err := s.store.AddEdge(e); err != nil {
		return domain.Edge{}, err
	}
	s.sel.SelectEdge(e.ID)
	s.commitLocked(ctx)
	return e, nil
}

func (s *FlowService) UpdateEdge(ctx context.Context, id string, patch domain.EdgePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.UpdateEdge(id, patch); err != nil {
		return err
	}
	s.commitLocked(ctx)
	return nil
}

func (s *FlowService) DeleteEdge(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctl.DeleteEdge(id); err != nil {
		return err
	}
	s.commitLocked(ctx)
	return nil
}

// CreateGroup clusters the multi-selected nodes. It returns false when
// fewer than two are selected.
func (s *FlowService) CreateGroup(ctx context.Context) (domain.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.ctl.CreateGroup()
	if ok {
		s.commitLocked(ctx)
	}
	return g, ok
}

// GroupNodes clusters the given nodes without touching the pointer
// selection first. Used by the MCP tools.
func (s *FlowService) GroupNodes(ctx context.Context, nodeIDs []string, label string) (domain.Group, error) {
	ids := dedupe(nodeIDs)
	if len(ids) < 2 {
		return domain.Group{}, ErrGroupTooSmall
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.store.Flow()
	if !ok {
		return domain.Group{}, editor.ErrNoFlow
	}
	if strings.TrimSpace(label) == "" {
		label = domain.DefaultGroupLabel
	}
	g := domain.Group{
		ID:      s.newID(),
		Label:   label,
		NodeIDs: ids,
		Color:   domain.GroupColor(len(f.Groups)),
	}
	if err := s.store.AddGroup(g); err != nil {
		return domain.Group{}, err
	}
	s.sel.SelectGroup(g.ID)
	s.commitLocked(ctx)
	return g, nil
}

func (s *FlowService) UpdateGroup(ctx context.Context, id string, patch domain.GroupPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.UpdateGroup(id, patch); err != nil {
		return err
	}
	s.commitLocked(ctx)
	return nil
}

func (s *FlowService) ToggleGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctl.ToggleGroupCollapse(id); err != nil {
		return err
	}
	s.commitLocked(ctx)
	return nil
}

func (s *FlowService) DissolveGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ctl.DissolveGroup(id); err != nil {
		return err
	}
	s.commitLocked(ctx)
	return nil
}

// DeleteSelection removes the selected node, edge or group.
func (s *FlowService) DeleteSelection(ctx context.Context) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctl.DeleteSelection() {
		return s.commitLocked(ctx)
	}
	return s.stateLocked()
}

// ── Undo / redo ────────────────────────────────────────────

func (s *FlowService) Undo(ctx context.Context) (FlowState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctl.Mode() != editor.ModeIdle || !s.store.Undo() {
		return s.stateLocked(), false
	}
	s.dropStaleSelectionLocked()
	return s.commitLocked(ctx), true
}

func (s *FlowService) Redo(ctx context.Context) (FlowState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctl.Mode() != editor.ModeIdle || !s.store.Redo() {
		return s.stateLocked(), false
	}
	s.dropStaleSelectionLocked()
	return s.commitLocked(ctx), true
}

// dropStaleSelectionLocked clears the selection if it names something the
// restored flow no longer has.
func (s *FlowService) dropStaleSelectionLocked() {
	f, ok := s.store.Flow()
	if !ok {
		s.sel.Clear()
		return
	}
	st := s.sel.State()
	stale := (st.NodeID != "" && f.NodeIndex(st.NodeID) < 0) ||
		(st.EdgeID != "" && f.EdgeIndex(st.EdgeID) < 0) ||
		(st.GroupID != "" && f.GroupIndex(st.GroupID) < 0)
	for _, id := range st.NodeIDs {
		if f.NodeIndex(id) < 0 {
			stale = true
		}
	}
	if stale {
		s.sel.Clear()
	}
}

// ── Export ─────────────────────────────────────────────────

// ExportNode returns the suggested file name and indented JSON for a node.
func (s *FlowService) ExportNode(id string) (string, []byte, error) {
	s.mu.Lock()
	f, ok := s.store.Flow()
	s.mu.Unlock()
	if !ok {
		return "", nil, editor.ErrNoFlow
	}
	n, ok := f.Node(id)
	if !ok {
		return "", nil, editor.ErrNodeNotFound
	}
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("marshal node: %w", err)
	}
	return NodeFileName(n), data, nil
}

// NodeFileName is node-<label-slug>.json, falling back to the id for a
// blank label.
func NodeFileName(n domain.Node) string {
	slug := strings.Join(strings.Fields(strings.ToLower(n.Label)), "-")
	if slug == "" {
		slug = n.ID
	}
	return "node-" + slug + ".json"
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
