package editor

import (
	"errors"
	"fmt"

	"neuralflow/internal/domain"
)

var (
	ErrNoFlow          = errors.New("no flow loaded")
	ErrNodeNotFound    = errors.New("node not found")
	ErrEdgeNotFound    = errors.New("edge not found")
	ErrGroupNotFound   = errors.New("group not found")
	ErrDuplicateID     = errors.New("id already in use")
	ErrInvalidNodeType = errors.New("invalid node type")
	ErrSelfLoop        = errors.New("edge cannot connect a node to itself")
	ErrEmptyID         = errors.New("id is required")
)

// ─────────────────────────────────────────────────────────────
// FlowStore: current diagram plus undo/redo snapshots
// ─────────────────────────────────────────────────────────────

// FlowStore holds zero or one current flow and its undo/redo stacks.
//
// Every field-level mutation except MoveNode snapshots the pre-mutation
// flow onto the undo stack and clears redo. A mutation that fails
// validation leaves both the flow and the stacks untouched.
//
// FlowStore is not safe for concurrent use.
type FlowStore struct {
	flow *domain.Flow
	undo snapshotStack
	redo snapshotStack
}

// NewFlowStore creates an empty store. undoLimit <= 0 selects DefaultUndoLimit.
func NewFlowStore(undoLimit int) *FlowStore {
	if undoLimit <= 0 {
		undoLimit = DefaultUndoLimit
	}
	return &FlowStore{
		undo: snapshotStack{limit: undoLimit},
		redo: snapshotStack{limit: undoLimit},
	}
}

// Loaded reports whether a flow is current.
func (s *FlowStore) Loaded() bool {
	return s.flow != nil
}

// Flow returns a deep copy of the current flow.
func (s *FlowStore) Flow() (domain.Flow, bool) {
	if s.flow == nil {
		return domain.Flow{}, false
	}
	return s.flow.Clone(), true
}

// view exposes the live flow to the package's read-only helpers.
func (s *FlowStore) view() *domain.Flow {
	return s.flow
}

// Replace swaps in f as the current flow without touching the stacks.
func (s *FlowStore) Replace(f domain.Flow) {
	cp := f.Clone()
	s.flow = &cp
}

// RecordState pushes a snapshot of the current flow and clears redo.
// It does nothing while no flow is loaded.
func (s *FlowStore) RecordState() {
	if s.flow == nil {
		return
	}
	s.undo.push(s.flow.Clone())
	s.redo.clear()
}

// Undo restores the most recent snapshot. It returns false when there is
// nothing to undo or no flow is loaded.
func (s *FlowStore) Undo() bool {
	if s.flow == nil || s.undo.len() == 0 {
		return false
	}
	prev, _ := s.undo.pop()
	s.redo.push(*s.flow)
	s.flow = &prev
	return true
}

// Redo re-applies the most recently undone snapshot.
func (s *FlowStore) Redo() bool {
	if s.flow == nil || s.redo.len() == 0 {
		return false
	}
	next, _ := s.redo.pop()
	s.undo.push(*s.flow)
	s.flow = &next
	return true
}

func (s *FlowStore) CanUndo() bool { return s.flow != nil && s.undo.len() > 0 }
func (s *FlowStore) CanRedo() bool { return s.flow != nil && s.redo.len() > 0 }

// UndoDepth returns the number of undo snapshots held.
func (s *FlowStore) UndoDepth() int { return s.undo.len() }

// RedoDepth returns the number of redo snapshots held.
func (s *FlowStore) RedoDepth() int { return s.redo.len() }

// ── Nodes ──────────────────────────────────────────────────

// AddNode appends n to the flow.
func (s *FlowStore) AddNode(n domain.Node) error {
	if s.flow == nil {
		return ErrNoFlow
	}
	if n.ID == "" {
		return ErrEmptyID
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidNodeType, n.Type)
	}
	if s.flow.NodeIndex(n.ID) >= 0 {
		return fmt.Errorf("node %s: %w", n.ID, ErrDuplicateID)
	}
	s.RecordState()
	s.flow.Nodes = append(s.flow.Nodes, n)
	return nil
}

// UpdateNode applies patch to the node with id.
func (s *FlowStore) UpdateNode(id string, patch domain.NodePatch) error {
	i, err := s.nodeIndex(id)
	if err != nil {
		return err
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidNodeType, *patch.Type)
	}
	s.RecordState()
	patch.Apply(&s.flow.Nodes[i])
	return nil
}

// MoveNode writes a node position without snapshotting. Drag gestures
// record their single undo entry when they start.
func (s *FlowStore) MoveNode(id string, x, y float64) error {
	i, err := s.nodeIndex(id)
	if err != nil {
		return err
	}
	s.flow.Nodes[i].X = x
	s.flow.Nodes[i].Y = y
	return nil
}

// DeleteNode removes the node, every edge touching it and its id from
// every group's member list. Emptied groups are kept.
func (s *FlowStore) DeleteNode(id string) error {
	i, err := s.nodeIndex(id)
	if err != nil {
		return err
	}
	s.RecordState()

	f := s.flow
	f.Nodes = append(f.Nodes[:i], f.Nodes[i+1:]...)

	edges := f.Edges[:0]
	for _, e := range f.Edges {
		if !e.Touches(id) {
			edges = append(edges, e)
		}
	}
	f.Edges = edges

	for gi := range f.Groups {
		f.Groups[gi].NodeIDs = f.Groups[gi].Without(id)
	}
	return nil
}

func (s *FlowStore) nodeIndex(id string) (int, error) {
	if s.flow == nil {
		return -1, ErrNoFlow
	}
	i := s.flow.NodeIndex(id)
	if i < 0 {
		return -1, fmt.Errorf("node %s: %w", id, ErrNodeNotFound)
	}
	return i, nil
}

// ── Edges ──────────────────────────────────────────────────

// AddEdge appends e. Both endpoints must exist and differ. Parallel edges
// between the same ordered pair are allowed.
func (s *FlowStore) AddEdge(e domain.Edge) error {
	if s.flow == nil {
		return ErrNoFlow
	}
	if e.ID == "" {
		return ErrEmptyID
	}
	if s.flow.EdgeIndex(e.ID) >= 0 {
		return fmt.Errorf("edge %s: %w", e.ID, ErrDuplicateID)
	}
	if e.From == e.To {
		return ErrSelfLoop
	}
	for _, end := range []string{e.From, e.To} {
		if s.flow.NodeIndex(end) < 0 {
			return fmt.Errorf("edge endpoint %s: %w", end, ErrNodeNotFound)
		}
	}
	s.RecordState()
	s.flow.Edges = append(s.flow.Edges, e)
	return nil
}

func (s *FlowStore) UpdateEdge(id string, patch domain.EdgePatch) error {
	i, err := s.edgeIndex(id)
	if err != nil {
		return err
	}
	s.RecordState()
	patch.Apply(&s.flow.Edges[i])
	return nil
}

func (s *FlowStore) DeleteEdge(id string) error {
	i, err := s.edgeIndex(id)
	if err != nil {
		return err
	}
	s.RecordState()
	s.flow.Edges = append(s.flow.Edges[:i], s.flow.Edges[i+1:]...)
	return nil
}

func (s *FlowStore) edgeIndex(id string) (int, error) {
	if s.flow == nil {
		return -1, ErrNoFlow
	}
	i := s.flow.EdgeIndex(id)
	if i < 0 {
		return -1, fmt.Errorf("edge %s: %w", id, ErrEdgeNotFound)
	}
	return i, nil
}

// ── Groups ─────────────────────────────────────────────────

// AddGroup appends g. A node belongs to at most one group, so members are
// first removed from any group that already lists them. This happens in the
// same undo step.
func (s *FlowStore) AddGroup(g domain.Group) error {
	if s.flow == nil {
		return ErrNoFlow
	}
	if g.ID == "" {
		return ErrEmptyID
	}
	if s.flow.GroupIndex(g.ID) >= 0 {
		return fmt.Errorf("group %s: %w", g.ID, ErrDuplicateID)
	}
	for _, id := range g.NodeIDs {
		if s.flow.NodeIndex(id) < 0 {
			return fmt.Errorf("group member %s: %w", id, ErrNodeNotFound)
		}
	}
	s.RecordState()

	g.NodeIDs = append([]string(nil), g.NodeIDs...)
	for _, id := range g.NodeIDs {
		for gi := range s.flow.Groups {
			s.flow.Groups[gi].NodeIDs = s.flow.Groups[gi].Without(id)
		}
	}
	s.flow.Groups = append(s.flow.Groups, g)
	return nil
}

func (s *FlowStore) UpdateGroup(id string, patch domain.GroupPatch) error {
	i, err := s.groupIndex(id)
	if err != nil {
		return err
	}
	s.RecordState()
	patch.Apply(&s.flow.Groups[i])
	return nil
}

// DeleteGroup dissolves the group. Member nodes are kept.
func (s *FlowStore) DeleteGroup(id string) error {
	i, err := s.groupIndex(id)
	if err != nil {
		return err
	}
	s.RecordState()
	s.flow.Groups = append(s.flow.Groups[:i], s.flow.Groups[i+1:]...)
	return nil
}

func (s *FlowStore) groupIndex(id string) (int, error) {
	if s.flow == nil {
		return -1, ErrNoFlow
	}
	i := s.flow.GroupIndex(id)
	if i < 0 {
		return -1, fmt.Errorf("group %s: %w", id, ErrGroupNotFound)
	}
	return i, nil
}
