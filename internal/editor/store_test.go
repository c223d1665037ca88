package editor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralflow/internal/domain"
	"neuralflow/internal/editor"
)

// ─────────────────────────────────────────────────────────────
// FlowStore tests
// ─────────────────────────────────────────────────────────────

func threeNodeFlow() domain.Flow {
	return domain.Flow{
		Title:   "Pipeline",
		Summary: "ingest to report",
		Nodes: []domain.Node{
			{ID: "n1", Label: "Ingest", Type: domain.NodeTypeAction, X: 650, Y: 350},
			{ID: "n2", Label: "Clean", Type: domain.NodeTypeAction, X: 275, Y: 566.5},
			{ID: "n3", Label: "Report", Type: domain.NodeTypeOutcome, X: 275, Y: 133.5},
		},
		Edges: []domain.Edge{
			{ID: "e1", From: "n1", To: "n2"},
			{ID: "e2", From: "n2", To: "n3", Label: "feeds"},
		},
		Groups: []domain.Group{},
	}
}

func loadedStore(t *testing.T) *editor.FlowStore {
	t.Helper()
	s := editor.NewFlowStore(0)
	s.Replace(threeNodeFlow())
	return s
}

func mustFlow(t *testing.T, s *editor.FlowStore) domain.Flow {
	t.Helper()
	f, ok := s.Flow()
	require.True(t, ok, "expected a loaded flow")
	return f
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestFlowStore_UndoRedoRoundTrip(t *testing.T) {
	concept := domain.NodeTypeConcept
	tests := []struct {
		name   string
		mutate func(s *editor.FlowStore) error
	}{
		{"add node", func(s *editor.FlowStore) error {
			return s.AddNode(domain.Node{ID: "n4", Label: "New", Type: domain.NodeTypeConcept})
		}},
		{"update node", func(s *editor.FlowStore) error {
			return s.UpdateNode("n1", domain.NodePatch{Label: strPtr("Load"), Type: &concept})
		}},
		{"delete node", func(s *editor.FlowStore) error { return s.DeleteNode("n2") }},
		{"add edge", func(s *editor.FlowStore) error {
			return s.AddEdge(domain.Edge{ID: "e3", From: "n3", To: "n1"})
		}},
		{"update edge", func(s *editor.FlowStore) error {
			return s.UpdateEdge("e1", domain.EdgePatch{Label: strPtr("next")})
		}},
		{"delete edge", func(s *editor.FlowStore) error { return s.DeleteEdge("e2") }},
		{"add group", func(s *editor.FlowStore) error {
			return s.AddGroup(domain.Group{ID: "g1", Label: "G", NodeIDs: []string{"n1", "n2"}})
		}},
		{"update group", func(s *editor.FlowStore) error {
			if err := s.AddGroup(domain.Group{ID: "g1", NodeIDs: []string{"n1", "n2"}}); err != nil {
				return err
			}
			return s.UpdateGroup("g1", domain.GroupPatch{IsCollapsed: boolPtr(true), Label: strPtr("Core")})
		}},
		{"delete group", func(s *editor.FlowStore) error {
			if err := s.AddGroup(domain.Group{ID: "g1", NodeIDs: []string{"n1", "n2"}}); err != nil {
				return err
			}
			return s.DeleteGroup("g1")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loadedStore(t)
			require.NoError(t, tt.mutate(s))
			before := mustFlow(t, s)
			depth := s.UndoDepth()

			require.True(t, s.Undo())
			assert.NotEqual(t, before, mustFlow(t, s))
			require.True(t, s.Redo())

			assert.Equal(t, before, mustFlow(t, s))
			assert.Equal(t, depth, s.UndoDepth())
			assert.Zero(t, s.RedoDepth())
		})
	}
}

func TestFlowStore_UndoRestoresPreMutationState(t *testing.T) {
	s := loadedStore(t)
	orig := mustFlow(t, s)

	require.NoError(t, s.DeleteNode("n1"))
	require.True(t, s.Undo())
	assert.Equal(t, orig, mustFlow(t, s))
}

func TestFlowStore_MutationClearsRedo(t *testing.T) {
	s := loadedStore(t)
	require.NoError(t, s.DeleteEdge("e1"))
	require.True(t, s.Undo())
	require.True(t, s.CanRedo())

	require.NoError(t, s.UpdateNode("n3", domain.NodePatch{Label: strPtr("Summary")}))
	assert.False(t, s.CanRedo())
	assert.False(t, s.Redo())
}

func TestFlowStore_DeleteNodeCascades(t *testing.T) {
	s := loadedStore(t)
	require.NoError(t, s.AddGroup(domain.Group{ID: "g1", NodeIDs: []string{"n2"}}))
	require.NoError(t, s.AddGroup(domain.Group{ID: "g2", NodeIDs: []string{"n1", "n3"}}))
	depth := s.UndoDepth()

	require.NoError(t, s.DeleteNode("n2"))
	f := mustFlow(t, s)

	assert.Equal(t, depth+1, s.UndoDepth(), "cascade is one transition")
	assert.Equal(t, -1, f.NodeIndex("n2"))
	assert.Empty(t, f.Edges, "both edges touched n2")
	require.Len(t, f.Groups, 2, "emptied groups are not dissolved")
	assert.Empty(t, f.Groups[0].NodeIDs)
	assert.Equal(t, []string{"n1", "n3"}, f.Groups[1].NodeIDs)
}

func TestFlowStore_MoveNodeDoesNotSnapshot(t *testing.T) {
	s := loadedStore(t)
	require.NoError(t, s.MoveNode("n1", 10, 20))
	assert.Zero(t, s.UndoDepth())

	n, ok := mustFlow(t, s).Node("n1")
	require.True(t, ok)
	assert.Equal(t, domain.Point{X: 10, Y: 20}, n.Position())
}

func TestFlowStore_RejectedMutationsLeaveStacksAlone(t *testing.T) {
	s := loadedStore(t)
	bad := domain.NodeType("WIDGET")

	assert.ErrorIs(t, s.AddNode(domain.Node{ID: "n1", Type: domain.NodeTypeConcept}), editor.ErrDuplicateID)
	assert.ErrorIs(t, s.AddNode(domain.Node{ID: "x", Type: bad}), editor.ErrInvalidNodeType)
	assert.ErrorIs(t, s.AddNode(domain.Node{Type: domain.NodeTypeConcept}), editor.ErrEmptyID)
	assert.ErrorIs(t, s.UpdateNode("n1", domain.NodePatch{Type: &bad}), editor.ErrInvalidNodeType)
	assert.ErrorIs(t, s.UpdateNode("zz", domain.NodePatch{}), editor.ErrNodeNotFound)
	assert.ErrorIs(t, s.AddEdge(domain.Edge{ID: "e9", From: "n1", To: "n1"}), editor.ErrSelfLoop)
	assert.ErrorIs(t, s.AddEdge(domain.Edge{ID: "e9", From: "n1", To: "zz"}), editor.ErrNodeNotFound)
	assert.ErrorIs(t, s.DeleteEdge("zz"), editor.ErrEdgeNotFound)
	assert.ErrorIs(t, s.DeleteGroup("zz"), editor.ErrGroupNotFound)
	assert.ErrorIs(t, s.AddGroup(domain.Group{ID: "g", NodeIDs: []string{"n1", "zz"}}), editor.ErrNodeNotFound)

	assert.Zero(t, s.UndoDepth())
	assert.Equal(t, threeNodeFlow(), mustFlow(t, s))
}

func TestFlowStore_ParallelEdgesAllowed(t *testing.T) {
	s := loadedStore(t)
	require.NoError(t, s.AddEdge(domain.Edge{ID: "dup", From: "n1", To: "n2"}))
	assert.Len(t, mustFlow(t, s).Edges, 3)
}

func TestFlowStore_AddGroupMovesMembers(t *testing.T) {
	s := loadedStore(t)
	require.NoError(t, s.AddGroup(domain.Group{ID: "g1", NodeIDs: []string{"n1", "n2"}}))
	require.NoError(t, s.AddGroup(domain.Group{ID: "g2", NodeIDs: []string{"n2", "n3"}}))

	f := mustFlow(t, s)
	assert.Equal(t, []string{"n1"}, f.Groups[0].NodeIDs)
	assert.Equal(t, []string{"n2", "n3"}, f.Groups[1].NodeIDs)

	// one undo restores g1's membership together with removing g2
	require.True(t, s.Undo())
	f = mustFlow(t, s)
	require.Len(t, f.Groups, 1)
	assert.Equal(t, []string{"n1", "n2"}, f.Groups[0].NodeIDs)
}

func TestFlowStore_NoFlow(t *testing.T) {
	s := editor.NewFlowStore(0)
	assert.False(t, s.Loaded())
	assert.False(t, s.Undo())
	assert.False(t, s.Redo())
	s.RecordState()
	assert.Zero(t, s.UndoDepth())
	assert.ErrorIs(t, s.AddNode(domain.Node{ID: "a", Type: domain.NodeTypeConcept}), editor.ErrNoFlow)
	assert.ErrorIs(t, s.MoveNode("a", 1, 1), editor.ErrNoFlow)
}

func TestFlowStore_EmptyStacksAreNoOps(t *testing.T) {
	s := loadedStore(t)
	assert.False(t, s.Undo())
	assert.False(t, s.Redo())
	assert.Equal(t, threeNodeFlow(), mustFlow(t, s))
}

func TestFlowStore_UndoLimitDropsOldest(t *testing.T) {
	s := editor.NewFlowStore(3)
	s.Replace(threeNodeFlow())
	for _, label := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, s.UpdateNode("n1", domain.NodePatch{Label: strPtr(label)}))
	}
	assert.Equal(t, 3, s.UndoDepth())

	for s.Undo() {
	}
	n, _ := mustFlow(t, s).Node("n1")
	assert.Equal(t, "b", n.Label, "oldest reachable state is three edits back")
}

func TestFlowStore_FlowReturnsCopy(t *testing.T) {
	s := loadedStore(t)
	f := mustFlow(t, s)
	f.Nodes[0].Label = "mutated outside"
	n, _ := mustFlow(t, s).Node("n1")
	assert.Equal(t, "Ingest", n.Label)
}
