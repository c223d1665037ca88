package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralflow/internal/domain"
)

func sampleFlow() domain.Flow {
	return domain.Flow{
		Title:   "Pipeline",
		Summary: "three stages",
		Nodes: []domain.Node{
			{ID: "a", Label: "Ingest", Type: domain.NodeTypeAction, X: 10, Y: 20},
			{ID: "b", Label: "Clean", Type: domain.NodeTypeAction, X: 30, Y: 40},
		},
		Edges:  []domain.Edge{{ID: "e1", From: "a", To: "b"}},
		Groups: []domain.Group{{ID: "g1", Label: "Stage", NodeIDs: []string{"a", "b"}, Color: "#6366f1"}},
	}
}

func TestFlowClone_SharesNothing(t *testing.T) {
	orig := sampleFlow()
	cp := orig.Clone()
	require.Equal(t, orig, cp)

	cp.Nodes[0].X = 999
	cp.Edges[0].Label = "changed"
	cp.Groups[0].NodeIDs[0] = "z"
	cp.Groups[0].IsCollapsed = true

	assert.Equal(t, 10.0, orig.Nodes[0].X)
	assert.Empty(t, orig.Edges[0].Label)
	assert.Equal(t, "a", orig.Groups[0].NodeIDs[0])
	assert.False(t, orig.Groups[0].IsCollapsed)
}

func TestFlowClone_EmptyCollectionsStayNonNil(t *testing.T) {
	cp := domain.Flow{Title: "x"}.Clone()
	assert.NotNil(t, cp.Nodes)
	assert.NotNil(t, cp.Edges)
	assert.NotNil(t, cp.Groups)
}

func TestFlowLookups(t *testing.T) {
	f := sampleFlow()
	assert.Equal(t, 1, f.NodeIndex("b"))
	assert.Equal(t, -1, f.NodeIndex("nope"))
	assert.Equal(t, 0, f.EdgeIndex("e1"))
	assert.Equal(t, 0, f.GroupIndex("g1"))

	g, ok := f.GroupOf("b")
	require.True(t, ok)
	assert.Equal(t, "g1", g.ID)

	_, ok = f.GroupOf("zzz")
	assert.False(t, ok)
}

func TestFlowLookups_OnReturnedValue(t *testing.T) {
	n, ok := sampleFlow().Node("b")
	require.True(t, ok)
	assert.Equal(t, "b", n.ID)
	assert.Equal(t, 0, sampleFlow().GroupIndex("g1"))

	f := sampleFlow()
	g, ok := f.GroupOf("b")
	require.True(t, ok)
	g.Label = "renamed"
	assert.Equal(t, "renamed", f.Groups[0].Label, "GroupOf aliases the flow's groups")
}

func TestNodeTypeValid(t *testing.T) {
	for _, nt := range domain.NodeTypes {
		assert.True(t, nt.Valid(), nt)
	}
	assert.False(t, domain.NodeType("concept").Valid())
	assert.False(t, domain.NodeType("").Valid())
}

func TestStyleFor_EveryTypeHasDistinctStyle(t *testing.T) {
	seen := map[string]domain.NodeType{}
	for _, nt := range domain.NodeTypes {
		style, ok := domain.StyleFor(nt)
		require.True(t, ok, nt)
		assert.NotEmpty(t, style.Accent)
		assert.NotEmpty(t, style.Icon)
		if prev, dup := seen[style.Border]; dup {
			t.Errorf("%s and %s share border %s", prev, nt, style.Border)
		}
		seen[style.Border] = nt
	}

	_, ok := domain.StyleFor("MYSTERY")
	assert.False(t, ok)
}

func TestGroupColorCycles(t *testing.T) {
	assert.Equal(t, "#6366f1", domain.GroupColor(0))
	assert.Equal(t, "#64748b", domain.GroupColor(5))
	assert.Equal(t, "#6366f1", domain.GroupColor(6))
	assert.Equal(t, "#10b981", domain.GroupColor(7))
}

func TestPatchesApplyOnlySetFields(t *testing.T) {
	n := domain.Node{ID: "a", Label: "old", Description: "keep", Type: domain.NodeTypeConcept, X: 1, Y: 2}
	label := "new"
	x := 40.0
	domain.NodePatch{Label: &label, X: &x}.Apply(&n)
	assert.Equal(t, domain.Node{ID: "a", Label: "new", Description: "keep", Type: domain.NodeTypeConcept, X: 40, Y: 2}, n)

	g := domain.Group{ID: "g", Label: "L", Color: "#fff"}
	collapsed := true
	domain.GroupPatch{IsCollapsed: &collapsed}.Apply(&g)
	assert.True(t, g.IsCollapsed)
	assert.Equal(t, "L", g.Label)
}
