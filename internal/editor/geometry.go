package editor

import (
	"math"

	"neuralflow/internal/domain"
)

const (
	// DefaultGridSize matches the canvas background grid.
	DefaultGridSize = 20.0

	// Padding added around each member node when boxing a group.
	GroupPadX = 110.0
	GroupPadY = 80.0
)

// Snap rounds v to the nearest multiple of grid.
func Snap(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	return math.Round(v/grid) * grid
}

// SnapPoint snaps both axes independently.
func SnapPoint(p domain.Point, grid float64) domain.Point {
	return domain.Point{X: Snap(p.X, grid), Y: Snap(p.Y, grid)}
}

// GroupBounds boxes the current positions of g's members. ok is false when
// none of the listed members exist.
func GroupBounds(f *domain.Flow, g domain.Group) (b domain.Bounds, ok bool) {
	for _, id := range g.NodeIDs {
		n, found := f.Node(id)
		if !found {
			continue
		}
		nb := domain.Bounds{
			MinX: n.X - GroupPadX,
			MinY: n.Y - GroupPadY,
			MaxX: n.X + GroupPadX,
			MaxY: n.Y + GroupPadY,
		}
		if !ok {
			b, ok = nb, true
			continue
		}
		b.MinX = math.Min(b.MinX, nb.MinX)
		b.MinY = math.Min(b.MinY, nb.MinY)
		b.MaxX = math.Max(b.MaxX, nb.MaxX)
		b.MaxY = math.Max(b.MaxY, nb.MaxY)
	}
	return b, ok
}

// ── Scene ──────────────────────────────────────────────────
// Everything below is derived from the flow on each call; nothing is cached.

type StyledNode struct {
	Node  domain.Node      `json:"node"`
	Style domain.NodeStyle `json:"style"`
}

type RoutedEdge struct {
	Edge domain.Edge  `json:"edge"`
	From domain.Point `json:"from"`
	To   domain.Point `json:"to"`
}

type GroupBox struct {
	Group     domain.Group  `json:"group"`
	Bounds    domain.Bounds `json:"bounds"`
	HasBounds bool          `json:"hasBounds"`
}

// Scene is what the canvas draws.
type Scene struct {
	Nodes  []StyledNode `json:"nodes"`
	Edges  []RoutedEdge `json:"edges"`
	Groups []GroupBox   `json:"groups"`
}

// BuildScene derives the drawable view of f.
func BuildScene(f *domain.Flow) Scene {
	scene := Scene{
		Nodes:  []StyledNode{},
		Edges:  []RoutedEdge{},
		Groups: []GroupBox{},
	}
	if f == nil {
		return scene
	}

	bounds := make(map[string]domain.Bounds, len(f.Groups))
	for _, g := range f.Groups {
		b, ok := GroupBounds(f, g)
		if ok {
			bounds[g.ID] = b
		}
		scene.Groups = append(scene.Groups, GroupBox{Group: g, Bounds: b, HasBounds: ok})
	}

	for _, n := range VisibleNodes(f) {
		style, _ := domain.StyleFor(n.Type)
		scene.Nodes = append(scene.Nodes, StyledNode{Node: n, Style: style})
	}
	scene.Edges = routeEdges(f, bounds)
	return scene
}

// VisibleNodes returns the nodes drawn individually: those not inside a
// collapsed group.
func VisibleNodes(f *domain.Flow) []domain.Node {
	out := make([]domain.Node, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		if g, ok := f.GroupOf(n.ID); ok && g.IsCollapsed {
			continue
		}
		out = append(out, n)
	}
	return out
}

// VisibleEdges routes every drawable edge of f.
func VisibleEdges(f *domain.Flow) []RoutedEdge {
	bounds := make(map[string]domain.Bounds, len(f.Groups))
	for _, g := range f.Groups {
		if b, ok := GroupBounds(f, g); ok {
			bounds[g.ID] = b
		}
	}
	return routeEdges(f, bounds)
}

func routeEdges(f *domain.Flow, bounds map[string]domain.Bounds) []RoutedEdge {
	out := make([]RoutedEdge, 0, len(f.Edges))
	for _, e := range f.Edges {
		from, fromGroup, ok := endpoint(f, bounds, e.From)
		if !ok {
			continue
		}
		to, toGroup, ok := endpoint(f, bounds, e.To)
		if !ok {
			continue
		}
		// both ends folded into the same collapsed group
		if fromGroup != "" && fromGroup == toGroup {
			continue
		}
		out = append(out, RoutedEdge{Edge: e, From: from, To: to})
	}
	return out
}

// endpoint resolves where an edge attaches to nodeID. collapsedIn is the id
// of the collapsed group the node is hidden in, if any.
func endpoint(f *domain.Flow, bounds map[string]domain.Bounds, nodeID string) (p domain.Point, collapsedIn string, ok bool) {
	n, found := f.Node(nodeID)
	if !found {
		return domain.Point{}, "", false
	}
	if g, in := f.GroupOf(nodeID); in && g.IsCollapsed {
		if b, has := bounds[g.ID]; has {
			return b.Center(), g.ID, true
		}
	}
	return n.Position(), "", true
}
