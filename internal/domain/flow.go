package domain

// Flow is the diagram being edited: the aggregate root for nodes, edges and groups.
type Flow struct {
	Title   string  `json:"title"`
	Summary string  `json:"summary"`
	Nodes   []Node  `json:"nodes"`
	Edges   []Edge  `json:"edges"`
	Groups  []Group `json:"groups"`
}

// Clone returns a deep copy of f. Undo snapshots and history entries rely on
// the copy sharing no slices with the original.
func (f Flow) Clone() Flow {
	out := Flow{
		Title:   f.Title,
		Summary: f.Summary,
		Nodes:   make([]Node, len(f.Nodes)),
		Edges:   make([]Edge, len(f.Edges)),
		Groups:  make([]Group, len(f.Groups)),
	}
	copy(out.Nodes, f.Nodes)
	copy(out.Edges, f.Edges)
	for i, g := range f.Groups {
		g.NodeIDs = append([]string(nil), g.NodeIDs...)
		if g.NodeIDs == nil {
			g.NodeIDs = []string{}
		}
		out.Groups[i] = g
	}
	return out
}

// NodeIndex returns the position of the node with id, or -1.
func (f Flow) NodeIndex(id string) int {
	for i := range f.Nodes {
		if f.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// EdgeIndex returns the position of the edge with id, or -1.
func (f Flow) EdgeIndex(id string) int {
	for i := range f.Edges {
		if f.Edges[i].ID == id {
			return i
		}
	}
	return -1
}

// GroupIndex returns the position of the group with id, or -1.
func (f Flow) GroupIndex(id string) int {
	for i := range f.Groups {
		if f.Groups[i].ID == id {
			return i
		}
	}
	return -1
}

// Node returns the node with id.
func (f Flow) Node(id string) (Node, bool) {
	if i := f.NodeIndex(id); i >= 0 {
		return f.Nodes[i], true
	}
	return Node{}, false
}

// GroupOf returns the first group listing nodeID as a member. The pointer
// aliases f.Groups.
func (f Flow) GroupOf(nodeID string) (*Group, bool) {
	for i := range f.Groups {
		if f.Groups[i].Has(nodeID) {
			return &f.Groups[i], true
		}
	}
	return nil, false
}

// ── Geometry ───────────────────────────────────────────────

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Bounds is an axis-aligned box in canvas coordinates.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

func (b Bounds) Width() float64  { return b.MaxX - b.MinX }
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Center returns the midpoint of the box.
func (b Bounds) Center() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}
