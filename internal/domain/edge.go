package domain

// DefaultEdgeLabel is given to edges drawn by hand on the canvas.
const DefaultEdgeLabel = "New Connection"

type Edge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Touches reports whether nodeID is either endpoint of the edge.
func (e Edge) Touches(nodeID string) bool {
	return e.From == nodeID || e.To == nodeID
}

type EdgePatch struct {
	Label *string `json:"label,omitempty"`
}

func (p EdgePatch) Apply(e *Edge) {
	if p.Label != nil {
		e.Label = *p.Label
	}
}
