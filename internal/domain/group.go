package domain

// DefaultGroupLabel is given to groups created from a multi-selection.
const DefaultGroupLabel = "New Cluster"

// GroupColors is the palette cycled through as groups are created.
var GroupColors = [...]string{
	"#6366f1",
	"#10b981",
	"#f59e0b",
	"#f43f5e",
	"#8b5cf6",
	"#64748b",
}

// GroupColor returns the palette entry for the n-th group.
func GroupColor(n int) string {
	if n < 0 {
		n = 0
	}
	return GroupColors[n%len(GroupColors)]
}

type Group struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	NodeIDs     []string `json:"nodeIds"`
	IsCollapsed bool     `json:"isCollapsed"`
	Color       string   `json:"color"`
}

// Has reports whether nodeID is a member of the group.
func (g Group) Has(nodeID string) bool {
	for _, id := range g.NodeIDs {
		if id == nodeID {
			return true
		}
	}
	return false
}

// Without returns the member list minus nodeID.
func (g Group) Without(nodeID string) []string {
	out := make([]string, 0, len(g.NodeIDs))
	for _, id := range g.NodeIDs {
		if id != nodeID {
			out = append(out, id)
		}
	}
	return out
}

type GroupPatch struct {
	Label       *string `json:"label,omitempty"`
	Color       *string `json:"color,omitempty"`
	IsCollapsed *bool   `json:"isCollapsed,omitempty"`
}

func (p GroupPatch) Apply(g *Group) {
	if p.Label != nil {
		g.Label = *p.Label
	}
	if p.Color != nil {
		g.Color = *p.Color
	}
	if p.IsCollapsed != nil {
		g.IsCollapsed = *p.IsCollapsed
	}
}
