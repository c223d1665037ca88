package domain

// NodeStyle is the visual descriptor the frontend applies to a node category.
type NodeStyle struct {
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Border     string `json:"border"`
	Icon       string `json:"icon"`
}

// nodeStyles is indexed like NodeTypes.
var nodeStyles = [...]NodeStyle{
	{Accent: "#818cf8", Background: "rgba(99,102,241,0.12)", Border: "#6366f1", Icon: "lightbulb"},
	{Accent: "#34d399", Background: "rgba(16,185,129,0.12)", Border: "#10b981", Icon: "bolt"},
	{Accent: "#fbbf24", Background: "rgba(245,158,11,0.12)", Border: "#f59e0b", Icon: "flag"},
	{Accent: "#fb7185", Background: "rgba(244,63,94,0.12)", Border: "#f43f5e", Icon: "alert"},
	{Accent: "#a78bfa", Background: "rgba(139,92,246,0.12)", Border: "#8b5cf6", Icon: "check"},
}

// Both arrays must have the same length: a new NodeType without a style
// (or a stray style) fails to compile here.
var (
	_ [len(nodeStyles) - len(NodeTypes)]struct{}
	_ [len(NodeTypes) - len(nodeStyles)]struct{}
)

// StyleFor returns the style of t. ok is false only for values outside the enum.
func StyleFor(t NodeType) (style NodeStyle, ok bool) {
	i := t.index()
	if i < 0 {
		return NodeStyle{}, false
	}
	return nodeStyles[i], true
}
