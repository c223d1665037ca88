package domain

type NodeType string

const (
	NodeTypeConcept  NodeType = "CONCEPT"
	NodeTypeAction   NodeType = "ACTION"
	NodeTypeOutcome  NodeType = "OUTCOME"
	NodeTypeProblem  NodeType = "PROBLEM"
	NodeTypeSolution NodeType = "SOLUTION"
)

// NodeTypes lists every node category in display order.
// nodeStyles is indexed in the same order.
var NodeTypes = [...]NodeType{
	NodeTypeConcept,
	NodeTypeAction,
	NodeTypeOutcome,
	NodeTypeProblem,
	NodeTypeSolution,
}

// Valid reports whether t is one of the closed set of node categories.
func (t NodeType) Valid() bool {
	return t.index() >= 0
}

func (t NodeType) index() int {
	for i, nt := range NodeTypes {
		if nt == t {
			return i
		}
	}
	return -1
}

type Node struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Type        NodeType `json:"type"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
}

// Position returns the node's canvas coordinates.
func (n Node) Position() Point {
	return Point{X: n.X, Y: n.Y}
}

// NodePatch carries a partial node update. Nil fields are left untouched.
type NodePatch struct {
	Label       *string   `json:"label,omitempty"`
	Description *string   `json:"description,omitempty"`
	Type        *NodeType `json:"type,omitempty"`
	X           *float64  `json:"x,omitempty"`
	Y           *float64  `json:"y,omitempty"`
}

// Apply writes the non-nil fields of p onto n.
func (p NodePatch) Apply(n *Node) {
	if p.Label != nil {
		n.Label = *p.Label
	}
	if p.Description != nil {
		n.Description = *p.Description
	}
	if p.Type != nil {
		n.Type = *p.Type
	}
	if p.X != nil {
		n.X = *p.X
	}
	if p.Y != nil {
		n.Y = *p.Y
	}
}
