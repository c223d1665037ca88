package editor

// SelectionState is the serialisable view of a Selection.
type SelectionState struct {
	NodeID  string   `json:"nodeId,omitempty"`
	NodeIDs []string `json:"nodeIds"`
	EdgeID  string   `json:"edgeId,omitempty"`
	GroupID string   `json:"groupId,omitempty"`
}

// Selection tracks what the user has selected. At most one category is
// active at a time: a single node, a set of multi-selected nodes, an edge,
// or a group.
type Selection struct {
	nodeID  string
	multi   []string
	edgeID  string
	groupID string
}

func NewSelection() *Selection {
	return &Selection{}
}

// SelectNode makes id the single selected node. An empty id clears everything.
func (s *Selection) SelectNode(id string) {
	s.Clear()
	s.nodeID = id
}

// ToggleMulti adds id to the multi-selection, or removes it if present.
// Any single-node, edge or group selection is dropped.
func (s *Selection) ToggleMulti(id string) {
	if id == "" {
		return
	}
	s.nodeID = ""
	s.edgeID = ""
	s.groupID = ""
	for i, m := range s.multi {
		if m == id {
			s.multi = append(s.multi[:i], s.multi[i+1:]...)
			return
		}
	}
	s.multi = append(s.multi, id)
}

func (s *Selection) SelectEdge(id string) {
	s.Clear()
	s.edgeID = id
}

func (s *Selection) SelectGroup(id string) {
	s.Clear()
	s.groupID = id
}

// Clear empties all four categories.
func (s *Selection) Clear() {
	s.nodeID = ""
	s.multi = nil
	s.edgeID = ""
	s.groupID = ""
}

func (s *Selection) NodeID() string  { return s.nodeID }
func (s *Selection) EdgeID() string  { return s.edgeID }
func (s *Selection) GroupID() string { return s.groupID }

// MultiIDs returns the multi-selected node ids in insertion order.
func (s *Selection) MultiIDs() []string {
	return append([]string(nil), s.multi...)
}

// Empty reports whether nothing is selected.
func (s *Selection) Empty() bool {
	return s.nodeID == "" && len(s.multi) == 0 && s.edgeID == "" && s.groupID == ""
}

// IsNodeSelected reports whether id is the single node or part of the multi-selection.
func (s *Selection) IsNodeSelected(id string) bool {
	if s.nodeID == id && id != "" {
		return true
	}
	for _, m := range s.multi {
		if m == id {
			return true
		}
	}
	return false
}

// forget drops id from whichever category references it.
func (s *Selection) forget(id string) {
	if s.nodeID == id {
		s.nodeID = ""
	}
	if s.edgeID == id {
		s.edgeID = ""
	}
	if s.groupID == id {
		s.groupID = ""
	}
	for i, m := range s.multi {
		if m == id {
			s.multi = append(s.multi[:i], s.multi[i+1:]...)
			break
		}
	}
}

func (s *Selection) State() SelectionState {
	ids := s.MultiIDs()
	if ids == nil {
		ids = []string{}
	}
	return SelectionState{
		NodeID:  s.nodeID,
		NodeIDs: ids,
		EdgeID:  s.edgeID,
		GroupID: s.groupID,
	}
}
