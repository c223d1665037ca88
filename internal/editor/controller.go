package editor

import (
	"github.com/google/uuid"

	"neuralflow/internal/domain"
)

// Mode is the pointer interaction currently in progress.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDragging
	ModeConnecting
)

func (m Mode) String() string {
	switch m {
	case ModeDragging:
		return "dragging"
	case ModeConnecting:
		return "connecting"
	default:
		return "idle"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

type dragState struct {
	nodeID       string
	nodeStart    domain.Point
	pointerStart domain.Point
}

type connectState struct {
	sourceID string
	pointer  domain.Point
}

// ConnectionPreview is the rubber-band line drawn while connecting.
type ConnectionPreview struct {
	SourceID string       `json:"sourceId"`
	From     domain.Point `json:"from"`
	To       domain.Point `json:"to"`
}

// ─────────────────────────────────────────────────────────────
// Controller: pointer events to store mutations
// ─────────────────────────────────────────────────────────────

// Controller turns canvas pointer events into FlowStore mutations and
// Selection changes. Only one of Idle, Dragging or Connecting holds at a
// time; a pointer-down outside Idle is ignored.
//
// Methods returning bool report whether state visible to the canvas changed.
type Controller struct {
	store *FlowStore
	sel   *Selection
	grid  float64
	newID func() string

	mode Mode
	drag dragState
	conn connectState
}

type ControllerOption func(*Controller)

// WithGridSize overrides DefaultGridSize.
func WithGridSize(grid float64) ControllerOption {
	return func(c *Controller) {
		if grid > 0 {
			c.grid = grid
		}
	}
}

// WithIDGenerator replaces the uuid generator used for new edges and groups.
func WithIDGenerator(fn func() string) ControllerOption {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func NewController(store *FlowStore, sel *Selection, opts ...ControllerOption) *Controller {
	c := &Controller{
		store: store,
		sel:   sel,
		grid:  DefaultGridSize,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) Mode() Mode        { return c.mode }
func (c *Controller) GridSize() float64 { return c.grid }

// Reset abandons any gesture in progress. Called whenever the flow is
// replaced underneath the controller.
func (c *Controller) Reset() {
	c.mode = ModeIdle
	c.drag = dragState{}
	c.conn = connectState{}
}

// ── Pointer events ─────────────────────────────────────────

// PointerDownNode handles a press on a node body. With multi set the node
// is toggled in the multi-selection and no drag starts. Otherwise the node
// becomes the single selection, one undo entry is recorded for the whole
// gesture and the controller enters Dragging.
func (c *Controller) PointerDownNode(nodeID string, p domain.Point, multi bool) bool {
	if c.mode != ModeIdle {
		return false
	}
	f := c.store.view()
	if f == nil {
		return false
	}
	n, ok := f.Node(nodeID)
	if !ok {
		return false
	}
	if multi {
		c.sel.ToggleMulti(nodeID)
		return true
	}

	c.sel.SelectNode(nodeID)
	c.store.RecordState()
	c.mode = ModeDragging
	c.drag = dragState{
		nodeID:       nodeID,
		nodeStart:    n.Position(),
		pointerStart: p,
	}
	return true
}

// PointerDownHandle handles a press on a node's connection handle.
func (c *Controller) PointerDownHandle(nodeID string, p domain.Point) bool {
	if c.mode != ModeIdle {
		return false
	}
	f := c.store.view()
	if f == nil || f.NodeIndex(nodeID) < 0 {
		return false
	}
	c.mode = ModeConnecting
	c.conn = connectState{sourceID: nodeID, pointer: p}
	return true
}

// PointerMove moves the dragged node (snapped to the grid) or the
// connection preview end.
func (c *Controller) PointerMove(p domain.Point) bool {
	switch c.mode {
	case ModeDragging:
		delta := p.Sub(c.drag.pointerStart)
		pos := SnapPoint(c.drag.nodeStart.Add(delta), c.grid)
		if err := c.store.MoveNode(c.drag.nodeID, pos.X, pos.Y); err != nil {
			c.Reset()
			return false
		}
		return true
	case ModeConnecting:
		c.conn.pointer = p
		return true
	}
	return false
}

// PointerUp ends the current gesture. targetID is the node under the
// pointer, or empty. A connection to a different existing node creates an
// edge and selects it; anything else is discarded.
func (c *Controller) PointerUp(targetID string) bool {
	switch c.mode {
	case ModeDragging:
		c.Reset()
		return true
	case ModeConnecting:
		source := c.conn.sourceID
		c.Reset()
		if targetID == "" || targetID == source {
			return true
		}
		e := domain.Edge{
			ID:    c.newID(),
			From:  source,
			To:    targetID,
			Label: domain.DefaultEdgeLabel,
		}
		if err := c.store.AddEdge(e); err != nil {
			return true
		}
		c.sel.SelectEdge(e.ID)
		return true
	}
	return false
}

// PointerLeave is the pointer leaving the canvas: same as releasing over nothing.
func (c *Controller) PointerLeave() bool {
	if c.mode == ModeIdle {
		return false
	}
	c.Reset()
	return true
}

// Preview returns the live connection line while Connecting.
func (c *Controller) Preview() (ConnectionPreview, bool) {
	if c.mode != ModeConnecting {
		return ConnectionPreview{}, false
	}
	f := c.store.view()
	if f == nil {
		return ConnectionPreview{}, false
	}
	n, ok := f.Node(c.conn.sourceID)
	if !ok {
		return ConnectionPreview{}, false
	}
	return ConnectionPreview{SourceID: n.ID, From: n.Position(), To: c.conn.pointer}, true
}

// ── Clicks ─────────────────────────────────────────────────

// ClickCanvas clears the selection when no gesture is in progress.
func (c *Controller) ClickCanvas() bool {
	if c.mode != ModeIdle {
		return false
	}
	c.sel.Clear()
	return true
}

func (c *Controller) ClickEdge(edgeID string) bool {
	f := c.store.view()
	if c.mode != ModeIdle || f == nil || f.EdgeIndex(edgeID) < 0 {
		return false
	}
	c.sel.SelectEdge(edgeID)
	return true
}

func (c *Controller) ClickGroup(groupID string) bool {
	f := c.store.view()
	if c.mode != ModeIdle || f == nil || f.GroupIndex(groupID) < 0 {
		return false
	}
	c.sel.SelectGroup(groupID)
	return true
}

// ── Structural edits ───────────────────────────────────────

// CreateGroup clusters the multi-selected nodes. With fewer than two
// selected it does nothing and leaves the selection alone.
func (c *Controller) CreateGroup() (domain.Group, bool) {
	f := c.store.view()
	members := c.sel.MultiIDs()
	if f == nil || len(members) < 2 {
		return domain.Group{}, false
	}
	g := domain.Group{
		ID:      c.newID(),
		Label:   domain.DefaultGroupLabel,
		NodeIDs: members,
		Color:   domain.GroupColor(len(f.Groups)),
	}
	if err := c.store.AddGroup(g); err != nil {
		return domain.Group{}, false
	}
	c.sel.SelectGroup(g.ID)
	return g, true
}

// ToggleGroupCollapse flips a group between collapsed and expanded.
func (c *Controller) ToggleGroupCollapse(groupID string) error {
	f := c.store.view()
	if f == nil {
		return ErrNoFlow
	}
	i := f.GroupIndex(groupID)
	if i < 0 {
		return ErrGroupNotFound
	}
	collapsed := !f.Groups[i].IsCollapsed
	return c.store.UpdateGroup(groupID, domain.GroupPatch{IsCollapsed: &collapsed})
}

// DissolveGroup removes the group, keeping its nodes.
func (c *Controller) DissolveGroup(groupID string) error {
	if err := c.store.DeleteGroup(groupID); err != nil {
		return err
	}
	c.sel.forget(groupID)
	return nil
}

func (c *Controller) DeleteNode(nodeID string) error {
	if err := c.store.DeleteNode(nodeID); err != nil {
		return err
	}
	c.sel.forget(nodeID)
	return nil
}

func (c *Controller) DeleteEdge(edgeID string) error {
	if err := c.store.DeleteEdge(edgeID); err != nil {
		return err
	}
	c.sel.forget(edgeID)
	return nil
}

// DeleteSelection removes whatever single item is selected: a node, an
// edge, or a group (dissolved). A multi-selection is left alone.
func (c *Controller) DeleteSelection() bool {
	switch {
	case c.sel.NodeID() != "":
		return c.DeleteNode(c.sel.NodeID()) == nil
	case c.sel.EdgeID() != "":
		return c.DeleteEdge(c.sel.EdgeID()) == nil
	case c.sel.GroupID() != "":
		return c.DissolveGroup(c.sel.GroupID()) == nil
	}
	return false
}
