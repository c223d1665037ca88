package app

import (
	"neuralflow/internal/domain"
	"neuralflow/internal/service"
)

// ============================================================
// Canvas state
// ============================================================

// GetFlowState returns everything the canvas renders from.
func (a *App) GetFlowState() service.FlowState {
	return a.core.Flows.State()
}

// Generate replaces the canvas with a flow for prompt. Blocks until the
// model answers; the frontend shows progress from flow:generation-started.
func (a *App) Generate(prompt string) (service.FlowState, error) {
	if _, err := a.core.Flows.Generate(a.ctx, prompt); err != nil {
		return service.FlowState{}, err
	}
	return a.core.Flows.State(), nil
}

// ============================================================
// History
// ============================================================

func (a *App) ListHistory() ([]domain.HistoryEntry, error) {
	return a.core.Flows.ListHistory()
}

func (a *App) SearchHistory(query string) ([]domain.HistoryEntry, error) {
	return a.core.Flows.SearchHistory(query)
}

func (a *App) LoadHistory(entryID string) (service.FlowState, error) {
	return a.core.Flows.LoadHistory(a.ctx, entryID)
}

// ============================================================
// Pointer and click events
// ============================================================

func (a *App) PointerDownNode(nodeID string, x, y float64, multi bool) service.FlowState {
	return a.core.Flows.PointerDownNode(a.ctx, nodeID, x, y, multi)
}

func (a *App) PointerDownHandle(nodeID string, x, y float64) service.FlowState {
	return a.core.Flows.PointerDownHandle(a.ctx, nodeID, x, y)
}

func (a *App) PointerMove(x, y float64) service.FlowState {
	return a.core.Flows.PointerMove(a.ctx, x, y)
}

// PointerUp ends a gesture. targetID is the node under the pointer, or ""
// for empty canvas.
func (a *App) PointerUp(targetID string) service.FlowState {
	return a.core.Flows.PointerUp(a.ctx, targetID)
}

func (a *App) PointerLeave() service.FlowState {
	return a.core.Flows.PointerLeave(a.ctx)
}

func (a *App) ClickCanvas() service.FlowState {
	return a.core.Flows.ClickCanvas(a.ctx)
}

func (a *App) ClickEdge(edgeID string) service.FlowState {
	return a.core.Flows.ClickEdge(a.ctx, edgeID)
}

func (a *App) ClickGroup(groupID string) service.FlowState {
	return a.core.Flows.ClickGroup(a.ctx, groupID)
}

func (a *App) SelectNode(nodeID string) service.FlowState {
	return a.core.Flows.SelectNode(a.ctx, nodeID)
}

// ============================================================
// Nodes and edges
// ============================================================

func (a *App) AddNode(in service.NodeInput) (domain.Node, error) {
	return a.core.Flows.AddNode(a.ctx, in)
}

func (a *App) UpdateNode(nodeID string, patch domain.NodePatch) (domain.Node, error) {
	return a.core.Flows.UpdateNode(a.ctx, nodeID, patch)
}

func (a *App) DeleteNode(nodeID string) error {
	return a.core.Flows.DeleteNode(a.ctx, nodeID)
}

func (a *App) UpdateEdge(edgeID string, patch domain.EdgePatch) error {
	return a.core.Flows.UpdateEdge(a.ctx, edgeID, patch)
}

func (a *App) DeleteEdge(edgeID string) error {
	return a.core.Flows.DeleteEdge(a.ctx, edgeID)
}

// DeleteSelection removes whatever is selected (Delete/Backspace).
func (a *App) DeleteSelection() service.FlowState {
	return a.core.Flows.DeleteSelection(a.ctx)
}

// ============================================================
// Groups
// ============================================================

// CreateGroup groups the multi-selected nodes. Fewer than two selected is
// a no-op and returns nil.
func (a *App) CreateGroup() *domain.Group {
	g, ok := a.core.Flows.CreateGroup(a.ctx)
	if !ok {
		return nil
	}
	return &g
}

func (a *App) UpdateGroup(groupID string, patch domain.GroupPatch) error {
	return a.core.Flows.UpdateGroup(a.ctx, groupID, patch)
}

func (a *App) ToggleGroup(groupID string) error {
	return a.core.Flows.ToggleGroup(a.ctx, groupID)
}

func (a *App) DissolveGroup(groupID string) error {
	return a.core.Flows.DissolveGroup(a.ctx, groupID)
}

// ============================================================
// Undo / Redo
// ============================================================

func (a *App) Undo() service.FlowState {
	st, _ := a.core.Flows.Undo(a.ctx)
	return st
}

func (a *App) Redo() service.FlowState {
	st, _ := a.core.Flows.Redo(a.ctx)
	return st
}
