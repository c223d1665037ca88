package app

import (
	"neuralflow/internal/storage"
)

// ============================================================
// MCP approvals
// ============================================================

// PendingApprovals lists destructive MCP actions waiting for the user.
func (a *App) PendingApprovals() ([]storage.ApprovalRow, error) {
	rows, err := a.core.Approvals.Pending()
	if rows == nil {
		rows = []storage.ApprovalRow{}
	}
	return rows, err
}

func (a *App) ApproveAction(id string) error {
	return a.resolveAction(id, true)
}

func (a *App) RejectAction(id string) error {
	return a.resolveAction(id, false)
}

func (a *App) resolveAction(id string, approved bool) error {
	if err := a.core.Approvals.Resolve(id, approved); err != nil {
		return err
	}
	if a.watcher != nil {
		a.watcher.forget(id)
	}
	return nil
}
