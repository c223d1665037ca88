package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// Approval statuses stored in mcp_approvals.status.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// ApprovalRow is one row of mcp_approvals.
type ApprovalRow struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Metadata    string `json:"metadata"`
	CreatedAt   string `json:"createdAt"`
}

// ApprovalStore is the cross-process handoff between a standalone MCP
// server (which inserts and polls) and the desktop app (which resolves).
type ApprovalStore struct {
	db *DB
}

func NewApprovalStore(db *DB) *ApprovalStore {
	return &ApprovalStore{db: db}
}

func (s *ApprovalStore) Insert(id, tool, description, metadata string) error {
	if metadata == "" {
		metadata = "{}"
	}
	_, err := s.db.Conn().Exec(
		`INSERT INTO mcp_approvals (id, tool, description, status, metadata) VALUES (?, ?, ?, 'pending', ?)`,
		id, tool, description, metadata,
	)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

// Status returns the current status of id, or ErrNotFound.
func (s *ApprovalStore) Status(id string) (string, error) {
	var status string
	err := s.db.Conn().QueryRow(`SELECT status FROM mcp_approvals WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return status, err
}

// Resolve moves a pending row to approved or rejected. Rows already
// resolved or removed are left alone and reported as ErrNotFound.
func (s *ApprovalStore) Resolve(id string, approved bool) error {
	status := ApprovalRejected
	if approved {
		status = ApprovalApproved
	}
	res, err := s.db.Conn().Exec(
		`UPDATE mcp_approvals SET status = ? WHERE id = ? AND status = 'pending'`, status, id,
	)
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("approval %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *ApprovalStore) Delete(id string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM mcp_approvals WHERE id = ?`, id)
	return err
}

// Pending lists unresolved rows, oldest first.
func (s *ApprovalStore) Pending() ([]ApprovalRow, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, tool, description, status, metadata, created_at
		 FROM mcp_approvals WHERE status = 'pending' ORDER BY created_at ASC, rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []ApprovalRow
	for rows.Next() {
		var r ApprovalRow
		if err := rows.Scan(&r.ID, &r.Tool, &r.Description, &r.Status, &r.Metadata, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
