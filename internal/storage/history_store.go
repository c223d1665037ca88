package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"neuralflow/internal/domain"
)

// DefaultHistoryLimit is how many generations are kept.
const DefaultHistoryLimit = 10

// HistoryStore keeps the most recent generations in flow_history.
// It implements domain.HistoryStore.
type HistoryStore struct {
	db    *DB
	limit int
}

func NewHistoryStore(db *DB, limit int) *HistoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryStore{db: db, limit: limit}
}

// Push stores e as the newest entry and drops whatever falls past the limit.
// A missing id or timestamp is filled in.
func (s *HistoryStore) Push(e domain.HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	data, err := json.Marshal(e.Flow.Clone())
	if err != nil {
		return fmt.Errorf("marshal flow: %w", err)
	}

	_, err = s.db.Conn().Exec(
		`INSERT INTO flow_history (id, prompt, flow_json, created_at) VALUES (?, ?, ?, ?)`,
		e.ID, e.Prompt, string(data), e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return s.pruneIfNeeded()
}

// List returns entries newest first.
func (s *HistoryStore) List() ([]domain.HistoryEntry, error) {
	return s.query(`SELECT id, prompt, flow_json, created_at FROM flow_history
		ORDER BY created_at DESC, rowid DESC`)
}

// Search returns entries whose prompt contains query, case-insensitively.
// An empty query matches everything.
func (s *HistoryStore) Search(query string) ([]domain.HistoryEntry, error) {
	if query == "" {
		return s.List()
	}
	return s.query(`SELECT id, prompt, flow_json, created_at FROM flow_history
		WHERE instr(lower(prompt), lower(?)) > 0
		ORDER BY created_at DESC, rowid DESC`, query)
}

func (s *HistoryStore) Get(id string) (*domain.HistoryEntry, error) {
	row := s.db.Conn().QueryRow(
		`SELECT id, prompt, flow_json, created_at FROM flow_history WHERE id = ?`, id,
	)
	e, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Clear removes every entry.
func (s *HistoryStore) Clear() error {
	_, err := s.db.Conn().Exec(`DELETE FROM flow_history`)
	return err
}

func (s *HistoryStore) query(q string, args ...any) ([]domain.HistoryEntry, error) {
	rows, err := s.db.Conn().Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHistory(sc scanner) (*domain.HistoryEntry, error) {
	var (
		e   domain.HistoryEntry
		raw string
	)
	if err := sc.Scan(&e.ID, &e.Prompt, &raw, &e.Timestamp); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &e.Flow); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", e.ID, err)
	}
	e.Flow = e.Flow.Clone()
	return &e, nil
}

// pruneIfNeeded removes the oldest entries when count exceeds the limit.
func (s *HistoryStore) pruneIfNeeded() error {
	var count int
	if err := s.db.Conn().QueryRow(`SELECT COUNT(*) FROM flow_history`).Scan(&count); err != nil {
		return fmt.Errorf("count history: %w", err)
	}
	if count <= s.limit {
		return nil
	}

	_, err := s.db.Conn().Exec(
		`DELETE FROM flow_history WHERE id IN (
			SELECT id FROM flow_history ORDER BY created_at ASC, rowid ASC LIMIT ?
		)`, count-s.limit,
	)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}
