package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────
// SettingsStore: key/value rows in app_settings
// ─────────────────────────────────────────────────────────────
//
// Holds the JSON blobs the app persists between sessions: the lead
// collection, the user's own lead and the current flow.

// SettingsStore implements domain.KVStore over SQLite.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the value stored under key. ok is false if the key is absent.
func (s *SettingsStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.Conn().QueryRow(`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts key.
func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) Delete(key string) error {
	if _, err := s.db.Conn().Exec(`DELETE FROM app_settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when key was last written, or the zero time.
func (s *SettingsStore) UpdatedAt(key string) (time.Time, error) {
	var at time.Time
	err := s.db.Conn().QueryRow(`SELECT updated_at FROM app_settings WHERE key = ?`, key).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	return at, err
}
