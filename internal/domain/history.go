package domain

import "time"

// HistoryEntry is an immutable record of one generation.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Timestamp time.Time `json:"timestamp"`
	Flow      Flow      `json:"data"`
}

type HistoryStore interface {
	Push(e HistoryEntry) error
	List() ([]HistoryEntry, error)
	Get(id string) (*HistoryEntry, error)
	Search(query string) ([]HistoryEntry, error)
}

// KVStore persists opaque string values under string keys.
// Get reports ok=false for a missing key.
type KVStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}
