package service

import (
	"encoding/json"
	"fmt"

	"neuralflow/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Window Size Persistence
// ─────────────────────────────────────────────────────────────
//
// Saves and restores the main Wails window size between sessions as one
// JSON value in the settings store.

const KeyWindowSize = "neuralflow_window"

const (
	defaultWindowWidth  = 1440
	defaultWindowHeight = 900
	minWindowWidth      = 800
	minWindowHeight     = 600
)

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowSettingsService persists window size between sessions.
type WindowSettingsService struct {
	kv domain.KVStore
}

func NewWindowSettingsService(kv domain.KVStore) *WindowSettingsService {
	return &WindowSettingsService{kv: kv}
}

// LoadWindowSize returns the saved window dimensions, or sensible defaults.
// Sizes below the window minimum fall back to the default.
func (s *WindowSettingsService) LoadWindowSize() WindowSize {
	size := WindowSize{Width: defaultWindowWidth, Height: defaultWindowHeight}
	if s.kv == nil {
		return size
	}
	raw, ok, err := s.kv.Get(KeyWindowSize)
	if err != nil || !ok {
		return size
	}
	var saved WindowSize
	if json.Unmarshal([]byte(raw), &saved) != nil {
		return size
	}
	if saved.Width >= minWindowWidth {
		size.Width = saved.Width
	}
	if saved.Height >= minWindowHeight {
		size.Height = saved.Height
	}
	return size
}

// SaveWindowSize persists the current window dimensions.
func (s *WindowSettingsService) SaveWindowSize(width, height int) error {
	if s.kv == nil {
		return fmt.Errorf("window settings: no store")
	}
	data, err := json.Marshal(WindowSize{Width: width, Height: height})
	if err != nil {
		return err
	}
	return s.kv.Set(KeyWindowSize, string(data))
}

// MinWindowSize is the smallest size the window may be resized to.
func MinWindowSize() WindowSize {
	return WindowSize{Width: minWindowWidth, Height: minWindowHeight}
}
