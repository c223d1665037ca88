package editor

import "neuralflow/internal/domain"

// DefaultUndoLimit bounds each of the undo and redo stacks.
const DefaultUndoLimit = 100

// snapshotStack is a LIFO of deep flow copies. Once limit is reached the
// oldest snapshot is dropped.
type snapshotStack struct {
	items []domain.Flow
	limit int
}

func (s *snapshotStack) push(f domain.Flow) {
	s.items = append(s.items, f)
	if s.limit > 0 && len(s.items) > s.limit {
		drop := len(s.items) - s.limit
		copy(s.items, s.items[drop:])
		s.items = s.items[:s.limit]
	}
}

func (s *snapshotStack) pop() (domain.Flow, bool) {
	if len(s.items) == 0 {
		return domain.Flow{}, false
	}
	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return last, true
}

func (s *snapshotStack) clear() { s.items = nil }

func (s *snapshotStack) len() int { return len(s.items) }
