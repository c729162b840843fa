package capability

import "sync"

// Selection holds a plugin's current choice of a capability value. It starts unselected and
// becomes selected on the first Select; there is no way back. It is safe for concurrent use.
type Selection[T comparable] struct {
	mu       sync.RWMutex
	value    T
	selected bool
}

// Select makes v the current value.
func (s *Selection[T]) Select(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.selected = true
}

// Get returns the current value. The bool is false while nothing has been selected.
func (s *Selection[T]) Get() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.selected
}
