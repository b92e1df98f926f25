package admission

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps admission state in a mutex-guarded map. It is the default
// single-process store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[Key]*memoryEntry
}

type memoryEntry struct {
	state    State
	lastSeen time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]*memoryEntry)}
}

// Update applies fn to the current state of key under the store lock.
func (s *MemoryStore) Update(_ context.Context, key Key, fn func(State) State) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent := s.entries[key]
	if ent == nil {
		ent = &memoryEntry{}
		s.entries[key] = ent
	}
	ent.state = fn(ent.state)
	ent.lastSeen = time.Now()
	return ent.state, nil
}

// Sweep removes entries not touched for idleFor. Without it the map grows
// unboundedly across distinct actors over a long process lifetime.
func (s *MemoryStore) Sweep(_ context.Context, now time.Time, idleFor time.Duration) int {
	cutoff := now.Add(-idleFor)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
