package audit

import (
	"context"
	"sync"
)

// MemoryStore is a dev/test fallback audit store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]Entry // guildID -> newest last
}

// NewMemoryStore constructs an in-memory Store implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]Entry)}
}

// Close closes the store (noop for in-memory).
func (s *MemoryStore) Close() error { return nil }

// Append stores one entry.
func (s *MemoryStore) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.ID == "" || e.GuildID == "" || e.Action == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.GuildID] = append(s.entries[e.GuildID], e)
	return nil
}

// ListRecent returns up to limit newest entries for one guild.
func (s *MemoryStore) ListRecent(ctx context.Context, guildID string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if guildID == "" || limit <= 0 {
		return nil, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.entries[guildID]
	if len(all) == 0 {
		return nil, nil
	}

	out := make([]Entry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
