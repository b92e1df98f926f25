package infraction

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a dev/test fallback when DB is not configured. It mirrors
// the Postgres store's semantics, including ErrDuplicateID on counterpart
// collisions, so the batch engine behaves identically against it.
type MemoryStore struct {
	mu     sync.Mutex
	guilds map[string]*memGuild
}

type memGuild struct {
	live map[int64]Infraction
	arch map[int64]Archived
}

// NewMemoryStore constructs an in-memory Store implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{guilds: make(map[string]*memGuild)}
}

// Close closes the store (noop for in-memory).
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) guild(id string) *memGuild {
	g := s.guilds[id]
	if g == nil {
		g = &memGuild{
			live: make(map[int64]Infraction),
			arch: make(map[int64]Archived),
		}
		s.guilds[id] = g
	}
	return g
}

// Create allocates the next per-guild identity and inserts the record.
func (s *MemoryStore) Create(ctx context.Context, in CreateRecord) (Infraction, error) {
	if err := ctx.Err(); err != nil {
		return Infraction{}, err
	}
	if strings.TrimSpace(in.GuildID) == "" || strings.TrimSpace(in.SubjectID) == "" || strings.TrimSpace(in.ActorID) == "" {
		return Infraction{}, ErrInvalidInput
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.guild(in.GuildID)
	var next int64 = 1
	for id := range g.live {
		if id >= next {
			next = id + 1
		}
	}
	for id := range g.arch {
		if id >= next {
			next = id + 1
		}
	}

	rec := Infraction{
		ID:        next,
		GuildID:   in.GuildID,
		SubjectID: in.SubjectID,
		ActorID:   in.ActorID,
		Reason:    in.Reason,
		Note:      in.Note,
		CreatedAt: in.CreatedAt,
	}
	g.live[next] = rec
	return rec, nil
}

// Get fetches one live infraction guild-scoped.
func (s *MemoryStore) Get(ctx context.Context, guildID string, id int64) (Infraction, error) {
	if err := ctx.Err(); err != nil {
		return Infraction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.guild(guildID).live[id]
	if !ok {
		return Infraction{}, ErrNotFound
	}
	return rec, nil
}

// ListPage returns one page ordered by id DESC.
func (s *MemoryStore) ListPage(ctx context.Context, q Query, offset, limit int) ([]Infraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(q.GuildID) == "" || offset < 0 || limit <= 0 {
		return nil, ErrInvalidInput
	}

	all := s.matching(q)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// Count returns the total matching q.
func (s *MemoryStore) Count(ctx context.Context, q Query) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(q.GuildID) == "" {
		return 0, ErrInvalidInput
	}
	return len(s.matching(q)), nil
}

func (s *MemoryStore) matching(q Query) []Infraction {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.guild(q.GuildID)
	var out []Infraction
	if q.Archived {
		for _, rec := range g.arch {
			if matchesQuery(q, rec.Infraction) {
				out = append(out, rec.Infraction)
			}
		}
	} else {
		for _, rec := range g.live {
			if matchesQuery(q, rec) {
				out = append(out, rec)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func matchesQuery(q Query, rec Infraction) bool {
	if q.SubjectID != "" && rec.SubjectID != q.SubjectID {
		return false
	}
	if q.ActorID != "" && rec.ActorID != q.ActorID {
		return false
	}
	return true
}

// FetchByIDs resolves ids against the live set; missing ids are absent.
func (s *MemoryStore) FetchByIDs(ctx context.Context, guildID string, ids []int64) ([]Infraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.guild(guildID)
	var out []Infraction
	for _, id := range ids {
		if rec, ok := g.live[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// FetchArchivedByIDs resolves ids against the archive.
func (s *MemoryStore) FetchArchivedByIDs(ctx context.Context, guildID string, ids []int64) ([]Archived, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.guild(guildID)
	var out []Archived
	for _, id := range ids {
		if rec, ok := g.arch[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Archive moves one live record into the archive under the same identity.
func (s *MemoryStore) Archive(ctx context.Context, guildID string, id int64, archivedBy string, archivedAt time.Time) (Archived, error) {
	if err := ctx.Err(); err != nil {
		return Archived{}, err
	}
	if archivedAt.IsZero() {
		archivedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.guild(guildID)
	src, ok := g.live[id]
	if !ok {
		return Archived{}, ErrNotFound
	}
	if _, taken := g.arch[id]; taken {
		return Archived{}, ErrDuplicateID
	}

	rec := Archived{Infraction: src, ArchivedBy: archivedBy, ArchivedAt: archivedAt}
	g.arch[id] = rec
	delete(g.live, id)
	return rec, nil
}

// Restore moves one archived record back into the live set.
func (s *MemoryStore) Restore(ctx context.Context, guildID string, id int64) (Infraction, error) {
	if err := ctx.Err(); err != nil {
		return Infraction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.guild(guildID)
	src, ok := g.arch[id]
	if !ok {
		return Infraction{}, ErrNotFound
	}
	if _, taken := g.live[id]; taken {
		return Infraction{}, ErrDuplicateID
	}

	g.live[id] = src.Infraction
	delete(g.arch, id)
	return src.Infraction, nil
}

// putArchived force-places an archived row, bypassing identity allocation.
// Test seam for constructing counterpart collisions.
func (s *MemoryStore) putArchived(rec Archived) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guild(rec.GuildID).arch[rec.ID] = rec
}
