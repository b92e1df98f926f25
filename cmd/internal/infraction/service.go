package infraction

import (
	"context"
	"strings"
	"time"
)

const maxNoteLen = 512

// LogInput describes one new infraction.
type LogInput struct {
	GuildID   string
	SubjectID string
	ActorID   string
	Reason    string
	Note      *string
	Now       time.Time
}

// Service owns record creation and lookup on top of a Store.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, ErrInvalidInput
	}
	return &Service{store: store}, nil
}

// Log records a new infraction against a subject.
func (s *Service) Log(ctx context.Context, in LogInput) (Infraction, error) {
	if s == nil || s.store == nil {
		return Infraction{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Infraction{}, err
	}
	if strings.TrimSpace(in.GuildID) == "" || strings.TrimSpace(in.SubjectID) == "" || strings.TrimSpace(in.ActorID) == "" {
		return Infraction{}, ErrInvalidInput
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return Infraction{}, ErrInvalidInput
	}
	note := trimPtr(in.Note)
	if note != nil && len(*note) > maxNoteLen {
		return Infraction{}, ErrInvalidInput
	}
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}

	return s.store.Create(ctx, CreateRecord{
		GuildID:   in.GuildID,
		SubjectID: in.SubjectID,
		ActorID:   in.ActorID,
		Reason:    reason,
		Note:      note,
		CreatedAt: in.Now,
	})
}

// Get fetches one live infraction.
func (s *Service) Get(ctx context.Context, guildID string, id int64) (Infraction, error) {
	if s == nil || s.store == nil {
		return Infraction{}, ErrInvalidInput
	}
	return s.store.Get(ctx, guildID, id)
}

// HistorySource pages infraction history for the pagination coordinator.
// The token parameter layout is [guildID, subjectID, actorID, scope]; empty
// subject/actor mean no filter, scope is "live" or "archived".
type HistorySource struct {
	store Store
}

// NewHistorySource constructs a HistorySource.
func NewHistorySource(store Store) (*HistorySource, error) {
	if store == nil {
		return nil, ErrInvalidInput
	}
	return &HistorySource{store: store}, nil
}

// HistoryParams flattens a query into codec parameters for a control token.
func HistoryParams(q Query) []string {
	scope := "live"
	if q.Archived {
		scope = "archived"
	}
	return []string{q.GuildID, q.SubjectID, q.ActorID, scope}
}

// ParseHistoryParams is the inverse of HistoryParams.
func ParseHistoryParams(params []string) (Query, error) {
	if len(params) != 4 || params[0] == "" {
		return Query{}, ErrInvalidInput
	}
	q := Query{GuildID: params[0], SubjectID: params[1], ActorID: params[2]}
	switch params[3] {
	case "live":
	case "archived":
		q.Archived = true
	default:
		return Query{}, ErrInvalidInput
	}
	return q, nil
}

// FetchPage re-runs the query for one page and returns the fresh total.
func (h *HistorySource) FetchPage(ctx context.Context, params []string, page, size int) ([]Infraction, int, error) {
	if h == nil || h.store == nil {
		return nil, 0, ErrInvalidInput
	}
	if page < 1 || size <= 0 {
		return nil, 0, ErrInvalidInput
	}

	q, err := ParseHistoryParams(params)
	if err != nil {
		return nil, 0, err
	}

	total, err := h.store.Count(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	items, err := h.store.ListPage(ctx, q, (page-1)*size, size)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func trimPtr(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
