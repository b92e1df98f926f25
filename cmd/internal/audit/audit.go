// Package audit keeps an append-only trail of batch mutations.
package audit

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// Entry is one audit record.
type Entry struct {
	ID        string // ULID
	GuildID   string
	ActorID   string
	Action    string
	TargetIDs []int64
	At        time.Time
}

// Store is the persistence boundary for audit entries.
type Store interface {
	Append(ctx context.Context, e Entry) error
	ListRecent(ctx context.Context, guildID string, limit int) ([]Entry, error)
	Close() error
}

// Recorder writes audit entries best-effort: the mutation a trail entry
// describes has already committed, so a failed append is logged and dropped
// rather than surfaced.
type Recorder struct {
	store Store
	log   *slog.Logger
}

// NewRecorder constructs a Recorder. A nil store disables recording.
func NewRecorder(store Store, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{store: store, log: log}
}

// Record appends one entry, allocating its ULID from e.At.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.store == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if e.ID == "" {
		id, err := newULID(e.At)
		if err != nil {
			r.log.Warn("audit.id.fail", "err", err)
			return
		}
		e.ID = id
	}
	if err := r.store.Append(ctx, e); err != nil {
		r.log.Warn("audit.append.fail", "action", e.Action, "guild", e.GuildID, "err", err)
	}
}

func newULID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
