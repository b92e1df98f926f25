package infraction

import (
	"context"
	"time"
)

// CreateRecord is a normalized infraction insert payload. The id is allocated
// by the store.
type CreateRecord struct {
	GuildID   string
	SubjectID string
	ActorID   string
	Reason    string
	Note      *string
	CreatedAt time.Time
}

// Query selects infractions within one guild. SubjectID and ActorID are
// optional narrowing filters; Archived switches to the archive table.
type Query struct {
	GuildID   string
	SubjectID string
	ActorID   string
	Archived  bool
}

// Store is the persistence boundary for infractions.
//
// Archive and Restore each run as one transaction that creates the
// counterpart row under the same identity and removes the source row. They
// return ErrNotFound when the source row is gone and ErrDuplicateID when the
// counterpart identity already exists.
type Store interface {
	Create(ctx context.Context, in CreateRecord) (Infraction, error)
	Get(ctx context.Context, guildID string, id int64) (Infraction, error)

	ListPage(ctx context.Context, q Query, offset, limit int) ([]Infraction, error)
	Count(ctx context.Context, q Query) (int, error)

	// FetchByIDs resolves ids guild-scoped against the live table; ids not
	// present are simply absent from the result. FetchArchivedByIDs is the
	// archive-side counterpart.
	FetchByIDs(ctx context.Context, guildID string, ids []int64) ([]Infraction, error)
	FetchArchivedByIDs(ctx context.Context, guildID string, ids []int64) ([]Archived, error)

	Archive(ctx context.Context, guildID string, id int64, archivedBy string, archivedAt time.Time) (Archived, error)
	Restore(ctx context.Context, guildID string, id int64) (Infraction, error)

	Close() error
}
