package infraction

import "time"

// Infraction is one moderation record. Identity is unique within a guild.
type Infraction struct {
	ID        int64
	GuildID   string
	SubjectID string
	ActorID   string
	Reason    string
	Note      *string
	CreatedAt time.Time
}

// Archived is a soft-deleted infraction. It keeps the original id and
// CreatedAt verbatim so a restore reproduces identical identity.
type Archived struct {
	Infraction
	ArchivedBy string
	ArchivedAt time.Time
}
