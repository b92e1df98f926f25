package infraction

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// nextIDTx allocates the next per-guild identity. It scans the archive table
// too: an archived identity is still taken, otherwise a later restore would
// collide with a reissued id.
func nextIDTx(ctx context.Context, tx pgx.Tx, schema, guildID string) (int64, error) {
	live := pgIdent(schema, "infractions")
	arch := pgIdent(schema, "infractions_archive")

	var id int64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(GREATEST(
			(SELECT max(id) FROM `+live+` WHERE guild_id = $1),
			(SELECT max(id) FROM `+arch+` WHERE guild_id = $1)
		), 0) + 1
	`, guildID).Scan(&id)
	return id, err
}

func getLiveForUpdateTx(ctx context.Context, tx pgx.Tx, schema, guildID string, id int64) (Infraction, error) {
	live := pgIdent(schema, "infractions")

	var out Infraction
	err := tx.QueryRow(ctx, `
		SELECT id, guild_id, subject_id, actor_id, reason, note, created_at
		FROM `+live+`
		WHERE guild_id = $1 AND id = $2
		FOR UPDATE
	`, guildID, id).Scan(&out.ID, &out.GuildID, &out.SubjectID, &out.ActorID, &out.Reason, &out.Note, &out.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return Infraction{}, ErrNotFound
	}
	if err != nil {
		return Infraction{}, err
	}
	return out, nil
}

func getArchivedForUpdateTx(ctx context.Context, tx pgx.Tx, schema, guildID string, id int64) (Archived, error) {
	arch := pgIdent(schema, "infractions_archive")

	var out Archived
	err := tx.QueryRow(ctx, `
		SELECT id, guild_id, subject_id, actor_id, reason, note, created_at, archived_by, archived_at
		FROM `+arch+`
		WHERE guild_id = $1 AND id = $2
		FOR UPDATE
	`, guildID, id).Scan(&out.ID, &out.GuildID, &out.SubjectID, &out.ActorID, &out.Reason, &out.Note, &out.CreatedAt, &out.ArchivedBy, &out.ArchivedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return Archived{}, ErrNotFound
	}
	if err != nil {
		return Archived{}, err
	}
	return out, nil
}

func insertLiveTx(ctx context.Context, tx pgx.Tx, schema string, rec Infraction) error {
	live := pgIdent(schema, "infractions")

	_, err := tx.Exec(ctx, `
		INSERT INTO `+live+` (id, guild_id, subject_id, actor_id, reason, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.GuildID, rec.SubjectID, rec.ActorID, rec.Reason, rec.Note, rec.CreatedAt)
	return err
}

func insertArchiveTx(ctx context.Context, tx pgx.Tx, schema string, rec Archived) error {
	arch := pgIdent(schema, "infractions_archive")

	_, err := tx.Exec(ctx, `
		INSERT INTO `+arch+` (id, guild_id, subject_id, actor_id, reason, note, created_at, archived_by, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.ID, rec.GuildID, rec.SubjectID, rec.ActorID, rec.Reason, rec.Note, rec.CreatedAt, rec.ArchivedBy, rec.ArchivedAt)
	return err
}

func deleteLiveTx(ctx context.Context, tx pgx.Tx, schema, guildID string, id int64) error {
	live := pgIdent(schema, "infractions")
	_, err := tx.Exec(ctx, `DELETE FROM `+live+` WHERE guild_id = $1 AND id = $2`, guildID, id)
	return err
}

func deleteArchiveTx(ctx context.Context, tx pgx.Tx, schema, guildID string, id int64) error {
	arch := pgIdent(schema, "infractions_archive")
	_, err := tx.Exec(ctx, `DELETE FROM `+arch+` WHERE guild_id = $1 AND id = $2`, guildID, id)
	return err
}
