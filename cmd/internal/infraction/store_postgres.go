package infraction

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists infractions in PostgreSQL.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore.
type StoreOption func(*PostgresStore) error

// WithSchema sets the DB schema used by the store (default: "warden").
func WithSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return ErrInvalidInput
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "warden"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, ErrInvalidInput
	}
	return st, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

// Create allocates the next per-guild identity and inserts the record.
func (s *PostgresStore) Create(ctx context.Context, in CreateRecord) (Infraction, error) {
	if s == nil || s.pool == nil {
		return Infraction{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Infraction{}, err
	}
	if strings.TrimSpace(in.GuildID) == "" || strings.TrimSpace(in.SubjectID) == "" || strings.TrimSpace(in.ActorID) == "" {
		return Infraction{}, ErrInvalidInput
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Infraction{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialize id allocation per guild so two concurrent creates cannot
	// race for the same identity.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, in.GuildID); err != nil {
		return Infraction{}, err
	}

	id, err := nextIDTx(ctx, tx, s.schema, in.GuildID)
	if err != nil {
		return Infraction{}, err
	}

	rec := Infraction{
		ID:        id,
		GuildID:   in.GuildID,
		SubjectID: in.SubjectID,
		ActorID:   in.ActorID,
		Reason:    in.Reason,
		Note:      in.Note,
		CreatedAt: in.CreatedAt,
	}
	if err := insertLiveTx(ctx, tx, s.schema, rec); err != nil {
		if isUniqueViolation(err) {
			return Infraction{}, ErrDuplicateID
		}
		return Infraction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Infraction{}, err
	}
	return rec, nil
}

// Get fetches one live infraction guild-scoped.
func (s *PostgresStore) Get(ctx context.Context, guildID string, id int64) (Infraction, error) {
	if s == nil || s.pool == nil {
		return Infraction{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Infraction{}, err
	}

	live := pgIdent(s.schema, "infractions")
	var out Infraction
	err := s.pool.QueryRow(ctx,
		`SELECT id, guild_id, subject_id, actor_id, reason, note, created_at
		   FROM `+live+`
		  WHERE guild_id = $1 AND id = $2`,
		guildID, id,
	).Scan(&out.ID, &out.GuildID, &out.SubjectID, &out.ActorID, &out.Reason, &out.Note, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Infraction{}, ErrNotFound
		}
		return Infraction{}, err
	}
	return out, nil
}

// ListPage returns one page ordered by id DESC.
func (s *PostgresStore) ListPage(ctx context.Context, q Query, offset, limit int) ([]Infraction, error) {
	if s == nil || s.pool == nil {
		return nil, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(q.GuildID) == "" || offset < 0 || limit <= 0 {
		return nil, ErrInvalidInput
	}

	where, args := queryWhere(q)
	sql := `SELECT id, guild_id, subject_id, actor_id, reason, note, created_at
		  FROM ` + s.queryTable(q) + `
		 WHERE ` + where + `
		 ORDER BY id DESC
		 LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Infraction
	for rows.Next() {
		var rec Infraction
		if err := rows.Scan(&rec.ID, &rec.GuildID, &rec.SubjectID, &rec.ActorID, &rec.Reason, &rec.Note, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the total matching q, for page math.
func (s *PostgresStore) Count(ctx context.Context, q Query) (int, error) {
	if s == nil || s.pool == nil {
		return 0, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if strings.TrimSpace(q.GuildID) == "" {
		return 0, ErrInvalidInput
	}

	where, args := queryWhere(q)
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM `+s.queryTable(q)+` WHERE `+where,
		args...,
	).Scan(&n)
	return n, err
}

// FetchByIDs resolves ids against the live table in one guild-scoped query.
func (s *PostgresStore) FetchByIDs(ctx context.Context, guildID string, ids []int64) ([]Infraction, error) {
	if s == nil || s.pool == nil {
		return nil, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	live := pgIdent(s.schema, "infractions")
	rows, err := s.pool.Query(ctx,
		`SELECT id, guild_id, subject_id, actor_id, reason, note, created_at
		   FROM `+live+`
		  WHERE guild_id = $1 AND id = ANY($2)`,
		guildID, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Infraction
	for rows.Next() {
		var rec Infraction
		if err := rows.Scan(&rec.ID, &rec.GuildID, &rec.SubjectID, &rec.ActorID, &rec.Reason, &rec.Note, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FetchArchivedByIDs is the archive-side counterpart of FetchByIDs.
func (s *PostgresStore) FetchArchivedByIDs(ctx context.Context, guildID string, ids []int64) ([]Archived, error) {
	if s == nil || s.pool == nil {
		return nil, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	arch := pgIdent(s.schema, "infractions_archive")
	rows, err := s.pool.Query(ctx,
		`SELECT id, guild_id, subject_id, actor_id, reason, note, created_at, archived_by, archived_at
		   FROM `+arch+`
		  WHERE guild_id = $1 AND id = ANY($2)`,
		guildID, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Archived
	for rows.Next() {
		var rec Archived
		if err := rows.Scan(&rec.ID, &rec.GuildID, &rec.SubjectID, &rec.ActorID, &rec.Reason, &rec.Note, &rec.CreatedAt, &rec.ArchivedBy, &rec.ArchivedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Archive moves one live row into the archive under the same identity.
func (s *PostgresStore) Archive(ctx context.Context, guildID string, id int64, archivedBy string, archivedAt time.Time) (Archived, error) {
	if s == nil || s.pool == nil {
		return Archived{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Archived{}, err
	}
	if archivedAt.IsZero() {
		archivedAt = time.Now().UTC()
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Archived{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	src, err := getLiveForUpdateTx(ctx, tx, s.schema, guildID, id)
	if err != nil {
		return Archived{}, err
	}

	rec := Archived{
		Infraction: src,
		ArchivedBy: archivedBy,
		ArchivedAt: archivedAt,
	}
	if err := insertArchiveTx(ctx, tx, s.schema, rec); err != nil {
		if isUniqueViolation(err) {
			return Archived{}, ErrDuplicateID
		}
		return Archived{}, err
	}
	if err := deleteLiveTx(ctx, tx, s.schema, guildID, id); err != nil {
		return Archived{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Archived{}, err
	}
	return rec, nil
}

// Restore moves one archived row back into the live table, reusing the
// original identity and creation timestamp.
func (s *PostgresStore) Restore(ctx context.Context, guildID string, id int64) (Infraction, error) {
	if s == nil || s.pool == nil {
		return Infraction{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Infraction{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return Infraction{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	src, err := getArchivedForUpdateTx(ctx, tx, s.schema, guildID, id)
	if err != nil {
		return Infraction{}, err
	}

	if err := insertLiveTx(ctx, tx, s.schema, src.Infraction); err != nil {
		if isUniqueViolation(err) {
			return Infraction{}, ErrDuplicateID
		}
		return Infraction{}, err
	}
	if err := deleteArchiveTx(ctx, tx, s.schema, guildID, id); err != nil {
		return Infraction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Infraction{}, err
	}
	return src.Infraction, nil
}

func (s *PostgresStore) queryTable(q Query) string {
	if q.Archived {
		return pgIdent(s.schema, "infractions_archive")
	}
	return pgIdent(s.schema, "infractions")
}

// queryWhere builds the guild-scoped filter shared by ListPage and Count.
func queryWhere(q Query) (string, []any) {
	where := `guild_id = $1`
	args := []any{q.GuildID}
	if q.SubjectID != "" {
		args = append(args, q.SubjectID)
		where += ` AND subject_id = $` + strconv.Itoa(len(args))
	}
	if q.ActorID != "" {
		args = append(args, q.ActorID)
		where += ` AND actor_id = $` + strconv.Itoa(len(args))
	}
	return where, args
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func pgIdent(schema, table string) string {
	return pgx.Identifier{schema, table}.Sanitize()
}
