package audit

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists audit entries in PostgreSQL.
//
// Ownership model: the pgx pool belongs to the caller; Close is a no-op.
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

// Append inserts one audit entry.
func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	if s == nil || s.pool == nil {
		return ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.ID == "" || e.GuildID == "" || e.Action == "" {
		return ErrInvalidInput
	}

	table := pgx.Identifier{s.schema, "audit_log"}.Sanitize()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+table+` (id, guild_id, actor_id, action, target_ids, at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.GuildID, e.ActorID, e.Action, e.TargetIDs, e.At,
	)
	return err
}

// ListRecent returns up to limit newest entries for one guild.
func (s *PostgresStore) ListRecent(ctx context.Context, guildID string, limit int) ([]Entry, error) {
	if s == nil || s.pool == nil {
		return nil, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if guildID == "" || limit <= 0 {
		return nil, ErrInvalidInput
	}

	table := pgx.Identifier{s.schema, "audit_log"}.Sanitize()
	rows, err := s.pool.Query(ctx,
		`SELECT id, guild_id, actor_id, action, target_ids, at
		   FROM `+table+`
		  WHERE guild_id = $1
		  ORDER BY id DESC
		  LIMIT $2`,
		guildID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.GuildID, &e.ActorID, &e.Action, &e.TargetIDs, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
