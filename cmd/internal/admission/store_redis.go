package admission

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists admission state as JSON blobs with a TTL, for
// deployments where several processes must share throttle history.
//
// Atomicity is per-key optimistic: Update runs GET/fn/SET inside a WATCH
// transaction and retries on contention.
type RedisStore struct {
	rdb     *redis.Client
	prefix  string
	ttl     time.Duration
	retries int
}

// RedisOption configures RedisStore.
type RedisOption func(*RedisStore) error

// WithPrefix sets the key prefix (default "warden:admission").
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) error {
		prefix = strings.Trim(strings.TrimSpace(prefix), ":")
		if prefix == "" {
			return errors.New("admission: empty redis prefix")
		}
		s.prefix = prefix
		return nil
	}
}

// WithTTL sets the idle expiry applied to every key (default 1h).
func WithTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) error {
		if d <= 0 {
			return errors.New("admission: non-positive redis ttl")
		}
		s.ttl = d
		return nil
	}
}

// NewRedisStore constructs a Redis-backed StateStore.
func NewRedisStore(rdb *redis.Client, opts ...RedisOption) (*RedisStore, error) {
	st := &RedisStore{
		rdb:     rdb,
		prefix:  "warden:admission",
		ttl:     time.Hour,
		retries: 3,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.rdb == nil {
		return nil, errors.New("admission: nil redis client")
	}
	return st, nil
}

// Update applies fn to the stored state of key.
func (s *RedisStore) Update(ctx context.Context, key Key, fn func(State) State) (State, error) {
	rkey := s.key(key)

	var out State
	txn := func(tx *redis.Tx) error {
		var st State
		raw, err := tx.Get(ctx, rkey).Result()
		switch {
		case err == nil:
			if uerr := json.Unmarshal([]byte(raw), &st); uerr != nil {
				// Corrupt blob: start over rather than wedging the key.
				st = State{}
			}
		case errors.Is(err, redis.Nil):
			st = State{}
		default:
			return err
		}

		out = fn(st)

		buf, err := json.Marshal(out)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rkey, buf, s.ttl)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < s.retries; i++ {
		err = s.rdb.Watch(ctx, txn, rkey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return State{}, err
	}
	return out, nil
}

// Sweep is a no-op: the per-key TTL already evicts idle entries.
func (s *RedisStore) Sweep(context.Context, time.Time, time.Duration) int { return 0 }

func (s *RedisStore) key(key Key) string {
	return s.prefix + ":" + key.ActorID + ":" + string(key.Command)
}
