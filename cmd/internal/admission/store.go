package admission

import (
	"context"
	"time"
)

// Key identifies admission state for one actor and one command kind.
type Key struct {
	ActorID string
	Command CommandKind
}

// StateStore is the persistence boundary for admission state.
//
// Update must apply fn atomically per key: no two concurrent updates of the
// same key may interleave. Sweep drops entries idle longer than idleFor and
// reports how many were removed; stores with native expiry may make it a
// no-op.
type StateStore interface {
	Update(ctx context.Context, key Key, fn func(State) State) (State, error)
	Sweep(ctx context.Context, now time.Time, idleFor time.Duration) int
}
