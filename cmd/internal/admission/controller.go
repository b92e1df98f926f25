package admission

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Observer is notified of every check verdict, e.g. to drive metrics.
type Observer func(kind CommandKind, v Verdict)

// Controller is the synchronous admission gate placed in front of every
// mutating command. Check never fails: if the backing store errors (only
// possible with a remote store), the controller fails open and logs, because
// a throttle outage must not take the write path down with it.
type Controller struct {
	store    StateStore
	policies map[CommandKind]Policy
	fallback Policy
	now      func() time.Time
	observe  Observer
	log      *slog.Logger
}

// Option configures the Controller.
type Option func(*Controller) error

// WithPolicy overrides the policy for one command kind.
func WithPolicy(kind CommandKind, p Policy) Option {
	return func(c *Controller) error {
		if kind == "" {
			return errors.New("admission: empty command kind")
		}
		c.policies[kind] = p.normalized()
		return nil
	}
}

// WithFallbackPolicy overrides the policy used for unlisted command kinds.
func WithFallbackPolicy(p Policy) Option {
	return func(c *Controller) error {
		c.fallback = p.normalized()
		return nil
	}
}

// WithClock injects the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Controller) error {
		if now == nil {
			return errors.New("admission: nil clock")
		}
		c.now = now
		return nil
	}
}

// WithObserver registers a verdict observer.
func WithObserver(fn Observer) Option {
	return func(c *Controller) error {
		c.observe = fn
		return nil
	}
}

// WithLogger sets the logger used for store failures.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) error {
		if log == nil {
			return errors.New("admission: nil logger")
		}
		c.log = log
		return nil
	}
}

// NewController constructs a Controller over the given state store.
func NewController(store StateStore, opts ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("admission: nil state store")
	}
	c := &Controller{
		store:    store,
		policies: make(map[CommandKind]Policy),
		fallback: DefaultPolicy(),
		now:      func() time.Time { return time.Now().UTC() },
		log:      slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Check decides whether actorID may run kind right now. It performs no
// suspension beyond the store round trip and returns Denied as data.
func (c *Controller) Check(ctx context.Context, actorID string, kind CommandKind) Verdict {
	p := c.policy(kind)
	now := c.now()

	var v Verdict
	_, err := c.store.Update(ctx, Key{ActorID: actorID, Command: kind}, func(st State) State {
		var next State
		v, next = evaluate(now, p, st)
		return next
	})
	if err != nil {
		c.log.Warn("admission.store.fail_open", "actor", actorID, "command", string(kind), "err", err)
		v = Verdict{Allowed: true}
	}

	if c.observe != nil {
		c.observe(kind, v)
	}
	return v
}

// Record marks one completed usage for actorID and kind.
func (c *Controller) Record(ctx context.Context, actorID string, kind CommandKind) {
	p := c.policy(kind)
	now := c.now()

	_, err := c.store.Update(ctx, Key{ActorID: actorID, Command: kind}, func(st State) State {
		return recordUsage(now, p, st)
	})
	if err != nil {
		c.log.Warn("admission.record.dropped", "actor", actorID, "command", string(kind), "err", err)
	}
}

// StartJanitor periodically sweeps idle state until ctx is done. The idle
// horizon is the largest decay window in play, so no live escalation history
// is ever dropped.
func (c *Controller) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	idle := c.fallback.DecayWindow
	for _, p := range c.policies {
		if p.DecayWindow > idle {
			idle = p.DecayWindow
		}
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := c.store.Sweep(ctx, c.now(), idle); n > 0 {
					c.log.Debug("admission.sweep", "removed", n)
				}
			}
		}
	}()
}

func (c *Controller) policy(kind CommandKind) Policy {
	if p, ok := c.policies[kind]; ok {
		return p
	}
	return c.fallback
}
