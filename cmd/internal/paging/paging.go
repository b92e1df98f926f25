// Package paging orchestrates stateless fetch -> render -> re-encode cycles.
//
// No application session exists between interactions: a control activation
// hands back only the token previously attached to the control. The
// coordinator decodes it, re-runs the query (it never caches, accepting
// eventual consistency of displayed totals), and hands the rendering layer a
// fresh view plus re-encoded controls for editing the message in place.
package paging

import (
	"context"
	"errors"
	"time"

	"warden/cmd/internal/cursor"
)

// Action is a paging control activation.
type Action string

const (
	ActionFirst   Action = "first"
	ActionPrev    Action = "prev"
	ActionNext    Action = "next"
	ActionLast    Action = "last"
	ActionRefresh Action = "refresh"
)

var (
	// ErrStaleInteraction marks an activation past the platform validity
	// window. Callers drop it as a no-op: no retry, no side effect.
	ErrStaleInteraction = errors.New("paging: interaction past validity window")

	errInvalidConfig = errors.New("paging: invalid configuration")
)

// DefaultPageSize is the item count per rendered page.
const DefaultPageSize = 10

// DefaultValidity mirrors the platform's own interaction validity window.
const DefaultValidity = 15 * time.Minute

const lastPageSentinel = 1 << 20

// Source re-runs a query for one page. params is the query shape previously
// carried in the token; the returned total feeds page math.
type Source[T any] interface {
	FetchPage(ctx context.Context, params []string, page, size int) (items []T, total int, err error)
}

// View is the data contract handed to the rendering layer, which owns all
// human-readable formatting.
type View[T any] struct {
	Items       []T
	TotalCount  int
	CurrentPage int
	TotalPages  int
	Params      []string
}

// Control is one UI control to attach: the external control layer guarantees
// activating it returns Token verbatim.
type Control struct {
	Action   Action
	Token    string
	Disabled bool
}

// Coordinator drives paged views over a Source.
type Coordinator[T any] struct {
	src      Source[T]
	pageSize int
	validity time.Duration
	now      func() time.Time
}

// Option configures a Coordinator.
type Option[T any] func(*Coordinator[T]) error

// WithPageSize sets the page size.
func WithPageSize[T any](n int) Option[T] {
	return func(c *Coordinator[T]) error {
		if n <= 0 {
			return errInvalidConfig
		}
		c.pageSize = n
		return nil
	}
}

// WithValidity sets the activation validity window.
func WithValidity[T any](d time.Duration) Option[T] {
	return func(c *Coordinator[T]) error {
		if d <= 0 {
			return errInvalidConfig
		}
		c.validity = d
		return nil
	}
}

// WithClock injects the time source (tests).
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *Coordinator[T]) error {
		if now == nil {
			return errInvalidConfig
		}
		c.now = now
		return nil
	}
}

// NewCoordinator constructs a Coordinator over src.
func NewCoordinator[T any](src Source[T], opts ...Option[T]) (*Coordinator[T], error) {
	if src == nil {
		return nil, errInvalidConfig
	}
	c := &Coordinator[T]{
		src:      src,
		pageSize: DefaultPageSize,
		validity: DefaultValidity,
		now:      func() time.Time { return time.Now().UTC() },
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

// Open services the initial command: fetch page 1 and build controls.
func (c *Coordinator[T]) Open(ctx context.Context, params ...string) (View[T], []Control, error) {
	return c.render(ctx, params, 1)
}

// Activate services a control activation. token is the identifier that was
// attached to the pressed control; issuedAt is when the carrying interaction
// was created (zero skips the staleness check).
func (c *Coordinator[T]) Activate(ctx context.Context, token string, action Action, issuedAt time.Time) (View[T], []Control, error) {
	if !issuedAt.IsZero() && c.now().Sub(issuedAt) > c.validity {
		return View[T]{}, nil, ErrStaleInteraction
	}

	page, params, err := cursor.Decode(token)
	if err != nil {
		return View[T]{}, nil, err
	}

	switch action {
	case ActionFirst:
		page = 1
	case ActionPrev:
		page--
	case ActionNext:
		page++
	case ActionLast:
		// Sentinel clamped against the fresh count inside render. Kept well
		// below MaxInt so offset math cannot overflow in a Source.
		page = lastPageSentinel
	case ActionRefresh:
		// Same page, fresh query.
	default:
		return View[T]{}, nil, cursor.ErrInvalidToken
	}

	return c.render(ctx, params, page)
}

// render re-runs the query, clamps the requested page to [1, totalPages],
// and re-encodes control tokens from the fresh state.
func (c *Coordinator[T]) render(ctx context.Context, params []string, page int) (View[T], []Control, error) {
	if page < 1 {
		page = 1
	}
	if page > lastPageSentinel {
		page = lastPageSentinel
	}

	items, total, err := c.src.FetchPage(ctx, params, page, c.pageSize)
	if err != nil {
		return View[T]{}, nil, err
	}
	tp := totalPages(total, c.pageSize)
	if page > tp {
		page = tp
		items, total, err = c.src.FetchPage(ctx, params, page, c.pageSize)
		if err != nil {
			return View[T]{}, nil, err
		}
		tp = totalPages(total, c.pageSize)
	}

	view := View[T]{
		Items:       items,
		TotalCount:  total,
		CurrentPage: page,
		TotalPages:  tp,
		Params:      params,
	}

	controls, err := c.controls(page, tp, params)
	if err != nil {
		return View[T]{}, nil, err
	}
	return view, controls, nil
}

func (c *Coordinator[T]) controls(page, tp int, params []string) ([]Control, error) {
	token, err := cursor.Encode(page, params...)
	if err != nil {
		return nil, err
	}

	atFirst := page <= 1
	atLast := page >= tp
	return []Control{
		{Action: ActionFirst, Token: token, Disabled: atFirst},
		{Action: ActionPrev, Token: token, Disabled: atFirst},
		{Action: ActionNext, Token: token, Disabled: atLast},
		{Action: ActionLast, Token: token, Disabled: atLast},
		{Action: ActionRefresh, Token: token},
	}, nil
}

func totalPages(total, size int) int {
	if total <= 0 {
		return 1
	}
	tp := (total + size - 1) / size
	if tp < 1 {
		tp = 1
	}
	return tp
}
