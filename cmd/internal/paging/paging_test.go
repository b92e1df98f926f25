package paging

import (
	"context"
	"errors"
	"testing"
	"time"

	"warden/cmd/internal/cursor"
)

// sliceSource pages over a fixed int slice and counts queries, to prove the
// coordinator re-queries instead of caching.
type sliceSource struct {
	items   []int
	fetches int
}

func (s *sliceSource) FetchPage(_ context.Context, _ []string, page, size int) ([]int, int, error) {
	s.fetches++
	start := (page - 1) * size
	if start >= len(s.items) {
		return nil, len(s.items), nil
	}
	end := start + size
	if end > len(s.items) {
		end = len(s.items)
	}
	return s.items[start:end], len(s.items), nil
}

func ints(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func tokenFor(t *testing.T, controls []Control, action Action) string {
	t.Helper()
	for _, c := range controls {
		if c.Action == action {
			return c.Token
		}
	}
	t.Fatalf("no %s control in %v", action, controls)
	return ""
}

func newTestCoordinator(t *testing.T, src Source[int], opts ...Option[int]) *Coordinator[int] {
	t.Helper()
	c, err := NewCoordinator(src, opts...)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	return c
}

func TestOpen_FirstPage(t *testing.T) {
	t.Parallel()

	src := &sliceSource{items: ints(1, 23)}
	c := newTestCoordinator(t, src, WithPageSize[int](10))
	ctx := context.Background()

	view, controls, err := c.Open(ctx, "g1", "", "", "live")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if view.CurrentPage != 1 || view.TotalPages != 3 || view.TotalCount != 23 {
		t.Fatalf("view=%+v", view)
	}
	if len(view.Items) != 10 || view.Items[0] != 1 {
		t.Fatalf("items=%v", view.Items)
	}
	if len(controls) != 5 {
		t.Fatalf("controls=%v", controls)
	}
	for _, ctl := range controls {
		switch ctl.Action {
		case ActionFirst, ActionPrev:
			if !ctl.Disabled {
				t.Fatalf("%s should be disabled on page 1", ctl.Action)
			}
		case ActionNext, ActionLast:
			if ctl.Disabled {
				t.Fatalf("%s should be enabled on page 1", ctl.Action)
			}
		}
	}
}

func TestActivate_WalksPages(t *testing.T) {
	t.Parallel()

	src := &sliceSource{items: ints(1, 23)}
	c := newTestCoordinator(t, src, WithPageSize[int](10))
	ctx := context.Background()

	_, controls, err := c.Open(ctx, "g1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	view, controls, err := c.Activate(ctx, tokenFor(t, controls, ActionNext), ActionNext, time.Time{})
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if view.CurrentPage != 2 || view.Items[0] != 11 {
		t.Fatalf("after next: %+v", view)
	}

	view, controls, err = c.Activate(ctx, tokenFor(t, controls, ActionLast), ActionLast, time.Time{})
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if view.CurrentPage != 3 || len(view.Items) != 3 {
		t.Fatalf("after last: %+v", view)
	}

	// Next clamps at totalPages, prev walks back, first jumps home.
	view, controls, err = c.Activate(ctx, tokenFor(t, controls, ActionNext), ActionNext, time.Time{})
	if err != nil || view.CurrentPage != 3 {
		t.Fatalf("next at last: page=%d err=%v", view.CurrentPage, err)
	}
	view, controls, err = c.Activate(ctx, tokenFor(t, controls, ActionPrev), ActionPrev, time.Time{})
	if err != nil || view.CurrentPage != 2 {
		t.Fatalf("prev: page=%d err=%v", view.CurrentPage, err)
	}
	view, _, err = c.Activate(ctx, tokenFor(t, controls, ActionFirst), ActionFirst, time.Time{})
	if err != nil || view.CurrentPage != 1 {
		t.Fatalf("first: page=%d err=%v", view.CurrentPage, err)
	}
}

func TestActivate_PrevClampsAtOne(t *testing.T) {
	t.Parallel()

	src := &sliceSource{items: ints(1, 5)}
	c := newTestCoordinator(t, src)
	ctx := context.Background()

	_, controls, err := c.Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	view, _, err := c.Activate(ctx, tokenFor(t, controls, ActionPrev), ActionPrev, time.Time{})
	if err != nil || view.CurrentPage != 1 {
		t.Fatalf("prev at first: page=%d err=%v", view.CurrentPage, err)
	}
}

func TestActivate_RefreshSeesShrunkenData(t *testing.T) {
	t.Parallel()

	src := &sliceSource{items: ints(1, 23)}
	c := newTestCoordinator(t, src, WithPageSize[int](10))
	ctx := context.Background()

	_, controls, err := c.Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, controls, err = c.Activate(ctx, tokenFor(t, controls, ActionLast), ActionLast, time.Time{})
	if err != nil {
		t.Fatalf("last: %v", err)
	}

	// Records were deleted concurrently; the stale page 3 token must clamp
	// down to the new total rather than render an empty page.
	src.items = ints(1, 8)
	view, _, err := c.Activate(ctx, tokenFor(t, controls, ActionRefresh), ActionRefresh, time.Time{})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if view.CurrentPage != 1 || view.TotalPages != 1 || view.TotalCount != 8 {
		t.Fatalf("after shrink: %+v", view)
	}
}

func TestActivate_AlwaysRequeries(t *testing.T) {
	t.Parallel()

	src := &sliceSource{items: ints(1, 30)}
	c := newTestCoordinator(t, src, WithPageSize[int](10))
	ctx := context.Background()

	_, controls, err := c.Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	before := src.fetches
	if _, _, err := c.Activate(ctx, tokenFor(t, controls, ActionRefresh), ActionRefresh, time.Time{}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if src.fetches <= before {
		t.Fatalf("refresh did not re-query (fetches=%d)", src.fetches)
	}
}

func TestActivate_InvalidTokenIsNoOp(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(t, &sliceSource{items: ints(1, 5)})
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "v1:zero"} {
		if _, _, err := c.Activate(ctx, token, ActionNext, time.Time{}); !errors.Is(err, cursor.ErrInvalidToken) {
			t.Fatalf("token=%q err=%v want=%v", token, err, cursor.ErrInvalidToken)
		}
	}
}

func TestActivate_StaleInteractionDropped(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	src := &sliceSource{items: ints(1, 5)}
	c := newTestCoordinator(t, src,
		WithValidity[int](15*time.Minute),
		WithClock[int](func() time.Time { return now }),
	)
	ctx := context.Background()

	_, controls, err := c.Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	token := tokenFor(t, controls, ActionRefresh)

	before := src.fetches
	_, _, err = c.Activate(ctx, token, ActionRefresh, now.Add(-16*time.Minute))
	if !errors.Is(err, ErrStaleInteraction) {
		t.Fatalf("err=%v want=%v", err, ErrStaleInteraction)
	}
	if src.fetches != before {
		t.Fatalf("stale activation caused a query")
	}

	// Inside the window it proceeds.
	if _, _, err := c.Activate(ctx, token, ActionRefresh, now.Add(-14*time.Minute)); err != nil {
		t.Fatalf("fresh activation: %v", err)
	}
}

func TestTotalPages_EmptyResultIsOnePage(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(t, &sliceSource{})
	view, controls, err := c.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if view.TotalPages != 1 || view.CurrentPage != 1 || view.TotalCount != 0 {
		t.Fatalf("view=%+v", view)
	}
	for _, ctl := range controls {
		if ctl.Action != ActionRefresh && !ctl.Disabled {
			t.Fatalf("%s should be disabled with no data", ctl.Action)
		}
	}
}
