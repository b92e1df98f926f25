package admission

import (
	"context"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{
		Window:       10 * time.Second,
		MaxPerWindow: 3,
		BaseCooldown: 5 * time.Second,
		DecayWindow:  10 * time.Minute,
		Tiers: []Tier{
			{Violations: 1, Multiplier: 1},
			{Violations: 2, Multiplier: 2},
			{Violations: 3, Multiplier: 4},
			{Violations: 5, Block: 5 * time.Minute},
		},
	}
}

func TestEvaluate_BurstAfterWindowFull(t *testing.T) {
	t.Parallel()

	p := testPolicy()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var st State
	st = recordUsage(base, p, st)
	st = recordUsage(base.Add(1*time.Second), p, st)
	st = recordUsage(base.Add(2*time.Second), p, st)

	v, st := evaluate(base.Add(3*time.Second), p, st)
	if v.Allowed {
		t.Fatalf("expected 4th request inside window to be denied")
	}
	if v.Reason != ReasonBurst {
		t.Fatalf("reason=%q want=%q", v.Reason, ReasonBurst)
	}
	if v.Violations != 1 {
		t.Fatalf("violations=%d want=1", v.Violations)
	}
	// Burst clears when the oldest usage (t=0) leaves the 10s window.
	if v.RetryAfter != 7*time.Second {
		t.Fatalf("retryAfter=%v want=7s", v.RetryAfter)
	}
	if st.Violations != 1 {
		t.Fatalf("state violations=%d want=1", st.Violations)
	}
}

func TestEvaluate_ViolationsNonDecreasingUntilDecay(t *testing.T) {
	t.Parallel()

	p := testPolicy()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var st State
	for i := 0; i < 3; i++ {
		st = recordUsage(base.Add(time.Duration(i)*time.Second), p, st)
	}

	var v Verdict
	v, st = evaluate(base.Add(3*time.Second), p, st)
	if v.Violations != 1 {
		t.Fatalf("violations=%d want=1", v.Violations)
	}
	v, st = evaluate(base.Add(4*time.Second), p, st)
	if v.Violations != 2 {
		t.Fatalf("violations=%d want=2", v.Violations)
	}

	// Inside the decay window the counter never resets.
	v, st = evaluate(base.Add(5*time.Minute), p, st)
	if v.Violations != 2 {
		t.Fatalf("violations after 5m=%d want=2", v.Violations)
	}

	// Past the decay window with no further violations it resets to zero.
	v, _ = evaluate(base.Add(25*time.Minute), p, st)
	if v.Violations != 0 {
		t.Fatalf("violations after decay=%d want=0", v.Violations)
	}
	if !v.Allowed {
		t.Fatalf("expected allow after decay, got %q", v.Reason)
	}
}

func TestEvaluate_CooldownScalesWithTier(t *testing.T) {
	t.Parallel()

	p := testPolicy()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	st := State{
		Usages:        []time.Time{base},
		Violations:    2, // tier multiplier 2 -> effective cooldown 10s
		LastViolation: base,
	}

	v, _ := evaluate(base.Add(7*time.Second), p, st)
	if v.Allowed || v.Reason != ReasonCooldown {
		t.Fatalf("expected cooldown denial, got allowed=%v reason=%q", v.Allowed, v.Reason)
	}
	if v.RetryAfter != 3*time.Second {
		t.Fatalf("retryAfter=%v want=3s", v.RetryAfter)
	}

	v, _ = evaluate(base.Add(11*time.Second), p, st)
	if !v.Allowed {
		t.Fatalf("expected allow past scaled cooldown, got %q", v.Reason)
	}
}

func TestEvaluate_HardBlockTier(t *testing.T) {
	t.Parallel()

	p := testPolicy()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	st := State{
		Usages: []time.Time{
			base.Add(-2 * time.Second),
			base.Add(-1 * time.Second),
			base,
		},
		Violations:    4,
		LastViolation: base,
	}

	v, st := evaluate(base.Add(1*time.Second), p, st)
	if v.Reason != ReasonBlocked {
		t.Fatalf("reason=%q want=%q", v.Reason, ReasonBlocked)
	}
	if v.RetryAfter != 5*time.Minute {
		t.Fatalf("retryAfter=%v want=5m", v.RetryAfter)
	}

	// While the block holds, every check is denied with the remaining time.
	v, _ = evaluate(base.Add(2*time.Minute), p, st)
	if v.Reason != ReasonBlocked {
		t.Fatalf("reason during block=%q want=%q", v.Reason, ReasonBlocked)
	}
	if v.RetryAfter != 3*time.Minute+1*time.Second {
		t.Fatalf("retryAfter during block=%v", v.RetryAfter)
	}
}

func TestEvaluate_CooldownAfterBlockExpiryKeepsEscalation(t *testing.T) {
	t.Parallel()

	p := testPolicy()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// The actor climbed every tier and sat out the 5m hard block; the decay
	// window has not elapsed, so the escalation history still applies.
	st := State{
		Violations:    5,
		LastViolation: base,
		BlockedUntil:  base.Add(5 * time.Minute),
	}

	expiry := base.Add(5 * time.Minute)
	st = recordUsage(expiry.Add(1*time.Second), p, st)

	v, _ := evaluate(expiry.Add(2*time.Second), p, st)
	if v.Allowed {
		t.Fatalf("expected cooldown denial right after block expiry, got allow")
	}
	if v.Reason != ReasonCooldown {
		t.Fatalf("reason=%q want=%q", v.Reason, ReasonCooldown)
	}
	// Post-block cooldown keeps the highest multiplier tier reached (x4):
	// 20s cooldown minus the 1s already elapsed.
	if v.RetryAfter != 19*time.Second {
		t.Fatalf("retryAfter=%v want=19s", v.RetryAfter)
	}
	if v.Violations != 5 {
		t.Fatalf("violations=%d want=5", v.Violations)
	}
}

func TestCooldownMultiplier_BlockTierNeverLowersScaling(t *testing.T) {
	t.Parallel()

	p := testPolicy()
	cases := []struct {
		violations int
		want       float64
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 4}, // block tier reached; scaling stays at the x4 tier below it
		{9, 4},
	}
	for _, tc := range cases {
		if got := p.cooldownMultiplier(tc.violations); got != tc.want {
			t.Fatalf("cooldownMultiplier(%d)=%v want=%v", tc.violations, got, tc.want)
		}
	}
}

func TestController_ScenarioBurst(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	clock := func() time.Time { return now }

	ctrl, err := NewController(NewMemoryStore(),
		WithClock(clock),
		WithPolicy(CommandRemove, testPolicy()),
	)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		now = base.Add(time.Duration(i) * time.Second)
		ctrl.Record(ctx, "actor-1", CommandRemove)
	}

	now = base.Add(3 * time.Second)
	v := ctrl.Check(ctx, "actor-1", CommandRemove)
	if v.Allowed || v.Reason != ReasonBurst || v.Violations != 1 {
		t.Fatalf("verdict=%+v want burst with 1 violation", v)
	}

	// Other actors and other commands are unaffected.
	if v := ctrl.Check(ctx, "actor-2", CommandRemove); !v.Allowed {
		t.Fatalf("unrelated actor denied: %+v", v)
	}
	if v := ctrl.Check(ctx, "actor-1", CommandList); !v.Allowed {
		t.Fatalf("unrelated command denied: %+v", v)
	}
}

func TestMemoryStore_SweepRemovesIdleOnly(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore()
	ctx := context.Background()

	_, _ = st.Update(ctx, Key{ActorID: "a", Command: CommandLog}, func(s State) State { return s })
	_, _ = st.Update(ctx, Key{ActorID: "b", Command: CommandLog}, func(s State) State { return s })
	if st.Len() != 2 {
		t.Fatalf("len=%d want=2", st.Len())
	}

	// Nothing is idle yet.
	if n := st.Sweep(ctx, time.Now(), time.Hour); n != 0 {
		t.Fatalf("sweep removed %d, want 0", n)
	}

	// Everything is idle relative to a far-future now.
	if n := st.Sweep(ctx, time.Now().Add(48*time.Hour), time.Hour); n != 2 {
		t.Fatalf("sweep removed %d, want 2", n)
	}
	if st.Len() != 0 {
		t.Fatalf("len after sweep=%d want=0", st.Len())
	}
}

func TestRecordUsage_BoundsHistory(t *testing.T) {
	t.Parallel()

	p := testPolicy()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var st State
	for i := 0; i < 100; i++ {
		st = recordUsage(base.Add(time.Duration(i)*time.Second), p, st)
	}
	// Only timestamps inside one window survive.
	if len(st.Usages) > int(p.Window/time.Second)+1 {
		t.Fatalf("history not bounded: %d entries", len(st.Usages))
	}
}
