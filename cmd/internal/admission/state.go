package admission

import "time"

// Reason classifies a denial.
type Reason string

const (
	ReasonCooldown Reason = "cooldown"
	ReasonBurst    Reason = "burst"
	ReasonBlocked  Reason = "blocked"
)

// Verdict is the outcome of one admission check. A denial is data, not an
// error: callers treat it as "do not proceed" and report RetryAfter.
type Verdict struct {
	Allowed    bool
	Reason     Reason
	RetryAfter time.Duration
	Violations int
}

// State is the per-(actor, command) throttle history. It is a value type so
// evaluate can stay pure; stores persist it as-is.
type State struct {
	Usages        []time.Time `json:"usages"`
	Violations    int         `json:"violations"`
	LastViolation time.Time   `json:"last_violation"`
	BlockedUntil  time.Time   `json:"blocked_until"`
}

// evaluate decides one admission check. It never mutates the input slice
// header it was handed beyond pruning, performs no I/O, and cannot fail.
func evaluate(now time.Time, p Policy, st State) (Verdict, State) {
	if now.Before(st.BlockedUntil) {
		return Verdict{
			Reason:     ReasonBlocked,
			RetryAfter: st.BlockedUntil.Sub(now),
			Violations: st.Violations,
		}, st
	}
	st.BlockedUntil = time.Time{}

	st.Usages = pruneBefore(st.Usages, now.Add(-p.Window))

	if len(st.Usages) >= p.MaxPerWindow {
		st.Violations++
		st.LastViolation = now

		tier := p.tierFor(st.Violations)
		if tier.Block > 0 {
			st.BlockedUntil = now.Add(tier.Block)
			return Verdict{
				Reason:     ReasonBlocked,
				RetryAfter: tier.Block,
				Violations: st.Violations,
			}, st
		}

		// The burst clears once the oldest usage leaves the window.
		retry := p.Window - now.Sub(st.Usages[0])
		if retry < 0 {
			retry = 0
		}
		return Verdict{
			Reason:     ReasonBurst,
			RetryAfter: retry,
			Violations: st.Violations,
		}, st
	}

	if st.Violations > 0 && now.Sub(st.LastViolation) > p.DecayWindow {
		st.Violations = 0
	}

	cooldown := time.Duration(float64(p.BaseCooldown) * p.cooldownMultiplier(st.Violations))
	if n := len(st.Usages); n > 0 && cooldown > 0 {
		since := now.Sub(st.Usages[n-1])
		if since < cooldown {
			return Verdict{
				Reason:     ReasonCooldown,
				RetryAfter: cooldown - since,
				Violations: st.Violations,
			}, st
		}
	}

	return Verdict{Allowed: true, Violations: st.Violations}, st
}

// recordUsage appends one completed usage, keeping at most a window's worth
// of timestamps per key.
func recordUsage(now time.Time, p Policy, st State) State {
	st.Usages = append(pruneBefore(st.Usages, now.Add(-p.Window)), now)
	return st
}

func pruneBefore(ts []time.Time, cut time.Time) []time.Time {
	dst := ts[:0]
	for _, t := range ts {
		if t.After(cut) {
			dst = append(dst, t)
		}
	}
	return dst
}
