package admission

import "time"

// CommandKind identifies a throttled command family.
type CommandKind string

const (
	CommandLog     CommandKind = "log"
	CommandRemove  CommandKind = "remove"
	CommandRestore CommandKind = "restore"
	CommandList    CommandKind = "list"
)

// Tier is one escalation step. It applies once the violation counter reaches
// Violations. A tier either scales the base cooldown (Multiplier) or imposes
// a fixed hard block (Block); Block wins when both are set.
type Tier struct {
	Violations int
	Multiplier float64
	Block      time.Duration
}

// Policy holds the throttle parameters for one command kind.
type Policy struct {
	// Window is the sliding window burst usage is counted over.
	Window time.Duration

	// MaxPerWindow is the permitted usage count inside one window.
	MaxPerWindow int

	// BaseCooldown is the minimum spacing between two usages before any
	// escalation multiplier is applied.
	BaseCooldown time.Duration

	// DecayWindow is how long an actor must stay violation-free before the
	// violation counter resets to zero.
	DecayWindow time.Duration

	// Tiers must be ordered ascending by Violations.
	Tiers []Tier
}

// DefaultPolicy returns the throttle parameters used when a command kind has
// no explicit override.
func DefaultPolicy() Policy {
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

// tierFor returns the highest tier reached by the given violation count.
// Zero violations map to a neutral multiplier.
func (p Policy) tierFor(violations int) Tier {
	t := Tier{Multiplier: 1}
	for _, cand := range p.Tiers {
		if violations >= cand.Violations {
			t = cand
		}
	}
	if t.Block == 0 && t.Multiplier <= 0 {
		t.Multiplier = 1
	}
	return t
}

// cooldownMultiplier returns the base-cooldown scaling for the given
// violation count. Block tiers carry no multiplier, so the walk keeps the
// largest multiplier reached: an actor whose hard block just expired must
// never land below the multiplier tiers it already climbed through.
func (p Policy) cooldownMultiplier(violations int) float64 {
	m := 1.0
	for _, t := range p.Tiers {
		if violations >= t.Violations && t.Multiplier > m {
			m = t.Multiplier
		}
	}
	return m
}

// normalized fills zero fields with the defaults so a partially specified
// override cannot disable the gate.
func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.Window <= 0 {
		p.Window = def.Window
	}
	if p.MaxPerWindow <= 0 {
		p.MaxPerWindow = def.MaxPerWindow
	}
	if p.BaseCooldown <= 0 {
		p.BaseCooldown = def.BaseCooldown
	}
	if p.DecayWindow <= 0 {
		p.DecayWindow = def.DecayWindow
	}
	if len(p.Tiers) == 0 {
		p.Tiers = def.Tiers
	}
	return p
}
