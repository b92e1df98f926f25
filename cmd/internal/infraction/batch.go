package infraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"warden/cmd/internal/audit"
)

// Action identifies a batch mutation direction.
type Action string

const (
	ActionArchive Action = "archive"
	ActionRestore Action = "restore"
)

// Outcome classifies one requested identity. The five outcomes partition the
// deduplicated input exactly once each.
type Outcome string

const (
	OutcomeMutated   Outcome = "mutated"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeForbidden Outcome = "forbidden"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Authorizer is the external authorization predicate. The engine consumes
// only the boolean results.
type Authorizer interface {
	IsElevated(ctx context.Context, guildID, actorID string) bool
	IsOwner(actorID string, rec Infraction) bool
}

// Report is the per-identity breakdown of one batch. Batches are never
// all-or-nothing: partial success is preserved and reported, so callers
// always render a breakdown rather than one pass/fail verdict.
type Report struct {
	Action  Action
	GuildID string
	ActorID string

	Mutated   []int64
	NotFound  []int64
	Forbidden []int64
	Failed    []int64
	Skipped   []int64

	// Details carries post-mutation payloads for mutated identities, bounded
	// for paged display.
	Details []Infraction
}

// Summary returns counts per outcome.
func (r Report) Summary() map[Outcome]int {
	return map[Outcome]int{
		OutcomeMutated:   len(r.Mutated),
		OutcomeNotFound:  len(r.NotFound),
		OutcomeForbidden: len(r.Forbidden),
		OutcomeFailed:    len(r.Failed),
		OutcomeSkipped:   len(r.Skipped),
	}
}

const (
	defaultBatchCap  = 50
	defaultDetailCap = 25
)

// Engine performs authorized batch archive/restore over shared records with
// member-level atomicity: each identity runs its own transaction, so one
// conflicting identity cannot roll back unrelated successes.
type Engine struct {
	store     Store
	auth      Authorizer
	recorder  *audit.Recorder
	batchCap  int
	detailCap int
	now       func() time.Time
	log       *slog.Logger
}

// EngineOption configures the Engine.
type EngineOption func(*Engine) error

// WithBatchCap sets the max identities processed per batch; overflow is
// classified skipped without processing.
func WithBatchCap(n int) EngineOption {
	return func(e *Engine) error {
		if n <= 0 {
			return ErrInvalidInput
		}
		e.batchCap = n
		return nil
	}
}

// WithDetailCap bounds the full per-record detail entries kept on a report.
func WithDetailCap(n int) EngineOption {
	return func(e *Engine) error {
		if n <= 0 {
			return ErrInvalidInput
		}
		e.detailCap = n
		return nil
	}
}

// WithRecorder attaches an audit recorder.
func WithRecorder(r *audit.Recorder) EngineOption {
	return func(e *Engine) error {
		e.recorder = r
		return nil
	}
}

// WithEngineClock injects the time source (tests).
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) error {
		if now == nil {
			return ErrInvalidInput
		}
		e.now = now
		return nil
	}
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) error {
		if log == nil {
			return ErrInvalidInput
		}
		e.log = log
		return nil
	}
}

// NewEngine constructs an Engine.
func NewEngine(store Store, auth Authorizer, opts ...EngineOption) (*Engine, error) {
	if store == nil || auth == nil {
		return nil, ErrInvalidInput
	}
	e := &Engine{
		store:     store,
		auth:      auth,
		batchCap:  defaultBatchCap,
		detailCap: defaultDetailCap,
		now:       func() time.Time { return time.Now().UTC() },
		log:       slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Archive soft-deletes the requested identities on behalf of actorID.
func (e *Engine) Archive(ctx context.Context, guildID, actorID string, ids []int64) (Report, error) {
	return e.run(ctx, ActionArchive, guildID, actorID, ids)
}

// Restore undoes prior archives, reproducing the original identities.
func (e *Engine) Restore(ctx context.Context, guildID, actorID string, ids []int64) (Report, error) {
	return e.run(ctx, ActionRestore, guildID, actorID, ids)
}

func (e *Engine) run(ctx context.Context, action Action, guildID, actorID string, ids []int64) (Report, error) {
	if strings.TrimSpace(guildID) == "" || strings.TrimSpace(actorID) == "" {
		return Report{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	r := Report{Action: action, GuildID: guildID, ActorID: actorID}

	wanted := DedupeIDs(ids)
	if len(wanted) > e.batchCap {
		r.Skipped = wanted[e.batchCap:]
		wanted = wanted[:e.batchCap]
	}
	if len(wanted) == 0 {
		return r, nil
	}

	// One guild-scoped batch fetch; cross-guild identities never resolve.
	candidates, err := e.fetchCandidates(ctx, action, guildID, wanted)
	if err != nil {
		return Report{}, fmt.Errorf("batch %s: fetch candidates: %w", action, err)
	}

	elevated := e.auth.IsElevated(ctx, guildID, actorID)
	now := e.now()

	for _, id := range wanted {
		cand, ok := candidates[id]
		if !ok {
			r.NotFound = append(r.NotFound, id)
			continue
		}
		if !elevated && !e.auth.IsOwner(actorID, cand) {
			r.Forbidden = append(r.Forbidden, id)
			continue
		}

		rec, err := e.mutate(ctx, action, guildID, id, actorID, now)
		switch {
		case err == nil:
			r.Mutated = append(r.Mutated, id)
			if len(r.Details) < e.detailCap {
				r.Details = append(r.Details, rec)
			}
		case errors.Is(err, ErrDuplicateID), errors.Is(err, ErrNotFound):
			// A concurrent batch won the race for this identity. Only this
			// item fails; the batch keeps going and nothing is retried.
			r.Failed = append(r.Failed, id)
		default:
			// Store unavailability aborts the whole batch. Items already
			// mutated stay committed; the caller retries wholesale.
			return Report{}, fmt.Errorf("batch %s id %d: %w", action, id, err)
		}
	}

	if len(r.Mutated) > 0 && e.recorder != nil {
		e.recorder.Record(ctx, audit.Entry{
			GuildID:   guildID,
			ActorID:   actorID,
			Action:    "infraction." + string(action),
			TargetIDs: r.Mutated,
			At:        now,
		})
	}

	e.log.Info("batch."+string(action),
		"guild", guildID,
		"actor", actorID,
		"mutated", len(r.Mutated),
		"not_found", len(r.NotFound),
		"forbidden", len(r.Forbidden),
		"failed", len(r.Failed),
		"skipped", len(r.Skipped),
	)
	return r, nil
}

// fetchCandidates resolves the requested identities on the action's source
// side and exposes them keyed by id for partitioning.
func (e *Engine) fetchCandidates(ctx context.Context, action Action, guildID string, ids []int64) (map[int64]Infraction, error) {
	out := make(map[int64]Infraction, len(ids))
	switch action {
	case ActionArchive:
		recs, err := e.store.FetchByIDs(ctx, guildID, ids)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			out[rec.ID] = rec
		}
	case ActionRestore:
		recs, err := e.store.FetchArchivedByIDs(ctx, guildID, ids)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			out[rec.ID] = rec.Infraction
		}
	default:
		return nil, ErrInvalidInput
	}
	return out, nil
}

func (e *Engine) mutate(ctx context.Context, action Action, guildID string, id int64, actorID string, now time.Time) (Infraction, error) {
	if action == ActionArchive {
		rec, err := e.store.Archive(ctx, guildID, id, actorID, now)
		if err != nil {
			return Infraction{}, err
		}
		return rec.Infraction, nil
	}
	return e.store.Restore(ctx, guildID, id)
}

// DedupeIDs collapses duplicates preserving first-seen order.
func DedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ParseIDs parses user-supplied identity lists ("5 7 999" or "5,7,999").
func ParseIDs(input string) ([]int64, error) {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil, ErrInvalidInput
	}
	out := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil || id <= 0 {
			return nil, ErrInvalidInput
		}
		out = append(out, id)
	}
	return out, nil
}
