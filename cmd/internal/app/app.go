// Package app wires the warden runtime: config, logging, metrics, stores,
// the admission gate, the batch mutation engine, and paged history views.
//
// The chat-platform connection itself is an external collaborator: a platform
// adapter drives the Run* methods below and owns all rendering.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"warden/cmd/internal/admission"
	"warden/cmd/internal/audit"
	"warden/cmd/internal/cursor"
	"warden/cmd/internal/infraction"
	"warden/cmd/internal/paging"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ErrDenied wraps an admission denial for callers that prefer error flow;
// the Verdict itself is returned alongside for rendering the wait estimate.
var ErrDenied = errors.New("command denied by admission controller")

// App owns the warden runtime wiring and the HTTP observability surface.
type App struct {
	cfg Config
	log Logger

	metrics *Metrics

	dbPool    *pgxpool.Pool
	dbEnabled bool
	rdb       *redis.Client

	store      infraction.Store
	auditStore audit.Store

	gate    *admission.Controller
	svc     *infraction.Service
	engine  *infraction.Engine
	history *paging.Coordinator[infraction.Infraction]
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	metrics := NewMetrics()

	a := &App{cfg: cfg, log: log, metrics: metrics}

	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		a.store = infraction.NewMemoryStore()
		a.auditStore = audit.NewMemoryStore()
	} else {
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("db.enabled.postgres_store")

		store, err := infraction.NewPostgresStore(pool, infraction.WithSchema(cfg.DBSchema))
		if err != nil {
			pool.Close()
			return nil, err
		}
		auditStore, err := audit.NewPostgresStore(pool, audit.WithSchema(cfg.DBSchema))
		if err != nil {
			pool.Close()
			return nil, err
		}

		a.dbPool = pool
		a.dbEnabled = true
		a.store = store
		a.auditStore = auditStore
	}

	stateStore, err := a.newAdmissionStateStore(ctx, cfg, log)
	if err != nil {
		a.closeStores()
		return nil, err
	}

	gate, err := admission.NewController(stateStore,
		admission.WithLogger(log),
		admission.WithObserver(metrics.ObserveAdmission),
	)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	a.gate = gate

	svc, err := infraction.NewService(a.store)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	a.svc = svc

	engine, err := infraction.NewEngine(a.store, newEnvAuthorizer(cfg.ElevatedActors),
		infraction.WithBatchCap(cfg.BatchCap),
		infraction.WithDetailCap(cfg.DetailCap),
		infraction.WithRecorder(audit.NewRecorder(a.auditStore, log)),
		infraction.WithEngineLogger(log),
	)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	a.engine = engine

	src, err := infraction.NewHistorySource(a.store)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	history, err := paging.NewCoordinator[infraction.Infraction](src,
		paging.WithPageSize[infraction.Infraction](cfg.PageSize),
	)
	if err != nil {
		a.closeStores()
		return nil, err
	}
	a.history = history

	return a, nil
}

// newAdmissionStateStore picks the admission backing store: a shared Redis
// store when configured, the in-process map otherwise.
func (a *App) newAdmissionStateStore(ctx context.Context, cfg Config, log Logger) (admission.StateStore, error) {
	if cfg.RedisAddr == "" {
		return admission.NewMemoryStore(), nil
	}

	rdb, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.rdb = rdb
	log.Info("admission.redis_store", "addr", cfg.RedisAddr)
	return admission.NewRedisStore(rdb)
}

// RunLog gates and executes one record-creation command.
func (a *App) RunLog(ctx context.Context, in infraction.LogInput) (infraction.Infraction, admission.Verdict, error) {
	v := a.gate.Check(ctx, in.ActorID, admission.CommandLog)
	if !v.Allowed {
		return infraction.Infraction{}, v, ErrDenied
	}

	rec, err := a.svc.Log(ctx, in)
	if err != nil {
		return infraction.Infraction{}, v, err
	}
	a.gate.Record(ctx, in.ActorID, admission.CommandLog)
	return rec, v, nil
}

// RunArchive gates and executes one batch soft-delete command.
func (a *App) RunArchive(ctx context.Context, guildID, actorID string, ids []int64) (infraction.Report, admission.Verdict, error) {
	return a.runBatch(ctx, admission.CommandRemove, guildID, actorID, ids, a.engine.Archive)
}

// RunRestore gates and executes one batch restore command.
func (a *App) RunRestore(ctx context.Context, guildID, actorID string, ids []int64) (infraction.Report, admission.Verdict, error) {
	return a.runBatch(ctx, admission.CommandRestore, guildID, actorID, ids, a.engine.Restore)
}

func (a *App) runBatch(
	ctx context.Context,
	kind admission.CommandKind,
	guildID, actorID string,
	ids []int64,
	run func(context.Context, string, string, []int64) (infraction.Report, error),
) (infraction.Report, admission.Verdict, error) {
	v := a.gate.Check(ctx, actorID, kind)
	if !v.Allowed {
		return infraction.Report{}, v, ErrDenied
	}

	r, err := run(ctx, guildID, actorID, ids)
	if err != nil {
		return infraction.Report{}, v, err
	}
	a.gate.Record(ctx, actorID, kind)
	a.metrics.ObserveBatch(r)
	return r, v, nil
}

// OpenHistory services the initial history command for one guild-scoped query.
func (a *App) OpenHistory(ctx context.Context, actorID string, q infraction.Query) (paging.View[infraction.Infraction], []paging.Control, admission.Verdict, error) {
	v := a.gate.Check(ctx, actorID, admission.CommandList)
	if !v.Allowed {
		return paging.View[infraction.Infraction]{}, nil, v, ErrDenied
	}

	view, controls, err := a.history.Open(ctx, infraction.HistoryParams(q)...)
	if err != nil {
		return paging.View[infraction.Infraction]{}, nil, v, err
	}
	a.gate.Record(ctx, actorID, admission.CommandList)
	return view, controls, v, nil
}

// ActivateHistory services a paging control activation. Invalid tokens and
// stale interactions come back as cursor.ErrInvalidToken and
// paging.ErrStaleInteraction; callers drop both as silent no-ops.
func (a *App) ActivateHistory(ctx context.Context, token string, action paging.Action, issuedAt time.Time) (paging.View[infraction.Infraction], []paging.Control, error) {
	view, controls, err := a.history.Activate(ctx, token, action, issuedAt)
	if err != nil {
		if errors.Is(err, cursor.ErrInvalidToken) || errors.Is(err, paging.ErrStaleInteraction) {
			a.log.Debug("paging.activation.dropped", "err", err)
		}
		return paging.View[infraction.Infraction]{}, nil, err
	}
	a.metrics.PageActivations.WithLabelValues(string(action)).Inc()
	return view, controls, nil
}

// AuditTrail exposes the newest audit entries for one guild.
func (a *App) AuditTrail(ctx context.Context, guildID string, limit int) ([]audit.Entry, error) {
	return a.auditStore.ListRecent(ctx, guildID, limit)
}

// Run starts the observability HTTP server and the admission janitor, then
// blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	a.gate.StartJanitor(ctx, a.cfg.AdmissionSweepEvery)

	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.closeStores()
	a.log.Info("server.stopped")
	return nil
}

func (a *App) closeStores() {
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.auditStore != nil {
		_ = a.auditStore.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
