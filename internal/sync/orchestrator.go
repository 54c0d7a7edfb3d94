// Package sync keeps the local catalog in step with the active source. For
// each content kind it runs at most one fetch, parse, and write cycle at a
// time, and publishes the outcome on a per-kind StateStream.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
	"github.com/tonimelisma/iptv-sync/internal/jsonstream"
	"github.com/tonimelisma/iptv-sync/internal/store"
	"github.com/tonimelisma/iptv-sync/internal/xtream"
)

// Defaults applied by NewOrchestrator to zero Config fields.
const (
	DefaultFlushThreshold = 5000
	DefaultSyncTimeout    = 5 * time.Minute
	DefaultFallbackTTL    = 7 * 24 * time.Hour
)

// Remote is the catalog API of one source. Satisfied by *xtream.Client and
// *xtream.BreakerClient.
type Remote interface {
	ListCategories(ctx context.Context, kind catalog.Kind) ([]xtream.Category, error)
	OpenCatalog(ctx context.Context, kind catalog.Kind) (io.ReadCloser, error)
}

// Source is the provider the orchestrator syncs from.
type Source struct {
	ID     string
	Remote Remote
}

// SourceProvider resolves the active source at the start of each sync.
// Returns ErrNoActiveSource when none is configured.
type SourceProvider interface {
	ActiveSource() (Source, error)
}

// StaticSource is a SourceProvider that always returns itself.
type StaticSource Source

// ActiveSource returns the source, or ErrNoActiveSource if it is incomplete.
func (s StaticSource) ActiveSource() (Source, error) {
	if s.ID == "" || s.Remote == nil {
		return Source{}, ErrNoActiveSource
	}

	return Source(s), nil
}

// Store is the persistence the orchestrator writes through. Satisfied by
// *store.Store.
type Store interface {
	GetMetadata(ctx context.Context, sourceID string, kind catalog.Kind) (catalog.CacheMetadata, bool, error)
	PutMetadata(ctx context.Context, md catalog.CacheMetadata) error
	DeleteMetadata(ctx context.Context, sourceID string, kind catalog.Kind) error
	ReplaceCategories(ctx context.Context, sourceID string, kind catalog.Kind, cats []catalog.Category) error
	BeginBulk(ctx context.Context, kind catalog.Kind) (*store.BulkSession, error)
	DeleteSourcePreserving(ctx context.Context, kind catalog.Kind, sourceID string) (catalog.Preserved, int64, error)
	ClearSource(ctx context.Context, sourceID string) error
	Count(ctx context.Context, kind catalog.Kind, sourceID string) (int, error)
	WriteChannels(ctx context.Context, rows []catalog.Channel) error
	WriteMovies(ctx context.Context, rows []catalog.Movie) error
	WriteSeries(ctx context.Context, rows []catalog.SeriesItem) error
}

// NavInvalidator drops derived navigation trees when categories change.
type NavInvalidator interface {
	Invalidate(ctx context.Context, sourceID string, kind catalog.Kind) error
}

// Config holds the inputs for NewOrchestrator.
type Config struct {
	Store        Store
	Sources      SourceProvider
	Precondition Precondition   // nil means AlwaysReady
	NavTree      NavInvalidator // optional

	BatchSize      int           // records per parser callback
	FlushThreshold int           // records per write transaction
	SyncTimeout    time.Duration // budget for the whole locked section
	FallbackTTL    time.Duration // non-forced syncs skip the fetch while metadata is younger
	RetryAttempts  int

	Logger *slog.Logger
}

// kindSyncer is the per-kind serialization state.
type kindSyncer struct {
	spec    kindSpec
	mu      gosync.Mutex
	loading atomic.Bool
	states  *StateStream
}

// Orchestrator runs syncs. The zero value is not usable; call
// NewOrchestrator.
type Orchestrator struct {
	cfg    Config
	kinds  map[catalog.Kind]*kindSyncer
	logger *slog.Logger

	nowFunc   func() time.Time                                 // injectable for tests
	sleepFunc func(ctx context.Context, d time.Duration) error // injectable for tests
}

// NewOrchestrator creates an Orchestrator, filling zero Config fields with
// defaults.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Precondition == nil {
		cfg.Precondition = AlwaysReady{}
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = jsonstream.DefaultBatchSize
	}

	if cfg.FlushThreshold <= 0 {
		cfg.FlushThreshold = DefaultFlushThreshold
	}

	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = DefaultSyncTimeout
	}

	if cfg.FallbackTTL <= 0 {
		cfg.FallbackTTL = DefaultFallbackTTL
	}

	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}

	kinds := make(map[catalog.Kind]*kindSyncer, len(kindSpecs))
	for _, spec := range kindSpecs {
		kinds[spec.kind] = &kindSyncer{spec: spec, states: newStateStream(spec.kind)}
	}

	return &Orchestrator{
		cfg:       cfg,
		kinds:     kinds,
		logger:    cfg.Logger,
		nowFunc:   time.Now,
		sleepFunc: timeSleep,
	}
}

// States returns the state stream of kind, or nil for an unknown kind.
func (o *Orchestrator) States(kind catalog.Kind) *StateStream {
	ks, ok := o.kinds[kind]
	if !ok {
		return nil
	}

	return ks.states
}

// Sync brings kind up to date for the active source and returns the final
// state, which is also published on the kind's stream.
//
// A non-forced call while a sync of the same kind is loading returns the
// current (loading) state at once. Otherwise callers serialize on the kind's
// lock; a non-forced caller that waited behind a successful sync finds fresh
// metadata and returns without fetching.
func (o *Orchestrator) Sync(ctx context.Context, kind catalog.Kind, force bool) State {
	ks, ok := o.kinds[kind]
	if !ok {
		return State{Kind: kind, Phase: PhaseError, Err: fmt.Errorf("sync: unknown kind %s", kind), At: o.nowFunc()}
	}

	if !force && ks.loading.Load() {
		o.logger.Debug("sync already running", slog.String("kind", kind.String()))
		return ks.states.Current()
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	// A caller that passed the check above before the holder set the flag
	// must not start a second delete-and-insert cycle.
	if !force && ks.loading.Load() {
		return ks.states.Current()
	}

	ks.loading.Store(true)
	defer ks.loading.Store(false)

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.SyncTimeout)
	defer cancel()

	res, sourceID, err := o.syncLocked(runCtx, ks, force)
	if err != nil {
		err = o.classifyFailure(ctx, runCtx, err)
		st := State{
			Kind:     kind,
			Phase:    PhaseError,
			Err:      err,
			HasCache: o.hasCache(ctx, kind, sourceID),
			At:       o.nowFunc(),
		}

		o.logFailure(st)
		ks.states.publish(st)

		return st
	}

	st := State{Kind: kind, Phase: PhaseSuccess, Result: res, At: o.nowFunc()}
	ks.states.publish(st)

	return st
}

// syncLocked is the body of Sync, run with the kind's lock held and under
// the sync timeout. It returns the source id it worked on, if resolved.
func (o *Orchestrator) syncLocked(ctx context.Context, ks *kindSyncer, force bool) (Result, string, error) {
	kind := ks.spec.kind

	src, err := o.cfg.Sources.ActiveSource()
	if err != nil {
		return Result{}, "", err
	}

	if !force {
		md, ok, err := o.cfg.Store.GetMetadata(ctx, src.ID, kind)
		if err != nil {
			return Result{}, src.ID, err
		}

		if ok && md.IsFresh(o.nowFunc(), o.cfg.FallbackTTL) {
			o.logger.Debug("cache fresh, skipping fetch",
				slog.String("kind", kind.String()),
				slog.String("source", src.ID),
				slog.Time("last_updated", md.LastUpdated),
			)

			return Result{FromCache: true, Count: md.ItemCount}, src.ID, nil
		}
	}

	if err := o.cfg.Precondition.Check(ctx); err != nil {
		return Result{}, src.ID, fmt.Errorf("%w: %w", ErrPreconditionFailed, err)
	}

	runID := uuid.NewString()
	logger := o.logger.With(
		slog.String("run_id", runID),
		slog.String("kind", kind.String()),
		slog.String("source", src.ID),
	)

	ks.states.publish(State{Kind: kind, Phase: PhaseLoading, At: o.nowFunc()})
	logger.Info("sync started", slog.Bool("force", force))

	start := o.nowFunc()

	res, err := o.fetchAndStore(ctx, ks, src, logger)
	if err != nil {
		return Result{}, src.ID, err
	}

	res.RunID = runID

	logger.Info("sync complete",
		slog.Int("count", res.Count),
		slog.Int("chunks", res.Chunks),
		slog.Int64("deleted", res.Deleted),
		slog.Duration("elapsed", o.nowFunc().Sub(start)),
	)

	return res, src.ID, nil
}

// fetchAndStore downloads categories and the catalog of one kind and
// replaces the source's stored rows with it.
func (o *Orchestrator) fetchAndStore(
	ctx context.Context, ks *kindSyncer, src Source, logger *slog.Logger,
) (Result, error) {
	kind := ks.spec.kind
	st := o.cfg.Store

	wireCats, err := src.Remote.ListCategories(ctx, kind)
	if err != nil {
		return Result{}, remoteError("listing "+kind.String()+" categories", err)
	}

	cats := make([]catalog.Category, len(wireCats))
	for i := range wireCats {
		cats[i] = wireCats[i].ToCategory(src.ID, kind)
	}

	body, err := o.retryFetch(ctx, logger, func(ctx context.Context) (io.ReadCloser, error) {
		return src.Remote.OpenCatalog(ctx, kind)
	})
	if err != nil {
		return Result{}, remoteError("fetching "+kind.String()+" catalog", err)
	}
	defer body.Close()

	bulk, err := st.BeginBulk(ctx, kind)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := bulk.End(ctx); err != nil {
			logger.Error("rebuilding indexes after bulk load", slog.String("error", err.Error()))
		}
	}()

	preserved, deleted, err := st.DeleteSourcePreserving(ctx, kind, src.ID)
	if err != nil {
		return Result{}, err
	}

	run := &loadRun{
		sourceID:       src.ID,
		names:          catalog.NameIndex(cats),
		preserved:      preserved,
		store:          st,
		batchSize:      o.cfg.BatchSize,
		flushThreshold: o.cfg.FlushThreshold,
		onProgress: func(total int) {
			ks.states.publish(State{Kind: kind, Phase: PhaseLoading, Progress: total, At: o.nowFunc()})
		},
		logger: logger,
	}

	stats, err := ks.spec.load(ctx, run, body)
	if err != nil {
		if stats.written > 0 {
			logger.Warn("catalog load failed after partial commit",
				slog.Int("committed", stats.written),
				slog.Int("chunks", stats.chunks),
			)
		}

		return Result{}, parseError(err)
	}

	// The stored tree goes with the old categories. Invalidating through the
	// cache as well waits out a rebuild that read the old list.
	if err := st.ReplaceCategories(ctx, src.ID, kind, cats); err != nil {
		return Result{}, err
	}

	if o.cfg.NavTree != nil {
		if err := o.cfg.NavTree.Invalidate(ctx, src.ID, kind); err != nil {
			return Result{}, err
		}
	}

	count, err := st.Count(ctx, kind, src.ID)
	if err != nil {
		return Result{}, err
	}

	if count != stats.parsed {
		logger.Info("duplicate ids collapsed",
			slog.Int("parsed", stats.parsed),
			slog.Int("stored", count),
		)
	}

	err = st.PutMetadata(ctx, catalog.CacheMetadata{
		SourceID:      src.ID,
		Kind:          kind,
		LastUpdated:   o.nowFunc(),
		ItemCount:     count,
		CategoryCount: len(cats),
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Count:   count,
		Parsed:  stats.parsed,
		Chunks:  stats.chunks,
		Deleted: deleted,
	}, nil
}

// classifyFailure maps an expired sync budget to ErrTimeout. A canceled
// parent context is reported as is.
func (o *Orchestrator) classifyFailure(parent, runCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrTimeout, o.cfg.SyncTimeout, err)
	}

	return err
}

// hasCache reports whether rows of kind are stored for sourceID. It runs
// after the sync context may have expired.
func (o *Orchestrator) hasCache(ctx context.Context, kind catalog.Kind, sourceID string) bool {
	if sourceID == "" {
		return false
	}

	n, err := o.cfg.Store.Count(context.WithoutCancel(ctx), kind, sourceID)
	if err != nil {
		o.logger.Warn("checking cached rows", slog.String("error", err.Error()))
		return false
	}

	return n > 0
}

// logFailure logs soft failures (cached rows remain usable) at Warn and
// hard failures at Error.
func (o *Orchestrator) logFailure(st State) {
	level := slog.LevelError
	if st.HasCache {
		level = slog.LevelWarn
	}

	o.logger.Log(context.Background(), level, "sync failed",
		slog.String("kind", st.Kind.String()),
		slog.Bool("has_cache", st.HasCache),
		slog.String("error", st.Err.Error()),
	)
}

// SyncAll syncs every kind concurrently and returns the states in
// catalog.AllKinds order. Writes still serialize in the store.
func (o *Orchestrator) SyncAll(ctx context.Context, force bool) []State {
	states := make([]State, len(catalog.AllKinds))

	var g errgroup.Group

	for i, kind := range catalog.AllKinds {
		g.Go(func() error {
			states[i] = o.Sync(ctx, kind, force)
			return nil
		})
	}

	_ = g.Wait() // Sync reports failures in its State

	return states
}

// InvalidateCache drops the metadata and navigation tree of kind for the
// active source, so the next sync fetches even when not forced. Stored rows
// stay readable until then.
func (o *Orchestrator) InvalidateCache(ctx context.Context, kind catalog.Kind) error {
	ks, ok := o.kinds[kind]
	if !ok {
		return fmt.Errorf("sync: unknown kind %s", kind)
	}

	src, err := o.cfg.Sources.ActiveSource()
	if err != nil {
		return err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	if err := o.cfg.Store.DeleteMetadata(ctx, src.ID, kind); err != nil {
		return err
	}

	if o.cfg.NavTree != nil {
		if err := o.cfg.NavTree.Invalidate(ctx, src.ID, kind); err != nil {
			return err
		}
	}

	ks.states.publish(State{Kind: kind, Phase: PhaseIdle, At: o.nowFunc()})

	o.logger.Info("cache invalidated",
		slog.String("kind", kind.String()),
		slog.String("source", src.ID),
	)

	return nil
}

// ClearSource deletes everything stored for sourceID. It holds every kind's
// lock (in catalog.AllKinds order) so no sync of that source is mid-write.
func (o *Orchestrator) ClearSource(ctx context.Context, sourceID string) error {
	for _, kind := range catalog.AllKinds {
		ks := o.kinds[kind]
		ks.mu.Lock()
		defer ks.mu.Unlock()
	}

	if err := o.cfg.Store.ClearSource(ctx, sourceID); err != nil {
		return err
	}

	if src, err := o.cfg.Sources.ActiveSource(); err == nil && src.ID == sourceID {
		for _, kind := range catalog.AllKinds {
			o.kinds[kind].states.publish(State{Kind: kind, Phase: PhaseIdle, At: o.nowFunc()})
		}
	}

	return nil
}
