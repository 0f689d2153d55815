package analyst

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/answer"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/community"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/config"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/extract"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/ingest"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/lexicon"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/metrics"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/nlu"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/reasoning"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/semantic"
	snapshotstore "github.com/huynd2174/Social-Network-Analyst--sub000/pkg/storage/badger"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/telemetry"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/traversal"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// ErrNoSnapshotStore is returned by Persist and Restore when the engine was
// built without a snapshot store.
var ErrNoSnapshotStore = errors.New("no snapshot store configured")

// Analyst is the main interface for asking questions about a knowledge graph.
type Analyst interface {
	// Reason answers a natural-language question. It always returns a
	// result; failures are reported through its Outcome and Error fields.
	Reason(ctx context.Context, query string) *types.ReasoningResult

	// ReasonWith answers a request carrying seeds or a hop budget.
	ReasonWith(ctx context.Context, req reasoning.Request) *types.ReasoningResult

	// ReasonBatch answers queries in parallel against one snapshot. Results
	// are returned in query order.
	ReasonBatch(ctx context.Context, queries []string) ([]*types.ReasoningResult, error)

	// Ingest merges a batch of records into the graph.
	Ingest(ctx context.Context, b *types.Batch) (ingest.Report, error)

	// Communities groups the current graph into communities.
	Communities() []community.Community

	// Close releases caches, audit files and the snapshot store.
	Close() error
}

// Config holds the engine's tunables. The zero value of a field means its
// package default.
type Config struct {
	Reasoning reasoning.Config
	Extractor extract.Config
	Answer    answer.Config

	// CacheEntries bounds the traversal context cache. Zero disables it.
	CacheEntries int64

	// BatchConcurrency bounds ReasonBatch fan-out.
	BatchConcurrency int

	NLUTimeout      time.Duration
	SemanticTimeout time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Reasoning:        reasoning.DefaultConfig(),
		Extractor:        extract.DefaultConfig(),
		Answer:           answer.DefaultConfig(),
		CacheEntries:     traversal.DefaultCacheEntries,
		BatchConcurrency: 8,
		NLUTimeout:       nlu.DefaultTimeout,
		SemanticTimeout:  nlu.DefaultTimeout,
	}
}

// ConfigFrom maps the application configuration onto an engine Config.
func ConfigFrom(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.Reasoning = reasoning.ConfigFrom(cfg.Reasoning)
	if v := cfg.Extractor.MinCandidates; v > 0 {
		c.Extractor.MinCandidates = v
	}
	if v := cfg.Extractor.MinSubstringLength; v > 0 {
		c.Extractor.MinSubstringLength = v
	}
	if v := cfg.Extractor.MinConfidence; v > 0 {
		c.Extractor.MinConfidence = v
	}
	if v := cfg.Extractor.NLUConfidence; v > 0 {
		c.Extractor.NLUConfidence = v
	}
	if v := cfg.Semantic.TopK; v > 0 {
		c.Extractor.SemanticTopK = v
	}
	if v := cfg.Semantic.MinScore; v > 0 {
		c.Extractor.SemanticMinScore = v
	}
	c.Answer = answer.Config{
		DisplayCap:     cfg.Reasoning.DisplayCap,
		SecondHopDecay: cfg.Reasoning.SecondHopDecay,
		DeepHopDecay:   cfg.Reasoning.DeepHopDecay,
	}
	c.CacheEntries = 0
	if cfg.Cache.Enabled {
		c.CacheEntries = orDefault(cfg.Cache.MaxEntries, traversal.DefaultCacheEntries)
	}
	c.BatchConcurrency = orDefault(cfg.Reasoning.BatchConcurrency, c.BatchConcurrency)
	c.NLUTimeout = orDefault(cfg.NLU.Timeout, c.NLUTimeout)
	c.SemanticTimeout = orDefault(cfg.Semantic.Timeout, c.SemanticTimeout)
	return c
}

// Engine implements Analyst over an in-memory graph store.
type Engine struct {
	store       *graph.Store
	loader      *ingest.Loader
	dispatcher  *reasoning.Dispatcher
	cache       *traversal.ContextCache
	index       *semantic.Index
	syncs       singleflight.Group
	audit       *telemetry.QueryAudit
	snapshots   *snapshotstore.Store
	communities *community.Builder
	config      *Config
	logger      *slog.Logger

	lexicon      *lexicon.Lexicon
	understander nlu.Understander
	searcher     semantic.Searcher
}

var _ Analyst = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLexicon replaces the bundled lexicon.
func WithLexicon(lex *lexicon.Lexicon) Option {
	return func(e *Engine) { e.lexicon = lex }
}

// WithUnderstander enables the NLU collaborator.
func WithUnderstander(u nlu.Understander) Option {
	return func(e *Engine) { e.understander = u }
}

// WithSemanticIndex enables semantic search over an index the engine keeps
// in sync with the graph.
func WithSemanticIndex(ix *semantic.Index) Option {
	return func(e *Engine) {
		e.index = ix
		if ix != nil {
			e.searcher = ix
		}
	}
}

// WithSearcher enables an external semantic search collaborator.
func WithSearcher(s semantic.Searcher) Option {
	return func(e *Engine) { e.searcher = s }
}

// WithQueryAudit records every result.
func WithQueryAudit(a *telemetry.QueryAudit) Option {
	return func(e *Engine) { e.audit = a }
}

// WithSnapshotStore enables Persist. The engine closes the store.
func WithSnapshotStore(s *snapshotstore.Store) Option {
	return func(e *Engine) { e.snapshots = s }
}

// New creates an engine over store. A nil config uses DefaultConfig and a
// nil logger uses slog.Default().
func New(store *graph.Store, cfg *Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("graph store is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{store: store, config: cfg, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.lexicon == nil {
		e.lexicon = lexicon.Default()
	}

	if err := store.Snapshot().CheckInvariants(); err != nil {
		return nil, err
	}

	if cfg.CacheEntries > 0 {
		cache, err := traversal.NewContextCache(cfg.CacheEntries)
		if err != nil {
			return nil, err
		}
		e.cache = cache
	}

	var nluGuard *nlu.Guard
	if e.understander != nil {
		nluGuard = nlu.NewGuard(e.understander, cfg.NLUTimeout, logger.With("component", "nlu"))
	}
	var semGuard *semantic.Guard
	if e.searcher != nil {
		semGuard = semantic.NewGuard(e.searcher, cfg.SemanticTimeout, logger.With("component", "semantic"))
	}

	ext := extract.New(e.lexicon,
		extract.WithConfig(cfg.Extractor),
		extract.WithNLU(nluGuard),
		extract.WithSemantic(semGuard),
		extract.WithLogger(logger.With("component", "extract")))
	e.dispatcher = reasoning.New(e.lexicon, ext,
		reasoning.WithConfig(cfg.Reasoning),
		reasoning.WithNLU(nluGuard),
		reasoning.WithCache(e.cache),
		reasoning.WithSynthesizer(answer.New(cfg.Answer)),
		reasoning.WithLogger(logger.With("component", "reasoning")))
	e.loader = ingest.NewLoader(store, logger.With("component", "ingest"))
	e.communities = community.NewBuilder(community.WithLogger(logger.With("component", "community")))
	return e, nil
}

// Store returns the graph store.
func (e *Engine) Store() *graph.Store { return e.store }

// Loader returns the loader writing into the store.
func (e *Engine) Loader() *ingest.Loader { return e.loader }

// Dispatcher returns the reasoning dispatcher.
func (e *Engine) Dispatcher() *reasoning.Dispatcher { return e.dispatcher }

// Traversal returns a traversal engine over the current snapshot sharing
// the engine's context cache.
func (e *Engine) Traversal() *traversal.Engine {
	return traversal.New(e.store.Snapshot(), traversal.WithCache(e.cache), traversal.WithLogger(e.logger))
}

// Reason implements Analyst.
func (e *Engine) Reason(ctx context.Context, query string) *types.ReasoningResult {
	return e.ReasonWith(ctx, reasoning.Request{Query: query})
}

// ReasonWith implements Analyst.
func (e *Engine) ReasonWith(ctx context.Context, req reasoning.Request) *types.ReasoningResult {
	snap := e.store.Snapshot()
	e.syncIndex(ctx, snap)
	return e.reasonOn(ctx, snap, req)
}

// ReasonBatch implements Analyst. It stops early only when ctx is done.
func (e *Engine) ReasonBatch(ctx context.Context, queries []string) ([]*types.ReasoningResult, error) {
	snap := e.store.Snapshot()
	e.syncIndex(ctx, snap)

	results := make([]*types.ReasoningResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.config.BatchConcurrency, 1))
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.reasonOn(gctx, snap, reasoning.Request{Query: q})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) reasonOn(ctx context.Context, snap *graph.Snapshot, req reasoning.Request) *types.ReasoningResult {
	start := time.Now()
	res := e.dispatcher.Dispatch(ctx, snap, req)
	res.ID = uuid.New().String()
	res.Duration = time.Since(start)

	metrics.QueriesTotal.WithLabelValues(string(res.Intent), string(res.Outcome)).Inc()
	metrics.QueryDuration.WithLabelValues(string(res.Strategy)).Observe(res.Duration.Seconds())
	metrics.QueryConfidence.Observe(res.Confidence)

	if e.audit != nil {
		if err := e.audit.Record(ctx, res); err != nil {
			e.logger.Warn("failed to record query audit", "id", res.ID, "error", err)
		}
	}
	e.logger.Debug("answered query",
		"id", res.ID,
		"intent", res.Intent,
		"strategy", res.Strategy,
		"outcome", res.Outcome,
		"confidence", res.Confidence,
		"duration", res.Duration)
	return res
}

// Ingest implements Analyst.
func (e *Engine) Ingest(ctx context.Context, b *types.Batch) (ingest.Report, error) {
	rep, err := e.loader.Apply(ctx, b)
	if err != nil {
		return rep, err
	}
	e.syncIndex(ctx, e.store.Snapshot())
	return rep, nil
}

// IngestFile merges the JSON or YAML batch at path into the graph.
func (e *Engine) IngestFile(ctx context.Context, path string) (ingest.Report, error) {
	b, err := ingest.ReadFile(path)
	if err != nil {
		return ingest.Report{}, err
	}
	return e.Ingest(ctx, b)
}

// Watch reapplies the batch file at path on every change until ctx is done.
func (e *Engine) Watch(ctx context.Context, path string) error {
	return e.loader.Watch(ctx, path, ingest.OnApply(func(_ ingest.Report, err error) {
		if err == nil {
			e.syncIndex(ctx, e.store.Snapshot())
		}
	}))
}

// Communities implements Analyst.
func (e *Engine) Communities() []community.Community {
	return e.communities.Detect(e.store.Snapshot())
}

// Persist saves the current snapshot to the snapshot store.
func (e *Engine) Persist(ctx context.Context) (snapshotstore.Meta, error) {
	if e.snapshots == nil {
		return snapshotstore.Meta{}, ErrNoSnapshotStore
	}
	return e.snapshots.Save(ctx, e.store.Snapshot())
}

// Restore merges the persisted snapshot into the graph. It returns
// snapshotstore.ErrNoSnapshot when nothing was saved.
func (e *Engine) Restore(ctx context.Context) (ingest.Report, error) {
	if e.snapshots == nil {
		return ingest.Report{}, ErrNoSnapshotStore
	}
	b, _, err := e.snapshots.Load(ctx)
	if err != nil {
		return ingest.Report{}, err
	}
	return e.Ingest(ctx, b)
}

// Close implements Analyst.
func (e *Engine) Close() error {
	var errs []error
	if e.cache != nil {
		e.cache.Close()
	}
	if e.audit != nil {
		errs = append(errs, e.audit.Close())
	}
	if e.snapshots != nil {
		errs = append(errs, e.snapshots.Close())
	}
	return errors.Join(errs...)
}

// syncIndex embeds entities of snap missing from the semantic index.
// Concurrent calls for one snapshot version share a single sync, and no
// caller waits longer than the semantic timeout: a sync still running then
// finishes in the background and the caller continues with a stale index.
func (e *Engine) syncIndex(ctx context.Context, snap *graph.Snapshot) {
	if e.index == nil {
		return
	}
	timeout := orDefault(e.config.SemanticTimeout, nlu.DefaultTimeout)
	ch := e.syncs.DoChan(strconv.FormatUint(snap.Version(), 10), func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return nil, e.index.Sync(sctx, snap)
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		if r.Err != nil {
			e.logger.Warn("semantic index sync failed, continuing with a stale index", "error", r.Err)
		}
	case <-timer.C:
		metrics.CollaboratorCalls.WithLabelValues("semantic", "timeout").Inc()
		e.logger.Warn("semantic index sync is slow, continuing with a stale index",
			"timeout", timeout, "error", fmt.Errorf("%w: index sync", types.ErrCollaboratorTimeout))
	case <-ctx.Done():
	}
}

func orDefault[T int | int64 | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}
