// Package reasoning classifies questions and answers them with multi-hop
// strategies over a graph snapshot.
//
// A call to Dispatch moves through Classify, EnsureEntities and Execute:
// the ordered lexicon rules pick an intent, the extractor resolves the
// entities it needs, and the strategy for that intent walks the graph. Every
// call produces a ReasoningResult; failures are reported on the result.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/answer"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/config"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/extract"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/lexicon"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/nlu"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/traversal"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Hop budget defaults.
const (
	DefaultHops = 2
	MaxHops     = 3
)

// Config holds the dispatcher's hop budget and strategy limits.
type Config struct {
	DefaultHops    int
	MaxHops        int
	FrontierCap    int
	ChainAnswerCap int
	AggregationCap int
	PathLimit      int
}

// DefaultConfig returns the default budget and limits.
func DefaultConfig() Config {
	return Config{
		DefaultHops:    DefaultHops,
		MaxHops:        MaxHops,
		FrontierCap:    DefaultFrontierCap,
		ChainAnswerCap: DefaultChainAnswerCap,
		AggregationCap: DefaultAggregationCap,
		PathLimit:      DefaultPathLimit,
	}
}

// ConfigFrom maps the reasoning section of the application config.
func ConfigFrom(c config.ReasoningConfig) Config {
	return Config{
		DefaultHops:    cmpOr(c.DefaultHops, DefaultHops),
		MaxHops:        cmpOr(c.MaxHops, MaxHops),
		FrontierCap:    cmpOr(c.FrontierCap, DefaultFrontierCap),
		ChainAnswerCap: cmpOr(c.ChainAnswerCap, DefaultChainAnswerCap),
		AggregationCap: cmpOr(c.AggregationCap, DefaultAggregationCap),
		PathLimit:      cmpOr(c.PathLimit, DefaultPathLimit),
	}
}

// Request is one question.
type Request struct {
	Query string
	// Seeds are entity names or ids the caller already resolved.
	Seeds []string
	// Hops overrides the hop budget when positive. It is still capped.
	Hops int
}

// Dispatcher routes questions to strategies. It holds no per-query state
// and is safe for concurrent use.
type Dispatcher struct {
	lex        *lexicon.Lexicon
	extractor  *extract.Extractor
	synth      *answer.Synthesizer
	nlu        *nlu.Guard
	cache      *traversal.ContextCache
	strategies map[types.StrategyKind]Strategy
	cfg        Config
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConfig replaces the default budget and limits.
func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) { d.cfg = cfg }
}

// WithNLU enables hint-based classification of queries no rule matches.
func WithNLU(g *nlu.Guard) Option {
	return func(d *Dispatcher) { d.nlu = g }
}

// WithCache shares a bounded-context cache across queries.
func WithCache(c *traversal.ContextCache) Option {
	return func(d *Dispatcher) { d.cache = c }
}

// WithSynthesizer replaces the default answer synthesizer.
func WithSynthesizer(s *answer.Synthesizer) Option {
	return func(d *Dispatcher) { d.synth = s }
}

// WithStrategy replaces the strategy registered for s.Kind().
func WithStrategy(s Strategy) Option {
	return func(d *Dispatcher) { d.strategies[s.Kind()] = s }
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a dispatcher. A nil extractor uses one built on lex.
func New(lex *lexicon.Lexicon, ext *extract.Extractor, opts ...Option) *Dispatcher {
	if lex == nil {
		lex = lexicon.Default()
	}
	if ext == nil {
		ext = extract.New(lex)
	}
	d := &Dispatcher{
		lex:        lex,
		extractor:  ext,
		cfg:        DefaultConfig(),
		strategies: make(map[types.StrategyKind]Strategy),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.synth == nil {
		d.synth = answer.New(answer.DefaultConfig())
	}
	defaults := []Strategy{
		Chain{FrontierCap: d.cfg.FrontierCap, AnswerCap: d.cfg.ChainAnswerCap},
		Aggregation{Cap: d.cfg.AggregationCap},
		Comparison{},
		Intersection{},
		Connection{Limit: d.cfg.PathLimit},
	}
	for _, s := range defaults {
		if _, ok := d.strategies[s.Kind()]; !ok {
			d.strategies[s.Kind()] = s
		}
	}
	return d
}

// Lexicon returns the rule table the dispatcher classifies with.
func (d *Dispatcher) Lexicon() *lexicon.Lexicon { return d.lex }

// Classify returns the plan for query using only the rule table.
func (d *Dispatcher) Classify(query string) (Plan, bool) {
	return Classify(d.lex, query)
}

// Dispatch answers req against snap. It always returns a result.
func (d *Dispatcher) Dispatch(ctx context.Context, snap *graph.Snapshot, req Request) *types.ReasoningResult {
	res := &types.ReasoningResult{
		Query:          req.Query,
		Steps:          []types.ReasoningStep{},
		AnswerEntities: []string{},
		Outcome:        types.OutcomeNotFound,
	}

	// Classify
	plan, hint, asked := d.classify(ctx, req.Query)
	res.Intent, res.Strategy = plan.Intent, plan.Strategy
	res.UsedHint = plan.FromHint

	// EnsureEntities
	ex, err := d.extractor.Run(ctx, snap, req.Query, extract.Options{
		MinCandidates: plan.MinEntities,
		Seeds:         req.Seeds,
		Hint:          hint,
		HintRequested: asked,
	})
	if ex != nil {
		res.Entities = ex.Candidates
		res.UsedHint = res.UsedHint || ex.UsedHint
		hint = ex.Hint
	}
	if err != nil && !errors.Is(err, types.ErrEntityNotFound) {
		return d.fail(res, err, "Something went wrong while reading the question.")
	}
	if n := len(res.Entities); n < plan.MinEntities {
		if plan.MinEntities >= 2 {
			err = fmt.Errorf("%w: %s needs %d entities, resolved %d", types.ErrInsufficientEntities, plan.Intent, plan.MinEntities, n)
			return d.fail(res, err, fmt.Sprintf("This question needs %d known entities but I recognised %d.", plan.MinEntities, n))
		}
		return d.fail(res, err, "I could not find any known entity in the question.")
	}

	// Execute
	hops := d.hops(req, plan, hint)
	strategy, ok := d.strategies[plan.Strategy]
	if !ok {
		return d.fail(res, fmt.Errorf("no strategy registered for %s", plan.Strategy), "This kind of question is not supported.")
	}
	eng := traversal.New(snap, traversal.WithCache(d.cache), traversal.WithLogger(d.logger))
	finding, err := strategy.Execute(eng, Input{Plan: plan, Entities: res.Entities, Hops: hops, Query: req.Query})
	finding.Intent = plan.Intent

	sa := d.synth.Synthesize(snap, finding)
	if finding.Steps != nil {
		res.Steps = finding.Steps
	}
	if finding.Answer != nil {
		res.AnswerEntities = finding.Answer
	}
	res.Outcome, res.Confidence = sa.Outcome, sa.Confidence
	res.Groups, res.RenderedText, res.Explanation = sa.Groups, sa.Text, sa.Explanation
	if err != nil {
		res.Error = types.CodeOf(err)
		res.Outcome, res.Confidence = types.OutcomeNotFound, 0
		d.logger.Debug("strategy ended without an answer", "plan", plan.String(), "error", err)
	}
	d.logger.Debug("dispatched query",
		"plan", plan.String(),
		"entities", len(res.Entities),
		"hops", hops,
		"outcome", res.Outcome,
		"confidence", res.Confidence)
	return res
}

// classify runs the rule table, then at most one NLU hint, then falls back
// to a generic chain lookup. asked reports whether the collaborator was
// consulted.
func (d *Dispatcher) classify(ctx context.Context, query string) (plan Plan, hint *nlu.Hint, asked bool) {
	if p, ok := Classify(d.lex, query); ok {
		return p, nil, false
	}
	if d.nlu.Enabled() {
		asked = true
		hint = d.nlu.Hint(ctx, query)
		if p, ok := classifyHint(d.lex, hint); ok {
			return p, hint, asked
		}
	}
	return genericPlan(), hint, asked
}

// hops picks the budget: the request's, else the hint's, else the default.
// Connection questions default to the cap. The result is within [1, MaxHops].
func (d *Dispatcher) hops(req Request, plan Plan, hint *nlu.Hint) int {
	h := d.cfg.DefaultHops
	switch {
	case req.Hops > 0:
		h = req.Hops
	case hint != nil && hint.HopDepth > 0:
		h = hint.HopDepth
	case plan.Strategy == types.StrategyPath:
		h = d.cfg.MaxHops
	}
	return max(1, min(h, d.cfg.MaxHops))
}

func (d *Dispatcher) fail(res *types.ReasoningResult, err error, text string) *types.ReasoningResult {
	res.Error = types.CodeOf(err)
	res.Outcome, res.Confidence = types.OutcomeNotFound, 0
	res.RenderedText = text
	res.Explanation = []string{err.Error()}
	d.logger.Debug("query not answered", "query", res.Query, "error", err)
	return res
}
