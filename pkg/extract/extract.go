// Package extract resolves the entity mentions of a natural-language query
// to canonical graph ids.
//
// Extraction runs in stages, each appending candidates the earlier stages
// did not produce:
//
//  1. exact and alias lookup of quoted and capitalised spans
//  2. sliding windows of one to four tokens matched against name spellings
//  3. substring matching, only while too few candidates were found
//  4. the optional NLU and semantic collaborators, whose suggestions are
//     revalidated against the graph and gated by a minimum confidence
//
// The extractor never invents an entity: every candidate is a canonical id
// of the snapshot it was given.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/lexicon"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/nlu"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/semantic"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Config holds the extraction thresholds.
type Config struct {
	// MinCandidates is the count below which the widening stages run.
	MinCandidates int
	// MinSubstringLength is the shortest token the substring stage considers.
	MinSubstringLength int
	// MinConfidence gates collaborator suggestions.
	MinConfidence float64
	// NLUConfidence is assigned to revalidated NLU suggestions.
	NLUConfidence float64
	// SemanticTopK and SemanticMinScore shape semantic search.
	SemanticTopK     int
	SemanticMinScore float64
	// TypeBoosts break confidence ties between entity types.
	TypeBoosts map[types.EntityType]float64
	// MaxNGram is the widest window the n-gram stage slides.
	MaxNGram int
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		MinCandidates:      1,
		MinSubstringLength: 4,
		MinConfidence:      0.6,
		NLUConfidence:      0.7,
		SemanticTopK:       5,
		SemanticMinScore:   0.5,
		TypeBoosts:         DefaultTypeBoosts,
		MaxNGram:           4,
	}
}

// Options narrow one extraction.
type Options struct {
	// ExpectedTypes filters the result when non-empty.
	ExpectedTypes []types.EntityType
	// MinCandidates overrides Config.MinCandidates when positive.
	MinCandidates int
	// Seeds are pre-resolved mentions accepted before any stage runs.
	Seeds []string
	// Hint is an NLU hint the caller already obtained. When set the
	// collaborator is not called again.
	Hint *nlu.Hint
	// HintRequested reports that the caller already asked the collaborator,
	// so a nil Hint means it had nothing to offer.
	HintRequested bool
}

// Result is the outcome of Run.
type Result struct {
	Candidates []types.Candidate
	// Hint is the NLU hint consulted, if any.
	Hint *nlu.Hint
	// UsedHint reports whether the hint contributed a candidate.
	UsedHint bool
}

// Extractor resolves query mentions. It is safe for concurrent use.
type Extractor struct {
	lex      *lexicon.Lexicon
	cfg      Config
	nlu      *nlu.Guard
	semantic *semantic.Guard
	logger   *slog.Logger

	index atomic.Pointer[nameIndex]
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConfig replaces the default thresholds.
func WithConfig(cfg Config) Option {
	return func(x *Extractor) { x.cfg = cfg }
}

// WithNLU enables the NLU fallback.
func WithNLU(g *nlu.Guard) Option {
	return func(x *Extractor) { x.nlu = g }
}

// WithSemantic enables the semantic fallback.
func WithSemantic(g *semantic.Guard) Option {
	return func(x *Extractor) { x.semantic = g }
}

// WithLogger sets the extractor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Extractor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// New creates an extractor. A nil lexicon uses the embedded default.
func New(lex *lexicon.Lexicon, opts ...Option) *Extractor {
	if lex == nil {
		lex = lexicon.Default()
	}
	x := &Extractor{lex: lex, cfg: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(x)
	}
	if x.cfg.TypeBoosts == nil {
		x.cfg.TypeBoosts = DefaultTypeBoosts
	}
	if x.cfg.MaxNGram <= 0 {
		x.cfg.MaxNGram = 4
	}
	return x
}

// Lexicon returns the tables the extractor uses.
func (x *Extractor) Lexicon() *lexicon.Lexicon { return x.lex }

// Extract returns the candidates of query, best first. It fails with
// types.ErrEntityNotFound when no stage finds anything.
func (x *Extractor) Extract(ctx context.Context, snap *graph.Snapshot, query string, opts Options) ([]types.Candidate, error) {
	res, err := x.Run(ctx, snap, query, opts)
	if err != nil {
		return nil, err
	}
	return res.Candidates, nil
}

// Run is Extract that also reports the NLU hint it consulted.
func (x *Extractor) Run(ctx context.Context, snap *graph.Snapshot, query string, opts Options) (*Result, error) {
	idx := x.indexFor(snap)
	acc := &accumulator{}
	want := x.cfg.MinCandidates
	if opts.MinCandidates > 0 {
		want = opts.MinCandidates
	}

	for _, seed := range opts.Seeds {
		if c, ok := x.resolveName(snap, idx, seed); ok {
			c.Provenance = types.ProvenanceSeed
			acc.add(c)
		} else {
			x.logger.Debug("ignoring unknown seed entity", "seed", seed)
		}
	}

	x.exactStage(snap, idx, query, acc)
	x.ngramStage(snap, idx, query, acc)
	if acc.len() < want {
		x.substringStage(snap, idx, query, acc)
	}

	res := &Result{Hint: opts.Hint}
	if acc.len() < want || x.lex.HasComparisonSignal(query) {
		if res.Hint == nil && !opts.HintRequested {
			res.Hint = x.nlu.Hint(ctx, query)
		}
		res.UsedHint = x.acceptHint(snap, idx, res.Hint, acc) > 0
	}
	if acc.len() < want {
		x.semanticStage(ctx, snap, query, acc)
	}

	res.Candidates = acc.ranked(x.cfg.TypeBoosts, opts.ExpectedTypes)
	if len(res.Candidates) == 0 {
		return res, fmt.Errorf("%w: no entity mentioned in %q", types.ErrEntityNotFound, query)
	}
	return res, nil
}

func (x *Extractor) indexFor(snap *graph.Snapshot) *nameIndex {
	if cur := x.index.Load(); cur != nil && cur.snap == snap {
		return cur
	}
	idx := buildIndex(snap, x.significant)
	x.index.Store(idx)
	return idx
}

// significant reports whether a folded token can identify an entity.
func (x *Extractor) significant(token string) bool {
	return len([]rune(token)) >= 2 && !x.lex.IsStopword(token)
}

var quoted = regexp.MustCompile(`"([^"]+)"|“([^”]+)”|«([^»]+)»`)

// exactStage looks up quoted spans and runs of capitalised words.
func (x *Extractor) exactStage(snap *graph.Snapshot, idx *nameIndex, query string, acc *accumulator) {
	for _, m := range quoted.FindAllStringSubmatch(query, -1) {
		for _, span := range m[1:] {
			if span == "" {
				continue
			}
			if c, ok := x.resolveName(snap, idx, span); ok {
				acc.add(c)
			}
		}
	}

	for _, run := range capitalisedRuns(query) {
		for i := 0; i < len(run); {
			matched := false
			for l := len(run) - i; l >= 1; l-- {
				span := strings.Join(run[i:i+l], " ")
				if x.allStopwords(span) {
					continue
				}
				if c, ok := x.resolveName(snap, idx, span); ok {
					acc.add(c)
					i += l
					matched = true
					break
				}
			}
			if !matched {
				i++
			}
		}
	}
}

// resolveName maps a surface name to a candidate through the graph's
// identity resolution, the lexicon aliases and the exact name index.
func (x *Extractor) resolveName(snap *graph.Snapshot, idx *nameIndex, name string) (types.Candidate, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Candidate{}, false
	}
	if id, err := snap.Resolve(name); err == nil {
		prov := types.ProvenanceAlias
		if norm := snap.Normalizer(); norm.Normalize(id) == norm.Normalize(name) {
			prov = types.ProvenanceExact
		}
		return x.candidate(snap, id, name, prov, ScoreExact)
	}
	folded := lexicon.Fold(name)
	if target, ok := x.lex.Alias(folded); ok {
		if id, err := snap.Resolve(target); err == nil {
			return x.candidate(snap, id, name, types.ProvenanceAlias, ScoreExact)
		}
		if ids := idx.lookup(lexicon.Fold(target)); len(ids) > 0 {
			return x.candidate(snap, x.preferred(snap, ids), name, types.ProvenanceAlias, ScoreExact)
		}
	}
	if ids := idx.lookup(folded); len(ids) > 0 {
		return x.candidate(snap, x.preferred(snap, ids), name, types.ProvenanceExact, ExactScore(folded, folded))
	}
	return types.Candidate{}, false
}

// ngramStage slides windows of MaxNGram down to one token over the query.
func (x *Extractor) ngramStage(snap *graph.Snapshot, idx *nameIndex, query string, acc *accumulator) {
	tokens := lexicon.Tokens(lexicon.Fold(query))
	for n := min(x.cfg.MaxNGram, len(tokens)); n >= 1; n-- {
		for i := 0; i+n <= len(tokens); i++ {
			window := tokens[i : i+n]
			if x.lex.IsStopword(window[0]) || x.lex.IsStopword(window[n-1]) || (n == 1 && !x.significant(window[0])) {
				continue
			}
			text := strings.Join(window, " ")
			if target, ok := x.lex.Alias(text); ok {
				if c, ok := x.resolveName(snap, idx, target); ok {
					c.Mention = text
					c.Provenance = types.ProvenanceAlias
					acc.add(c)
					continue
				}
			}
			if ids := idx.lookup(text); len(ids) > 0 {
				if c, ok := x.candidate(snap, x.preferred(snap, ids), text, types.ProvenanceNGram, ScoreNGramExact); ok {
					acc.add(c)
				}
				continue
			}
			if n < 2 {
				continue
			}
			best, bestScore := -1, 0.0
			for _, e := range idx.related(window) {
				name := idx.entries[e].tokens
				if !slices.Contains(name, window[0]) || !slices.Contains(name, window[n-1]) {
					continue
				}
				if s := NGramScore(window, name, x.significant); s > bestScore {
					best, bestScore = e, s
				}
			}
			if best >= 0 {
				if c, ok := x.candidate(snap, idx.entries[best].id, text, types.ProvenanceNGram, bestScore); ok {
					acc.add(c)
				}
			}
		}
	}
}

// maxSubstringMatches caps how many names one token may widen to.
const maxSubstringMatches = 3

// substringStage matches long query tokens inside longer names.
func (x *Extractor) substringStage(snap *graph.Snapshot, idx *nameIndex, query string, acc *accumulator) {
	for _, tok := range lexicon.Tokens(lexicon.Fold(query)) {
		if !x.significant(tok) || len([]rune(tok)) < x.cfg.MinSubstringLength {
			continue
		}
		type hit struct {
			id    string
			score float64
		}
		var hits []hit
		best := make(map[string]int)
		for _, e := range idx.entries {
			s := SubstringScore(tok, e.text, x.cfg.MinSubstringLength)
			if s == 0 {
				continue
			}
			if i, ok := best[e.id]; ok {
				hits[i].score = max(hits[i].score, s)
				continue
			}
			best[e.id] = len(hits)
			hits = append(hits, hit{id: e.id, score: s})
		}
		slices.SortStableFunc(hits, func(a, b hit) int {
			switch {
			case a.score > b.score:
				return -1
			case a.score < b.score:
				return 1
			}
			return 0
		})
		for _, h := range hits[:min(len(hits), maxSubstringMatches)] {
			if c, ok := x.candidate(snap, h.id, tok, types.ProvenanceSubstring, h.score); ok {
				acc.add(c)
			}
		}
	}
}

// acceptHint revalidates the hint's entity names and returns how many
// were accepted.
func (x *Extractor) acceptHint(snap *graph.Snapshot, idx *nameIndex, hint *nlu.Hint, acc *accumulator) int {
	if hint == nil || x.cfg.NLUConfidence < x.cfg.MinConfidence {
		return 0
	}
	accepted := 0
	for _, name := range hint.Entities {
		c, ok := x.resolveName(snap, idx, name)
		if !ok {
			x.logger.Debug("dropping unresolvable nlu entity", "name", name)
			continue
		}
		c.Provenance = types.ProvenanceNLU
		c.Confidence = x.cfg.NLUConfidence
		if acc.add(c) {
			accepted++
		}
	}
	return accepted
}

// semanticStage merges semantic matches above the score threshold.
func (x *Extractor) semanticStage(ctx context.Context, snap *graph.Snapshot, query string, acc *accumulator) {
	for _, m := range x.semantic.Search(ctx, query, x.cfg.SemanticTopK) {
		if m.Score < x.cfg.SemanticMinScore {
			continue
		}
		id, err := snap.Resolve(m.ID)
		if err != nil {
			x.logger.Debug("dropping unresolvable semantic match", "id", m.ID)
			continue
		}
		e, _ := snap.Entity(id)
		if c, ok := x.candidate(snap, id, e.Name(), types.ProvenanceSemantic, min(m.Score, ScoreNGramOverlapMax)); ok {
			acc.add(c)
		}
	}
}

func (x *Extractor) candidate(snap *graph.Snapshot, id, mention string, prov types.Provenance, score float64) (types.Candidate, bool) {
	e, ok := snap.Entity(id)
	if !ok || score <= 0 {
		return types.Candidate{}, false
	}
	return types.Candidate{
		ID:         e.ID,
		Name:       e.Name(),
		Type:       e.Type,
		Mention:    mention,
		Provenance: prov,
		Confidence: score,
	}, true
}

// preferred picks one id among entities sharing a spelling, favouring the
// highest type boost.
func (x *Extractor) preferred(snap *graph.Snapshot, ids []string) string {
	best, bestBoost := ids[0], -1.0
	for _, id := range ids {
		e, ok := snap.Entity(id)
		if !ok {
			continue
		}
		if b := x.cfg.TypeBoosts[e.Type]; b > bestBoost {
			best, bestBoost = id, b
		}
	}
	return best
}

func (x *Extractor) allStopwords(span string) bool {
	for _, t := range lexicon.Tokens(lexicon.Fold(span)) {
		if x.significant(t) {
			return false
		}
	}
	return true
}

// capitalisedRuns splits a query into runs of consecutive words that start
// with an upper-case letter or a digit, or contain an upper-case letter.
// Punctuation after a word ends its run.
func capitalisedRuns(query string) [][]string {
	var runs [][]string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			runs = append(runs, cur)
			cur = nil
		}
	}
	for _, raw := range strings.Fields(query) {
		word := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word == "" || !capitalised(word) {
			flush()
			continue
		}
		cur = append(cur, word)
		if last := []rune(raw); !unicode.IsLetter(last[len(last)-1]) && !unicode.IsDigit(last[len(last)-1]) {
			flush()
		}
	}
	flush()
	return runs
}

func capitalised(word string) bool {
	for i, r := range word {
		if unicode.IsUpper(r) || (i == 0 && unicode.IsDigit(r)) {
			return true
		}
	}
	return false
}
