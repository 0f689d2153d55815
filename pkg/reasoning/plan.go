package reasoning

import (
	"fmt"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/lexicon"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/nlu"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/traversal"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Plan is a classified query: the intent, the strategy answering it and the
// traversal filters the strategy applies.
type Plan struct {
	// Rule is the name of the lexicon rule that matched, empty for plans
	// derived from a hint or the generic fallback.
	Rule        string
	Intent      types.Intent
	Strategy    types.StrategyKind
	TargetType  types.EntityType
	Relations   []types.RelationType
	Direction   traversal.Direction
	MinEntities int
	FromHint    bool
}

func (p Plan) String() string {
	if p.Rule != "" {
		return fmt.Sprintf("%s(%s)", p.Intent, p.Rule)
	}
	return string(p.Intent)
}

// StrategyFor returns the strategy that answers an intent.
func StrategyFor(in types.Intent) types.StrategyKind {
	switch in {
	case types.IntentMembership, types.IntentSameGroupComparison, types.IntentSameOrgComparison:
		return types.StrategyComparison
	case types.IntentIntersection:
		return types.StrategyIntersection
	case types.IntentAggregation:
		return types.StrategyAggregation
	case types.IntentConnection:
		return types.StrategyPath
	default:
		return types.StrategyChain
	}
}

func planFromRule(r *lexicon.Rule) Plan {
	return Plan{
		Rule:        r.Name,
		Intent:      r.Intent,
		Strategy:    StrategyFor(r.Intent),
		TargetType:  r.TargetType,
		Relations:   r.Relations,
		Direction:   r.Direction,
		MinEntities: r.Required(),
	}
}

// genericPlan answers an unclassified query by following every relation
// around its entities.
func genericPlan() Plan {
	return Plan{
		Intent:      types.IntentChainLookup,
		Strategy:    types.StrategyChain,
		Direction:   traversal.Both,
		MinEntities: 1,
	}
}

// Classify evaluates the lexicon's ordered rule table against query. The
// first matching rule wins.
func Classify(lex *lexicon.Lexicon, query string) (Plan, bool) {
	r, ok := lex.Match(query)
	if !ok {
		return Plan{}, false
	}
	return planFromRule(r), true
}

// classifyHint re-enters classification with an NLU hint. A hint naming a
// known intent takes the first rule of that intent as a template and
// replaces its relations with the hint's when it names any.
func classifyHint(lex *lexicon.Lexicon, h *nlu.Hint) (Plan, bool) {
	in, ok := h.ParsedIntent()
	if !ok {
		return Plan{}, false
	}
	p := Plan{
		Intent:      in,
		Strategy:    StrategyFor(in),
		Direction:   traversal.Both,
		MinEntities: in.MinEntities(),
	}
	for i := range lex.Rules {
		if r := &lex.Rules[i]; r.Intent == in {
			p = planFromRule(r)
			p.Rule = ""
			break
		}
	}
	if rels := h.RelationTypes(); len(rels) > 0 {
		p.Relations = rels
	}
	p.FromHint = true
	return p, true
}
