package types

import (
	"strings"
	"time"
)

// Intent is the classified purpose of a query.
type Intent string

const (
	IntentMembership          Intent = "Membership"
	IntentSameGroupComparison Intent = "SameGroupComparison"
	IntentSameOrgComparison   Intent = "SameOrgComparison"
	IntentListRelated         Intent = "ListRelated"
	IntentChainLookup         Intent = "ChainLookup"
	IntentAggregation         Intent = "Aggregation"
	IntentIntersection        Intent = "Intersection"
	IntentConnection          Intent = "Connection"
)

var intentsByFold = map[string]Intent{}

func init() {
	for _, in := range AllIntents() {
		intentsByFold[strings.ToLower(string(in))] = in
	}
	// spellings an NLU model tends to produce
	intentsByFold["same_group"] = IntentSameGroupComparison
	intentsByFold["same_company"] = IntentSameOrgComparison
	intentsByFold["same_organization"] = IntentSameOrgComparison
	intentsByFold["list"] = IntentListRelated
	intentsByFold["chain"] = IntentChainLookup
	intentsByFold["aggregate"] = IntentAggregation
	intentsByFold["common"] = IntentIntersection
	intentsByFold["path"] = IntentConnection
}

// AllIntents returns every intent the dispatcher knows.
func AllIntents() []Intent {
	return []Intent{
		IntentMembership, IntentSameGroupComparison, IntentSameOrgComparison,
		IntentListRelated, IntentChainLookup, IntentAggregation,
		IntentIntersection, IntentConnection,
	}
}

// ParseIntent maps a loosely spelled intent name to an Intent.
func ParseIntent(s string) (Intent, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	if in, ok := intentsByFold[key]; ok {
		return in, true
	}
	in, ok := intentsByFold[strings.ReplaceAll(key, "_", "")]
	return in, ok
}

// MinEntities returns how many resolved entities the intent needs.
func (i Intent) MinEntities() int {
	switch i {
	case IntentMembership, IntentSameGroupComparison, IntentSameOrgComparison,
		IntentIntersection, IntentConnection:
		return 2
	default:
		return 1
	}
}

// StrategyKind names the traversal procedure used to answer an intent.
type StrategyKind string

const (
	StrategyChain        StrategyKind = "Chain"
	StrategyAggregation  StrategyKind = "Aggregation"
	StrategyComparison   StrategyKind = "Comparison"
	StrategyIntersection StrategyKind = "Intersection"
	StrategyPath         StrategyKind = "Path"
)

// Outcome distinguishes the three kinds of answers.
type Outcome string

const (
	OutcomeFound              Outcome = "Found"
	OutcomeDefinitiveNegative Outcome = "DefinitiveNegative"
	OutcomeNotFound           Outcome = "NotFound"
)

// ReasoningStep records one hop or one comparison side of a reasoning run.
type ReasoningStep struct {
	HopNumber      int            `json:"hop_number"`
	Operation      string         `json:"operation"`
	SourceEntities []string       `json:"source_entities"`
	RelationTypes  []RelationType `json:"relation_types,omitempty"`
	TargetEntities []string       `json:"target_entities"`
	Rationale      string         `json:"rationale"`
}

// AnswerGroup is one entity-type bucket of a rendered answer.
type AnswerGroup struct {
	Type  EntityType `json:"type"`
	Count int        `json:"count"`
	Names []string   `json:"names"`
	More  int        `json:"more,omitempty"`
}

// ReasoningResult is the output contract of a reasoning call. It is always
// returned, error conditions included.
type ReasoningResult struct {
	ID             string          `json:"id"`
	Query          string          `json:"query"`
	Intent         Intent          `json:"intent,omitempty"`
	Strategy       StrategyKind    `json:"strategy,omitempty"`
	Outcome        Outcome         `json:"outcome"`
	Entities       []Candidate     `json:"entities,omitempty"`
	Steps          []ReasoningStep `json:"steps"`
	AnswerEntities []string        `json:"answer_entities"`
	Groups         []AnswerGroup   `json:"groups,omitempty"`
	Confidence     float64         `json:"confidence"`
	RenderedText   string          `json:"rendered_text"`
	Explanation    []string        `json:"explanation,omitempty"`
	Error          ErrorCode       `json:"error,omitempty"`
	UsedHint       bool            `json:"used_hint,omitempty"`
	Duration       time.Duration   `json:"duration_ns"`
}
