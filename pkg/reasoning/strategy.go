package reasoning

import (
	"fmt"
	"slices"
	"strings"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/answer"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/lexicon"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/traversal"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Input is what a strategy receives from the dispatcher.
type Input struct {
	Plan     Plan
	Entities []types.Candidate
	Hops     int
	// Query is the question text, used to order subjects by mention.
	Query string
}

func (in Input) ids() []string {
	ids := make([]string, len(in.Entities))
	for i, c := range in.Entities {
		ids[i] = c.ID
	}
	return ids
}

// pair returns the two subjects of a two-entity question. Entities of the
// plan's target type are set aside while at least two others remain, and
// the rest are taken in the order the question mentions them. Mentions not
// found in the question keep their ranking after the ones that are.
func (in Input) pair() (string, string) {
	subjects := slices.Clone(in.Entities)
	if t := in.Plan.TargetType; t != "" {
		others := slices.DeleteFunc(slices.Clone(subjects), func(c types.Candidate) bool { return c.Type == t })
		if len(others) >= 2 {
			subjects = others
		}
	}
	folded := " " + lexicon.Fold(in.Query) + " "
	position := func(c types.Candidate) int {
		for _, m := range []string{c.Mention, c.Name, c.ID} {
			if f := lexicon.Fold(m); f != "" {
				if i := strings.Index(folded, " "+f+" "); i >= 0 {
					return i
				}
			}
		}
		return len(folded)
	}
	slices.SortStableFunc(subjects, func(a, b types.Candidate) int { return position(a) - position(b) })
	return subjects[0].ID, subjects[1].ID
}

// Strategy answers one family of intents by walking the graph. Strategies
// only read the engine's snapshot, so one value may serve concurrent queries.
type Strategy interface {
	Kind() types.StrategyKind
	Execute(eng *traversal.Engine, in Input) (answer.Finding, error)
}

// Default strategy limits.
const (
	DefaultFrontierCap    = 10
	DefaultChainAnswerCap = 20
	DefaultAggregationCap = 50
	DefaultPathLimit      = 5
)

// rationaleNames is how many names a rationale spells out.
const rationaleNames = 5

// Chain expands a frontier hop by hop, following the plan's relations and
// direction. With a target type it stops at the first hop that reaches an
// entity of that type.
type Chain struct {
	// FrontierCap bounds how many entities of a frontier are expanded.
	FrontierCap int
	// AnswerCap bounds the answer size.
	AnswerCap int
}

func (Chain) Kind() types.StrategyKind { return types.StrategyChain }

func (c Chain) Execute(eng *traversal.Engine, in Input) (answer.Finding, error) {
	snap := eng.Snapshot()
	frontierCap := cmpOr(c.FrontierCap, DefaultFrontierCap)
	answerCap := cmpOr(c.AnswerCap, DefaultChainAnswerCap)

	seeds := chainSeeds(in)
	visited := make(map[string]bool)
	for _, id := range seeds {
		visited[id] = true
	}

	var (
		steps    []types.ReasoningStep
		found    []string
		frontier = seeds
	)
	for hop := 1; hop <= in.Hops && len(frontier) > 0; hop++ {
		expand := frontier[:min(len(frontier), frontierCap)]
		var next []string
		for _, id := range expand {
			nbs, err := eng.NeighborIDs(id, in.Plan.Relations, in.Plan.Direction)
			if err != nil {
				return answer.Finding{}, err
			}
			for _, nb := range nbs {
				if !visited[nb] {
					visited[nb] = true
					next = append(next, nb)
				}
			}
		}

		hits := ofType(snap, next, in.Plan.TargetType)
		steps = append(steps, types.ReasoningStep{
			HopNumber:      hop,
			Operation:      "expand",
			SourceEntities: slices.Clone(expand),
			RelationTypes:  in.Plan.Relations,
			TargetEntities: next,
			Rationale: fmt.Sprintf("followed %s %s from %s and reached %s",
				relationLabel(in.Plan.Relations), in.Plan.Direction, nameList(snap, expand), describe(snap, next, in.Plan.TargetType, hits)),
		})
		for _, id := range hits {
			if len(found) < answerCap {
				found = append(found, id)
			}
		}
		if in.Plan.TargetType != "" && len(found) > 0 {
			break
		}
		frontier = next
	}

	f := answer.Finding{Steps: steps, Answer: found}
	if len(found) == 0 {
		what := "anything related"
		if in.Plan.TargetType != "" {
			what = "any " + string(in.Plan.TargetType)
		}
		f.Headline = fmt.Sprintf("I could not find %s within %d hops of %s.", what, in.Hops, nameList(snap, seeds))
	}
	return f, nil
}

// chainSeeds starts from the entities that are not themselves answers. When
// every entity has the target type they all seed the chain.
func chainSeeds(in Input) []string {
	var seeds []string
	for _, c := range in.Entities {
		if in.Plan.TargetType == "" || c.Type != in.Plan.TargetType {
			seeds = append(seeds, c.ID)
		}
	}
	if len(seeds) == 0 {
		return in.ids()
	}
	return seeds
}

// Aggregation unions the bounded contexts of every entity and reports the
// result grouped by type.
type Aggregation struct {
	// Cap bounds the answer size before display truncation.
	Cap int
}

func (Aggregation) Kind() types.StrategyKind { return types.StrategyAggregation }

func (a Aggregation) Execute(eng *traversal.Engine, in Input) (answer.Finding, error) {
	snap := eng.Snapshot()
	limit := cmpOr(a.Cap, DefaultAggregationCap)
	seeds := in.ids()

	seen := make(map[string]bool, len(seeds))
	for _, id := range seeds {
		seen[id] = true
	}
	var (
		steps []types.ReasoningStep
		found []string
		total int
	)
	for _, id := range seeds {
		ctx, err := eng.BoundedContext(id, in.Hops)
		if err != nil {
			return answer.Finding{}, err
		}
		var reached []string
		depth := 0
		for _, n := range ctx.Nodes {
			if e, ok := snap.Entity(n.ID); !ok || (in.Plan.TargetType != "" && e.Type != in.Plan.TargetType) {
				continue
			}
			reached = append(reached, n.ID)
			depth = max(depth, n.Depth)
			if seen[n.ID] {
				continue
			}
			seen[n.ID] = true
			total++
			if len(found) < limit {
				found = append(found, n.ID)
			}
		}
		steps = append(steps, types.ReasoningStep{
			HopNumber:      max(depth, 1),
			Operation:      "aggregate",
			SourceEntities: []string{id},
			TargetEntities: reached,
			Rationale: fmt.Sprintf("%s is connected to %d entities within %d hops (%s)",
				displayName(snap, id), len(reached), in.Hops, typeCounts(snap, reached)),
		})
	}

	f := answer.Finding{Steps: steps, Answer: found}
	switch {
	case total == 0:
		f.Headline = fmt.Sprintf("%s has no connections within %d hops.", nameList(snap, seeds), in.Hops)
	case total > len(found):
		f.Headline = fmt.Sprintf("%s is connected to %d entities (%s), showing the first %d.",
			nameList(snap, seeds), total, typeCounts(snap, found), len(found))
	default:
		f.Headline = fmt.Sprintf("%s is connected to %d entities.", nameList(snap, seeds), total)
	}
	return f, nil
}

func ofType(snap *graph.Snapshot, ids []string, t types.EntityType) []string {
	if t == "" {
		return ids
	}
	var out []string
	for _, id := range ids {
		if e, ok := snap.Entity(id); ok && e.Type == t {
			out = append(out, id)
		}
	}
	return out
}

func displayName(snap *graph.Snapshot, id string) string {
	if e, ok := snap.Entity(id); ok {
		return e.Name()
	}
	return id
}

func nameList(snap *graph.Snapshot, ids []string) string {
	if len(ids) == 0 {
		return "nothing"
	}
	names := make([]string, 0, min(len(ids), rationaleNames))
	for _, id := range ids[:min(len(ids), rationaleNames)] {
		names = append(names, displayName(snap, id))
	}
	s := strings.Join(names, ", ")
	if extra := len(ids) - len(names); extra > 0 {
		s += fmt.Sprintf(" +%d more", extra)
	}
	return s
}

func describe(snap *graph.Snapshot, next []string, t types.EntityType, hits []string) string {
	if len(next) == 0 {
		return "no new entities"
	}
	if t == "" || len(hits) == len(next) {
		return fmt.Sprintf("%d entities: %s", len(next), nameList(snap, next))
	}
	if len(hits) == 0 {
		return fmt.Sprintf("%d entities, none of type %s", len(next), t)
	}
	return fmt.Sprintf("%d entities, %d of type %s: %s", len(next), len(hits), t, nameList(snap, hits))
}

func typeCounts(snap *graph.Snapshot, ids []string) string {
	counts := make(map[types.EntityType]int)
	var order []types.EntityType
	for _, id := range ids {
		e, ok := snap.Entity(id)
		if !ok {
			continue
		}
		if counts[e.Type] == 0 {
			order = append(order, e.Type)
		}
		counts[e.Type]++
	}
	parts := make([]string, 0, len(order))
	for _, t := range order {
		parts = append(parts, fmt.Sprintf("%s: %d", t, counts[t]))
	}
	return strings.Join(parts, ", ")
}

func relationLabel(rels []types.RelationType) string {
	if len(rels) == 0 {
		return "all relations"
	}
	parts := make([]string, len(rels))
	for i, r := range rels {
		parts[i] = string(r)
	}
	return strings.Join(parts, "/")
}

func cmpOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
