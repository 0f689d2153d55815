package reasoning

import (
	"fmt"
	"slices"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/answer"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/traversal"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// maxComparisonDepth bounds the reachable sets a comparison intersects.
const maxComparisonDepth = 2

// reach is the set of target-typed entities reachable from one entity.
type reach struct {
	ids   []string
	set   map[string]bool
	depth int
}

// reachable walks breadth-first from id along rels in dir for up to depth
// hops and keeps the entities of type t, id itself included when it has
// that type.
func reachable(eng *traversal.Engine, id string, rels []types.RelationType, dir traversal.Direction, depth int, t types.EntityType) (reach, error) {
	snap := eng.Snapshot()
	r := reach{set: make(map[string]bool)}
	keep := func(n string, d int) {
		if e, ok := snap.Entity(n); ok && (t == "" || e.Type == t) && !r.set[n] {
			r.set[n] = true
			r.ids = append(r.ids, n)
			r.depth = max(r.depth, d)
		}
	}
	if t != "" {
		keep(id, 0)
	}

	visited := map[string]bool{id: true}
	frontier := []string{id}
	for d := 1; d <= depth && len(frontier) > 0; d++ {
		var next []string
		for _, n := range frontier {
			nbs, err := eng.NeighborIDs(n, rels, dir)
			if err != nil {
				return reach{}, err
			}
			for _, nb := range nbs {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				next = append(next, nb)
				keep(nb, d)
			}
		}
		frontier = next
	}
	return r, nil
}

func reachStep(snap *graph.Snapshot, side int, id string, rels []types.RelationType, t types.EntityType, r reach) types.ReasoningStep {
	what := "related entities"
	if t != "" {
		what = string(t)
	}
	rationale := fmt.Sprintf("%s reaches no %s through %s", displayName(snap, id), what, relationLabel(rels))
	if len(r.ids) > 0 {
		rationale = fmt.Sprintf("%s reaches %s %s through %s", displayName(snap, id), what, nameList(snap, r.ids), relationLabel(rels))
	}
	return types.ReasoningStep{
		HopNumber:      max(r.depth, 1),
		Operation:      fmt.Sprintf("reach side %d", side),
		SourceEntities: []string{id},
		RelationTypes:  rels,
		TargetEntities: r.ids,
		Rationale:      rationale,
	}
}

// Comparison answers "same group", "same organization" and membership
// questions by intersecting reachable sets. Both sides must have evidence
// for a negative answer to be definitive.
type Comparison struct{}

func (Comparison) Kind() types.StrategyKind { return types.StrategyComparison }

func (c Comparison) Execute(eng *traversal.Engine, in Input) (answer.Finding, error) {
	if len(in.Entities) < 2 {
		return answer.Finding{}, fmt.Errorf("%w: comparison needs 2 entities, got %d", types.ErrInsufficientEntities, len(in.Entities))
	}
	if in.Plan.Intent == types.IntentMembership {
		return c.membership(eng, in)
	}

	snap := eng.Snapshot()
	depth := min(in.Hops, maxComparisonDepth)
	a, b := in.pair()

	ra, err := reachable(eng, a, in.Plan.Relations, in.Plan.Direction, depth, in.Plan.TargetType)
	if err != nil {
		return answer.Finding{}, err
	}
	rb, err := reachable(eng, b, in.Plan.Relations, in.Plan.Direction, depth, in.Plan.TargetType)
	if err != nil {
		return answer.Finding{}, err
	}

	var common []string
	for _, id := range ra.ids {
		if rb.set[id] {
			common = append(common, id)
		}
	}

	f := answer.Finding{
		Steps: []types.ReasoningStep{
			reachStep(snap, 1, a, in.Plan.Relations, in.Plan.TargetType, ra),
			reachStep(snap, 2, b, in.Plan.Relations, in.Plan.TargetType, rb),
		},
		Answer: common,
	}
	what := "anything"
	if in.Plan.TargetType != "" {
		what = "a " + string(in.Plan.TargetType)
	}
	nameA, nameB := displayName(snap, a), displayName(snap, b)
	switch {
	case len(common) > 0:
		f.Definitive = true
		f.Headline = fmt.Sprintf("Yes, %s and %s share %s.", nameA, nameB, nameList(snap, common))
	case len(ra.ids) > 0 && len(rb.ids) > 0:
		f.Definitive = true
		f.Headline = fmt.Sprintf("No, %s and %s do not share %s: %s has %s, %s has %s.",
			nameA, nameB, what, nameA, nameList(snap, ra.ids), nameB, nameList(snap, rb.ids))
	default:
		f.Headline = fmt.Sprintf("I could not find %s for both %s and %s.", what, nameA, nameB)
	}
	return f, nil
}

// membership checks whether the subject reaches one of the target-typed
// entities. Absence is a definitive negative.
func (Comparison) membership(eng *traversal.Engine, in Input) (answer.Finding, error) {
	snap := eng.Snapshot()
	subject, targets := splitMembership(in)

	r, err := reachable(eng, subject, in.Plan.Relations, in.Plan.Direction, min(in.Hops, maxComparisonDepth), "")
	if err != nil {
		return answer.Finding{}, err
	}
	var hits []string
	for _, t := range targets {
		if r.set[t] {
			hits = append(hits, t)
		}
	}

	f := answer.Finding{
		Steps:      []types.ReasoningStep{reachStep(snap, 1, subject, in.Plan.Relations, "", r)},
		Answer:     hits,
		Definitive: true,
	}
	if len(hits) > 0 {
		f.Headline = fmt.Sprintf("Yes, %s is a member of %s.", displayName(snap, subject), nameList(snap, hits))
	} else {
		f.Headline = fmt.Sprintf("No, %s is not a member of %s.", displayName(snap, subject), nameList(snap, targets))
	}
	return f, nil
}

// splitMembership separates the subject from the candidate containers:
// entities of the plan's target type are containers. When that does not
// split the entities the first one is the subject.
func splitMembership(in Input) (string, []string) {
	var subjects, targets []string
	for _, c := range in.Entities {
		if in.Plan.TargetType != "" && c.Type == in.Plan.TargetType {
			targets = append(targets, c.ID)
		} else {
			subjects = append(subjects, c.ID)
		}
	}
	if len(subjects) == 0 || len(targets) == 0 {
		ids := in.ids()
		return ids[0], ids[1:]
	}
	return subjects[0], targets
}

// Intersection generalizes Comparison to any number of entities by
// intersecting one-hop neighbor sets.
type Intersection struct{}

func (Intersection) Kind() types.StrategyKind { return types.StrategyIntersection }

func (Intersection) Execute(eng *traversal.Engine, in Input) (answer.Finding, error) {
	if len(in.Entities) < 2 {
		return answer.Finding{}, fmt.Errorf("%w: intersection needs 2 entities, got %d", types.ErrInsufficientEntities, len(in.Entities))
	}
	snap := eng.Snapshot()
	ids := in.ids()

	var (
		common []string
		steps  []types.ReasoningStep
		empty  bool
	)
	for i, id := range ids {
		nbs, err := eng.NeighborIDs(id, in.Plan.Relations, in.Plan.Direction)
		if err != nil {
			return answer.Finding{}, err
		}
		nbs = slices.DeleteFunc(nbs, func(n string) bool { return slices.Contains(ids, n) })
		steps = append(steps, types.ReasoningStep{
			HopNumber:      1,
			Operation:      fmt.Sprintf("neighbors of entity %d", i+1),
			SourceEntities: []string{id},
			RelationTypes:  in.Plan.Relations,
			TargetEntities: nbs,
			Rationale:      fmt.Sprintf("%s is directly linked to %d entities: %s", displayName(snap, id), len(nbs), nameList(snap, nbs)),
		})
		if len(nbs) == 0 {
			empty = true
		}
		if i == 0 {
			common = slices.Clone(nbs)
			continue
		}
		common = slices.DeleteFunc(common, func(n string) bool { return !slices.Contains(nbs, n) })
	}

	f := answer.Finding{Steps: steps, Answer: common}
	names := nameList(snap, ids)
	switch {
	case len(common) > 0:
		f.Definitive = true
		f.Headline = fmt.Sprintf("%s have %d entities in common.", names, len(common))
	case !empty:
		f.Definitive = true
		f.Headline = fmt.Sprintf("%s have nothing in common.", names)
	default:
		f.Headline = fmt.Sprintf("I could not find links for every one of %s.", names)
	}
	return f, nil
}
