package reasoning

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/answer"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/traversal"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Connection explains how two entities are linked: one step per edge of
// the shortest path, followed by the other simple paths within the budget.
type Connection struct {
	// Limit bounds how many simple paths are listed.
	Limit int
}

func (Connection) Kind() types.StrategyKind { return types.StrategyPath }

func (c Connection) Execute(eng *traversal.Engine, in Input) (answer.Finding, error) {
	if len(in.Entities) < 2 {
		return answer.Finding{}, fmt.Errorf("%w: connection needs 2 entities, got %d", types.ErrInsufficientEntities, len(in.Entities))
	}
	snap := eng.Snapshot()
	a, b := in.pair()
	opts := []traversal.PathOption{
		traversal.WithDirection(in.Plan.Direction),
		traversal.WithRelations(in.Plan.Relations...),
	}

	shortest, err := eng.ShortestPath(a, b, in.Hops, opts...)
	if errors.Is(err, types.ErrNoPathFound) {
		return answer.Finding{
			Headline: fmt.Sprintf("%s and %s are not connected within %d hops.",
				displayName(snap, a), displayName(snap, b), in.Hops),
		}, err
	}
	if err != nil {
		return answer.Finding{}, err
	}

	var steps []types.ReasoningStep
	for i, h := range eng.PathDetails(shortest) {
		steps = append(steps, types.ReasoningStep{
			HopNumber:      i + 1,
			Operation:      "traverse",
			SourceEntities: []string{h.From},
			RelationTypes:  h.Relations,
			TargetEntities: []string{h.To},
			Rationale:      hopText(snap, h),
		})
	}

	f := answer.Finding{
		Steps:  steps,
		Answer: shortest[1:],
		Headline: fmt.Sprintf("%s and %s are connected in %d hops: %s.",
			displayName(snap, a), displayName(snap, b), shortest.Hops(), pathText(snap, shortest)),
	}

	paths, err := eng.AllSimplePaths(a, b, in.Hops, append(opts, traversal.WithPathLimit(cmpOr(c.Limit, DefaultPathLimit)+1))...)
	if err == nil && len(paths) > 1 {
		var alt []string
		for _, p := range paths {
			if len(alt) == cmpOr(c.Limit, DefaultPathLimit)-1 {
				break
			}
			if !slices.Equal(p, shortest) {
				alt = append(alt, pathText(snap, p))
			}
		}
		if len(alt) > 0 {
			f.Headline += "\nOther connections:\n- " + strings.Join(alt, "\n- ")
		}
	}
	return f, nil
}

func hopText(snap *graph.Snapshot, h traversal.Hop) string {
	arrow := fmt.Sprintf("-[%s]->", relationLabel(h.Relations))
	if h.Direction == traversal.In {
		arrow = fmt.Sprintf("<-[%s]-", relationLabel(h.Relations))
	}
	return fmt.Sprintf("%s %s %s", displayName(snap, h.From), arrow, displayName(snap, h.To))
}

func pathText(snap *graph.Snapshot, p traversal.Path) string {
	names := make([]string, len(p))
	for i, id := range p {
		names[i] = displayName(snap, id)
	}
	return strings.Join(names, " → ")
}
