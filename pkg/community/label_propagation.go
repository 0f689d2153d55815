package community

import (
	"maps"
	"slices"
	"sort"
)

// labelPropagation implements the label propagation community detection
// algorithm. Nodes start in their own community, numbered in id order, and
// repeatedly adopt the community most represented among their neighbors,
// weighted by edge count. Clusters are returned with sorted members.
func (b *Builder) labelPropagation(projection map[string][]Neighbor) [][]string {
	if len(projection) == 0 {
		return nil
	}

	nodes := slices.Sorted(maps.Keys(projection))
	communityMap := make(map[string]int, len(nodes))
	for i, id := range nodes {
		communityMap[id] = i
	}

	type communityScore struct {
		community int
		count     int
	}

	for iteration := 0; iteration < b.maxIterations; iteration++ {
		noChange := true
		newCommunityMap := make(map[string]int, len(nodes))

		for _, id := range nodes {
			currentCommunity := communityMap[id]

			candidates := make(map[int]int)
			for _, nb := range projection[id] {
				if c, ok := communityMap[nb.ID]; ok {
					candidates[c] += nb.EdgeCount
				}
			}

			scores := make([]communityScore, 0, len(candidates))
			for c, count := range candidates {
				scores = append(scores, communityScore{community: c, count: count})
			}
			// by count, then by community id for tie-breaking
			sort.Slice(scores, func(i, j int) bool {
				if scores[i].count != scores[j].count {
					return scores[i].count > scores[j].count
				}
				return scores[i].community > scores[j].community
			})

			newCommunity := currentCommunity
			if len(scores) > 0 {
				top := scores[0]
				if top.count > 1 {
					newCommunity = top.community
				} else if top.community > currentCommunity {
					newCommunity = top.community
				}
			}

			newCommunityMap[id] = newCommunity
			if newCommunity != currentCommunity {
				noChange = false
			}
		}

		communityMap = newCommunityMap
		if noChange {
			b.logger.Debug("label propagation converged", "iterations", iteration+1)
			break
		}
	}

	byCommunity := make(map[int][]string)
	for _, id := range nodes {
		c := communityMap[id]
		byCommunity[c] = append(byCommunity[c], id)
	}
	clusters := make([][]string, 0, len(byCommunity))
	for _, c := range slices.Sorted(maps.Keys(byCommunity)) {
		clusters = append(clusters, byCommunity[c])
	}
	return clusters
}
