package extract

import (
	"slices"
	"strings"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/graph"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/lexicon"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// nameEntry is one lookup spelling of an entity.
type nameEntry struct {
	id     string
	text   string
	tokens []string
}

// nameIndex maps folded name spellings of one snapshot to canonical ids.
type nameIndex struct {
	snap    *graph.Snapshot
	exact   map[string][]string
	entries []nameEntry
	byToken map[string][]int
}

func buildIndex(snap *graph.Snapshot, significant func(string) bool) *nameIndex {
	idx := &nameIndex{
		snap:    snap,
		exact:   make(map[string][]string),
		byToken: make(map[string][]int),
	}
	seen := make(map[[2]string]bool)

	add := func(id, name string) {
		for _, v := range graph.NameVariants(lexicon.Fold(name)) {
			key := [2]string{id, v}
			if seen[key] {
				continue
			}
			seen[key] = true
			if !slices.Contains(idx.exact[v], id) {
				idx.exact[v] = append(idx.exact[v], id)
			}
			tokens := strings.Fields(v)
			idx.entries = append(idx.entries, nameEntry{id: id, text: v, tokens: tokens})
			for _, t := range tokens {
				if significant(t) {
					idx.byToken[t] = append(idx.byToken[t], len(idx.entries)-1)
				}
			}
		}
	}

	norm := snap.Normalizer()
	snap.Each(func(e *types.Entity) bool {
		add(e.ID, e.Name())
		add(e.ID, norm.Normalize(e.ID))
		return true
	})
	snap.EachAlias(func(alias, id string) bool {
		add(id, norm.Normalize(alias))
		return true
	})
	return idx
}

// lookup returns the ids spelled exactly as the folded text.
func (idx *nameIndex) lookup(folded string) []string {
	return idx.exact[folded]
}

// related returns the entries sharing at least one significant token with tokens.
func (idx *nameIndex) related(tokens []string) []int {
	var out []int
	seen := make(map[int]bool)
	for _, t := range tokens {
		for _, i := range idx.byToken[t] {
			if !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}
	slices.Sort(out)
	return out
}
