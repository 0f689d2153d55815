package extract

import (
	"slices"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/lexicon"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

type entry struct {
	c      types.Candidate
	tokens map[string]bool
	seq    int
}

// accumulator collects candidates across stages, deduplicated by canonical
// id. A candidate whose mention tokens are a strict subset of an accepted
// candidate's is dropped, and a new candidate supersedes accepted ones
// whose mention tokens it strictly contains.
type accumulator struct {
	items []*entry
	seq   int
}

func (a *accumulator) len() int { return len(a.items) }

// add reports whether c was accepted.
func (a *accumulator) add(c types.Candidate) bool {
	tokens := tokenSet(c.Mention)
	for _, e := range a.items {
		if e.c.ID != c.ID {
			continue
		}
		if strictSubset(e.tokens, tokens) {
			e.c.Mention = c.Mention
			e.tokens = tokens
		}
		return false
	}
	for _, e := range a.items {
		if strictSubset(tokens, e.tokens) {
			return false
		}
	}
	a.items = slices.DeleteFunc(a.items, func(e *entry) bool {
		return strictSubset(e.tokens, tokens)
	})
	a.seq++
	a.items = append(a.items, &entry{c: c, tokens: tokens, seq: a.seq})
	return true
}

// ranked returns the candidates by confidence, then type boost, then
// discovery order, keeping only the expected types when any are given.
func (a *accumulator) ranked(boosts map[types.EntityType]float64, expected []types.EntityType) []types.Candidate {
	items := slices.Clone(a.items)
	slices.SortStableFunc(items, func(x, y *entry) int {
		switch {
		case x.c.Confidence != y.c.Confidence:
			if x.c.Confidence > y.c.Confidence {
				return -1
			}
			return 1
		case boosts[x.c.Type] != boosts[y.c.Type]:
			if boosts[x.c.Type] > boosts[y.c.Type] {
				return -1
			}
			return 1
		}
		return x.seq - y.seq
	})

	out := make([]types.Candidate, 0, len(items))
	for _, e := range items {
		if len(expected) == 0 || slices.Contains(expected, e.c.Type) {
			out = append(out, e.c)
		}
	}
	return out
}

func tokenSet(mention string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range lexicon.Tokens(lexicon.Fold(mention)) {
		set[t] = true
	}
	return set
}

// strictSubset reports whether a is a proper subset of b.
func strictSubset(a, b map[string]bool) bool {
	if len(a) >= len(b) {
		return false
	}
	for t := range a {
		if !b[t] {
			return false
		}
	}
	return true
}
