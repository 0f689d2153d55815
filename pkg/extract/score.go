package extract

import (
	"strings"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Scoring tiers. Each stage scores within its own band so a later, looser
// stage can never outrank an earlier, stricter one.
const (
	// ScoreExact is given to a mention that resolves directly or through an alias.
	ScoreExact = 1.0

	// ScoreNGramExact is given to an n-gram window equal to a name variant.
	ScoreNGramExact = 0.9

	// ScoreNGramOverlapMin and ScoreNGramOverlapMax bound partial n-gram matches.
	ScoreNGramOverlapMin = 0.5
	ScoreNGramOverlapMax = 0.8

	// ScoreSubstringMin and ScoreSubstringMax bound last-resort substring matches.
	ScoreSubstringMin = 0.25
	ScoreSubstringMax = 0.4

	// MinOverlapTokens is the number of shared significant tokens a
	// multi-token window needs to partially match a multi-token name.
	MinOverlapTokens = 2
)

// DefaultTypeBoosts rank entity types when candidates tie on confidence.
var DefaultTypeBoosts = map[types.EntityType]float64{
	types.EntityTypeGroup:        1.6,
	types.EntityTypeOrganization: 1.3,
	types.EntityTypeWork:         1.2,
	types.EntityTypeCategory:     1.1,
	types.EntityTypePerson:       1.0,
	types.EntityTypeAttribute:    1.0,
}

// ExactScore scores a folded mention against a folded name: ScoreExact when
// they are equal, 0 otherwise.
func ExactScore(mention, name string) float64 {
	if mention != "" && mention == name {
		return ScoreExact
	}
	return 0
}

// NGramScore scores a window of folded tokens against a name's tokens.
// Equal token sequences score ScoreNGramExact. When both sides have at least
// two tokens and share at least MinOverlapTokens significant tokens, the
// score rises from ScoreNGramOverlapMin with the share of tokens covered.
// Anything else scores 0.
func NGramScore(window, name []string, significant func(string) bool) float64 {
	if len(window) == 0 || len(name) == 0 {
		return 0
	}
	if strings.Join(window, " ") == strings.Join(name, " ") {
		return ScoreNGramExact
	}
	if len(window) < 2 || len(name) < 2 {
		return 0
	}

	sigWindow := significantSet(window, significant)
	sigName := significantSet(name, significant)
	overlap := 0
	for tok := range sigWindow {
		if sigName[tok] {
			overlap++
		}
	}
	if overlap < MinOverlapTokens {
		return 0
	}
	coverage := float64(overlap) / float64(max(len(sigWindow), len(sigName)))
	return ScoreNGramOverlapMin + (ScoreNGramOverlapMax-ScoreNGramOverlapMin)*coverage*0.999
}

// SubstringScore scores a folded token contained in a longer folded name.
// Tokens shorter than minLen, and tokens equal to the name, score 0.
func SubstringScore(token, name string, minLen int) float64 {
	if len([]rune(token)) < minLen || token == name || !strings.Contains(name, token) {
		return 0
	}
	coverage := float64(len(token)) / float64(len(name))
	return ScoreSubstringMin + (ScoreSubstringMax-ScoreSubstringMin)*coverage
}

func significantSet(tokens []string, significant func(string) bool) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if significant == nil || significant(t) {
			set[t] = true
		}
	}
	return set
}
