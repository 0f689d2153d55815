// Package lexicon holds the language and domain tables used by the extractor
// and the reasoning dispatcher: stopwords, comparison signals, id prefixes,
// name aliases and the ordered intent rule table.
//
// The tables are data, not code. A default English/Vietnamese lexicon is
// embedded; Load replaces it with a YAML file.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/traversal"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

//go:embed default.yaml
var defaultYAML []byte

// Rule is one row of the intent table.
type Rule struct {
	Name        string               `yaml:"name"`
	Intent      types.Intent         `yaml:"intent"`
	Any         []string             `yaml:"any"`
	All         []string             `yaml:"all"`
	None        []string             `yaml:"none"`
	TargetType  types.EntityType     `yaml:"target_type"`
	Relations   []types.RelationType `yaml:"relations"`
	Direction   traversal.Direction  `yaml:"direction"`
	MinEntities int                  `yaml:"min_entities"`
}

// Matches reports whether the rule accepts a query already passed through Fold.
func (r *Rule) Matches(folded string) bool {
	for _, p := range r.None {
		if ContainsPhrase(folded, p) {
			return false
		}
	}
	for _, p := range r.All {
		if !ContainsPhrase(folded, p) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return len(r.All) > 0
	}
	for _, p := range r.Any {
		if ContainsPhrase(folded, p) {
			return true
		}
	}
	return false
}

// Required returns how many resolved entities a query matched by r needs.
func (r *Rule) Required() int {
	if r.MinEntities > 0 {
		return r.MinEntities
	}
	return r.Intent.MinEntities()
}

// Lexicon is an immutable set of language tables.
type Lexicon struct {
	Stopwords         []string          `yaml:"stopwords"`
	ComparisonSignals []string          `yaml:"comparison_signals"`
	IDPrefixes        []string          `yaml:"id_prefixes"`
	Aliases           map[string]string `yaml:"aliases"`
	Rules             []Rule            `yaml:"rules"`

	stop    map[string]bool
	aliases map[string]string
}

// Default returns the embedded lexicon.
func Default() *Lexicon {
	l, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("bundled lexicon is invalid: %v", err))
	}
	return l
}

// Load reads a lexicon file. An empty path yields the embedded lexicon.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and compiles a YAML lexicon document.
func Parse(data []byte) (*Lexicon, error) {
	var l Lexicon
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if err := l.compile(); err != nil {
		return nil, err
	}
	return &l, nil
}

func (l *Lexicon) compile() error {
	l.stop = make(map[string]bool, len(l.Stopwords))
	for _, w := range l.Stopwords {
		l.stop[Fold(w)] = true
	}
	l.aliases = make(map[string]string, len(l.Aliases))
	for k, v := range l.Aliases {
		l.aliases[Fold(k)] = v
	}
	l.ComparisonSignals = foldAll(l.ComparisonSignals)

	seen := make(map[string]bool, len(l.Rules))
	for i := range l.Rules {
		r := &l.Rules[i]
		if r.Name == "" {
			return fmt.Errorf("lexicon rule %d has no name", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate lexicon rule %q", r.Name)
		}
		seen[r.Name] = true

		intent, ok := types.ParseIntent(string(r.Intent))
		if !ok {
			return fmt.Errorf("lexicon rule %q: unknown intent %q", r.Name, r.Intent)
		}
		r.Intent = intent
		if len(r.Any) == 0 && len(r.All) == 0 {
			return fmt.Errorf("lexicon rule %q has no phrases", r.Name)
		}
		switch r.Direction {
		case "":
			r.Direction = traversal.Both
		case traversal.Out, traversal.In, traversal.Both:
		default:
			return fmt.Errorf("lexicon rule %q: invalid direction %q", r.Name, r.Direction)
		}
		for j, rel := range r.Relations {
			r.Relations[j] = types.ParseRelationType(string(rel))
		}
		r.Any = foldAll(r.Any)
		r.All = foldAll(r.All)
		r.None = foldAll(r.None)
	}
	return nil
}

// IsStopword reports whether a folded token carries no identifying meaning.
func (l *Lexicon) IsStopword(token string) bool {
	return l.stop[token]
}

// Alias returns the display name a folded alias points at.
func (l *Lexicon) Alias(folded string) (string, bool) {
	name, ok := l.aliases[folded]
	return name, ok
}

// HasComparisonSignal reports whether the query contains a comparison or
// ambiguity phrase.
func (l *Lexicon) HasComparisonSignal(query string) bool {
	folded := Fold(query)
	for _, s := range l.ComparisonSignals {
		if ContainsPhrase(folded, s) {
			return true
		}
	}
	return false
}

// Match returns the first rule accepting the query.
func (l *Lexicon) Match(query string) (*Rule, bool) {
	folded := Fold(query)
	for i := range l.Rules {
		if l.Rules[i].Matches(folded) {
			return &l.Rules[i], true
		}
	}
	return nil, false
}

// Fold lowercases s, turns punctuation other than hyphens and apostrophes
// into spaces and collapses whitespace.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '-' || r == '\'' {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens splits a folded string into words.
func Tokens(folded string) []string {
	return strings.Fields(folded)
}

// ContainsPhrase reports whether phrase occurs in folded on word boundaries.
// Both arguments must already be folded.
func ContainsPhrase(folded, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+folded+" ", " "+phrase+" ")
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if f := Fold(s); f != "" {
			out = append(out, f)
		}
	}
	return out
}
