package graph

import (
	"regexp"
	"slices"
	"strings"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

var (
	qualifierSuffix = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
	whitespace      = regexp.MustCompile(`\s+`)
)

// DefaultIDPrefixes are stripped by NormalizeID.
var DefaultIDPrefixes = []string{"Category:", "Thể loại:", "wiki/"}

// Normalizer turns raw identifiers into normalization keys.
type Normalizer struct {
	prefixes []string
}

// NewNormalizer creates a normalizer stripping the given prefixes
// (case-insensitive). A nil slice means DefaultIDPrefixes.
func NewNormalizer(prefixes []string) *Normalizer {
	if prefixes == nil {
		prefixes = DefaultIDPrefixes
	}
	return &Normalizer{prefixes: slices.Clone(prefixes)}
}

var defaultNormalizer = NewNormalizer(nil)

// NormalizeID strips known decorations from a raw id using the default
// prefixes. It is a pure function.
func NormalizeID(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

// Normalize strips prefixes and a trailing "(qualifier)", maps underscores
// to spaces, collapses whitespace and lowercases.
func (n *Normalizer) Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	for _, p := range n.prefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			s = strings.TrimSpace(s[len(p):])
		}
	}
	s = strings.ReplaceAll(s, "_", " ")
	if stripped := qualifierSuffix.ReplaceAllString(s, ""); strings.TrimSpace(stripped) != "" {
		s = stripped
	}
	return normalizeText(s)
}

// normalizeText lowercases text and collapses whitespace so equal names map to the same key
func normalizeText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(strings.ToLower(s), " "))
}

// NameVariants returns the lookup spellings of a name: the normalized form
// plus hyphen/space variants ("g-dragon" -> "g dragon", "gdragon").
func NameVariants(name string) []string {
	base := normalizeText(name)
	if base == "" {
		return nil
	}
	variants := []string{base}
	add := func(v string) {
		v = normalizeText(v)
		if v != "" && !slices.Contains(variants, v) {
			variants = append(variants, v)
		}
	}
	if strings.Contains(base, "-") {
		add(strings.ReplaceAll(base, "-", " "))
		add(strings.ReplaceAll(base, "-", ""))
	}
	if strings.Contains(base, " ") {
		add(strings.ReplaceAll(base, " ", ""))
		add(strings.ReplaceAll(base, " ", "-"))
	}
	return variants
}

// ContentSignature fingerprints an entity by type and its sorted normalized
// attribute pairs. Entities without attribute values fall back to the
// normalized id so that decorated variants of a bare name still collapse.
func ContentSignature(t types.EntityType, attrs types.Attributes, normalizedID string) string {
	pairs := make([]string, 0, attrs.Len())
	attrs.Each(func(k, v string) bool {
		key := normalizeText(k)
		val := strings.ReplaceAll(normalizeText(v), ", ", ",")
		if key != "" && val != "" {
			pairs = append(pairs, key+"="+val)
		}
		return true
	})
	if len(pairs) == 0 {
		pairs = append(pairs, "@id="+normalizedID)
	}
	slices.Sort(pairs)
	return strings.ToLower(string(t)) + "|" + strings.Join(pairs, "|")
}
