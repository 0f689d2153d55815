// Package answer scores reasoning findings and renders them for people.
package answer

import (
	"fmt"
	"strings"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Defaults for Config.
const (
	DefaultDisplayCap     = 10
	DefaultSecondHopDecay = 0.9
	DefaultDeepHopDecay   = 0.8
)

// Config tunes confidence decay and display truncation.
type Config struct {
	// DisplayCap is the number of names shown per entity type before the
	// "+N more" marker.
	DisplayCap int
	// SecondHopDecay multiplies the confidence of a two-hop answer.
	SecondHopDecay float64
	// DeepHopDecay multiplies the confidence once more for every hop past the second.
	DeepHopDecay float64
}

// DefaultConfig returns the default synthesizer settings.
func DefaultConfig() Config {
	return Config{
		DisplayCap:     DefaultDisplayCap,
		SecondHopDecay: DefaultSecondHopDecay,
		DeepHopDecay:   DefaultDeepHopDecay,
	}
}

// EntityLookup resolves canonical ids to entities. *graph.Snapshot implements it.
type EntityLookup interface {
	Entity(id string) (*types.Entity, bool)
}

// Finding is what a reasoning strategy hands to the synthesizer.
type Finding struct {
	Intent types.Intent
	Steps  []types.ReasoningStep
	Answer []string

	// Definitive marks findings that prove their answer outright, such as a
	// comparison that intersected both sides. A definitive finding with an
	// empty answer is a DefinitiveNegative.
	Definitive bool

	// Headline replaces the default lead sentence of the rendered text.
	Headline string
}

// StructuredAnswer is the rendered form of a Finding.
type StructuredAnswer struct {
	Outcome     types.Outcome
	Confidence  float64
	Groups      []types.AnswerGroup
	Text        string
	Explanation []string
}

// Synthesizer turns findings into scored, renderable answers. It holds no
// mutable state and is safe for concurrent use.
type Synthesizer struct {
	cfg Config
}

// New creates a synthesizer. Zero fields of cfg take their defaults.
func New(cfg Config) *Synthesizer {
	def := DefaultConfig()
	if cfg.DisplayCap <= 0 {
		cfg.DisplayCap = def.DisplayCap
	}
	if cfg.SecondHopDecay <= 0 || cfg.SecondHopDecay > 1 {
		cfg.SecondHopDecay = def.SecondHopDecay
	}
	if cfg.DeepHopDecay <= 0 || cfg.DeepHopDecay > 1 {
		cfg.DeepHopDecay = def.DeepHopDecay
	}
	return &Synthesizer{cfg: cfg}
}

// Hops returns the hop count covered by steps: the largest hop number.
func Hops(steps []types.ReasoningStep) int {
	hops := 0
	for _, st := range steps {
		hops = max(hops, st.HopNumber)
	}
	return hops
}

// Confidence scores an answer by the number of hops that produced it. One
// hop scores 1.0, the second hop multiplies by SecondHopDecay and every
// later hop by DeepHopDecay. No steps score 0.
func (s *Synthesizer) Confidence(steps []types.ReasoningStep) float64 {
	hops := Hops(steps)
	if hops == 0 {
		return 0
	}
	c := 1.0
	for h := 2; h <= hops; h++ {
		if h == 2 {
			c *= s.cfg.SecondHopDecay
		} else {
			c *= s.cfg.DeepHopDecay
		}
	}
	return c
}

// Synthesize decides the outcome of f, scores it and renders it.
func (s *Synthesizer) Synthesize(lookup EntityLookup, f Finding) StructuredAnswer {
	var out StructuredAnswer
	switch {
	case len(f.Answer) > 0 && f.Definitive:
		out.Outcome, out.Confidence = types.OutcomeFound, 1.0
	case len(f.Answer) > 0:
		out.Outcome, out.Confidence = types.OutcomeFound, s.Confidence(f.Steps)
		if out.Confidence == 0 {
			out.Outcome = types.OutcomeNotFound
		}
	case f.Definitive:
		out.Outcome, out.Confidence = types.OutcomeDefinitiveNegative, 1.0
	default:
		out.Outcome = types.OutcomeNotFound
	}

	r := s.Render(lookup, f.Intent, f.Answer, f.Steps)
	out.Groups, out.Explanation = r.Groups, r.Explanation

	headline := f.Headline
	if headline == "" {
		headline = defaultHeadline(out.Outcome, len(f.Answer))
	}
	if out.Outcome == types.OutcomeFound && r.Text != "" {
		out.Text = headline + "\n" + r.Text
	} else {
		out.Text = headline
	}
	return out
}

// Render groups answer by entity type in order of first appearance,
// truncates each group at the display cap with a "+N more" marker and
// collects the step rationales as an explanation trail. Outcome and
// Confidence are left for Synthesize to fill.
func (s *Synthesizer) Render(lookup EntityLookup, intent types.Intent, answer []string, steps []types.ReasoningStep) StructuredAnswer {
	var (
		groups []types.AnswerGroup
		index  = make(map[types.EntityType]int)
		seen   = make(map[string]bool, len(answer))
	)
	for _, id := range answer {
		if seen[id] {
			continue
		}
		seen[id] = true
		typ, name := types.EntityType("Unknown"), id
		if e, ok := lookup.Entity(id); ok {
			typ, name = e.Type, e.Name()
		}
		i, ok := index[typ]
		if !ok {
			i = len(groups)
			index[typ] = i
			groups = append(groups, types.AnswerGroup{Type: typ})
		}
		g := &groups[i]
		g.Count++
		if len(g.Names) < s.cfg.DisplayCap {
			g.Names = append(g.Names, name)
		} else {
			g.More++
		}
	}

	lines := make([]string, 0, len(groups))
	for _, g := range groups {
		line := fmt.Sprintf("%s (%d): %s", g.Type, g.Count, strings.Join(g.Names, ", "))
		if g.More > 0 {
			line += fmt.Sprintf(" +%d more", g.More)
		}
		lines = append(lines, line)
	}

	explanation := make([]string, 0, len(steps))
	for _, st := range steps {
		if st.Rationale == "" {
			continue
		}
		explanation = append(explanation, fmt.Sprintf("Hop %d (%s): %s", st.HopNumber, st.Operation, st.Rationale))
	}

	return StructuredAnswer{
		Groups:      groups,
		Text:        strings.Join(lines, "\n"),
		Explanation: explanation,
	}
}

func defaultHeadline(o types.Outcome, n int) string {
	switch o {
	case types.OutcomeFound:
		if n == 1 {
			return "Found 1 answer."
		}
		return fmt.Sprintf("Found %d answers.", n)
	case types.OutcomeDefinitiveNegative:
		return "No."
	default:
		return "No answer was found within the hop budget."
	}
}
