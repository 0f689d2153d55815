package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	jsonrepair "github.com/kaptinlin/jsonrepair"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/metrics"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/types"
)

// Hint is a soft suggestion from the collaborator. Nothing in it is trusted
// until revalidated against the graph.
type Hint struct {
	Entities  []string `json:"entities"`
	Intent    string   `json:"intent"`
	Relations []string `json:"relations"`
	HopDepth  int      `json:"hop_depth"`
}

// ParsedIntent returns the hint's intent when it names a known one.
func (h *Hint) ParsedIntent() (types.Intent, bool) {
	if h == nil || h.Intent == "" {
		return "", false
	}
	return types.ParseIntent(h.Intent)
}

// RelationTypes returns the hint's relations in canonical spelling.
func (h *Hint) RelationTypes() []types.RelationType {
	if h == nil {
		return nil
	}
	out := make([]types.RelationType, 0, len(h.Relations))
	for _, r := range h.Relations {
		if rt := types.ParseRelationType(r); rt != "" {
			out = append(out, rt)
		}
	}
	return out
}

// Understander proposes a Hint for a query.
type Understander interface {
	Understand(ctx context.Context, query string) (*Hint, error)
}

// UnderstanderFunc adapts a function to Understander.
type UnderstanderFunc func(ctx context.Context, query string) (*Hint, error)

func (f UnderstanderFunc) Understand(ctx context.Context, query string) (*Hint, error) {
	return f(ctx, query)
}

var (
	thinkTags  = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFences = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// ParseHint decodes a collaborator reply. Replies wrapped in code fences or
// reasoning tags, or with broken JSON, are repaired before decoding.
func ParseHint(content string) (*Hint, error) {
	s := strings.TrimSpace(thinkTags.ReplaceAllString(content, ""))
	if m := codeFences.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	if s == "" {
		return nil, ErrEmptyResponse
	}

	var h Hint
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(s)
		if repairErr != nil {
			return nil, fmt.Errorf("failed to repair hint JSON: %w", repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &h); err != nil {
			return nil, fmt.Errorf("failed to decode hint: %w", err)
		}
	}

	entities := h.Entities[:0]
	for _, e := range h.Entities {
		if e = strings.TrimSpace(e); e != "" {
			entities = append(entities, e)
		}
	}
	h.Entities = entities
	h.HopDepth = max(h.HopDepth, 0)
	return &h, nil
}

// DefaultTimeout bounds a collaborator call when none is configured.
const DefaultTimeout = 3 * time.Second

// Guard applies a deadline to an Understander and converts every failure
// into "no hint". A nil Guard or one without an Understander always returns nil.
type Guard struct {
	u       Understander
	timeout time.Duration
	logger  *slog.Logger
}

// NewGuard wraps u. A non-positive timeout uses DefaultTimeout.
func NewGuard(u Understander, timeout time.Duration, logger *slog.Logger) *Guard {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{u: u, timeout: timeout, logger: logger}
}

// Enabled reports whether a collaborator is configured.
func (g *Guard) Enabled() bool { return g != nil && g.u != nil }

// Hint asks the collaborator about query. It never fails: errors and
// timeouts are logged, counted and reported as a nil hint.
func (g *Guard) Hint(ctx context.Context, query string) *Hint {
	if !g.Enabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	h, err := g.u.Understand(ctx, query)
	switch {
	case err == nil && h != nil:
		metrics.CollaboratorCalls.WithLabelValues("nlu", "ok").Inc()
		return h
	case err == nil:
		metrics.CollaboratorCalls.WithLabelValues("nlu", "empty").Inc()
		return nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		metrics.CollaboratorCalls.WithLabelValues("nlu", "timeout").Inc()
		g.logger.Warn("nlu collaborator timed out, continuing without hint",
			"timeout", g.timeout, "error", fmt.Errorf("%w: %v", types.ErrCollaboratorTimeout, err))
	default:
		metrics.CollaboratorCalls.WithLabelValues("nlu", "error").Inc()
		g.logger.Warn("nlu collaborator failed, continuing without hint", "error", err)
	}
	return nil
}
