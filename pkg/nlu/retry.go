package nlu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// RetryConfig bounds how often a failed NLU call is repeated.
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig returns one retry after 200ms. NLU calls sit on the
// query path, so the budget stays small.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        1,
		InitialDelay:      200 * time.Millisecond,
		MaxDelay:          2 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// backoff returns the wait before retry n, counting from 1.
func (c *RetryConfig) backoff(n int) time.Duration {
	d := c.InitialDelay
	for i := 1; i < n && d < c.MaxDelay; i++ {
		d = time.Duration(float64(d) * c.BackoffMultiplier)
	}
	return min(d, c.MaxDelay)
}

// RetryUnderstander repeats transient failures of the wrapped Understander
// with exponential backoff.
type RetryUnderstander struct {
	u      Understander
	config RetryConfig
	logger *slog.Logger
}

// NewRetryUnderstander wraps u. A nil config uses DefaultRetryConfig and
// zero fields take their defaults.
func NewRetryUnderstander(u Understander, config *RetryConfig, logger *slog.Logger) *RetryUnderstander {
	def := DefaultRetryConfig()
	cfg := *def
	if config != nil {
		cfg = *config
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = def.BackoffMultiplier
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryUnderstander{u: u, config: cfg, logger: logger}
}

// Understand implements Understander.
func (r *RetryUnderstander) Understand(ctx context.Context, query string) (*Hint, error) {
	hint, err := r.u.Understand(ctx, query)
	for n := 1; err != nil && n <= r.config.MaxRetries; n++ {
		if !IsRetryable(err) {
			return nil, err
		}
		wait := r.config.backoff(n)
		r.logger.Debug("retrying nlu call", "retry", n, "of", r.config.MaxRetries, "wait", wait, "error", err)

		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("nlu retry interrupted: %w", ctx.Err())
		}
		hint, err = r.u.Understand(ctx, query)
	}
	switch {
	case err == nil:
		return hint, nil
	case r.config.MaxRetries > 0 && IsRetryable(err):
		r.logger.Warn("nlu call failed after retries", "retries", r.config.MaxRetries, "error", err)
		return nil, fmt.Errorf("failed after %d retries: %w", r.config.MaxRetries, err)
	default:
		return nil, err
	}
}

// transientMarkers are error text fragments of failures worth retrying when
// no typed status is available.
var transientMarkers = []string{
	"internal server error", "bad gateway", "service unavailable", "gateway timeout",
	"502", "503", "504", "429",
	"timeout", "connection reset", "connection refused", "temporary failure",
	"rate limit", "too many requests",
}

// IsRetryable reports whether err is a transient collaborator failure:
// rate limits, 5xx and 429 responses, and network hiccups. Cancellation,
// deadlines and an open breaker are final.
func IsRetryable(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, ErrCircuitOpen),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, ErrRateLimit):
		return true
	}

	if status, ok := httpStatus(err); ok {
		return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
	}
	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func httpStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}
