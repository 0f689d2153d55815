package nlu

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/alert"
	"github.com/huynd2174/Social-Network-Analyst--sub000/pkg/config"
)

// BreakerSettings builds gobreaker settings from configuration. When the
// breaker trips open an alert is sent and logged.
func BreakerSettings(name string, cfg config.CircuitBreakerConfig, alerter alert.Alerter, logger *slog.Logger) gobreaker.Settings {
	if logger == nil {
		logger = slog.Default()
	}
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to != gobreaker.StateOpen {
				logger.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
				return
			}
			msg := fmt.Sprintf("Circuit Breaker '%s' changed status from %s to %s. Too many failures detected.", name, from, to)
			logger.Error(msg)
			if alerter != nil {
				if err := alerter.Alert(fmt.Sprintf("URGENT: Circuit Breaker Tripped - %s", name), msg); err != nil {
					logger.Warn("failed to send breaker alert", "breaker", name, "error", err)
				}
			}
		},
	}
}

// CircuitBreaker wraps an Understander with circuit breaking logic
type CircuitBreaker struct {
	u    Understander
	cb   *gobreaker.CircuitBreaker
	name string
}

// NewCircuitBreaker wraps u. When cfg.Enabled is false calls pass straight through.
func NewCircuitBreaker(u Understander, cfg config.CircuitBreakerConfig, alerter alert.Alerter, name string) *CircuitBreaker {
	c := &CircuitBreaker{u: u, name: name}
	if cfg.Enabled {
		c.cb = gobreaker.NewCircuitBreaker(BreakerSettings(name, cfg, alerter, nil))
	}
	return c
}

// Understand implements Understander
func (c *CircuitBreaker) Understand(ctx context.Context, query string) (*Hint, error) {
	if c.cb == nil {
		return c.u.Understand(ctx, query)
	}
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.u.Understand(ctx, query)
	})
	if err != nil {
		return nil, breakerError(err)
	}
	return resp.(*Hint), nil
}

// State returns the breaker state, StateClosed when breaking is disabled.
func (c *CircuitBreaker) State() gobreaker.State {
	if c.cb == nil {
		return gobreaker.StateClosed
	}
	return c.cb.State()
}
