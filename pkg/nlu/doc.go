// Package nlu connects the reasoning pipeline to an optional external
// language understanding collaborator.
//
// The collaborator proposes a Hint (entity names, an intent, relation types
// and a hop depth) for queries the rule table cannot handle alone. Hints are
// advisory: every entity name is revalidated against the graph before use,
// and any failure or timeout is treated as "no hint".
//
// # Client Wrappers
//
// Understanders compose the same way the LLM clients they are built on do:
//   - RetryUnderstander: retry with exponential backoff on transient errors
//   - CircuitBreaker: stop calling a failing collaborator and raise an alert
//   - Guard: apply the per-call timeout and swallow failures
//
// # Usage
//
//	client, err := nlu.NewOpenAIUnderstander(cfg.NLU)
//	var u nlu.Understander = nlu.NewCircuitBreaker(nlu.NewRetryUnderstander(client, nil, logger), cfg.CircuitBreaker, alerter, "nlu")
//	guard := nlu.NewGuard(u, cfg.NLU.Timeout, logger)
//	hint := guard.Hint(ctx, query) // nil when unavailable
package nlu
