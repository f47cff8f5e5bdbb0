package assist

import (
	"context"
	"log/slog"
	"time"

	"dalkak/cmd/internal/guard"
	"dalkak/cmd/internal/orders"
)

// Resolver resolves order commands. The deterministic table is tried first; a
// miss goes to the LLM behind the breaker, and any upstream trouble falls back
// to the table's verdict (an unknown-command error for misses).
type Resolver struct {
	log     *slog.Logger
	client  *Client
	breaker *guard.Breaker

	attempts int
	base     time.Duration
	maxDelay time.Duration
}

// ResolverOptions tunes the retry envelope around each upstream call.
type ResolverOptions struct {
	Log     *slog.Logger
	Client  *Client
	Breaker *guard.Breaker

	Attempts  int
	RetryBase time.Duration
	RetryMax  time.Duration
}

// NewResolver constructs a Resolver. A nil Client yields a purely
// deterministic resolver; a nil Breaker gets a default one.
func NewResolver(opts ResolverOptions) *Resolver {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = guard.NewBreaker(guard.BreakerOptions{})
	}
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	base := opts.RetryBase
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	maxDelay := opts.RetryMax
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}
	return &Resolver{
		log:      log,
		client:   opts.Client,
		breaker:  breaker,
		attempts: attempts,
		base:     base,
		maxDelay: maxDelay,
	}
}

// Resolve implements orders.CommandResolver.
func (r *Resolver) Resolve(ctx context.Context, command string, current orders.Status) (orders.Status, error) {
	target, tableErr := orders.ResolveCommand(command, current)
	if tableErr == nil {
		return target, nil
	}
	if r.client == nil {
		return "", tableErr
	}

	fallback := func(context.Context) (orders.Status, error) {
		return "", tableErr
	}

	return guard.Exec(r.breaker, ctx, func(ctx context.Context) (orders.Status, error) {
		var resolved orders.Status
		err := guard.RetryWithBackoff(ctx, r.attempts, r.base, r.maxDelay, func(ctx context.Context) error {
			raw, err := r.client.Complete(ctx, command, string(current))
			if err != nil {
				return err
			}
			// The model must answer with a known status token; anything
			// else is treated as an upstream failure and retried.
			resolved, err = orders.ParseStatus(raw)
			return err
		})
		if err != nil {
			r.log.Warn("assist.resolve.fail", "err", err, "command", command)
			return "", err
		}
		r.log.Info("assist.resolve.ok", "command", command, "target", resolved)
		return resolved, nil
	}, fallback)
}
