// Package rategate enforces the provider's pacing rules ahead of every
// fetch. Two limits run in series: a minimum spacing between consecutive
// requests and a hard ceiling on calls inside a rolling window. A fetch
// proceeds only once both have granted a slot.
package rategate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Gate struct {
	spacing *rate.Limiter // min interval between requests
	window  time.Duration
	calls   int

	mu     sync.Mutex
	grants []time.Time // grant times still inside the window, oldest first
}

// New builds a gate with the given minimum spacing between requests and a
// ceiling of windowCalls per rolling window. Both limits come from the
// provider's pacing rules; exceeding either risks a server-side lockout far
// longer than anything waited here.
func New(minInterval time.Duration, windowCalls int, window time.Duration) (*Gate, error) {
	if minInterval <= 0 {
		return nil, fmt.Errorf("min interval must be positive, got %s", minInterval)
	}
	if windowCalls <= 0 || window <= 0 {
		return nil, fmt.Errorf("window budget must be positive, got %d per %s", windowCalls, window)
	}

	return &Gate{
		spacing: rate.NewLimiter(rate.Every(minInterval), 1),
		window:  window,
		calls:   windowCalls,
	}, nil
}

// Wait blocks until both limits grant a slot or the context is cancelled.
// On success the caller holds exactly one fetch slot; there is no release.
// Spacing is waited first so the window grant timestamps the actual call.
func (g *Gate) Wait(ctx context.Context) error {
	if err := g.spacing.Wait(ctx); err != nil {
		return fmt.Errorf("rate gate spacing: %w", err)
	}
	if err := g.waitWindow(ctx); err != nil {
		return fmt.Errorf("rate gate window: %w", err)
	}
	return nil
}

// waitWindow grants a slot once fewer than g.calls grants fall inside the
// rolling window ending now. The ceiling holds for every window position, not
// just fixed intervals: with the ceiling reached, the next grant waits for
// the oldest one to age out.
func (g *Gate) waitWindow(ctx context.Context) error {
	for {
		g.mu.Lock()
		now := time.Now()
		g.expire(now)
		if len(g.grants) < g.calls {
			g.grants = append(g.grants, now)
			g.mu.Unlock()
			return nil
		}
		wait := g.window - now.Sub(g.grants[0])
		g.mu.Unlock()

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// expire drops grants that have aged out of the window ending at now.
// Callers hold g.mu.
func (g *Gate) expire(now time.Time) {
	i := 0
	for i < len(g.grants) && now.Sub(g.grants[i]) >= g.window {
		i++
	}
	g.grants = g.grants[i:]
}

// Allow reports whether a fetch slot is available right now without
// consuming one. Used by dry runs and diagnostics only; the orchestrator
// always goes through Wait.
func (g *Gate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expire(time.Now())
	return len(g.grants) < g.calls && g.spacing.Tokens() >= 1
}
