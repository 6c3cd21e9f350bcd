// Package breaker tracks per-symbol consecutive date failures and abandons a
// symbol once the streak reaches a ceiling. Unlike a transport circuit
// breaker, the streak is defined over ledger outcomes, so it survives process
// restarts: a run seeds each symbol's counter from the ledger before
// processing begins.
package breaker

import (
	"fmt"
	"sync"
)

const DefaultCeiling = 10

type Breaker struct {
	mu      sync.Mutex
	ceiling int
	streaks map[string]int
}

func New(ceiling int) (*Breaker, error) {
	if ceiling <= 0 {
		return nil, fmt.Errorf("breaker ceiling must be positive, got %d", ceiling)
	}
	return &Breaker{
		ceiling: ceiling,
		streaks: make(map[string]int),
	}, nil
}

// Seed initializes a symbol's streak from persisted ledger state. Called once
// per symbol at the start of processing, before any date is attempted.
func (b *Breaker) Seed(symbol string, streak int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if streak < 0 {
		streak = 0
	}
	b.streaks[symbol] = streak
}

// RecordError bumps the symbol's streak after a date lands in ERROR and
// returns the new streak.
func (b *Breaker) RecordError(symbol string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streaks[symbol]++
	return b.streaks[symbol]
}

// RecordSuccess resets the symbol's streak after any non-ERROR outcome.
func (b *Breaker) RecordSuccess(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streaks[symbol] = 0
}

// Tripped reports whether the symbol has reached the ceiling and should be
// abandoned for the rest of the run.
func (b *Breaker) Tripped(symbol string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streaks[symbol] >= b.ceiling
}

// Streak returns the symbol's current consecutive failure count.
func (b *Breaker) Streak(symbol string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.streaks[symbol]
}

// Ceiling returns the configured trip threshold.
func (b *Breaker) Ceiling() int {
	return b.ceiling
}
