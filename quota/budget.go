// Package quota tracks the session-wide sub-query allowance and bounds the
// size of captured output through summarization. The Budget is the only
// piece of session state mutated concurrently (by batched sub-queries), so
// its check-and-increment is lock-free and never partial.
package quota

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrExceeded is returned when an acquisition would push usage past the
// maximum. The counter is left untouched; requests are rejected, never
// clamped.
var ErrExceeded = errors.New("call budget exceeded")

// Budget is a shared remaining-call counter.
//
// Contract:
// - Concurrency: safe for concurrent use; Acquire is a single atomic
//   check-and-increment.
// - Nil/zero: a zero max permits no acquisitions.
type Budget struct {
	max  int64
	used atomic.Int64
}

// NewBudget creates a budget allowing at most max acquisitions. A max
// below zero is treated as zero.
func NewBudget(max int) *Budget {
	if max < 0 {
		max = 0
	}
	return &Budget{max: int64(max)}
}

// Acquire consumes one unit. It fails with ErrExceeded when the budget is
// already spent, leaving the count unchanged.
func (b *Budget) Acquire() error {
	for {
		used := b.used.Load()
		if used >= b.max {
			return fmt.Errorf("%w: %d of %d calls used", ErrExceeded, used, b.max)
		}
		if b.used.CompareAndSwap(used, used+1) {
			return nil
		}
	}
}

// Used returns the number of consumed units.
func (b *Budget) Used() int {
	return int(b.used.Load())
}

// Max returns the configured maximum.
func (b *Budget) Max() int {
	return int(b.max)
}

// Remaining returns the number of units still available.
func (b *Budget) Remaining() int {
	rem := b.max - b.used.Load()
	if rem < 0 {
		rem = 0
	}
	return int(rem)
}
