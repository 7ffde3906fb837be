// Package backoff implements the logarithmic retry delay used by the
// session pool's creation worker when a CreateSession RPC fails with a
// retryable error.
package backoff

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dbsessionpool/dbsessionpool/internal/xrand"
)

// Backoff maps a retry attempt index to a delay, and exposes a clock-aware
// channel to wait on, so tests using a virtual clock observe no real sleep.
type Backoff interface {
	Delay(i int) time.Duration
	Wait(i int) <-chan time.Time
}

const (
	fastSlot = 5 * time.Millisecond
	slowSlot = 200 * time.Millisecond
)

// Fast and Slow are the two default policies used by the creation worker:
// Fast between attempts while the pool is still trying to catch up with
// demand, Slow once a session has exhausted its fast-retry budget.
var (
	Fast = New(WithSlotDuration(fastSlot), WithCeiling(6))
	Slow = New(WithSlotDuration(slowSlot), WithCeiling(6))
)

type logBackoff struct {
	slotDuration time.Duration
	ceiling      uint
	jitterLimit  float64
	clock        clockwork.Clock
	r            xrand.Rand
}

type Option func(b *logBackoff)

func WithSlotDuration(d time.Duration) Option {
	return func(b *logBackoff) { b.slotDuration = d }
}

func WithCeiling(ceiling uint) Option {
	return func(b *logBackoff) { b.ceiling = ceiling }
}

func WithJitterLimit(jitterLimit float64) Option {
	return func(b *logBackoff) { b.jitterLimit = jitterLimit }
}

// WithClock injects the pool's virtual clock so Wait never sleeps on real
// wall-clock time in tests.
func WithClock(clock clockwork.Clock) Option {
	return func(b *logBackoff) { b.clock = clock }
}

func New(opts ...Option) Backoff {
	b := &logBackoff{
		clock: clockwork.NewRealClock(),
		r:     xrand.New(xrand.WithLock()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

func (b *logBackoff) Delay(i int) time.Duration {
	s := b.slotDuration
	if s <= 0 {
		s = time.Second
	}
	n := 1 << minUint(uint(i), maxUint(1, b.ceiling))
	d := s * time.Duration(n)
	f := time.Duration(math.Min(1, math.Abs(b.jitterLimit)) * float64(d))
	if f == d {
		return f
	}

	return f + time.Duration(b.r.Int64(int64(d-f)+1))
}

func (b *logBackoff) Wait(i int) <-chan time.Time {
	return b.clock.After(b.Delay(i))
}

func minUint(a, b uint) uint {
	if a < b {
		return a
	}

	return b
}

func maxUint(a, b uint) uint {
	if a > b {
		return a
	}

	return b
}
