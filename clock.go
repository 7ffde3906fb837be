package sessionpool

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dbsessionpool/dbsessionpool/internal/pool"
)

// Clock is the virtual time source spec §1/§5 requires: every absolute
// time the pool reads or compares against goes through this interface,
// never time.Now directly, so tests can drive refresh/eviction/shutdown
// timing deterministically.
type Clock = pool.Clock

type clockworkClock struct {
	c clockwork.Clock
}

// NewClock wraps a clockwork.Clock (a real one in production, a
// clockwork.FakeClock in tests) as this package's Clock.
func NewClock(c clockwork.Clock) Clock {
	return clockworkClock{c: c}
}

// RealClock is the default Clock, backed by wall-clock time.
func RealClock() Clock {
	return NewClock(clockwork.NewRealClock())
}

func (c clockworkClock) Now() time.Time {
	return c.c.Now()
}

func (c clockworkClock) Delay(ctx context.Context, d time.Duration) error {
	timer := c.c.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
