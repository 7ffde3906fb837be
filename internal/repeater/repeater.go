// Package repeater drives the registry's background maintenance loop: a
// ticker that calls MaintainPool on every targeted pool at a fixed
// cadence, with a force channel so a caller can ask for an immediate tick
// (used right after a targeted pool is created, so it doesn't sit empty
// until the next tick).
package repeater

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dbsessionpool/dbsessionpool/internal/xcontext"
)

type Repeater interface {
	Stop()
	Force()
}

type repeater struct {
	interval time.Duration
	task     func(context.Context) error

	cancel  context.CancelFunc
	stopped chan struct{}
	force   chan struct{}
	clock   clockwork.Clock
}

type Option func(r *repeater)

func WithClock(clock clockwork.Clock) Option {
	return func(r *repeater) { r.clock = clock }
}

// New starts calling task every interval until Stop is called. If interval
// is zero, New returns a no-op repeater (spec §4.2: "A setting of zero
// disables the timer").
func New(ctx context.Context, interval time.Duration, task func(ctx context.Context) error, opts ...Option) Repeater {
	if interval <= 0 {
		return noop{}
	}

	ctx, cancel := xcontext.WithCancel(ctx)
	r := &repeater{
		interval: interval,
		task:     task,
		cancel:   cancel,
		stopped:  make(chan struct{}),
		force:    make(chan struct{}, 1),
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	go r.worker(ctx)

	return r
}

func (r *repeater) Stop() {
	r.cancel()
	<-r.stopped
}

func (r *repeater) Force() {
	select {
	case r.force <- struct{}{}:
	default:
	}
}

func (r *repeater) worker(ctx context.Context) {
	defer close(r.stopped)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			_ = r.task(ctx)
		case <-r.force:
			_ = r.task(ctx)
		}
	}
}

type noop struct{}

func (noop) Stop()  {}
func (noop) Force() {}
