package sessionpool

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dbsessionpool/dbsessionpool/internal/repeater"
)

// Registry is the SessionPool of spec §2: it keeps one Pool per
// database, created lazily on first use, and drives all of them from a
// single maintenance ticker (spec §4.2). A caller that only ever talks
// to one database can use NewPool directly instead.
type Registry struct {
	mu    sync.Mutex
	pools map[string]*Pool

	client ServiceClient
	clock  clockwork.Clock
	opts   []Option

	rep repeater.Repeater
}

// NewRegistry builds a Registry backed by client and clock, with opts
// applied to every Pool it creates. The maintenance loop starts
// immediately, ticking every Options.MaintenanceLoopDelay (zero
// disables it; call MaintainAll manually instead, as tests do).
func NewRegistry(client ServiceClient, clock clockwork.Clock, opts ...Option) *Registry {
	o := New(opts...)

	r := &Registry{
		pools:  make(map[string]*Pool),
		client: client,
		clock:  clock,
		opts:   opts,
	}

	r.rep = repeater.New(context.Background(), o.MaintenanceLoopDelay, r.maintainAll, repeater.WithClock(clock))

	return r
}

// Pool returns the Pool for database, creating it (with no sessions
// yet) on first use.
func (r *Registry) Pool(database string) *Pool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pools[database]; ok {
		return p
	}

	p := NewPool(database, r.client, NewClock(r.clock), r.opts...)
	r.pools[database] = p
	r.rep.Force()

	return p
}

func (r *Registry) snapshot() []*Pool {
	r.mu.Lock()
	defer r.mu.Unlock()

	pools := make([]*Pool, 0, len(r.pools))
	for _, p := range r.pools {
		pools = append(pools, p)
	}

	return pools
}

// MaintainAll runs one maintenance tick against every registered pool,
// concurrently, returning the first error encountered (if any).
func (r *Registry) MaintainAll(ctx context.Context) error {
	return r.maintainAll(ctx)
}

func (r *Registry) maintainAll(ctx context.Context) error {
	pools := r.snapshot()

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pools {
		p := p
		g.Go(func() error {
			p.MaintainPool(gctx)
			return nil
		})
	}

	return g.Wait()
}

// Shutdown stops the maintenance loop and shuts down every registered
// pool concurrently, aggregating any errors.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.rep.Stop()

	pools := r.snapshot()

	var (
		mu   sync.Mutex
		errs error
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pools {
		p := p
		g.Go(func() error {
			if err := p.ShutdownPoolAsync(gctx); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errs
}
