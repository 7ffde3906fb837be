package sessionpool

import (
	"context"
	"time"

	"github.com/dbsessionpool/dbsessionpool/internal/pool"
)

// Session is a single pooled session handed out by Acquire and returned
// via Release. Name and TxID identify it to the ServiceClient; Kind
// says whether it carries a pre-begun read/write transaction.
type Session = pool.Session

// ReleaseOption customizes a Release call.
type ReleaseOption = pool.ReleaseOption

// ForceDelete tells Release to delete the session instead of recycling
// it, regardless of its refresh/eviction timestamps.
func ForceDelete() ReleaseOption {
	return pool.ForceDelete()
}

// PiggybackRefreshAt tells Release that the caller's own last RPC on
// this session refreshed it at t, letting the pool skip an otherwise
// redundant refresh RPC (spec §9).
func PiggybackRefreshAt(t time.Time) ReleaseOption {
	return pool.PiggybackRefreshAt(t)
}

// Pool is a TargetedSessionPool (spec §2): a pool of sessions against a
// single database, bound to one kind mix. Construct one through a
// Registry rather than directly, unless a single fixed database is all
// the caller will ever need.
type Pool struct {
	engine *pool.TargetedPool
}

// NewPool builds a Pool against database, issuing RPCs through client.
// It creates no sessions itself; call MaintainPool to bring it up to
// MinimumPooledSessions. WaitForPoolAsync only waits for that to happen.
func NewPool(database string, client ServiceClient, clock Clock, opts ...Option) *Pool {
	o := New(opts...)

	return &Pool{engine: pool.New(database, client, clock, o.toConfig())}
}

// Acquire returns a session of the requested kind, per spec §4.1.
func (p *Pool) Acquire(ctx context.Context, kind Kind) (*Session, error) {
	return p.engine.Acquire(ctx, kind)
}

// Release returns s to the pool.
func (p *Pool) Release(s *Session, opts ...ReleaseOption) error {
	return p.engine.Release(s, opts...)
}

// WaitForPoolAsync blocks until the pool has filled to
// MinimumPooledSessions, ctx is done, or the pool is unhealthy.
func (p *Pool) WaitForPoolAsync(ctx context.Context) error {
	return p.engine.WaitForPoolAsync(ctx)
}

// ShutdownPoolAsync drains and closes the pool (spec §4.1).
func (p *Pool) ShutdownPoolAsync(ctx context.Context) error {
	return p.engine.ShutdownPoolAsync(ctx)
}

// MaintainPool runs one synchronous maintenance tick (spec §4.2):
// refresh sessions whose refresh_time has passed, evict sessions whose
// eviction_time has passed, and top up toward MinimumPooledSessions.
func (p *Pool) MaintainPool(ctx context.Context) {
	p.engine.MaintainPool(ctx)
}

// Stats returns a point-in-time snapshot of the pool's bookkeeping.
func (p *Pool) Stats() Statistics {
	s := p.engine.Stats()

	return Statistics{
		ActiveSessionCount:    s.ActiveSessionCount,
		InFlightCreationCount: s.InFlightCreationCount,
		ReadPoolCount:         s.ReadPoolCount,
		ReadWritePoolCount:    s.ReadWritePoolCount,
		Shutdown:              s.Shutdown,
		Healthy:               s.Healthy,
		SessionsCreated:       s.SessionsCreated,
		SessionsDeleted:       s.SessionsDeleted,
	}
}
