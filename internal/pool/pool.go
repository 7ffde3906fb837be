// Package pool implements the concurrency engine behind a targeted
// session pool: one pool per (database, kind-mix), bound to a single
// ServiceClient and Clock. The root sessionpool package is a thin
// facade over TargetedPool plus a registry that keeps one TargetedPool
// per database.
package pool

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dbsessionpool/dbsessionpool/internal/background"
	"github.com/dbsessionpool/dbsessionpool/internal/xcontext"
	"github.com/dbsessionpool/dbsessionpool/internal/xerrors"
	"github.com/dbsessionpool/dbsessionpool/log"
	"github.com/dbsessionpool/dbsessionpool/trace"
)

// testHookPendingAcquire, when non-nil, runs synchronously right after a
// waiter joins pendingAcquirers, before Acquire blocks on it. It exists
// only so this package's own tests can observe the enqueue deterministically
// instead of sleeping.
var testHookPendingAcquire func()

// defaultDeleteTimeout bounds a DeleteSession RPC the way the teacher's
// CloseSession bounds its own delete call, so a slow or hanging RPC never
// holds the background worker open indefinitely.
const defaultDeleteTimeout = 500 * time.Millisecond

// pollInterval is the cadence WaitForPoolAsync and ShutdownPoolAsync poll
// at. Both read time exclusively through Clock.Delay (spec §5: the pool
// never reads wall-clock directly), at a bound well inside the spec's
// required "at least once per second".
const pollInterval = 100 * time.Millisecond

// TargetedPool is the engine behind spec §4's TargetedSessionPool. All
// bookkeeping mutations happen under mu; every RPC (create, delete,
// refresh) is issued outside it, per spec §5.
type TargetedPool struct {
	database string
	client   ServiceClient
	clock    Clock
	cfg      Config

	bg        *background.Worker
	createSem chan struct{}

	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	mu sync.Mutex

	readIdle      *list.List // of *Session, Kind == ReadOnly
	readWriteIdle *list.List // of *Session, Kind == ReadWrite

	pendingAcquirers *list.List // of *waiter

	activeCount       int
	inFlight          int
	inFlightReadWrite int

	shutdown bool
	healthy  bool
	lastErr  error

	sessionsCreated int64
	sessionsDeleted int64
}

// New builds a TargetedPool bound to database, issuing RPCs through
// client and reading time through clock. It does not itself create any
// sessions; call MaintainPool (directly, or via a registry's
// maintenance loop) to bring it up to MinimumPooledSessions.
func New(database string, client ServiceClient, clock Clock, cfg Config) *TargetedPool {
	if cfg.MaximumConcurrentSessionCreates <= 0 {
		cfg.MaximumConcurrentSessionCreates = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	if cfg.DeleteTimeout <= 0 {
		cfg.DeleteTimeout = defaultDeleteTimeout
	}

	return &TargetedPool{
		database:         database,
		client:           client,
		clock:            clock,
		cfg:              cfg,
		bg:               background.New(context.Background()),
		createSem:        make(chan struct{}, cfg.MaximumConcurrentSessionCreates),
		shutdownCh:       make(chan struct{}),
		readIdle:         list.New(),
		readWriteIdle:    list.New(),
		pendingAcquirers: list.New(),
		healthy:          true,
	}
}

// Acquire returns a session of the requested kind (spec §4.1). A
// ReadOnly request may be satisfied by a ReadWrite session; a ReadWrite
// request is never satisfied by a ReadOnly one.
func (p *TargetedPool) Acquire(ctx context.Context, kind Kind) (*Session, error) {
	onDone := trace.PoolOnAcquire(p.cfg.Trace, &ctx)
	s, err := p.acquire(ctx, kind)
	sessionID := ""
	if s != nil {
		sessionID = s.Name
	}
	onDone(sessionID, err)

	return s, err
}

func (p *TargetedPool) acquire(ctx context.Context, kind Kind) (*Session, error) {
	p.mu.Lock()

	if p.shutdown {
		p.mu.Unlock()
		return nil, xerrors.Wrap(ErrInvalidState)
	}

	if s := p.takeIdleLocked(kind); s != nil {
		s.transition(StateInUse)
		p.activeCount++
		p.mu.Unlock()
		return s, nil
	}

	if p.activeCount >= p.cfg.MaximumActiveSessions {
		if p.cfg.WaitOnResourcesExhausted == Fail {
			p.mu.Unlock()
			return nil, xerrors.Wrap(ErrResourceExhausted)
		}
		return p.waitLocked(ctx, kind)
	}

	if p.activeCount+p.inFlight+p.idleCountLocked() < p.cfg.MaximumActiveSessions {
		p.inFlight++
		if kind == ReadWrite {
			p.inFlightReadWrite++
		}
		p.requestCreation(kind)
	} else if kind == ReadWrite && p.inFlightReadWrite == 0 && p.readWriteIdle.Len() == 0 {
		// No ReadWrite session exists or is being created, yet the pool is
		// already at capacity with only incompatible ReadOnly sessions idle.
		// Without this, a ReadWrite acquirer could wait indefinitely even
		// though idle capacity is sitting unused (spec §5 fairness). Evict
		// one ReadOnly session to make room, then create in its place.
		if e := p.readIdle.Front(); e != nil {
			s := e.Value.(*Session)
			p.readIdle.Remove(e)
			s.transition(StateEvicting)
			p.deleteSession(s)

			p.inFlight++
			p.inFlightReadWrite++
			p.requestCreation(kind)
		}
	}

	return p.waitLocked(ctx, kind)
}

// waitLocked parks the caller in pendingAcquirers and blocks until a
// session is delivered, ctx is done, or the pool shuts down. It must be
// called with p.mu held; it always returns with p.mu released.
func (p *TargetedPool) waitLocked(ctx context.Context, kind Kind) (*Session, error) {
	w := newWaiter(kind)
	el := p.pendingAcquirers.PushBack(w)
	p.mu.Unlock()

	onWaitDone := trace.PoolOnWaitQueue(p.cfg.Trace, &ctx)

	if testHookPendingAcquire != nil {
		testHookPendingAcquire()
	}

	acquireCtx, cancelAcquire := context.WithCancel(ctx)
	defer cancelAcquire()

	var timedOut atomic.Bool
	if p.cfg.Timeout > 0 {
		go func() {
			if err := p.clock.Delay(acquireCtx, p.cfg.Timeout); err == nil {
				timedOut.Store(true)
				cancelAcquire()
			}
		}()
	}

	select {
	case s := <-w.ch:
		onWaitDone(s.Name, nil)
		return s, nil
	case <-acquireCtx.Done():
		p.mu.Lock()
		if !removeLocked(p.pendingAcquirers, el, w) {
			p.mu.Unlock()
			s := <-w.ch
			onWaitDone(s.Name, nil)
			return s, nil
		}
		p.mu.Unlock()
		if timedOut.Load() {
			err := xerrors.Wrap(ErrResourceExhausted)
			onWaitDone("", err)
			return nil, err
		}
		err := xerrors.Wrap(ErrCanceled)
		onWaitDone("", err)
		return nil, err
	case <-p.shutdownCh:
		p.mu.Lock()
		if !removeLocked(p.pendingAcquirers, el, w) {
			p.mu.Unlock()
			s := <-w.ch
			onWaitDone(s.Name, nil)
			return s, nil
		}
		p.mu.Unlock()
		err := xerrors.Wrap(ErrCanceled)
		onWaitDone("", err)
		return nil, err
	}
}

func (p *TargetedPool) takeIdleLocked(kind Kind) *Session {
	if kind == ReadOnly {
		if e := p.readIdle.Front(); e != nil {
			p.readIdle.Remove(e)
			return e.Value.(*Session)
		}
		if e := p.readWriteIdle.Front(); e != nil {
			p.readWriteIdle.Remove(e)
			return e.Value.(*Session)
		}
		return nil
	}

	if e := p.readWriteIdle.Front(); e != nil {
		p.readWriteIdle.Remove(e)
		return e.Value.(*Session)
	}
	return nil
}

func (p *TargetedPool) idleCountLocked() int {
	return p.readIdle.Len() + p.readWriteIdle.Len()
}

// ReleaseOption customizes a Release call.
type ReleaseOption func(*releaseOptions)

type releaseOptions struct {
	forceDelete  bool
	hasPiggyback bool
	piggybackAt  time.Time
}

// ForceDelete marks the session for deletion instead of returning it to
// the idle queue, regardless of its refresh/eviction timestamps.
func ForceDelete() ReleaseOption {
	return func(o *releaseOptions) { o.forceDelete = true }
}

// PiggybackRefreshAt records that the caller's own last RPC on this
// session effectively refreshed it at t, letting Release skip a
// redundant refresh RPC (spec §9's piggyback optimization).
func PiggybackRefreshAt(t time.Time) ReleaseOption {
	return func(o *releaseOptions) {
		o.hasPiggyback = true
		o.piggybackAt = t
	}
}

// Release returns s to the pool (spec §4.1). Depending on s's
// refresh/eviction timestamps and opts, it is returned directly to the
// idle queue, handed to a waiting Acquire call, scheduled for a refresh
// RPC, or deleted.
func (p *TargetedPool) Release(s *Session, opts ...ReleaseOption) error {
	o := releaseOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	onDone := trace.PoolOnRelease(p.cfg.Trace, s.Name)
	err := p.release(s, o)
	onDone(err)

	return err
}

func (p *TargetedPool) release(s *Session, o releaseOptions) error {
	p.mu.Lock()

	if s.state != StateInUse {
		p.mu.Unlock()
		return xerrors.Wrap(ErrInvalidState)
	}

	now := p.clock.Now()
	if o.hasPiggyback {
		s.RefreshTime = o.piggybackAt.Add(applyJitter(p.cfg.SessionRefreshJitter, p.cfg.IdleSessionRefreshDelay))
	}

	needsEvict := p.shutdown || o.forceDelete || !s.EvictionTime.After(now)
	needsRefresh := !needsEvict && !s.RefreshTime.After(now)

	switch {
	case needsEvict:
		s.transition(StateEvicting)
		p.activeCount--
		p.mu.Unlock()
		p.deleteSession(s)
		return nil

	case needsRefresh:
		s.transition(StateRefreshing)
		p.activeCount--
		p.mu.Unlock()
		p.refreshSession(s)
		return nil

	default:
		s.transition(StateIdle)
		p.activeCount--
		if deliverLocked(p.pendingAcquirers, s) {
			s.transition(StateInUse)
			p.activeCount++
		} else {
			p.enqueueIdleLocked(s)
		}
		p.mu.Unlock()
		return nil
	}
}

// deleteSession issues the delete RPC outside the lock and drops s for
// good, delivering capacity it freed to the next waiter via MaintainPool
// or a future Acquire's own creation request.
func (p *TargetedPool) deleteSession(s *Session) {
	p.bg.Start(func(ctx context.Context) {
		ctx, cancel := xcontext.WithTimeout(ctx, p.cfg.DeleteTimeout)
		defer cancel()

		onDone := trace.PoolOnDelete(p.cfg.Trace, s.Name)
		err := p.client.DeleteSession(ctx, s.Name)
		onDone(err)
		if err != nil {
			p.cfg.Logger.Warnf("session pool: delete failed for %s: %v", s.Name, err)
		} else {
			p.cfg.Logger.Debugf("session pool: deleted %s", s.Name)
		}

		p.mu.Lock()
		s.transition(StateDeleted)
		p.sessionsDeleted++
		p.mu.Unlock()
	})
}

// refreshSession issues a refresh RPC (a no-op ExecuteSql ping) outside
// the lock, then returns the session to idle (or a waiter) with a renewed
// refresh_time, or deletes it if the refresh RPC failed.
func (p *TargetedPool) refreshSession(s *Session) {
	p.bg.Start(func(ctx context.Context) {
		onDone := trace.PoolOnRefresh(p.cfg.Trace, s.Name)
		err := p.client.ExecuteSql(ctx, s.Name, "SELECT 1")
		onDone(err)

		p.mu.Lock()
		if err != nil {
			p.healthy = false
			p.lastErr = xerrors.WithStackTrace(err)
			s.transition(StateEvicting)
			trace.PoolOnHealth(p.cfg.Trace, false, err)
			p.mu.Unlock()
			p.cfg.Logger.Warnf("session pool: refresh failed for %s: %v", s.Name, err)
			p.deleteSession(s)
			return
		}

		p.cfg.Logger.Debugf("session pool: refreshed %s", s.Name)
		p.healthy = true
		trace.PoolOnHealth(p.cfg.Trace, true, nil)
		now := p.clock.Now()
		s.RefreshTime = now.Add(applyJitter(p.cfg.SessionRefreshJitter, p.cfg.IdleSessionRefreshDelay))
		s.transition(StateIdle)
		if p.shutdown {
			s.transition(StateEvicting)
			p.mu.Unlock()
			p.deleteSession(s)
			return
		}
		if deliverLocked(p.pendingAcquirers, s) {
			s.transition(StateInUse)
			p.activeCount++
		} else {
			p.enqueueIdleLocked(s)
		}
		p.mu.Unlock()
	})
}

// WaitForPoolAsync blocks until the idle queues alone (never counting
// checked-out or in-flight sessions) hold at least MinimumPooledSessions,
// with at least readWriteTarget of them ReadWrite, or ctx is done,
// surfacing the last recorded creation or refresh error immediately if the
// pool is unhealthy (spec §4.1, §7). A call made after shutdown fails with
// ErrInvalidState; a wait that shutdown interrupts fails with ErrCanceled.
func (p *TargetedPool) WaitForPoolAsync(ctx context.Context) error {
	for waited := false; ; waited = true {
		p.mu.Lock()
		if p.shutdown {
			p.mu.Unlock()
			if waited {
				return xerrors.Wrap(ErrCanceled)
			}
			return xerrors.Wrap(ErrInvalidState)
		}
		ready := p.idleCountLocked() >= p.cfg.MinimumPooledSessions &&
			p.readWriteIdle.Len() >= p.cfg.readWriteTarget()
		healthy := p.healthy
		lastErr := p.lastErr
		p.mu.Unlock()

		if ready {
			return nil
		}
		if !healthy && lastErr != nil {
			return xerrors.Wrap(lastErr)
		}

		if err := p.clock.Delay(ctx, pollInterval); err != nil {
			return xerrors.Wrap(ErrCanceled)
		}
	}
}

// ShutdownPoolAsync stops accepting new Acquire calls, fails every
// pending acquirer with ErrCanceled, and deletes every idle session. It
// completes once active_count and in_flight_creation_count both reach
// zero, or ctx expires first (spec §4.1) — a session checked out before
// shutdown started still drives progress through Release, which keeps
// evicting into the same background worker this call eventually closes.
func (p *TargetedPool) ShutdownPoolAsync(ctx context.Context) error {
	onDone := trace.PoolOnShutdown(p.cfg.Trace, p.clock.Now())
	defer func() { onDone(p.clock.Now()) }()

	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.shutdown = true
		close(p.shutdownCh)

		for _, q := range []*list.List{p.readIdle, p.readWriteIdle} {
			for e := q.Front(); e != nil; e = e.Next() {
				s := e.Value.(*Session)
				s.transition(StateEvicting)
				p.deleteSession(s)
			}
			q.Init()
		}
		p.mu.Unlock()
	})

	if err := p.awaitDrain(ctx); err != nil {
		return err
	}

	return p.bg.Close(ctx)
}

// awaitDrain blocks until active_count and in_flight_creation_count both
// reach zero, polling through Clock.Delay (spec §5) rather than real
// wall-clock, so tests on a virtual clock observe no real sleep.
func (p *TargetedPool) awaitDrain(ctx context.Context) error {
	for {
		p.mu.Lock()
		drained := p.activeCount == 0 && p.inFlight == 0
		p.mu.Unlock()

		if drained {
			return nil
		}

		if err := p.clock.Delay(ctx, pollInterval); err != nil {
			return xerrors.Wrap(ErrCanceled)
		}
	}
}

// MaintainPool runs one synchronous maintenance tick: it refreshes idle
// sessions whose refresh_time has passed, evicts idle sessions whose
// eviction_time has passed, and tops the pool up toward
// MinimumPooledSessions (spec §4.2).
func (p *TargetedPool) MaintainPool(ctx context.Context) {
	onDone := trace.PoolOnMaintain(p.cfg.Trace)

	refreshed, evicted := p.sweepIdle()
	filled := p.fill()

	onDone(filled, refreshed, evicted)
}

func (p *TargetedPool) sweepIdle() (refreshed, evicted int) {
	now := p.clock.Now()

	p.mu.Lock()
	var toRefresh, toEvict []*Session

	for _, q := range []*list.List{p.readIdle, p.readWriteIdle} {
		for e := q.Front(); e != nil; {
			next := e.Next()
			s := e.Value.(*Session)
			switch {
			case !s.EvictionTime.After(now):
				q.Remove(e)
				s.transition(StateEvicting)
				toEvict = append(toEvict, s)
			case !s.RefreshTime.After(now):
				q.Remove(e)
				s.transition(StateRefreshing)
				toRefresh = append(toRefresh, s)
			}
			e = next
		}
	}
	p.mu.Unlock()

	for _, s := range toEvict {
		p.deleteSession(s)
	}
	for _, s := range toRefresh {
		p.refreshSession(s)
	}

	return len(toRefresh), len(toEvict)
}

// fill tops the pool up toward MinimumPooledSessions. A session lost to a
// refresh failure (see refreshSession) has no synchronous replacement;
// fill is what eventually replaces it, on this tick or a later one.
func (p *TargetedPool) fill() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown {
		return 0
	}

	target := p.cfg.MinimumPooledSessions
	rwTarget := p.cfg.readWriteTarget()

	filled := 0
	for p.activeCount+p.inFlight+p.idleCountLocked() < target && p.activeCount+p.inFlight+p.idleCountLocked() < p.cfg.MaximumActiveSessions {
		kind := ReadOnly
		if p.readWriteIdle.Len()+p.inFlightReadWrite < rwTarget {
			kind = ReadWrite
		}
		p.inFlight++
		if kind == ReadWrite {
			p.inFlightReadWrite++
		}
		p.requestCreation(kind)
		filled++
	}

	return filled
}

// Stats returns a point-in-time snapshot of the pool's bookkeeping
// (spec §10).
func (p *TargetedPool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		ActiveSessionCount:    p.activeCount,
		InFlightCreationCount: p.inFlight,
		ReadPoolCount:         p.readIdle.Len(),
		ReadWritePoolCount:    p.readWriteIdle.Len(),
		Shutdown:              p.shutdown,
		Healthy:               p.healthy,
		SessionsCreated:       p.sessionsCreated,
		SessionsDeleted:       p.sessionsDeleted,
	}
}
