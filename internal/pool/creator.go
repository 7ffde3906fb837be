package pool

import (
	"context"

	"github.com/dbsessionpool/dbsessionpool/internal/backoff"
	"github.com/dbsessionpool/dbsessionpool/internal/xerrors"
	"github.com/dbsessionpool/dbsessionpool/trace"
)

const maxCreateAttempts = 5

// requestCreation starts a creation worker for a session of kind, bounded
// by p.createSem (spec §4.2's MaximumConcurrentSessionCreates). The
// caller must hold p.mu and must already have accounted for the new
// session in p.inFlight.
func (p *TargetedPool) requestCreation(kind Kind) {
	p.bg.Start(func(ctx context.Context) {
		select {
		case p.createSem <- struct{}{}:
		case <-ctx.Done():
			p.mu.Lock()
			p.inFlight--
			if kind == ReadWrite {
				p.inFlightReadWrite--
			}
			p.mu.Unlock()
			return
		}
		defer func() { <-p.createSem }()

		p.createOne(ctx, kind)
	})
}

// createOne runs the creation RPC(s) for a single session, retrying
// retryable failures with backoff, and either delivers the finished
// session to a waiter / the idle queue, or records the failure. It runs
// entirely outside p.mu except for the bookkeeping update at the end
// (spec §5: RPCs are always issued outside the lock).
func (p *TargetedPool) createOne(ctx context.Context, kind Kind) {
	onDone := trace.PoolOnCreate(p.cfg.Trace, &ctx)

	s, err := p.createWithRetry(ctx, kind)

	sessionID := ""
	if s != nil {
		sessionID = s.Name
	}
	onDone(sessionID, err)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.inFlight--
	if kind == ReadWrite {
		p.inFlightReadWrite--
	}

	if err != nil {
		p.healthy = false
		p.lastErr = xerrors.WithStackTrace(err)
		p.cfg.Logger.Warnf("session pool: create failed for %s: %v", p.database, err)
		trace.PoolOnHealth(p.cfg.Trace, false, err)
		return
	}

	p.healthy = true
	p.sessionsCreated++
	s.transition(StateIdle)
	p.cfg.Logger.Debugf("session pool: created %s (%s)", s.Name, s.Kind)
	trace.PoolOnHealth(p.cfg.Trace, true, nil)
	p.completeCreationLocked(s)
}

func (p *TargetedPool) createWithRetry(ctx context.Context, kind Kind) (*Session, error) {
	var lastErr error

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		handle, err := p.client.CreateSession(ctx, p.database)
		if err == nil {
			s := newSession(handle.Name, kind)

			if kind == ReadWrite {
				txID, txErr := p.client.BeginTransaction(ctx, handle.Name)
				if txErr != nil {
					_ = p.client.DeleteSession(ctx, handle.Name)
					err = txErr
				} else {
					s.TxID = txID
					now := p.clock.Now()
					s.RefreshTime = now.Add(applyJitter(p.cfg.SessionRefreshJitter, p.cfg.IdleSessionRefreshDelay))
					s.EvictionTime = now.Add(applyJitter(p.cfg.SessionEvictionJitter, p.cfg.PoolEvictionDelay))

					return s, nil
				}
			} else {
				now := p.clock.Now()
				s.RefreshTime = now.Add(applyJitter(p.cfg.SessionRefreshJitter, p.cfg.IdleSessionRefreshDelay))
				s.EvictionTime = now.Add(applyJitter(p.cfg.SessionEvictionJitter, p.cfg.PoolEvictionDelay))

				return s, nil
			}
		}

		lastErr = err
		if !xerrors.IsRetryable(err) {
			return nil, err
		}

		b := backoff.Fast
		if attempt >= 2 {
			b = backoff.Slow
		}
		if waitErr := p.clock.Delay(ctx, b.Delay(attempt)); waitErr != nil {
			return nil, waitErr
		}
	}

	return nil, xerrors.Wrap(lastErr)
}

// completeCreationLocked hands a freshly created, idle session either
// directly to a waiting Acquire call or onto the idle queue. p.mu must be
// held.
func (p *TargetedPool) completeCreationLocked(s *Session) {
	if p.shutdown {
		// Shutdown already drained pendingAcquirers and the idle queues;
		// a session finishing creation afterwards has nowhere to go but
		// straight to deletion, so it doesn't leak.
		s.transition(StateEvicting)
		p.deleteSession(s)
		return
	}

	if deliverLocked(p.pendingAcquirers, s) {
		s.transition(StateInUse)
		p.activeCount++
		return
	}

	p.enqueueIdleLocked(s)
}

func (p *TargetedPool) enqueueIdleLocked(s *Session) {
	switch s.Kind {
	case ReadWrite:
		p.readWriteIdle.PushBack(s)
	default:
		p.readIdle.PushBack(s)
	}
}
