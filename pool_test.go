package sessionpool_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	sessionpool "github.com/dbsessionpool/dbsessionpool"
	"github.com/dbsessionpool/dbsessionpool/testutil/fakeclient"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newFakePool(t *testing.T, client *fakeclient.Client, fc *clockwork.FakeClock, opts ...sessionpool.Option) *sessionpool.Pool {
	t.Helper()

	all := append([]sessionpool.Option{sessionpool.WithTimeout(0)}, opts...)

	return sessionpool.NewPool("db", client, sessionpool.NewClock(fc), all...)
}

// Acquire followed by Release, with no refresh due, returns the session
// to the idle queue without issuing any RPC beyond the original create
// (spec.md §8 scenario 1).
func TestAcquireReleaseNoRefreshNeeded(t *testing.T) {
	client := fakeclient.New()
	fc := clockwork.NewFakeClock()
	p := newFakePool(t, client, fc)
	defer func() { _ = p.ShutdownPoolAsync(context.Background()) }()

	ctx := context.Background()
	s, err := p.Acquire(ctx, sessionpool.ReadOnly)
	require.NoError(t, err)
	require.NotNil(t, s)

	stats := p.Stats()
	require.EqualValues(t, 1, stats.SessionsCreated)
	require.Equal(t, 1, stats.ActiveSessionCount)

	require.NoError(t, p.Release(s))

	stats = p.Stats()
	require.Equal(t, 0, stats.ActiveSessionCount)
	require.Equal(t, 1, stats.ReadPoolCount)
	require.EqualValues(t, 0, stats.SessionsDeleted)
}

// A session released after its refresh_time has passed is refreshed (an
// ExecuteSql ping), not evicted, and rejoins the idle queue with a
// renewed refresh_time (spec.md §8 scenario 2).
func TestReleaseAfterRefreshDue(t *testing.T) {
	client := fakeclient.New()
	fc := clockwork.NewFakeClock()
	p := newFakePool(t, client, fc,
		sessionpool.WithIdleSessionRefreshDelay(time.Minute),
		sessionpool.WithPoolEvictionDelay(time.Hour),
	)
	defer func() { _ = p.ShutdownPoolAsync(context.Background()) }()

	ctx := context.Background()
	s, err := p.Acquire(ctx, sessionpool.ReadOnly)
	require.NoError(t, err)

	fc.Advance(2 * time.Minute)

	require.NoError(t, p.Release(s))

	require.Eventually(t, func() bool {
		return p.Stats().ReadPoolCount == 1
	}, time.Second, time.Millisecond)

	require.Equal(t, 0, client.DeletedCount())
}

// A session released after its eviction_time has passed is deleted
// instead of recycled (spec.md §8 scenario 3).
func TestReleaseAfterEvictionDue(t *testing.T) {
	client := fakeclient.New()
	fc := clockwork.NewFakeClock()
	p := newFakePool(t, client, fc,
		sessionpool.WithIdleSessionRefreshDelay(time.Minute),
		sessionpool.WithPoolEvictionDelay(2*time.Minute),
	)
	defer func() { _ = p.ShutdownPoolAsync(context.Background()) }()

	ctx := context.Background()
	s, err := p.Acquire(ctx, sessionpool.ReadOnly)
	require.NoError(t, err)

	fc.Advance(3 * time.Minute)

	require.NoError(t, p.Release(s))

	require.Eventually(t, func() bool {
		return p.Stats().SessionsDeleted == 1
	}, time.Second, time.Millisecond)

	require.Equal(t, 0, p.Stats().ReadPoolCount)
	require.Equal(t, 1, client.DeletedCount())
}

// When the pool is at MaximumActiveSessions and WaitOnResourcesExhausted
// is Fail, Acquire returns ErrResourceExhausted immediately (spec.md §8
// scenario 4).
func TestAcquireResourceExhaustedFail(t *testing.T) {
	client := fakeclient.New()
	fc := clockwork.NewFakeClock()
	p := newFakePool(t, client, fc,
		sessionpool.WithMaximumActiveSessions(1),
		sessionpool.WithWaitOnResourcesExhausted(sessionpool.Fail),
	)
	defer func() { _ = p.ShutdownPoolAsync(context.Background()) }()

	ctx := context.Background()
	s, err := p.Acquire(ctx, sessionpool.ReadOnly)
	require.NoError(t, err)
	require.NotNil(t, s)

	_, err = p.Acquire(ctx, sessionpool.ReadOnly)
	require.ErrorIs(t, err, sessionpool.ErrResourceExhausted)

	require.NoError(t, p.Release(s))
}

// With two callers blocked on a full pool, canceling one's context fails
// only that caller; the other still receives the session once it is
// released (spec.md §8 scenario 5).
func TestAcquireBlockCancelOneOfTwo(t *testing.T) {
	client := fakeclient.New()
	fc := clockwork.NewFakeClock()
	p := newFakePool(t, client, fc,
		sessionpool.WithMaximumActiveSessions(1),
		sessionpool.WithWaitOnResourcesExhausted(sessionpool.Block),
	)
	defer func() { _ = p.ShutdownPoolAsync(context.Background()) }()

	ctx := context.Background()
	held, err := p.Acquire(ctx, sessionpool.ReadOnly)
	require.NoError(t, err)

	type result struct {
		s   *sessionpool.Session
		err error
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	res1 := make(chan result, 1)
	go func() {
		s, err := p.Acquire(cancelCtx, sessionpool.ReadOnly)
		res1 <- result{s, err}
	}()

	res2 := make(chan result, 1)
	go func() {
		s, err := p.Acquire(context.Background(), sessionpool.ReadOnly)
		res2 <- result{s, err}
	}()

	require.Eventually(t, func() bool {
		return p.Stats().ActiveSessionCount == 1
	}, time.Second, time.Millisecond)

	cancel()

	r1 := <-res1
	require.Error(t, r1.err)
	require.ErrorIs(t, r1.err, sessionpool.ErrCanceled)

	require.NoError(t, p.Release(held))

	r2 := <-res2
	require.NoError(t, r2.err)
	require.NotNil(t, r2.s)

	require.NoError(t, p.Release(r2.s))
}

// A non-retryable creation failure marks the pool unhealthy, which
// WaitForPoolAsync surfaces immediately instead of blocking until its
// context expires (spec.md §8 scenario 6).
func TestWaitForPoolUnhealthy(t *testing.T) {
	client := fakeclient.New()
	fc := clockwork.NewFakeClock()
	boom := errors.New("boom")
	client.FailCreate(boom, false)

	p := newFakePool(t, client, fc, sessionpool.WithMinimumPooledSessions(1))
	defer func() { _ = p.ShutdownPoolAsync(context.Background()) }()

	p.MaintainPool(context.Background())

	require.Eventually(t, func() bool {
		return !p.Stats().Healthy
	}, time.Second, time.Millisecond)

	err := p.WaitForPoolAsync(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, boom)
}

// Shutdown deletes idle sessions and fails pending waiters immediately,
// but does not complete while a session is still checked out: it blocks
// until that session is released, since active_count must reach zero
// (spec.md §8 scenario 7).
func TestShutdownWithOneCheckedOut(t *testing.T) {
	client := fakeclient.New()
	fc := clockwork.NewFakeClock()
	p := newFakePool(t, client, fc, sessionpool.WithMinimumPooledSessions(2))

	ctx := context.Background()
	held, err := p.Acquire(ctx, sessionpool.ReadOnly)
	require.NoError(t, err)

	p.MaintainPool(ctx)
	require.Eventually(t, func() bool {
		return p.Stats().ReadPoolCount+p.Stats().ReadWritePoolCount >= 1
	}, time.Second, time.Millisecond)

	shutdownDone := make(chan error, 1)
	go func() {
		shutdownDone <- p.ShutdownPoolAsync(context.Background())
	}()

	// Shutdown must not complete while held is still checked out.
	select {
	case err := <-shutdownDone:
		t.Fatalf("ShutdownPoolAsync returned early (err=%v) with a session still checked out", err)
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, p.Release(held))
	fc.Advance(time.Second)

	select {
	case err := <-shutdownDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ShutdownPoolAsync did not complete after Release")
	}
}

// Shutdown fails a caller already parked in the wait queue with Canceled,
// not InvalidState: InvalidState is reserved for Acquire calls made once
// shutdown has begun, not for acquirers already waiting when it starts
// (spec.md §4.1, §7).
func TestShutdownCancelsPendingAcquirer(t *testing.T) {
	client := fakeclient.New()
	fc := clockwork.NewFakeClock()
	p := newFakePool(t, client, fc,
		sessionpool.WithMaximumActiveSessions(1),
		sessionpool.WithWaitOnResourcesExhausted(sessionpool.Block),
	)

	ctx := context.Background()
	held, err := p.Acquire(ctx, sessionpool.ReadOnly)
	require.NoError(t, err)

	type result struct {
		s   *sessionpool.Session
		err error
	}

	waiting := make(chan result, 1)
	go func() {
		s, err := p.Acquire(context.Background(), sessionpool.ReadOnly)
		waiting <- result{s, err}
	}()

	require.Eventually(t, func() bool {
		return p.Stats().ActiveSessionCount == 1
	}, time.Second, time.Millisecond)

	shutdownDone := make(chan error, 1)
	go func() {
		shutdownDone <- p.ShutdownPoolAsync(context.Background())
	}()

	r := <-waiting
	require.Error(t, r.err)
	require.ErrorIs(t, r.err, sessionpool.ErrCanceled)
	require.NotErrorIs(t, r.err, sessionpool.ErrInvalidState)

	require.NoError(t, p.Release(held))
	fc.Advance(time.Second)

	select {
	case err := <-shutdownDone:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ShutdownPoolAsync did not complete after Release")
	}
}

// Acquire on an already-shut-down pool fails with ErrInvalidState
// (spec.md §8 scenario 8).
func TestAcquireAfterShutdown(t *testing.T) {
	client := fakeclient.New()
	fc := clockwork.NewFakeClock()
	p := newFakePool(t, client, fc)

	ctx := context.Background()
	require.NoError(t, p.ShutdownPoolAsync(ctx))

	_, err := p.Acquire(ctx, sessionpool.ReadOnly)
	require.ErrorIs(t, err, sessionpool.ErrInvalidState)
}
