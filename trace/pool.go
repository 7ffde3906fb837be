package trace

import (
	"context"
	"time"
)

// Pool is the observability surface of a targeted session pool: one
// field per lifecycle event, each a start callback returning a done
// callback, in the teacher's trace.Table style (trace/table.go) but
// reduced to the events spec.md names. Every field is optional; nil
// fields are simply skipped by the PoolOnXxx helpers below.
type Pool struct {
	OnAcquire    func(PoolAcquireStartInfo) func(PoolAcquireDoneInfo)
	OnWaitQueue  func(PoolWaitQueueStartInfo) func(PoolWaitQueueDoneInfo)
	OnRelease    func(PoolReleaseStartInfo) func(PoolReleaseDoneInfo)
	OnCreate     func(PoolCreateStartInfo) func(PoolCreateDoneInfo)
	OnDelete     func(PoolDeleteStartInfo) func(PoolDeleteDoneInfo)
	OnRefresh    func(PoolRefreshStartInfo) func(PoolRefreshDoneInfo)
	OnMaintain   func(PoolMaintainStartInfo) func(PoolMaintainDoneInfo)
	OnHealth     func(PoolHealthChangeInfo)
	OnShutdown   func(PoolShutdownStartInfo) func(PoolShutdownDoneInfo)
}

type (
	PoolAcquireStartInfo struct {
		Context *context.Context
	}
	PoolAcquireDoneInfo struct {
		SessionID string
		Error     error
	}

	PoolWaitQueueStartInfo struct {
		Context *context.Context
	}
	PoolWaitQueueDoneInfo struct {
		SessionID string
		Error     error
	}

	PoolReleaseStartInfo struct {
		SessionID string
	}
	PoolReleaseDoneInfo struct {
		Error error
	}

	PoolCreateStartInfo struct {
		Context *context.Context
	}
	PoolCreateDoneInfo struct {
		SessionID string
		Error     error
	}

	PoolDeleteStartInfo struct {
		SessionID string
	}
	PoolDeleteDoneInfo struct {
		Error error
	}

	PoolRefreshStartInfo struct {
		SessionID string
	}
	PoolRefreshDoneInfo struct {
		Error error
	}

	PoolMaintainStartInfo struct{}
	PoolMaintainDoneInfo  struct {
		Filled    int
		Refreshed int
		Evicted   int
	}

	PoolHealthChangeInfo struct {
		Healthy bool
		Error   error
	}

	PoolShutdownStartInfo struct{}
	PoolShutdownDoneInfo  struct {
		Duration time.Duration
	}
)

func PoolOnAcquire(t *Pool, ctx *context.Context) func(sessionID string, err error) {
	if t == nil || t.OnAcquire == nil {
		return func(string, error) {}
	}
	done := t.OnAcquire(PoolAcquireStartInfo{Context: ctx})

	return func(sessionID string, err error) {
		done(PoolAcquireDoneInfo{SessionID: sessionID, Error: err})
	}
}

func PoolOnWaitQueue(t *Pool, ctx *context.Context) func(sessionID string, err error) {
	if t == nil || t.OnWaitQueue == nil {
		return func(string, error) {}
	}
	done := t.OnWaitQueue(PoolWaitQueueStartInfo{Context: ctx})

	return func(sessionID string, err error) {
		done(PoolWaitQueueDoneInfo{SessionID: sessionID, Error: err})
	}
}

func PoolOnRelease(t *Pool, sessionID string) func(err error) {
	if t == nil || t.OnRelease == nil {
		return func(error) {}
	}
	done := t.OnRelease(PoolReleaseStartInfo{SessionID: sessionID})

	return func(err error) {
		done(PoolReleaseDoneInfo{Error: err})
	}
}

func PoolOnCreate(t *Pool, ctx *context.Context) func(sessionID string, err error) {
	if t == nil || t.OnCreate == nil {
		return func(string, error) {}
	}
	done := t.OnCreate(PoolCreateStartInfo{Context: ctx})

	return func(sessionID string, err error) {
		done(PoolCreateDoneInfo{SessionID: sessionID, Error: err})
	}
}

func PoolOnDelete(t *Pool, sessionID string) func(err error) {
	if t == nil || t.OnDelete == nil {
		return func(error) {}
	}
	done := t.OnDelete(PoolDeleteStartInfo{SessionID: sessionID})

	return func(err error) {
		done(PoolDeleteDoneInfo{Error: err})
	}
}

func PoolOnRefresh(t *Pool, sessionID string) func(err error) {
	if t == nil || t.OnRefresh == nil {
		return func(error) {}
	}
	done := t.OnRefresh(PoolRefreshStartInfo{SessionID: sessionID})

	return func(err error) {
		done(PoolRefreshDoneInfo{Error: err})
	}
}

func PoolOnMaintain(t *Pool) func(filled, refreshed, evicted int) {
	if t == nil || t.OnMaintain == nil {
		return func(int, int, int) {}
	}
	done := t.OnMaintain(PoolMaintainStartInfo{})

	return func(filled, refreshed, evicted int) {
		done(PoolMaintainDoneInfo{Filled: filled, Refreshed: refreshed, Evicted: evicted})
	}
}

func PoolOnHealth(t *Pool, healthy bool, err error) {
	if t == nil || t.OnHealth == nil {
		return
	}
	t.OnHealth(PoolHealthChangeInfo{Healthy: healthy, Error: err})
}

// PoolOnShutdown takes the start time from the caller rather than reading
// it itself, so a pool timing its own shutdown can supply it from its
// injected Clock instead of the wall clock (spec §5).
func PoolOnShutdown(t *Pool, start time.Time) func(end time.Time) {
	if t == nil || t.OnShutdown == nil {
		return func(time.Time) {}
	}
	done := t.OnShutdown(PoolShutdownStartInfo{})

	return func(end time.Time) {
		done(PoolShutdownDoneInfo{Duration: end.Sub(start)})
	}
}
