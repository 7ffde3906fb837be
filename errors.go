package sessionpool

import (
	"github.com/dbsessionpool/dbsessionpool/internal/pool"
)

// Errors surfaced by Acquire, WaitForPoolAsync and Release, matching
// spec §6-7's three caller-visible classes. Anything else returned from
// these methods is a pass-through RPC error from the ServiceClient.
var (
	// ErrInvalidState is returned by Acquire once the pool has been
	// shut down.
	ErrInvalidState = pool.ErrInvalidState

	// ErrResourceExhausted is returned by Acquire when the pool is at
	// MaximumActiveSessions and WaitOnResourcesExhausted is Fail, or when
	// the acquisition timeout elapses while waiting.
	ErrResourceExhausted = pool.ErrResourceExhausted

	// ErrCanceled is returned by Acquire and WaitForPoolAsync when the
	// caller's context is canceled, or when shutdown preempts a pending
	// wait.
	ErrCanceled = pool.ErrCanceled
)
