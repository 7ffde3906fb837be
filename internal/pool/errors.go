package pool

import "github.com/dbsessionpool/dbsessionpool/internal/xerrors"

// Canonical definitions of the sentinel errors the root package re-exports
// as sessionpool.ErrInvalidState etc (spec §6-7). They live here, rather
// than in the root package, because the engine below needs to return them
// directly and the root package cannot be imported from here.
var (
	ErrInvalidState      = xerrors.New("session pool: invalid state")
	ErrResourceExhausted = xerrors.New("session pool: resource exhausted")
	ErrCanceled          = xerrors.New("session pool: canceled")
)
