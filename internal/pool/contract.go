package pool

import (
	"context"
	"time"
)

// ServiceClient is the external RPC collaborator spec §1 describes,
// re-exported by the root package as sessionpool.ServiceClient. It lives
// here, rather than in the root package, so the engine below can depend
// on it without an import cycle.
type ServiceClient interface {
	CreateSession(ctx context.Context, database string) (SessionHandle, error)
	DeleteSession(ctx context.Context, sessionName string) error
	ExecuteSql(ctx context.Context, sessionName, sql string) error
	BeginTransaction(ctx context.Context, sessionName string) (txID string, err error)
}

type SessionHandle struct {
	Name string
}

// Clock is the virtual time source spec §1/§5 requires.
type Clock interface {
	Now() time.Time
	Delay(ctx context.Context, d time.Duration) error
}

// Jitter randomizes a base duration (spec §9); the zero value (nil) means
// no jitter.
type Jitter interface {
	Apply(base time.Duration) time.Duration
}

// Kind distinguishes a plain read-only session from one carrying a
// pre-begun read/write transaction (spec §3).
type Kind uint8

const (
	ReadOnly Kind = iota
	ReadWrite
)

func (k Kind) String() string {
	switch k {
	case ReadOnly:
		return "read_only"
	case ReadWrite:
		return "read_write"
	default:
		return "unknown"
	}
}
