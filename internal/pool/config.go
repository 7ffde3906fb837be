package pool

import (
	"time"

	"github.com/dbsessionpool/dbsessionpool/log"
	"github.com/dbsessionpool/dbsessionpool/trace"
)

// WaitPolicy mirrors the root package's WaitPolicy; kept as a distinct
// type here (rather than importing the root package, which would create
// an import cycle) and aliased back by the root package.
type WaitPolicy uint8

const (
	Block WaitPolicy = iota
	Fail
)

func (p WaitPolicy) String() string {
	switch p {
	case Block:
		return "block"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Config is the engine's internal reading of the root package's Options.
// It exists as its own type, instead of reusing Options directly, so this
// package has no dependency on the root package.
type Config struct {
	MinimumPooledSessions            int
	MaximumActiveSessions            int
	MaximumConcurrentSessionCreates  int
	WriteSessionsFraction            float64
	IdleSessionRefreshDelay          time.Duration
	PoolEvictionDelay                time.Duration
	SessionRefreshJitter             Jitter
	SessionEvictionJitter            Jitter
	MaintenanceLoopDelay             time.Duration
	Timeout                          time.Duration
	DeleteTimeout                    time.Duration
	WaitOnResourcesExhausted         WaitPolicy

	Logger log.Logger
	Trace  *trace.Pool
}

func (c Config) readWriteTarget() int {
	return ceilFraction(c.MinimumPooledSessions, c.WriteSessionsFraction)
}

func ceilFraction(total int, fraction float64) int {
	if fraction <= 0 {
		return 0
	}
	if fraction >= 1 {
		return total
	}

	f := float64(total) * fraction
	n := int(f)
	if f > float64(n) {
		n++
	}

	return n
}

func applyJitter(j Jitter, base time.Duration) time.Duration {
	if j == nil {
		return base
	}

	return j.Apply(base)
}
