package sessionpool

import (
	"time"

	"github.com/dbsessionpool/dbsessionpool/internal/pool"
	"github.com/dbsessionpool/dbsessionpool/log"
	"github.com/dbsessionpool/dbsessionpool/trace"
)

// WaitPolicy governs Acquire's behavior once active_count reaches
// MaximumActiveSessions (spec §4.1, §6).
type WaitPolicy = pool.WaitPolicy

const (
	// Block suspends the caller in pending_acquirers until a session
	// frees up, cancellation fires, or shutdown happens.
	Block = pool.Block
	// Fail returns ErrResourceExhausted immediately.
	Fail = pool.Fail
)

// Defaults mirror the teacher's DefaultSessionPoolSizeLimit family
// (internal/table/pool.go) sized for spec §8's scenarios.
const (
	DefaultMinimumPooledSessions          = 10
	DefaultMaximumActiveSessions          = 100
	DefaultMaximumConcurrentSessionCreates = 10
	DefaultWriteSessionsFraction          = 0.2
	DefaultIdleSessionRefreshDelay        = 15 * time.Minute
	DefaultPoolEvictionDelay              = 100 * time.Minute
	DefaultMaintenanceLoopDelay           = 30 * time.Second
	DefaultTimeout                        = 30 * time.Second
	DefaultDeleteTimeout                  = 500 * time.Millisecond
)

// Jitter randomizes a base duration, applied to refresh_time and
// eviction_time per spec §9. The zero value (nil Jitter field) applies no
// jitter, which is what deterministic tests want.
type Jitter = pool.Jitter

// Options is the read-only configuration snapshot spec §6 describes.
// Build one with New and the With* functions below; a constructed Options
// is never mutated by the pool.
type Options struct {
	MinimumPooledSessions           int
	MaximumActiveSessions            int
	MaximumConcurrentSessionCreates int
	WriteSessionsFraction            float64
	IdleSessionRefreshDelay          time.Duration
	PoolEvictionDelay                time.Duration
	SessionRefreshJitter              Jitter
	SessionEvictionJitter             Jitter
	MaintenanceLoopDelay              time.Duration
	Timeout                           time.Duration
	DeleteTimeout                     time.Duration
	WaitOnResourcesExhausted          WaitPolicy

	Logger log.Logger
	Trace  *trace.Pool
}

type Option func(o *Options)

func WithMinimumPooledSessions(n int) Option {
	return func(o *Options) { o.MinimumPooledSessions = n }
}

func WithMaximumActiveSessions(n int) Option {
	return func(o *Options) { o.MaximumActiveSessions = n }
}

func WithMaximumConcurrentSessionCreates(n int) Option {
	return func(o *Options) { o.MaximumConcurrentSessionCreates = n }
}

func WithWriteSessionsFraction(f float64) Option {
	return func(o *Options) { o.WriteSessionsFraction = f }
}

func WithIdleSessionRefreshDelay(d time.Duration) Option {
	return func(o *Options) { o.IdleSessionRefreshDelay = d }
}

func WithPoolEvictionDelay(d time.Duration) Option {
	return func(o *Options) { o.PoolEvictionDelay = d }
}

func WithSessionRefreshJitter(j Jitter) Option {
	return func(o *Options) { o.SessionRefreshJitter = j }
}

func WithSessionEvictionJitter(j Jitter) Option {
	return func(o *Options) { o.SessionEvictionJitter = j }
}

func WithMaintenanceLoopDelay(d time.Duration) Option {
	return func(o *Options) { o.MaintenanceLoopDelay = d }
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithDeleteTimeout bounds how long a DeleteSession RPC may run before it
// is abandoned, the way the teacher's DeleteTimeout bounds CloseSession.
func WithDeleteTimeout(d time.Duration) Option {
	return func(o *Options) { o.DeleteTimeout = d }
}

func WithWaitOnResourcesExhausted(p WaitPolicy) Option {
	return func(o *Options) { o.WaitOnResourcesExhausted = p }
}

func WithLogger(l log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithTrace(t *trace.Pool) Option {
	return func(o *Options) { o.Trace = t }
}

// New builds an Options snapshot from defaults plus opts, in the order
// given.
func New(opts ...Option) Options {
	o := Options{
		MinimumPooledSessions:           DefaultMinimumPooledSessions,
		MaximumActiveSessions:            DefaultMaximumActiveSessions,
		MaximumConcurrentSessionCreates: DefaultMaximumConcurrentSessionCreates,
		WriteSessionsFraction:            DefaultWriteSessionsFraction,
		IdleSessionRefreshDelay:          DefaultIdleSessionRefreshDelay,
		PoolEvictionDelay:                DefaultPoolEvictionDelay,
		MaintenanceLoopDelay:             DefaultMaintenanceLoopDelay,
		Timeout:                          DefaultTimeout,
		DeleteTimeout:                    DefaultDeleteTimeout,
		WaitOnResourcesExhausted:         Block,
		Logger:                           log.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

// toConfig converts the public Options into the engine's internal Config.
// It exists because internal/pool cannot import this package (the
// dependency runs the other way), so the two types are structurally
// identical but distinct.
func (o Options) toConfig() pool.Config {
	return pool.Config{
		MinimumPooledSessions:           o.MinimumPooledSessions,
		MaximumActiveSessions:           o.MaximumActiveSessions,
		MaximumConcurrentSessionCreates: o.MaximumConcurrentSessionCreates,
		WriteSessionsFraction:           o.WriteSessionsFraction,
		IdleSessionRefreshDelay:         o.IdleSessionRefreshDelay,
		PoolEvictionDelay:               o.PoolEvictionDelay,
		SessionRefreshJitter:            o.SessionRefreshJitter,
		SessionEvictionJitter:           o.SessionEvictionJitter,
		MaintenanceLoopDelay:            o.MaintenanceLoopDelay,
		Timeout:                         o.Timeout,
		DeleteTimeout:                   o.DeleteTimeout,
		WaitOnResourcesExhausted:        o.WaitOnResourcesExhausted,
		Logger:                          o.Logger,
		Trace:                           o.Trace,
	}
}
