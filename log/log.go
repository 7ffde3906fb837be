// Package log defines the append-only diagnostic sink the session pool
// writes to (spec §1's Logger collaborator) plus a zap-backed
// implementation and a no-op default.
package log

type Logger interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	// WithName scopes subsequent messages under name, e.g. pool.WithName(db)
	// so every log line from a targeted pool carries its database name.
	WithName(name string) Logger
}
