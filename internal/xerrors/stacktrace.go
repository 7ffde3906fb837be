package xerrors

import (
	"github.com/dbsessionpool/dbsessionpool/internal/stack"
)

// WithStackTrace is a wrapper over err with a file:line identification,
// used where a failed create or refresh RPC is recorded as the pool's last
// error.
func WithStackTrace(err error, opts ...option) error {
	if err == nil {
		return nil
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	return &stackError{
		record: stack.Record(o.skipDepth + 1),
		err:    err,
	}
}

type options struct {
	skipDepth int
}

type option func(o *options)

func WithSkipDepth(skipDepth int) option {
	return func(o *options) {
		o.skipDepth = skipDepth
	}
}

type stackError struct {
	record string
	err    error
}

func (e *stackError) Error() string {
	return e.err.Error() + " at `" + e.record + "`"
}

func (e *stackError) Unwrap() error {
	return e.err
}
