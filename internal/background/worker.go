// Package background runs the session pool's creation-worker goroutines
// and waits for all of them to finish on shutdown.
package background

import (
	"context"
	"sync"

	"github.com/dbsessionpool/dbsessionpool/internal/xcontext"
	"github.com/dbsessionpool/dbsessionpool/internal/xerrors"
	"github.com/dbsessionpool/dbsessionpool/internal/xsync"
)

var ErrAlreadyClosed = xerrors.Wrap(xerrors.New("background worker already closed"))

// Worker runs named callbacks on their own goroutine and tracks them so
// Close can wait for every in-flight callback to return. It must not be
// copied after first use.
type Worker struct {
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup

	m      xsync.Mutex
	closed bool
}

func New(parent context.Context) *Worker {
	ctx, cancel := xcontext.WithCancel(parent)

	return &Worker{ctx: ctx, cancel: cancel}
}

// Done reports the worker's shutdown signal, set once Close is called.
func (w *Worker) Done() <-chan struct{} {
	return w.ctx.Done()
}

// Start runs f on its own goroutine unless the worker is already closed,
// in which case it is silently dropped (the caller is expected to check
// Done first for anything that matters).
func (w *Worker) Start(f func(ctx context.Context)) {
	w.m.WithLock(func() {
		if w.closed {
			return
		}

		w.workers.Add(1)
		go func() {
			defer w.workers.Done()

			f(w.ctx)
		}()
	})
}

// Close cancels the worker's context and blocks until every started
// callback has returned, or ctx is done first.
func (w *Worker) Close(ctx context.Context) error {
	w.m.WithLock(func() {
		w.closed = true
	})
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
