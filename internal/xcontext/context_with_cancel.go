package xcontext

import "context"

// WithCancel is context.WithCancel by another name, kept as its own
// function so call sites read the same way as the rest of this package's
// With* helpers.
func WithCancel(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}
