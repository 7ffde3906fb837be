package xcontext

import (
	"context"
	"time"
)

// WithTimeout is context.WithTimeout by another name, matching WithCancel;
// the pool uses it to bound each DeleteSession RPC.
func WithTimeout(ctx context.Context, t time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, t)
}
