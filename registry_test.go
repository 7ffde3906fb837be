package sessionpool_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	sessionpool "github.com/dbsessionpool/dbsessionpool"
	"github.com/dbsessionpool/dbsessionpool/testutil/fakeclient"
)

// A Registry lazily creates one Pool per database and fans MaintainAll
// out to every pool it has created so far.
func TestRegistryLazyPoolAndMaintainAll(t *testing.T) {
	client := fakeclient.New()
	fc := clockwork.NewFakeClock()

	r := sessionpool.NewRegistry(client, fc,
		sessionpool.WithMinimumPooledSessions(1),
		sessionpool.WithMaintenanceLoopDelay(0), // drive MaintainAll manually
		sessionpool.WithTimeout(0),
	)
	defer func() { _ = r.Shutdown(context.Background()) }()

	a := r.Pool("db-a")
	b := r.Pool("db-b")
	require.Same(t, a, r.Pool("db-a"))

	require.NoError(t, r.MaintainAll(context.Background()))

	require.Eventually(t, func() bool {
		return a.Stats().ReadPoolCount+a.Stats().ReadWritePoolCount >= 1 &&
			b.Stats().ReadPoolCount+b.Stats().ReadWritePoolCount >= 1
	}, time.Second, time.Millisecond)
}

// Shutdown tears down every pool the registry has created.
func TestRegistryShutdownAll(t *testing.T) {
	client := fakeclient.New()
	fc := clockwork.NewFakeClock()

	r := sessionpool.NewRegistry(client, fc,
		sessionpool.WithMaintenanceLoopDelay(0),
		sessionpool.WithTimeout(0),
	)

	a := r.Pool("db-a")
	ctx := context.Background()
	s, err := a.Acquire(ctx, sessionpool.ReadOnly)
	require.NoError(t, err)
	require.NoError(t, a.Release(s))

	require.NoError(t, r.Shutdown(context.Background()))
	require.True(t, a.Stats().Shutdown)
}
