package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/clientflow-auth/internal/domain"
	"github.com/spec-kit/clientflow-auth/internal/repository/memory"
)

type countingDeleter struct {
	mu      sync.Mutex
	calls   []time.Time
	err     error
	deleted int64
}

func (c *countingDeleter) DeleteStale(_ context.Context, before time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, before)
	return c.deleted, c.err
}

func (c *countingDeleter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestSweepUsesRetentionCutoff(t *testing.T) {
	store := memory.NewTokenRepository()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.Save(ctx, &domain.Token{Token: "old", UserID: "u1", Type: domain.TokenTypeAccess, Expires: now.Add(-48 * time.Hour)}))
	require.NoError(t, store.Save(ctx, &domain.Token{Token: "recent", UserID: "u1", Type: domain.TokenTypeAccess, Expires: now.Add(-time.Hour)}))
	require.NoError(t, store.Save(ctx, &domain.Token{Token: "live", UserID: "u1", Type: domain.TokenTypeRefresh, Expires: now.Add(time.Hour)}))

	w := NewTokenCleanupWorker(store, time.Hour, 24*time.Hour, nil)
	w.now = func() time.Time { return now }

	require.EqualValues(t, 1, w.Sweep(ctx))
	require.Equal(t, 2, store.Len())
}

func TestSweepSwallowsStoreErrors(t *testing.T) {
	store := &countingDeleter{err: errors.New("db down")}
	w := NewTokenCleanupWorker(store, time.Hour, time.Hour, nil)
	require.Zero(t, w.Sweep(context.Background()))
	require.Equal(t, 1, store.count())
}

func TestRunStopsWithContext(t *testing.T) {
	store := &countingDeleter{}
	w := NewTokenCleanupWorker(store, 10*time.Millisecond, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRunDisabledWithoutInterval(t *testing.T) {
	store := &countingDeleter{}
	NewTokenCleanupWorker(store, 0, time.Hour, nil).Run(context.Background())
	require.Zero(t, store.count())
}
