package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelesk/notevault/models"
)

type countingJournal struct {
	replays atomic.Int64
}

func (c *countingJournal) Drain(context.Context) (int, error) { return 0, nil }
func (c *countingJournal) ReplayAll(context.Context) error {
	c.replays.Add(1)
	return nil
}
func (c *countingJournal) Pending(context.Context) (int, error) { return 0, nil }
func (c *countingJournal) FullResync(context.Context) error     { return nil }

type countingVault struct {
	pulls atomic.Int64
}

func (c *countingVault) LoadLocal(context.Context) (models.VaultBlob, error) {
	return models.VaultBlob{}, nil
}
func (c *countingVault) PushLocalChange(context.Context, []byte) (PushResult, error) {
	return PushResult{}, nil
}
func (c *countingVault) PullIfStale(context.Context) (*models.VaultBlob, error) {
	c.pulls.Add(1)
	return nil, nil
}

func TestSyncJob_RunsCyclesUntilStopped(t *testing.T) {
	journal := &countingJournal{}
	vault := &countingVault{}
	job := NewSyncJob(journal, vault, 0)

	job.Start(context.Background(), 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return journal.replays.Load() >= 3 && vault.pulls.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)

	job.Stop()
	replaysAtStop := journal.replays.Load()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, replaysAtStop, journal.replays.Load())
}

func TestSyncJob_StopWithoutStart(t *testing.T) {
	job := NewSyncJob(&countingJournal{}, &countingVault{}, 0)
	job.Stop() // must not panic or block
}

func TestSyncJob_RestartReplacesLoop(t *testing.T) {
	journal := &countingJournal{}
	vault := &countingVault{}
	job := NewSyncJob(journal, vault, 0)

	job.Start(context.Background(), time.Hour)
	job.Start(context.Background(), 20*time.Millisecond)
	defer job.Stop()

	// The immediate cycle of each Start plus at least one tick of the
	// second loop.
	require.Eventually(t, func() bool {
		return journal.replays.Load() >= 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSyncJob_ContextCancelStopsLoop(t *testing.T) {
	journal := &countingJournal{}
	job := NewSyncJob(journal, &countingVault{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx, 20*time.Millisecond)

	require.Eventually(t, func() bool { return journal.replays.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	time.Sleep(60 * time.Millisecond)
	after := journal.replays.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, journal.replays.Load())
}

// hangingJournal blocks every replay until its context expires and records
// the context error it observed.
type hangingJournal struct {
	countingJournal

	mu      sync.Mutex
	ctxErrs []error
}

func (h *hangingJournal) ReplayAll(ctx context.Context) error {
	h.countingJournal.replays.Add(1)
	<-ctx.Done()
	h.mu.Lock()
	h.ctxErrs = append(h.ctxErrs, ctx.Err())
	h.mu.Unlock()
	return ctx.Err()
}

func TestSyncJob_CycleBoundedByOperationTimeout(t *testing.T) {
	journal := &hangingJournal{}
	vault := &countingVault{}
	job := NewSyncJob(journal, vault, 30*time.Millisecond)

	job.Start(context.Background(), time.Hour)
	defer job.Stop()

	// The immediate cycle hangs in the journal; only the per-cycle
	// deadline can release it and let the vault refresh run.
	require.Eventually(t, func() bool { return vault.pulls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	journal.mu.Lock()
	defer journal.mu.Unlock()
	require.NotEmpty(t, journal.ctxErrs)
	assert.ErrorIs(t, journal.ctxErrs[0], context.DeadlineExceeded)
}
