package service

import (
	"context"
	"sync"
	"time"

	"github.com/avelesk/notevault/internal/logger"
)

// defaultOpTimeout caps one reconciliation pass, retries included, when no
// total timeout is configured.
const defaultOpTimeout = 30 * time.Second

type syncJob struct {
	journal   JournalService
	vault     VaultSyncEngine
	opTimeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSyncJob creates the background reconciliation job. Each cycle drains
// the journal, then refreshes the vault if the server moved ahead, all
// under opTimeout so a hung network call cannot wedge the loop. The job is
// idle until Start is called.
func NewSyncJob(journal JournalService, vault VaultSyncEngine, opTimeout time.Duration) SyncJob {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &syncJob{journal: journal, vault: vault, opTimeout: opTimeout}
}

// Start implements [SyncJob]. A non-positive interval defaults to five
// minutes. The loop runs one cycle immediately, then on every tick, and
// exits when ctx is cancelled or Stop is called.
func (j *syncJob) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		j.cycle(jobCtx)
		for {
			select {
			case <-jobCtx.Done():
				return
			case <-ticker.C:
				j.cycle(jobCtx)
			}
		}
	}()
}

// Stop implements [SyncJob]. Safe to call multiple times and before Start.
func (j *syncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}

// cycle is one reconciliation pass. Failures are logged, never fatal: the
// journal keeps everything that did not reach the server, and the next tick
// tries again.
func (j *syncJob) cycle(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.opTimeout)
	defer cancel()

	log := logger.FromContext(ctx)

	if err := j.journal.ReplayAll(ctx); err != nil {
		log.Warn().Str("func", "cycle").Err(err).Msg("journal replay incomplete")
	}

	if _, err := j.vault.PullIfStale(ctx); err != nil {
		log.Warn().Str("func", "cycle").Err(err).Msg("vault refresh failed")
	}
}
