// Package submission implements the submission worker loop (spec §4.3): a
// single goroutine that discovers active contest queues, round-robins an
// atomic pop across them, grades the popped batch through
// internal/leaderboard inside one transaction, and folds in the idle-handoff
// bookkeeping from spec §4.5.
package submission

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"examprep-contest-core/internal/leaderboard"
	"examprep-contest-core/internal/metrics"
	"examprep-contest-core/internal/queue"
)

// Config tunes the worker loop's timing, matching spec §4.3/§6's named
// constants.
type Config struct {
	PollInterval     time.Duration
	BlockingTimeout  time.Duration
}

// DefaultConfig mirrors the original worker's defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval:    2 * time.Second,
		BlockingTimeout: 5 * time.Second,
	}
}

// Worker is one submission-worker loop instance.
type Worker struct {
	q       *queue.Queue
	pool    *pgxpool.Pool
	cfg     Config
	seen    map[string]struct{}
	metrics *metrics.QueueMetrics
}

// New builds a Worker reading batches off q and writing attempts/leaderboard
// rows through pool.
func New(q *queue.Queue, pool *pgxpool.Pool, cfg Config) *Worker {
	return &Worker{
		q:       q,
		pool:    pool,
		cfg:     cfg,
		seen:    make(map[string]struct{}),
		metrics: metrics.NewQueueMetrics(),
	}
}

// Run blocks until ctx is cancelled, completing any in-flight batch before
// returning (spec §5 "Cancellation").
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("submission worker: shutdown signal received")
			return
		default:
		}

		if err := w.iterate(ctx); err != nil {
			log.Printf("submission worker: iteration error: %v", err)
			sleep(ctx, w.cfg.PollInterval*5)
		}
	}
}

func (w *Worker) iterate(ctx context.Context) error {
	active, err := w.q.DiscoverActiveQueues(ctx)
	if err != nil {
		return err
	}

	w.reportQueueDepths(ctx, active)
	w.handleIdleTransitions(ctx, active)

	if len(active) == 0 {
		sleep(ctx, w.cfg.PollInterval*5)
		return nil
	}

	for _, key := range active {
		batch, err := w.q.DequeueBlocking(ctx, key, int(w.cfg.BlockingTimeout.Seconds()))
		if err != nil {
			return err
		}
		if batch == nil {
			continue
		}

		// The batch is already popped, so a shutdown signal must not abort
		// its transaction halfway; Run exits after it commits.
		if err := w.processBatch(context.WithoutCancel(ctx), *batch); err != nil {
			log.Printf("submission worker: processing batch for contest %s user %s failed: %v",
				batch.ContestID, batch.UserID, err)
		}

		// One successful batch per outer iteration, so other contests get a
		// turn on the next pass (spec §4.3 step 6).
		return nil
	}

	sleep(ctx, w.cfg.PollInterval)
	return nil
}

// reportQueueDepths publishes the current length of every active queue so
// the per-contest depth gauge reflects reality between iterations.
func (w *Worker) reportQueueDepths(ctx context.Context, active []string) {
	for _, key := range active {
		depth, err := w.q.QueueLength(ctx, key)
		if err != nil {
			log.Printf("submission worker: read queue depth for %s failed: %v", key, err)
			continue
		}
		w.metrics.SetQueueDepth(queue.ContestIDFromQueueKey(key), depth)
	}
}

// handleIdleTransitions implements spec §4.5: a contest_id is pushed onto
// the grading list exactly once, the first time its queue is observed going
// from non-empty to empty.
func (w *Worker) handleIdleTransitions(ctx context.Context, active []string) {
	activeSet := make(map[string]struct{}, len(active))
	for _, key := range active {
		activeSet[key] = struct{}{}
	}

	for key := range w.seen {
		if _, stillActive := activeSet[key]; stillActive {
			continue
		}
		contestID := queue.ContestIDFromQueueKey(key)
		if err := w.q.PushGrading(ctx, contestID); err != nil {
			log.Printf("submission worker: push grading for contest %s failed: %v", contestID, err)
		}
		w.metrics.SetQueueDepth(contestID, 0)
		delete(w.seen, key)
	}

	for _, key := range active {
		w.seen[key] = struct{}{}
	}
}

func (w *Worker) processBatch(ctx context.Context, batch queue.SubmissionBatch) error {
	start := time.Now()
	result, err := w.processBatchTx(ctx, batch)
	w.metrics.ObserveBatchDuration(batch.ContestID, time.Since(start))
	if err != nil {
		w.metrics.IncrementBatchesProcessed("error")
		return err
	}

	w.metrics.IncrementBatchesProcessed("ok")
	log.Printf("submission worker: contest %s user %s processed=%d failed=%d score=%d",
		batch.ContestID, batch.UserID, result.ProcessedCount, result.FailedCount, result.TotalScore)
	return nil
}

func (w *Worker) processBatchTx(ctx context.Context, batch queue.SubmissionBatch) (*leaderboard.Result, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	result, err := leaderboard.ProcessBatch(ctx, tx, batch)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Pool runs n independent Worker loops sharing one *queue.Queue and
// *pgxpool.Pool, matching the spec's "N processes or N goroutines" note:
// the KV's own atomicity is the only coordination required.
func Pool(ctx context.Context, q *queue.Queue, pool *pgxpool.Pool, cfg Config, n int) {
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func(id int) {
			New(q, pool, cfg).Run(ctx)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}
}
