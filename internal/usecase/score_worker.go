package usecase

import (
	"context"
	"time"

	"reelvote/internal/data/entity"
	"reelvote/internal/data/repository"
	"reelvote/pkg/metrics"
	"reelvote/pkg/utils"

	"go.uber.org/zap"
)

const maxBackoffShift = 16

// ScoreWorker drains the score job queue. Each job is claimed, applied and
// marked processed inside one transaction, so a job is never applied twice.
type ScoreWorker struct {
	repo  *repository.Repository
	uow   repository.UnitOfWork
	score ScoreService
	cache ReviewCache
	cfg   utils.WorkerConfig
	log   *zap.Logger
	now   func() time.Time
}

func NewScoreWorker(repo *repository.Repository, uow repository.UnitOfWork, score ScoreService, cache ReviewCache, cfg utils.WorkerConfig, log *zap.Logger) *ScoreWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 5 * time.Second
	}

	return &ScoreWorker{
		repo:  repo,
		uow:   uow,
		score: score,
		cache: cache,
		cfg:   cfg,
		log:   log.With(zap.String("service", "score_worker")),
		now:   time.Now,
	}
}

// Run polls until ctx is cancelled. Unfinished jobs stay in the queue.
func (w *ScoreWorker) Run(ctx context.Context) {
	w.log.Info("Score worker started",
		zap.Duration("interval", w.cfg.Interval),
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Int("max_attempts", w.cfg.MaxAttempts),
	)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.log.Error("Score worker pass failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			w.log.Info("Score worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce processes up to one batch of runnable jobs and reports how many
// were handled, failures included.
func (w *ScoreWorker) RunOnce(ctx context.Context) (int, error) {
	handled := 0
	for handled < w.cfg.BatchSize {
		if ctx.Err() != nil {
			break
		}

		ok, err := w.processNext(ctx)
		if err != nil {
			return handled, err
		}
		if !ok {
			break
		}
		handled++
	}

	w.refreshPending(ctx)
	return handled, nil
}

// processNext returns false when the queue has nothing runnable. A job that
// fails to apply is rescheduled and does not stop the batch.
func (w *ScoreWorker) processNext(ctx context.Context) (bool, error) {
	var job *entity.ScoreJob
	var delta int

	err := w.uow.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		job, err = tx.ScoreJob.ClaimNext(ctx)
		if err != nil || job == nil {
			return err
		}

		delta, err = w.score.Apply(ctx, tx.Score, job.VoteRecorded)
		if err != nil {
			return err
		}

		_, err = tx.ScoreJob.MarkProcessed(ctx, job.ID)
		return err
	})

	if job == nil {
		return false, err
	}
	if err != nil {
		w.fail(ctx, job, err)
		return true, nil
	}

	metrics.ScoreJobsProcessed.Inc()
	if delta != 0 {
		w.invalidate(ctx, job.ReviewID)
	}

	w.log.Debug("Score job processed",
		zap.String("job_id", job.ID.String()),
		zap.Int64("review_id", job.ReviewID),
		zap.Int("delta", delta),
	)

	return true, nil
}

func (w *ScoreWorker) fail(ctx context.Context, job *entity.ScoreJob, cause error) {
	retryAt := w.now().Add(w.backoff(job.Attempts))

	dead, err := w.repo.ScoreJob.RecordFailure(ctx, job.ID, cause.Error(), retryAt, w.cfg.MaxAttempts)
	if err != nil {
		w.log.Error("Failed to reschedule score job",
			zap.Error(err),
			zap.NamedError("cause", cause),
			zap.String("job_id", job.ID.String()),
		)
		return
	}

	if dead {
		metrics.ScoreJobsDead.Inc()
		w.log.Error("Score job dead-lettered",
			zap.Error(cause),
			zap.String("job_id", job.ID.String()),
			zap.Int64("review_id", job.ReviewID),
			zap.String("author_id", job.AuthorID.String()),
			zap.Int("attempts", job.Attempts+1),
		)
		return
	}

	metrics.ScoreJobsFailed.Inc()
	w.log.Warn("Score job failed, retry scheduled",
		zap.Error(cause),
		zap.String("job_id", job.ID.String()),
		zap.Int("attempts", job.Attempts+1),
		zap.Time("retry_at", retryAt),
	)
}

// backoff doubles the base delay per previous attempt.
func (w *ScoreWorker) backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > maxBackoffShift {
		attempts = maxBackoffShift
	}
	return w.cfg.BaseBackoff * time.Duration(1<<attempts)
}

func (w *ScoreWorker) refreshPending(ctx context.Context) {
	pending, err := w.repo.ScoreJob.CountPending(ctx)
	if err != nil {
		w.log.Warn("Failed to count pending score jobs", zap.Error(err))
		return
	}
	metrics.ScoreJobsPending.Set(float64(pending))
}

func (w *ScoreWorker) invalidate(ctx context.Context, reviewID int64) {
	if w.cache == nil {
		return
	}
	if err := w.cache.Invalidate(ctx, reviewID); err != nil {
		w.log.Warn("Review cache invalidate failed", zap.Error(err), zap.Int64("review_id", reviewID))
	}
}
