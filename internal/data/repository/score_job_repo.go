package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reelvote/internal/data/entity"
	"reelvote/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ScoreJobRepository is the durable queue of VoteRecorded events.
type ScoreJobRepository interface {
	Enqueue(ctx context.Context, job *entity.ScoreJob) error
	// ClaimNext locks the oldest runnable job, skipping rows other workers
	// hold. Returns nil when nothing is runnable. Transaction only.
	ClaimNext(ctx context.Context) (*entity.ScoreJob, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) (bool, error)
	// RecordFailure bumps the attempt counter and reschedules the job, or
	// dead-letters it once attempts reach maxAttempts.
	RecordFailure(ctx context.Context, id uuid.UUID, cause string, retryAt time.Time, maxAttempts int) (dead bool, err error)
	CountPending(ctx context.Context) (int64, error)
}

type scoreJobRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewScoreJobRepository(db database.Querier, log *zap.Logger) ScoreJobRepository {
	return &scoreJobRepository{
		db:  db,
		log: log.With(zap.String("repository", "score_job")),
	}
}

func (r *scoreJobRepository) Enqueue(ctx context.Context, job *entity.ScoreJob) error {
	query := `
		INSERT INTO score_jobs (id, author_id, review_id, voter_id, previous_value,
		                        new_value, attempts, available_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		job.ID,
		job.AuthorID,
		job.ReviewID,
		job.VoterID,
		voteValueArg(job.PreviousValue),
		string(job.NewValue),
		job.AvailableAt,
		job.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to enqueue score job",
			zap.Error(err),
			zap.Int64("review_id", job.ReviewID),
		)
		return fmt.Errorf("enqueue score job for review %d: %w", job.ReviewID, err)
	}

	return nil
}

func (r *scoreJobRepository) ClaimNext(ctx context.Context) (*entity.ScoreJob, error) {
	query := `
		SELECT id, author_id, review_id, voter_id, previous_value, new_value,
		       attempts, last_error, available_at, created_at
		FROM score_jobs
		WHERE processed_at IS NULL AND dead_at IS NULL AND available_at <= NOW()
		ORDER BY available_at, created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	var job entity.ScoreJob
	var previous *string
	var next string
	err := r.db.QueryRow(ctx, query).Scan(
		&job.ID,
		&job.AuthorID,
		&job.ReviewID,
		&job.VoterID,
		&previous,
		&next,
		&job.Attempts,
		&job.LastError,
		&job.AvailableAt,
		&job.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to claim score job", zap.Error(err))
		return nil, fmt.Errorf("claim score job: %w", err)
	}

	if previous != nil {
		v := entity.VoteValue(*previous)
		job.PreviousValue = &v
	}
	job.NewValue = entity.VoteValue(next)

	return &job, nil
}

func (r *scoreJobRepository) MarkProcessed(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE score_jobs SET processed_at = NOW() WHERE id = $1 AND processed_at IS NULL`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to mark score job processed", zap.Error(err), zap.String("job_id", id.String()))
		return false, fmt.Errorf("mark score job %s processed: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *scoreJobRepository) RecordFailure(ctx context.Context, id uuid.UUID, cause string, retryAt time.Time, maxAttempts int) (bool, error) {
	query := `
		UPDATE score_jobs
		SET attempts = attempts + 1,
		    last_error = $2,
		    available_at = $3,
		    dead_at = CASE WHEN attempts + 1 >= $4 THEN NOW() ELSE NULL END
		WHERE id = $1 AND processed_at IS NULL
		RETURNING dead_at IS NOT NULL
	`

	var dead bool
	err := r.db.QueryRow(ctx, query, id, cause, retryAt, maxAttempts).Scan(&dead)
	if errors.Is(err, pgx.ErrNoRows) {
		// processed by someone else in the meantime
		return false, nil
	}
	if err != nil {
		r.log.Error("Failed to record score job failure", zap.Error(err), zap.String("job_id", id.String()))
		return false, fmt.Errorf("record failure of score job %s: %w", id.String(), err)
	}

	return dead, nil
}

func (r *scoreJobRepository) CountPending(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM score_jobs WHERE processed_at IS NULL AND dead_at IS NULL`

	var count int64
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		r.log.Error("Failed to count pending score jobs", zap.Error(err))
		return 0, fmt.Errorf("count pending score jobs: %w", err)
	}

	return count, nil
}

func voteValueArg(v *entity.VoteValue) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
