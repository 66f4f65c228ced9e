package repository

import (
	"context"
	"errors"
	"fmt"

	"reelvote/internal/data/entity"
	"reelvote/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type VoteRepository interface {
	FindByVoterAndReview(ctx context.Context, voterID uuid.UUID, reviewID int64) (*entity.Vote, error)
	// Upsert stores vote.Value for (VoterID, ReviewID) and returns the value
	// it replaced, nil for a first vote. Must run inside a transaction so the
	// row lock is held until commit.
	Upsert(ctx context.Context, vote *entity.Vote) (*entity.VoteValue, error)
	FindValuesForReviews(ctx context.Context, voterID uuid.UUID, reviewIDs []int64) (map[int64]entity.VoteValue, error)
}

type voteRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewVoteRepository(db database.Querier, log *zap.Logger) VoteRepository {
	return &voteRepository{
		db:  db,
		log: log.With(zap.String("repository", "vote")),
	}
}

func (r *voteRepository) FindByVoterAndReview(ctx context.Context, voterID uuid.UUID, reviewID int64) (*entity.Vote, error) {
	query := `
		SELECT id, voter_id, review_id, value, created_at, updated_at
		FROM review_votes
		WHERE voter_id = $1 AND review_id = $2
	`

	var vote entity.Vote
	err := r.db.QueryRow(ctx, query, voterID, reviewID).Scan(
		&vote.ID,
		&vote.VoterID,
		&vote.ReviewID,
		&vote.Value,
		&vote.CreatedAt,
		&vote.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find vote",
			zap.Error(err),
			zap.String("voter_id", voterID.String()),
			zap.Int64("review_id", reviewID),
		)
		return nil, fmt.Errorf("find vote of %s on review %d: %w", voterID.String(), reviewID, err)
	}

	return &vote, nil
}

func (r *voteRepository) Upsert(ctx context.Context, vote *entity.Vote) (*entity.VoteValue, error) {
	// Two passes at most: a concurrent first vote can win the insert, after
	// which the row exists and the locking select sees it.
	for attempt := 0; attempt < 2; attempt++ {
		previous, found, err := r.lockExisting(ctx, vote)
		if err != nil {
			return nil, err
		}
		if found {
			if err := r.updateValue(ctx, vote); err != nil {
				return nil, err
			}
			return previous, nil
		}

		inserted, err := r.insertIfAbsent(ctx, vote)
		if err != nil {
			return nil, err
		}
		if inserted {
			return nil, nil
		}
	}

	return nil, fmt.Errorf("upsert vote of %s on review %d: row contended", vote.VoterID.String(), vote.ReviewID)
}

func (r *voteRepository) lockExisting(ctx context.Context, vote *entity.Vote) (*entity.VoteValue, bool, error) {
	query := `
		SELECT id, value, created_at
		FROM review_votes
		WHERE voter_id = $1 AND review_id = $2
		FOR UPDATE
	`

	var raw string
	err := r.db.QueryRow(ctx, query, vote.VoterID, vote.ReviewID).Scan(&vote.ID, &raw, &vote.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		r.log.Error("Failed to lock vote row", zap.Error(err), zap.Int64("review_id", vote.ReviewID))
		return nil, false, fmt.Errorf("lock vote on review %d: %w", vote.ReviewID, err)
	}
	previous := entity.VoteValue(raw)
	return &previous, true, nil
}

func (r *voteRepository) updateValue(ctx context.Context, vote *entity.Vote) error {
	query := `UPDATE review_votes SET value = $2, updated_at = $3 WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, vote.ID, string(vote.Value), vote.UpdatedAt); err != nil {
		r.log.Error("Failed to update vote", zap.Error(err), zap.Int64("vote_id", vote.ID))
		return fmt.Errorf("update vote %d: %w", vote.ID, err)
	}
	return nil
}

func (r *voteRepository) insertIfAbsent(ctx context.Context, vote *entity.Vote) (bool, error) {
	query := `
		INSERT INTO review_votes (voter_id, review_id, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (voter_id, review_id) DO NOTHING
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		vote.VoterID,
		vote.ReviewID,
		string(vote.Value),
		vote.CreatedAt,
		vote.UpdatedAt,
	).Scan(&vote.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.log.Error("Failed to insert vote", zap.Error(err), zap.Int64("review_id", vote.ReviewID))
		return false, fmt.Errorf("insert vote on review %d: %w", vote.ReviewID, err)
	}
	return true, nil
}

func (r *voteRepository) FindValuesForReviews(ctx context.Context, voterID uuid.UUID, reviewIDs []int64) (map[int64]entity.VoteValue, error) {
	values := make(map[int64]entity.VoteValue, len(reviewIDs))
	if len(reviewIDs) == 0 {
		return values, nil
	}

	query := `
		SELECT review_id, value
		FROM review_votes
		WHERE voter_id = $1 AND review_id = ANY($2)
	`

	rows, err := r.db.Query(ctx, query, voterID, reviewIDs)
	if err != nil {
		r.log.Error("Failed to load vote status",
			zap.Error(err),
			zap.String("voter_id", voterID.String()),
			zap.Int("reviews", len(reviewIDs)),
		)
		return nil, fmt.Errorf("load votes of %s: %w", voterID.String(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var reviewID int64
		var value entity.VoteValue
		if err := rows.Scan(&reviewID, &value); err != nil {
			return nil, fmt.Errorf("scan vote row: %w", err)
		}
		values[reviewID] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote rows: %w", err)
	}

	return values, nil
}
