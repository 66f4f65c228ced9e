package usecase

import (
	"context"
	"fmt"

	"reelvote/internal/data/entity"
	"reelvote/internal/data/repository"

	"go.uber.org/zap"
)

// ScoreService turns a VoteRecorded event into ledger deltas.
type ScoreService interface {
	// Apply writes the event's delta to the author and the review through
	// ledger. A zero delta touches nothing. Errors are returned as-is so the
	// worker can retry.
	Apply(ctx context.Context, ledger repository.ScoreRepository, event entity.VoteRecorded) (int, error)
}

type scoreService struct {
	log *zap.Logger
}

func NewScoreService(log *zap.Logger) ScoreService {
	return &scoreService{
		log: log.With(zap.String("service", "score")),
	}
}

func (s *scoreService) Apply(ctx context.Context, ledger repository.ScoreRepository, event entity.VoteRecorded) (int, error) {
	delta := event.Delta()
	if delta == 0 {
		s.log.Debug("Vote produced no score change",
			zap.Int64("review_id", event.ReviewID),
			zap.String("voter_id", event.VoterID.String()),
		)
		return 0, nil
	}

	if err := ledger.ApplyDelta(ctx, entity.LedgerUser, event.AuthorID, delta); err != nil {
		return 0, fmt.Errorf("apply delta to author %s: %w", event.AuthorID, err)
	}
	if err := ledger.ApplyDelta(ctx, entity.LedgerReview, event.ReviewID, delta); err != nil {
		return 0, fmt.Errorf("apply delta to review %d: %w", event.ReviewID, err)
	}

	s.log.Info("Score delta applied",
		zap.Int64("review_id", event.ReviewID),
		zap.String("author_id", event.AuthorID.String()),
		zap.Int("delta", delta),
	)

	return delta, nil
}
