package usecase

import (
	"context"
	"time"

	"reelvote/internal/data/entity"
	"reelvote/internal/data/repository"
	"reelvote/internal/dto/request"
	"reelvote/internal/dto/response"
	"reelvote/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VoteService interface {
	// Vote records the voter's fairness judgment and queues the score
	// change. Scores update asynchronously.
	Vote(ctx context.Context, voterID uuid.UUID, reviewID int64, req *request.VoteRequest) (*response.VoteAck, error)
	BatchVoteStatus(ctx context.Context, voterID uuid.UUID, req *request.BatchVoteStatusRequest) (map[int64]response.VoteStatus, error)
}

type voteService struct {
	repo *repository.Repository
	uow  repository.UnitOfWork
	log  *zap.Logger
	now  func() time.Time
}

func NewVoteService(repo *repository.Repository, uow repository.UnitOfWork, log *zap.Logger) VoteService {
	return &voteService{
		repo: repo,
		uow:  uow,
		log:  log.With(zap.String("service", "vote")),
		now:  time.Now,
	}
}

func (s *voteService) Vote(ctx context.Context, voterID uuid.UUID, reviewID int64, req *request.VoteRequest) (*response.VoteAck, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}
	value := entity.VoteValue(req.Value)

	var previous *entity.VoteValue
	err := s.uow.WithinTx(ctx, func(tx *repository.Repository) error {
		review, err := tx.Review.FindByID(ctx, reviewID)
		if err != nil {
			return err
		}
		if review == nil {
			return notFound("review %d not found", reviewID)
		}
		if review.UserID == voterID {
			return newError(KindForbidden, "authors cannot vote on their own review")
		}
		if review.Status == entity.ReviewStatusDeleted {
			return newError(KindInvalidState, "review %d is deleted", reviewID)
		}

		now := s.now()
		previous, err = tx.Vote.Upsert(ctx, &entity.Vote{
			BaseSerial: entity.BaseSerial{CreatedAt: now, UpdatedAt: now},
			VoterID:    voterID,
			ReviewID:   reviewID,
			Value:      value,
		})
		if err != nil {
			return err
		}

		return tx.ScoreJob.Enqueue(ctx, &entity.ScoreJob{
			BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
			VoteRecorded: entity.VoteRecorded{
				AuthorID:      review.UserID,
				ReviewID:      reviewID,
				VoterID:       voterID,
				PreviousValue: previous,
				NewValue:      value,
			},
			AvailableAt: now,
		})
	})
	if err != nil {
		if KindOf(err) == KindForbidden {
			s.log.Warn("Self vote rejected",
				zap.String("voter_id", voterID.String()),
				zap.Int64("review_id", reviewID),
			)
		}
		return nil, failure(s.log, "record vote", err,
			zap.String("voter_id", voterID.String()),
			zap.Int64("review_id", reviewID),
		)
	}

	fields := []zap.Field{
		zap.String("voter_id", voterID.String()),
		zap.Int64("review_id", reviewID),
		zap.String("value", req.Value),
	}
	if previous != nil {
		fields = append(fields, zap.String("previous_value", string(*previous)))
	}
	s.log.Info("Vote recorded", fields...)

	return &response.VoteAck{
		ReviewID: reviewID,
		Value:    req.Value,
		Accepted: true,
	}, nil
}

func (s *voteService) BatchVoteStatus(ctx context.Context, voterID uuid.UUID, req *request.BatchVoteStatusRequest) (map[int64]response.VoteStatus, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	values, err := s.repo.Vote.FindValuesForReviews(ctx, voterID, req.ReviewIDs)
	if err != nil {
		return nil, failure(s.log, "load vote status", err, zap.String("voter_id", voterID.String()))
	}

	result := make(map[int64]response.VoteStatus, len(req.ReviewIDs))
	for _, id := range req.ReviewIDs {
		status := response.VoteStatus{}
		if v, ok := values[id]; ok {
			value := string(v)
			status.HasVoted = true
			status.Value = &value
		}
		result[id] = status
	}

	return result, nil
}
