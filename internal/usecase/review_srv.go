package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"reelvote/internal/data/entity"
	"reelvote/internal/data/repository"
	"reelvote/internal/dto/request"
	"reelvote/internal/dto/response"
	"reelvote/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReviewCache is the optional read-through cache for hydrated reviews.
type ReviewCache interface {
	Get(ctx context.Context, id int64) (*entity.ReviewDetail, error)
	Set(ctx context.Context, detail *entity.ReviewDetail) error
	Invalidate(ctx context.Context, id int64) error
}

type ReviewService interface {
	CreateReview(ctx context.Context, authorID uuid.UUID, req *request.CreateReviewRequest) (*response.ReviewResponse, error)
	UpdateReview(ctx context.Context, reviewID int64, req *request.UpdateReviewRequest) (*response.ReviewResponse, error)
	DeleteReview(ctx context.Context, reviewID int64, rejectReason *string) (bool, error)
	ApproveReview(ctx context.Context, reviewID int64) (bool, error)
	GetReview(ctx context.Context, reviewID int64) (*response.ReviewResponse, error)

	// ListReviews applies the public visibility rule unless a status filter
	// is given.
	ListReviews(ctx context.Context, req *request.ListReviewsRequest) (*response.PaginatedResponse[response.ReviewResponse], error)
	// ListMyReviews returns every review of the author regardless of status.
	ListMyReviews(ctx context.Context, authorID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error)
}

type reviewService struct {
	repo  *repository.Repository
	uow   repository.UnitOfWork
	cache ReviewCache
	log   *zap.Logger
	now   func() time.Time
}

func NewReviewService(repo *repository.Repository, uow repository.UnitOfWork, cache ReviewCache, log *zap.Logger) ReviewService {
	return &reviewService{
		repo:  repo,
		uow:   uow,
		cache: cache,
		log:   log.With(zap.String("service", "review")),
		now:   time.Now,
	}
}

func (s *reviewService) CreateReview(ctx context.Context, authorID uuid.UUID, req *request.CreateReviewRequest) (*response.ReviewResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create review validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	kind := entity.ReviewKind(req.Kind)
	body, tags, err := normalizeContent(kind, req.Rating, req.Body, req.Tags)
	if err != nil {
		return nil, err
	}

	now := s.now()
	review := &entity.Review{
		BaseSerial: entity.BaseSerial{
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:  authorID,
		MovieID: req.MovieID,
		Status:  entity.ReviewStatusPending,
		Kind:    kind,
		Rating:  req.Rating,
		Body:    body,
		Tags:    tags,
	}

	err = s.uow.WithinTx(ctx, func(tx *repository.Repository) error {
		if err := tx.Review.LockAuthorMovie(ctx, authorID, req.MovieID); err != nil {
			return err
		}

		active, err := tx.Review.FindActiveByAuthorAndMovie(ctx, authorID, req.MovieID)
		if err != nil {
			return err
		}
		if err := checkSubmissionLimit(active, kind); err != nil {
			return err
		}

		return tx.Review.Create(ctx, review)
	})
	if err != nil {
		if KindOf(err) == KindLimitExceeded {
			s.log.Info("Review submission limit reached",
				zap.String("user_id", authorID.String()),
				zap.Int64("movie_id", req.MovieID),
				zap.String("kind", req.Kind),
			)
		}
		return nil, failure(s.log, "create review", err,
			zap.String("user_id", authorID.String()),
			zap.Int64("movie_id", req.MovieID),
		)
	}

	s.log.Info("Review created",
		zap.Int64("review_id", review.ID),
		zap.String("user_id", authorID.String()),
		zap.Int64("movie_id", req.MovieID),
		zap.String("kind", req.Kind),
		zap.Float64("rating", req.Rating),
	)

	return s.hydrate(ctx, review.ID, "create review")
}

func (s *reviewService) UpdateReview(ctx context.Context, reviewID int64, req *request.UpdateReviewRequest) (*response.ReviewResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update review validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	kind := entity.ReviewKind(req.Kind)
	body, tags, err := normalizeContent(kind, req.Rating, req.Body, req.Tags)
	if err != nil {
		return nil, err
	}

	err = s.uow.WithinTx(ctx, func(tx *repository.Repository) error {
		review, err := tx.Review.FindByIDForUpdate(ctx, reviewID)
		if err != nil {
			return err
		}
		if review == nil {
			return notFound("review %d not found", reviewID)
		}
		if review.Status == entity.ReviewStatusDeleted {
			return newError(KindInvalidState, "review %d is deleted", reviewID)
		}

		status := review.Status
		if req.Status != nil {
			next := entity.ReviewStatus(*req.Status)
			if next != status && !status.CanTransitionTo(next) {
				return newError(KindInvalidState, "cannot move review %d from %s to %s", reviewID, status, next)
			}
			status = next
		}

		if kind != review.Kind {
			if err := tx.Review.LockAuthorMovie(ctx, review.UserID, review.MovieID); err != nil {
				return err
			}
			active, err := tx.Review.FindActiveByAuthorAndMovie(ctx, review.UserID, review.MovieID)
			if err != nil {
				return err
			}
			for _, other := range active {
				if other.ID != review.ID && other.Kind == kind {
					return newError(KindConflict, "author already has a %s review for movie %d", kind, review.MovieID)
				}
			}
		}

		review.Kind = kind
		review.Rating = req.Rating
		review.Body = body
		review.Tags = tags
		review.Status = status
		if status == entity.ReviewStatusDeleted {
			if req.RejectReason != nil {
				review.RejectReason = req.RejectReason
			}
		} else {
			review.RejectReason = nil
		}
		review.UpdatedAt = s.now()

		return statusMoved(reviewID, tx.Review.Update(ctx, review))
	})
	if err != nil {
		return nil, failure(s.log, "update review", err, zap.Int64("review_id", reviewID))
	}

	s.invalidate(ctx, reviewID)

	s.log.Info("Review updated",
		zap.Int64("review_id", reviewID),
		zap.String("kind", req.Kind),
		zap.Stringp("status", req.Status),
	)

	return s.hydrate(ctx, reviewID, "update review")
}

func (s *reviewService) DeleteReview(ctx context.Context, reviewID int64, rejectReason *string) (bool, error) {
	var author uuid.UUID
	alreadyDeleted := false

	err := s.uow.WithinTx(ctx, func(tx *repository.Repository) error {
		review, err := tx.Review.FindByIDForUpdate(ctx, reviewID)
		if err != nil {
			return err
		}
		if review == nil {
			return notFound("review %d not found", reviewID)
		}
		author = review.UserID

		if review.Status == entity.ReviewStatusDeleted {
			alreadyDeleted = true
			return nil
		}

		err = tx.Review.UpdateStatus(ctx, reviewID,
			[]entity.ReviewStatus{entity.ReviewStatusPending, entity.ReviewStatusReleased},
			entity.ReviewStatusDeleted, rejectReason, s.now())
		if errors.Is(err, repository.ErrStatusChanged) {
			// every live status is allowed, so only a finished delete misses
			alreadyDeleted = true
			return nil
		}
		return err
	})
	if err != nil {
		return false, failure(s.log, "delete review", err, zap.Int64("review_id", reviewID))
	}

	if alreadyDeleted {
		s.log.Debug("Review already deleted", zap.Int64("review_id", reviewID))
		return true, nil
	}

	s.invalidate(ctx, reviewID)

	s.log.Info("Review deleted",
		zap.Int64("review_id", reviewID),
		zap.String("user_id", author.String()),
		zap.Bool("with_reason", rejectReason != nil),
	)

	return true, nil
}

func (s *reviewService) ApproveReview(ctx context.Context, reviewID int64) (bool, error) {
	err := s.uow.WithinTx(ctx, func(tx *repository.Repository) error {
		review, err := tx.Review.FindByIDForUpdate(ctx, reviewID)
		if err != nil {
			return err
		}
		if review == nil {
			return notFound("review %d not found", reviewID)
		}

		if !review.Status.CanTransitionTo(entity.ReviewStatusReleased) {
			return newError(KindInvalidState, "review %d is %s and cannot be approved", reviewID, review.Status)
		}

		return statusMoved(reviewID, tx.Review.UpdateStatus(ctx, reviewID,
			[]entity.ReviewStatus{entity.ReviewStatusPending},
			entity.ReviewStatusReleased, nil, s.now()))
	})
	if err != nil {
		return false, failure(s.log, "approve review", err, zap.Int64("review_id", reviewID))
	}

	s.invalidate(ctx, reviewID)

	s.log.Info("Review approved", zap.Int64("review_id", reviewID))
	return true, nil
}

// statusMoved reports a lost race on the review status as InvalidState.
func statusMoved(reviewID int64, err error) error {
	if errors.Is(err, repository.ErrStatusChanged) {
		return newError(KindInvalidState, "review %d changed status, reload and retry", reviewID)
	}
	return err
}

func (s *reviewService) GetReview(ctx context.Context, reviewID int64) (*response.ReviewResponse, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, reviewID)
		if err != nil {
			s.log.Warn("Review cache read failed", zap.Error(err), zap.Int64("review_id", reviewID))
		}
		if cached != nil {
			detail := *cached
			s.refreshAuthorScore(ctx, &detail)
			resp := response.ReviewToResponse(&detail)
			return &resp, nil
		}
	}

	detail, err := s.repo.Review.FindDetailByID(ctx, reviewID)
	if err != nil {
		return nil, failure(s.log, "get review", err, zap.Int64("review_id", reviewID))
	}
	if detail == nil {
		return nil, notFound("review %d not found", reviewID)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, detail); err != nil {
			s.log.Warn("Review cache write failed", zap.Error(err), zap.Int64("review_id", reviewID))
		}
	}

	resp := response.ReviewToResponse(detail)
	return &resp, nil
}

// refreshAuthorScore replaces the cached author score with the live one.
// The score worker only invalidates the voted review, while the author's
// score shows on every review they wrote.
func (s *reviewService) refreshAuthorScore(ctx context.Context, detail *entity.ReviewDetail) {
	author, err := s.repo.User.FindByID(ctx, detail.Author.ID)
	if err != nil {
		s.log.Warn("Author score refresh failed, serving cached value",
			zap.Error(err),
			zap.Int64("review_id", detail.ID),
		)
		return
	}
	if author != nil {
		detail.Author.Score = author.Score
	}
}

func (s *reviewService) ListReviews(ctx context.Context, req *request.ListReviewsRequest) (*response.PaginatedResponse[response.ReviewResponse], error) {
	filter, err := buildListFilter(req)
	if err != nil {
		return nil, err
	}

	return s.list(ctx, filter, req.PaginatedRequest)
}

func (s *reviewService) ListMyReviews(ctx context.Context, authorID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs)
	}

	filter := repository.ReviewFilter{AuthorID: &authorID}
	return s.list(ctx, filter, *req)
}

func (s *reviewService) list(ctx context.Context, filter repository.ReviewFilter, page request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error) {
	filter.Limit = page.Limit()
	filter.Offset = page.Offset()

	reviews, total, err := s.repo.Review.List(ctx, filter)
	if err != nil {
		return nil, failure(s.log, "list reviews", err,
			zap.Int("page", page.Page),
			zap.Int("per_page", page.PerPage),
		)
	}

	items := make([]response.ReviewResponse, len(reviews))
	for i, detail := range reviews {
		items[i] = response.ReviewToResponse(detail)
	}

	s.log.Debug("Reviews retrieved",
		zap.Int("count", len(items)),
		zap.Int64("total", total),
		zap.Int("page", page.Page),
		zap.Int("per_page", page.PerPage),
	)

	return response.NewPaginatedResponse(items, page.Page, filter.Limit, total), nil
}

func (s *reviewService) hydrate(ctx context.Context, reviewID int64, op string) (*response.ReviewResponse, error) {
	detail, err := s.repo.Review.FindDetailByID(ctx, reviewID)
	if err != nil {
		return nil, failure(s.log, op, err, zap.Int64("review_id", reviewID))
	}
	if detail == nil {
		return nil, notFound("review %d not found", reviewID)
	}
	resp := response.ReviewToResponse(detail)
	return &resp, nil
}

func (s *reviewService) invalidate(ctx context.Context, reviewID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, reviewID); err != nil {
		s.log.Warn("Review cache invalidate failed", zap.Error(err), zap.Int64("review_id", reviewID))
	}
}

// ==================== RULES ====================

// normalizeContent checks the rating and that the populated content matches
// kind. Blank bodies count as absent.
func normalizeContent(kind entity.ReviewKind, rating float64, body *string, tags []request.TagRatingRequest) (*string, []entity.TagRating, error) {
	if !kind.Valid() {
		return nil, nil, fieldError("kind", "Must be one of: tags, freeform")
	}
	if math.IsNaN(rating) || rating < entity.MinReviewRating || rating > entity.MaxReviewRating {
		return nil, nil, fieldError("rating", "Must be between 1 and 10")
	}

	if body != nil {
		trimmed := strings.TrimSpace(*body)
		if trimmed == "" {
			body = nil
		} else {
			body = &trimmed
		}
	}

	switch kind {
	case entity.ReviewKindFreeform:
		if body == nil {
			return nil, nil, fieldError("body", "Freeform reviews need a body")
		}
		if len(tags) > 0 {
			return nil, nil, fieldError("tags", "Freeform reviews cannot carry tags")
		}
		return body, nil, nil

	default:
		if body != nil {
			return nil, nil, fieldError("body", "Tag reviews cannot carry a body")
		}
		if len(tags) == 0 {
			return nil, nil, fieldError("tags", "Tag reviews need at least one tag")
		}

		seen := make(map[int]struct{}, len(tags))
		out := make([]entity.TagRating, len(tags))
		for i, t := range tags {
			if t.Rating < entity.MinTagRating || t.Rating > entity.MaxTagRating {
				return nil, nil, fieldError("tags", "Tag ratings must be between 1 and 10")
			}
			if _, dup := seen[t.TagID]; dup {
				return nil, nil, fieldError("tags", "Each tag may appear once")
			}
			seen[t.TagID] = struct{}{}
			out[i] = entity.TagRating{TagID: t.TagID, Rating: t.Rating}
		}
		return nil, out, nil
	}
}

// checkSubmissionLimit enforces at most two live reviews per author and
// movie, one of each kind.
func checkSubmissionLimit(active []*entity.Review, kind entity.ReviewKind) error {
	if len(active) >= entity.MaxActiveReviewsPerMovie {
		return newError(KindLimitExceeded, "at most %d reviews per movie", entity.MaxActiveReviewsPerMovie)
	}
	for _, r := range active {
		if r.Kind == kind {
			return newError(KindLimitExceeded, "a %s review for this movie already exists", kind)
		}
	}
	return nil
}

func buildListFilter(req *request.ListReviewsRequest) (repository.ReviewFilter, error) {
	filter := repository.ReviewFilter{PublicOnly: true}

	if errs := utils.ValidateStruct(req.PaginatedRequest); len(errs) > 0 {
		return filter, validationError(errs)
	}

	filter.MovieID = req.MovieID

	if req.AuthorID != nil {
		id, err := uuid.Parse(*req.AuthorID)
		if err != nil {
			return filter, fieldError("author_id", "Must be a valid UUID")
		}
		filter.AuthorID = &id
	}

	if req.Status != nil {
		status := entity.ReviewStatus(*req.Status)
		if !status.Valid() {
			return filter, fieldError("status", "Must be one of: pending, released, deleted")
		}
		filter.Status = &status
	}

	if req.Kind != nil {
		kind := entity.ReviewKind(*req.Kind)
		if !kind.Valid() {
			return filter, fieldError("kind", "Must be one of: tags, freeform")
		}
		filter.Kind = &kind
	}

	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return filter, fieldError("from", "Must not be after to")
	}
	filter.From = req.From
	filter.To = req.To
	filter.AuthorEmail = strings.TrimSpace(req.AuthorEmail)

	return filter, nil
}
