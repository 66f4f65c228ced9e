package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"reelvote/internal/data/entity"
	"reelvote/pkg/database"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ReviewFilter narrows List. Nil fields are not filtered on.
type ReviewFilter struct {
	MovieID     *int64
	AuthorID    *uuid.UUID
	Status      *entity.ReviewStatus
	Kind        *entity.ReviewKind
	From        *time.Time
	To          *time.Time
	AuthorEmail string

	// PublicOnly hides deleted reviews and freeform reviews that are not
	// released yet. Ignored when Status is set.
	PublicOnly bool

	Limit  int
	Offset int
}

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	FindByID(ctx context.Context, id int64) (*entity.Review, error)
	// FindByIDForUpdate reads the review and row-locks it until the
	// transaction ends. Transaction only.
	FindByIDForUpdate(ctx context.Context, id int64) (*entity.Review, error)
	FindDetailByID(ctx context.Context, id int64) (*entity.ReviewDetail, error)
	FindActiveByAuthorAndMovie(ctx context.Context, userID uuid.UUID, movieID int64) ([]*entity.Review, error)
	LockAuthorMovie(ctx context.Context, userID uuid.UUID, movieID int64) error
	Update(ctx context.Context, review *entity.Review) error
	// UpdateStatus moves the review to status only while its current status
	// is one of from. Returns ErrStatusChanged when the guard did not match.
	UpdateStatus(ctx context.Context, id int64, from []entity.ReviewStatus, status entity.ReviewStatus, rejectReason *string, updatedAt time.Time) error
	List(ctx context.Context, filter ReviewFilter) ([]*entity.ReviewDetail, int64, error)
}

type reviewRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewReviewRepository(db database.Querier, log *zap.Logger) ReviewRepository {
	return &reviewRepository{
		db:  db,
		log: log.With(zap.String("repository", "review")),
	}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var reviewColumns = []string{
	"r.id", "r.user_id", "r.movie_id", "r.status", "r.kind", "r.rating",
	"r.body", "r.tags", "r.reject_reason", "r.score", "r.created_at", "r.updated_at",
}

var reviewDetailColumns = append(append([]string{}, reviewColumns...), "u.username", "u.score")

func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	tags, err := encodeTags(review.Tags)
	if err != nil {
		return fmt.Errorf("encode review tags: %w", err)
	}

	query := `
		INSERT INTO reviews (user_id, movie_id, status, kind, rating, body, tags,
		                     score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9)
		RETURNING id
	`

	err = r.db.QueryRow(ctx, query,
		review.UserID,
		review.MovieID,
		string(review.Status),
		string(review.Kind),
		review.Rating,
		review.Body,
		tags,
		review.CreatedAt,
		review.UpdatedAt,
	).Scan(&review.ID)

	if err != nil {
		r.log.Error("Failed to create review",
			zap.Error(err),
			zap.String("user_id", review.UserID.String()),
			zap.Int64("movie_id", review.MovieID),
		)
		return fmt.Errorf("create review for movie %d by user %s: %w",
			review.MovieID, review.UserID.String(), err)
	}

	return nil
}

func (r *reviewRepository) FindByID(ctx context.Context, id int64) (*entity.Review, error) {
	return r.findByID(ctx, id, "")
}

func (r *reviewRepository) FindByIDForUpdate(ctx context.Context, id int64) (*entity.Review, error) {
	return r.findByID(ctx, id, "FOR UPDATE")
}

func (r *reviewRepository) findByID(ctx context.Context, id int64, lock string) (*entity.Review, error) {
	builder := psql.Select(reviewColumns...).
		From("reviews r").
		Where(sq.Eq{"r.id": id})
	if lock != "" {
		builder = builder.Suffix(lock)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find review query: %w", err)
	}

	var review entity.Review
	err = scanReview(r.db.QueryRow(ctx, query, args...), &review)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find review by ID", zap.Error(err), zap.Int64("review_id", id))
		return nil, fmt.Errorf("find review by ID %d: %w", id, err)
	}

	return &review, nil
}

func (r *reviewRepository) FindDetailByID(ctx context.Context, id int64) (*entity.ReviewDetail, error) {
	query, args, err := psql.Select(reviewDetailColumns...).
		From("reviews r").
		Join("users u ON u.id = r.user_id").
		Where(sq.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find review detail query: %w", err)
	}

	var detail entity.ReviewDetail
	err = scanReviewDetail(r.db.QueryRow(ctx, query, args...), &detail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find review detail", zap.Error(err), zap.Int64("review_id", id))
		return nil, fmt.Errorf("find review detail %d: %w", id, err)
	}

	return &detail, nil
}

func (r *reviewRepository) FindActiveByAuthorAndMovie(ctx context.Context, userID uuid.UUID, movieID int64) ([]*entity.Review, error) {
	query, args, err := psql.Select(reviewColumns...).
		From("reviews r").
		Where(sq.Eq{"r.user_id": userID.String(), "r.movie_id": movieID}).
		Where(sq.NotEq{"r.status": string(entity.ReviewStatusDeleted)}).
		OrderBy("r.created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active reviews query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to find active reviews",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.Int64("movie_id", movieID),
		)
		return nil, fmt.Errorf("find active reviews of user %s for movie %d: %w", userID.String(), movieID, err)
	}
	defer rows.Close()

	var reviews []*entity.Review
	for rows.Next() {
		var review entity.Review
		if err := scanReview(rows, &review); err != nil {
			r.log.Error("Failed to scan review row", zap.Error(err))
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, &review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

// LockAuthorMovie takes a transaction-scoped advisory lock on the
// (author, movie) pair so concurrent submissions are checked one at a time.
// Only meaningful inside a transaction.
func (r *reviewRepository) LockAuthorMovie(ctx context.Context, userID uuid.UUID, movieID int64) error {
	_, err := r.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, $2))`, userID.String(), movieID)
	if err != nil {
		r.log.Error("Failed to lock author/movie pair", zap.Error(err))
		return fmt.Errorf("lock reviews of user %s for movie %d: %w", userID.String(), movieID, err)
	}
	return nil
}

func (r *reviewRepository) Update(ctx context.Context, review *entity.Review) error {
	tags, err := encodeTags(review.Tags)
	if err != nil {
		return fmt.Errorf("encode review tags: %w", err)
	}

	// score is left alone here, it belongs to the score ledger. A deleted
	// review is never written back.
	query := `
		UPDATE reviews
		SET kind = $2, rating = $3, body = $4, tags = $5, status = $6,
		    reject_reason = $7, updated_at = $8
		WHERE id = $1 AND status <> $9
	`

	result, err := r.db.Exec(ctx, query,
		review.ID,
		string(review.Kind),
		review.Rating,
		review.Body,
		tags,
		string(review.Status),
		review.RejectReason,
		review.UpdatedAt,
		string(entity.ReviewStatusDeleted),
	)
	if err != nil {
		r.log.Error("Failed to update review", zap.Error(err), zap.Int64("review_id", review.ID))
		return fmt.Errorf("update review %d: %w", review.ID, err)
	}

	// reviews are never removed, so a miss means the row is deleted
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update review %d: %w", review.ID, ErrStatusChanged)
	}

	return nil
}

func (r *reviewRepository) UpdateStatus(ctx context.Context, id int64, from []entity.ReviewStatus, status entity.ReviewStatus, rejectReason *string, updatedAt time.Time) error {
	query := `
		UPDATE reviews SET status = $2, reject_reason = $3, updated_at = $4
		WHERE id = $1 AND status = ANY($5)
	`

	allowed := make([]string, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}

	result, err := r.db.Exec(ctx, query, id, string(status), rejectReason, updatedAt, allowed)
	if err != nil {
		r.log.Error("Failed to update review status",
			zap.Error(err),
			zap.Int64("review_id", id),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update review %d status: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update review %d status to %s: %w", id, status, ErrStatusChanged)
	}

	r.log.Info("Review status changed", zap.Int64("review_id", id), zap.String("status", string(status)))
	return nil
}

func (r *reviewRepository) List(ctx context.Context, filter ReviewFilter) ([]*entity.ReviewDetail, int64, error) {
	where := listConditions(filter)

	countQuery, countArgs, err := psql.Select("COUNT(*)").
		From("reviews r").
		Join("users u ON u.id = r.user_id").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count reviews query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		r.log.Error("Failed to count reviews", zap.Error(err))
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	listQuery, listArgs, err := psql.Select(reviewDetailColumns...).
		From("reviews r").
		Join("users u ON u.id = r.user_id").
		Where(where).
		OrderBy("r.created_at DESC", "r.id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reviews query: %w", err)
	}

	rows, err := r.db.Query(ctx, listQuery, listArgs...)
	if err != nil {
		r.log.Error("Failed to list reviews",
			zap.Error(err),
			zap.Int("limit", filter.Limit),
			zap.Int("offset", filter.Offset),
		)
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]*entity.ReviewDetail, 0, filter.Limit)
	for rows.Next() {
		var detail entity.ReviewDetail
		if err := scanReviewDetail(rows, &detail); err != nil {
			r.log.Error("Failed to scan review row", zap.Error(err))
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, &detail)
	}
	if err := rows.Err(); err != nil {
		r.log.Error("Rows iteration error", zap.Error(err))
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	r.log.Debug("Reviews listed",
		zap.Int("count", len(reviews)),
		zap.Int64("total", total),
	)

	return reviews, total, nil
}

func listConditions(f ReviewFilter) sq.And {
	where := sq.And{}

	if f.MovieID != nil {
		where = append(where, sq.Eq{"r.movie_id": *f.MovieID})
	}
	if f.AuthorID != nil {
		where = append(where, sq.Eq{"r.user_id": f.AuthorID.String()})
	}
	if f.Kind != nil {
		where = append(where, sq.Eq{"r.kind": string(*f.Kind)})
	}
	if f.From != nil {
		where = append(where, sq.GtOrEq{"r.created_at": *f.From})
	}
	if f.To != nil {
		where = append(where, sq.Lt{"r.created_at": *f.To})
	}
	if f.AuthorEmail != "" {
		where = append(where, sq.ILike{"u.email": "%" + escapeLike(f.AuthorEmail) + "%"})
	}

	switch {
	case f.Status != nil:
		where = append(where, sq.Eq{"r.status": string(*f.Status)})
	case f.PublicOnly:
		// structured reviews publish immediately, freeform waits for approval
		where = append(where,
			sq.NotEq{"r.status": string(entity.ReviewStatusDeleted)},
			sq.Or{
				sq.Eq{"r.kind": string(entity.ReviewKindTags)},
				sq.Eq{"r.status": string(entity.ReviewStatusReleased)},
			},
		)
	}

	return where
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}

func encodeTags(tags []entity.TagRating) ([]byte, error) {
	if tags == nil {
		return nil, nil
	}
	return json.Marshal(tags)
}

func scanReview(row pgx.Row, review *entity.Review) error {
	var tags []byte
	if err := row.Scan(
		&review.ID,
		&review.UserID,
		&review.MovieID,
		&review.Status,
		&review.Kind,
		&review.Rating,
		&review.Body,
		&tags,
		&review.RejectReason,
		&review.Score,
		&review.CreatedAt,
		&review.UpdatedAt,
	); err != nil {
		return err
	}
	return decodeTags(tags, review)
}

func scanReviewDetail(row pgx.Row, detail *entity.ReviewDetail) error {
	var tags []byte
	r := &detail.Review
	if err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.MovieID,
		&r.Status,
		&r.Kind,
		&r.Rating,
		&r.Body,
		&tags,
		&r.RejectReason,
		&r.Score,
		&r.CreatedAt,
		&r.UpdatedAt,
		&detail.Author.Username,
		&detail.Author.Score,
	); err != nil {
		return err
	}
	detail.Author.ID = r.UserID
	return decodeTags(tags, r)
}

func decodeTags(raw []byte, review *entity.Review) error {
	if len(raw) == 0 {
		review.Tags = nil
		return nil
	}
	if err := json.Unmarshal(raw, &review.Tags); err != nil {
		return fmt.Errorf("decode review tags: %w", err)
	}
	return nil
}
