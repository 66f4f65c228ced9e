package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"reelvote/internal/data/entity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestListConditions_PublicVisibility(t *testing.T) {
	sql, args, err := listConditions(ReviewFilter{PublicOnly: true}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "r.status <> ?")
	assert.Contains(t, sql, "(r.kind = ? OR r.status = ?)")
	assert.Equal(t, []any{"deleted", "tags", "released"}, args)
}

func TestListConditions_StatusFilterReplacesVisibility(t *testing.T) {
	status := entity.ReviewStatusPending
	sql, args, err := listConditions(ReviewFilter{PublicOnly: true, Status: &status}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "r.status = ?")
	assert.NotContains(t, sql, "r.kind")
	assert.Equal(t, []any{"pending"}, args)
}

func TestListConditions_AllFilters(t *testing.T) {
	movieID := int64(42)
	authorID := uuid.New()
	kind := entity.ReviewKindFreeform

	sql, args, err := listConditions(ReviewFilter{
		MovieID:     &movieID,
		AuthorID:    &authorID,
		Kind:        &kind,
		AuthorEmail: "50%_off",
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "r.movie_id = ?")
	assert.Contains(t, sql, "r.user_id = ?")
	assert.Contains(t, sql, "r.kind = ?")
	assert.Contains(t, sql, "u.email ILIKE ?")
	assert.Equal(t, []any{movieID, authorID.String(), "freeform", `%50\%\_off%`}, args)
}

func TestLockAuthorMovie(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReviewRepository(mock, zap.NewNop())
	userID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtextextended($1, $2))")).
		WithArgs(userID.String(), int64(42)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, repo.LockAuthorMovie(context.Background(), userID, 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_GuardsSourceStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReviewRepository(mock, zap.NewNop())
	from := []entity.ReviewStatus{entity.ReviewStatusPending}

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = ANY($5)")).
		WithArgs(int64(5), "released", (*string)(nil), pgxmock.AnyArg(), []string{"pending"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = ANY($5)")).
		WithArgs(int64(5), "released", (*string)(nil), pgxmock.AnyArg(), []string{"pending"}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.UpdateStatus(context.Background(), 5, from, entity.ReviewStatusReleased, nil, time.Now()))

	// deleted in the meantime
	err = repo.UpdateStatus(context.Background(), 5, from, entity.ReviewStatusReleased, nil, time.Now())
	assert.ErrorIs(t, err, ErrStatusChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NeverRewritesDeleted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReviewRepository(mock, zap.NewNop())
	body := "edited"
	review := &entity.Review{
		BaseSerial: entity.BaseSerial{ID: 5, UpdatedAt: time.Now()},
		Kind:       entity.ReviewKindFreeform,
		Rating:     6,
		Body:       &body,
		Status:     entity.ReviewStatusPending,
	}

	anyArg := pgxmock.AnyArg()
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status <> $9")).
		WithArgs(int64(5), anyArg, anyArg, anyArg, anyArg, anyArg, anyArg, anyArg, "deleted").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.Update(context.Background(), review)
	assert.ErrorIs(t, err, ErrStatusChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDForUpdate_LocksRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewReviewRepository(mock, zap.NewNop())

	mock.ExpectQuery(regexp.QuoteMeta("FROM reviews r WHERE r.id = $1 FOR UPDATE")).
		WithArgs(int64(5)).
		WillReturnError(pgx.ErrNoRows)

	review, err := repo.FindByIDForUpdate(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, review)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTagsRoundTrip(t *testing.T) {
	raw, err := encodeTags([]entity.TagRating{{TagID: 3, Rating: 9}})
	require.NoError(t, err)

	var review entity.Review
	require.NoError(t, decodeTags(raw, &review))
	assert.Equal(t, []entity.TagRating{{TagID: 3, Rating: 9}}, review.Tags)

	raw, err = encodeTags(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)
}
