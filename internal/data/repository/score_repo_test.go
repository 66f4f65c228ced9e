package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"reelvote/internal/data/entity"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApplyDelta_IncrementsInPlace(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewScoreRepository(mock, zap.NewNop())
	authorID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET score = score + $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(-2, authorID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET score = score + $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(-2, int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.ApplyDelta(context.Background(), entity.LedgerUser, authorID, -2))
	require.NoError(t, repo.ApplyDelta(context.Background(), entity.LedgerReview, int64(7), -2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDelta_MissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewScoreRepository(mock, zap.NewNop())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE reviews SET score")).
		WithArgs(1, int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.ApplyDelta(context.Background(), entity.LedgerReview, int64(404), 1)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDelta_PropagatesExecError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewScoreRepository(mock, zap.NewNop())
	authorID := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET score")).
		WithArgs(1, authorID).
		WillReturnError(errors.New("connection reset"))

	err = repo.ApplyDelta(context.Background(), entity.LedgerUser, authorID, 1)
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDelta_UnknownLedger(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewScoreRepository(mock, zap.NewNop())
	assert.Error(t, repo.ApplyDelta(context.Background(), entity.LedgerKind("movie"), 1, 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}
