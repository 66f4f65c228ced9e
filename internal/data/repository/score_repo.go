package repository

import (
	"context"
	"fmt"

	"reelvote/internal/data/entity"
	"reelvote/pkg/database"

	"go.uber.org/zap"
)

// ScoreRepository is the score ledger. It is the only writer of
// users.score and reviews.score.
type ScoreRepository interface {
	// ApplyDelta adds delta to the score of one ledger row in a single
	// statement; the increment happens inside the database so concurrent
	// deltas never overwrite each other.
	ApplyDelta(ctx context.Context, kind entity.LedgerKind, id any, delta int) error
}

type scoreRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewScoreRepository(db database.Querier, log *zap.Logger) ScoreRepository {
	return &scoreRepository{
		db:  db,
		log: log.With(zap.String("repository", "score")),
	}
}

var ledgerStatements = map[entity.LedgerKind]string{
	entity.LedgerUser:   `UPDATE users SET score = score + $1, updated_at = NOW() WHERE id = $2`,
	entity.LedgerReview: `UPDATE reviews SET score = score + $1, updated_at = NOW() WHERE id = $2`,
}

func (r *scoreRepository) ApplyDelta(ctx context.Context, kind entity.LedgerKind, id any, delta int) error {
	query, ok := ledgerStatements[kind]
	if !ok {
		return fmt.Errorf("unknown ledger kind %q", kind)
	}

	result, err := r.db.Exec(ctx, query, delta, id)
	if err != nil {
		r.log.Error("Failed to apply score delta",
			zap.Error(err),
			zap.String("ledger", string(kind)),
			zap.Any("id", id),
			zap.Int("delta", delta),
		)
		return fmt.Errorf("apply delta %d to %s %v: %w", delta, kind, id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("apply delta to %s %v: %w", kind, id, ErrNotFound)
	}

	return nil
}
