package repository

import (
	"context"

	"reelvote/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// UnitOfWork runs fn against repositories bound to a single transaction.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx *Repository) error) error
}

type Repository struct {
	User     UserRepository
	Session  SessionRepository
	Review   ReviewRepository
	Vote     VoteRepository
	Score    ScoreRepository
	ScoreJob ScoreJobRepository

	db  database.PgxIface
	log *zap.Logger
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	r := bind(db, log)
	r.db = db
	return r
}

func bind(q database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		User:     NewUserRepository(q, log),
		Session:  NewSessionRepository(q, log),
		Review:   NewReviewRepository(q, log),
		Vote:     NewVoteRepository(q, log),
		Score:    NewScoreRepository(q, log),
		ScoreJob: NewScoreJobRepository(q, log),
		log:      log,
	}
}

// WithinTx implements UnitOfWork.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx *Repository) error) error {
	return database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(bind(tx, r.log))
	})
}
