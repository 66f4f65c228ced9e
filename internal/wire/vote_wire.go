package wire

import (
	"reelvote/internal/adaptor"
	"reelvote/internal/data/repository"
	"reelvote/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireVote(
	r chi.Router,
	voteHandler *adaptor.VoteHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))

		r.Post("/api/reviews/{id}/votes", voteHandler.Vote)
		r.Post("/api/votes/status", voteHandler.BatchVoteStatus)
	})
}
