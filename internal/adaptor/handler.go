package adaptor

import (
	"reelvote/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Auth   *AuthHandler
	User   *UserHandler
	Review *ReviewHandler
	Vote   *VoteHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:   NewAuthHandler(service.Auth, log),
		User:   NewUserHandler(service.User, log),
		Review: NewReviewHandler(service.Review, log),
		Vote:   NewVoteHandler(service.Vote, log),
	}
}
