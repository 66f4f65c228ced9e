package usecase

import (
	"reelvote/internal/data/repository"
	"reelvote/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Auth        AuthService
	User        UserService
	Review      ReviewService
	Vote        VoteService
	Score       ScoreService
	ScoreWorker *ScoreWorker
}

// NewService wires every service on repo. cache may be nil.
func NewService(repo *repository.Repository, cache ReviewCache, config *utils.Config, log *zap.Logger) *Service {
	score := NewScoreService(log)

	return &Service{
		Auth:        NewAuthService(repo, config, log),
		User:        NewUserService(repo.User, log),
		Review:      NewReviewService(repo, repo, cache, log),
		Vote:        NewVoteService(repo, repo, log),
		Score:       score,
		ScoreWorker: NewScoreWorker(repo, repo, score, cache, config.Worker, log),
	}
}
