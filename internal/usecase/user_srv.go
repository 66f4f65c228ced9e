package usecase

import (
	"context"

	"reelvote/internal/data/repository"
	"reelvote/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*response.ProfileResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, log *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log.With(zap.String("service", "user")),
	}
}

func (us *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*response.ProfileResponse, error) {
	user, err := us.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, failure(us.log, "get profile", err, zap.String("user_id", userID.String()))
	}
	if user == nil {
		return nil, notFound("user %s not found", userID)
	}

	resp := response.ProfileToResponse(user)
	return &resp, nil
}
