package wire

import (
	"reelvote/internal/adaptor"
	"reelvote/internal/data/repository"
	"reelvote/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireReview(
	r chi.Router,
	reviewHandler *adaptor.ReviewHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	// A session is optional here; moderators use it to filter by status
	r.With(middleware.OptionalSession(repo.Session, log)).Get("/api/reviews", reviewHandler.ListReviews)
	r.Get("/api/reviews/{id}", reviewHandler.GetReview)

	// ==================== PROTECTED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))

		r.Post("/api/reviews", reviewHandler.CreateReview)
		r.Get("/api/user/reviews", reviewHandler.ListMyReviews)

		// author edits content, moderator may also set status
		r.Put("/api/reviews/{id}", reviewHandler.UpdateReview)
		r.Delete("/api/reviews/{id}", reviewHandler.DeleteReview)

		// ==================== MODERATOR ROUTES ====================
		r.With(middleware.Moderator(log)).Post("/api/reviews/{id}/approve", reviewHandler.ApproveReview)
	})
}
