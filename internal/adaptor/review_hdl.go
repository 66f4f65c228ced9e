package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"reelvote/internal/dto/request"
	"reelvote/internal/usecase"
	"reelvote/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	service usecase.ReviewService
	log     *zap.Logger
}

func NewReviewHandler(service usecase.ReviewService, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		log:     log.With(zap.String("handler", "review")),
	}
}

// CreateReview handles POST /api/reviews (protected)
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	review, err := h.service.CreateReview(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create review")
		return
	}

	utils.ResponseCreated(w, "Review submitted", review)
}

// GetReview handles GET /api/reviews/{id} (public)
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := utils.ParseInt64(chi.URLParam(r, "id"))
	if !ok {
		utils.ResponseBadRequest(w, "Invalid review ID", nil)
		return
	}

	review, err := h.service.GetReview(r.Context(), reviewID)
	if err != nil {
		handleServiceError(w, h.log, err, "get review")
		return
	}

	utils.ResponseSuccess(w, "success", review)
}

// ListReviews handles GET /api/reviews (public, status filter for moderators)
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := &request.ListReviewsRequest{
		PaginatedRequest: paginationFromQuery(r),
		AuthorEmail:      query.Get("author_email"),
	}
	errs := map[string]string{}

	if raw := query.Get("movie_id"); raw != "" {
		movieID, ok := utils.ParseInt64(raw)
		if !ok {
			errs["movie_id"] = "Must be a positive integer"
		}
		req.MovieID = &movieID
	}
	if raw := query.Get("author_id"); raw != "" {
		req.AuthorID = &raw
	}
	if raw := query.Get("status"); raw != "" {
		if !utils.IsModerator(r.Context()) {
			utils.ResponseForbidden(w, "Only moderators may filter by status")
			return
		}
		req.Status = &raw
	}
	if raw := query.Get("kind"); raw != "" {
		req.Kind = &raw
	}

	var err error
	if req.From, err = utils.ParseDate(query.Get("from")); err != nil {
		errs["from"] = "Must be a date (YYYY-MM-DD) or RFC3339 timestamp"
	}
	if req.To, err = utils.ParseDateEnd(query.Get("to")); err != nil {
		errs["to"] = "Must be a date (YYYY-MM-DD) or RFC3339 timestamp"
	}

	if len(errs) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", errs)
		return
	}

	reviews, err := h.service.ListReviews(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "list reviews")
		return
	}

	utils.ResponseSuccess(w, "success", reviews)
}

// ListMyReviews handles GET /api/user/reviews (protected)
func (h *ReviewHandler) ListMyReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	page := paginationFromQuery(r)
	reviews, err := h.service.ListMyReviews(r.Context(), userID, &page)
	if err != nil {
		handleServiceError(w, h.log, err, "list own reviews")
		return
	}

	utils.ResponseSuccess(w, "success", reviews)
}

// UpdateReview handles PUT /api/reviews/{id} (protected). Authors edit
// their content; only moderators may touch status and reject reason.
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	reviewID, ok := utils.ParseInt64(chi.URLParam(r, "id"))
	if !ok {
		utils.ResponseBadRequest(w, "Invalid review ID", nil)
		return
	}

	var req request.UpdateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	moderator := utils.IsModerator(r.Context())
	if !moderator && (req.Status != nil || req.RejectReason != nil) {
		utils.ResponseForbidden(w, "Only moderators may change review status")
		return
	}

	existing, err := h.service.GetReview(r.Context(), reviewID)
	if err != nil {
		handleServiceError(w, h.log, err, "update review")
		return
	}
	if !moderator && existing.Author.ID != userID.String() {
		h.log.Warn("Update of foreign review rejected",
			zap.Int64("review_id", reviewID),
			zap.String("user_id", userID.String()))
		utils.ResponseForbidden(w, "You can only edit your own reviews")
		return
	}

	review, err := h.service.UpdateReview(r.Context(), reviewID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update review")
		return
	}

	utils.ResponseSuccess(w, "Review updated", review)
}

// DeleteReview handles DELETE /api/reviews/{id} (protected, author or moderator)
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	reviewID, ok := utils.ParseInt64(chi.URLParam(r, "id"))
	if !ok {
		utils.ResponseBadRequest(w, "Invalid review ID", nil)
		return
	}

	// the body is optional
	var req request.DeleteReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	moderator := utils.IsModerator(r.Context())
	if !moderator {
		if req.RejectReason != nil {
			utils.ResponseForbidden(w, "Only moderators may give a reject reason")
			return
		}

		existing, err := h.service.GetReview(r.Context(), reviewID)
		if err != nil {
			handleServiceError(w, h.log, err, "delete review")
			return
		}
		if existing.Author.ID != userID.String() {
			utils.ResponseForbidden(w, "You can only delete your own reviews")
			return
		}
	}

	if _, err := h.service.DeleteReview(r.Context(), reviewID, req.RejectReason); err != nil {
		handleServiceError(w, h.log, err, "delete review")
		return
	}

	utils.ResponseSuccess(w, "Review deleted", nil)
}

// ApproveReview handles POST /api/reviews/{id}/approve (moderator)
func (h *ReviewHandler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := utils.ParseInt64(chi.URLParam(r, "id"))
	if !ok {
		utils.ResponseBadRequest(w, "Invalid review ID", nil)
		return
	}

	if _, err := h.service.ApproveReview(r.Context(), reviewID); err != nil {
		handleServiceError(w, h.log, err, "approve review")
		return
	}

	utils.ResponseSuccess(w, "Review released", nil)
}

func paginationFromQuery(r *http.Request) request.PaginatedRequest {
	query := r.URL.Query()
	return request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), utils.DefaultPerPage),
	}
}
