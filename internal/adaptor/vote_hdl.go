package adaptor

import (
	"encoding/json"
	"net/http"

	"reelvote/internal/dto/request"
	"reelvote/internal/usecase"
	"reelvote/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type VoteHandler struct {
	service usecase.VoteService
	log     *zap.Logger
}

func NewVoteHandler(service usecase.VoteService, log *zap.Logger) *VoteHandler {
	return &VoteHandler{
		service: service,
		log:     log.With(zap.String("handler", "vote")),
	}
}

// Vote handles POST /api/reviews/{id}/votes (protected). The score update
// is applied in the background, hence 202.
func (h *VoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
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

	var req request.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	ack, err := h.service.Vote(r.Context(), userID, reviewID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "vote")
		return
	}

	utils.ResponseAccepted(w, "Vote recorded", ack)
}

// BatchVoteStatus handles POST /api/votes/status (protected)
func (h *VoteHandler) BatchVoteStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.BatchVoteStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	status, err := h.service.BatchVoteStatus(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "vote status")
		return
	}

	utils.ResponseSuccess(w, "success", status)
}
