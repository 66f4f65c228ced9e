package adaptor

import (
	"errors"
	"net/http"

	"reelvote/internal/usecase"
	"reelvote/pkg/utils"

	"go.uber.org/zap"
)

// handleServiceError maps a service error kind onto the response envelope.
// Unexpected failures never leak their cause to the client.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var svcErr *usecase.Error
	if !errors.As(err, &svcErr) {
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	switch svcErr.Kind {
	case usecase.KindValidation:
		log.Warn(operation+" validation failed", zap.Any("fields", svcErr.Fields))
		utils.ResponseBadRequest(w, "Validation failed", svcErr.Fields)

	case usecase.KindNotFound:
		utils.ResponseNotFound(w, svcErr.Message)

	case usecase.KindConflict:
		log.Warn(operation+" failed - conflict", zap.String("reason", svcErr.Message))
		utils.ResponseConflict(w, svcErr.Message)

	case usecase.KindInvalidState:
		log.Warn(operation+" failed - invalid state", zap.String("reason", svcErr.Message))
		utils.ResponseConflict(w, svcErr.Message)

	case usecase.KindLimitExceeded:
		log.Info(operation+" failed - limit exceeded", zap.String("reason", svcErr.Message))
		utils.ResponseTooManyRequests(w, svcErr.Message)

	case usecase.KindForbidden:
		log.Warn(operation+" failed - forbidden", zap.String("reason", svcErr.Message))
		utils.ResponseForbidden(w, svcErr.Message)

	case usecase.KindUnauthorized:
		utils.ResponseUnauthorized(w, svcErr.Message)

	default:
		log.Error("Failed to "+operation, zap.Error(svcErr), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
