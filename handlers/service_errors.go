package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/upb/it-assistant/services"
	"github.com/upb/it-assistant/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses.
// Deadline errors become 504 so the status matches the one chi's Timeout
// middleware would send; its own late WriteHeader is dropped by the wrapped
// response writer installed in RequestLogger.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	message := services.GetErrorMessage(err)

	var writeErr error
	switch {
	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, message, details)

	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, message)

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, message, details)

	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("request deadline exceeded", zap.Error(err))
		writeErr = utils.WriteGatewayTimeout(w, message)

	case services.IsExternalError(err):
		// The model service failed; the cause stays in the logs.
		logger.Warn("upstream model failure", zap.Error(err))
		writeErr = utils.WriteBadGateway(w, message, details)

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing.
// message replaces the generic "Validation failed" text when set.
func HandleValidationError(w http.ResponseWriter, err error, message string, logger *zap.Logger) {
	if message == "" {
		message = err.Error()
	}

	var details map[string]interface{}
	if fields := utils.GetValidationFields(err); len(fields) > 0 {
		details = make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
	}

	if err := utils.WriteBadRequest(w, message, details); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
