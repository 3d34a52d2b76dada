package handlers

import (
	"fmt"
	"net/http"

	"github.com/upb/it-assistant/internal/observability"
	"github.com/upb/it-assistant/utils"
	"go.uber.org/zap"
)

// FeedbackRequest is the body of POST /feedback
type FeedbackRequest struct {
	ConversationID string `json:"conversation_id" validate:"required,notblank"`
	Feedback       int    `json:"feedback" validate:"oneof=-1 1"`
}

// FeedbackHandler records user feedback on answers
type FeedbackHandler struct {
	service ConversationService
	logger  *zap.Logger
}

// NewFeedbackHandler creates a new FeedbackHandler
func NewFeedbackHandler(service ConversationService, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
		logger:  logger,
	}
}

// HandleFeedback handles POST /feedback
func (h *FeedbackHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.WithRequest(ctx, h.logger)

	var req FeedbackRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid input", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, "Invalid input", logger)
		return
	}

	fb, err := h.service.SubmitFeedback(ctx, req.ConversationID, req.Feedback)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("feedback recorded",
		zap.String("conversation_id", fb.ConversationID),
		zap.Int("feedback", fb.Value))

	msg := fmt.Sprintf("Feedback received for conversation %s: %d", fb.ConversationID, fb.Value)
	if err := utils.WriteMessage(w, msg); err != nil {
		logger.Error("failed to write feedback response", zap.Error(err))
	}
}
