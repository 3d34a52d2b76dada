package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/it-assistant/internal/observability"
	"github.com/upb/it-assistant/utils"
	"go.uber.org/zap"
)

// QuestionRequest is the body of POST /question
type QuestionRequest struct {
	Question string `json:"question" validate:"required,notblank"`
	// Model overrides the configured answer model
	Model string `json:"model,omitempty" validate:"omitempty,max=100"`
}

// QuestionHandler answers questions against the knowledge base
type QuestionHandler struct {
	service ConversationService
	logger  *zap.Logger
}

// NewQuestionHandler creates a new QuestionHandler
func NewQuestionHandler(service ConversationService, logger *zap.Logger) *QuestionHandler {
	return &QuestionHandler{
		service: service,
		logger:  logger,
	}
}

// HandleQuestion handles POST /question
func (h *QuestionHandler) HandleQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.WithRequest(ctx, h.logger)

	var req QuestionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		if errors.Is(err, utils.ErrEmptyBody) {
			_ = utils.WriteBadRequest(w, "No question provided", nil)
			return
		}
		logger.Debug("invalid question body", zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, "No question provided", logger)
		return
	}

	result, err := h.service.Ask(ctx, req.Question, req.Model)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	logger.Info("question answered",
		zap.String("conversation_id", result.ConversationID),
		zap.String("relevance", string(result.Relevance)),
		zap.Float64("response_time", result.ResponseTime),
		zap.Float64("cost", result.Cost))

	if err := utils.WriteOK(w, result); err != nil {
		logger.Error("failed to write question response", zap.Error(err))
	}
}
