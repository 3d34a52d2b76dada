package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/upb/it-assistant/internal/observability"
	"github.com/upb/it-assistant/utils"
	"go.uber.org/zap"
)

// ConversationHandler exposes stored conversations and usage figures
type ConversationHandler struct {
	service ConversationService
	logger  *zap.Logger
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(service ConversationService, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /api/v1/conversations?limit=&relevance=
func (h *ConversationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.WithRequest(ctx, h.logger)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "limit must be an integer", map[string]interface{}{"limit": raw})
			return
		}
		limit = n
	}

	conversations, err := h.service.RecentConversations(ctx, limit, r.URL.Query().Get("relevance"))
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, conversations); err != nil {
		logger.Error("failed to write conversations response", zap.Error(err))
	}
}

// HandleGet handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.WithRequest(ctx, h.logger)

	conv, err := h.service.GetConversation(ctx, chi.URLParam(r, "id"))
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, conv); err != nil {
		logger.Error("failed to write conversation response", zap.Error(err))
	}
}

// HandleFeedbackStats handles GET /api/v1/feedback/stats
func (h *ConversationHandler) HandleFeedbackStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.WithRequest(ctx, h.logger)

	stats, err := h.service.FeedbackStats(ctx)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, stats); err != nil {
		logger.Error("failed to write feedback stats response", zap.Error(err))
	}
}

// HandleMetrics handles GET /api/v1/metrics
func (h *ConversationHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.WithRequest(ctx, h.logger)

	metrics, err := h.service.Metrics(ctx)
	if err != nil {
		HandleServiceError(w, err, logger)
		return
	}

	if err := utils.WriteOK(w, metrics); err != nil {
		logger.Error("failed to write metrics response", zap.Error(err))
	}
}
