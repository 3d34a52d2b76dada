package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/it-assistant/utils"
	"go.uber.org/zap"
)

// ServiceName is reported by the health endpoints
const ServiceName = "IT Group Assistant"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker is implemented by the database stores
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// KnowledgeBase reports how many documents are indexed
type KnowledgeBase interface {
	Size() int
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db        HealthChecker
	knowledge KnowledgeBase
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. Either dependency may be nil,
// in which case its readiness check is skipped.
func NewHealthHandler(db HealthChecker, knowledge KnowledgeBase, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		knowledge: knowledge,
		logger:    logger,
	}
}

// HandleHealth handles GET /health
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /health/ready
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Warn("database health check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			allHealthy = false
		} else {
			checks["database"] = "healthy"
		}
	}

	if h.knowledge != nil {
		if h.knowledge.Size() == 0 {
			h.logger.Warn("knowledge base is empty")
			checks["knowledge_base"] = "empty"
			allHealthy = false
		} else {
			checks["knowledge_base"] = "healthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Service:   ServiceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
