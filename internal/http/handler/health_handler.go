package handler

import (
	"net/http"

	"github.com/straye-as/proposal-api/internal/database"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewHealthHandler(db *gorm.DB, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// Live godoc
// @Summary Liveness probe
// @Tags Health
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Database godoc
// @Summary Database readiness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	if err := database.Ping(r.Context(), h.db); err != nil {
		h.logger.Error("database health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	body := map[string]interface{}{
		"status":  "healthy",
		"service": "database",
	}
	if sqlDB, err := h.db.DB(); err == nil {
		stats := sqlDB.Stats()
		body["stats"] = map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		}
	}
	respondJSON(w, http.StatusOK, body)
}
