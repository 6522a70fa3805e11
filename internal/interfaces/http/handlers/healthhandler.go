package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"torweather/internal/shared/logger"
	"torweather/internal/shared/utils"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *gorm.DB, logger logger.Interface) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// Check reports overall health including database reachability.
func (h *HealthHandler) Check(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		h.logger.Errorw("health check failed", "error", err)
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "database unreachable")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "ok", gin.H{"database": "up"})
}
