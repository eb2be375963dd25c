package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"petfinder/pkg/utils"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthController struct {
	db  Pinger
	log *zap.Logger
}

func NewHealthController(db Pinger, log *zap.Logger) *HealthController {
	return &HealthController{db: db, log: log}
}

// Health godoc
// @Summary Liveness and database reachability
// @Tags Health
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Failure 503 {object} utils.APIResponse
// @Router /health [get]
func (h *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Warn("database ping failed", zap.Error(err))
		utils.RespondError(c, http.StatusServiceUnavailable, "Database unreachable")
		return
	}

	utils.RespondSuccess(c, gin.H{"status": "ok"}, "Service is healthy")
}
