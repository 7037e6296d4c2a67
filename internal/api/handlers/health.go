package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osa911/datacap/internal/api/dto/common"
	"github.com/osa911/datacap/internal/api/dto/v1/status"
	"github.com/osa911/datacap/internal/utils"
	"github.com/osa911/datacap/internal/version"
)

type HealthHandler struct {
	db     Pinger
	engine EngineControl
}

func NewHealthHandler(db Pinger, engine EngineControl) *HealthHandler {
	return &HealthHandler{db: db, engine: engine}
}

func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		utils.HandleAPIError(c, err, http.StatusServiceUnavailable, common.ErrCodeServiceUnavailable, "Database connection error")
		return
	}

	utils.HandleSuccess(c, status.HealthResponse{
		Status:        "ok",
		Database:      "ok",
		EngineRunning: h.engine.Running(),
		Version:       version.Version,
	})
}
