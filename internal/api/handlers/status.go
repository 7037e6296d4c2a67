package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/osa911/datacap/internal/api/mapper"
	"github.com/osa911/datacap/internal/utils"
)

type StatusHandler struct {
	status StatusSource
	engine EngineControl
}

func NewStatusHandler(status StatusSource, engine EngineControl) *StatusHandler {
	return &StatusHandler{status: status, engine: engine}
}

// Get returns the latest status. Before the first evaluation ready is false.
func (h *StatusHandler) Get(c *gin.Context) {
	utils.HandleSuccess(c, mapper.StatusToResponse(h.status.Status(), h.engine.Running()))
}
