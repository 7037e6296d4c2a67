package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/utils"
)

type EngineHandler struct {
	engine EngineControl
}

func NewEngineHandler(engine EngineControl) *EngineHandler {
	return &EngineHandler{engine: engine}
}

// Restart is the boot-complete hook
func (h *EngineHandler) Restart(c *gin.Context) {
	logging.GetGlobalLogger().Info("Engine restart requested via API")
	h.engine.Restart()
	utils.HandleMessage(c, "Engine restarted")
}
