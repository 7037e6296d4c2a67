package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/osa911/datacap/internal/utils"
)

type CommandHandler struct {
	commands Commands
}

func NewCommandHandler(commands Commands) *CommandHandler {
	return &CommandHandler{commands: commands}
}

func (h *CommandHandler) Block(c *gin.Context) {
	if err := h.commands.ForceBlock(c.Request.Context()); err != nil {
		utils.HandleServiceError(c, err, "Failed to block")
		return
	}
	utils.HandleMessage(c, "Quota expired, traffic will be blocked")
}

func (h *CommandHandler) Unblock(c *gin.Context) {
	if err := h.commands.ForceUnblock(c.Request.Context()); err != nil {
		utils.HandleServiceError(c, err, "Failed to unblock")
		return
	}
	utils.HandleMessage(c, "Usage reset and quota expires in 24h")
}

func (h *CommandHandler) ResetUsage(c *gin.Context) {
	if err := h.commands.ResetUsage(c.Request.Context()); err != nil {
		utils.HandleServiceError(c, err, "Failed to reset usage")
		return
	}
	utils.HandleMessage(c, "Usage reset")
}

// Action dispatches a notification action by id
func (h *CommandHandler) Action(c *gin.Context) {
	action := c.Param("action")
	if err := h.commands.HandleAction(c.Request.Context(), action); err != nil {
		utils.HandleServiceError(c, err, "Failed to handle action "+action)
		return
	}
	utils.HandleMessage(c, "Action "+action+" handled")
}
