package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osa911/datacap/internal/api/dto/common"
	"github.com/osa911/datacap/internal/api/dto/v1/quota"
	"github.com/osa911/datacap/internal/api/mapper"
	"github.com/osa911/datacap/internal/api/validation"
	"github.com/osa911/datacap/internal/models"
	"github.com/osa911/datacap/internal/utils"
)

type QuotaHandler struct {
	commands Commands
}

func NewQuotaHandler(commands Commands) *QuotaHandler {
	return &QuotaHandler{commands: commands}
}

// Save renews the quota with an explicit limit and expiry
func (h *QuotaHandler) Save(c *gin.Context) {
	var req quota.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	if err := h.commands.RenewQuota(c.Request.Context(), *req.LimitBytes, req.ExpiryTimeMs); err != nil {
		utils.HandleServiceError(c, err, "Failed to save quota")
		return
	}

	utils.HandleSuccess(c, mapper.QuotaToResponse(models.Quota{
		LimitBytes:   *req.LimitBytes,
		ExpiryTimeMs: req.ExpiryTimeMs,
		Enabled:      true,
	}))
}

// SaveForm renews the quota from raw form input, defaulting bad values
func (h *QuotaHandler) SaveForm(c *gin.Context) {
	var req quota.FormRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		handleBindError(c, err)
		return
	}

	q, err := h.commands.SaveQuotaForm(c.Request.Context(), req.LimitMB, req.Days)
	if err != nil {
		utils.HandleServiceError(c, err, "Failed to save quota")
		return
	}

	utils.HandleSuccess(c, mapper.QuotaToResponse(q))
}

// SetEnabled toggles enforcement without touching limit or expiry
func (h *QuotaHandler) SetEnabled(c *gin.Context) {
	var req quota.EnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	if err := h.commands.SetEnabled(c.Request.Context(), *req.Enabled); err != nil {
		utils.HandleServiceError(c, err, "Failed to update quota")
		return
	}

	if *req.Enabled {
		utils.HandleMessage(c, "Enforcement enabled")
		return
	}
	utils.HandleMessage(c, "Enforcement disabled")
}

func handleBindError(c *gin.Context, err error) {
	details := validation.FormatValidationError(err)
	if len(details) == 0 {
		utils.HandleAPIError(c, err, http.StatusBadRequest, common.ErrCodeBadRequest, "Invalid request body")
		return
	}
	c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.ErrCodeValidation, "Invalid request data", details))
}
