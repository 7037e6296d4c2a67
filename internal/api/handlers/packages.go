package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/osa911/datacap/internal/api/dto/common"
	"github.com/osa911/datacap/internal/api/mapper"
	"github.com/osa911/datacap/internal/utils"
)

type PackageHandler struct {
	purchases Purchases
}

func NewPackageHandler(purchases Purchases) *PackageHandler {
	return &PackageHandler{purchases: purchases}
}

func (h *PackageHandler) List(c *gin.Context) {
	utils.HandleSuccess(c, mapper.PackagesToResponses(h.purchases.Packages()))
}

// Purchase blocks until the carrier settles, so clients need a generous timeout
func (h *PackageHandler) Purchase(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		utils.HandleAPIError(c, err, http.StatusBadRequest, common.ErrCodeValidation, "Invalid package ID")
		return
	}

	result, err := h.purchases.Purchase(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err, "Purchase failed")
		return
	}

	utils.HandleSuccess(c, mapper.PurchaseToResponse(result))
}
