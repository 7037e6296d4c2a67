package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osa911/datacap/internal/api/handlers"
)

// Setup configures all route groups
func Setup(router *gin.Engine, h *Handlers, metrics http.Handler) {
	v1 := router.Group("/api/v1")

	v1.GET("/health", h.Health.Check)
	v1.GET("/status", h.Status.Get)

	SetupQuotaRoutes(v1, h)
	SetupCommandRoutes(v1, h)
	SetupPackageRoutes(v1, h.Packages)

	v1.POST("/engine/restart", h.Engine.Restart)

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}
}

// SetupQuotaRoutes configures quota endpoints
func SetupQuotaRoutes(v1 *gin.RouterGroup, h *Handlers) {
	quota := v1.Group("/quota")
	{
		quota.POST("", h.Quota.Save)
		quota.POST("/form", h.Quota.SaveForm)
		quota.PUT("/enabled", h.Quota.SetEnabled)
	}
}

// SetupCommandRoutes configures the enforcement commands and notification actions
func SetupCommandRoutes(v1 *gin.RouterGroup, h *Handlers) {
	v1.POST("/block", h.Command.Block)
	v1.POST("/unblock", h.Command.Unblock)
	v1.POST("/usage/reset", h.Command.ResetUsage)
	v1.POST("/actions/:action", h.Command.Action)
}

// SetupPackageRoutes configures the package catalog and purchases
func SetupPackageRoutes(v1 *gin.RouterGroup, packages *handlers.PackageHandler) {
	group := v1.Group("/packages")
	{
		group.GET("", packages.List)
		group.POST("/:id/purchase", packages.Purchase)
	}
}
