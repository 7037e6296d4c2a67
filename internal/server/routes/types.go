package routes

import (
	"github.com/osa911/datacap/internal/api/handlers"
)

// Handlers contains all the route handlers
type Handlers struct {
	Health   *handlers.HealthHandler
	Status   *handlers.StatusHandler
	Quota    *handlers.QuotaHandler
	Command  *handlers.CommandHandler
	Packages *handlers.PackageHandler
	Engine   *handlers.EngineHandler
}
