package handlers

import (
	"context"

	"github.com/osa911/datacap/internal/models"
	"github.com/osa911/datacap/internal/service"
)

// StatusSource exposes the latest computed status
type StatusSource interface {
	Status() *models.DataStatus
}

// EngineControl restarts the enforcement engine
type EngineControl interface {
	Restart()
	Running() bool
}

// Commands is the command surface the API drives
type Commands interface {
	ForceBlock(ctx context.Context) error
	ForceUnblock(ctx context.Context) error
	RenewQuota(ctx context.Context, limitBytes uint64, expiryTimeMs int64) error
	ResetUsage(ctx context.Context) error
	SaveQuotaForm(ctx context.Context, limitMB, days string) (models.Quota, error)
	SetEnabled(ctx context.Context, enabled bool) error
	HandleAction(ctx context.Context, action string) error
}

// Purchases lists and buys carrier packages
type Purchases interface {
	Packages() []models.InternetPackage
	Purchase(ctx context.Context, packageID int) (*service.PurchaseResult, error)
}

// Pinger checks the database connection
type Pinger interface {
	PingContext(ctx context.Context) error
}
