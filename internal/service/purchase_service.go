package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/models"
)

// DefaultSettleDelay gives the carrier time to apply a top-up before usage is reset
const DefaultSettleDelay = 2 * time.Second

// Dialer places carrier USSD sessions
type Dialer interface {
	// CanDial returns ErrNoModem when no SIM/modem is ready
	CanDial(ctx context.Context) error
	// Dial sends code and returns the network reply
	Dial(ctx context.Context, code string) (string, error)
}

// PurchaseResult describes a completed purchase
type PurchaseResult struct {
	Package models.InternetPackage `json:"package"`
	Quota   models.Quota           `json:"quota"`
	Reply   string                 `json:"reply,omitempty"`
	Message string                 `json:"message"`
}

// PurchaseService buys carrier packages and renews the quota with them
type PurchaseService struct {
	commands    *CommandService
	dialer      Dialer
	settleDelay time.Duration
	now         func() time.Time
	logger      *logging.Logger

	mu sync.Mutex
}

// NewPurchaseService creates a purchase service
func NewPurchaseService(commands *CommandService, dialer Dialer, settleDelay time.Duration) *PurchaseService {
	return &PurchaseService{
		commands:    commands,
		dialer:      dialer,
		settleDelay: settleDelay,
		now:         time.Now,
		logger:      logging.GetGlobalLogger(),
	}
}

// Packages returns the purchasable catalog
func (s *PurchaseService) Packages() []models.InternetPackage {
	return models.AvailablePackages()
}

// Purchase dials the package's USSD code, waits for the carrier to settle and
// renews the quota with the package volume and validity. Only one purchase
// runs at a time.
func (s *PurchaseService) Purchase(ctx context.Context, packageID int) (*PurchaseResult, error) {
	pkg, ok := models.FindPackage(packageID)
	if !ok {
		return nil, fmt.Errorf("package %d: %w", packageID, ErrNotFound)
	}

	if !s.mu.TryLock() {
		return nil, fmt.Errorf("another purchase is in progress: %w", ErrConflict)
	}
	defer s.mu.Unlock()

	if err := s.dialer.CanDial(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("Purchasing package %s (%s)", pkg.Name, pkg.USSDCode)
	reply, err := s.dialer.Dial(ctx, pkg.USSDCode)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", pkg.USSDCode, err)
	}

	select {
	case <-time.After(s.settleDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	quota := models.Quota{
		LimitBytes:   pkg.LimitBytes(),
		ExpiryTimeMs: s.now().Add(time.Duration(pkg.ValidityDays) * 24 * time.Hour).UnixMilli(),
		Enabled:      true,
	}
	if err := s.commands.RenewQuota(ctx, quota.LimitBytes, quota.ExpiryTimeMs); err != nil {
		return nil, err
	}

	return &PurchaseResult{
		Package: pkg,
		Quota:   quota,
		Reply:   reply,
		Message: fmt.Sprintf("Package %s activated", pkg.Name),
	}, nil
}
