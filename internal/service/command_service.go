package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/models"
	"github.com/osa911/datacap/internal/notification"
	"github.com/osa911/datacap/internal/repository"
	"github.com/osa911/datacap/internal/telemetry"
)

// Defaults applied when the quota form input cannot be used
const (
	DefaultFormLimitMB = 1000
	DefaultFormDays    = 30
)

// ForceUnblockGrace is how far from now forceUnblock moves the expiry
const ForceUnblockGrace = 24 * time.Hour

// Largest values that still fit the stores as signed 64-bit integers
const (
	MaxLimitBytes  = math.MaxInt64
	maxFormLimitMB = MaxLimitBytes >> 20
	maxFormDays    = int64(math.MaxInt64 / int64(24*time.Hour))
)

// CommandRecorder counts command invocations
type CommandRecorder interface {
	RecordCommand(command string, err error)
}

// CommandService is the command surface: it only writes the stores and lets
// the engine react through its subscriptions.
type CommandService struct {
	quotas   repository.QuotaRepository
	usages   repository.UsageRepository
	recorder CommandRecorder
	now      func() time.Time
	tracer   trace.Tracer
	logger   *logging.Logger
}

// NewCommandService creates a command service. recorder may be nil.
func NewCommandService(quotas repository.QuotaRepository, usages repository.UsageRepository, recorder CommandRecorder) *CommandService {
	return &CommandService{
		quotas:   quotas,
		usages:   usages,
		recorder: recorder,
		now:      time.Now,
		tracer:   telemetry.Tracer(),
		logger:   logging.GetGlobalLogger(),
	}
}

// ForceBlock expires the quota immediately, keeping limit and enabled flag
func (s *CommandService) ForceBlock(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "command.force_block")
	defer span.End()
	defer s.record("force_block", &err)

	quota, err := s.quotas.GetOnce(ctx)
	if err != nil {
		return err
	}
	if quota == nil {
		return fmt.Errorf("cannot block without a quota: %w", ErrNotFound)
	}

	quota.ExpiryTimeMs = s.now().UnixMilli() - 1
	if err := s.quotas.Save(ctx, *quota); err != nil {
		return err
	}

	s.logger.Info("Quota force-blocked")
	return nil
}

// ForceUnblock resets usage and moves the expiry to now+24h
func (s *CommandService) ForceUnblock(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "command.force_unblock")
	defer span.End()
	defer s.record("force_unblock", &err)

	now := s.now()
	if err := s.usages.ResetUsage(ctx, now.UnixMilli()); err != nil {
		return err
	}

	quota, err := s.quotas.GetOnce(ctx)
	if err != nil {
		return err
	}
	if quota == nil {
		s.logger.Info("Usage reset, no quota to extend")
		return nil
	}

	quota.ExpiryTimeMs = now.Add(ForceUnblockGrace).UnixMilli()
	if err := s.quotas.Save(ctx, *quota); err != nil {
		return err
	}

	s.logger.Info("Quota force-unblocked until %s", time.UnixMilli(quota.ExpiryTimeMs).Format(time.RFC3339))
	return nil
}

// RenewQuota resets usage, then installs a new enabled quota
func (s *CommandService) RenewQuota(ctx context.Context, limitBytes uint64, expiryTimeMs int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "command.renew_quota", trace.WithAttributes(
		attribute.Int64("quota.limit_bytes", int64(limitBytes)),
		attribute.Int64("quota.expiry_time_ms", expiryTimeMs),
	))
	defer span.End()
	defer s.record("renew_quota", &err)

	if limitBytes > MaxLimitBytes {
		return fmt.Errorf("limit of %d bytes is out of range: %w", limitBytes, ErrValidation)
	}
	if err := s.usages.ResetUsage(ctx, s.now().UnixMilli()); err != nil {
		return err
	}
	if err := s.quotas.Save(ctx, models.Quota{
		LimitBytes:   limitBytes,
		ExpiryTimeMs: expiryTimeMs,
		Enabled:      true,
	}); err != nil {
		return err
	}

	s.logger.Info("Quota renewed: %d bytes until %s", limitBytes, time.UnixMilli(expiryTimeMs).Format(time.RFC3339))
	return nil
}

// ResetUsage zeroes usage and leaves the quota alone
func (s *CommandService) ResetUsage(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "command.reset_usage")
	defer span.End()
	defer s.record("reset_usage", &err)

	if err := s.usages.ResetUsage(ctx, s.now().UnixMilli()); err != nil {
		return err
	}
	s.logger.Info("Usage reset")
	return nil
}

// SaveQuotaForm renews the quota from raw form input. Values that are not
// positive integers in range fall back to DefaultFormLimitMB and DefaultFormDays.
func (s *CommandService) SaveQuotaForm(ctx context.Context, limitMB, days string) (models.Quota, error) {
	mb := parsePositive(limitMB, DefaultFormLimitMB, maxFormLimitMB)
	d := parsePositive(days, DefaultFormDays, uint64(maxFormDays))

	quota := models.Quota{
		LimitBytes:   mb * 1024 * 1024,
		ExpiryTimeMs: s.now().Add(time.Duration(d) * 24 * time.Hour).UnixMilli(),
		Enabled:      true,
	}
	if err := s.RenewQuota(ctx, quota.LimitBytes, quota.ExpiryTimeMs); err != nil {
		return models.Quota{}, err
	}
	return quota, nil
}

// SetEnabled toggles enforcement
func (s *CommandService) SetEnabled(ctx context.Context, enabled bool) (err error) {
	defer s.record("set_enabled", &err)

	if err := s.quotas.UpdateEnabled(ctx, enabled); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("no quota configured: %w", ErrNotFound)
		}
		return err
	}
	s.logger.Info("Quota enforcement enabled=%t", enabled)
	return nil
}

// HandleAction maps a notification action onto a command
func (s *CommandService) HandleAction(ctx context.Context, action string) error {
	switch action {
	case notification.ActionBlock:
		return s.ForceBlock(ctx)
	case notification.ActionUnblock:
		return s.ForceUnblock(ctx)
	case notification.ActionSettings:
		return ErrUIOnly
	default:
		return fmt.Errorf("unknown action %q: %w", action, ErrValidation)
	}
}

func (s *CommandService) record(command string, err *error) {
	if *err != nil {
		s.logger.Error("Command %s failed: %v", command, *err)
	}
	if s.recorder != nil {
		s.recorder.RecordCommand(command, *err)
	}
}

// parsePositive returns fallback for anything that is not an integer in [1, limit]
func parsePositive(raw string, fallback, limit uint64) uint64 {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || v == 0 || v > limit {
		return fallback
	}
	return v
}
