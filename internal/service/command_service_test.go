package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa911/datacap/internal/models"
	"github.com/osa911/datacap/internal/notification"
	"github.com/osa911/datacap/internal/repository"
)

// writeLog records the order in which both stores are written
type writeLog []string

// Mock QuotaRepository
type mockQuotaRepository struct {
	repository.QuotaRepository
	quota   *models.Quota
	log     *writeLog
	saveErr error
}

func (m *mockQuotaRepository) GetOnce(context.Context) (*models.Quota, error) {
	if m.quota == nil {
		return nil, nil
	}
	q := *m.quota
	return &q, nil
}

func (m *mockQuotaRepository) Save(_ context.Context, quota models.Quota) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	*m.log = append(*m.log, "quota")
	m.quota = &quota
	return nil
}

func (m *mockQuotaRepository) UpdateEnabled(_ context.Context, enabled bool) error {
	if m.quota == nil {
		return repository.ErrNotFound
	}
	*m.log = append(*m.log, "enabled")
	m.quota.Enabled = enabled
	return nil
}

// Mock UsageRepository
type mockUsageRepository struct {
	repository.UsageRepository
	usage *models.Usage
	log   *writeLog
}

func (m *mockUsageRepository) ResetUsage(_ context.Context, ts int64) error {
	*m.log = append(*m.log, "usage")
	m.usage = &models.Usage{TotalBytesUsed: 0, LastResetTimeMs: ts}
	return nil
}

type countingCommands struct {
	calls map[string]int
	errs  map[string]int
}

func (c *countingCommands) RecordCommand(command string, err error) {
	if err != nil {
		c.errs[command]++
		return
	}
	c.calls[command]++
}

var fixedNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestCommands(quota *models.Quota) (*CommandService, *mockQuotaRepository, *mockUsageRepository, *writeLog, *countingCommands) {
	log := &writeLog{}
	quotas := &mockQuotaRepository{quota: quota, log: log}
	usages := &mockUsageRepository{usage: &models.Usage{TotalBytesUsed: 999, LastResetTimeMs: 1}, log: log}
	recorder := &countingCommands{calls: map[string]int{}, errs: map[string]int{}}

	s := NewCommandService(quotas, usages, recorder)
	s.now = func() time.Time { return fixedNow }
	return s, quotas, usages, log, recorder
}

func TestForceBlock(t *testing.T) {
	s, quotas, _, log, recorder := newTestCommands(&models.Quota{LimitBytes: 5000, ExpiryTimeMs: fixedNow.Add(time.Hour).UnixMilli(), Enabled: true})

	require.NoError(t, s.ForceBlock(context.Background()))

	assert.Equal(t, fixedNow.UnixMilli()-1, quotas.quota.ExpiryTimeMs)
	assert.Equal(t, uint64(5000), quotas.quota.LimitBytes)
	assert.True(t, quotas.quota.Enabled)
	assert.Equal(t, writeLog{"quota"}, *log)
	assert.Equal(t, 1, recorder.calls["force_block"])
}

func TestForceBlockWithoutQuotaWritesNothing(t *testing.T) {
	s, quotas, _, log, recorder := newTestCommands(nil)

	err := s.ForceBlock(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, quotas.quota)
	assert.Empty(t, *log)
	assert.Equal(t, 1, recorder.errs["force_block"])
}

func TestForceUnblock(t *testing.T) {
	s, quotas, usages, log, _ := newTestCommands(&models.Quota{LimitBytes: 5000, ExpiryTimeMs: fixedNow.Add(-time.Hour).UnixMilli(), Enabled: true})

	require.NoError(t, s.ForceUnblock(context.Background()))

	assert.Equal(t, models.Usage{TotalBytesUsed: 0, LastResetTimeMs: fixedNow.UnixMilli()}, *usages.usage)
	assert.Equal(t, fixedNow.Add(24*time.Hour).UnixMilli(), quotas.quota.ExpiryTimeMs)
	assert.Equal(t, writeLog{"usage", "quota"}, *log)
}

func TestForceUnblockReplacesLaterExpiry(t *testing.T) {
	later := fixedNow.Add(7 * 24 * time.Hour).UnixMilli()
	s, quotas, _, _, _ := newTestCommands(&models.Quota{LimitBytes: 5000, ExpiryTimeMs: later, Enabled: true})

	require.NoError(t, s.ForceUnblock(context.Background()))
	assert.Equal(t, fixedNow.Add(24*time.Hour).UnixMilli(), quotas.quota.ExpiryTimeMs)
	assert.Equal(t, uint64(5000), quotas.quota.LimitBytes)
}

func TestForceUnblockWithoutQuota(t *testing.T) {
	s, quotas, usages, log, _ := newTestCommands(nil)

	require.NoError(t, s.ForceUnblock(context.Background()))
	assert.Nil(t, quotas.quota)
	assert.Zero(t, usages.usage.TotalBytesUsed)
	assert.Equal(t, writeLog{"usage"}, *log)
}

func TestRenewQuotaResetsUsageFirst(t *testing.T) {
	s, quotas, usages, log, _ := newTestCommands(&models.Quota{LimitBytes: 1, ExpiryTimeMs: 1, Enabled: false})

	expiry := fixedNow.Add(7 * 24 * time.Hour).UnixMilli()
	require.NoError(t, s.RenewQuota(context.Background(), 12_000_000_000, expiry))

	assert.Equal(t, writeLog{"usage", "quota"}, *log)
	assert.Equal(t, models.Quota{LimitBytes: 12_000_000_000, ExpiryTimeMs: expiry, Enabled: true}, *quotas.quota)
	assert.Zero(t, usages.usage.TotalBytesUsed)
}

func TestRenewQuotaPropagatesStoreErrors(t *testing.T) {
	s, quotas, _, _, recorder := newTestCommands(nil)
	quotas.saveErr = errors.New("disk full")

	assert.Error(t, s.RenewQuota(context.Background(), 1, 1))
	assert.Equal(t, 1, recorder.errs["renew_quota"])
}

func TestRenewQuotaRejectsOversizedLimitBeforeWriting(t *testing.T) {
	original := models.Quota{LimitBytes: 10, ExpiryTimeMs: 20, Enabled: true}
	s, quotas, usages, log, recorder := newTestCommands(&original)

	err := s.RenewQuota(context.Background(), math.MaxUint64, fixedNow.Add(time.Hour).UnixMilli())
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, *log)
	assert.Equal(t, original, *quotas.quota)
	assert.Equal(t, uint64(999), usages.usage.TotalBytesUsed)
	assert.Equal(t, 1, recorder.errs["renew_quota"])

	require.NoError(t, s.RenewQuota(context.Background(), math.MaxInt64, fixedNow.Add(time.Hour).UnixMilli()))
	assert.Equal(t, uint64(math.MaxInt64), quotas.quota.LimitBytes)
}

func TestResetUsageLeavesQuota(t *testing.T) {
	original := models.Quota{LimitBytes: 10, ExpiryTimeMs: 20, Enabled: true}
	s, quotas, usages, log, _ := newTestCommands(&original)

	require.NoError(t, s.ResetUsage(context.Background()))
	assert.Equal(t, original, *quotas.quota)
	assert.Zero(t, usages.usage.TotalBytesUsed)
	assert.Equal(t, writeLog{"usage"}, *log)
}

func TestSaveQuotaForm(t *testing.T) {
	tests := []struct {
		name      string
		limitMB   string
		days      string
		wantBytes uint64
		wantDays  int
	}{
		{"valid input", "2048", "7", 2048 * 1024 * 1024, 7},
		{"non numeric falls back", "lots", "soon", 1000 * 1024 * 1024, 30},
		{"empty falls back", "", "", 1000 * 1024 * 1024, 30},
		{"zero falls back", "0", "0", 1000 * 1024 * 1024, 30},
		{"negative falls back", "-5", "-1", 1000 * 1024 * 1024, 30},
		{"whitespace is trimmed", " 500 ", "\t3", 500 * 1024 * 1024, 3},
		{"largest limit is kept", "8796093022207", "30", 8796093022207 * 1024 * 1024, 30},
		{"limit overflowing bytes falls back", "17592186044416", "30", 1000 * 1024 * 1024, 30},
		{"limit beyond uint64 falls back", "99999999999999999999999", "30", 1000 * 1024 * 1024, 30},
		{"largest day count is kept", "1000", "106751", 1000 * 1024 * 1024, 106751},
		{"days overflowing duration fall back", "1000", "200000", 1000 * 1024 * 1024, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, quotas, _, _, _ := newTestCommands(nil)

			quota, err := s.SaveQuotaForm(context.Background(), tt.limitMB, tt.days)
			require.NoError(t, err)

			assert.Equal(t, tt.wantBytes, quota.LimitBytes)
			assert.Equal(t, fixedNow.Add(time.Duration(tt.wantDays)*24*time.Hour).UnixMilli(), quota.ExpiryTimeMs)
			assert.True(t, quota.Enabled)
			assert.Equal(t, quota, *quotas.quota)
		})
	}
}

func TestSetEnabled(t *testing.T) {
	s, quotas, _, _, _ := newTestCommands(nil)
	assert.ErrorIs(t, s.SetEnabled(context.Background(), false), ErrNotFound)

	quotas.quota = &models.Quota{LimitBytes: 1, ExpiryTimeMs: 1, Enabled: true}
	require.NoError(t, s.SetEnabled(context.Background(), false))
	assert.False(t, quotas.quota.Enabled)
}

func TestHandleAction(t *testing.T) {
	s, quotas, _, _, _ := newTestCommands(&models.Quota{LimitBytes: 5000, ExpiryTimeMs: fixedNow.Add(time.Hour).UnixMilli(), Enabled: true})
	ctx := context.Background()

	require.NoError(t, s.HandleAction(ctx, notification.ActionBlock))
	assert.Less(t, quotas.quota.ExpiryTimeMs, fixedNow.UnixMilli())

	require.NoError(t, s.HandleAction(ctx, notification.ActionUnblock))
	assert.Greater(t, quotas.quota.ExpiryTimeMs, fixedNow.UnixMilli())

	assert.ErrorIs(t, s.HandleAction(ctx, notification.ActionSettings), ErrUIOnly)
	assert.ErrorIs(t, s.HandleAction(ctx, "reboot"), ErrValidation)
}
