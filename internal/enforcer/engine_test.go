package enforcer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa911/datacap/internal/counter"
	"github.com/osa911/datacap/internal/db"
	"github.com/osa911/datacap/internal/models"
	"github.com/osa911/datacap/internal/repository"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type fakeSource struct {
	bytes atomic.Uint64
	fail  atomic.Bool
}

func (f *fakeSource) QuerySince(context.Context, int64) (uint64, error) {
	if f.fail.Load() {
		return 0, errors.New("counter service unavailable")
	}
	return f.bytes.Load(), nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []*models.DataStatus
}

func (n *recordingNotifier) Notify(status *models.DataStatus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, status)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.statuses)
}

// flakyUsages fails GetOnce a fixed number of times
type flakyUsages struct {
	repository.UsageRepository
	failures atomic.Int32
}

func (f *flakyUsages) GetOnce(ctx context.Context) (*models.Usage, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, errors.New("database is locked")
	}
	return f.UsageRepository.GetOnce(ctx)
}

type harness struct {
	database *db.Database
	engine   *Engine
	sink     *fakeSinkhole
	source   *fakeSource
	quotas   repository.QuotaRepository
	usages   repository.UsageRepository
	notifier *recordingNotifier
	cancel   context.CancelFunc
	done     chan error
}

func newHarness(t *testing.T, wrap func(repository.UsageRepository) repository.UsageRepository) *harness {
	t.Helper()

	database, err := db.Open(context.Background(), db.Config{
		Driver: db.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "engine.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	h := &harness{
		database: database,
		sink:     &fakeSinkhole{},
		source:   &fakeSource{},
		quotas:   repository.NewQuotaRepository(database.DB),
		usages:   repository.NewUsageRepository(database.DB),
		notifier: &recordingNotifier{},
	}
	usages := h.usages
	if wrap != nil {
		usages = wrap(usages)
	}

	h.engine = NewEngine(Dependencies{
		Quotas:      h.quotas,
		Usages:      usages,
		Accumulator: counter.NewAccumulator(h.source, nil),
		Controller:  NewController(h.sink, nil),
		Notifier:    h.notifier,
	}, 10*time.Millisecond)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() { h.done <- h.engine.Run(ctx) }()
	t.Cleanup(h.stop)
}

func (h *harness) stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
	h.cancel = nil
}

func (h *harness) status() *models.DataStatus {
	return h.engine.Status()
}

func TestEngineInertWithoutQuota(t *testing.T) {
	h := newHarness(t, nil)
	h.source.bytes.Store(1 << 40)
	h.start(t)

	require.Eventually(t, func() bool { return h.notifier.count() >= 3 }, waitFor, tick)
	assert.Nil(t, h.status())
	assert.False(t, h.sink.Active())

	usage, err := h.usages.GetOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, usage, "usage record is created on start")
}

func TestEngineBlocksOnceWhenExhausted(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.quotas.Save(ctx, models.Quota{
		LimitBytes:   1000,
		ExpiryTimeMs: time.Now().Add(time.Hour).UnixMilli(),
		Enabled:      true,
	}))
	h.source.bytes.Store(1500)
	h.start(t)

	require.Eventually(t, func() bool { return h.sink.Active() }, waitFor, tick)
	require.Eventually(t, func() bool {
		s := h.status()
		return s != nil && s.IsBlocked && s.IsSinkholeActive
	}, waitFor, tick)

	// Many more ticks with the same blocked status
	time.Sleep(100 * time.Millisecond)
	establish, teardown := h.sink.calls()
	assert.Equal(t, 1, establish)
	assert.Equal(t, 0, teardown)

	status := h.status()
	assert.Equal(t, uint64(1500), status.UsedBytes)
	assert.Equal(t, uint64(0), status.RemainingBytes)
}

func TestEngineForceUnblockTearsDown(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.quotas.Save(ctx, models.Quota{
		LimitBytes:   1_000_000_000,
		ExpiryTimeMs: time.Now().Add(-time.Millisecond).UnixMilli(),
		Enabled:      true,
	}))
	h.start(t)
	require.Eventually(t, func() bool { return h.sink.Active() }, waitFor, tick)

	// Reset usage first, then extend the expiry
	now := time.Now()
	require.NoError(t, h.usages.ResetUsage(ctx, now.UnixMilli()))
	q, err := h.quotas.GetOnce(ctx)
	require.NoError(t, err)
	q.ExpiryTimeMs = now.Add(24 * time.Hour).UnixMilli()
	require.NoError(t, h.quotas.Save(ctx, *q))

	require.Eventually(t, func() bool { return !h.sink.Active() }, waitFor, tick)
	status := h.status()
	require.NotNil(t, status)
	assert.False(t, status.IsBlocked)
	assert.False(t, status.IsSinkholeActive)
	assert.Equal(t, uint64(0), status.UsedBytes)
	assert.GreaterOrEqual(t, status.ExpiryTimeMs, now.Add(24*time.Hour).UnixMilli())
}

func TestEngineRenewalUnblocksOnNextRecompute(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.quotas.Save(ctx, models.Quota{
		LimitBytes:   1000,
		ExpiryTimeMs: time.Now().Add(time.Hour).UnixMilli(),
		Enabled:      true,
	}))
	h.source.bytes.Store(2000)
	h.start(t)
	require.Eventually(t, func() bool { return h.sink.Active() }, waitFor, tick)

	// New reset point, nothing used since
	h.source.bytes.Store(0)
	now := time.Now()
	require.NoError(t, h.usages.ResetUsage(ctx, now.UnixMilli()))
	require.NoError(t, h.quotas.Save(ctx, models.Quota{
		LimitBytes:   12_000_000_000,
		ExpiryTimeMs: now.Add(7 * 24 * time.Hour).UnixMilli(),
		Enabled:      true,
	}))

	require.Eventually(t, func() bool {
		s := h.status()
		return s != nil && !s.IsBlocked && s.QuotaBytes == 12_000_000_000
	}, waitFor, tick)
	require.Eventually(t, func() bool { return !h.sink.Active() }, waitFor, tick)

	usage, err := h.usages.GetOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), usage.TotalBytesUsed)
}

func TestEngineRetriesFailedEstablish(t *testing.T) {
	h := newHarness(t, nil)
	h.sink.setEstablishErr(errors.New("operation not permitted"))
	ctx := context.Background()
	require.NoError(t, h.quotas.Save(ctx, models.Quota{
		LimitBytes:   0,
		ExpiryTimeMs: time.Now().Add(time.Hour).UnixMilli(),
		Enabled:      true,
	}))
	h.start(t)

	require.Eventually(t, func() bool {
		establish, _ := h.sink.calls()
		return establish >= 2
	}, waitFor, tick)
	assert.False(t, h.engine.controller.Active())

	h.sink.setEstablishErr(nil)
	require.Eventually(t, func() bool { return h.sink.Active() }, waitFor, tick)
	assert.True(t, h.status().IsSinkholeActive)
}

func TestEngineSurvivesStoreAndCounterFailures(t *testing.T) {
	var flaky *flakyUsages
	h := newHarness(t, func(r repository.UsageRepository) repository.UsageRepository {
		flaky = &flakyUsages{UsageRepository: r}
		flaky.failures.Store(3)
		return flaky
	})
	h.source.fail.Store(true)
	ctx := context.Background()
	require.NoError(t, h.quotas.Save(ctx, models.Quota{
		LimitBytes:   100,
		ExpiryTimeMs: time.Now().Add(time.Hour).UnixMilli(),
		Enabled:      true,
	}))
	h.start(t)

	require.Eventually(t, func() bool { return flaky.failures.Load() < 0 }, waitFor, tick)
	require.Eventually(t, func() bool { return h.status() != nil }, waitFor, tick)
	assert.False(t, h.status().IsBlocked, "failed samples read as zero")

	h.source.fail.Store(false)
	h.source.bytes.Store(100)
	require.Eventually(t, func() bool { return h.sink.Active() }, waitFor, tick)
}

func TestEngineEnforcesAfterQuotaStoreRecovers(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	// Written through another handle so the engine's repository has nothing cached
	writer := repository.NewQuotaRepository(h.database.DB)
	require.NoError(t, writer.Save(ctx, models.Quota{
		LimitBytes:   1_000_000,
		ExpiryTimeMs: time.Now().Add(-time.Hour).UnixMilli(),
		Enabled:      true,
	}))

	_, err := h.database.DB.ExecContext(ctx, `ALTER TABLE quota RENAME TO quota_offline`)
	require.NoError(t, err)
	h.start(t)

	require.Eventually(t, func() bool { return h.notifier.count() >= 3 }, waitFor, tick)
	assert.Nil(t, h.status())
	assert.False(t, h.sink.Active())

	_, err = h.database.DB.ExecContext(ctx, `ALTER TABLE quota_offline RENAME TO quota`)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.sink.Active() }, waitFor, tick)
	require.Eventually(t, func() bool {
		s := h.status()
		return s != nil && s.IsBlocked && s.IsSinkholeActive
	}, waitFor, tick)
}

func TestEngineUsageNeverDecreases(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.source.bytes.Store(500)
	h.start(t)

	require.Eventually(t, func() bool {
		u, err := h.usages.GetOnce(ctx)
		return err == nil && u != nil && u.TotalBytesUsed == 500
	}, waitFor, tick)

	h.source.fail.Store(true)
	time.Sleep(50 * time.Millisecond)

	u, err := h.usages.GetOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), u.TotalBytesUsed)
}

func TestEngineTearsDownOnShutdown(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.quotas.Save(ctx, models.Quota{
		LimitBytes:   10,
		ExpiryTimeMs: time.Now().Add(-time.Hour).UnixMilli(),
		Enabled:      true,
	}))
	h.start(t)
	require.Eventually(t, func() bool { return h.sink.Active() }, waitFor, tick)

	h.stop()
	assert.False(t, h.sink.Active())
	_, teardown := h.sink.calls()
	assert.Equal(t, 1, teardown)
}
