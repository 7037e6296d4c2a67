package enforcer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/osa911/datacap/internal/counter"
	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/models"
	"github.com/osa911/datacap/internal/quota"
	"github.com/osa911/datacap/internal/repository"
	"github.com/osa911/datacap/internal/telemetry"
)

// DefaultPollInterval is how often usage is sampled
const DefaultPollInterval = 5 * time.Second

// Notifier receives every computed status. nil means no status is available.
type Notifier interface {
	Notify(status *models.DataStatus)
}

type nopNotifier struct{}

func (nopNotifier) Notify(*models.DataStatus) {}

// Dependencies groups the collaborators of an Engine
type Dependencies struct {
	Quotas      repository.QuotaRepository
	Usages      repository.UsageRepository
	Accumulator *counter.Accumulator
	Controller  *Controller
	Notifier    Notifier
	Recorder    Recorder
}

// Engine runs the status watcher and the usage poller
type Engine struct {
	quotas      repository.QuotaRepository
	usages      repository.UsageRepository
	accumulator *counter.Accumulator
	controller  *Controller
	notifier    Notifier
	recorder    Recorder
	interval    time.Duration
	now         func() time.Time
	tracer      trace.Tracer
	logger      *logging.Logger

	mu     sync.RWMutex
	latest *models.DataStatus

	// quotaSeen is set once the status watcher received a quota value
	quotaSeen atomic.Bool
}

// NewEngine creates an engine polling every interval
func NewEngine(deps Dependencies, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Engine{
		quotas:      deps.Quotas,
		usages:      deps.Usages,
		accumulator: deps.Accumulator,
		controller:  deps.Controller,
		notifier:    notifier,
		recorder:    recorder,
		interval:    interval,
		now:         time.Now,
		tracer:      telemetry.Tracer(),
		logger:      logging.GetGlobalLogger(),
	}
}

// Run blocks until ctx is cancelled, then tears the sinkhole down.
// Failures inside the loops are logged and retried; Run only returns when asked to stop.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Starting enforcement engine (poll interval %s)", e.interval)
	e.quotaSeen.Store(false)

	if _, err := e.usages.Initialize(ctx, e.now().UnixMilli()); err != nil {
		e.logger.Warn("Failed to initialize usage record, the poller will retry: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.watchStatus(gctx) })
	g.Go(func() error { return e.pollLoop(gctx) })
	err := g.Wait()

	if terr := e.controller.Shutdown(); terr != nil {
		e.logger.Error("Failed to tear down sinkhole on shutdown: %v", terr)
	}
	e.logger.Info("Enforcement engine stopped")
	return err
}

// Status returns a copy of the latest computed status, or nil
func (e *Engine) Status() *models.DataStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.latest == nil {
		return nil
	}
	status := *e.latest
	return &status
}

// watchStatus recomputes the status whenever either record changes
func (e *Engine) watchStatus(ctx context.Context) error {
	quotas := e.quotas.Watch(ctx)
	usages := e.usages.Watch(ctx)

	var (
		q         *models.Quota
		u         *models.Usage
		haveQuota bool
		haveUsage bool
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case v, ok := <-quotas:
			if !ok {
				return nil
			}
			q, haveQuota = v, true
			e.quotaSeen.Store(true)
		case v, ok := <-usages:
			if !ok {
				return nil
			}
			u, haveUsage = v, true
		}

		if haveQuota && haveUsage {
			e.recompute(ctx, q, u)
		}
	}
}

func (e *Engine) recompute(ctx context.Context, q *models.Quota, u *models.Usage) {
	ctx, span := e.tracer.Start(ctx, "engine.recompute")
	defer span.End()

	status := quota.Evaluate(q, u, e.now(), e.controller.Active())
	active := e.controller.Apply(ctx, status)
	if status != nil {
		status.IsSinkholeActive = active
		span.SetAttributes(
			attribute.Bool("quota.blocked", status.IsBlocked),
			attribute.Bool("sinkhole.active", active),
		)
	}

	e.mu.Lock()
	e.latest = status
	e.mu.Unlock()

	e.recorder.ObserveStatus(status)
	e.notifier.Notify(status)
}

func (e *Engine) pollLoop(ctx context.Context) error {
	e.poll(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.poll(ctx)
		}
	}
}

// poll samples usage since the last reset and persists it. The write wakes the
// status watcher even when the total did not change, so expiry is noticed too.
// Until the watcher has a quota, poll also re-publishes the stored one.
func (e *Engine) poll(ctx context.Context) {
	ctx, span := e.tracer.Start(ctx, "engine.poll")
	defer span.End()
	defer func() { e.notifier.Notify(e.Status()) }()

	e.recorder.Tick()

	if !e.quotaSeen.Load() {
		if err := e.quotas.Refresh(ctx); err != nil {
			e.tickFailed(span, "quota", err)
		}
	}

	usage, err := e.usages.GetOnce(ctx)
	if err != nil {
		e.tickFailed(span, "read", err)
		return
	}
	if usage == nil {
		if usage, err = e.usages.Initialize(ctx, e.now().UnixMilli()); err != nil {
			e.tickFailed(span, "init", err)
			return
		}
	}

	sampled := e.accumulator.Sample(ctx, usage.LastResetTimeMs)
	span.SetAttributes(attribute.Int64("usage.sampled_bytes", int64(sampled)))

	matched, err := e.usages.UpdateUsageSince(ctx, usage.LastResetTimeMs, sampled)
	if err != nil {
		e.tickFailed(span, "write", err)
		return
	}
	if !matched {
		e.logger.Debug("Usage was reset during the tick, discarding sample of %d bytes", sampled)
	}
}

func (e *Engine) tickFailed(span trace.Span, stage string, err error) {
	e.logger.Error("Usage poll failed at %s, retrying next tick: %v", stage, err)
	e.recorder.TickFailed(stage)
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
}
