// Package enforcer keeps the sinkhole in line with the computed blocking decision.
package enforcer

import (
	"context"
	"sync"

	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/models"
	"github.com/osa911/datacap/internal/sinkhole"
)

// Recorder receives engine and controller measurements
type Recorder interface {
	RecordTransition(action string, err error, active bool)
	ObserveStatus(status *models.DataStatus)
	Tick()
	TickFailed(stage string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(string, error, bool) {}
func (nopRecorder) ObserveStatus(*models.DataStatus)     {}
func (nopRecorder) Tick()                                {}
func (nopRecorder) TickFailed(string)                    {}

// Controller drives the sinkhole from DataStatus values.
//
//	INACTIVE + blocked     -> establish
//	ACTIVE   + not blocked -> teardown
//	otherwise              -> nothing
//
// The controller trusts its own view of the sinkhole state instead of asking
// the OS, so repeating a status never repeats an establish or teardown.
type Controller struct {
	mu       sync.Mutex
	sinkhole sinkhole.Sinkhole
	active   bool
	recorder Recorder
	logger   *logging.Logger
}

// NewController creates a controller with the sinkhole INACTIVE. recorder may be nil.
func NewController(s sinkhole.Sinkhole, recorder Recorder) *Controller {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Controller{
		sinkhole: s,
		recorder: recorder,
		logger:   logging.GetGlobalLogger(),
	}
}

// Apply runs one transition for status and returns whether the sinkhole is active afterwards.
// A failed establish leaves the state INACTIVE and a failed teardown leaves it ACTIVE,
// so the next status retries.
func (c *Controller) Apply(ctx context.Context, status *models.DataStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if status == nil {
		return c.active
	}

	switch {
	case status.IsBlocked && !c.active:
		c.logger.Info("Quota exhausted or expired (used %d of %d bytes), establishing sinkhole",
			status.UsedBytes, status.QuotaBytes)
		err := c.sinkhole.Establish(ctx)
		if err != nil {
			c.logger.Error("Failed to establish sinkhole, will retry on next status: %v", err)
		} else {
			c.active = true
		}
		c.recorder.RecordTransition("establish", err, c.active)

	case !status.IsBlocked && c.active:
		c.logger.Info("Quota available again, tearing down sinkhole")
		err := c.sinkhole.Teardown()
		if err != nil {
			c.logger.Error("Failed to tear down sinkhole, will retry on next status: %v", err)
		} else {
			c.active = false
		}
		c.recorder.RecordTransition("teardown", err, c.active)
	}

	return c.active
}

// Active reports the controller's view of the sinkhole
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Shutdown tears the sinkhole down if the controller believes it is up
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return nil
	}
	err := c.sinkhole.Teardown()
	if err == nil {
		c.active = false
	}
	c.recorder.RecordTransition("teardown", err, c.active)
	return err
}
