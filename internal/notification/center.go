// Package notification renders status notifications and fans them out to sinks.
package notification

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/osa911/datacap/internal/broadcast"
	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/models"
)

// Sink delivers notifications somewhere (log, chat, desktop)
type Sink interface {
	Name() string
	Send(ctx context.Context, content Content) error
}

// Center keeps the latest notification and forwards it to every sink.
// Notify never blocks: each sink runs in its own goroutine and only sees the
// newest content if it falls behind.
type Center struct {
	latest *broadcast.Broadcaster[Content]
	sinks  []Sink
	logger *logging.Logger
}

// NewCenter creates a center delivering to sinks
func NewCenter(sinks ...Sink) *Center {
	return &Center{
		latest: broadcast.New[Content](),
		sinks:  sinks,
		logger: logging.GetGlobalLogger(),
	}
}

// Notify renders status and publishes it
func (c *Center) Notify(status *models.DataStatus) {
	c.latest.Publish(Build(status))
}

// Latest returns the current notification, or the initializing placeholder
func (c *Center) Latest() Content {
	if content, ok := c.latest.Latest(); ok {
		return content
	}
	return Build(nil)
}

// Run delivers notifications to the sinks until ctx is done
func (c *Center) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, sink := range c.sinks {
		sink := sink
		updates := c.latest.Subscribe(gctx)
		g.Go(func() error {
			for content := range updates {
				if err := sink.Send(gctx, content); err != nil {
					c.logger.Warn("Notification sink %s failed: %v", sink.Name(), err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// LogSink writes notifications to the log. Changes of the blocked state are
// logged at info level, everything else at debug.
type LogSink struct {
	logger  *logging.Logger
	blocked *bool
}

// NewLogSink creates a log sink
func NewLogSink() *LogSink {
	return &LogSink{logger: logging.GetGlobalLogger()}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, content Content) error {
	if !content.Ready {
		s.logger.Debug("[notification] %s", content.Text)
		return nil
	}

	if s.blocked == nil || *s.blocked != content.IsBlocked {
		blocked := content.IsBlocked
		s.blocked = &blocked
		s.logger.Info("[notification] %s | %v", content.Text, content.Lines)
		return nil
	}

	s.logger.Debug("[notification] %s", content.Text)
	return nil
}
