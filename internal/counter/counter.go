// Package counter samples how many bytes the device transferred since a point in time.
package counter

import (
	"context"
	"time"

	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/repository"
)

// Source is the OS traffic counter the accumulator reads from
type Source interface {
	// QuerySince returns the inbound+outbound bytes counted in [sinceMs, now)
	QuerySince(ctx context.Context, sinceMs int64) (uint64, error)
}

// FailureRecorder is notified of every failed sample
type FailureRecorder interface {
	SampleFailed()
}

// Accumulator wraps a Source and turns its failures into zero readings
type Accumulator struct {
	source  Source
	logger  *logging.Logger
	metrics FailureRecorder
}

// NewAccumulator creates an accumulator over source. metrics may be nil.
func NewAccumulator(source Source, metrics FailureRecorder) *Accumulator {
	return &Accumulator{
		source:  source,
		logger:  logging.GetGlobalLogger(),
		metrics: metrics,
	}
}

// Sample returns the bytes used since sinceMs, or 0 if the source failed
func (a *Accumulator) Sample(ctx context.Context, sinceMs int64) uint64 {
	bytes, err := a.source.QuerySince(ctx, sinceMs)
	if err != nil {
		a.logger.Warn("Traffic counter unavailable, reading 0: %v", err)
		if a.metrics != nil {
			a.metrics.SampleFailed()
		}
		return 0
	}
	return bytes
}

// BucketSource answers queries from the persisted traffic buckets
type BucketSource struct {
	repo  repository.TrafficRepository
	width time.Duration
}

// NewBucketSource creates a source over buckets of the given width
func NewBucketSource(repo repository.TrafficRepository, width time.Duration) *BucketSource {
	return &BucketSource{repo: repo, width: width}
}

// QuerySince sums every bucket overlapping [sinceMs, now)
func (s *BucketSource) QuerySince(ctx context.Context, sinceMs int64) (uint64, error) {
	return s.repo.SumSince(ctx, sinceMs, s.width)
}
