package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/repository"
)

// BucketCleanup handles periodic deletion of old traffic buckets
type BucketCleanup struct {
	repo      repository.TrafficRepository
	retention time.Duration
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewBucketCleanup creates a new bucket cleanup task
func NewBucketCleanup(repo repository.TrafficRepository, retention time.Duration) *BucketCleanup {
	return &BucketCleanup{
		repo:      repo,
		retention: retention,
		done:      make(chan struct{}),
	}
}

// Start begins the cleanup task in the background
func (bc *BucketCleanup) Start() {
	bc.wg.Add(1)
	go bc.runPeriodically()
}

// Stop gracefully stops the cleanup task
func (bc *BucketCleanup) Stop() {
	close(bc.done)
	bc.wg.Wait()
}

func (bc *BucketCleanup) runPeriodically() {
	defer bc.wg.Done()

	// Run immediately on startup
	bc.cleanup()

	// Then run every 12 hours
	ticker := time.NewTicker(12 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bc.cleanup()
		case <-bc.done:
			return
		}
	}
}

func (bc *BucketCleanup) cleanup() {
	logger := logging.GetGlobalLogger()

	deleted, err := bc.repo.DeleteOlderThan(context.Background(), time.Now().Add(-bc.retention))
	if err != nil {
		logger.Error("Traffic bucket cleanup failed: %v", err)
		return
	}
	logger.Info("Deleted %d traffic buckets older than %s", deleted, bc.retention)
}
