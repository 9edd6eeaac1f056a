// Package scheduler runs periodic background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"linkstash/internal/entities"
)

// sweepBatchSize caps how many stuck rows one sweep will enqueue.
const sweepBatchSize = 50

// StuckStore lists rows that never reached a terminal state: PENDING rows
// a cancelled import left behind, and PROCESSING rows orphaned mid-fetch.
type StuckStore interface {
	ListStuckOlderThan(age time.Duration, limit int) ([]entities.SavedItem, error)
}

// ScrapeEnqueuer schedules a fetch-and-populate task for one item.
type ScrapeEnqueuer interface {
	EnqueueScrapeItem(ctx context.Context, itemID, userID uint) error
}

// SweepConfig controls the pending sweep scheduler.
type SweepConfig struct {
	Enabled  bool
	Schedule string
	MinAge   time.Duration
}

// PendingSweepScheduler periodically re-enqueues items stuck in a
// non-terminal state: PENDING rows left behind by a cancelled bulk import,
// and PROCESSING rows orphaned when a fetch was cancelled mid-flight or the
// process crashed before the terminal write.
type PendingSweepScheduler struct {
	store    StuckStore
	enqueuer ScrapeEnqueuer
	config   SweepConfig

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
	cancelFunc context.CancelFunc
}

// NewPendingSweepScheduler creates a new scheduler instance.
func NewPendingSweepScheduler(store StuckStore, enqueuer ScrapeEnqueuer, config SweepConfig) *PendingSweepScheduler {
	return &PendingSweepScheduler{
		store:    store,
		enqueuer: enqueuer,
		config:   config,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if the sweep is enabled.
func (s *PendingSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		log.Printf("Pending sweep scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pending sweep '%s': %w", s.config.Schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Pending sweep scheduler: started with schedule '%s'", s.config.Schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *PendingSweepScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	// Release the watcher goroutine started alongside the cron loop.
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Pending sweep scheduler: stopped")
}

// RunNow triggers an immediate sweep.
func (s *PendingSweepScheduler) RunNow() error {
	go s.runSweep()
	return nil
}

// IsRunning returns whether the scheduler is active.
func (s *PendingSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsSweeping returns whether a sweep is currently in progress.
func (s *PendingSweepScheduler) IsSweeping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSweeping
}

// GetNextRunTime returns when the next sweep will occur.
func (s *PendingSweepScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runSweep enqueues a scrape task for each stuck PENDING row.
func (s *PendingSweepScheduler) runSweep() {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		log.Printf("Pending sweep: skipped (already sweeping)")
		return
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	items, err := s.store.ListStuckOlderThan(s.config.MinAge, sweepBatchSize)
	if err != nil {
		log.Printf("Pending sweep: failed to list stuck items: %v", err)
		return
	}

	if len(items) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	enqueued := 0
	for _, item := range items {
		if err := s.enqueuer.EnqueueScrapeItem(ctx, item.ID, item.UserID); err != nil {
			log.Printf("Pending sweep: failed to enqueue item %d: %v", item.ID, err)
			continue
		}
		enqueued++
	}

	log.Printf("Pending sweep: enqueued %d of %d stuck items", enqueued, len(items))
}
