package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkstash/internal/entities"
)

type fakeStuckStore struct {
	items []entities.SavedItem
	err   error

	mu     sync.Mutex
	minAge time.Duration
	limit  int
}

func (s *fakeStuckStore) ListStuckOlderThan(age time.Duration, limit int) ([]entities.SavedItem, error) {
	s.mu.Lock()
	s.minAge = age
	s.limit = limit
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

type fakeScrapeEnqueuer struct {
	mu      sync.Mutex
	itemIDs []uint
	failFor map[uint]bool
}

func (e *fakeScrapeEnqueuer) EnqueueScrapeItem(ctx context.Context, itemID, userID uint) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failFor[itemID] {
		return errors.New("queue unavailable")
	}
	e.itemIDs = append(e.itemIDs, itemID)
	return nil
}

func (e *fakeScrapeEnqueuer) enqueued() []uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]uint(nil), e.itemIDs...)
}

func TestStartStop(t *testing.T) {
	store := &fakeStuckStore{}
	enqueuer := &fakeScrapeEnqueuer{}
	scheduler := NewPendingSweepScheduler(store, enqueuer, SweepConfig{
		Enabled:  true,
		Schedule: "*/10 * * * *",
		MinAge:   30 * time.Minute,
	})

	assert.False(t, scheduler.IsRunning())
	assert.Nil(t, scheduler.GetNextRunTime())

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())
	require.NotNil(t, scheduler.GetNextRunTime())
	assert.True(t, scheduler.GetNextRunTime().After(time.Now()))

	// Starting twice is a no-op.
	require.NoError(t, scheduler.Start(context.Background()))

	scheduler.Stop()
	assert.False(t, scheduler.IsRunning())
}

func TestStartDisabled(t *testing.T) {
	scheduler := NewPendingSweepScheduler(&fakeStuckStore{}, &fakeScrapeEnqueuer{}, SweepConfig{
		Enabled: false,
	})

	require.NoError(t, scheduler.Start(context.Background()))
	assert.False(t, scheduler.IsRunning())
}

func TestStartInvalidSchedule(t *testing.T) {
	scheduler := NewPendingSweepScheduler(&fakeStuckStore{}, &fakeScrapeEnqueuer{}, SweepConfig{
		Enabled:  true,
		Schedule: "not-a-schedule",
	})

	err := scheduler.Start(context.Background())
	require.Error(t, err)
	assert.False(t, scheduler.IsRunning())
}

func TestStopCancelsWatcherContext(t *testing.T) {
	scheduler := NewPendingSweepScheduler(&fakeStuckStore{}, &fakeScrapeEnqueuer{}, SweepConfig{
		Enabled:  true,
		Schedule: "*/10 * * * *",
	})

	require.NoError(t, scheduler.Start(context.Background()))
	scheduler.mu.RLock()
	require.NotNil(t, scheduler.cancelFunc)
	scheduler.mu.RUnlock()

	scheduler.Stop()

	// Stop cancels the derived context so the watcher goroutine exits.
	scheduler.mu.RLock()
	assert.Nil(t, scheduler.cancelFunc)
	scheduler.mu.RUnlock()
}

func TestStopOnContextCancel(t *testing.T) {
	scheduler := NewPendingSweepScheduler(&fakeStuckStore{}, &fakeScrapeEnqueuer{}, SweepConfig{
		Enabled:  true,
		Schedule: "*/10 * * * *",
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))
	require.True(t, scheduler.IsRunning())

	cancel()

	require.Eventually(t, func() bool {
		return !scheduler.IsRunning()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunSweepEnqueuesStuckItems(t *testing.T) {
	store := &fakeStuckStore{items: []entities.SavedItem{
		{ID: 7, UserID: 1},
		{ID: 9, UserID: 1},
		{ID: 11, UserID: 2},
	}}
	enqueuer := &fakeScrapeEnqueuer{}
	scheduler := NewPendingSweepScheduler(store, enqueuer, SweepConfig{
		Enabled: true,
		MinAge:  30 * time.Minute,
	})

	scheduler.runSweep()

	assert.Equal(t, []uint{7, 9, 11}, enqueuer.enqueued())
	assert.Equal(t, 30*time.Minute, store.minAge)
	assert.Equal(t, sweepBatchSize, store.limit)
	assert.False(t, scheduler.IsSweeping())
}

func TestRunSweepRecoversCancelledImportRows(t *testing.T) {
	// A cancelled run strands its in-flight row as PROCESSING next to the
	// un-started PENDING ones; the sweep re-enqueues both kinds.
	store := &fakeStuckStore{items: []entities.SavedItem{
		{ID: 4, UserID: 1, Status: entities.ItemStatusProcessing},
		{ID: 5, UserID: 1, Status: entities.ItemStatusPending},
	}}
	enqueuer := &fakeScrapeEnqueuer{}
	scheduler := NewPendingSweepScheduler(store, enqueuer, SweepConfig{Enabled: true})

	scheduler.runSweep()

	assert.Equal(t, []uint{4, 5}, enqueuer.enqueued())
}

func TestRunSweepContinuesPastEnqueueFailures(t *testing.T) {
	store := &fakeStuckStore{items: []entities.SavedItem{
		{ID: 1, UserID: 1},
		{ID: 2, UserID: 1},
		{ID: 3, UserID: 1},
	}}
	enqueuer := &fakeScrapeEnqueuer{failFor: map[uint]bool{2: true}}
	scheduler := NewPendingSweepScheduler(store, enqueuer, SweepConfig{Enabled: true})

	scheduler.runSweep()

	assert.Equal(t, []uint{1, 3}, enqueuer.enqueued())
}

func TestRunSweepWithNothingStuck(t *testing.T) {
	store := &fakeStuckStore{}
	enqueuer := &fakeScrapeEnqueuer{}
	scheduler := NewPendingSweepScheduler(store, enqueuer, SweepConfig{Enabled: true})

	scheduler.runSweep()

	assert.Empty(t, enqueuer.enqueued())
}

func TestRunSweepStoreFailure(t *testing.T) {
	store := &fakeStuckStore{err: errors.New("database locked")}
	enqueuer := &fakeScrapeEnqueuer{}
	scheduler := NewPendingSweepScheduler(store, enqueuer, SweepConfig{Enabled: true})

	scheduler.runSweep()

	assert.Empty(t, enqueuer.enqueued())
	assert.False(t, scheduler.IsSweeping())
}

func TestRunNow(t *testing.T) {
	store := &fakeStuckStore{items: []entities.SavedItem{{ID: 5, UserID: 1}}}
	enqueuer := &fakeScrapeEnqueuer{}
	scheduler := NewPendingSweepScheduler(store, enqueuer, SweepConfig{Enabled: true})

	require.NoError(t, scheduler.RunNow())

	require.Eventually(t, func() bool {
		return len(enqueuer.enqueued()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []uint{5}, enqueuer.enqueued())
}
