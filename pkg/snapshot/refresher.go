package snapshot

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mklimuk/orbit/pkg/db"
	"github.com/mklimuk/orbit/pkg/project"
)

// HistoryRecorder stores one stats row per published snapshot.
type HistoryRecorder interface {
	InsertStats(rec db.StatsRecord) error
}

// Refresher reloads the snapshot on an interval and serves the last good
// one to readers.
type Refresher struct {
	loader   *Loader
	history  HistoryRecorder
	interval time.Duration
	timeout  time.Duration

	mu      sync.RWMutex
	current *Snapshot
	lastErr error

	refreshMu sync.Mutex
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewRefresher creates a Refresher. history may be nil.
func NewRefresher(loader *Loader, history HistoryRecorder, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Refresher{
		loader:   loader,
		history:  history,
		interval: interval,
		timeout:  2 * time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// Start loads once and then keeps refreshing until Stop.
func (r *Refresher) Start() {
	if err := r.Refresh(context.Background()); err != nil {
		log.Printf("Snapshot initial refresh error: %v", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := r.Refresh(context.Background()); err != nil {
					log.Printf("Snapshot refresh error: %v", err)
				}
			case <-r.stopCh:
				return
			}
		}
	}()
}

// Stop stops the refresh loop and waits for it to exit.
func (r *Refresher) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

// Refresh loads a new snapshot now. On failure the previous snapshot stays
// published. Concurrent calls are serialized.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	snap, err := r.loader.Load(ctx)
	r.mu.Lock()
	r.lastErr = err
	if err == nil {
		r.current = snap
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}

	log.Printf("Snapshot refreshed: %d tasks, %d rejected", len(snap.Tasks), snap.Rejected)
	if r.history != nil {
		stats := project.ComputeStats(snap.Tasks, snap.TakenAt)
		rec := db.StatsRecord{
			TakenAt:        snap.TakenAt,
			Total:          stats.TotalTasks,
			Completed:      stats.CompletedTasks,
			InProgress:     stats.InProgressTasks,
			Overdue:        stats.OverdueTasks,
			Upcoming:       stats.UpcomingDeadlines,
			CompletionRate: stats.CompletionRate,
			Rejected:       snap.Rejected,
		}
		if err := r.history.InsertStats(rec); err != nil {
			log.Printf("Snapshot: failed to record stats history: %v", err)
		}
	}
	return nil
}

// Current returns the last published snapshot, or nil before the first
// successful load.
func (r *Refresher) Current() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// LastError is the error of the most recent refresh, nil if it succeeded.
func (r *Refresher) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}
