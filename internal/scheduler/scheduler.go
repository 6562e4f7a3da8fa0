package scheduler

import (
	"database/sql"
	"sync"
	"time"

	"github.com/carpenike/repcoach/internal/logger"
	"github.com/carpenike/repcoach/internal/models"
)

// Status holds the result of the last maintenance run.
type Status struct {
	LastRun       time.Time `json:"lastRun"`
	NextRun       time.Time `json:"nextRun"`
	RunsPruned    int64     `json:"runsPruned"`
	IntervalHours int       `json:"intervalHours"`
	RetentionDays int       `json:"retentionDays"`
}

// Scheduler runs periodic maintenance tasks in the background.
type Scheduler struct {
	db   *sql.DB
	log  *logger.Logger
	stop chan struct{}
	done chan struct{}
	now  func() time.Time

	mu     sync.RWMutex
	status Status
}

// New creates a new Scheduler for the given database.
func New(db *sql.DB, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		db:   db,
		log:  log,
		stop: make(chan struct{}),
		done: make(chan struct{}),
		now:  time.Now,
	}
}

// Start begins running maintenance tasks. It runs an initial pass immediately,
// then repeats at the configured interval. Call Stop to shut down gracefully.
func (s *Scheduler) Start() {
	go s.run()
	s.log.Info("background scheduler started")
}

// Stop signals the scheduler to shut down and waits for it to finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
}

// Status returns the result of the last maintenance run.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Scheduler) run() {
	defer close(s.done)

	// Run immediately on startup, then at the configured interval.
	s.runMaintenance()

	for {
		// The interval is re-read each cycle so setting changes apply
		// without a restart.
		timer := time.NewTimer(s.getInterval())

		select {
		case <-timer.C:
			s.runMaintenance()
		case <-s.stop:
			timer.Stop()
			return
		}
	}
}

// getInterval reads the configured interval from app settings.
func (s *Scheduler) getInterval() time.Duration {
	hours := models.GetMaintenanceIntervalHours(s.db)
	return time.Duration(hours) * time.Hour
}

// getRetention reads the configured retention period from app settings.
func (s *Scheduler) getRetention() time.Duration {
	days := models.GetMaintenanceRetentionDays(s.db)
	return time.Duration(days) * 24 * time.Hour
}

// runMaintenance executes all periodic cleanup tasks.
func (s *Scheduler) runMaintenance() {
	s.log.Debug("running scheduled maintenance")

	pruned := s.pruneGenerationRuns()

	now := s.now()
	s.mu.Lock()
	s.status = Status{
		LastRun:       now,
		NextRun:       now.Add(s.getInterval()),
		RunsPruned:    pruned,
		IntervalHours: models.GetMaintenanceIntervalHours(s.db),
		RetentionDays: models.GetMaintenanceRetentionDays(s.db),
	}
	s.mu.Unlock()

	s.log.Debug("scheduled maintenance complete", "runs_pruned", pruned)
}

// pruneGenerationRuns removes generation runs older than the retention period.
func (s *Scheduler) pruneGenerationRuns() int64 {
	cutoff := s.now().Add(-s.getRetention())
	deleted, err := models.DeleteGenerationRunsBefore(s.db, cutoff)
	if err != nil {
		s.log.Error("maintenance: prune generation runs", "error", err)
		return 0
	}
	if deleted > 0 {
		s.log.Info("maintenance: pruned generation runs", "count", deleted, "cutoff", cutoff.Format(time.DateOnly))
	}
	return deleted
}
