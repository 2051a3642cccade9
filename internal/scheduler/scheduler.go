// Package scheduler runs the periodic, read-only reconciliation audit.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/leaderboard"
)

// Auditor compares participant running totals with the archive
type Auditor interface {
	Reconcile(ctx context.Context, repair bool) (*leaderboard.ReconcileReport, error)
}

// Scheduler manages scheduled audit jobs
type Scheduler struct {
	cron       *cron.Cron
	auditor    Auditor
	logger     *logrus.Entry
	mu         sync.RWMutex
	isRunning  bool
	jobIDs     []cron.EntryID
	jobTimeout time.Duration
	lastReport *leaderboard.ReconcileReport
}

// NewScheduler creates a new scheduler
func NewScheduler(auditor Auditor, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		auditor:    auditor,
		logger:     logger.WithField("component", "scheduler"),
		jobIDs:     make([]cron.EntryID, 0),
		jobTimeout: 5 * time.Minute,
	}
}

// ScheduleReconciliation schedules the audit with a standard cron expression or descriptor such as "@every 1h".
// The scheduled audit never repairs; repairs are an operator action.
func (s *Scheduler) ScheduleReconciliation(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		if _, err := s.RunAudit(ctx); err != nil {
			s.logger.WithError(err).Error("Scheduled reconciliation failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled reconciliation audit")
	return nil
}

// RunAudit runs one audit immediately and keeps its report
func (s *Scheduler) RunAudit(ctx context.Context) (*leaderboard.ReconcileReport, error) {
	report, err := s.auditor.Reconcile(ctx, false)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	if len(report.Discrepancies) > 0 {
		s.logger.WithField("discrepancies", len(report.Discrepancies)).
			Warn("Participant totals disagree with the archive; run poolctl reconcile --repair")
	}
	return report, nil
}

// LastReport returns the most recent audit report, if any
func (s *Scheduler) LastReport() *leaderboard.ReconcileReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop waits for running jobs and stops the scheduler
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
			}
		}
	}

	return nextRun
}
