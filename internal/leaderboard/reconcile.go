package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/lock"
	"github.com/yourusername/banker-pool/internal/logger"
	"github.com/yourusername/banker-pool/internal/metrics"
	"github.com/yourusername/banker-pool/internal/models"
	"github.com/yourusername/banker-pool/internal/repository"
)

// Discrepancy is a participant whose running total disagrees with the archive
type Discrepancy struct {
	ParticipantID string   `json:"participant_id"`
	RecordedTotal int      `json:"recorded_total"`
	ExpectedTotal int      `json:"expected_total"`
	MissingDates  []string `json:"missing_dates,omitempty"`
	ExtraDates    []string `json:"extra_dates,omitempty"`
	ChangedDates  []string `json:"changed_dates,omitempty"`
}

// ReconcileReport is the outcome of comparing participant records with the archive
type ReconcileReport struct {
	Checked       int           `json:"checked"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	Repaired      bool          `json:"repaired"`
	CheckedAt     time.Time     `json:"checked_at"`
}

// Reconciler audits participant running totals against archived day scores
type Reconciler struct {
	reads  *repository.Repositories
	writes *repository.Repositories
	locker lock.Locker
	log    *logrus.Entry
	scores *logger.ScoringLogger
	now    func() time.Time
}

// NewReconciler creates a reconciler. writes and locker are only used when repairing.
func NewReconciler(reads, writes *repository.Repositories, locker lock.Locker, log *logrus.Logger) *Reconciler {
	return &Reconciler{
		reads:  reads,
		writes: writes,
		locker: locker,
		log:    log.WithField("component", "reconcile"),
		scores: logger.NewScoringLogger(log),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile compares every participant's day credits with the archive.
// With repair set, mismatched participants have their credits rewritten from the archive.
func (r *Reconciler) Reconcile(ctx context.Context, repair bool) (*ReconcileReport, error) {
	days, err := archivedDays(ctx, r.reads, r.log)
	if err != nil {
		return nil, err
	}
	expected, names := archivedCredits(days)

	participants, err := r.reads.Participants.List(ctx)
	if err != nil {
		return nil, err
	}
	recorded := make(map[string]*models.Participant, len(participants))
	for _, p := range participants {
		recorded[p.ID] = p
	}

	ids := make([]string, 0, len(recorded)+len(expected))
	seen := make(map[string]bool)
	for id := range recorded {
		ids = append(ids, id)
		seen[id] = true
	}
	for id := range expected {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	report := &ReconcileReport{Checked: len(ids), Discrepancies: []Discrepancy{}, CheckedAt: r.now()}
	for _, id := range ids {
		var (
			credits map[string]models.DayCredit
			total   int
		)
		if p := recorded[id]; p != nil {
			credits = p.Days
			total = p.TotalScore
		}
		if d, ok := compareCredits(id, total, credits, expected[id]); ok {
			report.Discrepancies = append(report.Discrepancies, d)
		}
	}

	if repair {
		for _, d := range report.Discrepancies {
			if err := r.repair(ctx, d, names[d.ParticipantID]); err != nil {
				return nil, err
			}
		}
		report.Repaired = true
	}

	r.scores.LogReconciliation(report.Checked, len(report.Discrepancies), report.Repaired)
	if repair {
		metrics.UpdateReconciliationDiscrepancies(0)
	} else {
		metrics.UpdateReconciliationDiscrepancies(len(report.Discrepancies))
	}
	return report, nil
}

// repair settles each disputed date under that day's lock, so a completion in flight
// either finishes before the date is judged or has not started yet.
func (r *Reconciler) repair(ctx context.Context, d Discrepancy, name string) error {
	dates := make([]string, 0, len(d.MissingDates)+len(d.ExtraDates)+len(d.ChangedDates))
	dates = append(dates, d.MissingDates...)
	dates = append(dates, d.ExtraDates...)
	dates = append(dates, d.ChangedDates...)
	sort.Strings(dates)

	for _, date := range dates {
		if err := r.repairDate(ctx, d.ParticipantID, name, date); err != nil {
			return err
		}
	}
	if len(dates) == 0 {
		// Only the stored total drifted from its day credits.
		return r.updateParticipant(ctx, d.ParticipantID, name, false, func(*models.Participant) {})
	}
	return nil
}

func (r *Reconciler) repairDate(ctx context.Context, id, name, date string) error {
	unlock, err := r.locker.Lock(ctx, lock.DayKey(date))
	if err != nil {
		return fmt.Errorf("failed to lock race day %s: %w", date, err)
	}
	defer unlock()

	credit, archived, err := r.archivedCredit(ctx, id, date)
	if err != nil {
		return err
	}
	return r.updateParticipant(ctx, id, name, archived, func(p *models.Participant) {
		if archived {
			p.Days[date] = credit
			return
		}
		delete(p.Days, date)
	})
}

// archivedCredit reads what a completed day credits a participant with, straight from the day record
func (r *Reconciler) archivedCredit(ctx context.Context, id, date string) (models.DayCredit, bool, error) {
	day, err := r.writes.RaceDays.Get(ctx, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.DayCredit{}, false, nil
		}
		return models.DayCredit{}, false, err
	}
	if !day.IsCompleted() {
		return models.DayCredit{}, false, nil
	}
	credits, _ := archivedCredits([]*models.RaceDay{day})
	credit, ok := credits[id][date]
	return credit, ok, nil
}

// updateParticipant applies fn to the participant under its lock and saves the recalculated record.
// A missing participant is only created when create is set.
func (r *Reconciler) updateParticipant(ctx context.Context, id, name string, create bool, fn func(p *models.Participant)) error {
	unlock, err := r.locker.Lock(ctx, lock.ParticipantKey(id))
	if err != nil {
		return fmt.Errorf("failed to lock participant %s: %w", id, err)
	}
	defer unlock()

	now := r.now()
	p, err := r.writes.Participants.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if !create {
			return nil
		}
		if name == "" {
			name = id
		}
		p = &models.Participant{ID: id, Name: name, CreatedAt: now}
	}
	if p.Days == nil {
		p.Days = make(map[string]models.DayCredit)
	}

	fn(p)
	p.Recalculate()
	p.UpdatedAt = now

	r.log.WithFields(logrus.Fields{
		"participant_id": id,
		"total_score":    p.TotalScore,
	}).Info("Participant credits rewritten from archive")
	return r.writes.Participants.Save(ctx, p)
}

// compareCredits reports a discrepancy when the dates, the per-day credits or the stored total disagree
func compareCredits(id string, recordedTotal int, recorded, expected map[string]models.DayCredit) (Discrepancy, bool) {
	d := Discrepancy{ParticipantID: id, RecordedTotal: recordedTotal}
	for date, want := range expected {
		d.ExpectedTotal += want.Score
		got, ok := recorded[date]
		switch {
		case !ok:
			d.MissingDates = append(d.MissingDates, date)
		case got != want:
			d.ChangedDates = append(d.ChangedDates, date)
		}
	}
	sum := 0
	for date, got := range recorded {
		sum += got.Score
		if _, ok := expected[date]; !ok {
			d.ExtraDates = append(d.ExtraDates, date)
		}
	}

	if len(d.MissingDates)+len(d.ExtraDates)+len(d.ChangedDates) == 0 && sum == recordedTotal {
		return Discrepancy{}, false
	}
	sort.Strings(d.MissingDates)
	sort.Strings(d.ExtraDates)
	sort.Strings(d.ChangedDates)
	return d, true
}
