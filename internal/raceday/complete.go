package raceday

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/banker-pool/internal/lock"
	"github.com/yourusername/banker-pool/internal/metrics"
	"github.com/yourusername/banker-pool/internal/models"
	"github.com/yourusername/banker-pool/internal/repository"
)

// CompleteDay archives a race day and credits every participant's running total with the day's score.
//
// The steps run in an order that makes a retry after a crash converge: participants are credited
// (a set, not an add), the index entry is upserted, and only then is the day record itself written
// as completed. Completing an already completed day returns the archived result and changes nothing.
func (s *Service) CompleteDay(ctx context.Context, date string) (*CompletionResult, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lock.DayKey(date))
	if err != nil {
		return nil, fmt.Errorf("failed to lock race day %s: %w", date, err)
	}
	defer unlock()

	day, err := s.loadDay(ctx, s.writes, date)
	if err != nil {
		return nil, err
	}

	if day.IsCompleted() {
		s.audit.LogCompletionReplayed(date)
		metrics.RecordDayCompleted(true)
		return s.archivedResult(ctx, day)
	}

	if err := s.recompute(ctx, day); err != nil {
		return nil, err
	}
	now := s.now()

	for _, score := range sortedScoreIDs(day.Scores) {
		if err := s.creditParticipant(ctx, date, score, now); err != nil {
			return nil, err
		}
	}

	summary := models.NewDaySummary(day, now)
	if err := s.upsertIndex(ctx, summary, now); err != nil {
		return nil, err
	}

	archiveID := uuid.New()
	day.Status = models.DayStatusCompleted
	day.ArchiveID = &archiveID
	day.CompletedAt = &now
	day.UpdatedAt = now
	if err := s.writes.RaceDays.Save(ctx, day); err != nil {
		return nil, err
	}

	if err := s.clearPointerIf(ctx, date); err != nil {
		return nil, err
	}

	s.audit.LogDayCompleted(date, archiveID, len(day.Scores), summary.TopScore, now)
	metrics.RecordDayCompleted(false)
	metrics.UpdateOpenDayParticipants(0)
	s.notify(day)

	return &CompletionResult{
		Date:      date,
		ArchiveID: archiveID,
		Scores:    day.Scores,
		Summary:   summary,
	}, nil
}

func (s *Service) archivedResult(ctx context.Context, day *models.RaceDay) (*CompletionResult, error) {
	result := &CompletionResult{
		Date:             day.Date,
		Scores:           day.Scores,
		AlreadyCompleted: true,
	}
	if day.ArchiveID != nil {
		result.ArchiveID = *day.ArchiveID
	}

	idx, err := s.writes.Index.Get(ctx)
	if err != nil {
		return nil, err
	}
	for _, summary := range idx.Days {
		if summary.Date == day.Date {
			result.Summary = summary
			return result, nil
		}
	}

	completedAt := day.UpdatedAt
	if day.CompletedAt != nil {
		completedAt = *day.CompletedAt
	}
	result.Summary = models.NewDaySummary(day, completedAt)
	return result, nil
}

// creditParticipant folds one day's score into a participant record
func (s *Service) creditParticipant(ctx context.Context, date string, score models.DailyScore, now time.Time) error {
	unlock, err := s.locker.Lock(ctx, lock.ParticipantKey(score.ParticipantID))
	if err != nil {
		return fmt.Errorf("failed to lock participant %s: %w", score.ParticipantID, err)
	}
	defer unlock()

	p, err := s.writes.Participants.Get(ctx, score.ParticipantID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		// Wagers recorded before the participant was registered still earn credit.
		p = &models.Participant{
			ID:        score.ParticipantID,
			Name:      score.ParticipantName,
			Days:      make(map[string]models.DayCredit),
			CreatedAt: now,
		}
	}

	p.Credit(date, score)
	p.UpdatedAt = now
	return s.writes.Participants.Save(ctx, p)
}

func (s *Service) upsertIndex(ctx context.Context, summary models.DaySummary, now time.Time) error {
	unlock, err := s.locker.Lock(ctx, lock.IndexKey)
	if err != nil {
		return fmt.Errorf("failed to lock race day index: %w", err)
	}
	defer unlock()

	idx, err := s.writes.Index.Get(ctx)
	if err != nil {
		return err
	}
	idx.Upsert(summary)
	idx.LastUpdated = now
	return s.writes.Index.Save(ctx, idx)
}

// setPointer makes date the current day
func (s *Service) setPointer(ctx context.Context, date string, now time.Time) error {
	unlock, err := s.locker.Lock(ctx, lock.PointerKey)
	if err != nil {
		return fmt.Errorf("failed to lock current day pointer: %w", err)
	}
	defer unlock()

	return s.writes.Pointer.Set(ctx, date, now)
}

// clearPointerIf removes the current-day pointer only while it still names date
func (s *Service) clearPointerIf(ctx context.Context, date string) error {
	unlock, err := s.locker.Lock(ctx, lock.PointerKey)
	if err != nil {
		return fmt.Errorf("failed to lock current day pointer: %w", err)
	}
	defer unlock()

	ptr, err := s.writes.Pointer.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if ptr.Date != date {
		return nil
	}
	return s.writes.Pointer.Clear(ctx)
}
