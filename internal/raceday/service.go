// Package raceday implements the race day lifecycle: opening a day, taking wagers and bankers,
// posting winners, recomputing scores and archiving a completed day.
package raceday

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/catalog"
	"github.com/yourusername/banker-pool/internal/lock"
	"github.com/yourusername/banker-pool/internal/logger"
	"github.com/yourusername/banker-pool/internal/metrics"
	"github.com/yourusername/banker-pool/internal/models"
	"github.com/yourusername/banker-pool/internal/repository"
	"github.com/yourusername/banker-pool/internal/scoring"
)

// ScoreListener is notified after a day's scores have been persisted
type ScoreListener func(day *models.RaceDay)

// CompletionResult describes an archived race day
type CompletionResult struct {
	Date             string              `json:"date"`
	ArchiveID        uuid.UUID           `json:"archive_id"`
	Scores           []models.DailyScore `json:"scores"`
	Summary          models.DaySummary   `json:"summary"`
	AlreadyCompleted bool                `json:"already_completed"`
}

// Service runs race day operations. Mutations read and write through writes under the
// per-day lock; plain lookups go through reads, which may serve a slightly stale snapshot.
type Service struct {
	writes *repository.Repositories
	reads  *repository.Repositories
	locker lock.Locker
	engine *scoring.Engine
	audit  *logger.AuditLogger
	scores *logger.ScoringLogger
	now    func() time.Time

	listenersMu sync.RWMutex
	listeners   []ScoreListener
}

// NewService creates a race day service
func NewService(writes, reads *repository.Repositories, locker lock.Locker, engine *scoring.Engine, log *logrus.Logger) *Service {
	return &Service{
		writes: writes,
		reads:  reads,
		locker: locker,
		engine: engine,
		audit:  logger.NewAuditLogger(log),
		scores: logger.NewScoringLogger(log),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// OnScoresChanged registers a listener for recomputed scores
func (s *Service) OnScoresChanged(fn ScoreListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Service) notify(day *models.RaceDay) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	for _, fn := range s.listeners {
		fn(day)
	}
}

// OpenNewDay creates an open race day and makes it the current day
func (s *Service) OpenNewDay(ctx context.Context, date string, races []models.Race) (*models.RaceDay, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if err := catalog.ValidateRaces(races); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, lock.DayKey(date))
	if err != nil {
		return nil, fmt.Errorf("failed to lock race day %s: %w", date, err)
	}
	defer unlock()

	exists, err := s.writes.RaceDays.Exists(ctx, date)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError(models.CodeDuplicateDay, fmt.Sprintf("race day %s already exists", date))
	}

	now := s.now()
	day := models.NewRaceDay(date, races, now)
	if err := s.writes.RaceDays.Save(ctx, day); err != nil {
		return nil, err
	}
	if err := s.setPointer(ctx, date, now); err != nil {
		return nil, err
	}

	s.audit.LogDayOpened(date, len(day.Races))
	metrics.RecordDayOpened()
	metrics.UpdateOpenDayParticipants(0)
	return day, nil
}

// OpenFromCatalog fetches the race card for date from src and opens the day
func (s *Service) OpenFromCatalog(ctx context.Context, date string, src catalog.Source) (*models.RaceDay, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	races, err := src.FetchRaces(ctx, date)
	if err != nil {
		var pe *models.PoolError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, fmt.Errorf("failed to fetch races from %s: %w", src.Name(), err)
	}
	return s.OpenNewDay(ctx, date, races)
}

// PlaceWager records a participant's horse for a race, replacing any earlier wager on it
func (s *Service) PlaceWager(ctx context.Context, date, participantID, raceID string, horse int) (*models.RaceDay, error) {
	if err := s.requireParticipant(ctx, participantID); err != nil {
		return nil, err
	}

	var previous int
	day, err := s.mutate(ctx, date, func(day *models.RaceDay) error {
		race, err := openRace(day, raceID)
		if err != nil {
			return err
		}
		if _, ok := race.FindHorse(horse); !ok {
			return models.NewValidationError(models.CodeHorseNotInRace,
				fmt.Sprintf("horse %d is not running in race %s", horse, raceID))
		}
		previous, _ = day.WagerFor(participantID, raceID)
		day.SetWager(participantID, raceID, horse)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogWagerPlaced(date, participantID, raceID, horse, previous)
	metrics.RecordWagerPlaced()
	s.notify(day)
	return day, nil
}

// SetBanker designates the race whose points a participant wants doubled, replacing any earlier choice
func (s *Service) SetBanker(ctx context.Context, date, participantID, raceID string) (*models.RaceDay, error) {
	if err := s.requireParticipant(ctx, participantID); err != nil {
		return nil, err
	}

	var old string
	day, err := s.mutate(ctx, date, func(day *models.RaceDay) error {
		if _, err := openRace(day, raceID); err != nil {
			return err
		}
		if _, ok := day.WagerFor(participantID, raceID); !ok {
			return models.NewValidationError(models.CodeBankerWithoutWager,
				fmt.Sprintf("participant %s has no wager on race %s", participantID, raceID))
		}
		old = day.Bankers[participantID]
		if old != raceID {
			if err := bankerMovable(day, participantID); err != nil {
				return err
			}
		}
		day.Bankers[participantID] = raceID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogBankerChange(date, participantID, old, raceID)
	metrics.RecordBankerSet()
	s.notify(day)
	return day, nil
}

// ClearBanker removes a participant's banker selection, if any
func (s *Service) ClearBanker(ctx context.Context, date, participantID string) (*models.RaceDay, error) {
	var old string
	day, err := s.mutate(ctx, date, func(day *models.RaceDay) error {
		if err := bankerMovable(day, participantID); err != nil {
			return err
		}
		old = day.Bankers[participantID]
		delete(day.Bankers, participantID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if old != "" {
		s.audit.LogBankerChange(date, participantID, old, "")
	}
	s.notify(day)
	return day, nil
}

// SetRaceWinner posts or corrects the result of a race and recomputes the day
func (s *Service) SetRaceWinner(ctx context.Context, date, raceID string, horse int) (*models.RaceDay, error) {
	correction := false
	day, err := s.mutate(ctx, date, func(day *models.RaceDay) error {
		race := day.FindRace(raceID)
		if race == nil {
			return models.NewNotFoundError(models.CodeRaceNotFound, fmt.Sprintf("race %s not found on %s", raceID, date))
		}
		if _, ok := race.FindHorse(horse); !ok {
			return models.NewValidationError(models.CodeHorseNotInRace,
				fmt.Sprintf("horse %d is not running in race %s", horse, raceID))
		}
		correction = race.HasWinner() && *race.Winner != horse
		race.SetWinner(horse)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogWinnerPosted(date, raceID, horse, correction)
	metrics.RecordWinnerSet(correction)
	s.notify(day)
	return day, nil
}

// RecomputeDay rebuilds the day's scores from scratch. Archived days are returned unchanged.
func (s *Service) RecomputeDay(ctx context.Context, date string) (*models.RaceDay, error) {
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
		return day, nil
	}

	if err := s.recompute(ctx, day); err != nil {
		return nil, err
	}
	day.UpdatedAt = s.now()
	if err := s.writes.RaceDays.Save(ctx, day); err != nil {
		return nil, err
	}

	s.notify(day)
	return day, nil
}

// GetDay returns a race day by date
func (s *Service) GetDay(ctx context.Context, date string) (*models.RaceDay, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	return s.loadDay(ctx, s.reads, date)
}

// CurrentDay returns the day named by the current-day pointer
func (s *Service) CurrentDay(ctx context.Context) (*models.RaceDay, error) {
	ptr, err := s.reads.Pointer.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError(models.CodeNoCurrentDay, "no race day is open")
		}
		return nil, err
	}
	return s.loadDay(ctx, s.reads, ptr.Date)
}

// Index returns the summary ledger of archived days, newest first
func (s *Service) Index(ctx context.Context) (*models.DayIndex, error) {
	return s.reads.Index.Get(ctx)
}

// mutate runs fn against a fresh copy of an open day under its lock, then recomputes and saves it
func (s *Service) mutate(ctx context.Context, date string, fn func(day *models.RaceDay) error) (*models.RaceDay, error) {
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
		return nil, models.NewConflictError(models.CodeDayCompleted, fmt.Sprintf("race day %s is completed", date))
	}

	if err := fn(day); err != nil {
		return nil, err
	}
	if err := s.recompute(ctx, day); err != nil {
		return nil, err
	}
	day.UpdatedAt = s.now()
	if err := s.writes.RaceDays.Save(ctx, day); err != nil {
		return nil, err
	}
	return day, nil
}

// recompute replaces day.Scores with a full engine run
func (s *Service) recompute(ctx context.Context, day *models.RaceDay) error {
	start := time.Now()
	names, err := s.names(ctx, day)
	if err != nil {
		return err
	}
	day.Scores = s.engine.Compute(day, names)

	elapsed := time.Since(start)
	metrics.RecordRecomputation(elapsed.Seconds())
	metrics.UpdateOpenDayParticipants(len(day.Wagers))
	s.scores.LogRecomputation(day.Date, len(day.Scores), day.CompletedRaces(), elapsed)
	return nil
}

// names resolves display names for everyone holding a wager on the day
func (s *Service) names(ctx context.Context, day *models.RaceDay) (map[string]string, error) {
	names := make(map[string]string, len(day.Wagers))
	for id := range day.Wagers {
		p, err := s.reads.Participants.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		names[id] = p.Name
	}
	return names, nil
}

func (s *Service) loadDay(ctx context.Context, repos *repository.Repositories, date string) (*models.RaceDay, error) {
	day, err := repos.RaceDays.Get(ctx, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError(models.CodeDayNotFound, fmt.Sprintf("race day %s not found", date))
		}
		return nil, err
	}
	return day, nil
}

func (s *Service) requireParticipant(ctx context.Context, id string) error {
	if !models.ValidParticipantID(id) {
		return models.NewValidationError(models.CodeInvalidInput, fmt.Sprintf("invalid participant id %q", id))
	}
	if _, err := s.writes.Participants.Get(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.NewNotFoundError(models.CodeParticipantNotFound, fmt.Sprintf("participant %s not found", id))
		}
		return err
	}
	return nil
}

// openRace finds a race that still accepts wagers and banker selections
func openRace(day *models.RaceDay, raceID string) (*models.Race, error) {
	race := day.FindRace(raceID)
	if race == nil {
		return nil, models.NewNotFoundError(models.CodeRaceNotFound, fmt.Sprintf("race %s not found on %s", raceID, day.Date))
	}
	if race.HasWinner() {
		return nil, models.NewConflictError(models.CodeRaceAlreadyCompleted, fmt.Sprintf("race %s already has a winner", raceID))
	}
	return race, nil
}

// bankerMovable refuses to move or drop a banker whose race has already been decided
func bankerMovable(day *models.RaceDay, participantID string) error {
	current, ok := day.Bankers[participantID]
	if !ok {
		return nil
	}
	if race := day.FindRace(current); race != nil && race.HasWinner() {
		return models.NewConflictError(models.CodeRaceAlreadyCompleted,
			fmt.Sprintf("banker race %s already has a winner", current))
	}
	return nil
}

func validateDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return models.NewValidationError(models.CodeInvalidInput, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date))
	}
	return nil
}

func sortedScoreIDs(scores []models.DailyScore) []models.DailyScore {
	ordered := make([]models.DailyScore, len(scores))
	copy(ordered, scores)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ParticipantID < ordered[j].ParticipantID
	})
	return ordered
}
