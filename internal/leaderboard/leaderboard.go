// Package leaderboard ranks participants over all archived race days, a single day, or the day in progress.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/models"
	"github.com/yourusername/banker-pool/internal/repository"
	"github.com/yourusername/banker-pool/internal/scoring"
)

// ScopeKind selects which scores a leaderboard ranks
type ScopeKind string

const (
	ScopeAllTime        ScopeKind = "all_time"
	ScopeSingleDay      ScopeKind = "single_day"
	ScopeCurrentOpenDay ScopeKind = "current"
)

// Scope describes a leaderboard request. Date is only used by ScopeSingleDay.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	Date string    `json:"date,omitempty"`
}

// ParseScope builds a Scope from loosely formatted user input
func ParseScope(kind, date string) (Scope, error) {
	switch ScopeKind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", ScopeAllTime, "all-time", "alltime":
		return Scope{Kind: ScopeAllTime}, nil
	case ScopeSingleDay, "single-day", "day":
		if _, err := time.Parse(models.DateLayout, date); err != nil {
			return Scope{}, models.NewValidationError(models.CodeInvalidInput,
				fmt.Sprintf("single_day scope needs a date in YYYY-MM-DD form, got %q", date))
		}
		return Scope{Kind: ScopeSingleDay, Date: date}, nil
	case ScopeCurrentOpenDay, "current_open_day", "open":
		return Scope{Kind: ScopeCurrentOpenDay}, nil
	default:
		return Scope{}, models.NewValidationError(models.CodeInvalidInput, fmt.Sprintf("unknown leaderboard scope %q", kind))
	}
}

// Board is a ranked leaderboard. Date names the day ranked by day scopes.
type Board struct {
	Scope       Scope                     `json:"scope"`
	Date        string                    `json:"date,omitempty"`
	Entries     []models.LeaderboardEntry `json:"entries"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// Service aggregates leaderboards from the archive and the open day
type Service struct {
	repos  *repository.Repositories
	engine *scoring.Engine
	log    *logrus.Entry
	now    func() time.Time
}

// NewService creates a leaderboard service reading through repos
func NewService(repos *repository.Repositories, engine *scoring.Engine, log *logrus.Logger) *Service {
	return &Service{
		repos:  repos,
		engine: engine,
		log:    log.WithField("component", "leaderboard"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Leaderboard ranks participants for the given scope
func (s *Service) Leaderboard(ctx context.Context, scope Scope) (*Board, error) {
	var (
		entries []models.LeaderboardEntry
		date    string
		err     error
	)

	switch scope.Kind {
	case ScopeAllTime:
		entries, err = s.AllTime(ctx)
	case ScopeSingleDay:
		date = scope.Date
		entries, err = s.SingleDay(ctx, scope.Date)
	case ScopeCurrentOpenDay:
		date, entries, err = s.CurrentOpenDay(ctx)
	default:
		err = models.NewValidationError(models.CodeInvalidInput, fmt.Sprintf("unknown leaderboard scope %q", scope.Kind))
	}
	if err != nil {
		return nil, err
	}

	return &Board{Scope: scope, Date: date, Entries: entries, GeneratedAt: s.now()}, nil
}

// AllTime sums archived final scores across every day in the index.
// Wagers are never rescored here; the archive is the source of truth.
func (s *Service) AllTime(ctx context.Context) ([]models.LeaderboardEntry, error) {
	days, err := archivedDays(ctx, s.repos, s.log)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	fallback := make(map[string]string)
	for _, day := range days {
		for _, score := range day.Scores {
			totals[score.ParticipantID] += score.FinalScore
			fallback[score.ParticipantID] = score.ParticipantName
		}
	}

	names, err := s.participantNames(ctx, fallback)
	if err != nil {
		return nil, err
	}
	return Rank(totals, names), nil
}

// SingleDay ranks one day: archived scores for a completed day, a live engine run for an open one
func (s *Service) SingleDay(ctx context.Context, date string) ([]models.LeaderboardEntry, error) {
	day, err := s.repos.RaceDays.Get(ctx, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError(models.CodeDayNotFound, fmt.Sprintf("race day %s not found", date))
		}
		return nil, err
	}
	return s.rankDay(ctx, day)
}

// CurrentOpenDay ranks the day named by the current-day pointer. With no open day the board is empty.
func (s *Service) CurrentOpenDay(ctx context.Context) (string, []models.LeaderboardEntry, error) {
	ptr, err := s.repos.Pointer.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", []models.LeaderboardEntry{}, nil
		}
		return "", nil, err
	}

	day, err := s.repos.RaceDays.Get(ctx, ptr.Date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.WithField("date", ptr.Date).Warn("Current day pointer names a missing race day")
			return "", []models.LeaderboardEntry{}, nil
		}
		return "", nil, err
	}

	entries, err := s.rankDay(ctx, day)
	if err != nil {
		return "", nil, err
	}
	return day.Date, entries, nil
}

func (s *Service) rankDay(ctx context.Context, day *models.RaceDay) ([]models.LeaderboardEntry, error) {
	scores := day.Scores
	if !day.IsCompleted() {
		scores = s.engine.Compute(day, nil)
	}

	totals := make(map[string]int, len(scores))
	fallback := make(map[string]string, len(scores))
	for _, score := range scores {
		totals[score.ParticipantID] = score.FinalScore
		fallback[score.ParticipantID] = score.ParticipantName
	}

	names, err := s.participantNames(ctx, fallback)
	if err != nil {
		return nil, err
	}
	return Rank(totals, names), nil
}

// participantNames resolves display names from the participant records, falling back to
// the names captured in the scores and finally to the id itself
func (s *Service) participantNames(ctx context.Context, fallback map[string]string) (map[string]string, error) {
	participants, err := s.repos.Participants.List(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(fallback))
	for id, name := range fallback {
		names[id] = name
	}
	for _, p := range participants {
		if _, ok := names[p.ID]; ok && p.Name != "" {
			names[p.ID] = p.Name
		}
	}
	for id, name := range names {
		if name == "" {
			names[id] = id
		}
	}
	return names, nil
}

// Rank orders totals by score descending, ties broken by participant id, and numbers them from 1
func Rank(totals map[string]int, names map[string]string) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(totals))
	for id, score := range totals {
		name := names[id]
		if name == "" {
			name = id
		}
		entries = append(entries, models.LeaderboardEntry{ParticipantID: id, Name: name, Score: score})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ParticipantID < entries[j].ParticipantID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
