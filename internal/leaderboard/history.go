package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/banker-pool/internal/models"
	"github.com/yourusername/banker-pool/internal/repository"
)

// DayResult is one archived day from a participant's point of view
type DayResult struct {
	Date        string  `json:"date"`
	Score       int     `json:"score"`
	Wins        int     `json:"wins"`
	TotalWagers int     `json:"total_wagers"`
	WinRate     float64 `json:"win_rate"`
	BankerWon   bool    `json:"banker_won"`
	Rank        int     `json:"rank"`
}

// History is a participant's archived record with statistics derived from it
type History struct {
	ParticipantID string                       `json:"participant_id"`
	Name          string                       `json:"name"`
	TotalScore    int                          `json:"total_score"`
	Days          []DayResult                  `json:"days"`
	Statistics    models.ParticipantStatistics `json:"statistics"`
}

// ParticipantHistory rebuilds a participant's per-day results and statistics from the archive
func (s *Service) ParticipantHistory(ctx context.Context, id string) (*History, error) {
	var name string
	p, err := s.repos.Participants.Get(ctx, id)
	switch {
	case err == nil:
		name = p.Name
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	days, err := archivedDays(ctx, s.repos, s.log)
	if err != nil {
		return nil, err
	}

	derived := &models.Participant{ID: id, Name: name}
	results := make([]DayResult, 0)
	for _, day := range days {
		for pos, score := range day.Scores {
			if score.ParticipantID != id {
				continue
			}
			if name == "" {
				name = score.ParticipantName
			}
			derived.Credit(day.Date, score)
			results = append(results, DayResult{
				Date:        day.Date,
				Score:       score.FinalScore,
				Wins:        score.Wins,
				TotalWagers: score.TotalWagers,
				WinRate:     score.WinRate,
				BankerWon:   score.BankerWon,
				Rank:        pos + 1,
			})
		}
	}

	if p == nil && len(results) == 0 {
		return nil, models.NewNotFoundError(models.CodeParticipantNotFound, fmt.Sprintf("participant %s not found", id))
	}
	if name == "" {
		name = id
	}

	derived.Recalculate()
	return &History{
		ParticipantID: id,
		Name:          name,
		TotalScore:    derived.TotalScore,
		Days:          results,
		Statistics:    derived.Statistics,
	}, nil
}
