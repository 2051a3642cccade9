package leaderboard

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/models"
	"github.com/yourusername/banker-pool/internal/repository"
)

// archivedDays loads every completed day listed in the index, newest first.
// An index entry whose day is missing or still open belongs to an interrupted completion and is skipped.
func archivedDays(ctx context.Context, repos *repository.Repositories, log *logrus.Entry) ([]*models.RaceDay, error) {
	idx, err := repos.Index.Get(ctx)
	if err != nil {
		return nil, err
	}

	days := make([]*models.RaceDay, 0, len(idx.Days))
	for _, summary := range idx.Days {
		day, err := repos.RaceDays.Get(ctx, summary.Date)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				log.WithField("date", summary.Date).Warn("Index entry has no race day record")
				continue
			}
			return nil, err
		}
		if !day.IsCompleted() {
			log.WithField("date", summary.Date).Warn("Index entry names a race day that is not completed")
			continue
		}
		days = append(days, day)
	}
	return days, nil
}

// archivedCredits folds the archive into per-participant day credits
func archivedCredits(days []*models.RaceDay) (map[string]map[string]models.DayCredit, map[string]string) {
	credits := make(map[string]map[string]models.DayCredit)
	names := make(map[string]string)
	for _, day := range days {
		for _, score := range day.Scores {
			byDate, ok := credits[score.ParticipantID]
			if !ok {
				byDate = make(map[string]models.DayCredit)
				credits[score.ParticipantID] = byDate
			}
			byDate[day.Date] = models.DayCredit{
				Score:       score.FinalScore,
				Wins:        score.Wins,
				TotalWagers: score.TotalWagers,
			}
			names[score.ParticipantID] = score.ParticipantName
		}
	}
	return credits, names
}
