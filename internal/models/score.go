package models

import (
	"sort"
	"time"
)

// BetOutcome is the per-race breakdown of a participant's wager
type BetOutcome struct {
	RaceID      string `json:"race_id"`
	RaceName    string `json:"race_name"`
	HorseNumber int    `json:"horse_number"`
	Decided     bool   `json:"decided"`
	Won         bool   `json:"won"`
	Points      int    `json:"points"`
}

// DailyScore is a participant's score breakdown for one race day
type DailyScore struct {
	ParticipantID   string       `json:"participant_id"`
	ParticipantName string       `json:"participant_name"`
	BasePoints      int          `json:"base_points"`
	BankerRaceID    string       `json:"banker_race_id,omitempty"`
	BankerWon       bool         `json:"banker_won"`
	FinalScore      int          `json:"final_score"`
	Wins            int          `json:"wins"`
	TotalWagers     int          `json:"total_wagers"`
	WinRate         float64      `json:"win_rate"`
	Bets            []BetOutcome `json:"bets"`
}

// SortScores orders scores by final score descending, then participant id ascending
func SortScores(scores []DailyScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].FinalScore != scores[j].FinalScore {
			return scores[i].FinalScore > scores[j].FinalScore
		}
		return scores[i].ParticipantID < scores[j].ParticipantID
	})
}

// LeaderboardEntry is one ranked row of a leaderboard
type LeaderboardEntry struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	Rank          int    `json:"rank"`
}

// DaySummary is the race-day index entry written when a day is archived
type DaySummary struct {
	Date              string    `json:"date"`
	TopScore          int       `json:"top_score"`
	TopParticipantID  string    `json:"top_participant_id"`
	TopParticipant    string    `json:"top_participant"`
	TotalParticipants int       `json:"total_participants"`
	TotalRaces        int       `json:"total_races"`
	CompletedRaces    int       `json:"completed_races"`
	TotalPoints       int       `json:"total_points"`
	CompletedAt       time.Time `json:"completed_at"`
}

// DayIndex is the summary ledger of all completed race days
type DayIndex struct {
	Days        []DaySummary `json:"days"`
	LastUpdated time.Time    `json:"last_updated"`
}

// Upsert replaces the summary for its date and keeps the index newest first
func (idx *DayIndex) Upsert(summary DaySummary) {
	kept := idx.Days[:0]
	for _, d := range idx.Days {
		if d.Date != summary.Date {
			kept = append(kept, d)
		}
	}
	idx.Days = append(kept, summary)
	sort.SliceStable(idx.Days, func(i, j int) bool {
		return idx.Days[i].Date > idx.Days[j].Date
	})
}

// Contains reports whether a date has been archived
func (idx *DayIndex) Contains(date string) bool {
	for _, d := range idx.Days {
		if d.Date == date {
			return true
		}
	}
	return false
}

// NewDaySummary builds the index entry for an archived day
func NewDaySummary(day *RaceDay, completedAt time.Time) DaySummary {
	summary := DaySummary{
		Date:              day.Date,
		TotalParticipants: len(day.Scores),
		TotalRaces:        len(day.Races),
		CompletedRaces:    day.CompletedRaces(),
		CompletedAt:       completedAt,
	}

	for _, s := range day.Scores {
		summary.TotalPoints += s.FinalScore
		if s.FinalScore <= 0 {
			continue
		}
		if s.FinalScore > summary.TopScore ||
			(s.FinalScore == summary.TopScore && s.ParticipantID < summary.TopParticipantID) {
			summary.TopScore = s.FinalScore
			summary.TopParticipantID = s.ParticipantID
			summary.TopParticipant = s.ParticipantName
		}
	}
	return summary
}
