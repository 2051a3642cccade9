package models

import (
	"regexp"
	"sort"
	"time"
)

var participantIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// ValidParticipantID reports whether id can name a participant record
func ValidParticipantID(id string) bool {
	return participantIDPattern.MatchString(id)
}

// DayCredit is what a completed race day contributed to a participant
type DayCredit struct {
	Score       int `json:"score"`
	Wins        int `json:"wins"`
	TotalWagers int `json:"total_wagers"`
}

// ParticipantStatistics are derived from a participant's day credits
type ParticipantStatistics struct {
	RaceDaysPlayed int     `json:"race_days_played"`
	BestDayScore   int     `json:"best_day_score"`
	BestDayDate    string  `json:"best_day_date"`
	AverageScore   float64 `json:"average_score"`
	WinRate        float64 `json:"win_rate"`
}

// Participant is a member of the pool.
// TotalScore is always the sum of Days and is never edited directly.
type Participant struct {
	ID         string                `json:"id" validate:"required"`
	Name       string                `json:"name" validate:"required"`
	TotalScore int                   `json:"total_score"`
	Days       map[string]DayCredit  `json:"days"`
	Statistics ParticipantStatistics `json:"statistics"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// HasCredit reports whether a day has already been folded into the running total
func (p *Participant) HasCredit(date string) bool {
	_, ok := p.Days[date]
	return ok
}

// Credit records a completed day's result. Crediting the same date again
// replaces the prior entry, so the running total moves at most once per date.
func (p *Participant) Credit(date string, score DailyScore) {
	if p.Days == nil {
		p.Days = make(map[string]DayCredit)
	}
	p.Days[date] = DayCredit{
		Score:       score.FinalScore,
		Wins:        score.Wins,
		TotalWagers: score.TotalWagers,
	}
	p.Recalculate()
}

// Recalculate derives TotalScore and Statistics from Days
func (p *Participant) Recalculate() {
	dates := make([]string, 0, len(p.Days))
	for date := range p.Days {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	total, wins, wagers := 0, 0, 0
	stats := ParticipantStatistics{}
	for _, date := range dates {
		credit := p.Days[date]
		total += credit.Score
		wins += credit.Wins
		wagers += credit.TotalWagers
		if stats.BestDayDate == "" || credit.Score > stats.BestDayScore {
			stats.BestDayScore = credit.Score
			stats.BestDayDate = date
		}
	}

	stats.RaceDaysPlayed = len(dates)
	if stats.RaceDaysPlayed > 0 {
		stats.AverageScore = float64(total) / float64(stats.RaceDaysPlayed)
	}
	if wagers > 0 {
		stats.WinRate = float64(wins) / float64(wagers)
	}

	p.TotalScore = total
	p.Statistics = stats
}
