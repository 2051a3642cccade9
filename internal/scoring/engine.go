// Package scoring computes participants' daily scores from races, wagers and banker selections.
//
// The engine always recomputes a day from scratch. It never applies deltas, so a winner
// correction followed by recomputation cannot drift or double count.
package scoring

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/logger"
	"github.com/yourusername/banker-pool/internal/metrics"
	"github.com/yourusername/banker-pool/internal/models"
)

// Odds tier boundaries. Comparisons are strict, so odds of exactly 5 or 10 fall to the lower tier.
var (
	longshotOdds = decimal.NewFromInt(10)
	midOdds      = decimal.NewFromInt(5)
)

// Tier points
const (
	LongshotPoints   = 3
	MidPoints        = 2
	FavouritePoints  = 1
	bankerMultiplier = 2
)

// Input is everything the engine needs for one race day
type Input struct {
	Date    string
	Races   []models.Race
	Wagers  map[string]map[string]int
	Bankers map[string]string
	// Names maps participant id to display name. Listed participants are scored even without wagers.
	Names map[string]string
}

// Engine computes daily scores
type Engine struct {
	logger *logger.ScoringLogger
}

// NewEngine creates a scoring engine that reports integrity problems through log
func NewEngine(log *logrus.Logger) *Engine {
	return &Engine{logger: logger.NewScoringLogger(log)}
}

// PointsForOdds returns the points a winning wager earns at the given odds
func PointsForOdds(odds decimal.Decimal) int {
	switch {
	case odds.GreaterThan(longshotOdds):
		return LongshotPoints
	case odds.GreaterThan(midOdds):
		return MidPoints
	default:
		return FavouritePoints
	}
}

// settledRace is a race's outcome as the engine sees it
type settledRace struct {
	race    *models.Race
	decided bool
	// points a correct wager earns; zero when the winner matches no horse
	points int
	valid  bool
}

// ComputeDailyScores scores every participant named in in.Names or holding a wager.
// Participants are processed in id order and races in ordinal order, so the output is deterministic.
func (e *Engine) ComputeDailyScores(in Input) map[string]models.DailyScore {
	races := e.settle(in.Date, in.Races)

	ids := participantIDs(in)
	scores := make(map[string]models.DailyScore, len(ids))
	for _, id := range ids {
		scores[id] = e.scoreParticipant(in, races, id)
	}
	return scores
}

// Compute scores a race day and returns the list form, ordered by final score then participant id
func (e *Engine) Compute(day *models.RaceDay, names map[string]string) []models.DailyScore {
	return ScoresList(e.ComputeDailyScores(Input{
		Date:    day.Date,
		Races:   day.Races,
		Wagers:  day.Wagers,
		Bankers: day.Bankers,
		Names:   names,
	}))
}

// ScoresList flattens a score map into the canonical ranked order
func ScoresList(scores map[string]models.DailyScore) []models.DailyScore {
	list := make([]models.DailyScore, 0, len(scores))
	for _, s := range scores {
		list = append(list, s)
	}
	models.SortScores(list)
	return list
}

func (e *Engine) settle(date string, races []models.Race) []settledRace {
	ordered := make([]*models.Race, 0, len(races))
	for i := range races {
		ordered = append(ordered, &races[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Ordinal != ordered[j].Ordinal {
			return ordered[i].Ordinal < ordered[j].Ordinal
		}
		return ordered[i].ID < ordered[j].ID
	})

	settled := make([]settledRace, 0, len(ordered))
	for _, race := range ordered {
		sr := settledRace{race: race}
		if race.HasWinner() {
			sr.decided = true
			if horse, ok := race.FindHorse(*race.Winner); ok {
				sr.valid = true
				sr.points = PointsForOdds(horse.Odds)
			} else {
				e.logger.LogIntegrityWarning(date, race.ID, *race.Winner)
				metrics.RecordIntegrityWarning()
			}
		}
		settled = append(settled, sr)
	}
	return settled
}

func (e *Engine) scoreParticipant(in Input, races []settledRace, id string) models.DailyScore {
	score := models.DailyScore{
		ParticipantID:   id,
		ParticipantName: in.Names[id],
		Bets:            []models.BetOutcome{},
	}
	if score.ParticipantName == "" {
		score.ParticipantName = id
	}

	wagers := in.Wagers[id]
	bankerRace := in.Bankers[id]
	known := make(map[string]bool, len(races))

	for _, sr := range races {
		known[sr.race.ID] = true
		horse, ok := wagers[sr.race.ID]
		if !ok {
			continue
		}
		if horse <= 0 {
			e.logger.LogSkippedWager(in.Date, id, sr.race.ID, "non-positive horse number")
			continue
		}

		score.TotalWagers++
		bet := models.BetOutcome{
			RaceID:      sr.race.ID,
			RaceName:    sr.race.Name,
			HorseNumber: horse,
			Decided:     sr.decided,
		}
		if sr.decided && sr.valid && horse == *sr.race.Winner {
			bet.Won = true
			bet.Points = sr.points
			score.Wins++
			score.BasePoints += sr.points
			if sr.race.ID == bankerRace {
				score.BankerWon = true
			}
		}
		score.Bets = append(score.Bets, bet)
	}

	for raceID := range wagers {
		if !known[raceID] {
			e.logger.LogSkippedWager(in.Date, id, raceID, "unknown race")
		}
	}

	if bankerRace != "" && known[bankerRace] {
		score.BankerRaceID = bankerRace
	}

	score.FinalScore = score.BasePoints
	if score.BankerWon {
		score.FinalScore = score.BasePoints * bankerMultiplier
	}
	if score.TotalWagers > 0 {
		score.WinRate = float64(score.Wins) / float64(score.TotalWagers)
	}
	return score
}

func participantIDs(in Input) []string {
	seen := make(map[string]bool, len(in.Names)+len(in.Wagers))
	for id := range in.Names {
		seen[id] = true
	}
	for id := range in.Wagers {
		seen[id] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
