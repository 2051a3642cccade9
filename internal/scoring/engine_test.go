package scoring

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/banker-pool/internal/logger"
	"github.com/yourusername/banker-pool/internal/models"
)

func odds(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func winner(n int) *int {
	return &n
}

func raceR1(w *int) models.Race {
	r := models.Race{
		ID:      "R1",
		Ordinal: 1,
		Name:    "Opener",
		Horses: []models.Horse{
			{Number: 1, Name: "Steady", Odds: odds("3.0")},
			{Number: 2, Name: "Longshot", Odds: odds("12.0")},
		},
		Winner: w,
	}
	r.Normalize()
	return r
}

func newTestEngine() *Engine {
	return NewEngine(logger.Discard())
}

func TestPointsForOddsBoundaries(t *testing.T) {
	tests := []struct {
		odds string
		want int
	}{
		{"1.5", 1},
		{"5.0", 1},
		{"5.01", 2},
		{"7", 2},
		{"10.0", 2},
		{"10.01", 3},
		{"33", 3},
	}

	for _, tt := range tests {
		t.Run(tt.odds, func(t *testing.T) {
			assert.Equal(t, tt.want, PointsForOdds(odds(tt.odds)))
		})
	}
}

func TestScenarioBankerOnLongshot(t *testing.T) {
	scores := newTestEngine().ComputeDailyScores(Input{
		Races:   []models.Race{raceR1(winner(2))},
		Wagers:  map[string]map[string]int{"A": {"R1": 2}, "B": {"R1": 1}},
		Bankers: map[string]string{"A": "R1"},
	})

	a := scores["A"]
	assert.Equal(t, 3, a.BasePoints)
	assert.True(t, a.BankerWon)
	assert.Equal(t, 6, a.FinalScore)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 1, a.TotalWagers)
	assert.Equal(t, 1.0, a.WinRate)
	assert.Equal(t, "R1", a.BankerRaceID)

	b := scores["B"]
	assert.Equal(t, 0, b.FinalScore)
	assert.False(t, b.BankerWon)
	assert.Equal(t, 0, b.Wins)
	assert.Equal(t, 1, b.TotalWagers)
	assert.Equal(t, 0.0, b.WinRate)
}

func TestUndecidedRacesScoreZeroButCount(t *testing.T) {
	r2 := models.Race{ID: "R2", Ordinal: 2, Horses: []models.Horse{{Number: 1, Odds: odds("4")}}}
	scores := newTestEngine().ComputeDailyScores(Input{
		Races:   []models.Race{raceR1(winner(1)), r2},
		Wagers:  map[string]map[string]int{"A": {"R1": 1, "R2": 1}},
		Bankers: map[string]string{"A": "R2"},
	})

	a := scores["A"]
	assert.Equal(t, 1, a.BasePoints)
	assert.Equal(t, 1, a.FinalScore, "undecided banker gives no bonus")
	assert.False(t, a.BankerWon)
	assert.Equal(t, 2, a.TotalWagers)
	assert.Equal(t, 0.5, a.WinRate)

	require.Len(t, a.Bets, 2)
	assert.True(t, a.Bets[0].Decided)
	assert.False(t, a.Bets[1].Decided)
	assert.Equal(t, 0, a.Bets[1].Points)
}

func TestBankerDecidedLaterFlipsOnRecompute(t *testing.T) {
	e := newTestEngine()
	in := Input{
		Races:   []models.Race{raceR1(nil)},
		Wagers:  map[string]map[string]int{"A": {"R1": 2}},
		Bankers: map[string]string{"A": "R1"},
	}
	assert.Equal(t, 0, e.ComputeDailyScores(in)["A"].FinalScore)

	in.Races[0].SetWinner(2)
	assert.Equal(t, 6, e.ComputeDailyScores(in)["A"].FinalScore)
}

func TestBankerLostLeavesZero(t *testing.T) {
	scores := newTestEngine().ComputeDailyScores(Input{
		Races:   []models.Race{raceR1(winner(2))},
		Wagers:  map[string]map[string]int{"A": {"R1": 1}},
		Bankers: map[string]string{"A": "R1"},
	})
	assert.Equal(t, 0, scores["A"].BasePoints)
	assert.Equal(t, 0, scores["A"].FinalScore)
	assert.False(t, scores["A"].BankerWon)
}

func TestZeroWagersParticipant(t *testing.T) {
	scores := newTestEngine().ComputeDailyScores(Input{
		Races: []models.Race{raceR1(winner(2))},
		Names: map[string]string{"C": "Carol"},
	})

	c, ok := scores["C"]
	require.True(t, ok)
	assert.Equal(t, "Carol", c.ParticipantName)
	assert.Equal(t, 0, c.TotalWagers)
	assert.Equal(t, 0.0, c.WinRate)
	assert.Equal(t, 0, c.FinalScore)
	assert.Empty(t, c.Bets)
}

func TestWinnerMissingFromRaceIsIntegrityWarning(t *testing.T) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	scores := NewEngine(log).ComputeDailyScores(Input{
		Date:   "2024-06-01",
		Races:  []models.Race{raceR1(winner(9))},
		Wagers: map[string]map[string]int{"A": {"R1": 9}},
	})

	assert.Equal(t, 0, scores["A"].FinalScore)
	assert.Equal(t, 0, scores["A"].Wins)
	assert.Equal(t, 1, scores["A"].TotalWagers)
	assert.Contains(t, buf.String(), `"integrity_warning":true`)
}

func TestMalformedWagersSkipped(t *testing.T) {
	scores := newTestEngine().ComputeDailyScores(Input{
		Races:  []models.Race{raceR1(winner(2))},
		Wagers: map[string]map[string]int{"A": {"R1": 2, "GHOST": 3}, "B": {"R1": 0}},
	})

	assert.Equal(t, 1, scores["A"].TotalWagers)
	assert.Equal(t, 3, scores["A"].FinalScore)
	assert.Equal(t, 0, scores["B"].TotalWagers)
}

func TestBankerOnUnknownRaceIgnored(t *testing.T) {
	scores := newTestEngine().ComputeDailyScores(Input{
		Races:   []models.Race{raceR1(winner(2))},
		Wagers:  map[string]map[string]int{"A": {"R1": 2}},
		Bankers: map[string]string{"A": "GHOST"},
	})
	assert.Equal(t, 3, scores["A"].FinalScore)
	assert.Empty(t, scores["A"].BankerRaceID)
}

func TestComputeIsDeterministic(t *testing.T) {
	e := newTestEngine()
	r2 := models.Race{ID: "R2", Ordinal: 2, Horses: []models.Horse{{Number: 1, Odds: odds("6")}, {Number: 2, Odds: odds("2")}}}
	r2.SetWinner(1)
	day := &models.RaceDay{
		Date:  "2024-06-01",
		Races: []models.Race{r2, raceR1(winner(2))},
		Wagers: map[string]map[string]int{
			"zed":   {"R1": 2, "R2": 1},
			"alice": {"R1": 1, "R2": 1},
			"bob":   {"R1": 2},
			"carl":  {"R1": 2},
		},
		Bankers: map[string]string{"zed": "R2", "bob": "R1"},
	}

	first := e.Compute(day, nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, e.Compute(day, nil))
	}

	// zed: 3 + 2 doubled by R2 banker = 10; bob: 3 doubled = 6; carl 3; alice 2
	ids := make([]string, 0, len(first))
	for _, s := range first {
		ids = append(ids, s.ParticipantID)
	}
	assert.Equal(t, []string{"zed", "bob", "carl", "alice"}, ids)
	assert.Equal(t, 10, first[0].FinalScore)
	assert.Equal(t, "R1", first[0].Bets[0].RaceID, "bets follow race ordinal order")
}

func TestScoresListTieBreaksByID(t *testing.T) {
	list := ScoresList(map[string]models.DailyScore{
		"b": {ParticipantID: "b", FinalScore: 4},
		"a": {ParticipantID: "a", FinalScore: 4},
		"c": {ParticipantID: "c", FinalScore: 5},
	})
	assert.Equal(t, "c", list[0].ParticipantID)
	assert.Equal(t, "a", list[1].ParticipantID)
	assert.Equal(t, "b", list[2].ParticipantID)
}
