package leaderboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/banker-pool/internal/lock"
	"github.com/yourusername/banker-pool/internal/logger"
	"github.com/yourusername/banker-pool/internal/models"
	"github.com/yourusername/banker-pool/internal/raceday"
	"github.com/yourusername/banker-pool/internal/repository"
	"github.com/yourusername/banker-pool/internal/scoring"
	"github.com/yourusername/banker-pool/internal/store"
)

type fixture struct {
	repos      *repository.Repositories
	days       *raceday.Service
	board      *Service
	reconciler *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, store.NewMemoryStore())
}

func newFixtureOn(t *testing.T, s store.Store) *fixture {
	t.Helper()
	log := logger.Discard()
	repos := repository.NewRepositories(s)
	engine := scoring.NewEngine(log)
	locker := lock.NewKeyedMutex()

	f := &fixture{
		repos:      repos,
		days:       raceday.NewService(repos, repos, locker, engine, log),
		board:      NewService(repos, engine, log),
		reconciler: NewReconciler(repos, repos, locker, log),
	}
	for _, id := range []string{"alice", "bob", "carol"} {
		_, err := f.days.RegisterParticipant(context.Background(), id, "Player "+id)
		require.NoError(t, err)
	}
	return f
}

func races() []models.Race {
	return []models.Race{
		{ID: "R1", Horses: []models.Horse{
			{Number: 1, Odds: decimal.NewFromInt(3)},
			{Number: 2, Odds: decimal.NewFromInt(12)},
		}},
		{ID: "R2", Horses: []models.Horse{
			{Number: 1, Odds: decimal.NewFromInt(6)},
			{Number: 2, Odds: decimal.NewFromInt(2)},
		}},
	}
}

// playDay opens a day, places wagers as participant -> race -> horse, posts winners and optionally completes it
func (f *fixture) playDay(t *testing.T, date string, wagers map[string]map[string]int, winners map[string]int, complete bool) {
	t.Helper()
	ctx := context.Background()
	_, err := f.days.OpenNewDay(ctx, date, races())
	require.NoError(t, err)
	for pid, bets := range wagers {
		for race, horse := range bets {
			_, err := f.days.PlaceWager(ctx, date, pid, race, horse)
			require.NoError(t, err)
		}
	}
	for race, horse := range winners {
		_, err := f.days.SetRaceWinner(ctx, date, race, horse)
		require.NoError(t, err)
	}
	if complete {
		_, err := f.days.CompleteDay(ctx, date)
		require.NoError(t, err)
	}
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		kind, date string
		want       ScopeKind
		wantErr    bool
	}{
		{"", "", ScopeAllTime, false},
		{"ALL_TIME", "", ScopeAllTime, false},
		{"single_day", "2024-06-01", ScopeSingleDay, false},
		{"single_day", "", "", true},
		{"current", "", ScopeCurrentOpenDay, false},
		{"weekly", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.date, func(t *testing.T) {
			scope, err := ParseScope(tt.kind, tt.date)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, scope.Kind)
		})
	}
}

func TestRankBreaksTiesByID(t *testing.T) {
	entries := Rank(map[string]int{"zed": 5, "amy": 5, "bob": 7}, map[string]string{"amy": "Amy"})
	require.Len(t, entries, 3)
	assert.Equal(t, "bob", entries[0].ParticipantID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "amy", entries[1].ParticipantID)
	assert.Equal(t, "Amy", entries[1].Name)
	assert.Equal(t, "zed", entries[2].ParticipantID)
	assert.Equal(t, "zed", entries[2].Name)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestAllTimeSumsArchivedDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// alice: 3 + 2, bob: 1 + 0
	f.playDay(t, "2024-06-01",
		map[string]map[string]int{"alice": {"R1": 2}, "bob": {"R1": 1}},
		map[string]int{"R1": 2}, true)
	f.playDay(t, "2024-06-08",
		map[string]map[string]int{"alice": {"R2": 1}, "bob": {"R1": 1}},
		map[string]int{"R1": 2, "R2": 1}, true)

	entries, err := f.board.AllTime(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.LeaderboardEntry{ParticipantID: "alice", Name: "Player alice", Score: 5, Rank: 1}, entries[0])
	assert.Equal(t, "bob", entries[1].ParticipantID)
	assert.Equal(t, 0, entries[1].Score)

	idx, err := f.repos.Index.Get(ctx)
	require.NoError(t, err)
	for _, entry := range entries {
		sum := 0
		for _, summary := range idx.Days {
			day, err := f.repos.RaceDays.Get(ctx, summary.Date)
			require.NoError(t, err)
			if s, ok := day.ScoreFor(entry.ParticipantID); ok {
				sum += s.FinalScore
			}
		}
		assert.Equal(t, sum, entry.Score)

		p, err := f.repos.Participants.Get(ctx, entry.ParticipantID)
		require.NoError(t, err)
		assert.Equal(t, sum, p.TotalScore)
	}
}

func TestAllTimeIgnoresOpenDay(t *testing.T) {
	f := newFixture(t)
	f.playDay(t, "2024-06-01", map[string]map[string]int{"alice": {"R1": 2}}, map[string]int{"R1": 2}, false)

	entries, err := f.board.AllTime(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSingleDayOpenAndCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.playDay(t, "2024-06-01",
		map[string]map[string]int{"alice": {"R1": 1}, "carol": {"R1": 2}},
		map[string]int{"R1": 2}, false)

	entries, err := f.board.SingleDay(ctx, "2024-06-01")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "carol", entries[0].ParticipantID)
	assert.Equal(t, 3, entries[0].Score)

	_, err = f.days.CompleteDay(ctx, "2024-06-01")
	require.NoError(t, err)
	archived, err := f.board.SingleDay(ctx, "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, entries, archived)

	_, err = f.board.SingleDay(ctx, "2024-06-02")
	pe, ok := models.AsPoolError(err)
	require.True(t, ok)
	assert.Equal(t, models.CodeDayNotFound, pe.Code)
}

func TestCurrentOpenDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	board, err := f.board.Leaderboard(ctx, Scope{Kind: ScopeCurrentOpenDay})
	require.NoError(t, err)
	assert.Empty(t, board.Entries)
	assert.Empty(t, board.Date)

	f.playDay(t, "2024-06-01", map[string]map[string]int{"bob": {"R2": 1}}, map[string]int{"R2": 1}, false)
	board, err = f.board.Leaderboard(ctx, Scope{Kind: ScopeCurrentOpenDay})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", board.Date)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, 2, board.Entries[0].Score)
}

func TestParticipantHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.playDay(t, "2024-06-01",
		map[string]map[string]int{"alice": {"R1": 2, "R2": 2}, "bob": {"R1": 2}},
		map[string]int{"R1": 2, "R2": 1}, true)
	f.playDay(t, "2024-06-08",
		map[string]map[string]int{"alice": {"R2": 1}},
		map[string]int{"R2": 1}, true)

	h, err := f.board.ParticipantHistory(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Player alice", h.Name)
	assert.Equal(t, 5, h.TotalScore)
	require.Len(t, h.Days, 2)
	assert.Equal(t, "2024-06-08", h.Days[0].Date)
	assert.Equal(t, 2, h.Statistics.RaceDaysPlayed)
	assert.Equal(t, 3, h.Statistics.BestDayScore)
	assert.Equal(t, "2024-06-01", h.Statistics.BestDayDate)
	assert.Equal(t, 2.5, h.Statistics.AverageScore)
	assert.InDelta(t, 2.0/3.0, h.Statistics.WinRate, 1e-9)

	_, err = f.board.ParticipantHistory(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReconcileDetectsAndRepairs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.playDay(t, "2024-06-01",
		map[string]map[string]int{"alice": {"R1": 2}, "bob": {"R1": 1}},
		map[string]int{"R1": 2}, true)

	report, err := f.reconciler.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Empty(t, report.Discrepancies)

	alice, err := f.repos.Participants.Get(ctx, "alice")
	require.NoError(t, err)
	alice.TotalScore = 99
	delete(alice.Days, "2024-06-01")
	require.NoError(t, f.repos.Participants.Save(ctx, alice))

	report, err = f.reconciler.Reconcile(ctx, false)
	require.NoError(t, err)
	require.Len(t, report.Discrepancies, 1)
	d := report.Discrepancies[0]
	assert.Equal(t, "alice", d.ParticipantID)
	assert.Equal(t, 99, d.RecordedTotal)
	assert.Equal(t, 3, d.ExpectedTotal)
	assert.Equal(t, []string{"2024-06-01"}, d.MissingDates)

	alice, err = f.repos.Participants.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 99, alice.TotalScore, "audit without repair must not write")

	report, err = f.reconciler.Reconcile(ctx, true)
	require.NoError(t, err)
	assert.True(t, report.Repaired)

	alice, err = f.repos.Participants.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, alice.TotalScore)

	report, err = f.reconciler.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.Discrepancies)
}

// beforePut runs fn once, just before the first write of key
type beforePut struct {
	store.Store
	once sync.Once
	key  string
	fn   func()
}

func (b *beforePut) Put(ctx context.Context, key string, blob []byte) error {
	if key == b.key && b.fn != nil {
		b.once.Do(b.fn)
	}
	return b.Store.Put(ctx, key, blob)
}

func TestReconcileRepairDuringCompletionKeepsCredit(t *testing.T) {
	hooked := &beforePut{Store: store.NewMemoryStore()}
	f := newFixtureOn(t, hooked)
	ctx := context.Background()

	f.playDay(t, "2024-06-01",
		map[string]map[string]int{"alice": {"R1": 2}},
		map[string]int{"R1": 2}, false)

	// Participants are credited before the index is written, so the repair sees a credit
	// for a day the archive does not list yet.
	var (
		report    *ReconcileReport
		repairErr error
	)
	repaired := make(chan struct{})
	hooked.key = repository.IndexKey
	hooked.fn = func() {
		go func() {
			defer close(repaired)
			report, repairErr = f.reconciler.Reconcile(ctx, true)
		}()
		select {
		case <-repaired:
		case <-time.After(50 * time.Millisecond):
		}
	}

	_, err := f.days.CompleteDay(ctx, "2024-06-01")
	require.NoError(t, err)
	<-repaired
	require.NoError(t, repairErr)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, []string{"2024-06-01"}, report.Discrepancies[0].ExtraDates)

	alice, err := f.repos.Participants.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, alice.TotalScore)
	assert.Contains(t, alice.Days, "2024-06-01")

	entries, err := f.board.AllTime(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, 3, entries[0].Score)

	report, err = f.reconciler.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, report.Discrepancies)
}

func TestReconcileRepairDropsCreditForOpenDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.playDay(t, "2024-06-01",
		map[string]map[string]int{"alice": {"R1": 2}},
		map[string]int{"R1": 2}, false)

	alice, err := f.repos.Participants.Get(ctx, "alice")
	require.NoError(t, err)
	alice.Credit("2024-06-01", models.DailyScore{ParticipantID: "alice", FinalScore: 3})
	require.NoError(t, f.repos.Participants.Save(ctx, alice))

	report, err := f.reconciler.Reconcile(ctx, true)
	require.NoError(t, err)
	require.Len(t, report.Discrepancies, 1)

	alice, err = f.repos.Participants.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, alice.TotalScore)
	assert.NotContains(t, alice.Days, "2024-06-01")
}
