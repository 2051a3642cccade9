package raceday

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/banker-pool/internal/lock"
	"github.com/yourusername/banker-pool/internal/logger"
	"github.com/yourusername/banker-pool/internal/models"
	"github.com/yourusername/banker-pool/internal/repository"
	"github.com/yourusername/banker-pool/internal/scoring"
	"github.com/yourusername/banker-pool/internal/store"
)

const testDate = "2024-06-01"

func testRaces() []models.Race {
	return []models.Race{
		{
			ID:   "R1",
			Name: "Opener",
			Horses: []models.Horse{
				{Number: 1, Name: "Steady", Odds: decimal.RequireFromString("3.0")},
				{Number: 2, Name: "Longshot", Odds: decimal.RequireFromString("12.0")},
			},
		},
		{
			ID:   "R2",
			Name: "Sprint",
			Horses: []models.Horse{
				{Number: 1, Name: "Quick", Odds: decimal.RequireFromString("6.0")},
				{Number: 2, Name: "Quicker", Odds: decimal.RequireFromString("2.0")},
			},
		},
	}
}

func newTestService(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()
	snapshot := store.NewSnapshotStore(store.NewMemoryStore(), time.Minute)
	writes := repository.NewRepositories(snapshot.Fresh())
	reads := repository.NewRepositories(snapshot)

	log := logger.Discard()
	svc := NewService(writes, reads, lock.NewKeyedMutex(), scoring.NewEngine(log), log)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC) }
	return svc, writes
}

func openTestDay(t *testing.T, svc *Service, participants ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.OpenNewDay(ctx, testDate, testRaces())
	require.NoError(t, err)
	for _, id := range participants {
		_, err := svc.RegisterParticipant(ctx, id, "Player "+id)
		require.NoError(t, err)
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	pe, ok := models.AsPoolError(err)
	require.True(t, ok, "expected a PoolError, got %v", err)
	assert.Equal(t, code, pe.Code)
}

func TestOpenNewDaySetsPointer(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()

	day, err := svc.OpenNewDay(ctx, testDate, testRaces())
	require.NoError(t, err)
	assert.Equal(t, models.DayStatusOpen, day.Status)
	assert.Equal(t, 1, day.Races[0].Ordinal)
	assert.Equal(t, 2, day.Races[1].Ordinal)

	ptr, err := repos.Pointer.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, testDate, ptr.Date)

	current, err := svc.CurrentDay(ctx)
	require.NoError(t, err)
	assert.Equal(t, testDate, current.Date)
}

func TestOpenNewDayRejectsDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	openTestDay(t, svc)

	_, err := svc.OpenNewDay(context.Background(), testDate, testRaces())
	requireCode(t, err, models.CodeDuplicateDay)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestOpenNewDayValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.OpenNewDay(ctx, "01/06/2024", testRaces())
	requireCode(t, err, models.CodeInvalidInput)

	races := testRaces()
	races[1].ID = "R1"
	_, err = svc.OpenNewDay(ctx, testDate, races)
	requireCode(t, err, models.CodeInvalidRaceList)

	_, err = svc.OpenNewDay(ctx, testDate, nil)
	requireCode(t, err, models.CodeInvalidRaceList)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCurrentDayWithoutPointer(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CurrentDay(context.Background())
	requireCode(t, err, models.CodeNoCurrentDay)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPlaceWagerErrors(t *testing.T) {
	svc, _ := newTestService(t)
	openTestDay(t, svc, "alice")
	ctx := context.Background()

	tests := []struct {
		name        string
		date        string
		participant string
		race        string
		horse       int
		code        string
	}{
		{"unknown day", "2024-06-02", "alice", "R1", 1, models.CodeDayNotFound},
		{"unknown race", testDate, "alice", "R9", 1, models.CodeRaceNotFound},
		{"unknown horse", testDate, "alice", "R1", 7, models.CodeHorseNotInRace},
		{"unknown participant", testDate, "nobody", "R1", 1, models.CodeParticipantNotFound},
		{"bad participant id", testDate, "../etc", "R1", 1, models.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlaceWager(ctx, tt.date, tt.participant, tt.race, tt.horse)
			requireCode(t, err, tt.code)
		})
	}
}

func TestPlaceWagerReplacesEarlierWager(t *testing.T) {
	svc, _ := newTestService(t)
	openTestDay(t, svc, "alice")
	ctx := context.Background()

	_, err := svc.PlaceWager(ctx, testDate, "alice", "R1", 1)
	require.NoError(t, err)
	day, err := svc.PlaceWager(ctx, testDate, "alice", "R1", 2)
	require.NoError(t, err)

	horse, ok := day.WagerFor("alice", "R1")
	require.True(t, ok)
	assert.Equal(t, 2, horse)
	require.Len(t, day.Scores, 1)
	assert.Equal(t, 1, day.Scores[0].TotalWagers)
}

func TestBankerRequiresWager(t *testing.T) {
	svc, _ := newTestService(t)
	openTestDay(t, svc, "alice")
	ctx := context.Background()

	_, err := svc.SetBanker(ctx, testDate, "alice", "R1")
	requireCode(t, err, models.CodeBankerWithoutWager)

	_, err = svc.PlaceWager(ctx, testDate, "alice", "R1", 2)
	require.NoError(t, err)
	day, err := svc.SetBanker(ctx, testDate, "alice", "R1")
	require.NoError(t, err)
	assert.Equal(t, "R1", day.Bankers["alice"])

	day, err = svc.ClearBanker(ctx, testDate, "alice")
	require.NoError(t, err)
	assert.NotContains(t, day.Bankers, "alice")
}

func TestDecidedRaceRejectsWagersAndBankers(t *testing.T) {
	svc, _ := newTestService(t)
	openTestDay(t, svc, "alice")
	ctx := context.Background()

	_, err := svc.PlaceWager(ctx, testDate, "alice", "R1", 2)
	require.NoError(t, err)
	_, err = svc.SetRaceWinner(ctx, testDate, "R1", 2)
	require.NoError(t, err)

	_, err = svc.PlaceWager(ctx, testDate, "alice", "R1", 1)
	requireCode(t, err, models.CodeRaceAlreadyCompleted)

	_, err = svc.SetBanker(ctx, testDate, "alice", "R1")
	requireCode(t, err, models.CodeRaceAlreadyCompleted)
}

func TestWinnerCorrectionRecomputesFromScratch(t *testing.T) {
	svc, _ := newTestService(t)
	openTestDay(t, svc, "alice", "bob")
	ctx := context.Background()

	_, err := svc.PlaceWager(ctx, testDate, "alice", "R1", 2)
	require.NoError(t, err)
	_, err = svc.PlaceWager(ctx, testDate, "bob", "R1", 1)
	require.NoError(t, err)
	_, err = svc.SetBanker(ctx, testDate, "alice", "R1")
	require.NoError(t, err)

	day, err := svc.SetRaceWinner(ctx, testDate, "R1", 2)
	require.NoError(t, err)
	alice, _ := day.ScoreFor("alice")
	bob, _ := day.ScoreFor("bob")
	assert.Equal(t, 6, alice.FinalScore)
	assert.Equal(t, 0, bob.FinalScore)

	day, err = svc.SetRaceWinner(ctx, testDate, "R1", 1)
	require.NoError(t, err)
	alice, _ = day.ScoreFor("alice")
	bob, _ = day.ScoreFor("bob")
	assert.Equal(t, 0, alice.FinalScore)
	assert.False(t, alice.BankerWon)
	assert.Equal(t, 1, bob.FinalScore)
	assert.Equal(t, "bob", day.Scores[0].ParticipantID)
}

func TestSetRaceWinnerRejectsUnknownHorse(t *testing.T) {
	svc, _ := newTestService(t)
	openTestDay(t, svc)

	_, err := svc.SetRaceWinner(context.Background(), testDate, "R1", 5)
	requireCode(t, err, models.CodeHorseNotInRace)
}

func TestScoreListenerNotified(t *testing.T) {
	svc, _ := newTestService(t)
	openTestDay(t, svc, "alice")

	var got []string
	svc.OnScoresChanged(func(day *models.RaceDay) {
		got = append(got, day.Date)
	})

	_, err := svc.PlaceWager(context.Background(), testDate, "alice", "R1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{testDate}, got)
}

func TestCompleteDayArchivesAndCredits(t *testing.T) {
	svc, repos := newTestService(t)
	openTestDay(t, svc, "alice", "bob")
	ctx := context.Background()

	_, err := svc.PlaceWager(ctx, testDate, "alice", "R1", 2)
	require.NoError(t, err)
	_, err = svc.PlaceWager(ctx, testDate, "bob", "R2", 1)
	require.NoError(t, err)
	_, err = svc.SetBanker(ctx, testDate, "bob", "R2")
	require.NoError(t, err)
	_, err = svc.SetRaceWinner(ctx, testDate, "R1", 2)
	require.NoError(t, err)
	_, err = svc.SetRaceWinner(ctx, testDate, "R2", 1)
	require.NoError(t, err)

	result, err := svc.CompleteDay(ctx, testDate)
	require.NoError(t, err)
	assert.False(t, result.AlreadyCompleted)
	assert.NotEmpty(t, result.ArchiveID.String())
	assert.Equal(t, 4, result.Summary.TopScore)
	assert.Equal(t, "bob", result.Summary.TopParticipantID)
	assert.Equal(t, 2, result.Summary.TotalParticipants)

	day, err := repos.RaceDays.Get(ctx, testDate)
	require.NoError(t, err)
	assert.True(t, day.IsCompleted())
	require.NotNil(t, day.CompletedAt)

	alice, err := repos.Participants.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, alice.TotalScore)
	bob, err := repos.Participants.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 4, bob.TotalScore)

	idx, err := repos.Index.Get(ctx)
	require.NoError(t, err)
	assert.True(t, idx.Contains(testDate))

	_, err = repos.Pointer.Get(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCompleteDayIsIdempotent(t *testing.T) {
	svc, repos := newTestService(t)
	openTestDay(t, svc, "alice")
	ctx := context.Background()

	_, err := svc.PlaceWager(ctx, testDate, "alice", "R1", 2)
	require.NoError(t, err)
	_, err = svc.SetRaceWinner(ctx, testDate, "R1", 2)
	require.NoError(t, err)

	first, err := svc.CompleteDay(ctx, testDate)
	require.NoError(t, err)
	second, err := svc.CompleteDay(ctx, testDate)
	require.NoError(t, err)

	assert.True(t, second.AlreadyCompleted)
	assert.Equal(t, first.ArchiveID, second.ArchiveID)
	assert.Equal(t, first.Summary.TopScore, second.Summary.TopScore)

	alice, err := repos.Participants.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, alice.TotalScore)

	idx, err := repos.Index.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, idx.Days, 1)
}

func TestCompleteDayRetryAfterPartialWrite(t *testing.T) {
	svc, repos := newTestService(t)
	openTestDay(t, svc, "alice")
	ctx := context.Background()

	_, err := svc.PlaceWager(ctx, testDate, "alice", "R1", 2)
	require.NoError(t, err)
	_, err = svc.SetRaceWinner(ctx, testDate, "R1", 2)
	require.NoError(t, err)

	// Simulate a crash after the participant was credited but before the day was archived.
	day, err := repos.RaceDays.Get(ctx, testDate)
	require.NoError(t, err)
	score, ok := day.ScoreFor("alice")
	require.True(t, ok)
	require.NoError(t, svc.creditParticipant(ctx, testDate, score, svc.now()))

	_, err = svc.CompleteDay(ctx, testDate)
	require.NoError(t, err)

	alice, err := repos.Participants.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, alice.TotalScore)
}

func TestCompletedDayRejectsMutations(t *testing.T) {
	svc, _ := newTestService(t)
	openTestDay(t, svc, "alice")
	ctx := context.Background()

	_, err := svc.CompleteDay(ctx, testDate)
	require.NoError(t, err)

	_, err = svc.PlaceWager(ctx, testDate, "alice", "R1", 1)
	requireCode(t, err, models.CodeDayCompleted)
	_, err = svc.SetRaceWinner(ctx, testDate, "R1", 1)
	requireCode(t, err, models.CodeDayCompleted)
	_, err = svc.ClearBanker(ctx, testDate, "alice")
	requireCode(t, err, models.CodeDayCompleted)

	_, err = svc.CurrentDay(ctx)
	requireCode(t, err, models.CodeNoCurrentDay)
}

func TestCompleteDayLeavesNewerPointer(t *testing.T) {
	svc, repos := newTestService(t)
	openTestDay(t, svc)
	ctx := context.Background()

	_, err := svc.OpenNewDay(ctx, "2024-06-08", testRaces())
	require.NoError(t, err)
	_, err = svc.CompleteDay(ctx, testDate)
	require.NoError(t, err)

	ptr, err := repos.Pointer.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-08", ptr.Date)
}

func TestRegisterParticipantRenames(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterParticipant(ctx, "alice", "Alice")
	require.NoError(t, err)
	p, err := svc.RegisterParticipant(ctx, "alice", "Alice B")
	require.NoError(t, err)
	assert.Equal(t, "Alice B", p.Name)

	_, err = svc.RegisterParticipant(ctx, "", "x")
	requireCode(t, err, models.CodeInvalidInput)

	_, err = svc.GetParticipant(ctx, "ghost")
	requireCode(t, err, models.CodeParticipantNotFound)
}

func TestConcurrentWagersAreAllKept(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()

	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%02d", i)
	}
	openTestDay(t, svc, ids...)

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(id string, horse int) {
			defer wg.Done()
			_, err := svc.PlaceWager(ctx, testDate, id, "R1", horse)
			assert.NoError(t, err)
		}(id, i%2+1)
	}
	wg.Wait()

	day, err := repos.RaceDays.Get(ctx, testDate)
	require.NoError(t, err)
	assert.Len(t, day.Wagers, len(ids))
	assert.Len(t, day.Scores, len(ids))
}

// hookStore runs a callback once, after a Get or before a Put of the armed key
type hookStore struct {
	store.Store
	mu  sync.Mutex
	op  string
	key string
	fn  func()
}

func (h *hookStore) arm(op, key string, fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.op, h.key, h.fn = op, key, fn
}

func (h *hookStore) fire(op, key string) {
	h.mu.Lock()
	fn := h.fn
	if fn == nil || op != h.op || key != h.key {
		h.mu.Unlock()
		return
	}
	h.fn = nil
	h.mu.Unlock()
	fn()
}

func (h *hookStore) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := h.Store.Get(ctx, key)
	h.fire("get", key)
	return blob, err
}

func (h *hookStore) Put(ctx context.Context, key string, blob []byte) error {
	h.fire("put", key)
	return h.Store.Put(ctx, key, blob)
}

func TestBankerOnDecidedRaceCannotMove(t *testing.T) {
	svc, _ := newTestService(t)
	openTestDay(t, svc, "alice")
	ctx := context.Background()

	_, err := svc.PlaceWager(ctx, testDate, "alice", "R1", 1)
	require.NoError(t, err)
	_, err = svc.PlaceWager(ctx, testDate, "alice", "R2", 1)
	require.NoError(t, err)
	_, err = svc.SetBanker(ctx, testDate, "alice", "R1")
	require.NoError(t, err)
	_, err = svc.SetRaceWinner(ctx, testDate, "R1", 2)
	require.NoError(t, err)

	_, err = svc.SetBanker(ctx, testDate, "alice", "R2")
	requireCode(t, err, models.CodeRaceAlreadyCompleted)
	_, err = svc.ClearBanker(ctx, testDate, "alice")
	requireCode(t, err, models.CodeRaceAlreadyCompleted)

	day, err := svc.GetDay(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, "R1", day.Bankers["alice"])
}

func TestBankerOnUndecidedRaceCanMove(t *testing.T) {
	svc, _ := newTestService(t)
	openTestDay(t, svc, "alice")
	ctx := context.Background()

	_, err := svc.PlaceWager(ctx, testDate, "alice", "R1", 1)
	require.NoError(t, err)
	_, err = svc.PlaceWager(ctx, testDate, "alice", "R2", 1)
	require.NoError(t, err)
	_, err = svc.SetBanker(ctx, testDate, "alice", "R1")
	require.NoError(t, err)
	_, err = svc.SetRaceWinner(ctx, testDate, "R2", 1)
	require.NoError(t, err)

	// R2 is decided, so it cannot become the banker; R1 is not, so it can be dropped.
	_, err = svc.SetBanker(ctx, testDate, "alice", "R2")
	requireCode(t, err, models.CodeRaceAlreadyCompleted)
	day, err := svc.ClearBanker(ctx, testDate, "alice")
	require.NoError(t, err)
	assert.NotContains(t, day.Bankers, "alice")
}

func TestOpenNewDayDuringCompletionKeepsPointer(t *testing.T) {
	hooks := &hookStore{Store: store.NewMemoryStore()}
	repos := repository.NewRepositories(hooks)
	log := logger.Discard()
	svc := NewService(repos, repos, lock.NewKeyedMutex(), scoring.NewEngine(log), log)
	ctx := context.Background()

	openTestDay(t, svc, "alice")

	const nextDate = "2024-06-08"
	opened := make(chan error, 1)
	hooks.arm("get", repository.CurrentKey, func() {
		go func() {
			_, err := svc.OpenNewDay(ctx, nextDate, testRaces())
			opened <- err
		}()
		// Give the competing open a chance to write the pointer before completion decides.
		select {
		case err := <-opened:
			opened <- err
		case <-time.After(50 * time.Millisecond):
		}
	})

	_, err := svc.CompleteDay(ctx, testDate)
	require.NoError(t, err)
	require.NoError(t, <-opened)

	current, err := svc.CurrentDay(ctx)
	require.NoError(t, err)
	assert.Equal(t, nextDate, current.Date)
	assert.Equal(t, models.DayStatusOpen, current.Status)
}
