package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DayStatus represents the lifecycle state of a race day
type DayStatus string

const (
	DayStatusOpen      DayStatus = "open"
	DayStatusCompleted DayStatus = "completed"
)

// DateLayout is the canonical race day date format
const DateLayout = "2006-01-02"

// RaceDay is the single canonical record of one operating day.
// Wagers are keyed participant -> race -> horse number, Bankers participant -> race.
type RaceDay struct {
	Date        string                    `json:"date"`
	Races       []Race                    `json:"races"`
	Wagers      map[string]map[string]int `json:"wagers"`
	Bankers     map[string]string         `json:"bankers"`
	Scores      []DailyScore              `json:"scores"`
	Status      DayStatus                 `json:"status"`
	ArchiveID   *uuid.UUID                `json:"archive_id,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
	CompletedAt *time.Time                `json:"completed_at,omitempty"`
}

// NewRaceDay creates an open race day with empty wager and banker maps
func NewRaceDay(date string, races []Race, now time.Time) *RaceDay {
	ordered := make([]Race, len(races))
	copy(ordered, races)
	for i := range ordered {
		if ordered[i].Ordinal == 0 {
			ordered[i].Ordinal = i + 1
		}
		ordered[i].Normalize()
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Ordinal < ordered[j].Ordinal
	})

	return &RaceDay{
		Date:      date,
		Races:     ordered,
		Wagers:    make(map[string]map[string]int),
		Bankers:   make(map[string]string),
		Scores:    []DailyScore{},
		Status:    DayStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsCompleted checks if the day has been archived
func (d *RaceDay) IsCompleted() bool {
	return d.Status == DayStatusCompleted
}

// FindRace returns a pointer to the race with the given id
func (d *RaceDay) FindRace(raceID string) *Race {
	for i := range d.Races {
		if d.Races[i].ID == raceID {
			return &d.Races[i]
		}
	}
	return nil
}

// WagerFor returns the horse a participant backed in a race
func (d *RaceDay) WagerFor(participantID, raceID string) (int, bool) {
	bets, ok := d.Wagers[participantID]
	if !ok {
		return 0, false
	}
	horse, ok := bets[raceID]
	return horse, ok
}

// SetWager upserts a participant's wager on a race
func (d *RaceDay) SetWager(participantID, raceID string, horse int) {
	if d.Wagers == nil {
		d.Wagers = make(map[string]map[string]int)
	}
	bets, ok := d.Wagers[participantID]
	if !ok {
		bets = make(map[string]int)
		d.Wagers[participantID] = bets
	}
	bets[raceID] = horse
}

// CompletedRaces counts races with a posted winner
func (d *RaceDay) CompletedRaces() int {
	count := 0
	for i := range d.Races {
		if d.Races[i].HasWinner() {
			count++
		}
	}
	return count
}

// ScoreFor returns the stored daily score for a participant
func (d *RaceDay) ScoreFor(participantID string) (DailyScore, bool) {
	for _, s := range d.Scores {
		if s.ParticipantID == participantID {
			return s, true
		}
	}
	return DailyScore{}, false
}

// CurrentDayPointer names the race day currently accepting wagers
type CurrentDayPointer struct {
	Date      string    `json:"date"`
	UpdatedAt time.Time `json:"updated_at"`
}
