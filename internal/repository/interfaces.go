package repository

import (
	"context"
	"time"

	"github.com/yourusername/banker-pool/internal/models"
)

// RaceDayRepository stores the canonical record of each race day
type RaceDayRepository interface {
	Get(ctx context.Context, date string) (*models.RaceDay, error)
	Save(ctx context.Context, day *models.RaceDay) error
	Exists(ctx context.Context, date string) (bool, error)
	ListDates(ctx context.Context) ([]string, error)
}

// PointerRepository stores which race day is currently accepting wagers
type PointerRepository interface {
	Get(ctx context.Context) (*models.CurrentDayPointer, error)
	Set(ctx context.Context, date string, now time.Time) error
	Clear(ctx context.Context) error
}

// IndexRepository stores the summary ledger of completed race days
type IndexRepository interface {
	Get(ctx context.Context) (*models.DayIndex, error)
	Save(ctx context.Context, index *models.DayIndex) error
}

// ParticipantRepository stores pool members and their running totals
type ParticipantRepository interface {
	Get(ctx context.Context, id string) (*models.Participant, error)
	Save(ctx context.Context, participant *models.Participant) error
	List(ctx context.Context) ([]*models.Participant, error)
}
