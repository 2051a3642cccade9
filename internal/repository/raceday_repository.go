package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/banker-pool/internal/models"
	"github.com/yourusername/banker-pool/internal/store"
)

type raceDayRepository struct {
	store store.Store
}

func (r *raceDayRepository) Get(ctx context.Context, date string) (*models.RaceDay, error) {
	day, err := getJSON[models.RaceDay](ctx, r.store, RaceDayKey(date))
	if err != nil {
		return nil, err
	}
	if day.Wagers == nil {
		day.Wagers = make(map[string]map[string]int)
	}
	if day.Bankers == nil {
		day.Bankers = make(map[string]string)
	}
	return day, nil
}

func (r *raceDayRepository) Save(ctx context.Context, day *models.RaceDay) error {
	return putJSON(ctx, r.store, RaceDayKey(day.Date), day)
}

func (r *raceDayRepository) Exists(ctx context.Context, date string) (bool, error) {
	ok, err := r.store.Exists(ctx, RaceDayKey(date))
	if err != nil {
		return false, fmt.Errorf("failed to check race day %s: %w", date, err)
	}
	return ok, nil
}

// ListDates returns the dates of every stored race day, oldest first
func (r *raceDayRepository) ListDates(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, raceDayPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list race days: %w", err)
	}

	dates := make([]string, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimSuffix(strings.TrimPrefix(key, raceDayPrefix), jsonExt)
		if _, err := time.Parse(models.DateLayout, name); err != nil {
			continue
		}
		dates = append(dates, name)
	}
	sort.Strings(dates)
	return dates, nil
}

type pointerRepository struct {
	store store.Store
}

func (r *pointerRepository) Get(ctx context.Context) (*models.CurrentDayPointer, error) {
	return getJSON[models.CurrentDayPointer](ctx, r.store, CurrentKey)
}

func (r *pointerRepository) Set(ctx context.Context, date string, now time.Time) error {
	return putJSON(ctx, r.store, CurrentKey, models.CurrentDayPointer{Date: date, UpdatedAt: now})
}

func (r *pointerRepository) Clear(ctx context.Context) error {
	if err := r.store.Delete(ctx, CurrentKey); err != nil {
		return fmt.Errorf("failed to clear current day: %w", err)
	}
	return nil
}

type indexRepository struct {
	store store.Store
}

// Get returns the index, or an empty one when nothing has been archived yet
func (r *indexRepository) Get(ctx context.Context) (*models.DayIndex, error) {
	idx, err := getJSON[models.DayIndex](ctx, r.store, IndexKey)
	if err != nil {
		if store.IsNotFound(err) {
			return &models.DayIndex{Days: []models.DaySummary{}}, nil
		}
		return nil, err
	}
	if idx.Days == nil {
		idx.Days = []models.DaySummary{}
	}
	return idx, nil
}

func (r *indexRepository) Save(ctx context.Context, index *models.DayIndex) error {
	return putJSON(ctx, r.store, IndexKey, index)
}
