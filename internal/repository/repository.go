// Package repository provides typed access to pool records stored as JSON blobs.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yourusername/banker-pool/internal/store"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = store.ErrNotFound

// Storage keys
const (
	raceDayPrefix  = "racedays/"
	participantDir = "participants/"
	jsonExt        = ".json"
)

const (
	// IndexKey is the key of the race day index
	IndexKey = raceDayPrefix + "index.json"
	// CurrentKey is the key of the current-day pointer
	CurrentKey = raceDayPrefix + "current.json"
)

// RaceDayKey returns the key of a race day record
func RaceDayKey(date string) string {
	return raceDayPrefix + date + jsonExt
}

// ParticipantKey returns the key of a participant record
func ParticipantKey(id string) string {
	return participantDir + id + jsonExt
}

// Repositories holds all repository implementations over one store
type Repositories struct {
	RaceDays     RaceDayRepository
	Pointer      PointerRepository
	Index        IndexRepository
	Participants ParticipantRepository
}

// NewRepositories creates repositories backed by s
func NewRepositories(s store.Store) *Repositories {
	return &Repositories{
		RaceDays:     &raceDayRepository{store: s},
		Pointer:      &pointerRepository{store: s},
		Index:        &indexRepository{store: s},
		Participants: &participantRepository{store: s},
	}
}

func getJSON[T any](ctx context.Context, s store.Store, key string) (*T, error) {
	blob, err := s.Get(ctx, key)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	var v T
	if err := json.Unmarshal(blob, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &v, nil
}

func putJSON(ctx context.Context, s store.Store, key string, v any) error {
	blob, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.Put(ctx, key, blob); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
