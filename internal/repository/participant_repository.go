package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yourusername/banker-pool/internal/models"
	"github.com/yourusername/banker-pool/internal/store"
)

type participantRepository struct {
	store store.Store
}

func (r *participantRepository) Get(ctx context.Context, id string) (*models.Participant, error) {
	p, err := getJSON[models.Participant](ctx, r.store, ParticipantKey(id))
	if err != nil {
		return nil, err
	}
	if p.Days == nil {
		p.Days = make(map[string]models.DayCredit)
	}
	return p, nil
}

func (r *participantRepository) Save(ctx context.Context, participant *models.Participant) error {
	return putJSON(ctx, r.store, ParticipantKey(participant.ID), participant)
}

// List returns every participant ordered by id
func (r *participantRepository) List(ctx context.Context) ([]*models.Participant, error) {
	keys, err := r.store.List(ctx, participantDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	sort.Strings(keys)

	out := make([]*models.Participant, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimSuffix(strings.TrimPrefix(key, participantDir), jsonExt)
		p, err := r.Get(ctx, id)
		if err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
