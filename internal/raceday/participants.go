package raceday

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yourusername/banker-pool/internal/lock"
	"github.com/yourusername/banker-pool/internal/models"
	"github.com/yourusername/banker-pool/internal/repository"
)

// RegisterParticipant creates a participant, or renames an existing one. Scores are never touched.
func (s *Service) RegisterParticipant(ctx context.Context, id, name string) (*models.Participant, error) {
	if !models.ValidParticipantID(id) {
		return nil, models.NewValidationError(models.CodeInvalidInput, fmt.Sprintf("invalid participant id %q", id))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = id
	}

	unlock, err := s.locker.Lock(ctx, lock.ParticipantKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to lock participant %s: %w", id, err)
	}
	defer unlock()

	now := s.now()
	p, err := s.writes.Participants.Get(ctx, id)
	switch {
	case err == nil:
		p.Name = name
	case errors.Is(err, repository.ErrNotFound):
		p = &models.Participant{
			ID:        id,
			Name:      name,
			Days:      make(map[string]models.DayCredit),
			CreatedAt: now,
		}
		s.audit.LogParticipantRegistered(id, name)
	default:
		return nil, err
	}

	p.UpdatedAt = now
	if err := s.writes.Participants.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetParticipant returns a participant by id
func (s *Service) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	p, err := s.reads.Participants.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError(models.CodeParticipantNotFound, fmt.Sprintf("participant %s not found", id))
		}
		return nil, err
	}
	return p, nil
}
