package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to callers
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
)

// Kind sentinels, matched with errors.Is
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("record not found")
	ErrConflict   = errors.New("conflicting state")
)

// Error codes
const (
	CodeDuplicateDay         = "duplicate_day"
	CodeDayNotFound          = "day_not_found"
	CodeDayCompleted         = "day_completed"
	CodeNoCurrentDay         = "no_current_day"
	CodeRaceNotFound         = "race_not_found"
	CodeRaceAlreadyCompleted = "race_already_completed"
	CodeHorseNotInRace       = "horse_not_in_race"
	CodeParticipantNotFound  = "participant_not_found"
	CodeBankerWithoutWager   = "banker_without_wager"
	CodeInvalidRaceList      = "invalid_race_list"
	CodeInvalidInput         = "invalid_input"
)

// PoolError is a typed failure returned by the pool's operations
type PoolError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *PoolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PoolError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels
func (e *PoolError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	}
	return false
}

// NewValidationError creates a validation failure
func NewValidationError(code, message string) *PoolError {
	return &PoolError{Kind: KindValidation, Code: code, Message: message}
}

// NewNotFoundError creates a not-found failure
func NewNotFoundError(code, message string) *PoolError {
	return &PoolError{Kind: KindNotFound, Code: code, Message: message}
}

// NewConflictError creates a conflict failure
func NewConflictError(code, message string) *PoolError {
	return &PoolError{Kind: KindConflict, Code: code, Message: message}
}

// AsPoolError extracts a PoolError from an error chain
func AsPoolError(err error) (*PoolError, bool) {
	var pe *PoolError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
