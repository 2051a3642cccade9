// Package catalog fetches the race card for a race day from an external feed.
package catalog

import (
	"context"
	"errors"

	"github.com/yourusername/banker-pool/internal/models"
)

// Source supplies the races of a race day
type Source interface {
	// FetchRaces returns the races scheduled for date (YYYY-MM-DD)
	FetchRaces(ctx context.Context, date string) ([]models.Race, error)

	// Name returns the name of the source
	Name() string
}

// SourceError represents errors from catalog operations
type SourceError struct {
	Source  string // Source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e SourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidResponse      = "invalid_response"
	ErrCodeUnavailable          = "unavailable"
)

// ErrCircuitOpen is returned while the HTTP client refuses requests after repeated failures
var ErrCircuitOpen = errors.New("circuit breaker open")
