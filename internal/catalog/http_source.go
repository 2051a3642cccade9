package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/metrics"
	"github.com/yourusername/banker-pool/internal/models"
)

const maxCatalogBody = 4 << 20

// HTTPSource reads the race card from a JSON catalog service at <base>/races?date=YYYY-MM-DD
type HTTPSource struct {
	client  *RateLimitedHTTPClient
	baseURL string
	apiKey  string
	logger  *logrus.Entry
}

// NewHTTPSource creates a catalog source over the given client
func NewHTTPSource(client *RateLimitedHTTPClient, baseURL, apiKey string, logger *logrus.Logger) *HTTPSource {
	return &HTTPSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger.WithField("component", "catalog"),
	}
}

// Name returns the name of the source
func (s *HTTPSource) Name() string {
	return "http"
}

// FetchRaces retrieves and validates the races for date
func (s *HTTPSource) FetchRaces(ctx context.Context, date string) (races []models.Race, err error) {
	defer func() { metrics.RecordCatalogFetch(s.Name(), err) }()

	endpoint := fmt.Sprintf("%s/races?date=%s", s.baseURL, url.QueryEscape(date))
	header := http.Header{"Accept": []string{"application/json"}}
	if s.apiKey != "" {
		header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Get(ctx, endpoint, header)
	if err != nil {
		return nil, SourceError{Source: s.Name(), Code: ErrCodeUnavailable, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, SourceError{Source: s.Name(), Code: ErrCodeNotFound, Message: "no race card for " + date}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, SourceError{Source: s.Name(), Code: ErrCodeAuthenticationFailed, Message: resp.Status}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, SourceError{Source: s.Name(), Code: ErrCodeRateLimitExceeded, Message: resp.Status}
	case resp.StatusCode >= 300:
		return nil, SourceError{Source: s.Name(), Code: ErrCodeUnavailable, Message: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBody))
	if err != nil {
		return nil, SourceError{Source: s.Name(), Code: ErrCodeInvalidResponse, Message: "failed to read body", Err: err}
	}

	races, err = decodeRaces(body)
	if err != nil {
		return nil, SourceError{Source: s.Name(), Code: ErrCodeInvalidResponse, Message: "malformed race card", Err: err}
	}

	s.logger.WithFields(logrus.Fields{"date": date, "races": len(races)}).Info("Fetched race card")
	return races, nil
}

// decodeRaces accepts either a bare array of races or {"races": [...]}
func decodeRaces(body []byte) ([]models.Race, error) {
	trimmed := strings.TrimSpace(string(body))
	var races []models.Race
	if strings.HasPrefix(trimmed, "{") {
		var envelope struct {
			Races []models.Race `json:"races"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, err
		}
		races = envelope.Races
	} else if err := json.Unmarshal(body, &races); err != nil {
		return nil, err
	}

	for i := range races {
		if races[i].Ordinal == 0 {
			races[i].Ordinal = i + 1
		}
		races[i].Normalize()
	}
	if err := ValidateRaces(races); err != nil {
		return nil, err
	}
	return races, nil
}
