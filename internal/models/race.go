package models

import (
	"github.com/shopspring/decimal"
)

// RaceStatus represents the settlement state of a race
type RaceStatus string

const (
	RaceStatusUpcoming  RaceStatus = "upcoming"
	RaceStatusCompleted RaceStatus = "completed"
)

// Horse represents a runner in a race
type Horse struct {
	Number int             `json:"number" validate:"required,gt=0"`
	Name   string          `json:"name"`
	Odds   decimal.Decimal `json:"odds"`
}

// Race represents one race of a race day
type Race struct {
	ID      string     `json:"id" validate:"required"`
	Ordinal int        `json:"ordinal"`
	Name    string     `json:"name"`
	Time    string     `json:"time"`
	Horses  []Horse    `json:"horses" validate:"required,min=1,dive"`
	Winner  *int       `json:"winner"`
	Status  RaceStatus `json:"status"`
}

// HasWinner reports whether a winner has been posted for the race
func (r *Race) HasWinner() bool {
	return r.Winner != nil
}

// IsCompleted checks if the race has been settled
func (r *Race) IsCompleted() bool {
	return r.Status == RaceStatusCompleted && r.Winner != nil
}

// FindHorse returns the horse with the given number, if present
func (r *Race) FindHorse(number int) (Horse, bool) {
	for _, h := range r.Horses {
		if h.Number == number {
			return h, true
		}
	}
	return Horse{}, false
}

// SetWinner records the winning horse number and settles the race
func (r *Race) SetWinner(number int) {
	winner := number
	r.Winner = &winner
	r.Status = RaceStatusCompleted
}

// Normalize brings status in line with the winner field.
// Catalog feeds are loose about status, so the winner is treated as authoritative.
func (r *Race) Normalize() {
	if r.Winner != nil {
		r.Status = RaceStatusCompleted
	} else {
		r.Status = RaceStatusUpcoming
	}
}
