// Package models defines the core domain entities for the revcast application.
// These models represent ticketed events, their orders, and per-event forecast
// results. All models include built-in validation to ensure data integrity
// throughout the pipeline.
//
// Terminology (matching the ticketing platform's data exports):
//   - Event: a ticketed event with a start date and an assumed sellout revenue.
//   - Order: a single completed purchase attributed to an event.
package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Event represents a ticketed event whose cumulative revenue is being forecast.
// MaxTotalGross is the assumed sellout revenue; it is the denominator when an
// event's orders are converted into a fraction-of-sellout series, so a zero
// value disqualifies the event from forecasting.
type Event struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	StartDate     time.Time       `json:"start_date"`      // Event start, normalized to UTC
	MaxTotalGross decimal.Decimal `json:"max_total_gross"` // Assumed sellout revenue
}

// Validate checks that all event fields are valid.
func (e *Event) Validate() error {
	if e.ID == "" {
		return errors.New("event ID must not be empty")
	}
	if e.Name == "" {
		return errors.New("event name must not be empty")
	}
	if e.StartDate.IsZero() {
		return errors.New("event start date must not be zero")
	}
	if e.MaxTotalGross.IsNegative() {
		return errors.New("max total gross must not be negative")
	}
	return nil
}
