// Package forecast derives per-event revenue series and fits the growth-capped
// trend model used to project cumulative sales through event start.
//
// An event's orders are reduced to a cumulative-gross ratio series
//
//	ratio_i = cumsum(total_gross)_i / max_total_gross
//
// which is non-decreasing and, for well-formed data, stays within [0, 1].
// The model fits a logistic trend to the ratio by ordinary least squares in
// logit space and derives central prediction intervals from the residual
// spread, widening them for steps beyond the last observation.
package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ticketline/revcast/internal/models"
)

// SeriesPoint is one observation of an event's cumulative revenue.
type SeriesPoint struct {
	Timestamp       time.Time
	Gross           decimal.Decimal
	CumulativeGross decimal.Decimal
	Ratio           float64 // CumulativeGross / MaxTotalGross
}

// Series is an event's order history as a fraction-of-sellout time series,
// sorted by timestamp ascending.
type Series struct {
	EventID string
	Points  []SeriesPoint
	Cap     float64 // capacity cap for the growth model
}

// EventError represents a per-event error during forecasting
type EventError struct {
	EventID string
	Err     error
}

func (e EventError) Error() string {
	return fmt.Sprintf("forecast error for event %s: %v", e.EventID, e.Err)
}

func (e EventError) Unwrap() error {
	return e.Err
}

// BuildSeries converts an event's orders into a cumulative ratio series.
// Orders may arrive in any order and must all belong to the event; ties on
// the purchase timestamp keep their input order. The event's max total gross
// must be positive, since it divides every cumulative sum.
func BuildSeries(event models.Event, orders []models.Order, capacity float64) (*Series, error) {
	if event.MaxTotalGross.Sign() <= 0 {
		return nil, fmt.Errorf("event %s: max total gross must be positive, got %s",
			event.ID, event.MaxTotalGross.String())
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("event %s: no orders to build a series from", event.ID)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("event %s: capacity cap must be positive, got %g", event.ID, capacity)
	}

	sorted := make([]models.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Created.Before(sorted[j].Created)
	})

	points := make([]SeriesPoint, 0, len(sorted))
	cumulative := decimal.Zero
	for _, order := range sorted {
		cumulative = cumulative.Add(order.TotalGross)
		points = append(points, SeriesPoint{
			Timestamp:       order.Created,
			Gross:           order.TotalGross,
			CumulativeGross: cumulative,
			Ratio:           cumulative.Div(event.MaxTotalGross).InexactFloat64(),
		})
	}

	return &Series{
		EventID: event.ID,
		Points:  points,
		Cap:     capacity,
	}, nil
}

// Horizon returns the number of whole days between the last observed order
// and the event start, flooring partial days the way calendar-day arithmetic
// does. A last order after the event start yields a negative day count and is
// reported as an error naming both timestamps.
func Horizon(eventStart, lastOrder time.Time) (int, error) {
	days := int(math.Floor(eventStart.Sub(lastOrder).Hours() / 24))
	if days < 0 {
		return 0, fmt.Errorf("negative forecast horizon: last order at %s is after event start at %s",
			lastOrder.UTC().Format(time.RFC3339), eventStart.UTC().Format(time.RFC3339))
	}
	return days, nil
}
