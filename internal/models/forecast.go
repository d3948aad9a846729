package models

import (
	"errors"
	"time"
)

// ForecastPoint is a single predicted value with its central prediction interval.
// Values are fractions of the event's sellout revenue, in [0, cap].
type ForecastPoint struct {
	Timestamp time.Time `json:"ds"`
	Value     float64   `json:"yhat"`
	Lower     float64   `json:"yhat_lower"`
	Upper     float64   `json:"yhat_upper"`
}

// ForecastRow is the summary row persisted per qualifying event: the final
// predicted point of the event's forecast plus the storage key of its chart.
type ForecastRow struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"ds"`
	Predicted float64   `json:"yhat"`
	Lower     float64   `json:"yhat_lower"`
	Upper     float64   `json:"yhat_upper"`
	ChartKey  string    `json:"img_key"`
}

// Validate checks that all forecast row fields are valid
func (r *ForecastRow) Validate() error {
	if r.EventID == "" {
		return errors.New("event ID must not be empty")
	}
	if r.Timestamp.IsZero() {
		return errors.New("timestamp must not be zero")
	}
	if r.Lower > r.Predicted {
		return errors.New("lower bound must not exceed prediction")
	}
	if r.Predicted > r.Upper {
		return errors.New("prediction must not exceed upper bound")
	}
	if r.ChartKey == "" {
		return errors.New("chart key must not be empty")
	}
	return nil
}
