package models

import "time"

// RunSummary describes the outcome of one forecast run.
type RunSummary struct {
	EventsSeen int           `json:"events_seen"`
	Forecasted int           `json:"forecasted"`
	Skipped    int           `json:"skipped"`
	Rows       int           `json:"rows"`
	Duration   time.Duration `json:"-"`
}
