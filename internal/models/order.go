package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a single completed purchase attributed to an event
type Order struct {
	EventID    string          `json:"event_id"`
	Created    time.Time       `json:"created"` // Purchase time, normalized to UTC
	TotalGross decimal.Decimal `json:"total_gross"`
}

// Validate checks that all order fields are valid
func (o *Order) Validate() error {
	if o.EventID == "" {
		return errors.New("event ID must not be empty")
	}
	if o.Created.IsZero() {
		return errors.New("created must not be zero")
	}
	if o.TotalGross.IsNegative() {
		return errors.New("total gross must not be negative")
	}
	return nil
}
