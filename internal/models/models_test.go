package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{
			name: "valid event",
			event: Event{
				ID:            "event-123",
				Name:          "Summer Open Air",
				StartDate:     time.Date(2020, 8, 1, 18, 0, 0, 0, time.UTC),
				MaxTotalGross: decimal.NewFromInt(250000),
			},
			wantErr: false,
		},
		{
			name: "zero max gross is loadable",
			event: Event{
				ID:            "event-123",
				Name:          "Summer Open Air",
				StartDate:     time.Date(2020, 8, 1, 18, 0, 0, 0, time.UTC),
				MaxTotalGross: decimal.Zero,
			},
			wantErr: false,
		},
		{
			name: "empty ID",
			event: Event{
				Name:          "Summer Open Air",
				StartDate:     time.Date(2020, 8, 1, 18, 0, 0, 0, time.UTC),
				MaxTotalGross: decimal.NewFromInt(250000),
			},
			wantErr: true,
		},
		{
			name: "empty name",
			event: Event{
				ID:            "event-123",
				StartDate:     time.Date(2020, 8, 1, 18, 0, 0, 0, time.UTC),
				MaxTotalGross: decimal.NewFromInt(250000),
			},
			wantErr: true,
		},
		{
			name: "zero start date",
			event: Event{
				ID:            "event-123",
				Name:          "Summer Open Air",
				MaxTotalGross: decimal.NewFromInt(250000),
			},
			wantErr: true,
		},
		{
			name: "negative max gross",
			event: Event{
				ID:            "event-123",
				Name:          "Summer Open Air",
				StartDate:     time.Date(2020, 8, 1, 18, 0, 0, 0, time.UTC),
				MaxTotalGross: decimal.NewFromInt(-1),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Event.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		order   Order
		wantErr bool
	}{
		{
			name: "valid order",
			order: Order{
				EventID:    "event-123",
				Created:    time.Date(2020, 5, 14, 9, 30, 0, 0, time.UTC),
				TotalGross: decimal.NewFromFloat(59.90),
			},
			wantErr: false,
		},
		{
			name: "empty event ID",
			order: Order{
				Created:    time.Date(2020, 5, 14, 9, 30, 0, 0, time.UTC),
				TotalGross: decimal.NewFromFloat(59.90),
			},
			wantErr: true,
		},
		{
			name: "zero created",
			order: Order{
				EventID:    "event-123",
				TotalGross: decimal.NewFromFloat(59.90),
			},
			wantErr: true,
		},
		{
			name: "negative total gross",
			order: Order{
				EventID:    "event-123",
				Created:    time.Date(2020, 5, 14, 9, 30, 0, 0, time.UTC),
				TotalGross: decimal.NewFromFloat(-10),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Order.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestForecastRowValidate(t *testing.T) {
	ts := time.Date(2020, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		row     ForecastRow
		wantErr bool
	}{
		{
			name: "valid row",
			row: ForecastRow{
				EventID:   "event-123",
				Timestamp: ts,
				Predicted: 0.82,
				Lower:     0.71,
				Upper:     0.93,
				ChartKey:  "0b9af12e-7e83-4f29-a9c1-55c6f3f0a001.png",
			},
			wantErr: false,
		},
		{
			name: "empty event ID",
			row: ForecastRow{
				Timestamp: ts,
				Predicted: 0.82,
				Lower:     0.71,
				Upper:     0.93,
				ChartKey:  "chart.png",
			},
			wantErr: true,
		},
		{
			name: "zero timestamp",
			row: ForecastRow{
				EventID:   "event-123",
				Predicted: 0.82,
				Lower:     0.71,
				Upper:     0.93,
				ChartKey:  "chart.png",
			},
			wantErr: true,
		},
		{
			name: "lower above prediction",
			row: ForecastRow{
				EventID:   "event-123",
				Timestamp: ts,
				Predicted: 0.82,
				Lower:     0.85,
				Upper:     0.93,
				ChartKey:  "chart.png",
			},
			wantErr: true,
		},
		{
			name: "prediction above upper",
			row: ForecastRow{
				EventID:   "event-123",
				Timestamp: ts,
				Predicted: 0.95,
				Lower:     0.71,
				Upper:     0.93,
				ChartKey:  "chart.png",
			},
			wantErr: true,
		},
		{
			name: "empty chart key",
			row: ForecastRow{
				EventID:   "event-123",
				Timestamp: ts,
				Predicted: 0.82,
				Lower:     0.71,
				Upper:     0.93,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.row.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("ForecastRow.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
