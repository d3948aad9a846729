package chart

import (
	"bytes"
	"testing"
	"time"

	"github.com/ticketline/revcast/internal/forecast"
	"github.com/ticketline/revcast/internal/models"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func testSeries(t *testing.T, n int) *forecast.Series {
	t.Helper()
	start := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	points := make([]forecast.SeriesPoint, n)
	for i := range points {
		points[i] = forecast.SeriesPoint{
			Timestamp: start.AddDate(0, 0, i),
			Ratio:     float64(i+1) / float64(n+2),
		}
	}
	return &forecast.Series{EventID: "event-1", Points: points, Cap: 1.0}
}

func testPoints(t *testing.T, series *forecast.Series, horizon int) []models.ForecastPoint {
	t.Helper()
	model, err := forecast.Fit(series, 0.8)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	return model.Predict(horizon)
}

func TestRenderProducesPNG(t *testing.T) {
	series := testSeries(t, 12)
	points := testPoints(t, series, 7)

	var buf bytes.Buffer
	if err := Render(&buf, "Summer Open Air", series, points); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if buf.Len() < len(pngMagic) {
		t.Fatalf("Expected PNG output, got %d bytes", buf.Len())
	}
	if !bytes.Equal(buf.Bytes()[:len(pngMagic)], pngMagic) {
		t.Errorf("Expected PNG magic bytes, got %v", buf.Bytes()[:len(pngMagic)])
	}
}

func TestRender_NoObservations(t *testing.T) {
	series := testSeries(t, 12)
	points := testPoints(t, series, 0)

	var buf bytes.Buffer
	if err := Render(&buf, "X", &forecast.Series{EventID: "event-1"}, points); err == nil {
		t.Error("Expected error for empty series, got nil")
	}
	if err := Render(&buf, "X", nil, points); err == nil {
		t.Error("Expected error for nil series, got nil")
	}
}

func TestRender_NoForecastPoints(t *testing.T) {
	series := testSeries(t, 12)

	var buf bytes.Buffer
	if err := Render(&buf, "X", series, nil); err == nil {
		t.Error("Expected error for empty forecast, got nil")
	}
}
