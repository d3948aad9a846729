// Package pipeline orchestrates one forecast run end to end: it cleans the
// charts bucket, loads the exported order and event tables, builds the
// per-event revenue series, fits the growth model, renders and publishes a
// chart per qualifying event, and overwrites the forecast summary table.
//
// A run is fully sequential. The first per-event failure aborts the run so
// that a partially updated forecast table is never left behind silently.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ticketline/revcast/internal/chart"
	"github.com/ticketline/revcast/internal/config"
	"github.com/ticketline/revcast/internal/dataset"
	"github.com/ticketline/revcast/internal/forecast"
	"github.com/ticketline/revcast/internal/logger"
	"github.com/ticketline/revcast/internal/models"
	"github.com/ticketline/revcast/internal/storage"
)

// Runner executes forecast runs against the configured storage backend.
type Runner struct {
	store  storage.ObjectStore
	loader *dataset.Loader
	cfg    *config.Config
}

// New creates a Runner bound to a storage backend and configuration.
func New(store storage.ObjectStore, cfg *config.Config) *Runner {
	return &Runner{
		store:  store,
		loader: dataset.NewLoader(store, cfg.Storage.DataBucket),
		cfg:    cfg,
	}
}

// Run executes a single forecast run and returns its summary. Per-event
// failures are wrapped in a forecast.EventError and abort the run.
func (r *Runner) Run(ctx context.Context) (*models.RunSummary, error) {
	startTime := time.Now()
	logger.Info("Starting forecast run")

	if err := r.cleanCharts(ctx); err != nil {
		return nil, err
	}

	orders, err := r.loader.LoadOrders(ctx, r.cfg.Dataset.OrdersKey)
	if err != nil {
		return nil, err
	}
	events, err := r.loader.LoadEvents(ctx, r.cfg.Dataset.EventsKey)
	if err != nil {
		return nil, err
	}

	eventsByID := make(map[string]models.Event, len(events))
	for _, event := range events {
		eventsByID[event.ID] = event
	}

	// Group orders per event, keeping event IDs in first-seen order so a
	// run walks the events deterministically.
	ordersByEvent := make(map[string][]models.Order)
	var eventIDs []string
	for _, order := range orders {
		if _, ok := ordersByEvent[order.EventID]; !ok {
			eventIDs = append(eventIDs, order.EventID)
		}
		ordersByEvent[order.EventID] = append(ordersByEvent[order.EventID], order)
	}
	logger.Info("Loaded %d orders across %d events (%d event records)", len(orders), len(eventIDs), len(events))

	if limit := r.cfg.Forecast.MaxEvents; limit > 0 && len(eventIDs) > limit {
		logger.Info("Limiting run to the first %d of %d events", limit, len(eventIDs))
		eventIDs = eventIDs[:limit]
	}

	summary := &models.RunSummary{}
	rows := make([]models.ForecastRow, 0, len(eventIDs))

	for _, eventID := range eventIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary.EventsSeen++

		eventOrders := ordersByEvent[eventID]
		if len(eventOrders) < r.cfg.Forecast.MinOrders {
			logger.Debug("Skipping event %s: %d orders below threshold %d", eventID, len(eventOrders), r.cfg.Forecast.MinOrders)
			summary.Skipped++
			continue
		}

		event, ok := eventsByID[eventID]
		if !ok {
			return nil, &forecast.EventError{EventID: eventID, Err: errors.New("no event record for ordered event")}
		}

		row, err := r.forecastEvent(ctx, event, eventOrders)
		if err != nil {
			return nil, &forecast.EventError{EventID: eventID, Err: err}
		}

		rows = append(rows, *row)
		summary.Forecasted++
	}

	if err := r.publishRows(ctx, rows); err != nil {
		return nil, err
	}
	summary.Rows = len(rows)
	summary.Duration = time.Since(startTime)

	logger.Info("Forecast run completed in %v (%d events seen, %d forecasted, %d skipped)",
		summary.Duration, summary.EventsSeen, summary.Forecasted, summary.Skipped)

	return summary, nil
}

// forecastEvent produces the summary row for one qualifying event: series,
// horizon, fit, prediction, chart. The row keeps only the final predicted
// point, the forecast at event start.
func (r *Runner) forecastEvent(ctx context.Context, event models.Event, orders []models.Order) (*models.ForecastRow, error) {
	series, err := forecast.BuildSeries(event, orders, r.cfg.Forecast.Capacity)
	if err != nil {
		return nil, err
	}

	lastOrder := series.Points[len(series.Points)-1].Timestamp
	horizon, err := forecast.Horizon(event.StartDate, lastOrder)
	if err != nil {
		return nil, err
	}
	logger.Debug("Forecasting event %s: %d orders, %d day horizon", event.ID, len(orders), horizon)

	model, err := forecast.Fit(series, r.cfg.Forecast.IntervalWidth)
	if err != nil {
		return nil, err
	}
	points := model.Predict(horizon)

	chartKey, err := r.publishChart(ctx, event, series, points)
	if err != nil {
		return nil, err
	}

	final := points[len(points)-1]
	row := models.ForecastRow{
		EventID:   event.ID,
		Timestamp: final.Timestamp,
		Predicted: final.Value,
		Lower:     final.Lower,
		Upper:     final.Upper,
		ChartKey:  chartKey,
	}
	if err := row.Validate(); err != nil {
		return nil, err
	}
	return &row, nil
}

// cleanCharts deletes every chart left over from the previous run.
func (r *Runner) cleanCharts(ctx context.Context) error {
	deleted := 0
	err := r.store.ListObjects(ctx, r.cfg.Storage.ChartsBucket, "", func(objectName string) error {
		if err := r.store.DeleteObject(ctx, r.cfg.Storage.ChartsBucket, objectName); err != nil {
			return err
		}
		deleted++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clean charts bucket: %w", err)
	}
	logger.Debug("Deleted %d stale chart objects", deleted)
	return nil
}

// publishChart renders the event chart and uploads it under a fresh UUID key.
func (r *Runner) publishChart(ctx context.Context, event models.Event, series *forecast.Series, points []models.ForecastPoint) (string, error) {
	var buf bytes.Buffer
	if err := chart.Render(&buf, event.Name, series, points); err != nil {
		return "", err
	}

	key := uuid.New().String() + ".png"
	if err := r.store.Upload(ctx, r.cfg.Storage.ChartsBucket, key, &buf, "image/png"); err != nil {
		return "", fmt.Errorf("failed to upload chart: %w", err)
	}
	if r.cfg.Storage.PublicCharts {
		if err := r.store.SetPublicRead(ctx, r.cfg.Storage.ChartsBucket, key); err != nil {
			return "", fmt.Errorf("failed to publish chart: %w", err)
		}
	}
	return key, nil
}

// publishRows encodes the summary rows and overwrites the forecast table.
// A run with no qualifying events still writes the header-only table.
func (r *Runner) publishRows(ctx context.Context, rows []models.ForecastRow) error {
	data, err := dataset.EncodeForecastRows(rows)
	if err != nil {
		return err
	}
	if err := r.store.Upload(ctx, r.cfg.Storage.DataBucket, r.cfg.Dataset.OutputKey, bytes.NewReader(data), "text/csv"); err != nil {
		return fmt.Errorf("failed to upload forecast table: %w", err)
	}
	return nil
}
