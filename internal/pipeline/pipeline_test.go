package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ticketline/revcast/internal/config"
	"github.com/ticketline/revcast/internal/dataset"
	"github.com/ticketline/revcast/internal/forecast"
	"github.com/ticketline/revcast/internal/models"
	"github.com/ticketline/revcast/internal/storage"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{
			Backend:      "local",
			DataBucket:   "data",
			ChartsBucket: "charts",
			PublicCharts: false,
		},
		Dataset: config.DatasetConfig{
			OrdersKey: "order_data.csv",
			EventsKey: "event_data.csv",
			OutputKey: "forecast.csv",
		},
		Forecast: config.ForecastConfig{
			MinOrders:     5,
			Capacity:      1.0,
			IntervalWidth: 0.8,
		},
		Logging: config.LoggingConfig{
			Level:  "error",
			Format: "text",
		},
	}
}

func newTestRunner(t *testing.T) (*Runner, storage.ObjectStore, *config.Config) {
	t.Helper()

	store, err := storage.New(context.Background(), "local", "", t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := testConfig()
	return New(store, cfg), store, cfg
}

func seedObject(t *testing.T, store storage.ObjectStore, bucket, key, content string) {
	t.Helper()
	if err := store.Upload(context.Background(), bucket, key, strings.NewReader(content), "text/csv"); err != nil {
		t.Fatalf("Failed to seed %s/%s: %v", bucket, key, err)
	}
}

type orderBatch struct {
	eventID string
	start   time.Time
	count   int
	gross   string
}

// ordersCSV builds an order table with one order per day per batch, starting
// at the batch's start time.
func ordersCSV(batches ...orderBatch) string {
	var b strings.Builder
	b.WriteString("created,event_id,total_gross\n")
	for _, batch := range batches {
		for i := 0; i < batch.count; i++ {
			ts := batch.start.AddDate(0, 0, i)
			fmt.Fprintf(&b, "%s,%s,%s\n", ts.Format(time.RFC3339), batch.eventID, batch.gross)
		}
	}
	return b.String()
}

func eventsCSV(events ...models.Event) string {
	var b strings.Builder
	b.WriteString("id,name,start_date,max_total_gross\n")
	for _, e := range events {
		fmt.Fprintf(&b, "%s,%s,%s,%s\n", e.ID, e.Name, e.StartDate.Format(time.RFC3339), e.MaxTotalGross.String())
	}
	return b.String()
}

func testEvent(id, name string, start time.Time, maxGross string) models.Event {
	return models.Event{
		ID:            id,
		Name:          name,
		StartDate:     start,
		MaxTotalGross: decimal.RequireFromString(maxGross),
	}
}

func readCSVRecords(t *testing.T, store storage.ObjectStore, bucket, key string) [][]string {
	t.Helper()
	r, err := store.Download(context.Background(), bucket, key)
	if err != nil {
		t.Fatalf("Failed to download %s/%s: %v", bucket, key, err)
	}
	defer r.Close()

	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse %s: %v", key, err)
	}
	return records
}

func listBucket(t *testing.T, store storage.ObjectStore, bucket string) []string {
	t.Helper()
	var names []string
	err := store.ListObjects(context.Background(), bucket, "", func(name string) error {
		names = append(names, name)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to list bucket %s: %v", bucket, err)
	}
	return names
}

func parseField(t *testing.T, value string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		t.Fatalf("Failed to parse float %q: %v", value, err)
	}
	return v
}

func TestRun_EndToEnd(t *testing.T) {
	runner, store, cfg := newTestRunner(t)

	base := time.Date(2020, 7, 1, 12, 0, 0, 0, time.UTC)
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.OrdersKey, ordersCSV(
		orderBatch{eventID: "event-1", start: base, count: 10, gross: "50"},
		orderBatch{eventID: "event-2", start: base, count: 2, gross: "80"},
	))
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.EventsKey, eventsCSV(
		testEvent("event-1", "Summer Night", base.AddDate(0, 0, 40), "1000"),
		testEvent("event-2", "Warmup Show", base.AddDate(0, 0, 40), "800"),
	))

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.EventsSeen != 2 {
		t.Errorf("Expected 2 events seen, got %d", summary.EventsSeen)
	}
	if summary.Forecasted != 1 {
		t.Errorf("Expected 1 forecasted event, got %d", summary.Forecasted)
	}
	if summary.Skipped != 1 {
		t.Errorf("Expected 1 skipped event, got %d", summary.Skipped)
	}
	if summary.Rows != 1 {
		t.Errorf("Expected 1 summary row, got %d", summary.Rows)
	}
	if summary.Duration <= 0 {
		t.Errorf("Expected positive run duration, got %v", summary.Duration)
	}

	records := readCSVRecords(t, store, cfg.Storage.DataBucket, cfg.Dataset.OutputKey)
	if len(records) != 2 {
		t.Fatalf("Expected header plus one row, got %d records", len(records))
	}
	if !reflect.DeepEqual(records[0], dataset.ForecastHeader) {
		t.Errorf("Unexpected header: %v", records[0])
	}

	row := records[1]
	if row[0] != "event-1" {
		t.Errorf("Expected row for event-1, got %s", row[0])
	}

	// Last order is 9 days after base, horizon is 31 days, so the retained
	// forecast point lands exactly on event start.
	wantDS := base.AddDate(0, 0, 40).Format(time.RFC3339)
	if row[1] != wantDS {
		t.Errorf("Expected final forecast at %s, got %s", wantDS, row[1])
	}

	yhat := parseField(t, row[2])
	lower := parseField(t, row[3])
	upper := parseField(t, row[4])
	if lower > yhat || yhat > upper {
		t.Errorf("Expected ordered interval, got lower=%g yhat=%g upper=%g", lower, yhat, upper)
	}
	if lower < 0 || upper > cfg.Forecast.Capacity {
		t.Errorf("Expected interval within [0, %g], got [%g, %g]", cfg.Forecast.Capacity, lower, upper)
	}

	chartKey := row[5]
	if !strings.HasSuffix(chartKey, ".png") {
		t.Errorf("Expected .png chart key, got %q", chartKey)
	}

	charts := listBucket(t, store, cfg.Storage.ChartsBucket)
	if len(charts) != 1 || charts[0] != chartKey {
		t.Errorf("Expected charts bucket to hold exactly %q, got %v", chartKey, charts)
	}

	chartObj, err := store.Download(context.Background(), cfg.Storage.ChartsBucket, chartKey)
	if err != nil {
		t.Fatalf("Failed to download chart: %v", err)
	}
	defer chartObj.Close()
	img, err := io.ReadAll(chartObj)
	if err != nil {
		t.Fatalf("Failed to read chart: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Error("Expected chart object to be a PNG")
	}
}

func TestRun_CleansStaleCharts(t *testing.T) {
	runner, store, cfg := newTestRunner(t)

	seedObject(t, store, cfg.Storage.ChartsBucket, "stale.png", "old chart")
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.OrdersKey, ordersCSV())
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.EventsKey, eventsCSV())

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Rows != 0 {
		t.Errorf("Expected no summary rows, got %d", summary.Rows)
	}
	if charts := listBucket(t, store, cfg.Storage.ChartsBucket); len(charts) != 0 {
		t.Errorf("Expected empty charts bucket, got %v", charts)
	}

	// An empty run still overwrites the forecast table with its header.
	records := readCSVRecords(t, store, cfg.Storage.DataBucket, cfg.Dataset.OutputKey)
	if len(records) != 1 || !reflect.DeepEqual(records[0], dataset.ForecastHeader) {
		t.Errorf("Expected header-only forecast table, got %v", records)
	}
}

func TestRun_MissingEventRecord(t *testing.T) {
	runner, store, cfg := newTestRunner(t)

	base := time.Date(2020, 7, 1, 12, 0, 0, 0, time.UTC)
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.OrdersKey, ordersCSV(
		orderBatch{eventID: "event-9", start: base, count: 6, gross: "25"},
	))
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.EventsKey, eventsCSV())

	_, err := runner.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error for missing event record, got nil")
	}

	var evErr *forecast.EventError
	if !errors.As(err, &evErr) {
		t.Fatalf("Expected EventError, got %T: %v", err, err)
	}
	if evErr.EventID != "event-9" {
		t.Errorf("Expected error for event-9, got %s", evErr.EventID)
	}
}

func TestRun_OrderAfterEventStart(t *testing.T) {
	runner, store, cfg := newTestRunner(t)

	base := time.Date(2020, 7, 1, 12, 0, 0, 0, time.UTC)
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.OrdersKey, ordersCSV(
		orderBatch{eventID: "event-1", start: base, count: 10, gross: "50"},
	))
	// Event started before the last order arrived.
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.EventsKey, eventsCSV(
		testEvent("event-1", "Summer Night", base.AddDate(0, 0, 5), "1000"),
	))

	_, err := runner.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error for negative horizon, got nil")
	}

	var evErr *forecast.EventError
	if !errors.As(err, &evErr) {
		t.Fatalf("Expected EventError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "negative forecast horizon") {
		t.Errorf("Expected horizon error, got %v", err)
	}
}

func TestRun_MaxEventsLimit(t *testing.T) {
	runner, store, cfg := newTestRunner(t)
	cfg.Forecast.MaxEvents = 2

	base := time.Date(2020, 7, 1, 12, 0, 0, 0, time.UTC)
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.OrdersKey, ordersCSV(
		orderBatch{eventID: "event-1", start: base, count: 6, gross: "10"},
		orderBatch{eventID: "event-2", start: base, count: 6, gross: "20"},
		orderBatch{eventID: "event-3", start: base, count: 6, gross: "30"},
	))
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.EventsKey, eventsCSV(
		testEvent("event-1", "First", base.AddDate(0, 0, 30), "600"),
		testEvent("event-2", "Second", base.AddDate(0, 0, 30), "600"),
		testEvent("event-3", "Third", base.AddDate(0, 0, 30), "600"),
	))

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.EventsSeen != 2 {
		t.Errorf("Expected 2 events seen under the limit, got %d", summary.EventsSeen)
	}
	if summary.Forecasted != 2 {
		t.Errorf("Expected 2 forecasted events, got %d", summary.Forecasted)
	}

	records := readCSVRecords(t, store, cfg.Storage.DataBucket, cfg.Dataset.OutputKey)
	if len(records) != 3 {
		t.Fatalf("Expected header plus two rows, got %d records", len(records))
	}
	if records[1][0] != "event-1" || records[2][0] != "event-2" {
		t.Errorf("Expected first-seen event order, got %s then %s", records[1][0], records[2][0])
	}
}

func TestRun_ThresholdBoundary(t *testing.T) {
	runner, store, cfg := newTestRunner(t)

	base := time.Date(2020, 7, 1, 12, 0, 0, 0, time.UTC)
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.OrdersKey, ordersCSV(
		orderBatch{eventID: "event-1", start: base, count: cfg.Forecast.MinOrders, gross: "50"},
		orderBatch{eventID: "event-2", start: base, count: cfg.Forecast.MinOrders - 1, gross: "50"},
	))
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.EventsKey, eventsCSV(
		testEvent("event-1", "At Threshold", base.AddDate(0, 0, 30), "1000"),
		testEvent("event-2", "Below Threshold", base.AddDate(0, 0, 30), "1000"),
	))

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Forecasted != 1 {
		t.Errorf("Expected exactly the at-threshold event forecasted, got %d", summary.Forecasted)
	}
	if summary.Skipped != 1 {
		t.Errorf("Expected 1 skipped event, got %d", summary.Skipped)
	}

	records := readCSVRecords(t, store, cfg.Storage.DataBucket, cfg.Dataset.OutputKey)
	if len(records) != 2 || records[1][0] != "event-1" {
		t.Errorf("Expected a single row for event-1, got %v", records)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	runner, store, cfg := newTestRunner(t)

	base := time.Date(2020, 7, 1, 12, 0, 0, 0, time.UTC)
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.OrdersKey, ordersCSV(
		orderBatch{eventID: "event-1", start: base, count: 6, gross: "50"},
	))
	seedObject(t, store, cfg.Storage.DataBucket, cfg.Dataset.EventsKey, eventsCSV(
		testEvent("event-1", "Summer Night", base.AddDate(0, 0, 30), "1000"),
	))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := runner.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
