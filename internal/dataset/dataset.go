// Package dataset loads the order and event tables from object storage and
// encodes the pipeline's summary output. Input files are CSV with a header
// row; columns are matched by name, so column order does not matter and
// unknown columns are ignored. Timestamps are normalized to UTC on load.
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ticketline/revcast/internal/models"
	"github.com/ticketline/revcast/internal/storage"
)

// ForecastHeader is the column layout of the summary CSV.
var ForecastHeader = []string{"event_id", "ds", "yhat", "yhat_lower", "yhat_upper", "img_key"}

// Accepted timestamp layouts, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Loader reads the pipeline's input tables from a bucket.
type Loader struct {
	store  storage.ObjectStore
	bucket string
}

// NewLoader creates a Loader reading from the given bucket.
func NewLoader(store storage.ObjectStore, bucket string) *Loader {
	return &Loader{store: store, bucket: bucket}
}

// LoadOrders fetches and parses the order table. Required columns:
// event_id, created, total_gross.
func (l *Loader) LoadOrders(ctx context.Context, objectName string) ([]models.Order, error) {
	r, err := l.store.Download(ctx, l.bucket, objectName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order data: %w", err)
	}
	defer r.Close()

	orders, err := parseOrders(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", objectName, err)
	}
	return orders, nil
}

// LoadEvents fetches and parses the event table. Required columns:
// id, name, start_date, max_total_gross.
func (l *Loader) LoadEvents(ctx context.Context, objectName string) ([]models.Event, error) {
	r, err := l.store.Download(ctx, l.bucket, objectName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event data: %w", err)
	}
	defer r.Close()

	events, err := parseEvents(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", objectName, err)
	}
	return events, nil
}

// EncodeForecastRows renders the summary table, one row per forecast event,
// in the fixed column order of ForecastHeader.
func EncodeForecastRows(rows []models.ForecastRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(ForecastHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("invalid forecast row for event %s: %w", row.EventID, err)
		}
		record := []string{
			row.EventID,
			row.Timestamp.UTC().Format(time.RFC3339),
			formatFloat(row.Predicted),
			formatFloat(row.Lower),
			formatFloat(row.Upper),
			row.ChartKey,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write row for event %s: %w", row.EventID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush summary csv: %w", err)
	}
	return buf.Bytes(), nil
}

func parseOrders(r io.Reader) ([]models.Order, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := columnIndex(header, "event_id", "created", "total_gross")
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}

		created, err := parseTime(record[cols["created"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		gross, err := parseMoney(record[cols["total_gross"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		order := models.Order{
			EventID:    strings.TrimSpace(record[cols["event_id"]]),
			Created:    created,
			TotalGross: gross,
		}
		if err := order.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: invalid order: %w", row, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func parseEvents(r io.Reader) ([]models.Event, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := columnIndex(header, "id", "name", "start_date", "max_total_gross")
	if err != nil {
		return nil, err
	}

	var events []models.Event
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}

		start, err := parseTime(record[cols["start_date"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		maxGross, err := parseMoney(record[cols["max_total_gross"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		event := models.Event{
			ID:            strings.TrimSpace(record[cols["id"]]),
			Name:          strings.TrimSpace(record[cols["name"]]),
			StartDate:     start,
			MaxTotalGross: maxGross,
		}
		if err := event.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: invalid event: %w", row, err)
		}
		events = append(events, event)
	}
	return events, nil
}

// columnIndex maps header names to their positions and verifies that all
// required columns are present.
func columnIndex(header []string, required ...string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return index, nil
}

func parseTime(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func parseMoney(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", value)
	}
	return d, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
