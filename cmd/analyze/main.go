// Command analyze prints an offline diagnostics report over the configured
// dataset: order distribution per event, sensitivity of the qualifying-event
// count to the order threshold, and fit diagnostics for the busiest events.
// It reads the same buckets as a forecast run but uploads nothing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/ticketline/revcast/internal/config"
	"github.com/ticketline/revcast/internal/dataset"
	"github.com/ticketline/revcast/internal/forecast"
	"github.com/ticketline/revcast/internal/models"
	"github.com/ticketline/revcast/internal/storage"
)

var (
	configPath = flag.String("config", "", "Path to configuration file (optional)")
	topN       = flag.Int("top", 10, "Number of events to detail, busiest first")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg.Storage.Backend, cfg.Storage.CredentialsFile, cfg.Storage.BaseDir)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	loader := dataset.NewLoader(store, cfg.Storage.DataBucket)
	orders, err := loader.LoadOrders(ctx, cfg.Dataset.OrdersKey)
	if err != nil {
		log.Fatalf("Failed to load orders: %v", err)
	}
	events, err := loader.LoadEvents(ctx, cfg.Dataset.EventsKey)
	if err != nil {
		log.Fatalf("Failed to load events: %v", err)
	}

	eventsByID := make(map[string]models.Event, len(events))
	for _, event := range events {
		eventsByID[event.ID] = event
	}

	ordersByEvent := make(map[string][]models.Order)
	var eventIDs []string
	for _, order := range orders {
		if _, ok := ordersByEvent[order.EventID]; !ok {
			eventIDs = append(eventIDs, order.EventID)
		}
		ordersByEvent[order.EventID] = append(ordersByEvent[order.EventID], order)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("REVCAST DATASET ANALYSIS")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("\nSTEP 1: Order distribution per event")
	fmt.Println(strings.Repeat("-", 80))
	printOrderDistribution(orders, eventIDs, ordersByEvent, eventsByID)

	fmt.Println("\nSTEP 2: Threshold sensitivity")
	fmt.Println(strings.Repeat("-", 80))
	printThresholdSensitivity(eventIDs, ordersByEvent, cfg.Forecast.MinOrders)

	fmt.Println("\nSTEP 3: Fit diagnostics for qualifying events")
	fmt.Println(strings.Repeat("-", 80))
	printFitDiagnostics(cfg, eventIDs, ordersByEvent, eventsByID, *topN)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("ANALYSIS COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
}

func printOrderDistribution(orders []models.Order, eventIDs []string, ordersByEvent map[string][]models.Order, eventsByID map[string]models.Event) {
	counts := make([]int, 0, len(eventIDs))
	missingRecords := 0
	for _, id := range eventIDs {
		counts = append(counts, len(ordersByEvent[id]))
		if _, ok := eventsByID[id]; !ok {
			missingRecords++
		}
	}

	fmt.Printf("\nTotal orders: %d\n", len(orders))
	fmt.Printf("Distinct events with orders: %d\n", len(eventIDs))
	fmt.Printf("Event records loaded: %d\n", len(eventsByID))
	if missingRecords > 0 {
		fmt.Printf("Events with orders but no record (would abort a run): %d\n", missingRecords)
	}
	if len(counts) == 0 {
		return
	}

	sort.Ints(counts)
	fmt.Println("\nOrders per event:")
	fmt.Printf("  Min: %d\n", counts[0])
	fmt.Printf("  Median: %d\n", counts[len(counts)/2])
	fmt.Printf("  Max: %d\n", counts[len(counts)-1])
}

func printThresholdSensitivity(eventIDs []string, ordersByEvent map[string][]models.Order, configured int) {
	thresholds := []int{10, 25, 50, 100, 250}
	if !containsInt(thresholds, configured) {
		thresholds = append(thresholds, configured)
		sort.Ints(thresholds)
	}

	fmt.Println("\nEvents qualifying at each order threshold:")
	for _, threshold := range thresholds {
		count := 0
		for _, id := range eventIDs {
			if len(ordersByEvent[id]) >= threshold {
				count++
			}
		}
		marker := ""
		if threshold == configured {
			marker = "  <- configured min_orders"
		}
		pct := 0.0
		if len(eventIDs) > 0 {
			pct = float64(count) / float64(len(eventIDs)) * 100
		}
		fmt.Printf("  >= %4d orders: %4d events (%.1f%%)%s\n", threshold, count, pct, marker)
	}
}

func printFitDiagnostics(cfg *config.Config, eventIDs []string, ordersByEvent map[string][]models.Order, eventsByID map[string]models.Event, limit int) {
	qualifying := make([]string, 0, len(eventIDs))
	for _, id := range eventIDs {
		if len(ordersByEvent[id]) >= cfg.Forecast.MinOrders {
			qualifying = append(qualifying, id)
		}
	}
	sort.SliceStable(qualifying, func(i, j int) bool {
		return len(ordersByEvent[qualifying[i]]) > len(ordersByEvent[qualifying[j]])
	})
	if len(qualifying) > limit {
		qualifying = qualifying[:limit]
	}

	fmt.Printf("\nQualifying events (top %d by order count):\n\n", len(qualifying))
	for _, id := range qualifying {
		event, ok := eventsByID[id]
		if !ok {
			fmt.Printf("  %-32s  no event record\n", truncate(id, 32))
			continue
		}
		printEventDiagnostics(cfg, event, ordersByEvent[id])
	}
}

func printEventDiagnostics(cfg *config.Config, event models.Event, orders []models.Order) {
	name := truncate(event.Name, 32)

	series, err := forecast.BuildSeries(event, orders, cfg.Forecast.Capacity)
	if err != nil {
		fmt.Printf("  %-32s  series error: %v\n", name, err)
		return
	}
	sold := series.Points[len(series.Points)-1].Ratio * 100

	lastOrder := series.Points[len(series.Points)-1].Timestamp
	horizon, err := forecast.Horizon(event.StartDate, lastOrder)
	if err != nil {
		fmt.Printf("  %-32s  %6d orders  %5.1f%% sold  %v\n", name, len(orders), sold, err)
		return
	}

	model, err := forecast.Fit(series, cfg.Forecast.IntervalWidth)
	if err != nil {
		fmt.Printf("  %-32s  %6d orders  %5.1f%% sold  fit error: %v\n", name, len(orders), sold, err)
		return
	}
	points := model.Predict(horizon)
	final := points[len(points)-1]

	fmt.Printf("  %-32s  %6d orders  %5.1f%% sold  %3dd horizon  -> %5.1f%% [%5.1f%%, %5.1f%%]\n",
		name, len(orders), sold, horizon, final.Value*100, final.Lower*100, final.Upper*100)
}

func containsInt(values []int, v int) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
