// Package chart renders an event's observed sales and forecast as a PNG image.
package chart

import (
	"fmt"
	"io"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/ticketline/revcast/internal/forecast"
	"github.com/ticketline/revcast/internal/models"
)

// YAxisLabel is the fixed y-axis caption; values are fractions of sellout.
const YAxisLabel = "% Sold"

// Render draws the observed ratio points, the fitted forecast line, and the
// prediction interval bounds for one event, labeling the x-axis with the
// event name. The PNG is written to w.
func Render(w io.Writer, eventName string, series *forecast.Series, points []models.ForecastPoint) error {
	if series == nil || len(series.Points) == 0 {
		return fmt.Errorf("no observations to draw")
	}
	if len(points) == 0 {
		return fmt.Errorf("no forecast points to draw")
	}

	obsX := make([]time.Time, len(series.Points))
	obsY := make([]float64, len(series.Points))
	for i, p := range series.Points {
		obsX[i] = p.Timestamp
		obsY[i] = p.Ratio
	}

	fcX := make([]time.Time, len(points))
	fcY := make([]float64, len(points))
	loY := make([]float64, len(points))
	upY := make([]float64, len(points))
	for i, p := range points {
		fcX[i] = p.Timestamp
		fcY[i] = p.Value
		loY[i] = p.Lower
		upY[i] = p.Upper
	}

	graph := gochart.Chart{
		XAxis: gochart.XAxis{Name: eventName},
		YAxis: gochart.YAxis{Name: YAxisLabel},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    "observed",
				XValues: obsX,
				YValues: obsY,
				Style: gochart.Style{
					StrokeWidth: gochart.Disabled,
					DotWidth:    3,
					DotColor:    gochart.ColorBlack,
				},
			},
			gochart.TimeSeries{
				Name:    "forecast",
				XValues: fcX,
				YValues: fcY,
				Style: gochart.Style{
					StrokeColor: gochart.ColorBlue,
					StrokeWidth: 2,
				},
			},
			gochart.TimeSeries{
				Name:    "lower",
				XValues: fcX,
				YValues: loY,
				Style:   boundStyle(),
			},
			gochart.TimeSeries{
				Name:    "upper",
				XValues: fcX,
				YValues: upY,
				Style:   boundStyle(),
			},
		},
	}

	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func boundStyle() gochart.Style {
	return gochart.Style{
		StrokeColor:     gochart.ColorBlue.WithAlpha(90),
		StrokeWidth:     1,
		StrokeDashArray: []float64{4, 4},
	}
}
