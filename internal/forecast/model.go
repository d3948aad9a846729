package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/ticketline/revcast/internal/models"
)

// ratioEpsilon clamps ratios away from 0 and cap to prevent ln(0) in the logit transform.
const ratioEpsilon = 1e-7

// Model is a growth-capped, non-seasonal trend model for an event's cumulative
// revenue ratio, fitted per event:
//
//	ŷ(t) = cap / (1 + exp(−(a + b·t)))
//
// a and b are estimated by ordinary least squares on the logit-transformed
// ratios, with t measured in fractional days since the first observation.
// The logistic form keeps every prediction inside (0, cap).
type Model struct {
	cap       float64
	intercept float64
	slope     float64
	sigma     float64 // residual sample std dev in logit space
	width     float64 // central interval mass
	times     []time.Time
}

// Fit estimates the trend for a series. It requires at least two observations
// spanning a non-zero stretch of time. intervalWidth is the central
// probability mass of the prediction intervals, in (0, 1).
func Fit(series *Series, intervalWidth float64) (*Model, error) {
	if series == nil || len(series.Points) < 2 {
		return nil, fmt.Errorf("need at least 2 observations to fit a trend")
	}
	if series.Cap <= 0 {
		return nil, fmt.Errorf("capacity cap must be positive, got %g", series.Cap)
	}
	if intervalWidth <= 0 || intervalWidth >= 1 {
		return nil, fmt.Errorf("interval width must be in (0, 1), got %g", intervalWidth)
	}

	n := len(series.Points)
	origin := series.Points[0].Timestamp

	ts := make([]float64, n)
	zs := make([]float64, n)
	times := make([]time.Time, n)
	for i, p := range series.Points {
		ts[i] = p.Timestamp.Sub(origin).Hours() / 24
		zs[i] = Logit(p.Ratio, series.Cap)
		times[i] = p.Timestamp
	}

	var sumT, sumZ, sumTZ, sumTT float64
	for i := 0; i < n; i++ {
		sumT += ts[i]
		sumZ += zs[i]
		sumTZ += ts[i] * zs[i]
		sumTT += ts[i] * ts[i]
	}

	denom := float64(n)*sumTT - sumT*sumT
	if math.Abs(denom) < 1e-12 {
		return nil, fmt.Errorf("observations span no time: cannot fit a trend")
	}

	slope := (float64(n)*sumTZ - sumT*sumZ) / denom
	intercept := (sumZ - slope*sumT) / float64(n)

	// Residual sample std dev (Bessel correction, divide by n-1)
	var rss float64
	for i := 0; i < n; i++ {
		r := zs[i] - (intercept + slope*ts[i])
		rss += r * r
	}
	sigma := math.Sqrt(rss / float64(n-1))

	return &Model{
		cap:       series.Cap,
		intercept: intercept,
		slope:     slope,
		sigma:     sigma,
		width:     intervalWidth,
		times:     times,
	}, nil
}

// Predict evaluates the fitted trend over every observed timestamp and then
// horizonDays daily steps beyond the last observation. Interval half-widths
// are z_q·σ in logit space for in-sample points, inflated by √(1 + h/n) for
// the h-th future step, then mapped through the logistic so that
// lower ≤ value ≤ upper always holds and all three respect the cap.
func (m *Model) Predict(horizonDays int) []models.ForecastPoint {
	n := len(m.times)
	origin := m.times[0]
	last := m.times[n-1]
	zq := IntervalZ(m.width)

	points := make([]models.ForecastPoint, 0, n+horizonDays)
	for _, ts := range m.times {
		t := ts.Sub(origin).Hours() / 24
		points = append(points, m.point(ts, t, zq*m.sigma))
	}
	for h := 1; h <= horizonDays; h++ {
		ts := last.AddDate(0, 0, h)
		t := ts.Sub(origin).Hours() / 24
		widen := math.Sqrt(1 + float64(h)/float64(n))
		points = append(points, m.point(ts, t, zq*m.sigma*widen))
	}
	return points
}

func (m *Model) point(ts time.Time, t, halfWidth float64) models.ForecastPoint {
	z := m.intercept + m.slope*t
	return models.ForecastPoint{
		Timestamp: ts,
		Value:     Logistic(z, m.cap),
		Lower:     Logistic(z-halfWidth, m.cap),
		Upper:     Logistic(z+halfWidth, m.cap),
	}
}

// Logit maps a ratio y in (0, cap) to ln(y / (cap − y)). Inputs are clamped
// to [cap·1e-7, cap·(1−1e-7)] to avoid ln(0) on all-zero or sold-out series.
func Logit(y, cap float64) float64 {
	y = math.Max(cap*ratioEpsilon, math.Min(cap*(1-ratioEpsilon), y))
	return math.Log(y / (cap - y))
}

// Logistic is the inverse of Logit: cap / (1 + exp(−z)).
func Logistic(z, cap float64) float64 {
	return cap / (1 + math.Exp(-z))
}

// IntervalZ returns the two-sided standard-normal quantile for a central
// interval of the given width: z_q = √2·erfinv(width). For width 0.8 this
// is ≈ 1.2816.
func IntervalZ(width float64) float64 {
	return math.Sqrt2 * math.Erfinv(width)
}
