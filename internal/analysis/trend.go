package analysis

import (
	"github.com/shopspring/decimal"

	"estoque-monitor/internal/metric"
)

// Trend classifies the direction and velocity of a metric's slope.
type Trend string

const (
	TrendFlat     Trend = "flat"
	TrendUp       Trend = "up"
	TrendUpFast   Trend = "up_fast"
	TrendDown     Trend = "down"
	TrendDownFast Trend = "down_fast"
)

// Estimator computes the per-day slope of a metric over a trailing window
// and classifies it. All knobs come from configuration.
type Estimator struct {
	WindowDays int
	Epsilon    decimal.Decimal
	FastFactor decimal.Decimal
}

// Slope returns the ordinary least-squares slope (units per day) of the
// series restricted to the estimator's trailing window. Fewer than two
// samples in the window, or samples sharing a single timestamp, yield a
// slope of exactly zero.
func (e Estimator) Slope(s *metric.Series) decimal.Decimal {
	window := s.TrailingWindow(e.WindowDays)
	if len(window) < 2 {
		return decimal.Zero
	}

	// x = whole days elapsed since the window's first sample
	first := window[0].Timestamp
	n := decimal.NewFromInt(int64(len(window)))

	xs := make([]decimal.Decimal, len(window))
	sumX, sumY := decimal.Zero, decimal.Zero
	for i, sample := range window {
		days := int64(sample.Timestamp.Sub(first) / (24 * 60 * 60 * 1e9))
		xs[i] = decimal.NewFromInt(days)
		sumX = sumX.Add(xs[i])
		sumY = sumY.Add(sample.Value)
	}
	meanX := sumX.Div(n)
	meanY := sumY.Div(n)

	// β₁ = cov(x,y) / var(x)
	cov, variance := decimal.Zero, decimal.Zero
	for i, sample := range window {
		dx := xs[i].Sub(meanX)
		cov = cov.Add(dx.Mul(sample.Value.Sub(meanY)))
		variance = variance.Add(dx.Mul(dx))
	}
	if variance.IsZero() {
		return decimal.Zero
	}
	return cov.Div(variance)
}

// Classify maps a slope into a trend bucket. |slope| < epsilon is flat;
// otherwise sign picks up/down and |slope| >= fast_factor*epsilon promotes
// to the fast variant.
func (e Estimator) Classify(slope decimal.Decimal) Trend {
	abs := slope.Abs()
	if abs.LessThan(e.Epsilon) {
		return TrendFlat
	}
	fast := abs.GreaterThanOrEqual(e.FastFactor.Mul(e.Epsilon))
	if slope.Sign() > 0 {
		if fast {
			return TrendUpFast
		}
		return TrendUp
	}
	if fast {
		return TrendDownFast
	}
	return TrendDown
}
