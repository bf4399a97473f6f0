package analysis

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"estoque-monitor/internal/metric"
)

func testEstimator() Estimator {
	return Estimator{
		WindowDays: 7,
		Epsilon:    decimal.NewFromFloat(0.1),
		FastFactor: decimal.NewFromFloat(2.0),
	}
}

func dailySeries(key string, values ...int64) *metric.Series {
	s := metric.NewSeries(key)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		s.Add(metric.Sample{Timestamp: base.AddDate(0, 0, i), Value: decimal.NewFromInt(v)})
	}
	return s
}

func TestSlopeTooFewSamples(t *testing.T) {
	est := testEstimator()

	if got := est.Slope(dailySeries("m")); !got.IsZero() {
		t.Fatalf("série vazia deveria ter slope zero, obteve %s", got)
	}
	if got := est.Slope(dailySeries("m", 10)); !got.IsZero() {
		t.Fatalf("amostra única deveria ter slope zero, obteve %s", got)
	}
}

func TestSlopeZeroVariance(t *testing.T) {
	s := metric.NewSeries("m")
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	s.Add(metric.Sample{Timestamp: ts, Value: decimal.NewFromInt(10)})
	s.Add(metric.Sample{Timestamp: ts.Add(6 * time.Hour), Value: decimal.NewFromInt(20)})

	// both samples fall on the same whole day, so var(x) = 0
	if got := testEstimator().Slope(s); !got.IsZero() {
		t.Fatalf("variância zero deveria dar slope zero, obteve %s", got)
	}
}

func TestSlopeLinearSeries(t *testing.T) {
	// perfectly linear: value = 3*day
	s := dailySeries("m", 0, 3, 6, 9, 12)
	got := testEstimator().Slope(s)
	if !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("slope de série linear deveria ser 3, obteve %s", got)
	}
}

func TestSlopeSpikeClassifiedFast(t *testing.T) {
	// six flat days then a spike: cov/var = 90/28
	s := dailySeries("m", 10, 10, 10, 10, 10, 10, 40)
	est := testEstimator()

	slope := est.Slope(s)
	want := decimal.NewFromInt(90).Div(decimal.NewFromInt(28))
	if !slope.Sub(want).Abs().LessThan(decimal.NewFromFloat(0.0001)) {
		t.Fatalf("slope esperado %s, obteve %s", want, slope)
	}
	if got := est.Classify(slope); got != TrendUpFast {
		t.Fatalf("spike deveria classificar up_fast, obteve %s", got)
	}
}

func TestClassifyBuckets(t *testing.T) {
	est := testEstimator()
	cases := []struct {
		slope float64
		want  Trend
	}{
		{0, TrendFlat},
		{0.05, TrendFlat},
		{-0.09, TrendFlat},
		{0.1, TrendUp},
		{0.19, TrendUp},
		{0.2, TrendUpFast},
		{5, TrendUpFast},
		{-0.1, TrendDown},
		{-0.2, TrendDownFast},
	}
	for _, tc := range cases {
		if got := est.Classify(decimal.NewFromFloat(tc.slope)); got != tc.want {
			t.Fatalf("slope %v: esperava %s, obteve %s", tc.slope, tc.want, got)
		}
	}
}
