package alerting

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"estoque-monitor/internal/analysis"
)

func frozenClock() func() time.Time {
	ts := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func testEngine() Engine {
	return Engine{ThresholdPct: decimal.NewFromInt(15), Now: frozenClock()}
}

func evalBelowTarget(key string, deltaPct float64) *analysis.Evaluation {
	pct := decimal.NewFromFloat(deltaPct)
	target := decimal.NewFromInt(80)
	return &analysis.Evaluation{
		Key:      key,
		Current:  decimal.NewFromInt(100),
		Target:   &target,
		DeltaPct: &pct,
		Status:   analysis.StatusAbaixoMeta,
		Trend:    analysis.TrendFlat,
	}
}

func TestScanThresholdRule(t *testing.T) {
	alerts := testEngine().Scan(map[string]*analysis.Evaluation{
		"dias_ruptura": evalBelowTarget("dias_ruptura", 25),
	})

	if len(alerts) != 1 {
		t.Fatalf("esperava 1 alerta, obteve %d", len(alerts))
	}
	alert := alerts[0]
	if alert.Issue != IssueAbaixoMeta || alert.Severity != SeverityAlta {
		t.Fatalf("alerta de meta incorreto: %+v", alert)
	}
	if !alert.Timestamp.Equal(frozenClock()()) {
		t.Fatalf("timestamp deveria vir do relógio injetado: %s", alert.Timestamp)
	}
}

func TestScanThresholdNotExceeded(t *testing.T) {
	// |delta_pct| equal to the threshold does not fire
	alerts := testEngine().Scan(map[string]*analysis.Evaluation{
		"dias_ruptura": evalBelowTarget("dias_ruptura", 15),
	})
	if len(alerts) != 0 {
		t.Fatalf("delta igual ao limiar não deveria alertar: %+v", alerts)
	}
}

func TestScanUndefinedDeltaPctNeverAlerts(t *testing.T) {
	ev := evalBelowTarget("dias_ruptura", 0)
	ev.DeltaPct = nil

	alerts := testEngine().Scan(map[string]*analysis.Evaluation{"dias_ruptura": ev})
	if len(alerts) != 0 {
		t.Fatalf("delta_pct indefinido não deveria alertar: %+v", alerts)
	}
}

func TestScanTrendRule(t *testing.T) {
	ev := &analysis.Evaluation{
		Key:    "cobertura",
		Status: analysis.StatusSemMeta,
		Trend:  analysis.TrendDownFast,
		Slope:  decimal.NewFromFloat(-3.2),
	}

	alerts := testEngine().Scan(map[string]*analysis.Evaluation{"cobertura": ev})
	if len(alerts) != 1 {
		t.Fatalf("esperava 1 alerta de tendência, obteve %d", len(alerts))
	}
	if alerts[0].Issue != IssueDownFast || alerts[0].Severity != SeverityMedia {
		t.Fatalf("alerta de tendência incorreto: %+v", alerts[0])
	}
}

func TestScanBothRulesSameMetric(t *testing.T) {
	ev := evalBelowTarget("dias_ruptura", 30)
	ev.Trend = analysis.TrendUpFast

	alerts := testEngine().Scan(map[string]*analysis.Evaluation{"dias_ruptura": ev})
	if len(alerts) != 2 {
		t.Fatalf("ambas as regras deveriam disparar, obteve %d alertas", len(alerts))
	}
	if alerts[0].Issue != IssueAbaixoMeta || alerts[1].Issue != IssueUpFast {
		t.Fatalf("ordem das regras incorreta: %+v", alerts)
	}
}

func TestScanOrderedByMetricKey(t *testing.T) {
	evals := map[string]*analysis.Evaluation{
		"b_metric": evalBelowTarget("b_metric", 20),
		"a_metric": evalBelowTarget("a_metric", 20),
		"c_metric": evalBelowTarget("c_metric", 20),
	}

	alerts := testEngine().Scan(evals)
	if len(alerts) != 3 {
		t.Fatalf("esperava 3 alertas, obteve %d", len(alerts))
	}
	for i, want := range []string{"a_metric", "b_metric", "c_metric"} {
		if alerts[i].Metric != want {
			t.Fatalf("alerta %d deveria ser %s, obteve %s", i, want, alerts[i].Metric)
		}
	}
}
