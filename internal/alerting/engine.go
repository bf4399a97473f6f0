package alerting

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"estoque-monitor/internal/analysis"
)

// Issue identifies which rule raised an alert.
type Issue string

const (
	IssueAbaixoMeta Issue = "abaixo_meta"
	IssueUpFast     Issue = "up_fast"
	IssueDownFast   Issue = "down_fast"
)

// Severity grades an alert.
type Severity string

const (
	SeverityAlta  Severity = "alta"
	SeverityMedia Severity = "média"
)

// Alert flags a metric deviating from its target or moving faster than
// expected. Alerts are a projection of the evaluation set at assembly
// time; they are embedded in the snapshot, never stored on their own by
// the engine.
type Alert struct {
	Metric    string    `json:"metric"`
	Issue     Issue     `json:"issue"`
	Detail    string    `json:"detail"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// Engine scans evaluated metrics for threshold and trend-velocity
// violations.
type Engine struct {
	// ThresholdPct is the minimum |delta_pct| for an abaixo_meta alert.
	ThresholdPct decimal.Decimal
	// Now supplies the alert timestamp; defaults to time.Now.
	Now func() time.Time
}

// Scan emits alerts over the evaluation set, ordered by metric key and
// then by rule. Both rules may fire for the same metric. An undefined
// delta_pct counts as zero for the threshold comparison: an undefined
// deviation never alerts.
func (e Engine) Scan(evals map[string]*analysis.Evaluation) []Alert {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	keys := make([]string, 0, len(evals))
	for key := range evals {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	alerts := make([]Alert, 0)
	for _, key := range keys {
		ev := evals[key]

		if ev.Status == analysis.StatusAbaixoMeta && deltaPctOrZero(ev).Abs().GreaterThan(e.ThresholdPct) {
			alerts = append(alerts, Alert{
				Metric:    key,
				Issue:     IssueAbaixoMeta,
				Detail:    fmt.Sprintf("%s %s acima da meta %s", key, ev.Current.String(), targetString(ev)),
				Severity:  SeverityAlta,
				Timestamp: now().UTC(),
			})
		}

		if ev.Trend == analysis.TrendUpFast || ev.Trend == analysis.TrendDownFast {
			alerts = append(alerts, Alert{
				Metric:    key,
				Issue:     Issue(ev.Trend),
				Detail:    fmt.Sprintf("Tendência %s (slope %s)", ev.Trend, ev.Slope.String()),
				Severity:  SeverityMedia,
				Timestamp: now().UTC(),
			})
		}
	}
	return alerts
}

func deltaPctOrZero(ev *analysis.Evaluation) decimal.Decimal {
	if ev.DeltaPct == nil {
		return decimal.Zero
	}
	return *ev.DeltaPct
}

func targetString(ev *analysis.Evaluation) string {
	if ev.Target == nil {
		return "?"
	}
	return ev.Target.String()
}
