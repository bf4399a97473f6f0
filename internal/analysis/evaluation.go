package analysis

import (
	"github.com/shopspring/decimal"

	"estoque-monitor/internal/metric"
)

var oneHundred = decimal.NewFromInt(100)

// Evaluation is the fully derived view of one metric for a run: baseline
// and current extraction, deltas, trailing-window trend and target status.
// It is recomputed from the series on every run, never mutated
// incrementally; ProblemIDs and ActionIDs are attached afterwards from the
// relation graph.
type Evaluation struct {
	Key       string           `json:"name"`
	HasTarget bool             `json:"has_target"`
	Baseline  decimal.Decimal  `json:"baseline"`
	Current   decimal.Decimal  `json:"current"`
	Target    *decimal.Decimal `json:"target"`
	DeltaAbs  decimal.Decimal  `json:"delta_abs"`
	// DeltaPct is nil, not zero, when the baseline is zero. Consumers must
	// keep the two cases distinct.
	DeltaPct   *decimal.Decimal `json:"delta_pct"`
	Slope      decimal.Decimal  `json:"slope_7d"`
	Trend      Trend            `json:"trend"`
	Status     Status           `json:"status"`
	ProblemIDs []string         `json:"problem_ids"`
	ActionIDs  []string         `json:"action_ids"`
}

// Evaluate derives the evaluation of one non-empty series against an
// optional target. ok is false for an empty series, which is excluded
// from the evaluation set entirely.
func (e Estimator) Evaluate(s *metric.Series, target Target) (Evaluation, bool) {
	baseline, ok := s.Baseline()
	if !ok {
		return Evaluation{}, false
	}
	current, _ := s.Current()

	deltaAbs := current.Value.Sub(baseline.Value)
	var deltaPct *decimal.Decimal
	if !baseline.Value.IsZero() {
		pct := deltaAbs.Div(baseline.Value).Mul(oneHundred).Round(2)
		deltaPct = &pct
	}

	slope := e.Slope(s)

	ev := Evaluation{
		Key:        s.Key,
		HasTarget:  target.Has,
		Baseline:   baseline.Value,
		Current:    current.Value,
		DeltaAbs:   deltaAbs,
		DeltaPct:   deltaPct,
		Slope:      slope.Round(3),
		Trend:      e.Classify(slope),
		Status:     EvaluateStatus(current.Value, target),
		ProblemIDs: []string{},
		ActionIDs:  []string{},
	}
	if target.Has {
		value := target.Value
		ev.Target = &value
	}
	return ev, true
}

// EvaluateAll evaluates every non-empty series in the store. Metrics
// missing from the targets table are treated as observational (sem_meta).
func (e Estimator) EvaluateAll(store *metric.Store, targets map[string]Target) map[string]*Evaluation {
	out := make(map[string]*Evaluation, store.Len())
	for _, key := range store.Keys() {
		s, _ := store.Series(key)
		ev, ok := e.Evaluate(s, targets[key])
		if !ok {
			continue
		}
		out[key] = &ev
	}
	return out
}
