// Package action scores the observed effect of planned actions against
// their declared expected impact. The score is a coarse heuristic over
// mean metric deltas, not causal attribution.
package action

import (
	"time"

	"github.com/shopspring/decimal"

	"estoque-monitor/internal/analysis"
)

// Eficacia labels how the observed metric movement compares with the
// declared expectation.
type Eficacia string

const (
	EficaciaAlta   Eficacia = "alta"
	EficaciaMedia  Eficacia = "média"
	EficaciaBaixa  Eficacia = "baixa"
	EficaciaContra Eficacia = "contrária"
)

// Recomendacao is the follow-up derived from the eficácia label.
type Recomendacao string

const (
	RecomendacaoManter  Recomendacao = "manter"
	RecomendacaoAjustar Recomendacao = "ajustar"
)

// Definition is the immutable externally supplied part of an action.
type Definition struct {
	Descricao       string
	ImpactoEsperado string
	ImplementadaEm  *time.Time
}

// Action is one planned action enriched with its relation links and, after
// scoring, the derived eficácia fields. The derived fields stay nil when
// the action has no evaluated metrics: unknown efficacy is never coerced
// to "baixa".
type Action struct {
	ID              string           `json:"action_id"`
	Descricao       string           `json:"descricao"`
	ImplementadaEm  *string          `json:"implementada_em"`
	ProblemIDs      []string         `json:"problem_ids"`
	MetricIDs       []string         `json:"metric_ids"`
	ImpactoEsperado string           `json:"impacto_esperado"`
	Observado       *decimal.Decimal `json:"observado"`
	Eficacia        *Eficacia        `json:"eficacia"`
	Recomendacao    *Recomendacao    `json:"recomendacao"`
}

// Score fills the derived fields of an action from the evaluations of its
// linked metrics. Metrics absent from the evaluation set contribute
// nothing; when none remain, the three outputs stay nil.
func Score(a *Action, evals map[string]*analysis.Evaluation) {
	sum := decimal.Zero
	count := int64(0)
	for _, mid := range a.MetricIDs {
		ev, ok := evals[mid]
		if !ok {
			continue
		}
		sum = sum.Add(ev.DeltaAbs)
		count++
	}
	if count == 0 {
		return
	}

	mean := sum.Div(decimal.NewFromInt(count))
	observed := mean.Round(2)
	a.Observado = &observed

	eficacia := classify(mean, a.ImpactoEsperado)
	a.Eficacia = &eficacia

	rec := RecomendacaoAjustar
	if eficacia == EficaciaAlta {
		rec = RecomendacaoManter
	}
	a.Recomendacao = &rec
}

func classify(mean decimal.Decimal, impactoEsperado string) Eficacia {
	impact, ok := ParseImpact(impactoEsperado)
	if !ok {
		// no usable directive: insufficient basis to judge
		return EficaciaMedia
	}
	if int64(impact.Sign)*int64(mean.Sign()) < 0 {
		return EficaciaContra
	}
	if mean.Abs().GreaterThanOrEqual(impact.Magnitude) {
		return EficaciaAlta
	}
	return EficaciaBaixa
}
