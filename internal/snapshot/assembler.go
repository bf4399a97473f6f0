package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"estoque-monitor/internal/action"
	"estoque-monitor/internal/alerting"
	"estoque-monitor/internal/analysis"
	"estoque-monitor/internal/metric"
	"estoque-monitor/internal/relation"
)

const dateLayout = "2006-01-02"

// Inputs bundles everything one assembly consumes. All of it is built
// fresh per run; the assembler holds no state between runs.
type Inputs struct {
	Store    *metric.Store
	Graph    *relation.Graph
	Targets  map[string]analysis.Target
	Problems map[string]string
	Actions  map[string]action.Definition
}

// Assembler composes metric evaluations, relation links, action scores and
// alerts into one snapshot.
type Assembler struct {
	Estimator    analysis.Estimator
	ThresholdPct decimal.Decimal
	CadenceDays  int
	Summarizer   Summarizer
	Logger       zerolog.Logger
	// Now supplies run_timestamp and alert timestamps; defaults to time.Now.
	Now func() time.Time
}

// Assemble produces the snapshot for one run. Every non-empty series
// yields exactly one evaluation; every problem and action in the relation
// mapping appears exactly once; alerts are computed only after the full
// evaluation set exists. A failing or absent summarizer leaves llm_summary
// empty and never fails the assembly.
func (a Assembler) Assemble(ctx context.Context, in Inputs) *Snapshot {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	logger := a.Logger.With().Str("component", "assembler").Logger()

	evals := a.Estimator.EvaluateAll(in.Store, in.Targets)
	for key, ev := range evals {
		ev.ProblemIDs = in.Graph.ProblemsForMetric(key)
		ev.ActionIDs = in.Graph.ActionsForMetric(key)
	}

	problems := make([]Problem, 0, len(in.Graph.ProblemIDs()))
	for _, pid := range in.Graph.ProblemIDs() {
		desc, known := in.Problems[pid]
		if !known {
			logger.Warn().Str("problem_id", pid).Msg("problema referenciado no mapeamento sem descrição")
		}
		problems = append(problems, Problem{
			ID:        pid,
			Descricao: desc,
			Status:    "em_andamento",
			MetricIDs: in.Graph.MetricsForProblem(pid),
			ActionIDs: in.Graph.ActionsForProblem(pid),
		})
	}

	actions := make([]*action.Action, 0, len(in.Graph.ActionIDs()))
	for _, aid := range in.Graph.ActionIDs() {
		def, known := in.Actions[aid]
		if !known {
			logger.Warn().Str("action_id", aid).Msg("ação referenciada no mapeamento sem cadastro")
		}
		act := &action.Action{
			ID:              aid,
			Descricao:       def.Descricao,
			ImpactoEsperado: def.ImpactoEsperado,
			ProblemIDs:      in.Graph.ProblemsForAction(aid),
			MetricIDs:       in.Graph.MetricsForAction(aid),
		}
		if def.ImplementadaEm != nil {
			date := def.ImplementadaEm.Format(dateLayout)
			act.ImplementadaEm = &date
		}
		action.Score(act, evals)
		actions = append(actions, act)
	}

	engine := alerting.Engine{ThresholdPct: a.ThresholdPct, Now: now}
	alerts := engine.Scan(evals)

	runTS := now().UTC()
	snap := &Snapshot{
		SchemaVersion:  SchemaVersion,
		ContratanteID:  in.Store.ContratanteID,
		PlanejamentoID: in.Store.PlanejamentoID,
		RunTimestamp:   runTS.Format(time.RFC3339),
		Problems:       problems,
		Actions:        actions,
		Metrics:        evals,
		Alerts:         alerts,
	}

	if start, end, ok := in.Store.Bounds(); ok {
		snap.Window = Window{Start: start.Format(dateLayout), End: end.Format(dateLayout)}
		snap.NextReportDue = end.AddDate(0, 0, a.CadenceDays).Format(dateLayout)
	}

	snap.LLMSummary = a.summarize(ctx, logger, evals, alerts)
	return snap
}

func (a Assembler) summarize(ctx context.Context, logger zerolog.Logger, evals map[string]*analysis.Evaluation, alerts []alerting.Alert) string {
	if a.Summarizer == nil {
		return ""
	}

	input := SummaryInput{}
	for _, ev := range evals {
		switch ev.Status {
		case analysis.StatusAbaixoMeta:
			input.BelowTarget++
		case analysis.StatusDentroMeta, analysis.StatusAcimaMeta:
			input.OnTarget++
		}
	}
	for i, alert := range alerts {
		if i == 3 {
			break
		}
		input.TopAlerts = append(input.TopAlerts, fmt.Sprintf("%s – %s", alert.Metric, alert.Issue))
	}

	summary, err := a.Summarizer.Summarize(ctx, input)
	if err != nil {
		logger.Warn().Err(err).Msg("resumo narrativo indisponível; seguindo sem llm_summary")
		return ""
	}
	return summary
}
