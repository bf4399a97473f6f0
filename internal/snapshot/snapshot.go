// Package snapshot assembles the single output artifact of one analysis
// run: a versioned, timestamped document linking problems, actions,
// metric evaluations and alerts.
package snapshot

import (
	"context"

	"github.com/shopspring/decimal"

	"estoque-monitor/internal/action"
	"estoque-monitor/internal/alerting"
	"estoque-monitor/internal/analysis"
)

// SchemaVersion of the snapshot document.
const SchemaVersion = 1

func init() {
	// metric values serialize as JSON numbers in the snapshot document
	decimal.MarshalJSONWithoutQuotes = true
}

// Window is the observation period, derived from the subject's own sample
// timestamps rather than wall clock.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Problem is one identified problem enriched with its relation links.
// Status is fixed at "em_andamento"; problem lifecycle tracking lives
// outside this pipeline.
type Problem struct {
	ID        string   `json:"problem_id"`
	Descricao string   `json:"descricao"`
	Status    string   `json:"status"`
	MetricIDs []string `json:"metric_ids"`
	ActionIDs []string `json:"action_ids"`
}

// Snapshot is the immutable result of one run. Each run produces a new
// snapshot; none is ever updated in place.
type Snapshot struct {
	SchemaVersion  int                             `json:"schema_version"`
	ContratanteID  int64                           `json:"contratante_id"`
	PlanejamentoID int64                           `json:"planejamento_id"`
	RunTimestamp   string                          `json:"run_timestamp"`
	Window         Window                          `json:"window"`
	Problems       []Problem                       `json:"problems"`
	Actions        []*action.Action                `json:"actions"`
	Metrics        map[string]*analysis.Evaluation `json:"metrics"`
	Alerts         []alerting.Alert                `json:"alerts"`
	LLMSummary     string                          `json:"llm_summary"`
	NextReportDue  string                          `json:"next_report_due"`
}

// SummaryInput aggregates what the narrative collaborator needs: the top
// alerts and the target-status counts.
type SummaryInput struct {
	TopAlerts   []string
	BelowTarget int
	OnTarget    int
}

// Summarizer produces the optional llm_summary headline. Implementations
// may call external services; the assembler tolerates any failure.
type Summarizer interface {
	Summarize(ctx context.Context, input SummaryInput) (string, error)
}

// NoopSummarizer keeps the core testable without network collaborators.
type NoopSummarizer struct{}

// Summarize returns an empty headline.
func (NoopSummarizer) Summarize(context.Context, SummaryInput) (string, error) {
	return "", nil
}
