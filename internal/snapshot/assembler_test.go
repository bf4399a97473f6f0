package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"estoque-monitor/internal/action"
	"estoque-monitor/internal/analysis"
	"estoque-monitor/internal/metric"
	"estoque-monitor/internal/relation"
)

type fixedSummarizer struct {
	text string
	err  error
	got  SummaryInput
}

func (f *fixedSummarizer) Summarize(_ context.Context, input SummaryInput) (string, error) {
	f.got = input
	return f.text, f.err
}

func testAssembler(s Summarizer) Assembler {
	return Assembler{
		Estimator: analysis.Estimator{
			WindowDays: 7,
			Epsilon:    decimal.NewFromFloat(0.1),
			FastFactor: decimal.NewFromFloat(2.0),
		},
		ThresholdPct: decimal.NewFromInt(15),
		CadenceDays:  15,
		Summarizer:   s,
		Logger:       zerolog.Nop(),
		Now: func() time.Time {
			return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
		},
	}
}

func testInputs() Inputs {
	store := metric.NewStore(101, 42)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// dias_ruptura rises from 100 to 130 against an upper bound of 80
	for i, v := range []int64{100, 110, 120, 130} {
		store.Add("dias_ruptura", metric.Sample{Timestamp: base.AddDate(0, 0, i), Value: decimal.NewFromInt(v)})
	}
	// cobertura holds steady without a target
	for i, v := range []int64{30, 30, 30, 30} {
		store.Add("cobertura", metric.Sample{Timestamp: base.AddDate(0, 0, i), Value: decimal.NewFromInt(v)})
	}

	implemented := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	return Inputs{
		Store: store,
		Graph: relation.Build(relation.Mapping{
			Problems: map[string]relation.ProblemLinks{
				"P1": {MetricIDs: []string{"dias_ruptura"}, ActionIDs: []string{"A1"}},
			},
			Actions: map[string]relation.ActionLinks{
				"A1": {MetricIDs: []string{"dias_ruptura"}},
			},
		}),
		Targets: map[string]analysis.Target{
			"dias_ruptura": {Has: true, Value: decimal.NewFromInt(80), Direction: analysis.DirectionMenorMelhor},
		},
		Problems: map[string]string{"P1": "Rupturas recorrentes no CD"},
		Actions: map[string]action.Definition{
			"A1": {Descricao: "Revisar ponto de pedido", ImpactoEsperado: "-10 dias", ImplementadaEm: &implemented},
		},
	}
}

func TestAssembleFullDocument(t *testing.T) {
	snap := testAssembler(NoopSummarizer{}).Assemble(context.Background(), testInputs())

	if snap.SchemaVersion != SchemaVersion {
		t.Fatalf("schema_version incorreta: %d", snap.SchemaVersion)
	}
	if snap.ContratanteID != 101 || snap.PlanejamentoID != 42 {
		t.Fatalf("identificação do sujeito incorreta: %d/%d", snap.ContratanteID, snap.PlanejamentoID)
	}
	if snap.RunTimestamp != "2025-06-15T12:00:00Z" {
		t.Fatalf("run_timestamp incorreto: %s", snap.RunTimestamp)
	}
	if snap.Window.Start != "2025-06-01" || snap.Window.End != "2025-06-04" {
		t.Fatalf("janela incorreta: %+v", snap.Window)
	}
	if snap.NextReportDue != "2025-06-19" {
		t.Fatalf("próximo relatório deveria ser fim da janela + 15 dias, obteve %s", snap.NextReportDue)
	}

	if len(snap.Metrics) != 2 {
		t.Fatalf("esperava 2 métricas avaliadas, obteve %d", len(snap.Metrics))
	}
	ruptura := snap.Metrics["dias_ruptura"]
	if ruptura.Status != analysis.StatusAbaixoMeta {
		t.Fatalf("dias_ruptura deveria estar abaixo_meta, obteve %s", ruptura.Status)
	}
	if len(ruptura.ProblemIDs) != 1 || ruptura.ProblemIDs[0] != "P1" {
		t.Fatalf("vínculo de problema ausente na avaliação: %v", ruptura.ProblemIDs)
	}

	if len(snap.Problems) != 1 || snap.Problems[0].Status != "em_andamento" {
		t.Fatalf("bloco de problemas incorreto: %+v", snap.Problems)
	}

	if len(snap.Actions) != 1 {
		t.Fatalf("esperava 1 ação, obteve %d", len(snap.Actions))
	}
	a1 := snap.Actions[0]
	if a1.ImplementadaEm == nil || *a1.ImplementadaEm != "2025-05-20" {
		t.Fatalf("implementada_em incorreta: %v", a1.ImplementadaEm)
	}
	// delta_abs = +30 against an expected -10: sign conflict
	if a1.Eficacia == nil || *a1.Eficacia != action.EficaciaContra {
		t.Fatalf("movimento oposto ao esperado deveria ser contrária: %v", a1.Eficacia)
	}

	// delta +30% over threshold 15 plus up_fast trend: both rules fire
	if len(snap.Alerts) != 2 {
		t.Fatalf("esperava 2 alertas, obteve %d: %+v", len(snap.Alerts), snap.Alerts)
	}
}

func TestAssembleDeterministicUnderFrozenClock(t *testing.T) {
	assembler := testAssembler(NoopSummarizer{})

	first, _ := json.Marshal(assembler.Assemble(context.Background(), testInputs()))
	second, _ := json.Marshal(assembler.Assemble(context.Background(), testInputs()))
	if string(first) != string(second) {
		t.Fatal("execuções com relógio congelado deveriam produzir documentos idênticos")
	}
}

func TestAssembleSummarizerInput(t *testing.T) {
	summarizer := &fixedSummarizer{text: "Situação crítica de ruptura."}
	snap := testAssembler(summarizer).Assemble(context.Background(), testInputs())

	if snap.LLMSummary != "Situação crítica de ruptura." {
		t.Fatalf("llm_summary incorreto: %q", snap.LLMSummary)
	}
	if summarizer.got.BelowTarget != 1 {
		t.Fatalf("contagem abaixo da meta incorreta: %d", summarizer.got.BelowTarget)
	}
	if len(summarizer.got.TopAlerts) == 0 {
		t.Fatal("resumo deveria receber os principais alertas")
	}
}

func TestAssembleSummarizerFailureLeavesSummaryEmpty(t *testing.T) {
	summarizer := &fixedSummarizer{err: errors.New("llm fora do ar")}
	snap := testAssembler(summarizer).Assemble(context.Background(), testInputs())

	if snap.LLMSummary != "" {
		t.Fatalf("falha do resumo deveria deixar llm_summary vazio, obteve %q", snap.LLMSummary)
	}
	if len(snap.Alerts) == 0 || len(snap.Metrics) == 0 {
		t.Fatal("falha do resumo não deveria descartar o restante do documento")
	}
}

func TestAssembleDanglingReferencesTolerated(t *testing.T) {
	in := testInputs()
	delete(in.Problems, "P1")
	delete(in.Actions, "A1")

	snap := testAssembler(NoopSummarizer{}).Assemble(context.Background(), in)

	if len(snap.Problems) != 1 || snap.Problems[0].Descricao != "" {
		t.Fatalf("problema sem descrição deveria permanecer no documento: %+v", snap.Problems)
	}
	if len(snap.Actions) != 1 || snap.Actions[0].Descricao != "" {
		t.Fatalf("ação sem cadastro deveria permanecer no documento: %+v", snap.Actions)
	}
}
