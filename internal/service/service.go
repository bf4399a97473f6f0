package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"estoque-monitor/internal/alerting"
	"estoque-monitor/internal/analysis"
	"estoque-monitor/internal/config"
	"estoque-monitor/internal/ingest"
	"estoque-monitor/internal/metric"
	"estoque-monitor/internal/relation"
	"estoque-monitor/internal/snapshot"
	"estoque-monitor/internal/storage"
)

// Service orchestrates one full analysis cycle: ingest, evaluate, relate,
// score, alert, assemble, summarize, persist, notify.
type Service struct {
	cfg           *config.Config
	sampleStore   storage.SampleStore
	snapshotStore storage.SnapshotStore
	alertStore    storage.AlertStore
	notifier      alerting.Notifier
	summarizer    snapshot.Summarizer
	logger        zerolog.Logger
}

// New constructs the monitoring service. Store and notifier dependencies
// are optional; a nil summarizer leaves llm_summary empty.
func New(cfg *config.Config, sampleStore storage.SampleStore, snapshotStore storage.SnapshotStore, alertStore storage.AlertStore, notifier alerting.Notifier, summarizer snapshot.Summarizer, logger zerolog.Logger) *Service {
	return &Service{
		cfg:           cfg,
		sampleStore:   sampleStore,
		snapshotStore: snapshotStore,
		alertStore:    alertStore,
		notifier:      notifier,
		summarizer:    summarizer,
		logger:        logger.With().Str("component", "service").Logger(),
	}
}

// RunCycle executes one analysis cycle for the configured subject. Only a
// missing-subject condition is fatal; persistence, notification and
// summary failures are logged and the snapshot is still produced.
func (s *Service) RunCycle(ctx context.Context) (*snapshot.Snapshot, error) {
	subject := s.cfg.Subject

	inputs, err := ingest.LoadDir(s.cfg.Inputs.Dir, subject.ContratanteID, subject.PlanejamentoID, s.logger)
	if err != nil {
		return nil, err
	}

	graph := relation.Build(inputs.Mapping)

	runTS := time.Now().UTC()
	assembler := snapshot.Assembler{
		Estimator: analysis.Estimator{
			WindowDays: s.cfg.Analysis.WindowDays,
			Epsilon:    decimal.NewFromFloat(s.cfg.Analysis.Epsilon),
			FastFactor: decimal.NewFromFloat(s.cfg.Analysis.FastFactor),
		},
		ThresholdPct: decimal.NewFromFloat(s.cfg.Alerting.ThresholdPct),
		CadenceDays:  s.cfg.Analysis.ReviewCadenceDays,
		Summarizer:   s.summarizer,
		Logger:       s.logger,
		Now:          func() time.Time { return runTS },
	}

	snap := assembler.Assemble(ctx, snapshot.Inputs{
		Store:    inputs.Store,
		Graph:    graph,
		Targets:  inputs.Targets,
		Problems: inputs.Problems,
		Actions:  inputs.Actions,
	})

	s.logger.Info().
		Int("metricas", len(snap.Metrics)).
		Int("problemas", len(snap.Problems)).
		Int("acoes", len(snap.Actions)).
		Int("alertas", len(snap.Alerts)).
		Msg("ciclo de análise concluído")

	s.persist(ctx, runTS, inputs.Store, snap)
	s.writeSnapshotFile(snap)
	s.notify(ctx, runTS, snap)

	return snap, nil
}

func (s *Service) persist(ctx context.Context, runTS time.Time, store *metric.Store, snap *snapshot.Snapshot) {
	subject := s.cfg.Subject

	if s.sampleStore != nil {
		samples := make([]storage.SampleRecord, 0)
		for _, key := range store.Keys() {
			series, _ := store.Series(key)
			for _, sample := range series.Samples() {
				samples = append(samples, storage.SampleRecord{
					MetricKey: key,
					SampleTS:  sample.Timestamp,
					Value:     sample.Value,
				})
			}
		}
		if err := s.sampleStore.UpsertSamples(ctx, subject.ContratanteID, subject.PlanejamentoID, samples); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist sample history")
		}
	}

	if s.snapshotStore != nil {
		document, err := json.Marshal(snap)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to marshal snapshot document")
		} else {
			rec := storage.SnapshotRecord{
				ContratanteID:  subject.ContratanteID,
				PlanejamentoID: subject.PlanejamentoID,
				RunTS:          runTS,
				Document:       document,
			}
			if _, err := s.snapshotStore.InsertSnapshot(ctx, rec); err != nil {
				s.logger.Error().Err(err).Msg("failed to persist snapshot")
			}
		}
	}

	if s.alertStore != nil && len(snap.Alerts) > 0 {
		records := make([]storage.AlertRecord, 0, len(snap.Alerts))
		for _, alert := range snap.Alerts {
			records = append(records, storage.AlertRecord{
				ContratanteID:  subject.ContratanteID,
				PlanejamentoID: subject.PlanejamentoID,
				RunTS:          runTS,
				MetricKey:      alert.Metric,
				Issue:          string(alert.Issue),
				Severity:       string(alert.Severity),
				Detail:         alert.Detail,
			})
		}
		if err := s.alertStore.InsertAlerts(ctx, records); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist alert records")
		}
	}
}

func (s *Service) writeSnapshotFile(snap *snapshot.Snapshot) {
	dir := s.cfg.Inputs.SnapshotDir
	if dir == "" {
		return
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal snapshot file")
		return
	}

	ts, parseErr := time.Parse(time.RFC3339, snap.RunTimestamp)
	if parseErr != nil {
		ts = time.Now().UTC()
	}
	path := filepath.Join(dir, fmt.Sprintf("structured_snapshot_%s.json", ts.Format("20060102T150405Z")))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Error().Err(err).Str("dir", dir).Msg("failed to create snapshot dir")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to write snapshot file")
		return
	}

	s.logger.Info().Str("path", path).Msg("snapshot gravado")
}

func (s *Service) notify(ctx context.Context, runTS time.Time, snap *snapshot.Snapshot) {
	if s.notifier == nil {
		return
	}

	critical := make([]alerting.Alert, 0, len(snap.Alerts))
	for _, alert := range snap.Alerts {
		if alert.Severity == alerting.SeverityAlta {
			critical = append(critical, alert)
		}
	}
	if len(critical) == 0 {
		return
	}

	note := alerting.Notification{
		ContratanteID:  snap.ContratanteID,
		PlanejamentoID: snap.PlanejamentoID,
		RunTimestamp:   runTS,
		Alerts:         critical,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Msg("failed to dispatch alert notification")
	}
}
