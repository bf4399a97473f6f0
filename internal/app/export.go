package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"estoque-monitor/internal/analysis"
	"estoque-monitor/internal/ingest"
	"estoque-monitor/internal/storage"
)

// Export renders one metric's persisted history as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.Metric == "" {
		return errors.New("--metric is required")
	}
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	// samples arrive daily, so the default window is one day per point
	from := to.AddDate(0, 0, -opts.MaxPoints)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	subject := a.Config.Subject
	samples, err := store.ListSamples(ctx, subject.ContratanteID, subject.PlanejamentoID, opts.Metric, from, to)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		a.Logger.Info().Str("metric", opts.Metric).Msg("no samples found for export window")
		return nil
	}

	downsampled := downsampleSamples(samples, opts.MaxPoints)
	a.Logger.Info().Int("total", len(samples)).Int("exported", len(downsampled)).Msg("exporting samples")

	if opts.CSVPath != "" {
		if err := writeSamplesCSV(opts.CSVPath, opts.Metric, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		target := a.lookupTarget(opts.Metric)
		if err := writeSamplesPNG(opts.PNGPath, opts.Metric, downsampled, target); err != nil {
			return err
		}
	}

	return nil
}

// lookupTarget reads the relevance table so the chart can draw the meta
// line. Missing or unreadable table just means no line.
func (a *App) lookupTarget(metricKey string) *analysis.Target {
	path := filepath.Join(a.Config.Inputs.Dir, ingest.RelevanceFile)
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	targets, err := ingest.ReadRelevance(file)
	if err != nil {
		return nil
	}
	target, ok := targets[metricKey]
	if !ok || !target.Has {
		return nil
	}
	return &target
}

func downsampleSamples(samples []storage.SampleRecord, max int) []storage.SampleRecord {
	if max <= 0 || len(samples) <= max {
		return samples
	}

	result := make([]storage.SampleRecord, 0, max)
	step := float64(len(samples)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(samples) {
			idx = len(samples) - 1
		}
		result = append(result, samples[idx])
	}
	return result
}

func writeSamplesCSV(path, metricKey string, samples []storage.SampleRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"data_extracao", metricKey}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, sample := range samples {
		record := []string{
			sample.SampleTS.Format(time.RFC3339),
			sample.Value.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSamplesPNG(path, metricKey string, samples []storage.SampleRecord, target *analysis.Target) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(samples))
	values := make([]float64, len(samples))
	for i, sample := range samples {
		x[i] = sample.SampleTS
		values[i] = sample.Value.InexactFloat64()
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	series := []chart.Series{
		chart.TimeSeries{
			Name:    metricKey,
			XValues: x,
			YValues: values,
		},
	}

	if target != nil {
		meta := make([]float64, len(samples))
		metaValue := target.Value.InexactFloat64()
		for i := range meta {
			meta[i] = metaValue
		}
		series = append(series, chart.TimeSeries{
			Name:    "Meta",
			XValues: x,
			YValues: meta,
			Style: chart.Style{
				StrokeDashArray: []float64{5.0, 5.0},
			},
		})
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           metricKey,
			ValueFormatter: valueFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
