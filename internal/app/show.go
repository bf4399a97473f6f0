package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"estoque-monitor/internal/snapshot"
)

// Show prints recent snapshots for the configured subject.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show snapshots")
	}
	if closeStore != nil {
		defer closeStore()
	}

	subject := a.Config.Subject
	records, err := store.ListRecentSnapshots(ctx, subject.ContratanteID, subject.PlanejamentoID, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no snapshots found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Run (UTC)\tWindow\tMetrics\tAlerts\tNext due\tSummary")

	for _, rec := range records {
		var snap snapshot.Snapshot
		if err := json.Unmarshal(rec.Document, &snap); err != nil {
			fmt.Fprintf(writer, "%s\t<documento inválido>\t\t\t\t\n", rec.RunTS.UTC().Format(time.RFC3339))
			continue
		}
		fmt.Fprintf(
			writer,
			"%s\t%s – %s\t%d\t%d\t%s\t%s\n",
			rec.RunTS.UTC().Format(time.RFC3339),
			snap.Window.Start,
			snap.Window.End,
			len(snap.Metrics),
			len(snap.Alerts),
			snap.NextReportDue,
			sanitizeInline(snap.LLMSummary),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
