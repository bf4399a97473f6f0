package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"estoque-monitor/internal/app"
)

var (
	exportMetric    string
	exportFrom      string
	exportTo        string
	exportCSVPath   string
	exportPNGPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one metric's persisted history as CSV and/or PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			Metric:    exportMetric,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			MaxPoints: exportMaxPoints,
		}

		if exportFrom != "" {
			from, err := parseDateFlag(exportFrom)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			opts.From = &from
		}
		if exportTo != "" {
			to, err := parseDateFlag(exportTo)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
			opts.To = &to
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func parseDateFlag(v string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, v); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", v)
}

func init() {
	exportCmd.Flags().StringVar(&exportMetric, "metric", "", "Metric key to export (required)")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Window start (RFC3339 or YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Window end (RFC3339 or YYYY-MM-DD, default now)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Write samples to this CSV file")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Render samples to this PNG file")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Downsample to at most this many points (0 uses config)")
}
