package cli

import (
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run analysis cycles unattended on the configured interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Schedule(cmd.Context())
	},
}
