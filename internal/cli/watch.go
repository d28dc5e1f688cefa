package cli

import (
	"github.com/spf13/cobra"

	"churn-alerts/internal/app"
)

var watchCmd = &cobra.Command{
	Use:   "watch <orders.json>",
	Short: "Re-run churn analysis on an interval and persist results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Watch(cmd.Context(), app.WatchOptions{Path: args[0]})
	},
}
