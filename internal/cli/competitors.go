package cli

import (
	"github.com/spf13/cobra"

	"churn-alerts/internal/app"
)

var competitorsCmd = &cobra.Command{
	Use:   "competitors <orders.json>",
	Short: "Infer competitor loss patterns and retention strategies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Competitors(cmd.Context(), app.CompetitorsOptions{Path: args[0]})
	},
}
