package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"churn-alerts/internal/app"
)

var (
	showLimit   int
	showSignals bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recently persisted alerts or competitor signals",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit:   showLimit,
			Signals: showSignals,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	showCmd.Flags().BoolVar(&showSignals, "signals", false, "Show competitor signals instead of churn alerts")
}
