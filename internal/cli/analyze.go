package cli

import (
	"github.com/spf13/cobra"

	"churn-alerts/internal/app"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <orders.json> [reference-date]",
	Short: "Score customer/category churn risk from an order history file",
	Long: `Analyze reads a JSON array of order rows, groups them by customer and
normalized product category, classifies each pair's purchasing trend against
its historical baseline, and prints a churn report to stdout.

Each row is an object like:

  {"customer_id": "C001", "product": "chicken wings", "quantity": 40, "value": 400.0, "date": "2026-01-05"}

Accepted field aliases: customer_id|customer|account, product|item|category,
quantity|qty, value|amount|total, date|order_date.

The optional reference date (e.g. 2026-01-15) anchors the analysis windows;
it defaults to the current time.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AnalyzeOptions{Path: args[0]}
		if len(args) == 2 {
			opts.ReferenceDate = args[1]
		}
		return getApp().Analyze(cmd.Context(), opts)
	},
}
