package cli

import (
	"github.com/spf13/cobra"

	"insightedge/internal/app"
)

var (
	insightDate string
	insightJSON bool
)

var insightCmd = &cobra.Command{
	Use:   "insight",
	Short: "Print the direction prediction and narrative for a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Insight(cmd.Context(), app.InsightOptions{
			Date: insightDate,
			JSON: insightJSON,
		})
	},
}

func init() {
	insightCmd.Flags().StringVar(&insightDate, "date", "", "Date (YYYY-MM-DD, defaults to the latest record)")
	insightCmd.Flags().BoolVar(&insightJSON, "json", false, "Print the view model as JSON")
}
