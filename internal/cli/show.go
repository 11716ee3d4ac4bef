package cli

import (
	"github.com/spf13/cobra"

	"insightedge/internal/app"
)

var (
	showDate string
	showJSON bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display every field of the record for a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Show(cmd.Context(), app.ShowOptions{
			Date: showDate,
			JSON: showJSON,
		})
	},
}

func init() {
	showCmd.Flags().StringVar(&showDate, "date", "", "Date (YYYY-MM-DD, defaults to the latest record)")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the view model as JSON")
}
