package cli

import (
	"github.com/spf13/cobra"

	"insightedge/internal/app"
)

var (
	exportPNGPath string
	exportSVGPath string
	exportCSVPath string
	exportWidth   int
	exportHeight  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the price and sentiment trend as CSV and/or a chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			PNGPath: exportPNGPath,
			SVGPath: exportSVGPath,
			CSVPath: exportCSVPath,
			Width:   exportWidth,
			Height:  exportHeight,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportSVGPath, "svg", "", "Path to write SVG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write the date, close and avg_sentiment series")
	exportCmd.Flags().IntVar(&exportWidth, "width", 0, "Chart width in pixels (defaults to config)")
	exportCmd.Flags().IntVar(&exportHeight, "height", 0, "Chart height in pixels (defaults to config)")
}
