package app

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"insightedge/internal/dataset"
	"insightedge/internal/view"
)

// Export writes the trend chart and/or the underlying series.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" && opts.SVGPath == "" {
		return errors.New("at least one of --csv, --png or --svg must be provided")
	}
	if opts.Width <= 0 {
		opts.Width = a.Config.Export.Width
	}
	if opts.Height <= 0 {
		opts.Height = a.Config.Export.Height
	}

	data, err := a.loadDataset(ctx)
	if err != nil {
		return err
	}
	dash, err := view.NewDashboard(view.Options{Dataset: data}, a.Logger)
	if err != nil {
		return err
	}
	res, err := dash.Render(ctx, view.Request{Page: view.TrendChart})
	if err != nil {
		return err
	}
	trend := res.Trend
	a.Logger.Info().Int("points", len(trend.Points)).Msg("exporting trend")

	if opts.CSVPath != "" {
		if err := writeTrendCSV(opts.CSVPath, trend); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeTrendChart(opts.PNGPath, func(f *os.File) error {
			return trend.RenderPNG(f, opts.Width, opts.Height)
		}); err != nil {
			return err
		}
	}
	if opts.SVGPath != "" {
		if err := writeTrendChart(opts.SVGPath, func(f *os.File) error {
			return trend.RenderSVG(f, opts.Width, opts.Height)
		}); err != nil {
			return err
		}
	}
	return nil
}

func writeTrendCSV(path string, trend *view.TrendView) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{dataset.ColumnDate, dataset.ColumnClose, dataset.ColumnAvgSentiment}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range trend.Points {
		sentiment := ""
		if p.AvgSentiment != nil {
			sentiment = strconv.FormatFloat(*p.AvgSentiment, 'f', -1, 64)
		}
		record := []string{
			dataset.FormatDate(p.Date),
			p.Close.StringFixed(2),
			sentiment,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeTrendChart(path string, render func(*os.File) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return render(file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
