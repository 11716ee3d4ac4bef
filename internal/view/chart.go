package view

import (
	"errors"
	"io"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Default chart size in pixels.
const (
	DefaultChartWidth  = 1000
	DefaultChartHeight = 400
)

var (
	closeColor     = drawing.ColorFromHex("205F24")
	sentimentColor = drawing.ColorFromHex("7BAE7F")
)

// ErrTooFewPoints is returned when the series cannot span a chart axis.
var ErrTooFewPoints = errors.New("view: trend needs at least two points")

// Chart builds the dual axis trend chart: close price on the primary axis,
// average sentiment on the secondary axis, both in ascending date order.
func (t *TrendView) Chart(width, height int) (chart.Chart, error) {
	if len(t.Points) < 2 {
		return chart.Chart{}, ErrTooFewPoints
	}
	if width <= 0 {
		width = DefaultChartWidth
	}
	if height <= 0 {
		height = DefaultChartHeight
	}

	x := make([]time.Time, 0, len(t.Points))
	closes := make([]float64, 0, len(t.Points))
	var sx []time.Time
	var sentiment []float64
	for _, p := range t.Points {
		x = append(x, p.Date)
		closes = append(closes, p.Close.InexactFloat64())
		if p.AvgSentiment != nil {
			sx = append(sx, p.Date)
			sentiment = append(sentiment, *p.AvgSentiment)
		}
	}

	dateFormatter := func(v interface{}) string {
		return chart.TimeValueFormatterWithFormat("2006-01-02")(v)
	}
	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}

	series := []chart.Series{
		chart.TimeSeries{
			Name: "Close Price",
			Style: chart.Style{
				StrokeColor: closeColor,
				StrokeWidth: 2,
			},
			XValues: x,
			YValues: closes,
		},
	}
	if len(sentiment) >= 2 {
		series = append(series, chart.TimeSeries{
			Name: "Sentiment Score",
			Style: chart.Style{
				StrokeColor:     sentimentColor,
				StrokeWidth:     2,
				StrokeDashArray: []float64{5, 3},
			},
			XValues: sx,
			YValues: sentiment,
			YAxis:   chart.YAxisSecondary,
		})
	}

	graph := chart.Chart{
		Title:  t.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: dateFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Close Price",
			NameStyle:      chart.Style{FontColor: closeColor},
			ValueFormatter: priceFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Sentiment Score",
			NameStyle:      chart.Style{FontColor: sentimentColor},
			ValueFormatter: priceFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph, nil
}

// RenderPNG writes the chart as PNG.
func (t *TrendView) RenderPNG(w io.Writer, width, height int) error {
	graph, err := t.Chart(width, height)
	if err != nil {
		return err
	}
	return graph.Render(chart.PNG, w)
}

// RenderSVG writes the chart as SVG.
func (t *TrendView) RenderSVG(w io.Writer, width, height int) error {
	graph, err := t.Chart(width, height)
	if err != nil {
		return err
	}
	return graph.Render(chart.SVG, w)
}
