package view

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"insightedge/internal/dataset"
	"insightedge/internal/model"
)

const (
	// AppTitle heads every page.
	AppTitle = "InsightEdge : The Market Analyst AI"
	// Footer is the caption shown on every page.
	Footer = "Built using Go, gradient-boosted trees, and Cohere"
	// NoDataWarning is rendered when the selected date has no record.
	NoDataWarning = "No data available for the selected date."
)

// Result is the view model for one rendered page.
type Result struct {
	Page    Page         `json:"page"`
	Title   string       `json:"title"`
	Picker  *DatePicker  `json:"picker,omitempty"`
	Warning string       `json:"warning,omitempty"`
	Insight *InsightView `json:"insight,omitempty"`
	Trend   *TrendView   `json:"trend,omitempty"`
	Row     *RowView     `json:"row,omitempty"`
	About   *AboutView   `json:"about,omitempty"`
	Footer  string       `json:"footer"`
}

// Empty reports whether the page resolved no record for its date.
func (r Result) Empty() bool {
	return r.Warning != ""
}

// DatePicker bounds the date selection to the dataset range.
type DatePicker struct {
	Min      string `json:"min"`
	Max      string `json:"max"`
	Selected string `json:"selected"`
}

// InsightView carries the prediction and its narrative.
type InsightView struct {
	Date        string          `json:"date"`
	Direction   model.Direction `json:"direction"`
	Label       int             `json:"label"`
	Probability float64         `json:"probability"`
	Narrative   string          `json:"narrative,omitempty"`
	// Notice replaces the narrative when generation failed and the view degraded.
	Notice string `json:"notice,omitempty"`
}

// Degraded reports whether the narrative was replaced by a notice.
func (v InsightView) Degraded() bool {
	return v.Notice != ""
}

// TrendPoint is one date of the trend series.
type TrendPoint struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
	// AvgSentiment is nil when the source value is missing.
	AvgSentiment *float64 `json:"avg_sentiment"`
}

// TrendView is the full date-ordered price and sentiment series.
type TrendView struct {
	Title  string       `json:"title"`
	Points []TrendPoint `json:"points"`
}

// RowView is the transposed display of one record.
type RowView struct {
	Date   string          `json:"date"`
	Fields []dataset.Field `json:"fields"`
}

// AboutView is static descriptive content.
type AboutView struct {
	Heading string   `json:"heading"`
	Summary string   `json:"summary"`
	Bullets []string `json:"bullets"`
}

var aboutContent = AboutView{
	Heading: "About InsightEdge",
	Summary: "InsightEdge is a professional AI-powered dashboard that combines technical analysis, " +
		"news sentiment, and machine learning to help you understand and anticipate stock movements.",
	Bullets: []string{
		"Built using Go, gradient-boosted trees, and Cohere",
		"Sentiment scores derived from real financial news",
		"Generates professional financial insights and investment outlooks",
	},
}

func aboutView() *AboutView {
	v := aboutContent
	v.Bullets = append([]string(nil), aboutContent.Bullets...)
	return &v
}

func trendView(records []dataset.MarketRecord) *TrendView {
	points := make([]TrendPoint, 0, len(records))
	for _, rec := range records {
		p := TrendPoint{Date: rec.Date, Close: rec.Close}
		if !math.IsNaN(rec.AvgSentiment) {
			v := rec.AvgSentiment
			p.AvgSentiment = &v
		}
		points = append(points, p)
	}
	return &TrendView{Title: "Close Price vs. Sentiment Score Over Time", Points: points}
}

func rowView(rec dataset.MarketRecord) *RowView {
	return &RowView{Date: dataset.FormatDate(rec.Date), Fields: rec.Fields()}
}
