package dataset

import (
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Column names as written by the upstream feature pipeline.
const (
	ColumnDate           = "Date"
	ColumnClose          = "Close"
	ColumnSentimentLabel = "sentiment_label"
	ColumnAvgSentiment   = "avg_sentiment"
	ColumnHeadlineCount  = "headline_count"
	ColumnRSI            = "rsi"
	ColumnMACD           = "macd"
	ColumnTarget         = "target"
)

// requiredColumns must be present in every source.
var requiredColumns = []string{
	ColumnDate,
	ColumnClose,
	ColumnSentimentLabel,
	ColumnAvgSentiment,
	ColumnHeadlineCount,
	ColumnRSI,
	ColumnMACD,
}

// Value is an additional column carried through to the model untouched.
type Value struct {
	Name        string
	Num         float64
	Text        string
	Categorical bool
}

// String renders the value for display.
func (v Value) String() string {
	if v.Categorical {
		return v.Text
	}
	return formatFloat(v.Num)
}

// MarketRecord is one trading day of price, indicator and sentiment data.
type MarketRecord struct {
	Date           time.Time
	Close          decimal.Decimal
	SentimentLabel string
	AvgSentiment   float64
	HeadlineCount  int
	RSI            float64
	MACD           float64
	// Target is the realised next-day outcome, nil when the source has none.
	Target *int
	Extra  []Value
}

// Field is a label/value pair used for transposed display.
type Field struct {
	Name  string
	Value string
}

// Fields lists every column of the record in canonical order.
func (r MarketRecord) Fields() []Field {
	fields := []Field{
		{Name: ColumnDate, Value: FormatDate(r.Date)},
		{Name: ColumnClose, Value: r.Close.StringFixed(2)},
		{Name: ColumnSentimentLabel, Value: r.SentimentLabel},
		{Name: ColumnAvgSentiment, Value: formatFloat(r.AvgSentiment)},
		{Name: ColumnHeadlineCount, Value: strconv.Itoa(r.HeadlineCount)},
		{Name: ColumnRSI, Value: formatFloat(r.RSI)},
		{Name: ColumnMACD, Value: formatFloat(r.MACD)},
	}
	for _, extra := range r.Extra {
		fields = append(fields, Field{Name: extra.Name, Value: extra.String()})
	}
	if r.Target != nil {
		fields = append(fields, Field{Name: ColumnTarget, Value: strconv.Itoa(*r.Target)})
	}
	return fields
}

// Features returns the model input for the record. Date and target are never part of it.
func (r MarketRecord) Features() FeatureVector {
	vec := newFeatureVector(7 + len(r.Extra))
	vec.setNumeric(ColumnClose, r.Close.InexactFloat64())
	vec.setCategory(ColumnSentimentLabel, r.SentimentLabel)
	vec.setNumeric(ColumnAvgSentiment, r.AvgSentiment)
	vec.setNumeric(ColumnHeadlineCount, float64(r.HeadlineCount))
	vec.setNumeric(ColumnRSI, r.RSI)
	vec.setNumeric(ColumnMACD, r.MACD)
	for _, extra := range r.Extra {
		if extra.Categorical {
			vec.setCategory(extra.Name, extra.Text)
			continue
		}
		vec.setNumeric(extra.Name, extra.Num)
	}
	return vec
}

// FeatureVector holds named model inputs. Categorical entries are left for the
// model to encode.
type FeatureVector struct {
	names      []string
	numeric    map[string]float64
	categories map[string]string
}

func newFeatureVector(capacity int) FeatureVector {
	return FeatureVector{
		names:      make([]string, 0, capacity),
		numeric:    make(map[string]float64, capacity),
		categories: make(map[string]string),
	}
}

func (v *FeatureVector) setNumeric(name string, value float64) {
	if !v.Has(name) {
		v.names = append(v.names, name)
	}
	v.numeric[name] = value
}

func (v *FeatureVector) setCategory(name, value string) {
	if !v.Has(name) {
		v.names = append(v.names, name)
	}
	v.categories[name] = value
}

// Names lists feature names in insertion order.
func (v FeatureVector) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Len reports the number of features.
func (v FeatureVector) Len() int {
	return len(v.names)
}

// Has reports whether the vector carries the named feature.
func (v FeatureVector) Has(name string) bool {
	if _, ok := v.numeric[name]; ok {
		return true
	}
	_, ok := v.categories[name]
	return ok
}

// Numeric returns a numeric feature.
func (v FeatureVector) Numeric(name string) (float64, bool) {
	value, ok := v.numeric[name]
	return value, ok
}

// Category returns a categorical feature.
func (v FeatureVector) Category(name string) (string, bool) {
	value, ok := v.categories[name]
	return value, ok
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
