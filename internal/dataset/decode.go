package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// rowDecoder maps source columns onto MarketRecord fields. Loaders normalise
// cell values to nil, string, float64, int64, bool or time.Time before decoding.
type rowDecoder struct {
	columns []string
	index   map[string]int
	extras  []int
	target  int
}

func newRowDecoder(columns []string) (*rowDecoder, error) {
	d := &rowDecoder{
		columns: columns,
		index:   make(map[string]int, len(columns)),
		target:  -1,
	}

	known := make(map[string]bool, len(requiredColumns)+1)
	for _, name := range requiredColumns {
		known[strings.ToLower(name)] = true
	}
	known[strings.ToLower(ColumnTarget)] = true

	for i, name := range columns {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, dup := d.index[key]; dup {
			return nil, fmt.Errorf("column %q appears twice", name)
		}
		d.index[key] = i
		if !known[key] {
			d.extras = append(d.extras, i)
		}
	}

	for _, name := range requiredColumns {
		if _, ok := d.index[strings.ToLower(name)]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	if i, ok := d.index[strings.ToLower(ColumnTarget)]; ok {
		d.target = i
	}
	return d, nil
}

func (d *rowDecoder) cell(values []any, name string) any {
	i := d.index[strings.ToLower(name)]
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func (d *rowDecoder) decode(values []any) (MarketRecord, error) {
	var rec MarketRecord
	var err error

	if rec.Date, err = toDate(d.cell(values, ColumnDate)); err != nil {
		return MarketRecord{}, fmt.Errorf("%s: %w", ColumnDate, err)
	}
	if rec.Close, err = toDecimal(d.cell(values, ColumnClose)); err != nil {
		return MarketRecord{}, fmt.Errorf("%s: %w", ColumnClose, err)
	}
	rec.SentimentLabel = strings.ToLower(strings.TrimSpace(toText(d.cell(values, ColumnSentimentLabel))))
	if rec.AvgSentiment, err = toFloat(d.cell(values, ColumnAvgSentiment)); err != nil {
		return MarketRecord{}, fmt.Errorf("%s: %w", ColumnAvgSentiment, err)
	}
	if rec.HeadlineCount, err = toCount(d.cell(values, ColumnHeadlineCount)); err != nil {
		return MarketRecord{}, fmt.Errorf("%s: %w", ColumnHeadlineCount, err)
	}
	if rec.RSI, err = toFloat(d.cell(values, ColumnRSI)); err != nil {
		return MarketRecord{}, fmt.Errorf("%s: %w", ColumnRSI, err)
	}
	if rec.MACD, err = toFloat(d.cell(values, ColumnMACD)); err != nil {
		return MarketRecord{}, fmt.Errorf("%s: %w", ColumnMACD, err)
	}

	if d.target >= 0 && d.target < len(values) {
		if rec.Target, err = toLabel(values[d.target]); err != nil {
			return MarketRecord{}, fmt.Errorf("%s: %w", ColumnTarget, err)
		}
	}

	for _, i := range d.extras {
		var raw any
		if i < len(values) {
			raw = values[i]
		}
		rec.Extra = append(rec.Extra, toValue(d.columns[i], raw))
	}
	return rec, nil
}

func toDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return Day(t), nil
	case string:
		return ParseDate(t)
	case nil:
		return time.Time{}, fmt.Errorf("missing value")
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %T", v)
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, fmt.Errorf("not a finite number")
		}
		return decimal.NewFromFloat(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("parse %q: %w", n, err)
		}
		return d, nil
	case nil:
		return decimal.Decimal{}, fmt.Errorf("missing value")
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported numeric value %T", v)
	}
}

// toFloat treats blank cells as NaN so the model can route them down its missing branch.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" || strings.EqualFold(s, "nan") {
			return math.NaN(), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", n, err)
		}
		return f, nil
	case nil:
		return math.NaN(), nil
	default:
		return 0, fmt.Errorf("unsupported numeric value %T", v)
	}
}

func toCount(v any) (int, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return 0, fmt.Errorf("missing value")
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("expected a non-negative integer, got %v", f)
	}
	return int(f), nil
}

func toLabel(v any) (*int, error) {
	f, err := toFloat(v)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) {
		return nil, nil
	}
	if f != 0 && f != 1 {
		return nil, fmt.Errorf("expected 0 or 1, got %v", f)
	}
	label := int(f)
	return &label, nil
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatFloat(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case time.Time:
		return FormatDate(t)
	default:
		return fmt.Sprint(v)
	}
}

func toValue(name string, v any) Value {
	value := Value{Name: strings.TrimSpace(name)}
	if t, ok := v.(time.Time); ok {
		value.Categorical = true
		value.Text = FormatDate(t)
		return value
	}
	if f, err := toFloat(v); err == nil {
		value.Num = f
		return value
	}
	value.Categorical = true
	value.Text = toText(v)
	return value
}
