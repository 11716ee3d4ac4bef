package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

// ParquetRecord is the on-disk schema of the parquet export. Columns beyond
// these are not read from parquet sources.
type ParquetRecord struct {
	Date           time.Time `parquet:"Date"`
	Close          float64   `parquet:"Close"`
	SentimentLabel string    `parquet:"sentiment_label"`
	AvgSentiment   *float64  `parquet:"avg_sentiment,optional"`
	HeadlineCount  int64     `parquet:"headline_count"`
	RSI            *float64  `parquet:"rsi,optional"`
	MACD           *float64  `parquet:"macd,optional"`
	Target         *int64    `parquet:"target,optional"`
}

var parquetColumns = []string{
	ColumnDate,
	ColumnClose,
	ColumnSentimentLabel,
	ColumnAvgSentiment,
	ColumnHeadlineCount,
	ColumnRSI,
	ColumnMACD,
	ColumnTarget,
}

// ParquetLoader reads a flat parquet file.
type ParquetLoader struct {
	path   string
	logger zerolog.Logger
}

// NewParquetLoader constructs a parquet loader for path.
func NewParquetLoader(path string, logger zerolog.Logger) *ParquetLoader {
	return &ParquetLoader{path: path, logger: logger.With().Str("component", "dataset_parquet").Logger()}
}

// Load reads the file and decodes every row.
func (l *ParquetLoader) Load(ctx context.Context) (*Dataset, error) {
	records, err := parquet.ReadFile[ParquetRecord](l.path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", l.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := decodeRows(l.path, parquetColumns, parquetRows(records))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", l.path, err)
	}

	l.logger.Info().Int("records", ds.Len()).Msg("dataset loaded")
	return ds, nil
}

func parquetRows(records []ParquetRecord) [][]any {
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		var target any
		if rec.Target != nil {
			target = *rec.Target
		}
		rows = append(rows, []any{
			rec.Date,
			rec.Close,
			rec.SentimentLabel,
			optionalFloat(rec.AvgSentiment),
			rec.HeadlineCount,
			optionalFloat(rec.RSI),
			optionalFloat(rec.MACD),
			target,
		})
	}
	return rows
}

func optionalFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

var _ Loader = (*ParquetLoader)(nil)
