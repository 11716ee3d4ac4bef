package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Supported source kinds.
const (
	SourceCSV      = "csv"
	SourceParquet  = "parquet"
	SourcePostgres = "postgres"
)

// Loader reads the full dataset once.
type Loader interface {
	Load(ctx context.Context) (*Dataset, error)
}

// Options select and parameterise a source.
type Options struct {
	Source       string
	Path         string
	DSN          string
	Table        string
	QueryTimeout time.Duration
	MaxConns     int
}

// NewLoader picks a loader from opts. An empty source is inferred from the file extension.
func NewLoader(opts Options, logger zerolog.Logger) (Loader, error) {
	source := strings.ToLower(strings.TrimSpace(opts.Source))
	if source == "" {
		source = inferSource(opts.Path)
	}

	switch source {
	case SourceCSV:
		if opts.Path == "" {
			return nil, fmt.Errorf("dataset.path is required for csv source")
		}
		return NewCSVLoader(opts.Path, logger), nil
	case SourceParquet:
		if opts.Path == "" {
			return nil, fmt.Errorf("dataset.path is required for parquet source")
		}
		return NewParquetLoader(opts.Path, logger), nil
	case SourcePostgres:
		return NewPostgresLoader(opts, logger), nil
	default:
		return nil, fmt.Errorf("unsupported dataset source %q", opts.Source)
	}
}

func inferSource(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return SourceParquet
	default:
		return SourceCSV
	}
}

// decodeRows turns normalised rows into a Dataset.
func decodeRows(source string, columns []string, rows [][]any) (*Dataset, error) {
	decoder, err := newRowDecoder(columns)
	if err != nil {
		return nil, err
	}

	records := make([]MarketRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := decoder.decode(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return New(source, records)
}
