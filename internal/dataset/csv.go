package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// CSVLoader reads a header-prefixed comma separated file.
type CSVLoader struct {
	path   string
	logger zerolog.Logger
}

// NewCSVLoader constructs a CSV loader for path.
func NewCSVLoader(path string, logger zerolog.Logger) *CSVLoader {
	return &CSVLoader{path: path, logger: logger.With().Str("component", "dataset_csv").Logger()}
}

// Load reads and decodes the whole file.
func (l *CSVLoader) Load(ctx context.Context) (*Dataset, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	ds, err := ReadCSV(ctx, l.path, file)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", l.path, err)
	}

	first, last := ds.Range()
	l.logger.Info().Int("records", ds.Len()).
		Str("from", FormatDate(first)).
		Str("to", FormatDate(last)).
		Msg("dataset loaded")
	return ds, nil
}

// ReadCSV decodes CSV content from r.
func ReadCSV(ctx context.Context, source string, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}
	reader.FieldsPerRecord = len(header)

	rows := make([][]any, 0, 256)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		row := make([]any, len(cells))
		for i, cell := range cells {
			row[i] = cell
		}
		rows = append(rows, row)
	}

	return decodeRows(source, header, rows)
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

var _ Loader = (*CSVLoader)(nil)
