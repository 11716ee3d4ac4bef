package dataset

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const defaultTable = "market_features"

// PostgresLoader reads the dataset from a table with a single SELECT at startup.
type PostgresLoader struct {
	opts   Options
	logger zerolog.Logger
}

// NewPostgresLoader constructs a read-only Postgres loader.
func NewPostgresLoader(opts Options, logger zerolog.Logger) *PostgresLoader {
	if opts.Table == "" {
		opts.Table = defaultTable
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	return &PostgresLoader{opts: opts, logger: logger.With().Str("component", "dataset_postgres").Logger()}
}

// NewPool configures a PostgreSQL connection pool for the loader.
func NewPool(ctx context.Context, opts Options) (*pgxpool.Pool, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("dataset.dsn is required for postgres source")
	}

	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dataset dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	// Reads only.
	poolConfig.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return pool, nil
}

// Load opens a pool, reads the table and closes the pool again.
func (l *PostgresLoader) Load(ctx context.Context) (*Dataset, error) {
	ctx, cancel := context.WithTimeout(ctx, l.opts.QueryTimeout)
	defer cancel()

	pool, err := NewPool(ctx, l.opts)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	query := selectAllSQL(l.opts.Table)
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query dataset: %w", err)
	}
	defer rows.Close()

	descriptions := rows.FieldDescriptions()
	columns := make([]string, len(descriptions))
	for i, fd := range descriptions {
		columns[i] = fd.Name
	}

	values := make([][]any, 0, 256)
	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan dataset row: %w", err)
		}
		row := make([]any, len(raw))
		for i, v := range raw {
			row[i] = normalizePG(v)
		}
		values = append(values, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dataset rows: %w", err)
	}

	ds, err := decodeRows("postgres:"+l.opts.Table, columns, values)
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", l.opts.Table, err)
	}

	l.logger.Info().Int("records", ds.Len()).Str("table", l.opts.Table).Msg("dataset loaded")
	return ds, nil
}

func selectAllSQL(table string) string {
	ident := pgx.Identifier(strings.Split(table, "."))
	return "SELECT * FROM " + ident.Sanitize() + ";"
}

// normalizePG maps pgx driver values onto the decoder's value set.
func normalizePG(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		return t
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return t
	case float64:
		return t
	case float32:
		return float64(t)
	case int64:
		return t
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case int8:
		return int64(t)
	case int:
		return int64(t)
	case pgtype.Numeric:
		if !t.Valid {
			return nil
		}
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case pgtype.Date:
		if !t.Valid {
			return nil
		}
		return t.Time
	case pgtype.Timestamp:
		if !t.Valid {
			return nil
		}
		return t.Time
	case pgtype.Timestamptz:
		if !t.Valid {
			return nil
		}
		return t.Time
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

var _ Loader = (*PostgresLoader)(nil)
