// Package store copies loaded tables into Postgres.
//
// Each export runs in a single transaction: every table is dropped,
// recreated from the in-memory column kinds, and filled with COPY. The run
// is recorded in dataset_loads under a fresh UUID.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/datasetloader/internal/config"
	"github.com/JonMunkholm/datasetloader/internal/loader"
	"github.com/JonMunkholm/datasetloader/internal/table"
)

// LoadsTable records one row per export.
const LoadsTable = "dataset_loads"

const createLoadsSQL = `CREATE TABLE IF NOT EXISTS dataset_loads (
	id          uuid PRIMARY KEY,
	dataset     text        NOT NULL,
	tables      integer     NOT NULL,
	row_count   bigint      NOT NULL,
	table_names text[]      NOT NULL,
	loaded_at   timestamptz NOT NULL DEFAULT now()
)`

// Open parses the database URL, applies pool limits, and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Beginner starts transactions. *pgxpool.Pool and *pgx.Conn satisfy it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Exporter writes result sets into Postgres tables named prefix + key.
type Exporter struct {
	db     Beginner
	prefix string
	logger *slog.Logger
}

// NewExporter creates an exporter. A nil logger uses slog.Default.
func NewExporter(db Beginner, prefix string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{db: db, prefix: prefix, logger: logger}
}

// ExportResult summarizes one export.
type ExportResult struct {
	RunID    uuid.UUID
	Tables   map[string]string // key -> database table name
	Rows     int64
	Duration time.Duration
}

// Export replaces the database copy of every table in rs. Either all tables
// and the load record are committed, or none are.
func (e *Exporter) Export(ctx context.Context, dataset string, rs loader.ResultSet) (*ExportResult, error) {
	start := time.Now()

	names, err := e.tableNames(rs.Keys())
	if err != nil {
		return nil, err
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, createLoadsSQL); err != nil {
		return nil, fmt.Errorf("create %s: %w", LoadsTable, err)
	}

	result := &ExportResult{RunID: uuid.New(), Tables: names}
	tableList := make([]string, 0, len(names))
	for _, key := range rs.Keys() {
		name := names[key]
		n, err := copyTable(ctx, tx, name, rs[key])
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", key, err)
		}
		e.logger.Debug("table exported", "key", key, "table", name, "rows", n)
		result.Rows += n
		tableList = append(tableList, name)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO dataset_loads (id, dataset, tables, row_count, table_names) VALUES ($1, $2, $3, $4, $5)`,
		pgtype.UUID{Bytes: result.RunID, Valid: true}, dataset, len(tableList), result.Rows, tableList,
	)
	if err != nil {
		return nil, fmt.Errorf("record load: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	result.Duration = time.Since(start)
	e.logger.Info("export complete",
		"run_id", result.RunID.String(),
		"dataset", dataset,
		"tables", len(tableList),
		"rows", result.Rows,
		"duration", result.Duration,
	)
	return result, nil
}

// tableNames maps each key to its database table name and rejects keys that
// collapse onto the same name.
func (e *Exporter) tableNames(keys []string) (map[string]string, error) {
	names := make(map[string]string, len(keys))
	owner := make(map[string]string, len(keys))
	for _, key := range keys {
		name := TableName(e.prefix, key)
		if prev, ok := owner[name]; ok {
			return nil, fmt.Errorf("keys %q and %q both map to table %s", prev, key, name)
		}
		owner[name] = key
		names[key] = name
	}
	return names, nil
}

func copyTable(ctx context.Context, tx pgx.Tx, name string, t *table.Table) (int64, error) {
	columns := ColumnNames(t.Columns())

	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+quoteIdentifier(name)); err != nil {
		return 0, fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.Exec(ctx, createTableSQL(name, columns, t)); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{name}, columns,
		pgx.CopyFromSlice(t.Len(), func(i int) ([]any, error) {
			return t.Row(i), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy rows: %w", err)
	}
	return n, nil
}

func createTableSQL(name string, columns []string, t *table.Table) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = quoteIdentifier(col) + " " + columnType(t.ColumnAt(i).Kind)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdentifier(name), strings.Join(defs, ", "))
}

// columnType maps a column kind onto the Postgres type its pgtype cells encode to.
func columnType(k table.Kind) string {
	switch k {
	case table.KindNumber:
		return "double precision"
	case table.KindInteger:
		return "bigint"
	case table.KindTime:
		return "timestamp"
	default:
		return "text"
	}
}

// TableName returns prefix + key, lowercased, with every character outside
// [a-z0-9_] replaced by an underscore.
// "dataset_", "BRK-A" -> "dataset_brk_a"
func TableName(prefix, key string) string {
	return toDBName(prefix + key)
}

// ColumnNames converts display names to database column names, suffixing
// repeats that collapse onto the same name with _2, _3, ...
func ColumnNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]int, len(names))
	for i, n := range names {
		name := toDBName(n)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		base := name
		for seen[name] > 0 {
			seen[base]++
			name = fmt.Sprintf("%s_%d", base, seen[base])
		}
		seen[name]++
		out[i] = name
	}
	return out
}

// toDBName converts a display name to a database identifier.
// "Adj Close" -> "adj_close"
func toDBName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
