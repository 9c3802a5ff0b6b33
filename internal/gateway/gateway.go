package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Gateway is the single point of contact with the relational store.
// Everything above it (schema catalog, persistence engine, records)
// speaks parameterized SQL and plain Go values; the gateway owns the
// connection, its pragmas, and the encryption boundary.
type Gateway struct {
	db     *sql.DB
	logger *slog.Logger

	mu           sync.Mutex
	lastInsertID int64
}

// Options configures Open.
type Options struct {
	// EncryptionKey enables the rec_encrypt/rec_decrypt SQL functions
	// with AES-256-GCM. Empty means the functions are registered as
	// identity passthroughs so generated SQL stays uniform.
	EncryptionKey string
	Logger        *slog.Logger
}

// Open creates or opens a SQLite database at the given path and
// registers the rec_encrypt/rec_decrypt SQL functions on its
// connections. Each call registers its own driver instance, so
// gateways with different encryption keys can coexist in one process.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string, opts Options) (*Gateway, error) {
	driver := registerDriver(opts.EncryptionKey)

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1) // Single writer to avoid SQLITE_BUSY errors
	db.SetMaxIdleConns(1) // Keep one connection ready

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gateway{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (g *Gateway) Close() error {
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer gateway methods when available.
func (g *Gateway) DB() *sql.DB {
	return g.db
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// Row is one result row keyed by column name, values as the driver
// returned them.
type Row map[string]any

// LoadRows executes a query and returns every result row.
// Returns an empty slice (not nil) when there are no rows.
func (g *Gateway) LoadRows(ctx context.Context, query string, params ...any) ([]Row, error) {
	rows, err := g.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := []Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

// LoadRow executes a query expected to yield at most one row.
// Returns (nil, nil) when there is no matching row.
func (g *Gateway) LoadRow(ctx context.Context, query string, params ...any) (Row, error) {
	rows, err := g.LoadRows(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// LoadScalar executes a query and returns the first column of the
// first row in projection order, or nil when there is no row.
func (g *Gateway) LoadScalar(ctx context.Context, query string, params ...any) (any, error) {
	rows, err := g.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate: %w", err)
		}
		return nil, nil
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if b, ok := values[0].([]byte); ok {
		return string(b), nil
	}
	return values[0], nil
}

// Run executes a mutating statement and returns the number of
// affected rows. The insert id, when the driver provides one, is
// retained for LastInsertID.
func (g *Gateway) Run(ctx context.Context, query string, params ...any) (int64, error) {
	res, err := g.db.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		g.mu.Lock()
		g.lastInsertID = id
		g.mu.Unlock()
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// LastInsertID returns the row id assigned by the most recent Run on
// this gateway.
func (g *Gateway) LastInsertID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastInsertID
}

// QuoteIdent escapes an identifier for direct inclusion in SQL text.
// Values never go through this path; they are always parameterized.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
