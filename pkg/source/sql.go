package source

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
	DriverYAML     = "yaml"
)

// SQLSource implements RecordSource over a database/sql pool
type SQLSource struct {
	db           *sql.DB
	placeholders sq.PlaceholderFormat
	routes       routeCache
}

// OpenSQL opens a pool for driver ("sqlite" or "pgx") and verifies connectivity
func OpenSQL(driver, dsn string) (*SQLSource, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s database: %w", utils.ErrDatabase, driver, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s database: %w", utils.ErrDatabase, driver, err)
	}
	return NewSQLSource(db, driver), nil
}

// NewSQLSource wraps an existing pool. driver selects the placeholder style.
func NewSQLSource(db *sql.DB, driver string) *SQLSource {
	var placeholders sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		placeholders = sq.Dollar
	}
	return &SQLSource{db: db, placeholders: placeholders}
}

// Fetch implements RecordSource. Rows keep the database order.
func (s *SQLSource) Fetch(ctx context.Context, q Query) ([]models.Record, error) {
	route, err := s.routes.get(q.Route)
	if err != nil {
		return nil, err
	}

	query, args, err := q.ToSQL(s.placeholders)
	if err != nil {
		return nil, fmt.Errorf("%w: build query: %w", utils.ErrDatabase, err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", utils.ErrDatabase, q.Table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: read columns of %s: %w", utils.ErrDatabase, q.Table, err)
	}

	var records []models.Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: scan %s row: %w", utils.ErrDatabase, q.Table, err)
		}

		attrs := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				attrs[col] = string(b) // TEXT columns may arrive as bytes
			} else {
				attrs[col] = values[i]
			}
		}
		records = append(records, NewRow(attrs, route))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s rows: %w", utils.ErrDatabase, q.Table, err)
	}

	return records, nil
}

// Close closes the underlying pool
func (s *SQLSource) Close() error {
	return s.db.Close()
}
