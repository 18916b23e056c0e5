package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/db"
)

// RowStore is the generic row-store collaborator results are written to.
type RowStore interface {
	// Insert writes rows to table and returns one created id per row.
	Insert(ctx context.Context, table string, rows []Row) ([]string, error)
	List(ctx context.Context, table string, opts ListOpts) ([]Row, error)
	Ping(ctx context.Context) error
}

type ListOpts struct {
	Limit  int
	Offset int
}

type SQLStore struct {
	db     *sql.DB
	driver db.Driver
}

func NewSQLStore(conn *sql.DB, driver db.Driver) *SQLStore {
	return &SQLStore{db: conn, driver: driver}
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Migrate creates one result table per persistence mapping of reg.
func (s *SQLStore) Migrate(ctx context.Context, reg *catalog.Registry) error {
	for _, m := range reg.Mappings() {
		ddl, err := s.createTable(m)
		if err != nil {
			return err
		}
		if err := db.ExecScript(ctx, s.db, ddl); err != nil {
			return fmt.Errorf("migrate %s: %w", m.Table, err)
		}
	}
	return nil
}

func (s *SQLStore) createTable(m catalog.Mapping) (string, error) {
	if !catalog.IsIdent(m.Table) {
		return "", fmt.Errorf("invalid table name %q", m.Table)
	}
	floatType, intType := "REAL", "INTEGER"
	if s.driver == db.DriverPostgres {
		floatType, intType = "DOUBLE PRECISION", "BIGINT"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", m.Table)
	b.WriteString("  id TEXT PRIMARY KEY,\n")
	b.WriteString("  config_id TEXT NOT NULL,\n")
	for _, c := range m.Columns {
		if !catalog.IsIdent(c.Column) {
			return "", fmt.Errorf("invalid column name %q", c.Column)
		}
		typ := "TEXT"
		if c.Kind == catalog.KindNumeric {
			typ = floatType
		}
		fmt.Fprintf(&b, "  %s %s,\n", c.Column, typ)
	}
	b.WriteString("  answers TEXT NOT NULL,\n")
	b.WriteString("  numeric_scores TEXT NOT NULL,\n")
	fmt.Fprintf(&b, "  total_score %s NOT NULL,\n", floatType)
	fmt.Fprintf(&b, "  max_possible_score %s NOT NULL,\n", floatType)
	b.WriteString("  result_percentage INTEGER NOT NULL,\n")
	b.WriteString("  interpretation_label TEXT NOT NULL,\n")
	fmt.Fprintf(&b, "  created_at %s NOT NULL\n);\n", intType)
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS %s_created_idx ON %s (created_at)", m.Table, m.Table)
	return b.String(), nil
}

// Insert writes all rows in one transaction. Rows without an id get a UUID.
func (s *SQLStore) Insert(ctx context.Context, table string, rows []Row) ([]string, error) {
	if !catalog.IsIdent(table) {
		return nil, &Failure{Message: fmt.Sprintf("invalid table name %q", table), Code: "invalid_table"}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		id, _ := row[ColID].(string)
		if id == "" {
			id = uuid.NewString()
		}
		cols := []string{ColID}
		args := []any{id}
		for _, k := range sortedKeys(row) {
			if k == ColID {
				continue
			}
			if !catalog.IsIdent(k) {
				return nil, &Failure{Message: fmt.Sprintf("invalid column name %q", k), Code: "invalid_column"}
			}
			v, err := sqlValue(row[k])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", k, err)
			}
			cols = append(cols, k)
			args = append(args, v)
		}
		marks := make([]string, len(cols))
		for i := range cols {
			marks[i] = fmt.Sprintf("$%d", i+1)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ","), strings.Join(marks, ","))
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// List returns rows newest first.
func (s *SQLStore) List(ctx context.Context, table string, opts ListOpts) ([]Row, error) {
	if !catalog.IsIdent(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s ORDER BY created_at DESC, id LIMIT $1 OFFSET $2", table),
		opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func sqlValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, float64, int64, bool:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

func sortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
