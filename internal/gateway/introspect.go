package gateway

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSuchTable is returned when schema introspection targets a table
// the store does not know. Callers treat this as an unrecoverable
// configuration error, not a condition to default around.
var ErrNoSuchTable = errors.New("no such table")

// ErrNoSuchColumn is returned by DescribeColumn for unknown columns.
var ErrNoSuchColumn = errors.New("no such column")

// ColumnMeta describes one column of a backing table.
type ColumnMeta struct {
	Name       string
	DeclType   string // declared SQL type, upper-cased by SQLite convention
	Nullable   bool
	PrimaryKey bool // part of the table's primary key
	KeyOrdinal int  // 1-based position within the key, 0 if not a key column
	HasDefault bool
	Default    string
	Generated  bool // computed column, never written by the engine
}

// ForeignKey describes an outgoing reference of a table.
type ForeignKey struct {
	FromColumn string
	RefTable   string
	RefColumn  string // empty means the referenced table's primary key
}

// InverseForeignKey describes an incoming reference to a table.
type InverseForeignKey struct {
	FromTable  string
	FromColumn string
	RefColumn  string
}

// DescribeTable returns the column metadata of a table in declaration
// order. ErrNoSuchTable when the table does not exist.
func (g *Gateway) DescribeTable(ctx context.Context, table string) ([]ColumnMeta, error) {
	// PRAGMA arguments cannot be parameterized; the identifier is quoted.
	rows, err := g.LoadRows(ctx, fmt.Sprintf("PRAGMA table_xinfo(%s)", QuoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("describe %s: %w", table, ErrNoSuchTable)
	}

	cols := make([]ColumnMeta, 0, len(rows))
	for _, row := range rows {
		hidden := asInt(row["hidden"])
		if hidden == 1 {
			// Truly hidden columns (virtual table internals) are not
			// part of the binding surface. Generated columns report
			// hidden 2 or 3 and stay visible.
			continue
		}
		pk := asInt(row["pk"])
		dflt, hasDefault := row["dflt_value"].(string)
		cols = append(cols, ColumnMeta{
			Name:       asString(row["name"]),
			DeclType:   asString(row["type"]),
			Nullable:   asInt(row["notnull"]) == 0 && pk == 0,
			PrimaryKey: pk > 0,
			KeyOrdinal: pk,
			HasDefault: hasDefault,
			Default:    dflt,
			Generated:  hidden >= 2,
		})
	}
	return cols, nil
}

// DescribeColumn returns the metadata of a single column.
func (g *Gateway) DescribeColumn(ctx context.Context, table, column string) (ColumnMeta, error) {
	cols, err := g.DescribeTable(ctx, table)
	if err != nil {
		return ColumnMeta{}, err
	}
	for _, col := range cols {
		if col.Name == column {
			return col, nil
		}
	}
	return ColumnMeta{}, fmt.Errorf("describe %s.%s: %w", table, column, ErrNoSuchColumn)
}

// ForeignKeys returns the outgoing foreign keys declared on a table.
func (g *Gateway) ForeignKeys(ctx context.Context, table string) ([]ForeignKey, error) {
	rows, err := g.LoadRows(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", QuoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("foreign keys of %s: %w", table, err)
	}
	fks := make([]ForeignKey, 0, len(rows))
	for _, row := range rows {
		fks = append(fks, ForeignKey{
			FromColumn: asString(row["from"]),
			RefTable:   asString(row["table"]),
			RefColumn:  asString(row["to"]),
		})
	}
	return fks, nil
}

// InverseForeignKeys returns every foreign key in the schema that
// references the given table. SQLite keeps no reverse index, so this
// walks the table list and inspects each one's outgoing keys.
func (g *Gateway) InverseForeignKeys(ctx context.Context, table string) ([]InverseForeignKey, error) {
	rows, err := g.LoadRows(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var inverse []InverseForeignKey
	for _, row := range rows {
		from := asString(row["name"])
		if from == table {
			continue
		}
		fks, err := g.ForeignKeys(ctx, from)
		if err != nil {
			return nil, err
		}
		for _, fk := range fks {
			if fk.RefTable == table {
				inverse = append(inverse, InverseForeignKey{
					FromTable:  from,
					FromColumn: fk.FromColumn,
					RefColumn:  fk.RefColumn,
				})
			}
		}
	}
	return inverse, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case string:
		if n == "1" {
			return 1
		}
	}
	return 0
}
