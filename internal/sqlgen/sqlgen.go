// Package sqlgen builds parameterized SQL statements from a Binding.
// Every function returns (sql, params, error); values are always
// parameterized, never interpolated, and output is deterministic for a
// given input so statements can be golden-tested.
package sqlgen

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/gorecord/gorecord/internal/gateway"
	"github.com/gorecord/gorecord/internal/schema"
)

// projection lists every bound column, reading encrypted ones through
// the gateway's decrypt function so callers always see plaintext.
func projection(b *schema.Binding) string {
	parts := make([]string, len(b.Columns))
	for i, col := range b.Columns {
		q := gateway.QuoteIdent(col.Name)
		if col.Encrypted {
			parts[i] = fmt.Sprintf("rec_decrypt(%s) AS %s", q, q)
		} else {
			parts[i] = q
		}
	}
	return strings.Join(parts, ", ")
}

// whereKey builds the identity condition: one equality per key column,
// AND-joined in key attribute order.
func whereKey(b *schema.Binding, keyVals []any) (string, []any, error) {
	if len(keyVals) != len(b.KeyAttrs) {
		return "", nil, fmt.Errorf("identity arity mismatch for %s: want %d values, got %d",
			b.Table, len(b.KeyAttrs), len(keyVals))
	}
	conds := make([]string, len(b.KeyAttrs))
	for i, keyAttr := range b.KeyAttrs {
		col, _ := b.ColumnFor(keyAttr)
		conds[i] = gateway.QuoteIdent(col.Name) + " = ?"
	}
	return strings.Join(conds, " AND "), keyVals, nil
}

// SelectByKey builds the single-record load for an identity.
func SelectByKey(b *schema.Binding, keyVals []any) (string, []any, error) {
	where, params, err := whereKey(b, keyVals)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		projection(b), gateway.QuoteIdent(b.Table), where)
	return sql, params, nil
}

// CountByKey builds the existence probe for an identity.
func CountByKey(b *schema.Binding, keyVals []any) (string, []any, error) {
	where, params, err := whereKey(b, keyVals)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s",
		gateway.QuoteIdent(b.Table), where)
	return sql, params, nil
}

// filterClause renders a filter map as an AND conjunction. Filter keys
// are attribute names; unknown names are skipped with a warning, never
// an error, so a stray filter cannot abort a query. Keys are sorted
// for deterministic output.
func filterClause(b *schema.Binding, filters map[string]any, logger *slog.Logger) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	attrs := make([]string, 0, len(filters))
	for a := range filters {
		attrs = append(attrs, a)
	}
	sort.Strings(attrs)

	var conds []string
	var params []any
	for _, a := range attrs {
		col, ok := b.ColumnFor(a)
		if !ok {
			logger.Warn("skipping unknown filter attribute", "table", b.Table, "attr", a)
			continue
		}
		v := filters[a]
		if v == nil {
			conds = append(conds, gateway.QuoteIdent(col.Name)+" IS NULL")
			continue
		}
		conds = append(conds, gateway.QuoteIdent(col.Name)+" = ?")
		params = append(params, v)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), params
}

// orderClause renders order entries of the form "attr" or "attr DESC".
// Unknown attributes are skipped with a warning.
func orderClause(b *schema.Binding, order []string, logger *slog.Logger) string {
	var parts []string
	for _, entry := range order {
		fields := strings.Fields(entry)
		if len(fields) == 0 {
			continue
		}
		col, ok := b.ColumnFor(fields[0])
		if !ok {
			logger.Warn("skipping unknown order attribute", "table", b.Table, "attr", fields[0])
			continue
		}
		dir := ""
		if len(fields) > 1 && strings.EqualFold(fields[1], "DESC") {
			dir = " DESC"
		}
		parts = append(parts, gateway.QuoteIdent(col.Name)+dir)
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// SelectAll builds the filtered, ordered collection load.
func SelectAll(b *schema.Binding, filters map[string]any, order []string, logger *slog.Logger) (string, []any) {
	if logger == nil {
		logger = slog.Default()
	}
	where, params := filterClause(b, filters, logger)
	sql := fmt.Sprintf("SELECT %s FROM %s%s%s",
		projection(b), gateway.QuoteIdent(b.Table), where, orderClause(b, order, logger))
	return sql, params
}

// CountByFilters builds the filtered count.
func CountByFilters(b *schema.Binding, filters map[string]any, logger *slog.Logger) (string, []any) {
	if logger == nil {
		logger = slog.Default()
	}
	where, params := filterClause(b, filters, logger)
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", gateway.QuoteIdent(b.Table), where)
	return sql, params
}

// Insert builds the insert for the given attribute values (already
// coerced to driver representation). Generated columns are never
// written; encrypted values are routed through rec_encrypt. Columns
// appear in table declaration order.
func Insert(b *schema.Binding, values map[string]any) (string, []any, error) {
	var cols, placeholders []string
	var params []any
	for _, col := range b.Columns {
		v, ok := values[col.Attr]
		if !ok || col.Generated {
			continue
		}
		cols = append(cols, gateway.QuoteIdent(col.Name))
		if col.Encrypted {
			placeholders = append(placeholders, "rec_encrypt(?)")
		} else {
			placeholders = append(placeholders, "?")
		}
		params = append(params, v)
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("insert into %s: no writable values", b.Table)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		gateway.QuoteIdent(b.Table), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	return sql, params, nil
}

// UpdateByKey builds the identity-keyed update for a subset of
// attribute values. Key and generated columns are excluded from the
// SET list.
func UpdateByKey(b *schema.Binding, values map[string]any, keyVals []any) (string, []any, error) {
	var sets []string
	var params []any
	for _, col := range b.Columns {
		v, ok := values[col.Attr]
		if !ok || col.Generated || col.Key {
			continue
		}
		if col.Encrypted {
			sets = append(sets, gateway.QuoteIdent(col.Name)+" = rec_encrypt(?)")
		} else {
			sets = append(sets, gateway.QuoteIdent(col.Name)+" = ?")
		}
		params = append(params, v)
	}
	if len(sets) == 0 {
		return "", nil, fmt.Errorf("update %s: no writable values", b.Table)
	}
	where, keyParams, err := whereKey(b, keyVals)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		gateway.QuoteIdent(b.Table), strings.Join(sets, ", "), where)
	return sql, append(params, keyParams...), nil
}

// DeleteByKey builds the identity-keyed delete.
func DeleteByKey(b *schema.Binding, keyVals []any) (string, []any, error) {
	where, params, err := whereKey(b, keyVals)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s", gateway.QuoteIdent(b.Table), where)
	return sql, params, nil
}
