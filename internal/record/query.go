package record

import (
	"context"
	"fmt"

	"github.com/gorecord/gorecord/internal/attr"
	"github.com/gorecord/gorecord/internal/sqlgen"
)

// driverValue normalizes filter values: attribute values serialize to
// their store representation, everything else passes through.
func driverValue(v any) any {
	av, ok := v.(attr.Value)
	if !ok {
		return v
	}
	switch av.(type) {
	case attr.Time:
		return attr.CoerceOut(attr.TagTimestamp, av)
	case attr.List:
		return attr.CoerceOut(attr.TagList, av)
	case attr.Doc:
		return attr.CoerceOut(attr.TagDoc, av)
	case attr.Bool:
		return attr.CoerceOut(attr.TagBool, av)
	default:
		return attr.GoValue(av)
	}
}

func normalizeFilters(filters map[string]any) map[string]any {
	if filters == nil {
		return nil
	}
	out := make(map[string]any, len(filters))
	for k, v := range filters {
		out[k] = driverValue(v)
	}
	return out
}

// GetAllObjects loads every record of a type matching the filters, in
// the given order. Filter and order names are attribute names; unknown
// ones are skipped with a warning. Per-record coercion problems land
// on each record's error log; the load continues past them.
func (e *Env) GetAllObjects(ctx context.Context, typeName string, filters map[string]any, order []string) ([]*Record, error) {
	probe, err := New(ctx, e, typeName)
	if err != nil {
		return nil, err
	}
	query, params := sqlgen.SelectAll(probe.binding, normalizeFilters(filters), order, e.Logger)
	return e.GetObjectsByQuery(ctx, typeName, query, params...)
}

// CountAllObjects returns the number of rows of a type matching the
// filters.
func (e *Env) CountAllObjects(ctx context.Context, typeName string, filters map[string]any) (int64, error) {
	probe, err := New(ctx, e, typeName)
	if err != nil {
		return 0, err
	}
	query, params := sqlgen.CountByFilters(probe.binding, normalizeFilters(filters), e.Logger)
	n, err := e.Gateway.LoadScalar(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", typeName, err)
	}
	count, _ := n.(int64)
	return count, nil
}

// GetObjectsByQuery materializes an arbitrary query's rows as records
// of the given type. Columns outside the binding become dynamic
// attributes on each record.
func (e *Env) GetObjectsByQuery(ctx context.Context, typeName string, query string, params ...any) ([]*Record, error) {
	rows, err := e.Gateway.LoadRows(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", typeName, err)
	}
	records := make([]*Record, 0, len(rows))
	for _, row := range rows {
		r, err := FromRow(ctx, e, typeName, row)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}
