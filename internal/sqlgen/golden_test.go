package sqlgen

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// TestStatements_Golden pins the full statement surface against a
// golden file so any change to generated SQL is an explicit diff.
//
// To regenerate, run:
//
//	go test ./internal/sqlgen -update
func TestStatements_Golden(t *testing.T) {
	users := userBinding(t)
	roles := roleBinding(t)
	logger := quietLogger()

	var report strings.Builder
	add := func(name, sql string, params []any) {
		fmt.Fprintf(&report, "-- %s\n%s\nparams: %v\n\n", name, sql, params)
	}

	sql, params, err := SelectByKey(users, []any{7})
	require.NoError(t, err)
	add("select_by_key", sql, params)

	sql, params = SelectAll(users,
		map[string]any{"status": "active", "bogus": 1},
		[]string{"userName DESC", "nope"}, logger)
	add("select_all_filtered", sql, params)

	sql, params = CountByFilters(users, map[string]any{"status": "active"}, logger)
	add("count_by_filters", sql, params)

	sql, params, err = Insert(users, map[string]any{
		"userName":  "alice",
		"empNumber": int64(12),
		"ssn":       "123-45-6789",
	})
	require.NoError(t, err)
	add("insert", sql, params)

	sql, params, err = UpdateByKey(users, map[string]any{
		"status": "disabled",
		"ssn":    "000",
	}, []any{7})
	require.NoError(t, err)
	add("update_by_key", sql, params)

	sql, params, err = DeleteByKey(users, []any{7})
	require.NoError(t, err)
	add("delete_by_key", sql, params)

	sql, params, err = SelectByKey(roles, []any{7, "admin"})
	require.NoError(t, err)
	add("select_by_compound_key", sql, params)

	g := goldie.New(t, goldie.WithNameSuffix(".golden"))
	g.Assert(t, "statements", []byte(report.String()))
}
