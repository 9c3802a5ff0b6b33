package sqlgen

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorecord/gorecord/internal/attr"
	"github.com/gorecord/gorecord/internal/gateway"
	"github.com/gorecord/gorecord/internal/schema"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func userBinding(t *testing.T) *schema.Binding {
	t.Helper()
	def := &schema.Definition{
		Name:      "User",
		Table:     "users",
		Types:     map[string]attr.TypeTag{"empNumber": attr.TagInt},
		Encrypted: map[string]bool{"ssn": true},
	}
	metas := []gateway.ColumnMeta{
		{Name: "id", DeclType: "INTEGER", PrimaryKey: true, KeyOrdinal: 1},
		{Name: "user_name", DeclType: "TEXT"},
		{Name: "emp_number", DeclType: "INTEGER", Nullable: true},
		{Name: "status", DeclType: "TEXT", Nullable: true, HasDefault: true, Default: "'enabled'"},
		{Name: "ssn", DeclType: "TEXT", Nullable: true},
		{Name: "full_name", DeclType: "TEXT", Nullable: true, Generated: true},
	}
	b, err := schema.NewBinding("users", def, metas)
	require.NoError(t, err)
	return b
}

func roleBinding(t *testing.T) *schema.Binding {
	t.Helper()
	metas := []gateway.ColumnMeta{
		{Name: "user_id", DeclType: "INTEGER", PrimaryKey: true, KeyOrdinal: 1},
		{Name: "role_name", DeclType: "TEXT", PrimaryKey: true, KeyOrdinal: 2},
	}
	b, err := schema.NewBinding("user_roles", &schema.Definition{Name: "UserRole", Table: "user_roles"}, metas)
	require.NoError(t, err)
	return b
}

func TestSelectByKey(t *testing.T) {
	b := userBinding(t)
	sql, params, err := SelectByKey(b, []any{7})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "id", "user_name", "emp_number", "status", rec_decrypt("ssn") AS "ssn", "full_name" FROM "users" WHERE "id" = ?`,
		sql)
	assert.Equal(t, []any{7}, params)
}

func TestSelectByKey_ArityMismatch(t *testing.T) {
	b := userBinding(t)
	_, _, err := SelectByKey(b, []any{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "arity mismatch")
}

func TestSelectByKey_CompoundOrder(t *testing.T) {
	b := roleBinding(t)
	sql, params, err := SelectByKey(b, []any{7, "admin"})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "user_id", "role_name" FROM "user_roles" WHERE "user_id" = ? AND "role_name" = ?`,
		sql)
	assert.Equal(t, []any{7, "admin"}, params)
}

func TestSelectAll_SkipsUnknownFilterAndOrder(t *testing.T) {
	b := userBinding(t)
	sql, params := SelectAll(b,
		map[string]any{"status": "active", "bogus": 1},
		[]string{"userName DESC", "nope"},
		quietLogger())
	assert.NotContains(t, sql, "bogus")
	assert.NotContains(t, sql, "nope")
	assert.Contains(t, sql, `WHERE "status" = ?`)
	assert.Contains(t, sql, `ORDER BY "user_name" DESC`)
	assert.Equal(t, []any{"active"}, params)
}

func TestSelectAll_NilFilterBecomesIsNull(t *testing.T) {
	b := userBinding(t)
	sql, params := SelectAll(b, map[string]any{"empNumber": nil}, nil, quietLogger())
	assert.Contains(t, sql, `"emp_number" IS NULL`)
	assert.Empty(t, params)
}

func TestCountByFilters(t *testing.T) {
	b := userBinding(t)
	sql, params := CountByFilters(b, map[string]any{"status": "active"}, quietLogger())
	assert.Equal(t, `SELECT COUNT(*) FROM "users" WHERE "status" = ?`, sql)
	assert.Equal(t, []any{"active"}, params)
}

func TestInsert_SkipsGeneratedAndEncrypts(t *testing.T) {
	b := userBinding(t)
	sql, params, err := Insert(b, map[string]any{
		"userName":  "alice",
		"empNumber": int64(12),
		"ssn":       "123-45-6789",
		"fullName":  "ignored", // generated column, never written
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "users" ("user_name", "emp_number", "ssn") VALUES (?, ?, rec_encrypt(?))`,
		sql)
	assert.Equal(t, []any{"alice", int64(12), "123-45-6789"}, params)
}

func TestInsert_NoValues(t *testing.T) {
	b := userBinding(t)
	_, _, err := Insert(b, map[string]any{})
	require.Error(t, err)
}

func TestUpdateByKey(t *testing.T) {
	b := userBinding(t)
	sql, params, err := UpdateByKey(b, map[string]any{
		"status": "disabled",
		"ssn":    "000",
		"id":     int64(7), // key column, excluded from SET
	}, []any{7})
	require.NoError(t, err)
	assert.Equal(t,
		`UPDATE "users" SET "status" = ?, "ssn" = rec_encrypt(?) WHERE "id" = ?`,
		sql)
	assert.Equal(t, []any{"disabled", "000", 7}, params)
}

func TestDeleteByKey(t *testing.T) {
	b := userBinding(t)
	sql, params, err := DeleteByKey(b, []any{7})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "users" WHERE "id" = ?`, sql)
	assert.Equal(t, []any{7}, params)
}

func TestCountByKey(t *testing.T) {
	b := roleBinding(t)
	sql, params, err := CountByKey(b, []any{7, "admin"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "user_roles" WHERE "user_id" = ? AND "role_name" = ?`, sql)
	assert.Equal(t, []any{7, "admin"}, params)
}
