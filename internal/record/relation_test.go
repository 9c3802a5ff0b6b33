package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorecord/gorecord/internal/attr"
)

func TestGetRelated_DeclaredSharedRelation(t *testing.T) {
	ctx, env := newTestEnv(t)
	_, err := env.Gateway.Run(ctx,
		"INSERT INTO emp_records (emp_number, first_name, last_name) VALUES (?, ?, ?)", 12, "Ada", "Byron")
	require.NoError(t, err)

	u := mustNew(t, ctx, env, "User")
	u.Set("userName", "ada")
	u.Set("empNumber", 12)
	require.True(t, u.Create(ctx))

	emp := u.GetRelated(ctx, "empNumber")
	require.NotNil(t, emp)
	assert.Equal(t, "Employee", emp.Type())
	assert.Equal(t, attr.String("Ada"), emp.Get("firstName"))

	// The relation is marked shared: a second traversal hits the cache.
	assert.Equal(t, 1, env.Shared.Len())
	again := u.GetRelated(ctx, "empNumber")
	assert.Same(t, emp, again)
}

func TestGetRelated_IntrospectedForeignKey(t *testing.T) {
	ctx, env := newTestEnv(t)
	u := mustNew(t, ctx, env, "User")
	u.Set("userName", "boss")
	require.True(t, u.Create(ctx))
	_, err := env.Gateway.Run(ctx,
		"INSERT INTO user_roles (user_id, role_name) VALUES (?, ?)", u.GetID(), "admin")
	require.NoError(t, err)

	role, err := ByKey(ctx, env, "UserRole", u.GetID(), "admin")
	require.NoError(t, err)
	require.True(t, role.IsLoaded())

	// No declared relation on userId; the foreign key comes from the store.
	owner := role.GetRelated(ctx, "userId")
	require.NotNil(t, owner)
	assert.Equal(t, "User", owner.Type())
	assert.Equal(t, attr.String("boss"), owner.Get("userName"))
}

func TestGetRelated_NoMappingLogsAttributeName(t *testing.T) {
	// Scenario: an attribute with no foreign-key mapping yields nil and
	// an error message containing the attribute name.
	ctx, env := newTestEnv(t)
	u := mustNew(t, ctx, env, "User")
	u.Set("userName", "solo")
	require.True(t, u.Create(ctx))

	assert.Nil(t, u.GetRelated(ctx, "status"))
	assert.Contains(t, u.LastError(), "status")
}

func TestGetRelated_NullForeignKey(t *testing.T) {
	ctx, env := newTestEnv(t)
	u := mustNew(t, ctx, env, "User")
	u.Set("userName", "unlinked")
	require.True(t, u.Create(ctx))

	before := len(u.Errors())
	assert.Nil(t, u.GetRelated(ctx, "empNumber"), "null key resolves to no record")
	assert.Len(t, u.Errors(), before, "a null key is not an error")
}

func TestGetRelated_DanglingKeyUnloaded(t *testing.T) {
	ctx, env := newTestEnv(t)
	u := mustNew(t, ctx, env, "User")
	u.Set("userName", "dangling")
	u.Set("empNumber", 999)
	require.True(t, u.Create(ctx))

	assert.Nil(t, u.GetRelated(ctx, "empNumber"), "an unloaded target is not returned")
}

func TestGetRelatedMany_InverseIntrospected(t *testing.T) {
	ctx, env := newTestEnv(t)
	u := mustNew(t, ctx, env, "User")
	u.Set("userName", "multi")
	require.True(t, u.Create(ctx))
	for _, role := range []string{"admin", "hr"} {
		_, err := env.Gateway.Run(ctx,
			"INSERT INTO user_roles (user_id, role_name) VALUES (?, ?)", u.GetID(), role)
		require.NoError(t, err)
	}

	roles := u.GetRelatedMany(ctx, "id", "UserRole")
	require.Len(t, roles, 2)
	for _, r := range roles {
		assert.Equal(t, u.GetID(), r.GetGo("userId"))
	}
}

func TestGetRelatedMany_UnregisteredTarget(t *testing.T) {
	ctx, env := newTestEnv(t)
	u := mustNew(t, ctx, env, "User")
	u.Set("userName", "x")
	require.True(t, u.Create(ctx))

	assert.Nil(t, u.GetRelatedMany(ctx, "id", "Ghost"))
	assert.Contains(t, u.LastError(), "Ghost")
}

func TestGetRelatedProperty(t *testing.T) {
	ctx, env := newTestEnv(t)
	_, err := env.Gateway.Run(ctx,
		"INSERT INTO emp_records (emp_number, first_name, last_name) VALUES (?, ?, ?)", 7, "Joan", "Clarke")
	require.NoError(t, err)

	u := mustNew(t, ctx, env, "User")
	u.Set("userName", "joan")
	u.Set("empNumber", 7)
	require.True(t, u.Create(ctx))

	assert.Equal(t, attr.String("Joan"), u.GetRelatedProperty(ctx, "empNumber", "firstName"))
	assert.True(t, attr.IsNull(u.GetRelatedProperty(ctx, "status", "anything")))
}

func TestSharedCache(t *testing.T) {
	ctx, env := newTestEnv(t)
	u := mustNew(t, ctx, env, "User")
	u.Set("userName", "cached")
	require.True(t, u.Create(ctx))

	cache := NewSharedCache()
	assert.Nil(t, cache.Get("User", 1))
	assert.True(t, cache.Put("User", u.GetID(), u))
	assert.Same(t, u, cache.Get("User", u.GetID()))

	// A later put for the same key overwrites.
	u2, err := ByKey(ctx, env, "User", u.GetID())
	require.NoError(t, err)
	assert.True(t, cache.Put("User", u.GetID(), u2))
	assert.Same(t, u2, cache.Get("User", u.GetID()))

	role, err := ByKey(ctx, env, "UserRole", u.GetID(), "admin")
	require.NoError(t, err)
	assert.False(t, cache.Put("UserRole", "whatever", role), "compound-key types are never cached")

	assert.False(t, cache.Put("User", nil, u))
}

func TestSharedCache_RefreshOnUpdate(t *testing.T) {
	ctx, env := newTestEnv(t)
	_, err := env.Gateway.Run(ctx,
		"INSERT INTO emp_records (emp_number, first_name, last_name) VALUES (?, ?, ?)", 3, "Old", "Name")
	require.NoError(t, err)

	u := mustNew(t, ctx, env, "User")
	u.Set("userName", "refresher")
	u.Set("empNumber", 3)
	require.True(t, u.Create(ctx))
	emp := u.GetRelated(ctx, "empNumber")
	require.NotNil(t, emp)

	emp.Set("firstName", "New")
	require.True(t, emp.Update(ctx))
	assert.Same(t, emp, env.Shared.Get("Employee", emp.GetID()),
		"an update refreshes the record's shared cache entry")
}
