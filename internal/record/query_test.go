package record

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gorecord/gorecord/internal/attr"
)

func seedUsers(t *testing.T, ctx context.Context, env *Env) {
	t.Helper()
	for _, u := range []struct {
		name   string
		status string
	}{
		{"alice", "active"},
		{"bob", "active"},
		{"carol", "disabled"},
	} {
		_, err := env.Gateway.Run(ctx,
			"INSERT INTO users (user_name, status) VALUES (?, ?)", u.name, u.status)
		require.NoError(t, err)
	}
}

func TestCountAllObjects(t *testing.T) {
	// Scenario: exact filtered count; unknown filter names are ignored
	// with a warning instead of raising an error.
	ctx, env := newTestEnv(t)
	seedUsers(t, ctx, env)

	n, err := env.CountAllObjects(ctx, "User", map[string]any{"status": "active"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = env.CountAllObjects(ctx, "User", map[string]any{"status": "active", "shoeSize": 44})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "the unknown filter is skipped, not fatal")
}

func TestGetAllObjects_FilterAndOrder(t *testing.T) {
	ctx, env := newTestEnv(t)
	seedUsers(t, ctx, env)

	users, err := env.GetAllObjects(ctx, "User",
		map[string]any{"status": "active"}, []string{"userName DESC"})
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, attr.String("bob"), users[0].Get("userName"))
	assert.Equal(t, attr.String("alice"), users[1].Get("userName"))
	for _, u := range users {
		assert.True(t, u.IsLoaded())
		assert.Empty(t, u.Dirty())
	}
}

func TestGetAllObjects_NoMatches(t *testing.T) {
	ctx, env := newTestEnv(t)
	users, err := env.GetAllObjects(ctx, "User", map[string]any{"status": "archived"}, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestGetObjectsByQuery_ExtraColumnsBecomeDynamic(t *testing.T) {
	ctx, env := newTestEnv(t)
	seedUsers(t, ctx, env)

	users, err := env.GetObjectsByQuery(ctx, "User",
		"SELECT u.*, length(u.user_name) AS name_length FROM users u WHERE u.status = ?", "active")
	require.NoError(t, err)
	require.Len(t, users, 2)

	for _, u := range users {
		v := u.Get("nameLength")
		require.IsType(t, attr.Int(0), v, "projected extras are dynamic attributes")
		assert.Equal(t, int64(len(u.GetGo("userName").(string))), int64(v.(attr.Int)))
		assert.Empty(t, u.Dirty(), "dynamic attributes are not dirty-tracked")
	}
}

func TestGetObjectsByQuery_BadSQL(t *testing.T) {
	ctx, env := newTestEnv(t)
	_, err := env.GetObjectsByQuery(ctx, "User", "SELECT FROM nowhere")
	require.Error(t, err)
}
