package kv1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/internal/testserver"
)

type database struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func TestCRUD(t *testing.T) {
	srv := testserver.New(t)
	client, err := api.NewClient(&api.Config{Address: srv.URL, Token: srv.RootToken})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = api.Execute[api.Empty](ctx, client, Write{
		Path: "apps/web/db",
		Data: database{Username: "web", Password: "hunter2"},
	})
	require.NoError(t, err)

	stored, ok := srv.KV1("secret/apps/web/db")
	require.True(t, ok)
	assert.Equal(t, "web", stored["username"])

	got, err := api.Execute[database](ctx, client, Read[database]{Path: "/apps/web/db"})
	require.NoError(t, err)
	assert.Equal(t, database{Username: "web", Password: "hunter2"}, got)

	_, err = api.Execute[api.Empty](ctx, client, Write{Path: "apps/api", Data: map[string]string{"k": "v"}})
	require.NoError(t, err)

	keys, err := api.Execute[[]string](ctx, client, List{Path: "apps"})
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "web/"}, keys)

	req, _ := srv.LastRequest("secret/apps/")
	assert.Equal(t, api.MethodList, req.Method)

	_, err = api.Execute[api.Empty](ctx, client, Delete{Path: "apps/web/db"})
	require.NoError(t, err)

	_, err = api.Execute[database](ctx, client, Read[database]{Path: "apps/web/db"})
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestCustomMount(t *testing.T) {
	srv := testserver.New(t)
	client, err := api.NewClient(&api.Config{Address: srv.URL, Token: srv.RootToken})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = api.Execute[api.Empty](ctx, client, Write{Mount: "/secret/", Path: "x", Data: map[string]int{"n": 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, srv.RequestCount("secret/x"))
}

func TestValidation(t *testing.T) {
	srv := testserver.New(t)
	client, err := api.NewClient(&api.Config{Address: srv.URL, Token: srv.RootToken})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = api.Execute[map[string]any](ctx, client, Read[map[string]any]{Path: "/"})
	assert.ErrorIs(t, err, api.ErrConfiguration)

	_, err = api.Execute[api.Empty](ctx, client, Write{Path: "x"})
	assert.ErrorIs(t, err, api.ErrConfiguration)

	_, err = api.Execute[api.Empty](ctx, client, Delete{})
	assert.ErrorIs(t, err, api.ErrConfiguration)

	_, err = api.Execute[map[string]any](ctx, client, Read[map[string]any]{Path: "../sys/policies/acl/root"})
	assert.ErrorIs(t, err, api.ErrConfiguration)

	_, err = api.Execute[api.Empty](ctx, client, Write{Path: "apps/../../sys/mounts/x", Data: map[string]string{"type": "kv"}})
	assert.ErrorIs(t, err, api.ErrConfiguration)

	_, err = api.Execute[[]string](ctx, client, List{Mount: "secret/.."})
	assert.ErrorIs(t, err, api.ErrConfiguration)

	assert.Empty(t, srv.Requests())
}
