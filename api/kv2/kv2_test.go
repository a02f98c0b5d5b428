package kv2

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/internal/testserver"
)

const mount = "kv"

func setup(t *testing.T) (*testserver.Server, *api.Client) {
	t.Helper()
	srv := testserver.New(t)
	client, err := api.NewClient(&api.Config{Address: srv.URL, Token: srv.RootToken})
	require.NoError(t, err)
	return srv, client
}

func write(t *testing.T, client *api.Client, path string, data map[string]any) *VersionMetadata {
	t.Helper()
	meta, err := api.Execute[*VersionMetadata](context.Background(), client, Write{Mount: mount, Path: path, Data: data})
	require.NoError(t, err)
	return meta
}

func read(client *api.Client, path string, version int) (*Secret[map[string]any], error) {
	return api.Execute[*Secret[map[string]any]](context.Background(), client,
		Read[map[string]any]{Mount: mount, Path: path, Version: version})
}

func TestWriteRead(t *testing.T) {
	srv, client := setup(t)

	meta := write(t, client, "app/config", map[string]any{"color": "blue"})
	assert.Equal(t, 1, meta.Version)
	assert.False(t, meta.CreatedTime.IsZero())

	req, ok := srv.LastRequest("kv/data/app/config")
	require.True(t, ok)
	assert.JSONEq(t, `{"data":{"color":"blue"}}`, string(req.Body))

	meta = write(t, client, "app/config", map[string]any{"color": "red"})
	assert.Equal(t, 2, meta.Version)

	latest, err := read(client, "app/config", 0)
	require.NoError(t, err)
	assert.Equal(t, "red", latest.Data["color"])
	assert.Equal(t, 2, latest.Metadata.Version)

	first, err := read(client, "app/config", 1)
	require.NoError(t, err)
	assert.Equal(t, "blue", first.Data["color"])

	req, _ = srv.LastRequest("kv/data/app/config")
	assert.Equal(t, "1", req.Query.Get("version"))

	_, err = read(client, "app/missing", 0)
	assert.True(t, api.IsNotFound(err))
}

func TestTypedRead(t *testing.T) {
	_, client := setup(t)
	write(t, client, "db", map[string]any{"username": "app", "port": 5432})

	type creds struct {
		Username string `json:"username"`
		Port     int    `json:"port"`
	}
	secret, err := api.Execute[*Secret[creds]](context.Background(), client, Read[creds]{Mount: mount, Path: "db"})
	require.NoError(t, err)
	assert.Equal(t, creds{Username: "app", Port: 5432}, secret.Data)
}

func TestCheckAndSet(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()

	zero := 0
	_, err := api.Execute[*VersionMetadata](ctx, client, Write{Mount: mount, Path: "cas", Data: map[string]any{"a": 1}, CAS: &zero})
	require.NoError(t, err)

	_, err = api.Execute[*VersionMetadata](ctx, client, Write{Mount: mount, Path: "cas", Data: map[string]any{"a": 2}, CAS: &zero})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrAPI)

	var ce *api.ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"check-and-set parameter did not match the current version"}, ce.Errors)

	one := 1
	meta, err := api.Execute[*VersionMetadata](ctx, client, Write{Mount: mount, Path: "cas", Data: map[string]any{"a": 2}, CAS: &one})
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Version)
}

func TestPatch(t *testing.T) {
	srv, client := setup(t)
	ctx := context.Background()

	write(t, client, "svc", map[string]any{"keep": "yes", "change": "old", "drop": "x"})

	meta, err := api.Execute[*VersionMetadata](ctx, client, Patch{
		Mount: mount,
		Path:  "svc",
		Data:  map[string]any{"change": "new", "drop": nil, "add": "z"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Version)

	req, _ := srv.LastRequest("kv/data/svc")
	assert.Equal(t, "PATCH", req.Method)
	assert.Equal(t, "application/merge-patch+json", req.Header.Get("Content-Type"))

	secret, err := read(client, "svc", 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"keep": "yes", "change": "new", "add": "z"}, secret.Data)

	_, err = api.Execute[*VersionMetadata](ctx, client, Patch{Mount: mount, Path: "absent", Data: map[string]any{"a": 1}})
	assert.True(t, api.IsNotFound(err))

	_, err = api.Execute[*VersionMetadata](ctx, client, Patch{Mount: mount, Path: "svc"})
	assert.ErrorIs(t, err, api.ErrConfiguration)
}

func TestDeleteUndeleteDestroy(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()

	write(t, client, "rotating", map[string]any{"v": "1"})
	write(t, client, "rotating", map[string]any{"v": "2"})

	_, err := api.Execute[api.Empty](ctx, client, Delete{Mount: mount, Path: "rotating"})
	require.NoError(t, err)
	_, err = read(client, "rotating", 0)
	assert.True(t, api.IsNotFound(err))

	_, err = api.Execute[api.Empty](ctx, client, Undelete{Mount: mount, Path: "rotating", Versions: []int{2}})
	require.NoError(t, err)
	secret, err := read(client, "rotating", 0)
	require.NoError(t, err)
	assert.Equal(t, "2", secret.Data["v"])

	_, err = api.Execute[api.Empty](ctx, client, Delete{Mount: mount, Path: "rotating", Versions: []int{1}})
	require.NoError(t, err)
	_, err = read(client, "rotating", 1)
	assert.True(t, api.IsNotFound(err))

	_, err = api.Execute[api.Empty](ctx, client, Destroy{Mount: mount, Path: "rotating", Versions: []int{1}})
	require.NoError(t, err)
	_, err = api.Execute[api.Empty](ctx, client, Undelete{Mount: mount, Path: "rotating", Versions: []int{1}})
	require.NoError(t, err)
	_, err = read(client, "rotating", 1)
	assert.True(t, api.IsNotFound(err), "destroyed versions cannot be restored")

	meta, err := api.Execute[*Metadata](ctx, client, ReadMetadata{Mount: mount, Path: "rotating"})
	require.NoError(t, err)
	assert.True(t, meta.Versions["1"].Destroyed)
	assert.Empty(t, meta.Versions["2"].DeletionTime)

	_, err = api.Execute[api.Empty](ctx, client, Destroy{Mount: mount, Path: "rotating"})
	assert.ErrorIs(t, err, api.ErrConfiguration)
}

func TestMetadata(t *testing.T) {
	srv, client := setup(t)
	ctx := context.Background()

	_, err := api.Execute[api.Empty](ctx, client, WriteMetadata{Mount: mount, Path: "limited", Input: MetadataInput{
		MaxVersions:    2,
		CustomMetadata: map[string]string{"owner": "team-a"},
	}})
	require.NoError(t, err)

	req, _ := srv.LastRequest("kv/metadata/limited")
	assert.JSONEq(t, `{"max_versions":2,"custom_metadata":{"owner":"team-a"}}`, string(req.Body))

	for i := 0; i < 3; i++ {
		write(t, client, "limited", map[string]any{"i": i})
	}

	meta, err := api.Execute[*Metadata](ctx, client, ReadMetadata{Mount: mount, Path: "limited"})
	require.NoError(t, err)
	assert.Equal(t, 3, meta.CurrentVersion)
	assert.Equal(t, 2, meta.OldestVersion)
	assert.Equal(t, 2, meta.MaxVersions)
	assert.Len(t, meta.Versions, 2)
	assert.Equal(t, "team-a", meta.CustomMetadata["owner"])

	_, err = read(client, "limited", 1)
	assert.True(t, api.IsNotFound(err))

	_, err = api.Execute[api.Empty](ctx, client, DeleteMetadata{Mount: mount, Path: "limited"})
	require.NoError(t, err)
	_, err = api.Execute[*Metadata](ctx, client, ReadMetadata{Mount: mount, Path: "limited"})
	assert.True(t, api.IsNotFound(err))
}

func TestList(t *testing.T) {
	srv, client := setup(t)
	ctx := context.Background()

	write(t, client, "teams/a/db", map[string]any{"x": 1})
	write(t, client, "teams/b", map[string]any{"x": 1})
	write(t, client, "root", map[string]any{"x": 1})

	keys, err := api.Execute[[]string](ctx, client, List{Mount: mount, Path: "teams"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/", "b"}, keys)

	req, ok := srv.LastRequest("kv/metadata/teams/")
	require.True(t, ok)
	assert.Equal(t, api.MethodList, req.Method)

	keys, err = api.Execute[[]string](ctx, client, List{Mount: mount})
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "teams/"}, keys)

	_, err = api.Execute[[]string](ctx, client, List{Mount: mount, Path: "nothing"})
	assert.True(t, api.IsNotFound(err))

	before := len(srv.Requests())
	_, err = api.Execute[[]string](ctx, client, List{Mount: mount, Path: "../../sys/policies/acl"})
	assert.ErrorIs(t, err, api.ErrConfiguration)
	assert.Len(t, srv.Requests(), before)
}
