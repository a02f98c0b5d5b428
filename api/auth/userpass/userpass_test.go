package userpass

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/internal/testserver"
)

func newClient(t *testing.T, srv *testserver.Server, token string) *api.Client {
	t.Helper()
	client, err := api.NewClient(&api.Config{Address: srv.URL, Token: token})
	require.NoError(t, err)
	return client
}

func TestNew(t *testing.T) {
	_, err := New("", &Password{FromString: "pw"})
	assert.ErrorIs(t, err, ErrNoUsername)

	_, err = New("bob", nil)
	assert.ErrorIs(t, err, ErrNoPassword)

	_, err = New("bob", &Password{})
	assert.ErrorIs(t, err, ErrNoPassword)

	_, err = New("bob", &Password{FromString: "pw"}, WithMountPath(""))
	assert.ErrorIs(t, err, ErrInvalidMountPath)
}

func TestLogin(t *testing.T) {
	srv := testserver.New(t)
	srv.AddUser("bob", "builder", "ops")
	ctx := context.Background()

	t.Run("password string", func(t *testing.T) {
		client := newClient(t, srv, "")
		auth, err := New("bob", &Password{FromString: "builder"})
		require.NoError(t, err)

		info, err := client.Auth().Login(ctx, auth)
		require.NoError(t, err)
		assert.Equal(t, info.ClientToken, client.Token())
		assert.Equal(t, []string{"ops"}, info.Policies)
		assert.Equal(t, "bob", info.Metadata["username"])
	})

	t.Run("password file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pw")
		require.NoError(t, os.WriteFile(path, []byte("builder\n"), 0600))

		auth, err := New("bob", &Password{FromFile: path})
		require.NoError(t, err)
		_, err = auth.Login(ctx, newClient(t, srv, ""))
		require.NoError(t, err)
	})

	t.Run("password env", func(t *testing.T) {
		t.Setenv("USERPASS_PASSWORD", "builder")

		auth, err := New("bob", &Password{FromEnv: "USERPASS_PASSWORD"})
		require.NoError(t, err)
		_, err = auth.Login(ctx, newClient(t, srv, ""))
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		client := newClient(t, srv, "before")
		auth, err := New("bob", &Password{FromString: "wrong"})
		require.NoError(t, err)

		_, err = client.Auth().Login(ctx, auth)
		require.Error(t, err)
		assert.ErrorIs(t, err, api.ErrAPI)
		assert.Contains(t, err.Error(), "invalid username or password")
		assert.Equal(t, "before", client.Token())
	})

	t.Run("unreadable password file", func(t *testing.T) {
		auth, err := New("bob", &Password{FromFile: filepath.Join(t.TempDir(), "missing")})
		require.NoError(t, err)

		_, err = auth.Login(ctx, newClient(t, srv, ""))
		assert.ErrorIs(t, err, api.ErrConfiguration)
	})
}

func TestUsers(t *testing.T) {
	srv := testserver.New(t)
	admin := newClient(t, srv, srv.RootToken)
	ctx := context.Background()

	_, err := api.Execute[api.Empty](ctx, admin, WriteUser{
		Username:      "carol",
		Password:      "s3cret",
		TokenPolicies: []string{"reader"},
		TokenTTL:      "30m",
	})
	require.NoError(t, err)

	req, ok := srv.LastRequest("auth/userpass/users/carol")
	require.True(t, ok)
	assert.JSONEq(t, `{"password":"s3cret","token_policies":["reader"],"token_ttl":"30m"}`, string(req.Body))

	auth, err := New("carol", &Password{FromString: "s3cret"})
	require.NoError(t, err)
	info, err := auth.Login(ctx, newClient(t, srv, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"reader"}, info.Policies)

	_, err = api.Execute[api.Empty](ctx, admin, DeleteUser{Username: "carol"})
	require.NoError(t, err)

	_, err = auth.Login(ctx, newClient(t, srv, ""))
	assert.ErrorIs(t, err, api.ErrAPI)

	_, err = api.Execute[api.Empty](ctx, admin, WriteUser{})
	assert.ErrorIs(t, err, api.ErrConfiguration)
}
