package sys

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/internal/testserver"
)

func setup(t *testing.T) (*testserver.Server, *api.Client) {
	t.Helper()
	srv := testserver.New(t)
	client, err := api.NewClient(&api.Config{Address: srv.URL, Token: srv.RootToken})
	require.NoError(t, err)
	return srv, client
}

func TestMounts(t *testing.T) {
	srv, client := setup(t)
	ctx := context.Background()

	mounts, err := api.Execute[map[string]*MountOutput](ctx, client, ListMounts{})
	require.NoError(t, err)
	require.Contains(t, mounts, "secret/")
	require.Contains(t, mounts, "kv/")
	assert.Equal(t, "kv", mounts["kv/"].Type)
	assert.Equal(t, "2", mounts["kv/"].Options["version"])

	_, err = api.Execute[api.Empty](ctx, client, EnableMount{
		Path: "/team-a/",
		Input: MountInput{
			Type:        "kv",
			Description: "team a secrets",
			Options:     map[string]string{"version": "2"},
			Config:      MountConfigInput{DefaultLeaseTTL: "1h", MaxLeaseTTL: "24h"},
		},
	})
	require.NoError(t, err)

	req, ok := srv.LastRequest("sys/mounts/team-a")
	require.True(t, ok)
	assert.JSONEq(t, `{
		"type": "kv",
		"description": "team a secrets",
		"options": {"version": "2"},
		"config": {"default_lease_ttl": "1h", "max_lease_ttl": "24h"}
	}`, string(req.Body))

	mount, err := api.Execute[*MountOutput](ctx, client, ReadMount{Path: "team-a"})
	require.NoError(t, err)
	assert.Equal(t, "team a secrets", mount.Description)
	assert.Equal(t, time.Hour, mount.Config.DefaultLeaseTTL)
	assert.Equal(t, 24*time.Hour, mount.Config.MaxLeaseTTL)
	assert.NotEmpty(t, mount.Accessor)

	_, err = api.Execute[api.Empty](ctx, client, EnableMount{Path: "team-a", Input: MountInput{Type: "kv"}})
	require.Error(t, err)
	var ce *api.ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusBadRequest, ce.StatusCode)
	assert.Equal(t, []string{"path is already in use at team-a/"}, ce.Errors)

	_, err = api.Execute[api.Empty](ctx, client, TuneMount{Path: "team-a", Config: MountConfigInput{MaxLeaseTTL: "48h"}})
	require.NoError(t, err)

	tune, err := api.Execute[*MountConfigOutput](ctx, client, ReadMountTune{Path: "team-a"})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, tune.DefaultLeaseTTL)
	assert.Equal(t, 48*time.Hour, tune.MaxLeaseTTL)

	_, err = api.Execute[api.Empty](ctx, client, DisableMount{Path: "team-a"})
	require.NoError(t, err)

	mounts, err = api.Execute[map[string]*MountOutput](ctx, client, ListMounts{})
	require.NoError(t, err)
	assert.NotContains(t, mounts, "team-a/")
}

func TestMounts_Validation(t *testing.T) {
	srv, client := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
	}{
		{"enable without path", func() error {
			_, err := api.Execute[api.Empty](ctx, client, EnableMount{Input: MountInput{Type: "kv"}})
			return err
		}},
		{"enable without type", func() error {
			_, err := api.Execute[api.Empty](ctx, client, EnableMount{Path: "x"})
			return err
		}},
		{"disable without path", func() error {
			_, err := api.Execute[api.Empty](ctx, client, DisableMount{Path: "/"})
			return err
		}},
		{"tune without path", func() error {
			_, err := api.Execute[api.Empty](ctx, client, TuneMount{})
			return err
		}},
		{"auth without type", func() error {
			_, err := api.Execute[api.Empty](ctx, client, EnableAuth{Path: "ldap"})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), api.ErrConfiguration)
		})
	}
	assert.Empty(t, srv.Requests())
}

func TestAuthMounts(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()

	_, err := api.Execute[api.Empty](ctx, client, EnableAuth{
		Path:  "corp-users",
		Input: AuthMountInput{Type: "userpass", Description: "corporate"},
	})
	require.NoError(t, err)

	auths, err := api.Execute[map[string]*AuthMountOutput](ctx, client, ListAuth{})
	require.NoError(t, err)
	require.Contains(t, auths, "corp-users/")
	assert.Equal(t, "userpass", auths["corp-users/"].Type)
	assert.Equal(t, "corporate", auths["corp-users/"].Description)
	assert.Contains(t, auths, "token/")

	_, err = api.Execute[api.Empty](ctx, client, DisableAuth{Path: "corp-users"})
	require.NoError(t, err)

	auths, err = api.Execute[map[string]*AuthMountOutput](ctx, client, ListAuth{})
	require.NoError(t, err)
	assert.NotContains(t, auths, "corp-users/")
}

func TestPolicies(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()

	const hcl = `path "secret/*" { capabilities = ["read", "list"] }`

	_, err := api.Execute[api.Empty](ctx, client, WritePolicy{Name: "reader", Policy: hcl})
	require.NoError(t, err)

	policy, err := api.Execute[*PolicyOutput](ctx, client, ReadPolicy{Name: "reader"})
	require.NoError(t, err)
	assert.Equal(t, "reader", policy.Name)
	assert.Equal(t, hcl, policy.Policy)

	names, err := api.Execute[[]string](ctx, client, ListPolicies{})
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "reader", "root"}, names)

	_, err = api.Execute[api.Empty](ctx, client, DeletePolicy{Name: "reader"})
	require.NoError(t, err)

	_, err = api.Execute[*PolicyOutput](ctx, client, ReadPolicy{Name: "reader"})
	assert.True(t, api.IsNotFound(err))

	_, err = api.Execute[api.Empty](ctx, client, DeletePolicy{Name: "root"})
	assert.ErrorIs(t, err, api.ErrAPI)

	_, err = api.Execute[api.Empty](ctx, client, WritePolicy{Name: "empty"})
	assert.ErrorIs(t, err, api.ErrConfiguration)
}

func TestHealth(t *testing.T) {
	srv, _ := setup(t)

	// Health and seal status need no token.
	client, err := api.NewClient(&api.Config{Address: srv.URL})
	require.NoError(t, err)
	ctx := context.Background()

	health, err := api.Execute[*HealthResponse](ctx, client, Health{StandbyOK: true})
	require.NoError(t, err)
	assert.True(t, health.Initialized)
	assert.False(t, health.Sealed)
	assert.Equal(t, "1.15.0-test", health.Version)
	assert.NotZero(t, health.ServerTimeUTC)

	req, _ := srv.LastRequest("sys/health")
	assert.Equal(t, "true", req.Query.Get("standbyok"))
	assert.Empty(t, req.Query.Get("perfstandbyok"))

	status, err := api.Execute[*SealStatusResponse](ctx, client, SealStatus{})
	require.NoError(t, err)
	assert.Equal(t, "shamir", status.Type)
	assert.Equal(t, 1, status.T)
	assert.False(t, status.Sealed)
}
