package ssh

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/vaultclient/api"
)

const caPublicKey = "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABAQC7 vault-ssh-ca"

func newServer(t *testing.T, r chi.Router) *api.Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client, err := api.NewClient(&api.Config{Address: srv.URL, Token: "root"})
	require.NoError(t, err)
	return client
}

func decode(t *testing.T, r *http.Request) map[string]any {
	b, err := io.ReadAll(r.Body)
	assert.NoError(t, err)
	var out map[string]any
	assert.NoError(t, json.Unmarshal(b, &out))
	return out
}

func respond(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func TestSignKey(t *testing.T) {
	var got map[string]any
	r := chi.NewRouter()
	r.Post("/v1/ssh-client-signer/sign/{role}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ops", chi.URLParam(r, "role"))
		got = decode(t, r)
		respond(w, map[string]any{
			"serial_number": "c73f26eb2f8a33a1",
			"signed_key":    "ssh-rsa-cert-v01@openssh.com AAAA...\n",
		})
	})
	client := newServer(t, r)

	signed, err := api.Execute[*SignedKey](context.Background(), client, SignKey{
		Mount: "ssh-client-signer",
		Role:  "ops",
		Request: SignRequest{
			PublicKey:       "ssh-ed25519 AAAAC3Nz user@host",
			ValidPrincipals: "ubuntu",
			Extensions:      map[string]string{"permit-pty": ""},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "c73f26eb2f8a33a1", signed.SerialNumber)
	assert.Contains(t, signed.SignedKey, "cert-v01")

	assert.Equal(t, map[string]any{
		"public_key":       "ssh-ed25519 AAAAC3Nz user@host",
		"valid_principals": "ubuntu",
		"extensions":       map[string]any{"permit-pty": ""},
	}, got)

	_, err = api.Execute[*SignedKey](context.Background(), client, SignKey{Role: "ops", Request: SignRequest{PublicKey: "  "}})
	assert.ErrorIs(t, err, api.ErrConfiguration)
}

func TestReadPublicKey(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/v1/ssh/public_key", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(caPublicKey + "\n"))
	})
	r.Get("/v1/ssh-json/public_key", func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]any{"public_key": caPublicKey})
	})
	r.Get("/v1/ssh-empty/public_key", func(w http.ResponseWriter, r *http.Request) {})
	client := newServer(t, r)
	ctx := context.Background()

	key, err := api.Execute[string](ctx, client, ReadPublicKey{})
	require.NoError(t, err)
	assert.Equal(t, caPublicKey, key)

	_, err = api.Execute[string](ctx, client, ReadPublicKey{Mount: "ssh-json"})
	assert.ErrorIs(t, err, api.ErrSerialization)

	_, err = api.Execute[string](ctx, client, ReadPublicKey{Mount: "ssh-empty"})
	assert.ErrorIs(t, err, api.ErrSerialization)
}

func TestRoles(t *testing.T) {
	roles := map[string]map[string]any{}
	r := chi.NewRouter()
	r.Route("/v1/ssh/roles/{name}", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			roles[chi.URLParam(r, "name")] = decode(t, r)
			w.WriteHeader(http.StatusNoContent)
		})
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			role, ok := roles[chi.URLParam(r, "name")]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"errors":[]}`))
				return
			}
			role["ttl"] = 1800
			role["max_ttl"] = "0"
			respond(w, role)
		})
		r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			delete(roles, chi.URLParam(r, "name"))
			w.WriteHeader(http.StatusNoContent)
		})
	})
	client := newServer(t, r)
	ctx := context.Background()

	_, err := api.Execute[api.Empty](ctx, client, WriteRole{Name: "ops", Input: RoleInput{
		KeyType:               "ca",
		DefaultUser:           "ubuntu",
		AllowedUsers:          "ubuntu,admin",
		AllowUserCertificates: true,
		TTL:                   "30m",
		DefaultExtensions:     map[string]string{"permit-pty": ""},
	}})
	require.NoError(t, err)

	role, err := api.Execute[*Role](ctx, client, ReadRole{Name: "ops"})
	require.NoError(t, err)
	assert.Equal(t, "ca", role.KeyType)
	assert.Equal(t, "ubuntu,admin", role.AllowedUsers)
	assert.True(t, role.AllowUserCertificates)
	assert.Equal(t, 30*time.Minute, role.TTL)
	assert.Zero(t, role.MaxTTL)
	assert.Equal(t, map[string]string{"permit-pty": ""}, role.DefaultExtensions)

	_, err = api.Execute[api.Empty](ctx, client, DeleteRole{Name: "ops"})
	require.NoError(t, err)
	_, err = api.Execute[*Role](ctx, client, ReadRole{Name: "ops"})
	assert.True(t, api.IsNotFound(err))

	_, err = api.Execute[api.Empty](ctx, client, WriteRole{Name: "bad", Input: RoleInput{KeyType: "dynamic"}})
	assert.ErrorIs(t, err, api.ErrConfiguration)
}

func TestGenerateCredential(t *testing.T) {
	var got map[string]any
	r := chi.NewRouter()
	r.Post("/v1/ssh/creds/{role}", func(w http.ResponseWriter, r *http.Request) {
		got = decode(t, r)
		respond(w, map[string]any{
			"key":      "2f7e25a2-24c9-4b7b-0d35-27d5e5203a5c",
			"key_type": "otp",
			"username": "ubuntu",
			"ip":       "10.0.1.4",
			"port":     22,
		})
	})
	client := newServer(t, r)

	cred, err := api.Execute[*Credential](context.Background(), client, GenerateCredential{
		Role:     "otp",
		IP:       "10.0.1.4",
		Username: "ubuntu",
	})
	require.NoError(t, err)
	assert.Equal(t, "otp", cred.KeyType)
	assert.Equal(t, 22, cred.Port)
	assert.Equal(t, map[string]any{"ip": "10.0.1.4", "username": "ubuntu"}, got)

	_, err = api.Execute[*Credential](context.Background(), client, GenerateCredential{Role: "otp"})
	assert.ErrorIs(t, err, api.ErrConfiguration)
}
