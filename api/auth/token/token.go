// Package token implements login with an existing token and the endpoints
// of the token auth method.
package token

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stephnangue/vaultclient/api"
)

var ErrNoToken = errors.New("no token provided for login")

// TokenAuth logs in with an existing token. The token is checked with a
// self lookup made with that token, so a bad or expired token fails the
// login and leaves the client's current token in place.
type TokenAuth struct {
	token string
}

var _ api.AuthMethod = &TokenAuth{}

// New creates a TokenAuth for token.
func New(token string) (*TokenAuth, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}
	return &TokenAuth{token: token}, nil
}

func (a *TokenAuth) Login(ctx context.Context, client *api.Client) (*api.AuthInfo, error) {
	info, err := api.Execute[*Info](ctx, client, LookupSelf{}, api.WithToken(a.token))
	if err != nil {
		return nil, err
	}
	auth := info.AuthInfo()
	if auth.ClientToken == "" {
		auth.ClientToken = a.token
	}
	return auth, nil
}

// Info is the result of a token lookup.
type Info struct {
	ID             string            `json:"id"`
	Accessor       string            `json:"accessor"`
	Policies       []string          `json:"policies"`
	Meta           map[string]string `json:"meta"`
	TTL            time.Duration     `json:"ttl"`
	CreationTTL    time.Duration     `json:"creation_ttl"`
	ExplicitMaxTTL time.Duration     `json:"explicit_max_ttl"`
	Renewable      bool              `json:"renewable"`
	EntityID       string            `json:"entity_id"`
	Type           string            `json:"type"`
	Orphan         bool              `json:"orphan"`
	NumUses        int               `json:"num_uses"`
	Path           string            `json:"path"`
	DisplayName    string            `json:"display_name"`
}

// AuthInfo converts the lookup result into the auth block a login returns.
func (i *Info) AuthInfo() *api.AuthInfo {
	return &api.AuthInfo{
		ClientToken:   i.ID,
		Accessor:      i.Accessor,
		Policies:      i.Policies,
		TokenPolicies: i.Policies,
		Metadata:      i.Meta,
		LeaseDuration: i.TTL,
		Renewable:     i.Renewable,
		EntityID:      i.EntityID,
		TokenType:     i.Type,
		Orphan:        i.Orphan,
	}
}

func decodeInfo(r *api.Resource) (*Info, error) {
	out, err := api.DecodeMapData[Info](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LookupSelf returns information about the token used for the call.
type LookupSelf struct{}

func (LookupSelf) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: "auth/token/lookup-self"}
}

func (LookupSelf) Decode(r *api.Resource) (*Info, error) { return decodeInfo(r) }

// Lookup returns information about Token.
type Lookup struct {
	Token string
}

func (e Lookup) Validate() error {
	if e.Token == "" {
		return ErrNoToken
	}
	return nil
}

func (e Lookup) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: "auth/token/lookup", Body: map[string]string{"token": e.Token}}
}

func (Lookup) Decode(r *api.Resource) (*Info, error) { return decodeInfo(r) }

// RenewSelf extends the lease of the token used for the call. A zero
// Increment lets the server pick the default.
type RenewSelf struct {
	Increment time.Duration
}

func (e RenewSelf) Operation() api.Operation {
	op := api.Operation{Method: http.MethodPost, Path: "auth/token/renew-self", Body: map[string]any{}}
	if e.Increment > 0 {
		op.Body = map[string]any{"increment": int64(e.Increment / time.Second)}
	}
	return op
}

func (RenewSelf) Decode(r *api.Resource) (*api.AuthInfo, error) { return api.DecodeAuth(r) }

// RevokeSelf revokes the token used for the call.
type RevokeSelf struct{}

func (RevokeSelf) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: "auth/token/revoke-self"}
}

func (RevokeSelf) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// CreateRequest describes a child token.
type CreateRequest struct {
	Policies        []string          `json:"policies,omitempty"`
	Meta            map[string]string `json:"meta,omitempty"`
	NoParent        bool              `json:"no_parent,omitempty"`
	NoDefaultPolicy bool              `json:"no_default_policy,omitempty"`
	TTL             string            `json:"ttl,omitempty"`
	Type            string            `json:"type,omitempty"`
	ExplicitMaxTTL  string            `json:"explicit_max_ttl,omitempty"`
	DisplayName     string            `json:"display_name,omitempty"`
	NumUses         int               `json:"num_uses,omitempty"`
	Renewable       *bool             `json:"renewable,omitempty"`
}

// Create issues a new token. Executed through api.Wrap, the token can be
// handed to another process as a wrapping token.
type Create struct {
	Request CreateRequest
}

func (e Create) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: "auth/token/create", Body: e.Request}
}

func (Create) Decode(r *api.Resource) (*api.AuthInfo, error) { return api.DecodeAuth(r) }
