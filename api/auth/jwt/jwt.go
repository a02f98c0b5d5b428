package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"

	"github.com/stephnangue/vaultclient/api"
)

// DefaultMountPath specifies the default mount path for the JWT
// Authentication Method.
const DefaultMountPath = "jwt"

// ErrNoToken is an error, which is returned when [JWTAuth] is configured
// with an empty token.
var ErrNoToken = errors.New("no token specified")

// ErrInvalidMountPath is an error, which is returned when configuring [JWTAuth]
// to use an invalid mount path for an Authentication Method.
var ErrInvalidMountPath = errors.New("invalid auth method mount path specified")

// ErrNoRoleName is an error, which is returned when no role name was specified
// when creating a [JWTAuth].
var ErrNoRoleName = errors.New("no role name specified")

type JWTAuth struct {
	// roleName specifies the name of the role to use.
	roleName string

	// mountPath specifies the mount path for the JWT Authentication Method.
	mountPath string

	// token specifies the JWT token which will be used for authenticating
	// against the Authentication Method endpoint.
	token string

	// tokenPath specifies a path from which to read the JWT token.
	tokenPath string

	// tokenSource yields the JWT at login time, e.g. a refreshed id token.
	tokenSource oauth2.TokenSource
}

var _ api.AuthMethod = &JWTAuth{}

// LoginOption configures a JWTAuth.
type LoginOption func(a *JWTAuth) error

// New creates a JWTAuth for roleName. Exactly one token source must be
// given through WithToken, WithTokenFile or WithTokenSource.
func New(roleName string, opts ...LoginOption) (*JWTAuth, error) {
	if roleName == "" {
		return nil, ErrNoRoleName
	}

	a := &JWTAuth{
		roleName:  roleName,
		mountPath: DefaultMountPath,
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if a.mountPath == "" {
		return nil, ErrInvalidMountPath
	}
	if a.token == "" && a.tokenPath == "" && a.tokenSource == nil {
		return nil, ErrNoToken
	}

	return a, nil
}

// WithToken uses the given JWT. Surrounding whitespace is removed.
func WithToken(token string) LoginOption {
	return func(a *JWTAuth) error {
		a.token = token
		return nil
	}
}

// WithTokenFile reads the JWT from path at every login, which suits
// projected service account tokens that rotate on disk.
func WithTokenFile(path string) LoginOption {
	return func(a *JWTAuth) error {
		a.tokenPath = path
		return nil
	}
}

// WithTokenSource asks ts for a token at every login. The id_token extra of
// the token is used when present, the access token otherwise.
func WithTokenSource(ts oauth2.TokenSource) LoginOption {
	return func(a *JWTAuth) error {
		a.tokenSource = ts
		return nil
	}
}

// WithMountPath sets the mount path of the auth method.
func WithMountPath(mountPath string) LoginOption {
	return func(a *JWTAuth) error {
		a.mountPath = strings.Trim(mountPath, "/")
		return nil
	}
}

// Login exchanges the JWT for a token. It does not set the token on the
// client; use client.Auth().Login for that.
func (a *JWTAuth) Login(ctx context.Context, client *api.Client) (*api.AuthInfo, error) {
	jwt, err := a.readToken()
	if err != nil {
		return nil, api.NewError(api.KindConfiguration, "jwt login", err)
	}

	return api.Execute[*api.AuthInfo](ctx, client, loginEndpoint{
		mountPath: a.mountPath,
		role:      a.roleName,
		jwt:       jwt,
	})
}

func (a *JWTAuth) readToken() (string, error) {
	var token string
	switch {
	case a.token != "":
		token = a.token
	case a.tokenPath != "":
		b, err := os.ReadFile(a.tokenPath)
		if err != nil {
			return "", fmt.Errorf("unable to read token file: %w", err)
		}
		token = string(b)
	case a.tokenSource != nil:
		t, err := a.tokenSource.Token()
		if err != nil {
			return "", fmt.Errorf("unable to obtain token: %w", err)
		}
		token = t.AccessToken
		if id, ok := t.Extra("id_token").(string); ok && id != "" {
			token = id
		}
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

type loginEndpoint struct {
	mountPath string
	role      string
	jwt       string
}

func (e loginEndpoint) Operation() api.Operation {
	return api.Operation{
		Method: http.MethodPut,
		Path:   "auth/" + e.mountPath + "/login",
		Body: map[string]string{
			"jwt":  e.jwt,
			"role": e.role,
		},
	}
}

func (loginEndpoint) Decode(r *api.Resource) (*api.AuthInfo, error) {
	return api.DecodeAuth(r)
}
