// Package oidc implements the browser based login of the OIDC auth method.
//
// The flow takes two steps. Start asks the server for an authorization URL
// and opens a local listener for the redirect. Once the user has visited
// the URL, Callback.Login exchanges the redirect parameters for a token.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stephnangue/vaultclient/api"
)

const (
	DefaultMountPath = "oidc"
	DefaultPort      = 8250

	listenIP     = "127.0.0.1"
	hostname     = "localhost"
	callbackPath = "/oidc/callback"

	shutdownTimeout = 5 * time.Second
)

var (
	ErrInvalidMountPath = errors.New("invalid auth method mount path specified")
	ErrNoAuthURL        = errors.New("response carried no auth_url")
)

type OIDCAuth struct {
	mountPath string
	role      string
	port      int
}

type LoginOption func(a *OIDCAuth) error

// New creates an OIDCAuth. Without WithRole the server picks its default
// role.
func New(opts ...LoginOption) (*OIDCAuth, error) {
	a := &OIDCAuth{
		mountPath: DefaultMountPath,
		port:      DefaultPort,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.mountPath == "" {
		return nil, ErrInvalidMountPath
	}
	return a, nil
}

// WithMountPath sets the mount path of the auth method.
func WithMountPath(mountPath string) LoginOption {
	return func(a *OIDCAuth) error {
		a.mountPath = strings.Trim(mountPath, "/")
		return nil
	}
}

// WithRole sets the role to log in against.
func WithRole(role string) LoginOption {
	return func(a *OIDCAuth) error {
		a.role = role
		return nil
	}
}

// WithPort sets the local port the redirect is received on. Port 0 picks a
// free port.
func WithPort(port int) LoginOption {
	return func(a *OIDCAuth) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %d", port)
		}
		a.port = port
		return nil
	}
}

// CallbackParams are the values the authorization server sends back on the
// redirect. Missing values are empty strings.
type CallbackParams struct {
	Code  string
	State string
	Nonce string
}

// Callback is a pending login. URL must be visited by the end user; Login
// then blocks until the redirect arrives.
type Callback struct {
	URL string

	mountPath string
	listener  net.Listener
	server    *http.Server
	params    chan CallbackParams
	closeOnce sync.Once
}

var _ api.AuthMethod = &Callback{}

// Start requests an authorization URL and starts listening for the
// redirect. The listener is closed by Login or Close.
func (a *OIDCAuth) Start(ctx context.Context, client *api.Client) (*Callback, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(listenIP, strconv.Itoa(a.port)))
	if err != nil {
		return nil, api.NewError(api.KindConfiguration, "oidc start", fmt.Errorf("failed to listen for callback: %w", err))
	}

	port := ln.Addr().(*net.TCPAddr).Port
	redirect := (&url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(hostname, strconv.Itoa(port)),
		Path:   callbackPath,
	}).String()

	authURL, err := api.Execute[string](ctx, client, authURLEndpoint{
		mountPath:   a.mountPath,
		Role:        a.role,
		RedirectURI: redirect,
	})
	if err != nil {
		ln.Close()
		return nil, err
	}

	cb := &Callback{
		URL:       authURL,
		mountPath: a.mountPath,
		listener:  ln,
		params:    make(chan CallbackParams, 1),
	}
	cb.server = &http.Server{Handler: http.HandlerFunc(cb.handle)}
	go cb.server.Serve(ln)

	return cb, nil
}

func (cb *Callback) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := CallbackParams{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Nonce: q.Get("nonce"),
	}

	select {
	case cb.params <- params:
	default:
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Success!"))
}

// Wait blocks until the redirect arrives or ctx is done.
func (cb *Callback) Wait(ctx context.Context) (CallbackParams, error) {
	select {
	case p := <-cb.params:
		return p, nil
	case <-ctx.Done():
		return CallbackParams{}, ctx.Err()
	}
}

// Close stops the callback listener, letting an in-flight redirect finish
// for up to shutdownTimeout.
func (cb *Callback) Close() error {
	var err error
	cb.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = cb.server.Shutdown(ctx)
	})
	return err
}

// Login waits for the redirect, then exchanges its parameters for a token.
func (cb *Callback) Login(ctx context.Context, client *api.Client) (*api.AuthInfo, error) {
	defer cb.Close()

	params, err := cb.Wait(ctx)
	if err != nil {
		return nil, api.NewError(api.KindTransport, "oidc callback", err)
	}

	return api.Execute[*api.AuthInfo](ctx, client, callbackEndpoint{
		mountPath: cb.mountPath,
		params:    params,
	})
}

type authURLEndpoint struct {
	mountPath string

	Role        string `json:"role,omitempty"`
	RedirectURI string `json:"redirect_uri"`
}

func (e authURLEndpoint) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: "auth/" + e.mountPath + "/oidc/auth_url", Body: e}
}

func (authURLEndpoint) Decode(r *api.Resource) (string, error) {
	out, err := api.DecodeData[struct {
		AuthURL string `json:"auth_url"`
	}](r)
	if err != nil {
		return "", err
	}
	if out.AuthURL == "" {
		return "", ErrNoAuthURL
	}
	return out.AuthURL, nil
}

type callbackEndpoint struct {
	mountPath string
	params    CallbackParams
}

func (e callbackEndpoint) Operation() api.Operation {
	return api.Operation{
		Method: http.MethodGet,
		Path:   "auth/" + e.mountPath + "/oidc/callback",
		Params: url.Values{
			"state": {e.params.State},
			"nonce": {e.params.Nonce},
			"code":  {e.params.Code},
		},
	}
}

func (callbackEndpoint) Decode(r *api.Resource) (*api.AuthInfo, error) {
	return api.DecodeAuth(r)
}
