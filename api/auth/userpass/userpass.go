// Package userpass implements login through the username & password auth
// method, and the endpoints that manage its users.
package userpass

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/stephnangue/vaultclient/api"
)

// DefaultMountPath is the mount path used when none is set.
const DefaultMountPath = "userpass"

var (
	ErrNoUsername       = errors.New("no user name provided for login")
	ErrNoPassword       = errors.New("no password provided for login")
	ErrInvalidMountPath = errors.New("invalid auth method mount path specified")
)

type UserpassAuth struct {
	mountPath    string
	username     string
	password     string
	passwordFile string
	passwordEnv  string
}

var _ api.AuthMethod = &UserpassAuth{}

// Password says where the password comes from. Exactly one field should be
// set.
type Password struct {
	FromFile   string
	FromEnv    string
	FromString string
}

type LoginOption func(a *UserpassAuth) error

// New creates a UserpassAuth for username.
func New(username string, password *Password, opts ...LoginOption) (*UserpassAuth, error) {
	if username == "" {
		return nil, ErrNoUsername
	}
	if password == nil {
		return nil, ErrNoPassword
	}

	a := &UserpassAuth{
		mountPath:    DefaultMountPath,
		username:     username,
		password:     password.FromString,
		passwordFile: password.FromFile,
		passwordEnv:  password.FromEnv,
	}
	if a.password == "" && a.passwordFile == "" && a.passwordEnv == "" {
		return nil, ErrNoPassword
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
	return func(a *UserpassAuth) error {
		a.mountPath = strings.Trim(mountPath, "/")
		return nil
	}
}

// Login exchanges the username and password for a token.
func (a *UserpassAuth) Login(ctx context.Context, client *api.Client) (*api.AuthInfo, error) {
	password, err := a.readPassword()
	if err != nil {
		return nil, api.NewError(api.KindConfiguration, "userpass login", err)
	}

	return api.Execute[*api.AuthInfo](ctx, client, loginEndpoint{
		mountPath: a.mountPath,
		username:  a.username,
		password:  password,
	})
}

func (a *UserpassAuth) readPassword() (string, error) {
	switch {
	case a.passwordFile != "":
		b, err := os.ReadFile(a.passwordFile)
		if err != nil {
			return "", fmt.Errorf("unable to read password from file: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	case a.passwordEnv != "":
		p := os.Getenv(a.passwordEnv)
		if p == "" {
			return "", fmt.Errorf("password was specified with an environment variable %q with an empty value", a.passwordEnv)
		}
		return p, nil
	default:
		return a.password, nil
	}
}

type loginEndpoint struct {
	mountPath string
	username  string
	password  string
}

func (e loginEndpoint) Operation() api.Operation {
	return api.Operation{
		Method: http.MethodPost,
		Path:   "auth/" + e.mountPath + "/login/" + e.username,
		Body:   map[string]string{"password": e.password},
	}
}

func (loginEndpoint) Decode(r *api.Resource) (*api.AuthInfo, error) {
	return api.DecodeAuth(r)
}

func userPath(mount, username string) string {
	mount = strings.Trim(mount, "/")
	if mount == "" {
		mount = DefaultMountPath
	}
	return "auth/" + mount + "/users/" + username
}

// WriteUser creates or updates a user.
type WriteUser struct {
	Mount         string
	Username      string
	Password      string
	TokenPolicies []string
	TokenTTL      string
}

func (e WriteUser) Validate() error {
	if e.Username == "" {
		return ErrNoUsername
	}
	return nil
}

func (e WriteUser) Operation() api.Operation {
	body := map[string]any{}
	if e.Password != "" {
		body["password"] = e.Password
	}
	if len(e.TokenPolicies) > 0 {
		body["token_policies"] = e.TokenPolicies
	}
	if e.TokenTTL != "" {
		body["token_ttl"] = e.TokenTTL
	}
	return api.Operation{Method: http.MethodPost, Path: userPath(e.Mount, e.Username), Body: body}
}

func (WriteUser) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// DeleteUser removes a user.
type DeleteUser struct {
	Mount    string
	Username string
}

func (e DeleteUser) Validate() error {
	if e.Username == "" {
		return ErrNoUsername
	}
	return nil
}

func (e DeleteUser) Operation() api.Operation {
	return api.Operation{Method: http.MethodDelete, Path: userPath(e.Mount, e.Username)}
}

func (DeleteUser) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }
