// Package approle implements login through the AppRole auth method.
package approle

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
const DefaultMountPath = "approle"

var (
	ErrNoRoleID         = errors.New("no role ID provided for login")
	ErrNoSecretID       = errors.New("no secret ID provided for login")
	ErrInvalidMountPath = errors.New("invalid auth method mount path specified")
)

type AppRoleAuth struct {
	mountPath      string
	roleID         string
	secretID       string
	secretIDFile   string
	secretIDEnv    string
	unwrapSecretID bool
}

var _ api.AuthMethod = &AppRoleAuth{}

// SecretID says where the secret ID comes from. Exactly one field should
// be set.
type SecretID struct {
	// FromFile is the path to a file holding the secret ID. The file is read
	// at every login.
	FromFile string

	// FromEnv names an environment variable holding the secret ID.
	FromEnv string

	// FromString is the secret ID itself.
	FromString string
}

type LoginOption func(a *AppRoleAuth) error

// New creates an AppRoleAuth for roleID.
func New(roleID string, secretID *SecretID, opts ...LoginOption) (*AppRoleAuth, error) {
	if roleID == "" {
		return nil, ErrNoRoleID
	}
	if secretID == nil {
		return nil, ErrNoSecretID
	}

	a := &AppRoleAuth{
		mountPath:    DefaultMountPath,
		roleID:       roleID,
		secretID:     secretID.FromString,
		secretIDFile: secretID.FromFile,
		secretIDEnv:  secretID.FromEnv,
	}

	set := 0
	for _, v := range []string{a.secretID, a.secretIDFile, a.secretIDEnv} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one secret ID source must be set")
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
	return func(a *AppRoleAuth) error {
		a.mountPath = strings.Trim(mountPath, "/")
		return nil
	}
}

// WithWrappingToken treats the secret ID as a response-wrapping token around
// a generated secret ID. Login first unwraps it, then logs in with the
// secret ID it held.
func WithWrappingToken() LoginOption {
	return func(a *AppRoleAuth) error {
		a.unwrapSecretID = true
		return nil
	}
}

// Login exchanges the role ID and secret ID for a token. When the secret ID
// is wrapped this takes two calls: unwrap, then login.
func (a *AppRoleAuth) Login(ctx context.Context, client *api.Client) (*api.AuthInfo, error) {
	secretID, err := a.readSecretID()
	if err != nil {
		return nil, api.NewError(api.KindConfiguration, "approle login", err)
	}

	if a.unwrapSecretID {
		generated, err := api.UnwrapToken[*SecretIDResponse](ctx, client, secretID, GenerateSecretID{})
		if err != nil {
			return nil, err
		}
		secretID = generated.SecretID
	}

	return api.Execute[*api.AuthInfo](ctx, client, loginEndpoint{
		mountPath: a.mountPath,
		roleID:    a.roleID,
		secretID:  secretID,
	})
}

func (a *AppRoleAuth) readSecretID() (string, error) {
	var secretID string
	switch {
	case a.secretIDFile != "":
		b, err := os.ReadFile(a.secretIDFile)
		if err != nil {
			return "", fmt.Errorf("unable to read secret ID from file: %w", err)
		}
		secretID = string(b)
	case a.secretIDEnv != "":
		secretID = os.Getenv(a.secretIDEnv)
		if secretID == "" {
			return "", fmt.Errorf("secret ID was specified with an environment variable %q with an empty value", a.secretIDEnv)
		}
	default:
		secretID = a.secretID
	}

	secretID = strings.TrimSpace(secretID)
	if secretID == "" {
		return "", ErrNoSecretID
	}
	return secretID, nil
}

type loginEndpoint struct {
	mountPath string
	roleID    string
	secretID  string
}

func (e loginEndpoint) Operation() api.Operation {
	return api.Operation{
		Method: http.MethodPost,
		Path:   "auth/" + e.mountPath + "/login",
		Body: map[string]string{
			"role_id":   e.roleID,
			"secret_id": e.secretID,
		},
	}
}

func (loginEndpoint) Decode(r *api.Resource) (*api.AuthInfo, error) {
	return api.DecodeAuth(r)
}
