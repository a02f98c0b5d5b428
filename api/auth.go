package api

import (
	"context"
	"errors"

	"github.com/stephnangue/vaultclient/logger"
)

// Auth is used to perform authentication related operations.
type Auth struct {
	c *Client
}

// AuthMethod is implemented by every login method. Login executes the
// method's login endpoint with the given client and returns the issued
// credentials. It must not modify the client's token itself.
type AuthMethod interface {
	Login(ctx context.Context, client *Client) (*AuthInfo, error)
}

// Auth is used to return the client for auth-backend API calls.
func (c *Client) Auth() *Auth {
	return &Auth{c: c}
}

// Login runs the auth method and, on success, replaces the client's token
// with the issued one in a single write. On any failure the previous token
// is left untouched.
func (a *Auth) Login(ctx context.Context, authMethod AuthMethod) (*AuthInfo, error) {
	if authMethod == nil {
		return nil, configError("login", "no auth method provided for login")
	}

	info, err := authMethod.Login(ctx, a.c)
	if err != nil {
		return nil, asClientError(KindConfiguration, "login", err)
	}
	if info == nil || info.ClientToken == "" {
		return nil, &ClientError{
			Kind: KindSerialization,
			Op:   "login",
			Err:  errors.New("login response carried no client token"),
		}
	}

	a.c.SetToken(info.ClientToken)
	a.c.settings.logger.Debug("login succeeded",
		logger.String("accessor", info.Accessor),
		logger.Strings("policies", info.Policies),
	)

	return info, nil
}
