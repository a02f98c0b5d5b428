package login

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/api/auth/approle"
	"github.com/stephnangue/vaultclient/api/auth/aws"
	"github.com/stephnangue/vaultclient/api/auth/jwt"
	"github.com/stephnangue/vaultclient/api/auth/oidc"
	"github.com/stephnangue/vaultclient/api/auth/token"
	"github.com/stephnangue/vaultclient/api/auth/userpass"
)

type TokenHandler struct{}

func (TokenHandler) Method(_ *cobra.Command, _ *api.Client, m map[string]string) (api.AuthMethod, error) {
	tok, err := requiredArg(m, "token")
	if err != nil {
		return nil, err
	}
	return token.New(tok)
}

type UserpassHandler struct{}

func (UserpassHandler) Method(_ *cobra.Command, _ *api.Client, m map[string]string) (api.AuthMethod, error) {
	username, err := requiredArg(m, "username")
	if err != nil {
		return nil, err
	}

	password := &userpass.Password{FromString: m["password"]}
	if file := m["password_file"]; file != "" {
		password = &userpass.Password{FromFile: file}
	}

	var opts []userpass.LoginOption
	if mount := m["mount"]; mount != "" {
		opts = append(opts, userpass.WithMountPath(mount))
	}
	return userpass.New(username, password, opts...)
}

type AppRoleHandler struct{}

func (AppRoleHandler) Method(_ *cobra.Command, _ *api.Client, m map[string]string) (api.AuthMethod, error) {
	roleID, err := requiredArg(m, "role_id")
	if err != nil {
		return nil, err
	}

	secretID := &approle.SecretID{FromString: m["secret_id"]}
	if file := m["secret_id_file"]; file != "" {
		secretID = &approle.SecretID{FromFile: file}
	}

	var opts []approle.LoginOption
	if mount := m["mount"]; mount != "" {
		opts = append(opts, approle.WithMountPath(mount))
	}
	if wrapped, _ := strconv.ParseBool(m["wrapped"]); wrapped {
		opts = append(opts, approle.WithWrappingToken())
	}
	return approle.New(roleID, secretID, opts...)
}

type JWTHandler struct{}

func (JWTHandler) Method(_ *cobra.Command, _ *api.Client, m map[string]string) (api.AuthMethod, error) {
	role, err := requiredArg(m, "role")
	if err != nil {
		return nil, err
	}

	var opts []jwt.LoginOption
	switch {
	case m["jwt"] != "":
		opts = append(opts, jwt.WithToken(m["jwt"]))
	case m["jwt_file"] != "":
		opts = append(opts, jwt.WithTokenFile(m["jwt_file"]))
	default:
		return nil, fmt.Errorf("either \"jwt\" or \"jwt_file\" is required")
	}
	if mount := m["mount"]; mount != "" {
		opts = append(opts, jwt.WithMountPath(mount))
	}
	return jwt.New(role, opts...)
}

type AWSHandler struct{}

func (AWSHandler) Method(_ *cobra.Command, _ *api.Client, m map[string]string) (api.AuthMethod, error) {
	var opts []aws.LoginOption
	if region := m["region"]; region != "" {
		opts = append(opts, aws.WithRegion(region))
	}
	if header := m["header_value"]; header != "" {
		opts = append(opts, aws.WithIAMServerIDHeader(header))
	}
	// Credentials come from the arguments, else from the standard AWS
	// environment variables.
	keyID, secret, session := m["aws_access_key_id"], m["aws_secret_access_key"], m["aws_session_token"]
	if keyID == "" {
		keyID, secret, session = os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"), os.Getenv("AWS_SESSION_TOKEN")
	}
	if keyID != "" {
		opts = append(opts, aws.WithStaticCredentials(keyID, secret, session))
	}
	if mount := m["mount"]; mount != "" {
		opts = append(opts, aws.WithMountPath(mount))
	}
	return aws.New(m["role"], opts...)
}

type OIDCHandler struct{}

// Method requests the authorization URL and prints it; the returned
// callback blocks in Login until the browser redirect arrives.
func (OIDCHandler) Method(cmd *cobra.Command, c *api.Client, m map[string]string) (api.AuthMethod, error) {
	var opts []oidc.LoginOption
	if role := m["role"]; role != "" {
		opts = append(opts, oidc.WithRole(role))
	}
	if port := m["port"]; port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", port)
		}
		opts = append(opts, oidc.WithPort(p))
	}
	if mount := m["mount"]; mount != "" {
		opts = append(opts, oidc.WithMountPath(mount))
	}

	auth, err := oidc.New(opts...)
	if err != nil {
		return nil, err
	}
	cb, err := auth.Start(cmd.Context(), c)
	if err != nil {
		return nil, fmt.Errorf("error starting OIDC login: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Complete the login via your OIDC provider. Open the following link in your browser:\n\n    %s\n\n", cb.URL)
	return cb, nil
}
