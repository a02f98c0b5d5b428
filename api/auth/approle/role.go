package approle

import (
	"errors"
	"net/http"
	"strings"

	"github.com/stephnangue/vaultclient/api"
)

var errNoRoleName = errors.New("role name is empty")

func rolePath(mount, role string, parts ...string) string {
	mount = strings.Trim(mount, "/")
	if mount == "" {
		mount = DefaultMountPath
	}
	return strings.Join(append([]string{"auth", mount, "role", role}, parts...), "/")
}

// ReadRoleID returns the role ID of the role Role.
type ReadRoleID struct {
	Mount string
	Role  string
}

func (e ReadRoleID) Validate() error {
	if e.Role == "" {
		return errNoRoleName
	}
	return nil
}

func (e ReadRoleID) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: rolePath(e.Mount, e.Role, "role-id")}
}

func (ReadRoleID) Decode(r *api.Resource) (string, error) {
	out, err := api.DecodeData[struct {
		RoleID string `json:"role_id"`
	}](r)
	if err != nil {
		return "", err
	}
	if out.RoleID == "" {
		return "", errors.New("response carried no role_id")
	}
	return out.RoleID, nil
}

// SecretIDResponse is a freshly generated secret ID.
type SecretIDResponse struct {
	SecretID         string `json:"secret_id"`
	SecretIDAccessor string `json:"secret_id_accessor"`
	SecretIDTTL      int    `json:"secret_id_ttl"`
	SecretIDNumUses  int    `json:"secret_id_num_uses"`
}

// GenerateSecretID creates a secret ID for the role Role. Executed through
// api.Wrap, the secret ID reaches its consumer without passing through the
// caller in clear.
type GenerateSecretID struct {
	Mount    string
	Role     string
	Metadata map[string]string
	CIDRList []string
}

func (e GenerateSecretID) Validate() error {
	if e.Role == "" {
		return errNoRoleName
	}
	return nil
}

func (e GenerateSecretID) Operation() api.Operation {
	body := map[string]any{}
	if len(e.Metadata) > 0 {
		// The server expects metadata as a JSON encoded string.
		body["metadata"] = api.ConfigValueToString(e.Metadata)
	}
	if len(e.CIDRList) > 0 {
		body["cidr_list"] = e.CIDRList
	}
	return api.Operation{Method: http.MethodPost, Path: rolePath(e.Mount, e.Role, "secret-id"), Body: body}
}

func (GenerateSecretID) Decode(r *api.Resource) (*SecretIDResponse, error) {
	out, err := api.DecodeData[SecretIDResponse](r)
	if err != nil {
		return nil, err
	}
	if out.SecretID == "" {
		return nil, errors.New("response carried no secret_id")
	}
	return &out, nil
}
