// Package ssh holds the endpoints of the SSH secret engine.
package ssh

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stephnangue/vaultclient/api"
)

// DefaultMountPath is where the engine is mounted when Mount is empty.
const DefaultMountPath = "ssh"

var errNoRole = errors.New("role name is empty")

func enginePath(mount string, parts ...string) string {
	mount = strings.Trim(mount, "/")
	if mount == "" {
		mount = DefaultMountPath
	}
	return strings.Join(append([]string{mount}, parts...), "/")
}

// SignRequest asks the CA to sign a public key.
type SignRequest struct {
	PublicKey       string            `json:"public_key"`
	TTL             string            `json:"ttl,omitempty"`
	ValidPrincipals string            `json:"valid_principals,omitempty"`
	CertType        string            `json:"cert_type,omitempty"`
	KeyID           string            `json:"key_id,omitempty"`
	CriticalOptions map[string]string `json:"critical_options,omitempty"`
	Extensions      map[string]string `json:"extensions,omitempty"`
}

// SignedKey is a signed SSH certificate.
type SignedKey struct {
	SerialNumber string `json:"serial_number"`
	SignedKey    string `json:"signed_key"`
}

// SignKey signs Request.PublicKey under Role.
type SignKey struct {
	Mount   string
	Role    string
	Request SignRequest
}

func (e SignKey) Validate() error {
	if e.Role == "" {
		return errNoRole
	}
	if strings.TrimSpace(e.Request.PublicKey) == "" {
		return errors.New("public key is empty")
	}
	return nil
}

func (e SignKey) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: enginePath(e.Mount, "sign", e.Role), Body: e.Request}
}

func (SignKey) Decode(r *api.Resource) (*SignedKey, error) {
	out, err := api.DecodeData[SignedKey](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadPublicKey returns the CA public key in authorized_keys format. The
// server answers with a plain text body, not an envelope, and needs no
// token.
type ReadPublicKey struct {
	Mount string
}

func (e ReadPublicKey) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: enginePath(e.Mount, "public_key")}
}

func (ReadPublicKey) Decode(r *api.Resource) (string, error) {
	key := strings.TrimSpace(string(r.Raw))
	if key == "" {
		return "", errors.New("empty public key")
	}
	if strings.HasPrefix(key, "{") {
		return "", errors.New("expected a public key, got a JSON document")
	}
	return key, nil
}

// Role controls the certificates or credentials issued under it.
type Role struct {
	KeyType               string            `json:"key_type"`
	DefaultUser           string            `json:"default_user"`
	AllowedUsers          string            `json:"allowed_users"`
	AllowedDomains        string            `json:"allowed_domains"`
	AllowUserCertificates bool              `json:"allow_user_certificates"`
	AllowHostCertificates bool              `json:"allow_host_certificates"`
	TTL                   time.Duration     `json:"ttl"`
	MaxTTL                time.Duration     `json:"max_ttl"`
	DefaultExtensions     map[string]string `json:"default_extensions"`
	AllowedExtensions     string            `json:"allowed_extensions"`
	CIDRList              string            `json:"cidr_list"`
	Port                  int               `json:"port"`
}

// RoleInput creates or updates a role. KeyType is "ca" or "otp".
type RoleInput struct {
	KeyType               string            `json:"key_type"`
	DefaultUser           string            `json:"default_user,omitempty"`
	AllowedUsers          string            `json:"allowed_users,omitempty"`
	AllowedDomains        string            `json:"allowed_domains,omitempty"`
	AllowUserCertificates bool              `json:"allow_user_certificates,omitempty"`
	AllowHostCertificates bool              `json:"allow_host_certificates,omitempty"`
	TTL                   string            `json:"ttl,omitempty"`
	MaxTTL                string            `json:"max_ttl,omitempty"`
	DefaultExtensions     map[string]string `json:"default_extensions,omitempty"`
	AllowedExtensions     string            `json:"allowed_extensions,omitempty"`
	CIDRList              string            `json:"cidr_list,omitempty"`
	Port                  int               `json:"port,omitempty"`
}

// WriteRole creates or updates the role Name.
type WriteRole struct {
	Mount string
	Name  string
	Input RoleInput
}

func (e WriteRole) Validate() error {
	if e.Name == "" {
		return errNoRole
	}
	switch e.Input.KeyType {
	case "ca", "otp":
	default:
		return errors.New(`key type must be "ca" or "otp"`)
	}
	return nil
}

func (e WriteRole) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: enginePath(e.Mount, "roles", e.Name), Body: e.Input}
}

func (WriteRole) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// ReadRole returns the role Name.
type ReadRole struct {
	Mount string
	Name  string
}

func (e ReadRole) Validate() error {
	if e.Name == "" {
		return errNoRole
	}
	return nil
}

func (e ReadRole) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: enginePath(e.Mount, "roles", e.Name)}
}

func (ReadRole) Decode(r *api.Resource) (*Role, error) {
	out, err := api.DecodeMapData[Role](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRole removes the role Name.
type DeleteRole struct {
	Mount string
	Name  string
}

func (e DeleteRole) Validate() error {
	if e.Name == "" {
		return errNoRole
	}
	return nil
}

func (e DeleteRole) Operation() api.Operation {
	return api.Operation{Method: http.MethodDelete, Path: enginePath(e.Mount, "roles", e.Name)}
}

func (DeleteRole) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// Credential is a one-time password issued under an OTP role.
type Credential struct {
	Key      string `json:"key"`
	KeyType  string `json:"key_type"`
	Username string `json:"username"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
}

// GenerateCredential issues a one-time password for Username on IP.
type GenerateCredential struct {
	Mount    string
	Role     string
	IP       string
	Username string
}

func (e GenerateCredential) Validate() error {
	if e.Role == "" {
		return errNoRole
	}
	if e.IP == "" {
		return errors.New("ip is empty")
	}
	return nil
}

func (e GenerateCredential) Operation() api.Operation {
	body := map[string]string{"ip": e.IP}
	if e.Username != "" {
		body["username"] = e.Username
	}
	return api.Operation{Method: http.MethodPost, Path: enginePath(e.Mount, "creds", e.Role), Body: body}
}

func (GenerateCredential) Decode(r *api.Resource) (*Credential, error) {
	out, err := api.DecodeData[Credential](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
