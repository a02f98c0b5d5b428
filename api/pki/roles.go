package pki

import (
	"net/http"
	"time"

	"github.com/stephnangue/vaultclient/api"
)

// Role restricts what certificates may be issued under it.
type Role struct {
	TTL              time.Duration `json:"ttl"`
	MaxTTL           time.Duration `json:"max_ttl"`
	AllowLocalhost   bool          `json:"allow_localhost"`
	AllowedDomains   []string      `json:"allowed_domains"`
	AllowBareDomains bool          `json:"allow_bare_domains"`
	AllowSubdomains  bool          `json:"allow_subdomains"`
	AllowGlobDomains bool          `json:"allow_glob_domains"`
	AllowAnyName     bool          `json:"allow_any_name"`
	AllowIPSANs      bool          `json:"allow_ip_sans"`
	ServerFlag       bool          `json:"server_flag"`
	ClientFlag       bool          `json:"client_flag"`
	KeyType          string        `json:"key_type"`
	KeyBits          int           `json:"key_bits"`
	NoStore          bool          `json:"no_store"`
}

// RoleInput creates or updates a role. TTLs use duration syntax, e.g. "72h".
type RoleInput struct {
	TTL              string   `json:"ttl,omitempty"`
	MaxTTL           string   `json:"max_ttl,omitempty"`
	AllowLocalhost   *bool    `json:"allow_localhost,omitempty"`
	AllowedDomains   []string `json:"allowed_domains,omitempty"`
	AllowBareDomains bool     `json:"allow_bare_domains,omitempty"`
	AllowSubdomains  bool     `json:"allow_subdomains,omitempty"`
	AllowGlobDomains bool     `json:"allow_glob_domains,omitempty"`
	AllowAnyName     bool     `json:"allow_any_name,omitempty"`
	AllowIPSANs      *bool    `json:"allow_ip_sans,omitempty"`
	KeyType          string   `json:"key_type,omitempty"`
	KeyBits          int      `json:"key_bits,omitempty"`
	NoStore          bool     `json:"no_store,omitempty"`
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
