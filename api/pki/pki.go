// Package pki holds the endpoints of the PKI secret engine.
package pki

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stephnangue/vaultclient/api"
)

// DefaultMountPath is where the engine is mounted when Mount is empty.
const DefaultMountPath = "pki"

var (
	errNoRole       = errors.New("role name is empty")
	errNoCommonName = errors.New("common name is empty")
)

func enginePath(mount string, parts ...string) string {
	mount = strings.Trim(mount, "/")
	if mount == "" {
		mount = DefaultMountPath
	}
	return strings.Join(append([]string{mount}, parts...), "/")
}

// CertificateRequest holds the fields shared by issue, sign and generate
// root requests. Zero fields are left out of the request body.
type CertificateRequest struct {
	CommonName        string
	AltNames          []string
	IPSANs            []string
	URISANs           []string
	TTL               string
	Format            string
	PrivateKeyFormat  string
	ExcludeCNFromSANs bool
}

func (c CertificateRequest) body() map[string]any {
	body := map[string]any{"common_name": c.CommonName}
	if len(c.AltNames) > 0 {
		body["alt_names"] = strings.Join(c.AltNames, ",")
	}
	if len(c.IPSANs) > 0 {
		body["ip_sans"] = strings.Join(c.IPSANs, ",")
	}
	if len(c.URISANs) > 0 {
		body["uri_sans"] = strings.Join(c.URISANs, ",")
	}
	if c.TTL != "" {
		body["ttl"] = c.TTL
	}
	if c.Format != "" {
		body["format"] = c.Format
	}
	if c.PrivateKeyFormat != "" {
		body["private_key_format"] = c.PrivateKeyFormat
	}
	if c.ExcludeCNFromSANs {
		body["exclude_cn_from_sans"] = true
	}
	return body
}

// Certificate is the result of issuing or signing.
type Certificate struct {
	Certificate    string   `json:"certificate"`
	IssuingCA      string   `json:"issuing_ca"`
	CAChain        []string `json:"ca_chain"`
	PrivateKey     string   `json:"private_key"`
	PrivateKeyType string   `json:"private_key_type"`
	SerialNumber   string   `json:"serial_number"`
	Expiration     int64    `json:"expiration"`
}

// ExpiresAt returns the expiration as a time.
func (c *Certificate) ExpiresAt() time.Time {
	return time.Unix(c.Expiration, 0)
}

func decodeCertificate(r *api.Resource) (*Certificate, error) {
	out, err := api.DecodeData[Certificate](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateRoot creates a self-signed root CA. Type is "internal" (the key
// stays on the server) or "exported".
type GenerateRoot struct {
	Mount   string
	Type    string
	Request CertificateRequest
}

func (e GenerateRoot) Validate() error {
	switch e.Type {
	case "internal", "exported":
	default:
		return errors.New(`root type must be "internal" or "exported"`)
	}
	if e.Request.CommonName == "" {
		return errNoCommonName
	}
	return nil
}

func (e GenerateRoot) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: enginePath(e.Mount, "root", "generate", e.Type), Body: e.Request.body()}
}

func (GenerateRoot) Decode(r *api.Resource) (*Certificate, error) { return decodeCertificate(r) }

// Issue creates a key and certificate under Role.
type Issue struct {
	Mount   string
	Role    string
	Request CertificateRequest
}

func (e Issue) Validate() error {
	if e.Role == "" {
		return errNoRole
	}
	if e.Request.CommonName == "" {
		return errNoCommonName
	}
	return nil
}

func (e Issue) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: enginePath(e.Mount, "issue", e.Role), Body: e.Request.body()}
}

func (Issue) Decode(r *api.Resource) (*Certificate, error) { return decodeCertificate(r) }

// Sign signs a PEM-encoded CSR under Role.
type Sign struct {
	Mount   string
	Role    string
	CSR     string
	Request CertificateRequest
}

func (e Sign) Validate() error {
	if e.Role == "" {
		return errNoRole
	}
	if e.CSR == "" {
		return errors.New("csr is empty")
	}
	return nil
}

func (e Sign) Operation() api.Operation {
	body := e.Request.body()
	body["csr"] = e.CSR
	if e.Request.CommonName == "" {
		delete(body, "common_name")
	}
	return api.Operation{Method: http.MethodPost, Path: enginePath(e.Mount, "sign", e.Role), Body: body}
}

func (Sign) Decode(r *api.Resource) (*Certificate, error) { return decodeCertificate(r) }

// RevokeResponse is the result of a revocation.
type RevokeResponse struct {
	RevocationTime        int64  `json:"revocation_time"`
	RevocationTimeRFC3339 string `json:"revocation_time_rfc3339"`
	State                 string `json:"state"`
}

// Revoke revokes the certificate with SerialNumber.
type Revoke struct {
	Mount        string
	SerialNumber string
}

func (e Revoke) Validate() error {
	if e.SerialNumber == "" {
		return errors.New("serial number is empty")
	}
	return nil
}

func (e Revoke) Operation() api.Operation {
	return api.Operation{
		Method: http.MethodPost,
		Path:   enginePath(e.Mount, "revoke"),
		Body:   map[string]string{"serial_number": e.SerialNumber},
	}
}

func (Revoke) Decode(r *api.Resource) (*RevokeResponse, error) {
	out, err := api.DecodeData[RevokeResponse](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadCert returns a certificate by serial number. The serials "ca",
// "ca_chain" and "crl" are also accepted.
type ReadCert struct {
	Mount  string
	Serial string
}

func (e ReadCert) Validate() error {
	if e.Serial == "" {
		return errors.New("serial is empty")
	}
	return nil
}

func (e ReadCert) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: enginePath(e.Mount, "cert", e.Serial)}
}

func (ReadCert) Decode(r *api.Resource) (*Certificate, error) { return decodeCertificate(r) }

// ListCerts returns the serial numbers of all issued certificates.
type ListCerts struct {
	Mount string
}

func (e ListCerts) Operation() api.Operation {
	return api.Operation{Method: api.MethodList, Path: enginePath(e.Mount, "certs") + "/"}
}

func (ListCerts) Decode(r *api.Resource) ([]string, error) {
	out, err := api.DecodeData[struct {
		Keys []string `json:"keys"`
	}](r)
	if err != nil {
		return nil, err
	}
	return out.Keys, nil
}
