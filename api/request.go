package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

const (
	HeaderToken     = "X-Vault-Token"
	HeaderNamespace = "X-Vault-Namespace"
	HeaderWrapTTL   = "X-Vault-Wrap-TTL"
	HeaderRequest   = "X-Vault-Request"

	// MethodList is the verb used by list operations.
	MethodList = "LIST"
)

// Request is a raw request configuration structure used to initiate
// API requests to the server.
type Request struct {
	Method      string
	URL         *url.URL
	Host        string
	Params      url.Values
	Headers     http.Header
	ClientToken string
	Namespace   string
	WrapTTL     string
	Obj         interface{}

	// BodyBytes is the encoded body. retryablehttp rewinds it between
	// attempts so it is always preferred over a reader.
	BodyBytes []byte
}

// SetJSONBody is used to set a request body that is a JSON-encoded value.
func (r *Request) SetJSONBody(val interface{}) error {
	if val == nil {
		return nil
	}

	buf, err := json.Marshal(val)
	if err != nil {
		return err
	}

	r.Obj = val
	r.BodyBytes = buf
	return nil
}

func (r *Request) toRetryableHTTP() (*retryablehttp.Request, error) {
	// Encode the query parameters
	r.URL.RawQuery = r.Params.Encode()

	var body interface{}
	if r.BodyBytes != nil {
		body = r.BodyBytes
	}

	req, err := retryablehttp.NewRequest(r.Method, r.URL.RequestURI(), body)
	if err != nil {
		return nil, err
	}

	req.URL.User = r.URL.User
	req.URL.Scheme = r.URL.Scheme
	req.URL.Host = r.URL.Host
	req.Host = r.Host

	// Set custom headers first
	for header, vals := range r.Headers {
		for _, val := range vals {
			req.Header.Add(header, val)
		}
	}

	req.Header.Set(HeaderRequest, "true")
	if r.BodyBytes != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(r.ClientToken) != 0 {
		req.Header.Set(HeaderToken, r.ClientToken)
	}
	if r.Namespace != "" {
		req.Header.Set(HeaderNamespace, r.Namespace)
	}
	if r.WrapTTL != "" {
		req.Header.Set(HeaderWrapTTL, r.WrapTTL)
	}

	return req, nil
}
