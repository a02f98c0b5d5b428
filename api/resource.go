package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// Resource is the response envelope returned by the server. It is produced
// once per call and handed to the endpoint's decoder.
type Resource struct {
	StatusCode int         `json:"-"`
	Header     http.Header `json:"-"`

	// Raw is the response body as received.
	Raw []byte `json:"-"`

	RequestID     string `json:"request_id"`
	LeaseID       string `json:"lease_id"`
	LeaseDuration int    `json:"lease_duration"`
	Renewable     bool   `json:"renewable"`

	// Data is the operation-specific payload, left encoded for the endpoint.
	// It is nil when the response carried none.
	Data json.RawMessage `json:"data"`

	Auth     *AuthInfo `json:"auth"`
	WrapInfo *WrapInfo `json:"wrap_info"`
	Warnings []string  `json:"warnings"`
	Errors   []string  `json:"errors"`
}

// LeaseTTL returns the lease duration as a time.Duration.
func (r *Resource) LeaseTTL() time.Duration {
	return time.Duration(r.LeaseDuration) * time.Second
}

var envelopeKeys = []string{
	"data", "auth", "wrap_info", "warnings", "errors",
	"request_id", "lease_id", "lease_duration", "renewable",
}

// ParseResource is used to parse a response envelope from an io.Reader.
//
// An empty body yields an empty Resource. A body that is not a JSON object
// is kept in Raw only, for endpoints that return plain text. A JSON object
// without any envelope key is treated as the payload itself, which is how
// status endpoints such as health answer.
func ParseResource(r io.Reader) (*Resource, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, err
	}
	return parseResource(buf.Bytes())
}

func parseResource(body []byte) (*Resource, error) {
	resource := &Resource{Raw: body}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return resource, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(trimmed, resource); err != nil {
		return nil, err
	}

	if isNull(resource.Data) {
		resource.Data = nil
		if !hasEnvelopeKey(top) && len(top) > 0 {
			resource.Data = json.RawMessage(trimmed)
		}
	}

	return resource, nil
}

func hasEnvelopeKey(top map[string]json.RawMessage) bool {
	for _, key := range envelopeKeys {
		if _, ok := top[key]; ok {
			return true
		}
	}
	return false
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseErrorEnvelope extracts the errors and warnings of a failed response.
// A body that is not an error envelope becomes the single error message.
func parseErrorEnvelope(body []byte) (errs []string, warnings []string) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var env struct {
		Errors   []string `json:"errors"`
		Warnings []string `json:"warnings"`
	}
	if trimmed[0] == '{' && json.Unmarshal(trimmed, &env) == nil {
		return env.Errors, env.Warnings
	}
	return []string{string(trimmed)}, nil
}
