package testserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Errors []string `json:"errors"`
}

type envelope struct {
	RequestID     string    `json:"request_id"`
	LeaseID       string    `json:"lease_id"`
	LeaseDuration int       `json:"lease_duration"`
	Renewable     bool      `json:"renewable"`
	Data          any       `json:"data"`
	WrapInfo      *wrapInfo `json:"wrap_info"`
	Warnings      []string  `json:"warnings"`
	Auth          *authInfo `json:"auth"`
}

// respondError writes an error response with the given status code and messages.
func respondError(w http.ResponseWriter, status int, messages ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if messages == nil {
		messages = []string{}
	}
	json.NewEncoder(w).Encode(&ErrorResponse{Errors: messages})
}

// respondOk writes a successful JSON response with status 200.
func respondOk(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respond writes env, adding the warnings configured for the request path.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, env *envelope) {
	if env.RequestID == "" {
		env.RequestID = generateID()
	}
	if warnings := s.warningsFor(relPath(r)); len(warnings) > 0 {
		env.Warnings = append(env.Warnings, warnings...)
	}
	respondOk(w, env)
}

func (s *Server) respondData(w http.ResponseWriter, r *http.Request, data any) {
	s.respond(w, r, &envelope{Data: data})
}

// respondNoContent answers a write that returns nothing. A path with
// configured warnings gets an envelope carrying them instead.
func (s *Server) respondNoContent(w http.ResponseWriter, r *http.Request) {
	if len(s.warningsFor(relPath(r))) > 0 {
		s.respond(w, r, &envelope{})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}
