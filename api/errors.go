package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies the origin of a ClientError.
type Kind int

const (
	// KindTransport covers connection, TLS, timeout and cancellation
	// failures: no response was received.
	KindTransport Kind = iota + 1

	// KindAPI covers every non-2xx response. The remote messages are kept
	// verbatim in ClientError.Errors.
	KindAPI

	// KindSerialization covers request bodies that could not be encoded and
	// response bodies that could not be decoded.
	KindSerialization

	// KindConfiguration covers invalid settings and invalid arguments caught
	// before any request is sent.
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAPI:
		return "api"
	case KindSerialization:
		return "serialization"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. They match any ClientError of the same Kind.
var (
	ErrTransport     = &ClientError{Kind: KindTransport}
	ErrAPI           = &ClientError{Kind: KindAPI}
	ErrSerialization = &ClientError{Kind: KindSerialization}
	ErrConfiguration = &ClientError{Kind: KindConfiguration}
)

// ClientError is the only error type returned by the client, its endpoints
// and its login methods.
type ClientError struct {
	Kind Kind

	// Op names the failed operation, e.g. "GET secret/foo" or "new client".
	Op string

	// URL is the full request URL when a request was built.
	URL string

	// StatusCode is set for KindAPI errors and for transport errors that
	// happened after the status line was read.
	StatusCode int

	// Errors are the remote error messages, verbatim.
	Errors []string

	// Warnings are the remote warnings carried by the failed response.
	Warnings []string

	// Body is the raw response body, kept for diagnostics.
	Body []byte

	Err error
}

// NewError builds a ClientError of the given kind. Auth methods and
// endpoint packages use it for failures that happen outside the pipeline.
func NewError(kind Kind, op string, err error) *ClientError {
	return &ClientError{Kind: kind, Op: op, Err: err}
}

func (e *ClientError) Error() string {
	if e.Kind == KindAPI {
		var b strings.Builder
		b.WriteString("Error making API request.\n\n")
		fmt.Fprintf(&b, "URL: %s %s\n", opMethod(e.Op), e.URL)
		fmt.Fprintf(&b, "Code: %d. ", e.StatusCode)
		if len(e.Errors) == 0 {
			b.WriteString("Errors: ")
			b.WriteString(http.StatusText(e.StatusCode))
			return b.String()
		}
		b.WriteString("Errors:\n\n")
		for i, msg := range e.Errors {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "* %s", msg)
		}
		return b.String()
	}

	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a ClientError of the same Kind. A target with
// a non-zero StatusCode must also match the status.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.StatusCode == 0 || t.StatusCode == e.StatusCode
}

// IsNotFound reports whether err is an API error with status 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}

// asClientError returns err unchanged when it already is a ClientError,
// otherwise wraps it with the given kind.
func asClientError(kind Kind, op string, err error) *ClientError {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce
	}
	return &ClientError{Kind: kind, Op: op, Err: err}
}

func configError(op string, format string, args ...any) *ClientError {
	return &ClientError{Kind: KindConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

func opMethod(op string) string {
	if i := strings.IndexByte(op, ' '); i > 0 {
		return op[:i]
	}
	return op
}
