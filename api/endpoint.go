package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Operation describes one HTTP call. Path is relative to /v1/.
type Operation struct {
	Method string
	Path   string
	Params url.Values
	Body   any

	// Header holds extra headers, e.g. a content type other than JSON.
	Header http.Header
}

func (o Operation) String() string {
	return o.Method + " " + o.Path
}

// Endpoint is the contract every remote operation implements: describe the
// request, then decode the response envelope into a typed result.
//
// Endpoints are plain values. Building one has no side effects; executing it
// through Do or Execute is the side effect.
type Endpoint[T any] interface {
	Operation() Operation
	Decode(r *Resource) (T, error)
}

// Validator is implemented by endpoints that can reject their arguments
// before any request is sent. A failure is reported as a KindConfiguration
// error.
type Validator interface {
	Validate() error
}

// Empty is the result of operations that return no payload.
type Empty struct{}

// DecodeEmpty ignores the response payload.
func DecodeEmpty(*Resource) (Empty, error) {
	return Empty{}, nil
}

var errNoData = errors.New("response carried no data")

// DecodeData unmarshals the data field of the envelope into T.
func DecodeData[T any](r *Resource) (T, error) {
	var out T
	if r == nil || r.Data == nil {
		return out, errNoData
	}
	if err := json.Unmarshal(r.Data, &out); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeMapData decodes the data field into T through mapstructure, using
// the json tags of T. Numbers and strings are converted loosely and
// durations are read as seconds, which suits the map-shaped payloads of the
// system endpoints.
func DecodeMapData[T any](r *Resource) (T, error) {
	var out T
	if r == nil || r.Data == nil {
		return out, errNoData
	}

	var raw any
	if err := json.Unmarshal(r.Data, &raw); err != nil {
		return out, err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(raw); err != nil {
		return out, err
	}
	return out, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func secondsToDurationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	return parseDurationFromSeconds(data), nil
}

// DecodeAuth returns the auth block of a login response.
func DecodeAuth(r *Resource) (*AuthInfo, error) {
	if r == nil || r.Auth == nil {
		return nil, errors.New("response carried no auth information")
	}
	return r.Auth, nil
}

// DecodeRaw returns the response body as received.
func DecodeRaw(r *Resource) ([]byte, error) {
	return r.Raw, nil
}

// Raw is a generic endpoint returning the whole envelope. It backs ad-hoc
// calls such as the CLI's read and write commands.
type Raw struct {
	Op Operation
}

func (e Raw) Operation() Operation { return e.Op }

func (e Raw) Decode(r *Resource) (*Resource, error) { return r, nil }
