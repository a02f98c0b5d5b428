package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

const (
	wrappingLookupPath = "sys/wrapping/lookup"
	wrappingUnwrapPath = "sys/wrapping/unwrap"
	wrappingRewrapPath = "sys/wrapping/rewrap"
	wrappingWrapPath   = "sys/wrapping/wrap"
)

// Wrapped is a handle on a response-wrapping token. It keeps the endpoint
// whose response was wrapped so that Unwrap can decode the payload.
//
// A handle records nothing about consumption. Whether the token was already
// redeemed, possibly by another process, is only known to the server, and
// every call asks it again.
type Wrapped[T any] struct {
	Info WrapInfo

	endpoint Endpoint[T]
}

// Token returns the wrapping token.
func (w *Wrapped[T]) Token() string {
	return w.Info.Token
}

// Wrap executes ep asking the server to wrap the response for ttl. The
// client token is not modified.
func Wrap[T any](ctx context.Context, c *Client, ep Endpoint[T], ttl time.Duration, opts ...CallOption) (w *Wrapped[T], err error) {
	op, err := prepare(ep)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, configError(op.String(), "wrap ttl must be positive, got %s", ttl)
	}

	start := time.Now()
	defer func() {
		c.settings.metrics.observe(op.Method, err, time.Since(start))
	}()

	call := newCallOptions(opts)
	call.wrapTTL = ttl

	res, err := c.send(ctx, op, call)
	if err != nil {
		return nil, err
	}
	if res.WrapInfo == nil || res.WrapInfo.Token == "" {
		return nil, &ClientError{
			Kind:       KindSerialization,
			Op:         op.String(),
			StatusCode: res.StatusCode,
			Warnings:   res.Warnings,
			Body:       res.Raw,
			Err:        errors.New("response was not wrapped"),
		}
	}

	return &Wrapped[T]{Info: *res.WrapInfo, endpoint: ep}, nil
}

// ParseWrapped rebuilds a handle from a token received out of band. The
// returned handle's Info only carries the token until Lookup is called.
func ParseWrapped[T any](token string, ep Endpoint[T]) *Wrapped[T] {
	return &Wrapped[T]{Info: WrapInfo{Token: token}, endpoint: ep}
}

// Lookup returns the status of the wrapping token without consuming it.
func (w *Wrapped[T]) Lookup(ctx context.Context, c *Client) (*WrapInfo, error) {
	return LookupWrapToken(ctx, c, w.Info.Token)
}

// Unwrap redeems the wrapping token and decodes the payload with the
// original endpoint. The server accepts this once per token.
func (w *Wrapped[T]) Unwrap(ctx context.Context, c *Client) (T, error) {
	return UnwrapToken(ctx, c, w.Info.Token, w.endpoint)
}

// Rewrap exchanges the wrapping token for a new one holding the same payload.
// The old token stops working.
func (w *Wrapped[T]) Rewrap(ctx context.Context, c *Client) (*Wrapped[T], error) {
	resp, err := Do[Empty](ctx, c, rewrapEndpoint{token: w.Info.Token})
	if err != nil {
		return nil, err
	}
	if resp.WrapInfo == nil || resp.WrapInfo.Token == "" {
		return nil, &ClientError{
			Kind: KindSerialization,
			Op:   http.MethodPost + " " + wrappingRewrapPath,
			Err:  errors.New("response was not wrapped"),
		}
	}
	return &Wrapped[T]{Info: *resp.WrapInfo, endpoint: w.endpoint}, nil
}

// LookupWrapToken queries the status of a wrapping token. The token is used
// as the credential of this call.
func LookupWrapToken(ctx context.Context, c *Client, token string) (*WrapInfo, error) {
	info, err := Execute[WrapInfo](ctx, c, lookupEndpoint{token: token}, WithToken(token))
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// UnwrapToken redeems a wrapping token and decodes the payload with ep. The
// token is used as the credential of this call.
func UnwrapToken[T any](ctx context.Context, c *Client, token string, ep Endpoint[T]) (T, error) {
	return Execute[T](ctx, c, unwrapEndpoint[T]{token: token, inner: ep}, WithToken(token))
}

type lookupEndpoint struct {
	token string
}

func (e lookupEndpoint) Validate() error {
	if e.token == "" {
		return errors.New("wrapping token is empty")
	}
	return nil
}

func (e lookupEndpoint) Operation() Operation {
	return Operation{
		Method: http.MethodPost,
		Path:   wrappingLookupPath,
		Body:   map[string]string{"token": e.token},
	}
}

func (e lookupEndpoint) Decode(r *Resource) (WrapInfo, error) {
	var data struct {
		CreationPath string          `json:"creation_path"`
		CreationTime time.Time       `json:"creation_time"`
		CreationTTL  json.RawMessage `json:"creation_ttl"`
	}
	if r.Data == nil {
		return WrapInfo{}, errNoData
	}
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return WrapInfo{}, err
	}

	var ttl any
	if len(data.CreationTTL) > 0 {
		if err := json.Unmarshal(data.CreationTTL, &ttl); err != nil {
			return WrapInfo{}, err
		}
	}

	return WrapInfo{
		Token:        e.token,
		TTL:          parseDurationFromSeconds(ttl),
		CreationTime: data.CreationTime,
		CreationPath: data.CreationPath,
	}, nil
}

type unwrapEndpoint[T any] struct {
	token string
	inner Endpoint[T]
}

func (e unwrapEndpoint[T]) Validate() error {
	if e.token == "" {
		return errors.New("wrapping token is empty")
	}
	if e.inner == nil {
		return errors.New("no endpoint to decode the wrapped response")
	}
	return nil
}

func (e unwrapEndpoint[T]) Operation() Operation {
	return Operation{Method: http.MethodPost, Path: wrappingUnwrapPath}
}

func (e unwrapEndpoint[T]) Decode(r *Resource) (T, error) {
	return e.inner.Decode(r)
}

type rewrapEndpoint struct {
	token string
}

func (e rewrapEndpoint) Validate() error {
	if e.token == "" {
		return errors.New("wrapping token is empty")
	}
	return nil
}

func (e rewrapEndpoint) Operation() Operation {
	return Operation{
		Method: http.MethodPost,
		Path:   wrappingRewrapPath,
		Body:   map[string]string{"token": e.token},
	}
}

func (e rewrapEndpoint) Decode(r *Resource) (Empty, error) {
	return DecodeEmpty(r)
}

// WrapData wraps an arbitrary payload. It must be executed through Wrap;
// unwrapping the resulting token yields Data.
type WrapData[T any] struct {
	Data T
}

func (e WrapData[T]) Operation() Operation {
	return Operation{Method: http.MethodPost, Path: wrappingWrapPath, Body: e.Data}
}

func (e WrapData[T]) Decode(r *Resource) (T, error) {
	return DecodeData[T](r)
}
