package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stephnangue/vaultclient/logger"
)

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	token   *string
	wrapTTL time.Duration
	headers http.Header
}

// WithToken sends the given token instead of the client's current token for
// this call only. An empty token sends no token header.
func WithToken(token string) CallOption {
	return func(o *callOptions) {
		o.token = &token
	}
}

// WithWrapTTL asks the server to wrap the response for the given duration.
// The response then carries WrapInfo instead of data.
func WithWrapTTL(ttl time.Duration) CallOption {
	return func(o *callOptions) {
		o.wrapTTL = ttl
	}
}

// WithHeader adds a header to this call.
func WithHeader(key, value string) CallOption {
	return func(o *callOptions) {
		if o.headers == nil {
			o.headers = make(http.Header)
		}
		o.headers.Add(key, value)
	}
}

func newCallOptions(opts []CallOption) *callOptions {
	o := &callOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs the endpoint and returns its decoded result.
func Execute[T any](ctx context.Context, c *Client, ep Endpoint[T], opts ...CallOption) (T, error) {
	resp, err := Do(ctx, c, ep, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return resp.Data, nil
}

// Do runs the endpoint and returns its decoded result together with the
// envelope metadata. Exactly one HTTP call is made. When the call asked for
// wrapping and the server wrapped the response, Data is left zero and
// WrapInfo is set.
func Do[T any](ctx context.Context, c *Client, ep Endpoint[T], opts ...CallOption) (resp *Response[T], err error) {
	op, err := prepare(ep)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		c.settings.metrics.observe(op.Method, err, time.Since(start))
	}()

	res, err := c.send(ctx, op, newCallOptions(opts))
	if err != nil {
		return nil, err
	}

	resp = &Response[T]{
		Warnings:      res.Warnings,
		RequestID:     res.RequestID,
		LeaseID:       res.LeaseID,
		LeaseDuration: res.LeaseTTL(),
		Renewable:     res.Renewable,
		Auth:          res.Auth,
		WrapInfo:      res.WrapInfo,
	}
	if res.WrapInfo != nil {
		return resp, nil
	}

	data, err := ep.Decode(res)
	if err != nil {
		return nil, decodeError(op, res, err)
	}
	resp.Data = data
	return resp, nil
}

func prepare[T any](ep Endpoint[T]) (Operation, error) {
	if ep == nil {
		return Operation{}, configError("execute", "no endpoint provided")
	}
	if v, ok := ep.(Validator); ok {
		if err := v.Validate(); err != nil {
			return Operation{}, asClientError(KindConfiguration, ep.Operation().String(), err)
		}
	}
	op := ep.Operation()
	if op.Method == "" {
		return op, configError(op.String(), "endpoint has no method")
	}
	if hasParentSegment(op.Path) {
		return op, configError(op.String(), "path %q must not contain \"..\" segments", op.Path)
	}
	return op, nil
}

// hasParentSegment reports whether p has a ".." segment. Request paths are
// cleaned when the URL is built, so such a segment would leave the mount.
func hasParentSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

func decodeError(op Operation, res *Resource, err error) error {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce
	}
	return &ClientError{
		Kind:       KindSerialization,
		Op:         op.String(),
		StatusCode: res.StatusCode,
		Warnings:   res.Warnings,
		Body:       res.Raw,
		Err:        fmt.Errorf("decoding response: %w", err),
	}
}

// send issues exactly one HTTP call for op and classifies the outcome.
func (c *Client) send(ctx context.Context, op Operation, call *callOptions) (*Resource, error) {
	s := c.settings
	opName := op.String()

	r := c.NewRequest(op.Method, op.Path)
	for k, vals := range op.Params {
		r.Params[k] = append(r.Params[k], vals...)
	}
	if call.token != nil {
		r.ClientToken = *call.token
	}
	if call.wrapTTL > 0 {
		r.WrapTTL = formatSeconds(call.wrapTTL)
	}
	r.Headers = make(http.Header, len(op.Header)+len(call.headers))
	for k, vals := range op.Header {
		r.Headers[k] = append(r.Headers[k], vals...)
	}
	for k, vals := range call.headers {
		r.Headers[k] = append(r.Headers[k], vals...)
	}

	if op.Body != nil {
		if err := r.SetJSONBody(op.Body); err != nil {
			return nil, &ClientError{
				Kind: KindSerialization,
				Op:   opName,
				URL:  r.URL.String(),
				Err:  fmt.Errorf("encoding request body: %w", err),
			}
		}
	}

	req, err := r.toRetryableHTTP()
	if err != nil {
		return nil, &ClientError{Kind: KindConfiguration, Op: opName, URL: r.URL.String(), Err: err}
	}
	reqURL := req.URL.String()

	ctx, cancel := c.withConfiguredTimeout(ctx)
	defer cancel()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &ClientError{Kind: KindTransport, Op: opName, URL: reqURL, Err: err}
		}
	}

	s.logger.Debug("sending request",
		logger.String("method", op.Method),
		logger.String("path", op.Path),
		logger.Bool("wrapped", call.wrapTTL > 0),
	)

	resp, err := s.transport.Do(req.WithContext(ctx))
	if err != nil {
		if strings.Contains(err.Error(), "tls: oversized") {
			err = fmt.Errorf("%w\n\n"+TLSErrorString, err) //nolint:staticcheck // user-facing error
		}
		s.logger.Debug("request failed",
			logger.String("method", op.Method),
			logger.String("path", op.Path),
			logger.Err(err),
		)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, &ClientError{Kind: KindTransport, Op: opName, URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{
			Kind:       KindTransport,
			Op:         opName,
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("reading response body: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errs, warnings := parseErrorEnvelope(body)
		return nil, &ClientError{
			Kind:       KindAPI,
			Op:         opName,
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Errors:     errs,
			Warnings:   warnings,
			Body:       body,
		}
	}

	res, err := parseResource(body)
	if err != nil {
		return nil, &ClientError{
			Kind:       KindSerialization,
			Op:         opName,
			URL:        reqURL,
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("parsing response envelope: %w", err),
		}
	}
	res.StatusCode = resp.StatusCode
	res.Header = resp.Header

	if len(res.Warnings) > 0 {
		c.handleWarnings(op, res.Warnings)
	}

	return res, nil
}

// handleWarnings reports remote warnings. They never change the outcome of
// the call.
func (c *Client) handleWarnings(op Operation, warnings []string) {
	for _, w := range warnings {
		c.settings.logger.Warn("server returned a warning",
			logger.String("method", op.Method),
			logger.String("path", op.Path),
			logger.String("warning", w),
		)
	}
	if h := c.settings.onWarnings; h != nil {
		h(op, warnings)
	}
}
