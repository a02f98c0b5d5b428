package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/vaultclient/internal/testserver"
)

func TestWrap_RoundTrip(t *testing.T) {
	srv := testserver.New(t)
	client := newTestClient(t, srv.URL, srv.RootToken)
	ctx := context.Background()

	wrapped, err := Wrap[map[string]any](ctx, client, WrapData[map[string]any]{Data: map[string]any{"password": "s3cr3t"}}, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, wrapped.Token())
	assert.Equal(t, time.Minute, wrapped.Info.TTL)
	assert.Equal(t, "sys/wrapping/wrap", wrapped.Info.CreationPath)
	assert.Equal(t, srv.RootToken, client.Token())

	req, ok := srv.LastRequest("sys/wrapping/wrap")
	require.True(t, ok)
	assert.Equal(t, "60", req.Header.Get(HeaderWrapTTL))

	info, err := wrapped.Lookup(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "sys/wrapping/wrap", info.CreationPath)
	assert.Equal(t, time.Minute, info.TTL)
	assert.False(t, info.CreationTime.IsZero())

	data, err := wrapped.Unwrap(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", data["password"])
	assert.Equal(t, srv.RootToken, client.Token())

	req, ok = srv.LastRequest("sys/wrapping/unwrap")
	require.True(t, ok)
	assert.Equal(t, wrapped.Token(), req.Header.Get(HeaderToken))
}

func TestWrap_UnwrapIsSingleUse(t *testing.T) {
	srv := testserver.New(t)
	client := newTestClient(t, srv.URL, srv.RootToken)
	ctx := context.Background()

	wrapped, err := Wrap[map[string]any](ctx, client, WrapData[map[string]any]{Data: map[string]any{"k": "v"}}, time.Minute)
	require.NoError(t, err)

	_, err = wrapped.Unwrap(ctx, client)
	require.NoError(t, err)

	_, err = wrapped.Unwrap(ctx, client)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPI)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))

	_, err = wrapped.Lookup(ctx, client)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAPI)
}

func TestWrap_LookupDoesNotConsume(t *testing.T) {
	srv := testserver.New(t)
	client := newTestClient(t, srv.URL, srv.RootToken)
	ctx := context.Background()

	wrapped, err := Wrap[map[string]any](ctx, client, WrapData[map[string]any]{Data: map[string]any{"k": "v"}}, time.Minute)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := wrapped.Lookup(ctx, client)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, srv.WrappedCount())

	data, err := wrapped.Unwrap(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "v", data["k"])
	assert.Zero(t, srv.WrappedCount())
}

func TestWrap_ConsumedElsewhere(t *testing.T) {
	srv := testserver.New(t)
	producer := newTestClient(t, srv.URL, srv.RootToken)
	consumer := newTestClient(t, srv.URL, "")
	ctx := context.Background()

	wrapped, err := Wrap[map[string]any](ctx, producer, WrapData[map[string]any]{Data: map[string]any{"k": "v"}}, time.Minute)
	require.NoError(t, err)

	received := ParseWrapped[map[string]any](wrapped.Token(), WrapData[map[string]any]{})
	data, err := received.Unwrap(ctx, consumer)
	require.NoError(t, err)
	assert.Equal(t, "v", data["k"])
	assert.Empty(t, consumer.Token())

	// The producer's handle knows nothing of the redemption; the server does.
	_, err = wrapped.Lookup(ctx, producer)
	assert.ErrorIs(t, err, ErrAPI)
	_, err = wrapped.Unwrap(ctx, producer)
	assert.ErrorIs(t, err, ErrAPI)
}

func TestWrap_Expiry(t *testing.T) {
	srv := testserver.New(t)
	client := newTestClient(t, srv.URL, srv.RootToken)
	ctx := context.Background()

	wrapped, err := Wrap[map[string]any](ctx, client, WrapData[map[string]any]{Data: map[string]any{"k": "v"}}, 30*time.Second)
	require.NoError(t, err)

	srv.Advance(time.Minute)

	_, err = wrapped.Lookup(ctx, client)
	assert.ErrorIs(t, err, ErrAPI)
	_, err = wrapped.Unwrap(ctx, client)
	assert.ErrorIs(t, err, ErrAPI)
}

func TestWrap_EndpointResponse(t *testing.T) {
	srv := testserver.New(t)
	client := newTestClient(t, srv.URL, srv.RootToken)
	ctx := context.Background()

	_, err := Execute[Empty](ctx, client, writeEndpoint{
		path: "secret/db",
		data: map[string]any{"user": "app"},
	})
	require.NoError(t, err)

	wrapped, err := Wrap[map[string]any](ctx, client, readEndpoint{path: "secret/db"}, 90*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "secret/db", wrapped.Info.CreationPath)

	data, err := wrapped.Unwrap(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "app", data["user"])
}

func TestWrap_WrapTTLIsRoundedUpToSeconds(t *testing.T) {
	srv := testserver.New(t)
	client := newTestClient(t, srv.URL, srv.RootToken)

	_, err := Wrap[map[string]any](context.Background(), client, WrapData[map[string]any]{Data: map[string]any{"k": "v"}}, 1500*time.Millisecond)
	require.NoError(t, err)

	req, _ := srv.LastRequest("sys/wrapping/wrap")
	assert.Equal(t, "2", req.Header.Get(HeaderWrapTTL))
}

func TestWrap_InvalidTTL(t *testing.T) {
	srv := testserver.New(t)
	client := newTestClient(t, srv.URL, srv.RootToken)

	for _, ttl := range []time.Duration{0, -time.Second} {
		_, err := Wrap[map[string]any](context.Background(), client, WrapData[map[string]any]{Data: map[string]any{"k": "v"}}, ttl)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfiguration)
	}
	assert.Empty(t, srv.Requests())
}

func TestWrap_DoWithWrapTTL(t *testing.T) {
	srv := testserver.New(t)
	client := newTestClient(t, srv.URL, srv.RootToken)
	ctx := context.Background()

	_, err := Execute[Empty](ctx, client, writeEndpoint{path: "secret/w", data: map[string]any{"a": "b"}})
	require.NoError(t, err)

	resp, err := Do[map[string]any](ctx, client, readEndpoint{path: "secret/w"}, WithWrapTTL(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, resp.WrapInfo)
	assert.Nil(t, resp.Data)

	data, err := UnwrapToken[map[string]any](ctx, client, resp.WrapInfo.Token, readEndpoint{})
	require.NoError(t, err)
	assert.Equal(t, "b", data["a"])
}

func TestWrap_Rewrap(t *testing.T) {
	srv := testserver.New(t)
	client := newTestClient(t, srv.URL, srv.RootToken)
	ctx := context.Background()

	wrapped, err := Wrap[map[string]any](ctx, client, WrapData[map[string]any]{Data: map[string]any{"k": "v"}}, time.Minute)
	require.NoError(t, err)

	rewrapped, err := wrapped.Rewrap(ctx, client)
	require.NoError(t, err)
	assert.NotEqual(t, wrapped.Token(), rewrapped.Token())

	_, err = wrapped.Unwrap(ctx, client)
	assert.ErrorIs(t, err, ErrAPI)

	data, err := rewrapped.Unwrap(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, "v", data["k"])
}

func TestWrap_EmptyToken(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:8200", "")

	_, err := LookupWrapToken(context.Background(), client, "")
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = UnwrapToken[map[string]any](context.Background(), client, "", readEndpoint{})
	assert.ErrorIs(t, err, ErrConfiguration)
}
