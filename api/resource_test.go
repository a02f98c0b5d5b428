package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResource(t *testing.T) {
	t.Run("full envelope", func(t *testing.T) {
		body := `{
			"request_id": "req-1",
			"lease_id": "secret/lease",
			"lease_duration": 3600,
			"renewable": true,
			"data": {"key": "value"},
			"warnings": ["careful"],
			"auth": {"client_token": "tok", "policies": ["a"], "lease_duration": 60},
			"wrap_info": null
		}`
		r, err := ParseResource(strings.NewReader(body))
		require.NoError(t, err)

		assert.Equal(t, "req-1", r.RequestID)
		assert.Equal(t, time.Hour, r.LeaseTTL())
		assert.True(t, r.Renewable)
		assert.JSONEq(t, `{"key":"value"}`, string(r.Data))
		assert.Equal(t, []string{"careful"}, r.Warnings)
		require.NotNil(t, r.Auth)
		assert.Equal(t, "tok", r.Auth.ClientToken)
		assert.Equal(t, time.Minute, r.Auth.LeaseDuration)
		assert.Nil(t, r.WrapInfo)
		assert.Equal(t, []byte(body), r.Raw)
	})

	t.Run("null data", func(t *testing.T) {
		r, err := ParseResource(strings.NewReader(`{"data": null, "wrap_info": {"token": "w", "ttl": 30}}`))
		require.NoError(t, err)
		assert.Nil(t, r.Data)
		require.NotNil(t, r.WrapInfo)
		assert.Equal(t, "w", r.WrapInfo.Token)
		assert.Equal(t, 30*time.Second, r.WrapInfo.TTL)
	})

	t.Run("bare object becomes the payload", func(t *testing.T) {
		r, err := ParseResource(strings.NewReader(`{"initialized": true, "sealed": false}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"initialized": true, "sealed": false}`, string(r.Data))
	})

	t.Run("plain text is kept raw", func(t *testing.T) {
		r, err := ParseResource(strings.NewReader("ssh-rsa AAAA\n"))
		require.NoError(t, err)
		assert.Nil(t, r.Data)
		assert.Equal(t, "ssh-rsa AAAA\n", string(r.Raw))
	})

	t.Run("empty body", func(t *testing.T) {
		r, err := ParseResource(strings.NewReader(""))
		require.NoError(t, err)
		assert.Nil(t, r.Data)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := ParseResource(strings.NewReader(`{"data": `))
		assert.Error(t, err)
	})
}

func TestParseErrorEnvelope(t *testing.T) {
	errs, warnings := parseErrorEnvelope([]byte(`{"errors":["denied"],"warnings":["w"]}`))
	assert.Equal(t, []string{"denied"}, errs)
	assert.Equal(t, []string{"w"}, warnings)

	errs, _ = parseErrorEnvelope([]byte("  bad gateway \n"))
	assert.Equal(t, []string{"bad gateway"}, errs)

	errs, warnings = parseErrorEnvelope(nil)
	assert.Nil(t, errs)
	assert.Nil(t, warnings)
}

func TestDecodeMapData(t *testing.T) {
	type config struct {
		TTL     time.Duration `json:"ttl"`
		MaxTTL  time.Duration `json:"max_ttl"`
		Count   int           `json:"count"`
		Enabled bool          `json:"enabled"`
		Created time.Time     `json:"created"`
	}

	r := &Resource{Data: json.RawMessage(`{
		"ttl": 90,
		"max_ttl": "2h",
		"count": "7",
		"enabled": "true",
		"created": "2024-03-01T10:00:00Z",
		"unknown": "ignored"
	}`)}

	out, err := DecodeMapData[config](r)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, out.TTL)
	assert.Equal(t, 2*time.Hour, out.MaxTTL)
	assert.Equal(t, 7, out.Count)
	assert.True(t, out.Enabled)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), out.Created)

	_, err = DecodeMapData[config](&Resource{})
	assert.Error(t, err)
}

func TestParseDurationFromSeconds(t *testing.T) {
	tests := []struct {
		in   any
		want time.Duration
	}{
		{float64(30), 30 * time.Second},
		{json.Number("45"), 45 * time.Second},
		{"60", time.Minute},
		{"1h", time.Hour},
		{int(5), 5 * time.Second},
		{int64(6), 6 * time.Second},
		{3 * time.Second, 3 * time.Second},
		{nil, 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseDurationFromSeconds(tt.in), "%v", tt.in)
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "60", formatSeconds(time.Minute))
	assert.Equal(t, "2", formatSeconds(1100*time.Millisecond))
	assert.Equal(t, "1", formatSeconds(time.Millisecond))
}

func TestWrapInfo_JSON(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	in := WrapInfo{Token: "t", Accessor: "a", TTL: 5 * time.Minute, CreationTime: created, CreationPath: "secret/x"}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"ttl":300`)
	assert.Contains(t, string(b), `"creation_path":"secret/x"`)

	var out WrapInfo
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}
