package aws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/internal/testserver"
)

func newClient(t *testing.T, srv *testserver.Server, token string) *api.Client {
	t.Helper()
	client, err := api.NewClient(&api.Config{Address: srv.URL, Token: token})
	require.NoError(t, err)
	return client
}

func TestNew(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoRoleName)

	_, err = New("role")
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = New("role", WithStaticCredentials("", "secret", ""))
	assert.Error(t, err)

	_, err = New("role", WithStaticCredentials("AKID", "secret", ""), WithMountPath(""))
	assert.ErrorIs(t, err, ErrInvalidMountPath)

	a, err := New("role", WithStaticCredentials("AKID", "secret", ""))
	require.NoError(t, err)
	assert.Equal(t, "https://sts.amazonaws.com", a.stsEndpoint)

	a, err = New("role", WithStaticCredentials("AKID", "secret", ""), WithRegion("eu-west-3"))
	require.NoError(t, err)
	assert.Equal(t, "https://sts.eu-west-3.amazonaws.com", a.stsEndpoint)
}

func TestLogin(t *testing.T) {
	srv := testserver.New(t)
	client := newClient(t, srv, "")

	auth, err := New("ec2-app",
		WithStaticCredentials("AKIDEXAMPLE", "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY", "session"),
		WithIAMServerIDHeader("vault.example.com"),
	)
	require.NoError(t, err)
	auth.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	info, err := client.Auth().Login(context.Background(), auth)
	require.NoError(t, err)
	assert.Equal(t, info.ClientToken, client.Token())
	assert.Equal(t, "ec2-app", info.Metadata["role"])

	req, ok := srv.LastRequest("auth/aws/login")
	require.True(t, ok)

	var body struct {
		Role    string `json:"role"`
		Method  string `json:"iam_http_request_method"`
		URL     string `json:"iam_request_url"`
		Body    string `json:"iam_request_body"`
		Headers string `json:"iam_request_headers"`
	}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "ec2-app", body.Role)
	assert.Equal(t, http.MethodPost, body.Method)

	rawURL, err := base64.StdEncoding.DecodeString(body.URL)
	require.NoError(t, err)
	u, err := url.Parse(string(rawURL))
	require.NoError(t, err)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "sts.amazonaws.com", u.Host)

	rawBody, err := base64.StdEncoding.DecodeString(body.Body)
	require.NoError(t, err)
	form, err := url.ParseQuery(string(rawBody))
	require.NoError(t, err)
	assert.Equal(t, "GetCallerIdentity", form.Get("Action"))
	assert.Equal(t, "2011-06-15", form.Get("Version"))

	rawHeaders, err := base64.StdEncoding.DecodeString(body.Headers)
	require.NoError(t, err)
	var headers http.Header
	require.NoError(t, json.Unmarshal(rawHeaders, &headers))

	authz := headers.Get("Authorization")
	assert.True(t, strings.HasPrefix(authz, "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20240501/us-east-1/sts/aws4_request"), authz)
	assert.Contains(t, authz, "x-vault-aws-iam-server-id")
	assert.Equal(t, "vault.example.com", headers.Get(IAMServerIDHeader))
	assert.Equal(t, "session", headers.Get("X-Amz-Security-Token"))
	assert.Equal(t, "20240501T120000Z", headers.Get("X-Amz-Date"))
}

type failingProvider struct{}

func (failingProvider) Retrieve(context.Context) (awssdk.Credentials, error) {
	return awssdk.Credentials{}, errors.New("no instance profile")
}

func TestLogin_CredentialsFailure(t *testing.T) {
	srv := testserver.New(t)
	client := newClient(t, srv, "previous")

	auth, err := New("role", WithCredentialsProvider(failingProvider{}))
	require.NoError(t, err)

	_, err = client.Auth().Login(context.Background(), auth)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrConfiguration)
	assert.Equal(t, "previous", client.Token())
	assert.Empty(t, srv.Requests())
}

func TestSignedRequest_Endpoint(t *testing.T) {
	auth, err := New("role",
		WithStaticCredentials("AKIDEXAMPLE", "secret", ""),
		WithRegion("eu-west-3"),
		WithSTSEndpoint("https://sts.internal.example"),
	)
	require.NoError(t, err)

	data, err := auth.signedRequest(context.Background())
	require.NoError(t, err)

	rawURL, err := base64.StdEncoding.DecodeString(data.URL)
	require.NoError(t, err)
	u, err := url.Parse(string(rawURL))
	require.NoError(t, err)
	assert.Equal(t, "sts.internal.example", u.Host)

	rawHeaders, err := base64.StdEncoding.DecodeString(data.Headers)
	require.NoError(t, err)
	var headers http.Header
	require.NoError(t, json.Unmarshal(rawHeaders, &headers))
	assert.Contains(t, headers.Get("Authorization"), "/eu-west-3/sts/aws4_request")
	assert.Empty(t, headers.Get(IAMServerIDHeader))
	assert.Empty(t, headers.Get("X-Amz-Security-Token"))
}
