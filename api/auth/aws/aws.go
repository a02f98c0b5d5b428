// Package aws implements login through the AWS auth method with the IAM
// flow: the client signs an sts:GetCallerIdentity request and the server
// replays it to learn who the caller is.
package aws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/stephnangue/vaultclient/api"
)

const (
	DefaultMountPath = "aws"
	DefaultRegion    = "us-east-1"

	// IAMServerIDHeader binds the signed request to one server.
	IAMServerIDHeader = "X-Vault-AWS-IAM-Server-ID"
)

var (
	ErrNoRoleName       = errors.New("no role name specified")
	ErrNoCredentials    = errors.New("no AWS credentials provider configured")
	ErrInvalidMountPath = errors.New("invalid auth method mount path specified")

	// errRequestCaptured stops the STS call once the request is signed.
	errRequestCaptured = errors.New("signed request captured")
)

type AWSAuth struct {
	roleName    string
	mountPath   string
	region      string
	stsEndpoint string
	serverIDHdr string
	provider    awssdk.CredentialsProvider
	now         func() time.Time
}

var _ api.AuthMethod = &AWSAuth{}

type LoginOption func(a *AWSAuth) error

// New creates an AWSAuth for roleName. Credentials must be supplied through
// WithCredentialsProvider or WithStaticCredentials.
func New(roleName string, opts ...LoginOption) (*AWSAuth, error) {
	if roleName == "" {
		return nil, ErrNoRoleName
	}

	a := &AWSAuth{
		roleName:  roleName,
		mountPath: DefaultMountPath,
		region:    DefaultRegion,
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if a.mountPath == "" {
		return nil, ErrInvalidMountPath
	}
	if a.provider == nil {
		return nil, ErrNoCredentials
	}
	if a.stsEndpoint == "" {
		a.stsEndpoint = stsEndpointFor(a.region)
	}
	return a, nil
}

// WithMountPath sets the mount path of the auth method.
func WithMountPath(mountPath string) LoginOption {
	return func(a *AWSAuth) error {
		a.mountPath = strings.Trim(mountPath, "/")
		return nil
	}
}

// WithRegion sets the region used to sign and the regional STS endpoint.
func WithRegion(region string) LoginOption {
	return func(a *AWSAuth) error {
		if region == "" {
			return errors.New("region is empty")
		}
		a.region = region
		return nil
	}
}

// WithSTSEndpoint overrides the STS endpoint the signed request targets.
func WithSTSEndpoint(endpoint string) LoginOption {
	return func(a *AWSAuth) error {
		a.stsEndpoint = endpoint
		return nil
	}
}

// WithIAMServerIDHeader signs the given server ID into the request.
func WithIAMServerIDHeader(serverID string) LoginOption {
	return func(a *AWSAuth) error {
		a.serverIDHdr = serverID
		return nil
	}
}

// WithCredentialsProvider uses provider to obtain credentials at login.
func WithCredentialsProvider(provider awssdk.CredentialsProvider) LoginOption {
	return func(a *AWSAuth) error {
		a.provider = provider
		return nil
	}
}

// WithStaticCredentials uses a fixed access key.
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) LoginOption {
	return func(a *AWSAuth) error {
		if accessKeyID == "" || secretAccessKey == "" {
			return errors.New("access key ID and secret access key are required")
		}
		a.provider = credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, sessionToken)
		return nil
	}
}

func stsEndpointFor(region string) string {
	if region == DefaultRegion {
		return "https://sts.amazonaws.com"
	}
	return fmt.Sprintf("https://sts.%s.amazonaws.com", region)
}

// Login signs a GetCallerIdentity request and sends it to the server.
func (a *AWSAuth) Login(ctx context.Context, client *api.Client) (*api.AuthInfo, error) {
	data, err := a.signedRequest(ctx)
	if err != nil {
		return nil, api.NewError(api.KindConfiguration, "aws login", err)
	}
	data.mountPath = a.mountPath
	data.Role = a.roleName

	return api.Execute[*api.AuthInfo](ctx, client, data)
}

// signedRequest builds sts:GetCallerIdentity with the STS client and keeps
// the signed HTTP request instead of sending it.
func (a *AWSAuth) signedRequest(ctx context.Context) (*loginEndpoint, error) {
	client := sts.NewFromConfig(awssdk.Config{
		Region:      a.region,
		Credentials: a.provider,
		Retryer:     func() awssdk.Retryer { return awssdk.NopRetryer{} },
	}, func(o *sts.Options) {
		o.BaseEndpoint = awssdk.String(a.stsEndpoint)
		o.HTTPSignerV4 = clockSigner{signer: v4.NewSigner(), now: a.now}
	})

	var captured *smithyhttp.Request
	_, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}, func(o *sts.Options) {
		if a.serverIDHdr != "" {
			o.APIOptions = append(o.APIOptions, smithyhttp.AddHeaderValue(IAMServerIDHeader, a.serverIDHdr))
		}
		o.APIOptions = append(o.APIOptions, captureSignedRequest(&captured))
	})
	if !errors.Is(err, errRequestCaptured) {
		if err == nil {
			err = errors.New("request was sent instead of captured")
		}
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	req := captured.Build(ctx)
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read signed body: %w", err)
	}

	headers, err := json.Marshal(req.Header)
	if err != nil {
		return nil, err
	}

	return &loginEndpoint{
		Method:  req.Method,
		URL:     base64.StdEncoding.EncodeToString([]byte(req.URL.String())),
		Body:    base64.StdEncoding.EncodeToString(body),
		Headers: base64.StdEncoding.EncodeToString(headers),
	}, nil
}

// captureSignedRequest runs last in the finalize step, after signing, and
// ends the operation with errRequestCaptured.
func captureSignedRequest(out **smithyhttp.Request) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Finalize.Add(middleware.FinalizeMiddlewareFunc("CaptureSignedRequest",
			func(ctx context.Context, in middleware.FinalizeInput, next middleware.FinalizeHandler) (middleware.FinalizeOutput, middleware.Metadata, error) {
				req, ok := in.Request.(*smithyhttp.Request)
				if !ok {
					return middleware.FinalizeOutput{}, middleware.Metadata{}, fmt.Errorf("unexpected request type %T", in.Request)
				}
				*out = req
				return middleware.FinalizeOutput{}, middleware.Metadata{}, errRequestCaptured
			}), middleware.After)
	}
}

// clockSigner signs with the time given by now.
type clockSigner struct {
	signer *v4.Signer
	now    func() time.Time
}

func (s clockSigner) SignHTTP(ctx context.Context, creds awssdk.Credentials, r *http.Request, payloadHash, service, region string, _ time.Time, optFns ...func(*v4.SignerOptions)) error {
	return s.signer.SignHTTP(ctx, creds, r, payloadHash, service, region, s.now(), optFns...)
}

type loginEndpoint struct {
	mountPath string

	Role    string `json:"role"`
	Method  string `json:"iam_http_request_method"`
	URL     string `json:"iam_request_url"`
	Body    string `json:"iam_request_body"`
	Headers string `json:"iam_request_headers"`
}

func (e *loginEndpoint) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: "auth/" + e.mountPath + "/login", Body: e}
}

func (*loginEndpoint) Decode(r *api.Resource) (*api.AuthInfo, error) {
	return api.DecodeAuth(r)
}
