package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/stephnangue/vaultclient/logger"
)

// Client is the client to the secrets service. Create a client with
// NewClient.
//
// A Client is safe for concurrent use. Its connection settings are fixed at
// construction; the current token is the only mutable state.
type Client struct {
	modifyLock sync.RWMutex
	token      string

	settings *settings
}

// settings is the validated, immutable snapshot of a Config.
type settings struct {
	addr       *url.URL
	namespace  string
	timeout    time.Duration
	srvLookup  bool
	limiter    *rate.Limiter
	httpClient *http.Client
	transport  *retryablehttp.Client
	logger     logger.Logger
	metrics    *requestMetrics
	onWarnings WarningHandler
}

// NewClient returns a new client for the given configuration.
//
// If the configuration is nil, the client uses DefaultConfig. Every problem
// with the configuration is reported as a KindConfiguration ClientError.
func NewClient(c *Config) (*Client, error) {
	def := DefaultConfig()
	if def == nil {
		return nil, configError("new client", "could not create default config")
	}

	if c == nil {
		c = def
	}

	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	if c.Error != nil {
		return nil, &ClientError{Kind: KindConfiguration, Op: "new client", Err: c.Error}
	}
	if c.Address == "" {
		return nil, configError("new client", "no address configured")
	}
	if c.Timeout < 0 {
		return nil, configError("new client", "timeout must not be negative, got %s", c.Timeout)
	}

	hc := c.HttpClient
	if hc == nil {
		hc = def.HttpClient
	}
	// The client owns its transport. Later changes to c, such as a call to
	// ConfigureTLS, must not reach it.
	hc = copyHTTPClient(hc, def.HttpClient.Transport)

	u, err := parseAddress(c.Address, hc)
	if err != nil {
		return nil, &ClientError{Kind: KindConfiguration, Op: "new client", Err: err}
	}

	log := c.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	metrics, err := newRequestMetrics(c.MetricsRegisterer)
	if err != nil {
		return nil, &ClientError{Kind: KindConfiguration, Op: "new client", Err: err}
	}

	s := &settings{
		addr:       u,
		namespace:  c.Namespace,
		timeout:    c.Timeout,
		srvLookup:  c.SRVLookup,
		limiter:    c.Limiter,
		httpClient: hc,
		logger:     log,
		metrics:    metrics,
		onWarnings: c.WarningHandler,
	}
	s.transport = &retryablehttp.Client{
		HTTPClient:   hc,
		RetryMax:     0,
		CheckRetry:   neverRetry,
		Backoff:      retryablehttp.LinearJitterBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
		Logger:       logger.NewHCLogAdapter(log.WithSubsystem("http")),
	}

	return &Client{
		token:    c.Token,
		settings: s,
	}, nil
}

// neverRetry keeps every request to exactly one HTTP call. Callers decide
// whether and when to try again.
func neverRetry(context.Context, *http.Response, error) (bool, error) {
	return false, nil
}

// Address returns the server URL the client is configured to connect to.
func (c *Client) Address() string {
	return c.settings.addr.String()
}

// Namespace returns the namespace sent with every request, if any.
func (c *Client) Namespace() string {
	return c.settings.namespace
}

// ClientTimeout returns the per-request timeout.
func (c *Client) ClientTimeout() time.Duration {
	return c.settings.timeout
}

// Logger returns the logger the client writes to.
func (c *Client) Logger() logger.Logger {
	return c.settings.logger
}

// WithNamespace returns an independent client that sends the given namespace.
// The new client starts with the current token; later token changes on
// either client do not affect the other.
func (c *Client) WithNamespace(namespace string) *Client {
	s := *c.settings
	s.namespace = namespace
	return &Client{
		token:    c.Token(),
		settings: &s,
	}
}

// Token returns the access token being used by this client. It will
// return the empty string if there is no token set.
func (c *Client) Token() string {
	c.modifyLock.RLock()
	defer c.modifyLock.RUnlock()
	return c.token
}

// SetToken sets the token directly. This won't perform any auth
// verification, it simply sets the token properly for future requests.
func (c *Client) SetToken(v string) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()
	c.token = v
}

// ClearToken deletes the token if it is set or does nothing otherwise.
func (c *Client) ClearToken() {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()
	c.token = ""
}

// NewRequest creates a new raw request object to query the server configured
// for this client. requestPath is relative to /v1/. The request carries the
// token held at the time of the call.
func (c *Client) NewRequest(method, requestPath string) *Request {
	addr := c.settings.addr
	token := c.Token()

	host := addr.Host
	// if SRV records exist (see https://tools.ietf.org/html/draft-andrews-http-srv-02), lookup the SRV
	// record and take the highest match; this is not designed for high-availability, just discovery
	// Internet Draft specifies that the SRV record is ignored if a port is given
	if addr.Port() == "" && c.settings.srvLookup {
		_, addrs, err := net.LookupSRV("http", "tcp", addr.Hostname())
		if err == nil && len(addrs) > 0 {
			host = fmt.Sprintf("%s:%d", addrs[0].Target, addrs[0].Port)
		}
	}

	p := path.Join(addr.Path, "/v1", requestPath)
	if strings.HasSuffix(requestPath, "/") {
		p += "/"
	}

	req := &Request{
		Method: method,
		URL: &url.URL{
			User:   addr.User,
			Scheme: addr.Scheme,
			Host:   host,
			Path:   p,
		},
		Host:        addr.Host,
		ClientToken: token,
		Namespace:   c.settings.namespace,
		Params:      make(url.Values),
	}

	return req
}

// withConfiguredTimeout wraps the context with the client timeout. A context
// that already carries an earlier deadline keeps it.
func (c *Client) withConfiguredTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := c.settings.timeout; timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
