package api

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-rootcerts"
	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"github.com/stephnangue/vaultclient/logger"
)

const (
	EnvVaultAddress       = "VAULT_ADDR"
	EnvVaultCACert        = "VAULT_CACERT"
	EnvVaultCACertBytes   = "VAULT_CACERT_BYTES"
	EnvVaultCAPath        = "VAULT_CAPATH"
	EnvVaultClientCert    = "VAULT_CLIENT_CERT"
	EnvVaultClientKey     = "VAULT_CLIENT_KEY"
	EnvVaultClientTimeout = "VAULT_CLIENT_TIMEOUT"
	EnvVaultSRVLookup     = "VAULT_SRV_LOOKUP"
	EnvVaultSkipVerify    = "VAULT_SKIP_VERIFY"
	EnvVaultNamespace     = "VAULT_NAMESPACE"
	EnvVaultTLSServerName = "VAULT_TLS_SERVER_NAME"
	EnvVaultToken         = "VAULT_TOKEN"
	EnvRateLimit          = "VAULT_RATE_LIMIT"
	EnvHTTPProxy          = "VAULT_HTTP_PROXY"
	EnvVaultProxyAddr     = "VAULT_PROXY_ADDR"

	TLSErrorString = "This error usually means that the server is running with TLS disabled\n" +
		"but the client is configured to use TLS. Please either enable TLS\n" +
		"on the server or run the client with -address set to an address\n" +
		"that uses the http protocol:\n\n" +
		"    vaultclient <command> -address http://<address>\n\n" +
		"You can also set the VAULT_ADDR environment variable:\n\n\n" +
		"    VAULT_ADDR=http://<address> vaultclient <command>\n\n" +
		"where <address> is replaced by the actual address to the server."
)

// WarningHandler receives the warnings a successful response carried.
// Warnings never turn a success into a failure.
type WarningHandler func(op Operation, warnings []string)

// Config is used to configure the creation of the client. A Config is a
// builder: NewClient validates it and copies what it needs, so changing a
// Config afterwards has no effect on clients already built from it.
type Config struct {
	modifyLock sync.RWMutex

	// Address is the address of the server. This should be a complete URL
	// such as "https://vault.example.com:8200". unix:// addresses are dialed
	// over the given socket.
	Address string

	// Token is the initial token of the client. It can be replaced later by
	// a login or SetToken.
	Token string

	// Namespace, when set, is sent as X-Vault-Namespace on every request.
	Namespace string

	// HttpClient is the HTTP client to use. DefaultConfig sets sane defaults
	// for the http.Client and its http.Transport. Start from that client and
	// modify as needed rather than from an empty client.
	HttpClient *http.Client

	// If there is an error when creating the configuration, this will be the
	// error. NewClient refuses a Config carrying an error.
	Error error

	// SRVLookup enables the client to lookup the host through DNS SRV lookup
	SRVLookup bool

	// Timeout, given a non-negative value, will apply the request timeout
	// to each request unless an earlier deadline is passed through
	// context.Context. Zero disables the client-side timeout.
	Timeout time.Duration

	// Limiter is the rate limiter used by the client.
	// If this pointer is nil, then there will be no limit set.
	Limiter *rate.Limiter

	// Logger receives request diagnostics and remote warnings. Defaults to a
	// logger that discards everything.
	Logger logger.Logger

	// MetricsRegisterer, when set, gets request counters and latencies.
	MetricsRegisterer prometheus.Registerer

	// WarningHandler, when set, is called with the warnings of every
	// successful response that carried some.
	WarningHandler WarningHandler

	clientTLSConfig *tls.Config
}

// TLSConfig contains the parameters needed to configure TLS on the HTTP client
// used to communicate with the server.
type TLSConfig struct {
	// CACert is the path to a PEM-encoded CA cert file to use to verify the
	// server SSL certificate. It takes precedence over CACertBytes and CAPath.
	CACert string

	// CACertBytes is a PEM-encoded certificate or bundle. It takes precedence
	// over CAPath.
	CACertBytes []byte

	// CAPath is the path to a directory of PEM-encoded CA cert files to verify
	// the server SSL certificate.
	CAPath string

	// ClientCert is the path to the certificate for TLS client authentication
	ClientCert string

	// ClientKey is the path to the private key for TLS client authentication
	ClientKey string

	// TLSServerName, if set, is used to set the SNI host when connecting via
	// TLS.
	TLSServerName string

	// Insecure enables or disables SSL verification
	Insecure bool
}

// DefaultConfig returns a default configuration for the client. It is
// safe to modify the return value of this function.
//
// The default Address is https://127.0.0.1:8200, but this can be overridden by
// setting the `VAULT_ADDR` environment variable.
//
// If an error is encountered, the Error field on the returned *Config will be
// populated with the specific error.
func DefaultConfig() *Config {
	config := &Config{
		Address:    "https://127.0.0.1:8200",
		HttpClient: cleanhttp.DefaultPooledClient(),
		Timeout:    time.Second * 60,
	}

	transport := config.HttpClient.Transport.(*http.Transport)
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.TLSClientConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		config.Error = err
		return config
	}

	if err := config.ReadEnvironment(); err != nil {
		config.Error = err
		return config
	}

	// Redirects are surfaced to the caller as responses, never followed.
	config.HttpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return config
}

// configureTLS is a lock free version of ConfigureTLS that can be used in
// ReadEnvironment where the lock is already held
func (c *Config) configureTLS(t *TLSConfig) error {
	if c.HttpClient == nil {
		c.HttpClient = DefaultConfig().HttpClient
	}
	transport, ok := c.HttpClient.Transport.(*http.Transport)
	if !ok {
		return errors.New("TLS can only be configured on an *http.Transport")
	}
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	clientTLSConfig := transport.TLSClientConfig

	var clientCert tls.Certificate
	foundClientCert := false

	switch {
	case t.ClientCert != "" && t.ClientKey != "":
		var err error
		clientCert, err = tls.LoadX509KeyPair(t.ClientCert, t.ClientKey)
		if err != nil {
			return err
		}
		foundClientCert = true
	case t.ClientCert != "" || t.ClientKey != "":
		return errors.New("both client cert and client key must be provided")
	}

	if t.CACert != "" || len(t.CACertBytes) != 0 || t.CAPath != "" {
		rootConfig := &rootcerts.Config{
			CAFile:        t.CACert,
			CACertificate: t.CACertBytes,
			CAPath:        t.CAPath,
		}
		if err := rootcerts.ConfigureTLS(clientTLSConfig, rootConfig); err != nil {
			return err
		}
	}

	if t.Insecure {
		clientTLSConfig.InsecureSkipVerify = true
	}

	if foundClientCert {
		// Ignore the server's preferential list of CAs, otherwise any CA used
		// for the cert auth backend must be in the server's CA pool
		clientTLSConfig.GetClientCertificate = func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
			return &clientCert, nil
		}
	}

	if t.TLSServerName != "" {
		clientTLSConfig.ServerName = t.TLSServerName
	}
	c.clientTLSConfig = clientTLSConfig

	return nil
}

func (c *Config) TLSConfig() *tls.Config {
	c.modifyLock.RLock()
	defer c.modifyLock.RUnlock()
	return c.clientTLSConfig.Clone()
}

// ConfigureTLS takes a set of TLS configurations and applies those to the
// HTTP client.
func (c *Config) ConfigureTLS(t *TLSConfig) error {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	return c.configureTLS(t)
}

// ReadEnvironment reads configuration information from the environment. If
// there is an error, no configuration value is updated.
func (c *Config) ReadEnvironment() error {
	var envAddress string
	var envCACert string
	var envCACertBytes []byte
	var envCAPath string
	var envClientCert string
	var envClientKey string
	var envClientTimeout time.Duration
	var envInsecure bool
	var envTLSServerName string
	var envSRVLookup bool
	var envNamespace string
	var envToken string
	var limit *rate.Limiter
	var envProxy string

	if v := ReadVaultVariable(EnvVaultAddress); v != "" {
		envAddress = v
	}
	if v := ReadVaultVariable(EnvVaultCACert); v != "" {
		envCACert = v
	}
	if v := ReadVaultVariable(EnvVaultCACertBytes); v != "" {
		envCACertBytes = []byte(v)
	}
	if v := ReadVaultVariable(EnvVaultCAPath); v != "" {
		envCAPath = v
	}
	if v := ReadVaultVariable(EnvVaultClientCert); v != "" {
		envClientCert = v
	}
	if v := ReadVaultVariable(EnvVaultClientKey); v != "" {
		envClientKey = v
	}
	if v := ReadVaultVariable(EnvRateLimit); v != "" {
		rateLimit, burstLimit, err := parseRateLimit(v)
		if err != nil {
			return err
		}
		limit = rate.NewLimiter(rate.Limit(rateLimit), burstLimit)
	}
	if t := ReadVaultVariable(EnvVaultClientTimeout); t != "" {
		clientTimeout, err := parseutil.ParseDurationSecond(t)
		if err != nil {
			return fmt.Errorf("could not parse %q", EnvVaultClientTimeout)
		}
		envClientTimeout = clientTimeout
	}
	if v := ReadVaultVariable(EnvVaultSkipVerify); v != "" {
		var err error
		envInsecure, err = strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("could not parse %s", EnvVaultSkipVerify)
		}
	}
	if v := ReadVaultVariable(EnvVaultSRVLookup); v != "" {
		var err error
		envSRVLookup, err = strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("could not parse %s", EnvVaultSRVLookup)
		}
	}
	if v := ReadVaultVariable(EnvVaultTLSServerName); v != "" {
		envTLSServerName = v
	}
	if v := ReadVaultVariable(EnvVaultNamespace); v != "" {
		envNamespace = v
	}
	if v := ReadVaultVariable(EnvVaultToken); v != "" {
		envToken = v
	}
	if v := ReadVaultVariable(EnvHTTPProxy); v != "" {
		envProxy = v
	}
	// VAULT_PROXY_ADDR supersedes VAULT_HTTP_PROXY
	if v := ReadVaultVariable(EnvVaultProxyAddr); v != "" {
		envProxy = v
	}

	t := &TLSConfig{
		CACert:        envCACert,
		CACertBytes:   envCACertBytes,
		CAPath:        envCAPath,
		ClientCert:    envClientCert,
		ClientKey:     envClientKey,
		TLSServerName: envTLSServerName,
		Insecure:      envInsecure,
	}

	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	if err := c.configureTLS(t); err != nil {
		return err
	}

	c.SRVLookup = envSRVLookup
	if limit != nil {
		c.Limiter = limit
	}
	if envAddress != "" {
		c.Address = envAddress
	}
	if envClientTimeout != 0 {
		c.Timeout = envClientTimeout
	}
	if envNamespace != "" {
		c.Namespace = envNamespace
	}
	if envToken != "" {
		c.Token = envToken
	}

	if envProxy != "" {
		u, err := url.Parse(envProxy)
		if err != nil {
			return err
		}

		transport := c.HttpClient.Transport.(*http.Transport)
		transport.Proxy = http.ProxyURL(u)
	}

	return nil
}

// parseAddress turns address into a url.URL. For unix:// addresses the
// transport of hc is pointed at the socket, so hc must be the client's own
// copy and never the one held by a Config.
func parseAddress(address string, hc *http.Client) (*url.URL, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "http", "https", "unix":
	default:
		return nil, fmt.Errorf("unsupported address scheme %q in %q", u.Scheme, address)
	}
	if u.Scheme != "unix" && u.Host == "" {
		return nil, fmt.Errorf("address %q has no host", address)
	}

	if strings.HasPrefix(address, "unix://") {
		socket := strings.TrimPrefix(address, "unix://")

		transport, ok := hc.Transport.(*http.Transport)
		if !ok {
			return nil, errors.New("attempting to specify unix:// address with non-transport transport")
		}
		transport.DialContext = func(context.Context, string, string) (net.Conn, error) {
			return net.Dial("unix", socket)
		}

		// The URL must describe the application protocol, not the
		// transport, so rewrite it to plain http on localhost.
		u.Scheme = "http"
		u.Host = "localhost"
		u.Path = ""
	}

	return u, nil
}

// copyHTTPClient returns a copy of hc sharing no mutable state with it. An
// *http.Transport is cloned together with its TLS configuration; a nil
// transport is replaced by def.
func copyHTTPClient(hc *http.Client, def http.RoundTripper) *http.Client {
	cp := *hc
	if cp.Transport == nil {
		cp.Transport = def
	}
	if t, ok := cp.Transport.(*http.Transport); ok {
		cp.Transport = t.Clone()
	}
	return &cp
}

func parseRateLimit(val string) (rate float64, burst int, err error) {
	_, err = fmt.Sscanf(val, "%f:%d", &rate, &burst)
	if err != nil {
		rate, err = strconv.ParseFloat(val, 64)
		if err != nil {
			err = fmt.Errorf("%v was provided but incorrectly formatted", EnvRateLimit)
		}
		burst = int(rate)
	}

	return rate, burst, err
}
