package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"golang.org/x/time/rate"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/logger"
)

// Config is the configuration file of the vaultclient CLI. Values set in
// the file override the environment; command line flags override both.
type Config struct {
	Address   string  `hcl:"address,optional"`
	Namespace string  `hcl:"namespace,optional"`
	TokenFile string  `hcl:"token_file,optional"`
	Timeout   string  `hcl:"timeout,optional"`
	RateLimit float64 `hcl:"rate_limit,optional"`
	RateBurst int     `hcl:"rate_burst,optional"`
	SRVLookup bool    `hcl:"srv_lookup,optional"`

	LogLevel           string `hcl:"log_level,optional"`
	LogFormat          string `hcl:"log_format,optional"`
	LogFile            string `hcl:"log_file,optional"`
	LogRotateMegabytes int    `hcl:"log_rotate_megabytes,optional"`
	LogRotateMaxFiles  int    `hcl:"log_rotate_max_files,optional"`

	TLS *TLSBlock `hcl:"tls,block"`
}

// TLSBlock holds the trust material used to reach the server.
type TLSBlock struct {
	CACert     string `hcl:"ca_cert,optional"`
	CAPath     string `hcl:"ca_path,optional"`
	ClientCert string `hcl:"client_cert,optional"`
	ClientKey  string `hcl:"client_key,optional"`
	ServerName string `hcl:"server_name,optional"`
	Insecure   bool   `hcl:"insecure,optional"`
}

// LoadConfig reads and validates an HCL configuration file.
func LoadConfig(configFile string) (*Config, error) {
	var config Config

	if err := hclsimple.DecodeFile(configFile, nil, &config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configFile, err)
	}
	return &config, nil
}

// Validate checks the values hclsimple cannot check by itself.
func (c *Config) Validate() error {
	if c.Timeout != "" {
		d, err := parseutil.ParseDurationSecond(c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("timeout must not be negative")
		}
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "default", "console", "text":
	default:
		return fmt.Errorf("unsupported log_format %q", c.LogFormat)
	}
	if c.TLS != nil && (c.TLS.ClientCert == "") != (c.TLS.ClientKey == "") {
		return fmt.Errorf("tls: client_cert and client_key must be set together")
	}
	return nil
}

// Apply copies the file settings onto cfg. Empty values leave cfg as it
// is. The token file, when set, is read and its trimmed content becomes the
// token.
func (c *Config) Apply(cfg *api.Config) error {
	if c.Address != "" {
		cfg.Address = c.Address
	}
	if c.Namespace != "" {
		cfg.Namespace = c.Namespace
	}
	if c.SRVLookup {
		cfg.SRVLookup = true
	}
	if c.Timeout != "" {
		d, err := parseutil.ParseDurationSecond(c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
		}
		cfg.Timeout = d
	}
	if c.RateLimit > 0 {
		burst := c.RateBurst
		if burst <= 0 {
			burst = int(c.RateLimit)
		}
		if burst < 1 {
			burst = 1
		}
		cfg.Limiter = rate.NewLimiter(rate.Limit(c.RateLimit), burst)
	}
	if c.TokenFile != "" {
		b, err := os.ReadFile(c.TokenFile)
		if err != nil {
			return fmt.Errorf("failed to read token file: %w", err)
		}
		cfg.Token = strings.TrimSpace(string(b))
	}
	if c.TLS != nil {
		err := cfg.ConfigureTLS(&api.TLSConfig{
			CACert:        c.TLS.CACert,
			CAPath:        c.TLS.CAPath,
			ClientCert:    c.TLS.ClientCert,
			ClientKey:     c.TLS.ClientKey,
			TLSServerName: c.TLS.ServerName,
			Insecure:      c.TLS.Insecure,
		})
		if err != nil {
			return fmt.Errorf("tls: %w", err)
		}
	}
	return nil
}

// LoggerConfig returns the logger settings described by the file, starting
// from the CLI defaults.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	if c.LogLevel != "" {
		lc.Level = logger.ParseLogLevel(c.LogLevel)
	}
	if c.LogFormat != "" {
		lc.Format = logger.ParseOutputFormat(c.LogFormat)
	}
	if c.LogFile != "" {
		fc := logger.DefaultFileConfig(c.LogFile)
		if c.LogRotateMegabytes > 0 {
			fc.MaxSize = c.LogRotateMegabytes
		}
		if c.LogRotateMaxFiles > 0 {
			fc.MaxBackups = c.LogRotateMaxFiles
		}
		lc.FileConfig = fc
	}
	return lc
}
