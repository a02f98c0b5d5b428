package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/logger"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	tokenFile := writeFile(t, "token", "s.abcdef\n")
	path := writeFile(t, "client.hcl", `
address    = "https://vault.internal:8200"
namespace  = "team-a"
token_file = "`+tokenFile+`"
timeout    = "30s"
rate_limit = 5

log_level = "debug"
log_format = "json"
log_file = "`+filepath.Join(t.TempDir(), "client.log")+`"
log_rotate_max_files = 9

tls {
  server_name = "vault.internal"
  insecure    = true
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://vault.internal:8200", cfg.Address)
	assert.Equal(t, "team-a", cfg.Namespace)
	require.NotNil(t, cfg.TLS)
	assert.True(t, cfg.TLS.Insecure)

	apiCfg := api.DefaultConfig()
	require.NoError(t, cfg.Apply(apiCfg))
	assert.Equal(t, "https://vault.internal:8200", apiCfg.Address)
	assert.Equal(t, "team-a", apiCfg.Namespace)
	assert.Equal(t, "s.abcdef", apiCfg.Token)
	assert.Equal(t, 30*time.Second, apiCfg.Timeout)
	require.NotNil(t, apiCfg.Limiter)
	assert.Equal(t, 5, apiCfg.Limiter.Burst())

	tlsCfg := apiCfg.TLSConfig()
	require.NotNil(t, tlsCfg)
	assert.True(t, tlsCfg.InsecureSkipVerify)
	assert.Equal(t, "vault.internal", tlsCfg.ServerName)

	lc := cfg.LoggerConfig()
	assert.Equal(t, logger.DebugLevel, lc.Level)
	assert.Equal(t, logger.JSONFormat, lc.Format)
	require.NotNil(t, lc.FileConfig)
	assert.Equal(t, 9, lc.FileConfig.MaxBackups)
	assert.Equal(t, 10, lc.FileConfig.MaxSize)
}

func TestLoadConfig_Empty(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "empty.hcl", ""))
	require.NoError(t, err)

	apiCfg := api.DefaultConfig()
	before := apiCfg.Address
	require.NoError(t, cfg.Apply(apiCfg))
	assert.Equal(t, before, apiCfg.Address)
	assert.Nil(t, apiCfg.Limiter)

	lc := cfg.LoggerConfig()
	assert.Equal(t, logger.InfoLevel, lc.Level)
	assert.Nil(t, lc.FileConfig)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad timeout", `timeout = "soon"`, "invalid timeout"},
		{"negative rate", `rate_limit = -1`, "rate_limit"},
		{"bad log format", `log_format = "xml"`, "unsupported log_format"},
		{"unpaired client cert", "tls {\n client_cert = \"c.pem\"\n}", "client_cert and client_key"},
		{"unknown attribute", `listener = "tcp"`, "Unsupported argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "bad.hcl", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	assert.Error(t, err)
}

func TestApply_MissingTokenFile(t *testing.T) {
	cfg := &Config{TokenFile: filepath.Join(t.TempDir(), "absent")}
	err := cfg.Apply(api.DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token file")
}
