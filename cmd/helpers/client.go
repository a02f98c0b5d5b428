package helpers

import (
	"fmt"
	"sync"

	"github.com/stephnangue/vaultclient/api"
	"github.com/stephnangue/vaultclient/config"
	"github.com/stephnangue/vaultclient/logger"
)

// Global flags shared by every command. They are bound by the root command.
var (
	FlagAddress   string
	FlagNamespace string
	FlagConfig    string
	FlagFormat    string
	FlagLogLevel  string
)

var (
	mu sync.Mutex
	c  *api.Client
)

// Client builds the API client from the environment, the configuration file
// and the global flags, in increasing order of precedence. The client is
// built once per process.
func Client() (*api.Client, error) {
	mu.Lock()
	defer mu.Unlock()

	// Read the test client if present
	if c != nil {
		return c, nil
	}

	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("failed to read environment: %w", cfg.Error)
	}

	lc := logger.DefaultConfig()
	lc.Level = logger.WarnLevel
	if FlagConfig != "" {
		file, err := config.LoadConfig(FlagConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := file.Apply(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply config: %w", err)
		}
		lc = file.LoggerConfig()
		if file.LogLevel == "" {
			lc.Level = logger.WarnLevel
		}
	}
	if FlagLogLevel != "" {
		lc.Level = logger.ParseLogLevel(FlagLogLevel)
	}
	cfg.Logger = logger.NewZerologLogger(lc).WithSubsystem("cli")

	if FlagAddress != "" {
		cfg.Address = FlagAddress
	}
	if FlagNamespace != "" {
		cfg.Namespace = FlagNamespace
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	c = client
	return client, nil
}

// SetClient replaces the process client. Tests use it to point commands at
// a fake server; passing nil makes the next Client call build a new one.
func SetClient(client *api.Client) {
	mu.Lock()
	defer mu.Unlock()
	c = client
}
