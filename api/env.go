package api

import (
	"os"
	"strings"
)

const (
	VaultEnvPrefix = "VAULT_"
)

// ReadVaultVariable returns the value of a VAULT_ prefixed environment
// variable. Any other name yields the empty string.
func ReadVaultVariable(name string) string {
	if strings.HasPrefix(name, VaultEnvPrefix) {
		return os.Getenv(name)
	}
	return ""
}
