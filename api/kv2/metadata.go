package kv2

import (
	"net/http"
	"time"

	"github.com/stephnangue/vaultclient/api"
)

// Metadata is the version history and settings of a secret.
type Metadata struct {
	CASRequired        bool                       `json:"cas_required"`
	CreatedTime        time.Time                  `json:"created_time"`
	CurrentVersion     int                        `json:"current_version"`
	CustomMetadata     map[string]string          `json:"custom_metadata"`
	DeleteVersionAfter string                     `json:"delete_version_after"`
	MaxVersions        int                        `json:"max_versions"`
	OldestVersion      int                        `json:"oldest_version"`
	UpdatedTime        time.Time                  `json:"updated_time"`
	Versions           map[string]VersionMetadata `json:"versions"`
}

// MetadataInput updates the settings of a secret. Zero fields are left out.
type MetadataInput struct {
	MaxVersions        int               `json:"max_versions,omitempty"`
	CASRequired        bool              `json:"cas_required,omitempty"`
	DeleteVersionAfter string            `json:"delete_version_after,omitempty"`
	CustomMetadata     map[string]string `json:"custom_metadata,omitempty"`
}

// ReadMetadata returns the metadata of the secret at Path.
type ReadMetadata struct {
	Mount string
	Path  string
}

func (e ReadMetadata) Validate() error { return validatePath(e.Path) }

func (e ReadMetadata) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: enginePath(e.Mount, "metadata", e.Path)}
}

func (ReadMetadata) Decode(r *api.Resource) (*Metadata, error) {
	out, err := api.DecodeData[Metadata](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// WriteMetadata updates the settings of the secret at Path.
type WriteMetadata struct {
	Mount string
	Path  string
	Input MetadataInput
}

func (e WriteMetadata) Validate() error { return validatePath(e.Path) }

func (e WriteMetadata) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: enginePath(e.Mount, "metadata", e.Path), Body: e.Input}
}

func (WriteMetadata) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// DeleteMetadata removes the secret at Path with all its versions.
type DeleteMetadata struct {
	Mount string
	Path  string
}

func (e DeleteMetadata) Validate() error { return validatePath(e.Path) }

func (e DeleteMetadata) Operation() api.Operation {
	return api.Operation{Method: http.MethodDelete, Path: enginePath(e.Mount, "metadata", e.Path)}
}

func (DeleteMetadata) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }
