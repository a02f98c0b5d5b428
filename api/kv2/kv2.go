// Package kv2 holds the endpoints of the versioned key/value secret engine.
// Paths are given relative to the mount; the data/ and metadata/ prefixes
// are added by each endpoint.
package kv2

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stephnangue/vaultclient/api"
)

// DefaultMountPath is where the engine is mounted when Mount is empty.
const DefaultMountPath = "secret"

var (
	errNoPath     = errors.New("secret path is empty")
	errNoVersions = errors.New("no versions specified")
)

func enginePath(mount, prefix, p string) string {
	mount = strings.Trim(mount, "/")
	if mount == "" {
		mount = DefaultMountPath
	}
	return mount + "/" + prefix + "/" + strings.TrimLeft(p, "/")
}

func validatePath(p string) error {
	if strings.Trim(p, "/") == "" {
		return errNoPath
	}
	return nil
}

// VersionMetadata describes one version of a secret.
type VersionMetadata struct {
	CreatedTime    time.Time         `json:"created_time"`
	DeletionTime   string            `json:"deletion_time"`
	Destroyed      bool              `json:"destroyed"`
	Version        int               `json:"version"`
	CustomMetadata map[string]string `json:"custom_metadata"`
}

// Secret is a versioned secret with its payload decoded into T.
type Secret[T any] struct {
	Data     T               `json:"data"`
	Metadata VersionMetadata `json:"metadata"`
}

// Read returns the latest version of the secret at Path, or Version when it
// is non-zero.
type Read[T any] struct {
	Mount   string
	Path    string
	Version int
}

func (e Read[T]) Validate() error { return validatePath(e.Path) }

func (e Read[T]) Operation() api.Operation {
	op := api.Operation{Method: http.MethodGet, Path: enginePath(e.Mount, "data", e.Path)}
	if e.Version > 0 {
		op.Params = url.Values{"version": {strconv.Itoa(e.Version)}}
	}
	return op
}

func (e Read[T]) Decode(r *api.Resource) (*Secret[T], error) {
	out, err := api.DecodeData[Secret[T]](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Write stores Data as a new version of the secret at Path. A non-nil CAS
// makes the write conditional on the current version; 0 means the secret
// must not exist yet.
type Write struct {
	Mount string
	Path  string
	Data  any
	CAS   *int
}

func (e Write) Validate() error {
	if err := validatePath(e.Path); err != nil {
		return err
	}
	if e.Data == nil {
		return errors.New("no data to write")
	}
	return nil
}

func (e Write) Operation() api.Operation {
	body := map[string]any{"data": e.Data}
	if e.CAS != nil {
		body["options"] = map[string]any{"cas": *e.CAS}
	}
	return api.Operation{Method: http.MethodPost, Path: enginePath(e.Mount, "data", e.Path), Body: body}
}

func (Write) Decode(r *api.Resource) (*VersionMetadata, error) {
	out, err := api.DecodeData[VersionMetadata](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Patch merges Data into the latest version of the secret at Path.
type Patch struct {
	Mount string
	Path  string
	Data  map[string]any
	CAS   *int
}

func (e Patch) Validate() error {
	if err := validatePath(e.Path); err != nil {
		return err
	}
	if len(e.Data) == 0 {
		return errors.New("no data to patch")
	}
	return nil
}

func (e Patch) Operation() api.Operation {
	body := map[string]any{"data": e.Data}
	if e.CAS != nil {
		body["options"] = map[string]any{"cas": *e.CAS}
	}
	return api.Operation{
		Method: http.MethodPatch,
		Path:   enginePath(e.Mount, "data", e.Path),
		Body:   body,
		Header: http.Header{"Content-Type": {"application/merge-patch+json"}},
	}
}

func (Patch) Decode(r *api.Resource) (*VersionMetadata, error) {
	out, err := api.DecodeData[VersionMetadata](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete soft-deletes the latest version of the secret at Path, or the given
// Versions.
type Delete struct {
	Mount    string
	Path     string
	Versions []int
}

func (e Delete) Validate() error { return validatePath(e.Path) }

func (e Delete) Operation() api.Operation {
	if len(e.Versions) == 0 {
		return api.Operation{Method: http.MethodDelete, Path: enginePath(e.Mount, "data", e.Path)}
	}
	return api.Operation{
		Method: http.MethodPost,
		Path:   enginePath(e.Mount, "delete", e.Path),
		Body:   map[string]any{"versions": e.Versions},
	}
}

func (Delete) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// Undelete restores soft-deleted Versions of the secret at Path.
type Undelete struct {
	Mount    string
	Path     string
	Versions []int
}

func (e Undelete) Validate() error {
	if err := validatePath(e.Path); err != nil {
		return err
	}
	if len(e.Versions) == 0 {
		return errNoVersions
	}
	return nil
}

func (e Undelete) Operation() api.Operation {
	return api.Operation{
		Method: http.MethodPost,
		Path:   enginePath(e.Mount, "undelete", e.Path),
		Body:   map[string]any{"versions": e.Versions},
	}
}

func (Undelete) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// Destroy permanently removes Versions of the secret at Path.
type Destroy struct {
	Mount    string
	Path     string
	Versions []int
}

func (e Destroy) Validate() error {
	if err := validatePath(e.Path); err != nil {
		return err
	}
	if len(e.Versions) == 0 {
		return errNoVersions
	}
	return nil
}

func (e Destroy) Operation() api.Operation {
	return api.Operation{
		Method: http.MethodPut,
		Path:   enginePath(e.Mount, "destroy", e.Path),
		Body:   map[string]any{"versions": e.Versions},
	}
}

func (Destroy) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// List returns the keys under Path.
type List struct {
	Mount string
	Path  string
}

func (e List) Operation() api.Operation {
	p := enginePath(e.Mount, "metadata", e.Path)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return api.Operation{Method: api.MethodList, Path: p}
}

func (List) Decode(r *api.Resource) ([]string, error) {
	out, err := api.DecodeData[struct {
		Keys []string `json:"keys"`
	}](r)
	if err != nil {
		return nil, err
	}
	return out.Keys, nil
}
