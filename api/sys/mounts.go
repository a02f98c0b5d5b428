package sys

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stephnangue/vaultclient/api"
)

var errNoPath = errors.New("mount path is empty")

type MountInput struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Config      MountConfigInput  `json:"config"`
	Local       bool              `json:"local,omitempty"`
	SealWrap    bool              `json:"seal_wrap,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
}

type MountConfigInput struct {
	DefaultLeaseTTL   string `json:"default_lease_ttl,omitempty"`
	MaxLeaseTTL       string `json:"max_lease_ttl,omitempty"`
	Description       string `json:"description,omitempty"`
	ListingVisibility string `json:"listing_visibility,omitempty"`
}

type MountOutput struct {
	Type           string            `json:"type"`
	Description    string            `json:"description"`
	Accessor       string            `json:"accessor"`
	Config         MountConfigOutput `json:"config"`
	Local          bool              `json:"local"`
	SealWrap       bool              `json:"seal_wrap"`
	Options        map[string]string `json:"options"`
	RunningVersion string            `json:"running_plugin_version"`
}

// MountConfigOutput holds lease settings. The server reports them in
// seconds.
type MountConfigOutput struct {
	DefaultLeaseTTL   time.Duration `json:"default_lease_ttl"`
	MaxLeaseTTL       time.Duration `json:"max_lease_ttl"`
	ForceNoCache      bool          `json:"force_no_cache"`
	ListingVisibility string        `json:"listing_visibility"`
}

// ListMounts lists the secret engines mounted on the server, keyed by path.
type ListMounts struct{}

func (ListMounts) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: "sys/mounts"}
}

func (ListMounts) Decode(r *api.Resource) (map[string]*MountOutput, error) {
	return api.DecodeMapData[map[string]*MountOutput](r)
}

// EnableMount mounts a secret engine at Path.
type EnableMount struct {
	Path  string
	Input MountInput
}

func (e EnableMount) Validate() error {
	if trimPath(e.Path) == "" {
		return errNoPath
	}
	if e.Input.Type == "" {
		return errors.New("mount type is empty")
	}
	return nil
}

func (e EnableMount) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: "sys/mounts/" + trimPath(e.Path), Body: e.Input}
}

func (EnableMount) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// DisableMount unmounts the secret engine at Path.
type DisableMount struct {
	Path string
}

func (e DisableMount) Validate() error {
	if trimPath(e.Path) == "" {
		return errNoPath
	}
	return nil
}

func (e DisableMount) Operation() api.Operation {
	return api.Operation{Method: http.MethodDelete, Path: "sys/mounts/" + trimPath(e.Path)}
}

func (DisableMount) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// ReadMount returns the mount at Path.
type ReadMount struct {
	Path string
}

func (e ReadMount) Validate() error {
	if trimPath(e.Path) == "" {
		return errNoPath
	}
	return nil
}

func (e ReadMount) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: "sys/mounts/" + trimPath(e.Path)}
}

func (ReadMount) Decode(r *api.Resource) (*MountOutput, error) {
	out, err := api.DecodeMapData[MountOutput](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadMountTune returns the tunable settings of the mount at Path.
type ReadMountTune struct {
	Path string
}

func (e ReadMountTune) Validate() error {
	if trimPath(e.Path) == "" {
		return errNoPath
	}
	return nil
}

func (e ReadMountTune) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: "sys/mounts/" + trimPath(e.Path) + "/tune"}
}

func (ReadMountTune) Decode(r *api.Resource) (*MountConfigOutput, error) {
	out, err := api.DecodeMapData[MountConfigOutput](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// TuneMount updates the tunable settings of the mount at Path.
type TuneMount struct {
	Path   string
	Config MountConfigInput
}

func (e TuneMount) Validate() error {
	if trimPath(e.Path) == "" {
		return errNoPath
	}
	return nil
}

func (e TuneMount) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: "sys/mounts/" + trimPath(e.Path) + "/tune", Body: e.Config}
}

func (TuneMount) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

func trimPath(p string) string {
	return strings.Trim(p, "/")
}
