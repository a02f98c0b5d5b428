package sys

import (
	"net/http"

	"github.com/stephnangue/vaultclient/api"
)

// Auth mounts share the shape of secret engine mounts.
type (
	AuthMountInput  = MountInput
	AuthMountOutput = MountOutput
)

// ListAuth lists the enabled auth methods, keyed by path.
type ListAuth struct{}

func (ListAuth) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: "sys/auth"}
}

func (ListAuth) Decode(r *api.Resource) (map[string]*AuthMountOutput, error) {
	return api.DecodeMapData[map[string]*AuthMountOutput](r)
}

// EnableAuth enables an auth method at Path.
type EnableAuth struct {
	Path  string
	Input AuthMountInput
}

func (e EnableAuth) Validate() error {
	return EnableMount(e).Validate()
}

func (e EnableAuth) Operation() api.Operation {
	return api.Operation{Method: http.MethodPost, Path: "sys/auth/" + trimPath(e.Path), Body: e.Input}
}

func (EnableAuth) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// DisableAuth disables the auth method at Path.
type DisableAuth struct {
	Path string
}

func (e DisableAuth) Validate() error {
	return DisableMount(e).Validate()
}

func (e DisableAuth) Operation() api.Operation {
	return api.Operation{Method: http.MethodDelete, Path: "sys/auth/" + trimPath(e.Path)}
}

func (DisableAuth) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }
