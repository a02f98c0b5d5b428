// Package kv1 holds the endpoints of the version 1 key/value secret engine.
package kv1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/stephnangue/vaultclient/api"
)

// DefaultMountPath is where the engine is mounted when Mount is empty.
const DefaultMountPath = "secret"

var errNoPath = errors.New("secret path is empty")

func secretPath(mount, p string) string {
	mount = strings.Trim(mount, "/")
	if mount == "" {
		mount = DefaultMountPath
	}
	return mount + "/" + strings.TrimLeft(p, "/")
}

func validatePath(p string) error {
	if strings.Trim(p, "/") == "" {
		return errNoPath
	}
	return nil
}

// Read returns the secret at Path decoded into T.
type Read[T any] struct {
	Mount string
	Path  string
}

func (e Read[T]) Validate() error { return validatePath(e.Path) }

func (e Read[T]) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: secretPath(e.Mount, e.Path)}
}

func (e Read[T]) Decode(r *api.Resource) (T, error) {
	return api.DecodeData[T](r)
}

// Write stores Data at Path, replacing what was there.
type Write struct {
	Mount string
	Path  string
	Data  any
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
	return api.Operation{Method: http.MethodPost, Path: secretPath(e.Mount, e.Path), Body: e.Data}
}

func (Write) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// Delete removes the secret at Path.
type Delete struct {
	Mount string
	Path  string
}

func (e Delete) Validate() error { return validatePath(e.Path) }

func (e Delete) Operation() api.Operation {
	return api.Operation{Method: http.MethodDelete, Path: secretPath(e.Mount, e.Path)}
}

func (Delete) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// List returns the keys under Path. Keys ending in "/" are folders.
type List struct {
	Mount string
	Path  string
}

func (e List) Operation() api.Operation {
	p := secretPath(e.Mount, e.Path)
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
