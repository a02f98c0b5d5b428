package sys

import (
	"errors"
	"net/http"

	"github.com/stephnangue/vaultclient/api"
)

const policyPath = "sys/policies/acl"

var errNoPolicyName = errors.New("policy name is empty")

// PolicyOutput represents policy information
type PolicyOutput struct {
	Name   string `json:"name"`
	Policy string `json:"policy"`
}

// ReadPolicy returns the ACL policy Name.
type ReadPolicy struct {
	Name string
}

func (e ReadPolicy) Validate() error {
	if e.Name == "" {
		return errNoPolicyName
	}
	return nil
}

func (e ReadPolicy) Operation() api.Operation {
	return api.Operation{Method: http.MethodGet, Path: policyPath + "/" + e.Name}
}

func (ReadPolicy) Decode(r *api.Resource) (*PolicyOutput, error) {
	out, err := api.DecodeData[PolicyOutput](r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// WritePolicy creates or updates the ACL policy Name.
type WritePolicy struct {
	Name   string
	Policy string
}

func (e WritePolicy) Validate() error {
	if e.Name == "" {
		return errNoPolicyName
	}
	if e.Policy == "" {
		return errors.New("policy document is empty")
	}
	return nil
}

func (e WritePolicy) Operation() api.Operation {
	return api.Operation{
		Method: http.MethodPut,
		Path:   policyPath + "/" + e.Name,
		Body:   map[string]string{"policy": e.Policy},
	}
}

func (WritePolicy) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// DeletePolicy removes the ACL policy Name.
type DeletePolicy struct {
	Name string
}

func (e DeletePolicy) Validate() error {
	if e.Name == "" {
		return errNoPolicyName
	}
	return nil
}

func (e DeletePolicy) Operation() api.Operation {
	return api.Operation{Method: http.MethodDelete, Path: policyPath + "/" + e.Name}
}

func (DeletePolicy) Decode(r *api.Resource) (api.Empty, error) { return api.DecodeEmpty(r) }

// ListPolicies returns the names of all ACL policies.
type ListPolicies struct{}

func (ListPolicies) Operation() api.Operation {
	return api.Operation{Method: api.MethodList, Path: policyPath}
}

func (ListPolicies) Decode(r *api.Resource) ([]string, error) {
	out, err := api.DecodeData[struct {
		Keys []string `json:"keys"`
	}](r)
	if err != nil {
		return nil, err
	}
	return out.Keys, nil
}
