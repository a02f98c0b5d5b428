package api

import (
	"encoding/json"
	"time"
)

// WrapInfo describes a response-wrapping token.
type WrapInfo struct {
	Token           string
	Accessor        string
	TTL             time.Duration
	CreationTime    time.Time
	CreationPath    string
	WrappedAccessor string
}

type wrapInfoJSON struct {
	Token           string    `json:"token"`
	Accessor        string    `json:"accessor,omitempty"`
	TTL             any       `json:"ttl"`
	CreationTime    time.Time `json:"creation_time"`
	CreationPath    string    `json:"creation_path"`
	WrappedAccessor string    `json:"wrapped_accessor,omitempty"`
}

// MarshalJSON writes the wire form: ttl in seconds, creation_time in RFC3339.
func (w WrapInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(wrapInfoJSON{
		Token:           w.Token,
		Accessor:        w.Accessor,
		TTL:             int64(w.TTL / time.Second),
		CreationTime:    w.CreationTime,
		CreationPath:    w.CreationPath,
		WrappedAccessor: w.WrappedAccessor,
	})
}

func (w *WrapInfo) UnmarshalJSON(b []byte) error {
	var aux wrapInfoJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*w = WrapInfo{
		Token:           aux.Token,
		Accessor:        aux.Accessor,
		TTL:             parseDurationFromSeconds(aux.TTL),
		CreationTime:    aux.CreationTime,
		CreationPath:    aux.CreationPath,
		WrappedAccessor: aux.WrappedAccessor,
	}
	return nil
}

// AuthInfo is the auth block of a login response.
type AuthInfo struct {
	ClientToken   string            `json:"client_token"`
	Accessor      string            `json:"accessor"`
	Policies      []string          `json:"policies"`
	TokenPolicies []string          `json:"token_policies"`
	Metadata      map[string]string `json:"metadata"`
	LeaseDuration time.Duration     `json:"lease_duration"`
	Renewable     bool              `json:"renewable"`
	EntityID      string            `json:"entity_id"`
	TokenType     string            `json:"token_type"`
	Orphan        bool              `json:"orphan"`
}

type authInfoAlias AuthInfo

func (a AuthInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		authInfoAlias
		LeaseDuration int64 `json:"lease_duration"`
	}{
		authInfoAlias: authInfoAlias(a),
		LeaseDuration: int64(a.LeaseDuration / time.Second),
	})
}

func (a *AuthInfo) UnmarshalJSON(b []byte) error {
	aux := struct {
		*authInfoAlias
		LeaseDuration any `json:"lease_duration"`
	}{
		authInfoAlias: (*authInfoAlias)(a),
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	a.LeaseDuration = parseDurationFromSeconds(aux.LeaseDuration)
	return nil
}

// Response is the typed result of Do.
type Response[T any] struct {
	Data          T
	Warnings      []string
	RequestID     string
	LeaseID       string
	LeaseDuration time.Duration
	Renewable     bool
	Auth          *AuthInfo
	WrapInfo      *WrapInfo
}
