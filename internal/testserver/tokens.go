package testserver

import (
	"time"
)

const defaultPolicy = `path "auth/token/lookup-self" { capabilities = ["read"] }`

type tokenEntry struct {
	ID          string
	Accessor    string
	Policies    []string
	Meta        map[string]string
	Path        string
	DisplayName string
	NumUses     int
	TTL         time.Duration
	CreationTTL time.Duration
	Renewable   bool
	CreatedAt   time.Time
}

func (t *tokenEntry) expired(now time.Time) bool {
	return t.TTL > 0 && now.After(t.CreatedAt.Add(t.TTL))
}

func (t *tokenEntry) remaining(now time.Time) time.Duration {
	if t.TTL == 0 {
		return 0
	}
	return t.CreatedAt.Add(t.TTL).Sub(now)
}

type authInfo struct {
	ClientToken   string            `json:"client_token"`
	Accessor      string            `json:"accessor"`
	Policies      []string          `json:"policies"`
	TokenPolicies []string          `json:"token_policies"`
	Metadata      map[string]string `json:"metadata"`
	LeaseDuration int               `json:"lease_duration"`
	Renewable     bool              `json:"renewable"`
	EntityID      string            `json:"entity_id"`
	TokenType     string            `json:"token_type"`
	Orphan        bool              `json:"orphan"`
}

// newToken stores a service token. The caller holds s.mu.
func (s *Server) newToken(policies []string, ttl time.Duration, meta map[string]string, path string) *tokenEntry {
	entry := &tokenEntry{
		ID:          "hvs." + generateID(),
		Accessor:    generateID(),
		Policies:    policies,
		Meta:        meta,
		Path:        path,
		DisplayName: "token",
		TTL:         ttl,
		CreationTTL: ttl,
		Renewable:   ttl > 0,
		CreatedAt:   s.now(),
	}
	s.tokens[entry.ID] = entry
	return entry
}

// useToken returns the live entry for id and counts one use against it.
// The caller holds s.mu.
func (s *Server) useToken(id string) *tokenEntry {
	entry := s.liveToken(id)
	if entry == nil {
		return nil
	}
	if entry.NumUses > 0 {
		entry.NumUses--
		if entry.NumUses == 0 {
			delete(s.tokens, id)
		}
	}
	return entry
}

// liveToken returns the entry for id unless it is unknown or expired. The
// caller holds s.mu.
func (s *Server) liveToken(id string) *tokenEntry {
	if id == "" {
		return nil
	}
	entry, ok := s.tokens[id]
	if !ok {
		return nil
	}
	if entry.expired(s.now()) {
		delete(s.tokens, id)
		return nil
	}
	return entry
}

func (t *tokenEntry) authInfo() *authInfo {
	return &authInfo{
		ClientToken:   t.ID,
		Accessor:      t.Accessor,
		Policies:      t.Policies,
		TokenPolicies: t.Policies,
		Metadata:      t.Meta,
		LeaseDuration: int(t.TTL / time.Second),
		Renewable:     t.Renewable,
		TokenType:     "service",
	}
}

func (t *tokenEntry) lookupData(now time.Time) map[string]any {
	return map[string]any{
		"id":               t.ID,
		"accessor":         t.Accessor,
		"policies":         t.Policies,
		"meta":             t.Meta,
		"path":             t.Path,
		"display_name":     t.DisplayName,
		"num_uses":         t.NumUses,
		"ttl":              int64(t.remaining(now) / time.Second),
		"creation_ttl":     int64(t.CreationTTL / time.Second),
		"explicit_max_ttl": 0,
		"renewable":        t.Renewable,
		"entity_id":        "",
		"type":             "service",
		"orphan":           false,
		"creation_time":    t.CreatedAt.Unix(),
	}
}

// AddToken creates a token with the given TTL and policies. A zero TTL
// never expires.
func (s *Server) AddToken(ttl time.Duration, policies ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(policies) == 0 {
		policies = []string{"default"}
	}
	return s.newToken(policies, ttl, nil, "auth/token/create").ID
}

// RevokeToken removes a token.
func (s *Server) RevokeToken(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, id)
}

// TokenValid reports whether id is a live token.
func (s *Server) TokenValid(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveToken(id) != nil
}
