package testserver

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hashicorp/go-secure-stdlib/parseutil"
)

const serverVersion = "1.15.0-test"

type mountConfig struct {
	DefaultLeaseTTL   int64  `json:"default_lease_ttl"`
	MaxLeaseTTL       int64  `json:"max_lease_ttl"`
	ForceNoCache      bool   `json:"force_no_cache"`
	ListingVisibility string `json:"listing_visibility,omitempty"`
}

type mountEntry struct {
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Accessor    string            `json:"accessor"`
	Config      mountConfig       `json:"config"`
	Local       bool              `json:"local"`
	SealWrap    bool              `json:"seal_wrap"`
	Options     map[string]string `json:"options"`
}

func newMount(typ string, options map[string]string) *mountEntry {
	return &mountEntry{
		Type:     typ,
		Accessor: typ + "_" + generateID()[:8],
		Options:  options,
	}
}

type mountInput struct {
	Type        string            `json:"type"`
	Description string            `json:"description"`
	Local       bool              `json:"local"`
	SealWrap    bool              `json:"seal_wrap"`
	Options     map[string]string `json:"options"`
	Config      tuneInput         `json:"config"`
}

type tuneInput struct {
	DefaultLeaseTTL   string `json:"default_lease_ttl"`
	MaxLeaseTTL       string `json:"max_lease_ttl"`
	Description       string `json:"description"`
	ListingVisibility string `json:"listing_visibility"`
}

func (t tuneInput) apply(m *mountEntry) error {
	if t.DefaultLeaseTTL != "" {
		d, err := parseutil.ParseDurationSecond(t.DefaultLeaseTTL)
		if err != nil {
			return err
		}
		m.Config.DefaultLeaseTTL = int64(d / time.Second)
	}
	if t.MaxLeaseTTL != "" {
		d, err := parseutil.ParseDurationSecond(t.MaxLeaseTTL)
		if err != nil {
			return err
		}
		m.Config.MaxLeaseTTL = int64(d / time.Second)
	}
	if t.Description != "" {
		m.Description = t.Description
	}
	if t.ListingVisibility != "" {
		m.Config.ListingVisibility = t.ListingVisibility
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	now := s.now()
	s.mu.Unlock()

	respondOk(w, map[string]any{
		"initialized":                  true,
		"sealed":                       false,
		"standby":                      false,
		"performance_standby":          false,
		"replication_performance_mode": "disabled",
		"replication_dr_mode":          "disabled",
		"server_time_utc":              now.Unix(),
		"version":                      serverVersion,
		"cluster_name":                 "testserver",
	})
}

func (s *Server) handleSealStatus(w http.ResponseWriter, r *http.Request) {
	respondOk(w, map[string]any{
		"type":          "shamir",
		"initialized":   true,
		"sealed":        false,
		"t":             1,
		"n":             1,
		"progress":      0,
		"nonce":         "",
		"version":       serverVersion,
		"build_date":    "2024-01-01T00:00:00Z",
		"migration":     false,
		"cluster_name":  "testserver",
		"recovery_seal": false,
		"storage_type":  "inmem",
	})
}

func (s *Server) handleListMounts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respondData(w, r, s.mounts)
}

func (s *Server) handleListAuth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respondData(w, r, s.auths)
}

func (s *Server) handleMount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serveMountTable(w, r, s.mounts, true)
}

func (s *Server) handleAuthMount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serveMountTable(w, r, s.auths, false)
}

// serveMountTable handles reads, writes and tuning of one mount entry. The
// caller holds s.mu.
func (s *Server) serveMountTable(w http.ResponseWriter, r *http.Request, table map[string]*mountEntry, secrets bool) {
	p := strings.Trim(chi.URLParam(r, "*"), "/")
	tune := false
	if strings.HasSuffix(p, "/tune") {
		tune = true
		p = strings.TrimSuffix(p, "/tune")
	}
	if p == "" {
		respondError(w, http.StatusBadRequest, "missing mount path")
		return
	}
	key := p + "/"
	m, exists := table[key]

	if tune {
		if !exists {
			respondError(w, http.StatusBadRequest, "cannot fetch mount entry for "+key)
			return
		}
		switch r.Method {
		case http.MethodGet:
			s.respondData(w, r, m.Config)
		case http.MethodPost, http.MethodPut:
			var in tuneInput
			if err := decodeBody(r, &in); err != nil {
				respondError(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
				return
			}
			if err := in.apply(m); err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.respondNoContent(w, r)
		default:
			respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !exists {
			respondError(w, http.StatusBadRequest, "no matching mount at \""+key+"\"")
			return
		}
		s.respondData(w, r, m)

	case http.MethodPost, http.MethodPut:
		if exists {
			respondError(w, http.StatusBadRequest, "path is already in use at "+key)
			return
		}
		var in mountInput
		if err := decodeBody(r, &in); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
			return
		}
		if in.Type == "" {
			respondError(w, http.StatusBadRequest, "backend type must be specified as a string")
			return
		}
		m = newMount(in.Type, in.Options)
		m.Description = in.Description
		m.Local = in.Local
		m.SealWrap = in.SealWrap
		if err := in.Config.apply(m); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		table[key] = m
		s.respondNoContent(w, r)

	case http.MethodDelete:
		delete(table, key)
		if secrets {
			s.dropMountData(key)
		}
		s.respondNoContent(w, r)

	default:
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

// dropMountData removes every secret stored below mount. The caller holds
// s.mu.
func (s *Server) dropMountData(mount string) {
	for k := range s.kv1 {
		if strings.HasPrefix(k, mount) {
			delete(s.kv1, k)
		}
	}
	for k := range s.kv2 {
		if strings.HasPrefix(k, mount) {
			delete(s.kv2, k)
		}
	}
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	if !isList(r) {
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.policies))
	for name := range s.policies {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	s.respondData(w, r, map[string]any{"keys": keys})
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		policy, ok := s.policies[name]
		if !ok {
			respondError(w, http.StatusNotFound)
			return
		}
		s.respondData(w, r, map[string]any{"name": name, "policy": policy})

	case http.MethodPost, http.MethodPut:
		var body struct {
			Policy string `json:"policy"`
		}
		if err := decodeBody(r, &body); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
			return
		}
		if name == "root" {
			respondError(w, http.StatusBadRequest, "cannot update \"root\" policy")
			return
		}
		if body.Policy == "" {
			respondError(w, http.StatusBadRequest, "'policy' parameter not supplied or empty")
			return
		}
		s.policies[name] = body.Policy
		s.respondNoContent(w, r)

	case http.MethodDelete:
		if name == "root" || name == "default" {
			respondError(w, http.StatusBadRequest, "cannot delete \""+name+"\" policy")
			return
		}
		delete(s.policies, name)
		s.respondNoContent(w, r)

	default:
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}
