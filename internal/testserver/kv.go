package testserver

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

type kv2Version struct {
	Data         map[string]any
	CreatedTime  time.Time
	DeletionTime time.Time
	Destroyed    bool
}

type kv2Secret struct {
	Versions       map[int]*kv2Version
	CurrentVersion int
	OldestVersion  int
	MaxVersions    int
	CASRequired    bool
	CustomMetadata map[string]string
	CreatedTime    time.Time
	UpdatedTime    time.Time
}

func (s *kv2Secret) versionMetadata(n int) map[string]any {
	v := s.Versions[n]
	deletion := ""
	if !v.DeletionTime.IsZero() {
		deletion = v.DeletionTime.Format(time.RFC3339Nano)
	}
	return map[string]any{
		"version":         n,
		"created_time":    v.CreatedTime,
		"deletion_time":   deletion,
		"destroyed":       v.Destroyed,
		"custom_metadata": s.CustomMetadata,
	}
}

func (s *Server) handleLogical(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := relPath(r)
	mountPath, m, rest := findMount(s.mounts, path)
	if m == nil || m.Type != "kv" {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no handler for route %q. route entry not found.", path))
		return
	}

	if m.Options["version"] == "2" {
		s.serveKV2(w, r, mountPath, rest)
		return
	}
	s.serveKV1(w, r, mountPath+rest)
}

// serveKV1 implements the unversioned key/value engine. The caller holds
// s.mu.
func (s *Server) serveKV1(w http.ResponseWriter, r *http.Request, key string) {
	if isList(r) {
		prefix := key
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		keys := listKeys(mapKeys(s.kv1), prefix)
		if len(keys) == 0 {
			respondError(w, http.StatusNotFound)
			return
		}
		s.respondData(w, r, map[string]any{"keys": keys})
		return
	}

	switch r.Method {
	case http.MethodGet:
		data, ok := s.kv1[key]
		if !ok {
			respondError(w, http.StatusNotFound)
			return
		}
		s.respondData(w, r, data)

	case http.MethodPost, http.MethodPut:
		var data map[string]any
		if err := decodeBody(r, &data); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
			return
		}
		if data == nil {
			data = map[string]any{}
		}
		s.kv1[key] = data
		s.respondNoContent(w, r)

	case http.MethodDelete:
		delete(s.kv1, key)
		s.respondNoContent(w, r)

	default:
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

// serveKV2 implements the versioned key/value engine. The caller holds
// s.mu.
func (s *Server) serveKV2(w http.ResponseWriter, r *http.Request, mount, rest string) {
	kind, p, _ := strings.Cut(rest, "/")
	key := mount + p

	switch kind {
	case "data":
		s.serveKV2Data(w, r, key)
	case "metadata":
		if isList(r) {
			prefix := key
			if !strings.HasSuffix(prefix, "/") {
				prefix += "/"
			}
			keys := listKeys(mapKeys(s.kv2), prefix)
			if len(keys) == 0 {
				respondError(w, http.StatusNotFound)
				return
			}
			s.respondData(w, r, map[string]any{"keys": keys})
			return
		}
		s.serveKV2Metadata(w, r, key)
	case "delete", "undelete", "destroy":
		s.serveKV2Versions(w, r, kind, key)
	default:
		respondError(w, http.StatusNotFound, fmt.Sprintf("no handler for route %q. route entry not found.", relPath(r)))
	}
}

func (s *Server) serveKV2Data(w http.ResponseWriter, r *http.Request, key string) {
	secret := s.kv2[key]

	switch r.Method {
	case http.MethodGet:
		if secret == nil {
			respondError(w, http.StatusNotFound)
			return
		}
		n := secret.CurrentVersion
		if v := r.URL.Query().Get("version"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid version: "+v)
				return
			}
			if parsed > 0 {
				n = parsed
			}
		}
		version, ok := secret.Versions[n]
		if !ok || version.Destroyed || !version.DeletionTime.IsZero() {
			respondError(w, http.StatusNotFound)
			return
		}
		s.respondData(w, r, map[string]any{
			"data":     version.Data,
			"metadata": secret.versionMetadata(n),
		})

	case http.MethodPost, http.MethodPut:
		var body struct {
			Data    map[string]any `json:"data"`
			Options struct {
				CAS *int `json:"cas"`
			} `json:"options"`
		}
		if err := decodeBody(r, &body); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
			return
		}
		if body.Data == nil {
			respondError(w, http.StatusBadRequest, "no data provided")
			return
		}
		if secret == nil {
			secret = &kv2Secret{Versions: make(map[int]*kv2Version), CreatedTime: s.now()}
		}
		if msg, ok := checkCAS(secret, body.Options.CAS); !ok {
			respondError(w, http.StatusBadRequest, msg)
			return
		}
		s.kv2[key] = secret
		s.respondData(w, r, s.addVersion(secret, body.Data))

	case http.MethodPatch:
		if ct := r.Header.Get("Content-Type"); ct != "application/merge-patch+json" {
			respondError(w, http.StatusUnsupportedMediaType, "PATCH requires Content-Type of application/merge-patch+json, provided: "+ct)
			return
		}
		if secret == nil {
			respondError(w, http.StatusNotFound)
			return
		}
		current, ok := secret.Versions[secret.CurrentVersion]
		if !ok || current.Destroyed || !current.DeletionTime.IsZero() {
			respondError(w, http.StatusNotFound)
			return
		}
		var body struct {
			Data    map[string]any `json:"data"`
			Options struct {
				CAS *int `json:"cas"`
			} `json:"options"`
		}
		if err := decodeBody(r, &body); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
			return
		}
		if msg, ok := checkCAS(secret, body.Options.CAS); !ok {
			respondError(w, http.StatusBadRequest, msg)
			return
		}
		merged := make(map[string]any, len(current.Data))
		for k, v := range current.Data {
			merged[k] = v
		}
		for k, v := range body.Data {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		s.respondData(w, r, s.addVersion(secret, merged))

	case http.MethodDelete:
		if secret != nil {
			if v, ok := secret.Versions[secret.CurrentVersion]; ok && v.DeletionTime.IsZero() {
				v.DeletionTime = s.now()
			}
		}
		s.respondNoContent(w, r)

	default:
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

func checkCAS(secret *kv2Secret, cas *int) (string, bool) {
	if cas == nil {
		if secret.CASRequired {
			return "check-and-set parameter required for this call", false
		}
		return "", true
	}
	if *cas != secret.CurrentVersion {
		return "check-and-set parameter did not match the current version", false
	}
	return "", true
}

func (s *Server) addVersion(secret *kv2Secret, data map[string]any) map[string]any {
	now := s.now()
	secret.CurrentVersion++
	secret.Versions[secret.CurrentVersion] = &kv2Version{Data: data, CreatedTime: now}
	secret.UpdatedTime = now
	if secret.OldestVersion == 0 {
		secret.OldestVersion = 1
	}
	if secret.MaxVersions > 0 {
		for len(secret.Versions) > secret.MaxVersions {
			delete(secret.Versions, secret.OldestVersion)
			secret.OldestVersion++
		}
	}
	return secret.versionMetadata(secret.CurrentVersion)
}

func (s *Server) serveKV2Metadata(w http.ResponseWriter, r *http.Request, key string) {
	secret := s.kv2[key]

	switch r.Method {
	case http.MethodGet:
		if secret == nil {
			respondError(w, http.StatusNotFound)
			return
		}
		versions := make(map[string]any, len(secret.Versions))
		for n := range secret.Versions {
			versions[strconv.Itoa(n)] = secret.versionMetadata(n)
		}
		s.respondData(w, r, map[string]any{
			"cas_required":         secret.CASRequired,
			"created_time":         secret.CreatedTime,
			"current_version":      secret.CurrentVersion,
			"custom_metadata":      secret.CustomMetadata,
			"delete_version_after": "0s",
			"max_versions":         secret.MaxVersions,
			"oldest_version":       secret.OldestVersion,
			"updated_time":         secret.UpdatedTime,
			"versions":             versions,
		})

	case http.MethodPost, http.MethodPut:
		var body struct {
			MaxVersions    *int              `json:"max_versions"`
			CASRequired    *bool             `json:"cas_required"`
			CustomMetadata map[string]string `json:"custom_metadata"`
		}
		if err := decodeBody(r, &body); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
			return
		}
		if secret == nil {
			secret = &kv2Secret{Versions: make(map[int]*kv2Version), CreatedTime: s.now()}
			s.kv2[key] = secret
		}
		if body.MaxVersions != nil {
			secret.MaxVersions = *body.MaxVersions
		}
		if body.CASRequired != nil {
			secret.CASRequired = *body.CASRequired
		}
		if body.CustomMetadata != nil {
			secret.CustomMetadata = body.CustomMetadata
		}
		secret.UpdatedTime = s.now()
		s.respondNoContent(w, r)

	case http.MethodDelete:
		delete(s.kv2, key)
		s.respondNoContent(w, r)

	default:
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

func (s *Server) serveKV2Versions(w http.ResponseWriter, r *http.Request, kind, key string) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
		return
	}

	var body struct {
		Versions []int `json:"versions"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
		return
	}
	if len(body.Versions) == 0 {
		respondError(w, http.StatusBadRequest, "no version number provided")
		return
	}

	secret := s.kv2[key]
	if secret == nil {
		s.respondNoContent(w, r)
		return
	}

	now := s.now()
	for _, n := range body.Versions {
		v, ok := secret.Versions[n]
		if !ok {
			continue
		}
		switch kind {
		case "delete":
			if v.DeletionTime.IsZero() {
				v.DeletionTime = now
			}
		case "undelete":
			if !v.Destroyed {
				v.DeletionTime = time.Time{}
			}
		case "destroy":
			v.Destroyed = true
			v.Data = nil
		}
	}
	s.respondNoContent(w, r)
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KV1 returns the data stored at path in a kv version 1 engine, path
// including the mount.
func (s *Server) KV1(path string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.kv1[strings.Trim(path, "/")]
	return data, ok
}
