// Package testserver runs an in-memory secrets server for tests. It speaks
// the same HTTP dialect as the real server for the subset of routes the
// client packages use: kv engines, response wrapping, mounts, policies and
// the common auth methods.
package testserver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-uuid"

	"github.com/stephnangue/vaultclient/logger"
)

const (
	headerToken     = "X-Vault-Token"
	headerNamespace = "X-Vault-Namespace"
	headerWrapTTL   = "X-Vault-Wrap-TTL"

	methodList = "LIST"

	errPermissionDenied = "permission denied"
)

func init() {
	chi.RegisterMethod(methodList)
}

// RecordedRequest is a request as the server received it.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Server is a running fake. It is safe for concurrent use.
type Server struct {
	URL       string
	RootToken string

	srv *httptest.Server
	log logger.Logger

	mu       sync.Mutex
	offset   time.Duration
	tokens   map[string]*tokenEntry
	wrapped  map[string]*wrapEntry
	mounts   map[string]*mountEntry
	auths    map[string]*mountEntry
	policies map[string]string
	kv1      map[string]map[string]any
	kv2      map[string]*kv2Secret
	users    map[string]*userEntry
	approles map[string]*appRoleEntry
	jwtRoles map[string]*jwtRoleEntry
	oidc     map[string]*oidcState
	requests []RecordedRequest

	warnMu   sync.RWMutex
	warnings map[string][]string
}

type Option func(*Server)

// WithLogger sends the server's own log lines to l.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.log = l.WithSubsystem("testserver")
	}
}

// New starts a server and registers its shutdown with t.Cleanup. The
// server starts with a root token, kv version 1 mounted at secret/, kv
// version 2 mounted at kv/ and the token, userpass, approle, jwt, oidc and
// aws auth methods mounted at their default paths.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	s := &Server{
		log:      logger.NewNopLogger(),
		tokens:   make(map[string]*tokenEntry),
		wrapped:  make(map[string]*wrapEntry),
		mounts:   make(map[string]*mountEntry),
		auths:    make(map[string]*mountEntry),
		policies: map[string]string{"root": "", "default": defaultPolicy},
		kv1:      make(map[string]map[string]any),
		kv2:      make(map[string]*kv2Secret),
		users:    make(map[string]*userEntry),
		approles: make(map[string]*appRoleEntry),
		jwtRoles: make(map[string]*jwtRoleEntry),
		oidc:     make(map[string]*oidcState),
		warnings: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mounts["sys/"] = newMount("system", nil)
	s.mounts["secret/"] = newMount("kv", map[string]string{"version": "1"})
	s.mounts["kv/"] = newMount("kv", map[string]string{"version": "2"})
	for _, typ := range []string{"token", "userpass", "approle", "jwt", "oidc", "aws"} {
		s.auths[typ+"/"] = newMount(typ, nil)
	}

	root := s.newToken([]string{"root"}, 0, nil, "auth/token/root")
	s.RootToken = root.ID

	s.srv = httptest.NewServer(s.routes())
	s.URL = s.srv.URL
	t.Cleanup(s.Close)

	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.record)
		v1.Use(s.requireToken)

		v1.Get("/sys/health", s.handleHealth)
		v1.Get("/sys/seal-status", s.handleSealStatus)

		v1.Route("/sys/wrapping", func(wr chi.Router) {
			wr.Post("/wrap", s.handleWrap)
			wr.Post("/lookup", s.handleWrapLookup)
			wr.Post("/unwrap", s.handleUnwrap)
			wr.Post("/rewrap", s.handleRewrap)
		})

		v1.Get("/sys/mounts", s.handleListMounts)
		v1.HandleFunc("/sys/mounts/*", s.handleMount)
		v1.Get("/sys/auth", s.handleListAuth)
		v1.HandleFunc("/sys/auth/*", s.handleAuthMount)
		v1.HandleFunc("/sys/policies/acl", s.handleListPolicies)
		v1.HandleFunc("/sys/policies/acl/{name}", s.handlePolicy)

		v1.With(s.wrapResponse).HandleFunc("/auth/*", s.handleAuth)
		v1.With(s.wrapResponse).HandleFunc("/*", s.handleLogical)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "path must begin with /v1/")
	})

	return r
}

// now is the server clock. Advance moves it forward.
func (s *Server) now() time.Time {
	return time.Now().Add(s.offset)
}

// Advance moves the server clock forward by d, expiring tokens and wrapped
// responses whose TTL has run out.
func (s *Server) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset += d
}

// SetWarnings makes every successful response on path carry warnings. path
// is relative to /v1/, e.g. "secret/foo".
func (s *Server) SetWarnings(path string, warnings ...string) {
	s.warnMu.Lock()
	defer s.warnMu.Unlock()
	s.warnings[strings.Trim(path, "/")] = warnings
}

func (s *Server) warningsFor(path string) []string {
	s.warnMu.RLock()
	defer s.warnMu.RUnlock()
	return s.warnings[strings.Trim(path, "/")]
}

// Requests returns every request received so far, oldest first.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request on path, relative to /v1/.
func (s *Server) LastRequest(path string) (RecordedRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path = strings.Trim(path, "/")
	for i := len(s.requests) - 1; i >= 0; i-- {
		if strings.Trim(s.requests[i].Path, "/") == path {
			return s.requests[i], true
		}
	}
	return RecordedRequest{}, false
}

// RequestCount returns how many requests were received on path.
func (s *Server) RequestCount(path string) int {
	n := 0
	for _, r := range s.Requests() {
		if strings.Trim(r.Path, "/") == strings.Trim(path, "/") {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   relPath(r),
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		s.log.Debug("request",
			logger.String("method", r.Method),
			logger.String("path", relPath(r)),
			logger.String("namespace", r.Header.Get(headerNamespace)),
		)

		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

// requireToken rejects requests without a live token, except on the
// routes a caller reaches before holding one.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unauthenticated(relPath(r)) {
			next.ServeHTTP(w, r)
			return
		}

		s.mu.Lock()
		entry := s.useToken(r.Header.Get(headerToken))
		s.mu.Unlock()

		if entry == nil {
			respondError(w, http.StatusForbidden, errPermissionDenied)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, entry)))
	})
}

func unauthenticated(path string) bool {
	switch path {
	case "sys/health", "sys/seal-status", "sys/wrapping/lookup", "sys/wrapping/unwrap":
		return true
	}
	parts := strings.Split(path, "/")
	if len(parts) >= 3 && parts[0] == "auth" {
		return parts[2] == "login" || parts[2] == "oidc"
	}
	return false
}

func tokenFrom(r *http.Request) *tokenEntry {
	entry, _ := r.Context().Value(ctxKey{}).(*tokenEntry)
	return entry
}

func relPath(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, "/v1/")
}

// findMount returns the longest mount in table that prefixes path and the
// remainder of path below it.
func findMount(table map[string]*mountEntry, path string) (string, *mountEntry, string) {
	candidate := path
	if !strings.HasSuffix(candidate, "/") {
		candidate += "/"
	}

	var best string
	for p := range table {
		if strings.HasPrefix(candidate, p) && len(p) > len(best) {
			best = p
		}
	}
	if best == "" {
		return "", nil, ""
	}
	rest := strings.TrimPrefix(path, strings.TrimSuffix(best, "/"))
	return best, table[best], strings.TrimPrefix(rest, "/")
}

func generateID() string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		panic(err)
	}
	return id
}

// listKeys returns the direct children of prefix among keys, with a
// trailing slash on the ones that have children of their own.
func listKeys(keys []string, prefix string) []string {
	seen := make(map[string]struct{})
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if rest == "" {
			continue
		}
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i+1]
		}
		seen[rest] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func isList(r *http.Request) bool {
	return r.Method == methodList || (r.Method == http.MethodGet && r.URL.Query().Get("list") == "true")
}
