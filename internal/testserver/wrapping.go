package testserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/hashicorp/go-secure-stdlib/parseutil"

	"github.com/stephnangue/vaultclient/logger"
)

const (
	defaultWrapTTL  = 5 * time.Minute
	errInvalidWrap  = "wrapping token is not valid or does not exist"
	errWrapTTLParse = "error parsing wrap TTL header"
)

type wrapEntry struct {
	Token           string
	Accessor        string
	WrappedAccessor string
	Path            string
	TTL             time.Duration
	CreatedAt       time.Time
	Body            []byte
}

type wrapInfo struct {
	Token           string    `json:"token"`
	Accessor        string    `json:"accessor"`
	TTL             int64     `json:"ttl"`
	CreationTime    time.Time `json:"creation_time"`
	CreationPath    string    `json:"creation_path"`
	WrappedAccessor string    `json:"wrapped_accessor,omitempty"`
}

func (e *wrapEntry) info() *wrapInfo {
	return &wrapInfo{
		Token:           e.Token,
		Accessor:        e.Accessor,
		TTL:             int64(e.TTL / time.Second),
		CreationTime:    e.CreatedAt,
		CreationPath:    e.Path,
		WrappedAccessor: e.WrappedAccessor,
	}
}

// storeWrapped keeps body behind a new single-use token. The caller holds
// s.mu.
func (s *Server) storeWrapped(body []byte, path string, ttl time.Duration, wrappedAccessor string) *wrapEntry {
	entry := &wrapEntry{
		Token:           "hvs." + generateID(),
		Accessor:        generateID(),
		WrappedAccessor: wrappedAccessor,
		Path:            path,
		TTL:             ttl,
		CreatedAt:       s.now(),
		Body:            body,
	}
	s.wrapped[entry.Token] = entry
	return entry
}

// liveWrapped returns the entry for token unless it is unknown, spent or
// expired. The caller holds s.mu.
func (s *Server) liveWrapped(token string) *wrapEntry {
	entry, ok := s.wrapped[token]
	if !ok {
		return nil
	}
	if s.now().After(entry.CreatedAt.Add(entry.TTL)) {
		delete(s.wrapped, token)
		return nil
	}
	return entry
}

func parseWrapTTL(r *http.Request) (time.Duration, bool, error) {
	raw := r.Header.Get(headerWrapTTL)
	if raw == "" {
		return 0, false, nil
	}
	ttl, err := parseutil.ParseDurationSecond(raw)
	if err != nil {
		return 0, true, err
	}
	return ttl, true, nil
}

// wrapResponse replaces a successful response with a wrapping token when
// the request carries a wrap TTL.
func (s *Server) wrapResponse(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ttl, wrap, err := parseWrapTTL(r)
		if err != nil || (wrap && ttl <= 0) {
			respondError(w, http.StatusBadRequest, errWrapTTLParse)
			return
		}
		if !wrap {
			next.ServeHTTP(w, r)
			return
		}

		rec := httptest.NewRecorder()
		next.ServeHTTP(rec, r)
		if rec.Code < 200 || rec.Code >= 300 || rec.Body.Len() == 0 {
			for k, v := range rec.Header() {
				w.Header()[k] = v
			}
			w.WriteHeader(rec.Code)
			io.Copy(w, rec.Body)
			return
		}

		var wrappedAccessor string
		var inner struct {
			Auth *authInfo `json:"auth"`
		}
		if json.Unmarshal(rec.Body.Bytes(), &inner) == nil && inner.Auth != nil {
			wrappedAccessor = inner.Auth.Accessor
		}

		s.mu.Lock()
		entry := s.storeWrapped(rec.Body.Bytes(), relPath(r), ttl, wrappedAccessor)
		s.mu.Unlock()

		s.log.Debug("wrapped response",
			logger.String("path", entry.Path),
			logger.Duration("ttl", ttl),
		)
		s.respond(w, r, &envelope{WrapInfo: entry.info()})
	})
}

func (s *Server) handleWrap(w http.ResponseWriter, r *http.Request) {
	ttl, wrap, err := parseWrapTTL(r)
	if err != nil || (wrap && ttl <= 0) {
		respondError(w, http.StatusBadRequest, errWrapTTLParse)
		return
	}
	if !wrap {
		ttl = defaultWrapTTL
	}

	var data map[string]any
	if err := decodeBody(r, &data); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "empty wrapping request")
		return
	}

	body, err := json.Marshal(&envelope{RequestID: generateID(), Data: data})
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	entry := s.storeWrapped(body, relPath(r), ttl, "")
	s.mu.Unlock()

	s.respond(w, r, &envelope{WrapInfo: entry.info()})
}

// wrapToken reads the token from the body, falling back to the token header.
func wrapToken(r *http.Request) string {
	var body struct {
		Token string `json:"token"`
	}
	decodeBody(r, &body)
	if body.Token != "" {
		return body.Token
	}
	return r.Header.Get(headerToken)
}

func (s *Server) handleWrapLookup(w http.ResponseWriter, r *http.Request) {
	token := wrapToken(r)

	s.mu.Lock()
	entry := s.liveWrapped(token)
	s.mu.Unlock()

	if entry == nil {
		respondError(w, http.StatusBadRequest, errInvalidWrap)
		return
	}

	s.respondData(w, r, map[string]any{
		"creation_path": entry.Path,
		"creation_time": entry.CreatedAt,
		"creation_ttl":  int64(entry.TTL / time.Second),
	})
}

func (s *Server) handleUnwrap(w http.ResponseWriter, r *http.Request) {
	token := wrapToken(r)

	s.mu.Lock()
	entry := s.liveWrapped(token)
	if entry != nil {
		delete(s.wrapped, token)
	}
	s.mu.Unlock()

	if entry == nil {
		respondError(w, http.StatusBadRequest, errInvalidWrap)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(entry.Body)
}

func (s *Server) handleRewrap(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
		return
	}

	s.mu.Lock()
	old := s.liveWrapped(body.Token)
	var entry *wrapEntry
	if old != nil {
		delete(s.wrapped, old.Token)
		entry = s.storeWrapped(old.Body, old.Path, old.TTL, old.WrappedAccessor)
	}
	s.mu.Unlock()

	if entry == nil {
		respondError(w, http.StatusBadRequest, errInvalidWrap)
		return
	}
	s.respond(w, r, &envelope{WrapInfo: entry.info()})
}

// WrappedCount returns how many wrapping tokens are still redeemable.
func (s *Server) WrappedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token := range s.wrapped {
		if s.liveWrapped(token) != nil {
			n++
		}
	}
	return n
}
