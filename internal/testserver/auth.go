package testserver

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-secure-stdlib/parseutil"

	"github.com/stephnangue/vaultclient/logger"
)

const (
	loginTTL = time.Hour

	errInvalidCredentials = "invalid username or password"
	errInvalidRoleOrID    = "invalid role or secret ID"
)

type userEntry struct {
	Password string
	Policies []string
	TTL      time.Duration
}

type appRoleEntry struct {
	Name      string
	RoleID    string
	Policies  []string
	SecretIDs map[string]map[string]string
}

type jwtRoleEntry struct {
	Policies []string
	JWTs     map[string]struct{}
}

type oidcState struct {
	Role     string
	Nonce    string
	Redirect string
}

// AddUser creates a userpass user.
func (s *Server) AddUser(username, password string, policies ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &userEntry{Password: password, Policies: policies}
}

// AddAppRole creates an AppRole role and one secret ID for it.
func (s *Server) AddAppRole(role string, policies ...string) (roleID, secretID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.appRole(role)
	entry.Policies = policies
	secretID = generateID()
	entry.SecretIDs[secretID] = nil
	return entry.RoleID, secretID
}

func (s *Server) appRole(role string) *appRoleEntry {
	entry, ok := s.approles[role]
	if !ok {
		entry = &appRoleEntry{
			Name:      role,
			RoleID:    generateID(),
			SecretIDs: make(map[string]map[string]string),
		}
		s.approles[role] = entry
	}
	return entry
}

// AddJWTRole lets jwt log in against role.
func (s *Server) AddJWTRole(role, jwt string, policies ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.jwtRoles[role]
	if !ok {
		entry = &jwtRoleEntry{JWTs: make(map[string]struct{})}
		s.jwtRoles[role] = entry
	}
	entry.Policies = policies
	entry.JWTs[jwt] = struct{}{}
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := strings.TrimPrefix(relPath(r), "auth/")
	mountPath, m, rest := findMount(s.auths, path)
	if m == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no handler for route %q. route entry not found.", relPath(r)))
		return
	}
	mount := strings.TrimSuffix(mountPath, "/")

	switch m.Type {
	case "token":
		s.serveToken(w, r, rest)
	case "userpass":
		s.serveUserpass(w, r, mount, rest)
	case "approle":
		s.serveAppRole(w, r, mount, rest)
	case "jwt":
		s.serveJWT(w, r, mount, rest)
	case "oidc":
		s.serveOIDC(w, r, mount, rest)
	case "aws":
		s.serveAWS(w, r, mount, rest)
	default:
		respondError(w, http.StatusNotFound, "unsupported auth method "+m.Type)
	}
}

// login issues a token and writes the auth response. The caller holds s.mu.
func (s *Server) login(w http.ResponseWriter, r *http.Request, policies []string, meta map[string]string, path string) {
	if len(policies) == 0 {
		policies = []string{"default"}
	}
	entry := s.newToken(policies, loginTTL, meta, path)
	s.log.Debug("login",
		logger.String("path", path),
		logger.Strings("policies", policies),
	)
	s.respond(w, r, &envelope{Auth: entry.authInfo()})
}

func (s *Server) serveToken(w http.ResponseWriter, r *http.Request, rest string) {
	caller := tokenFrom(r)

	switch {
	case rest == "lookup-self" && r.Method == http.MethodGet:
		s.respondData(w, r, caller.lookupData(s.now()))

	case rest == "lookup" && r.Method == http.MethodPost:
		var body struct {
			Token string `json:"token"`
		}
		decodeBody(r, &body)
		entry := s.liveToken(body.Token)
		if entry == nil {
			respondError(w, http.StatusForbidden, "bad token")
			return
		}
		s.respondData(w, r, entry.lookupData(s.now()))

	case rest == "create" && r.Method == http.MethodPost:
		var body struct {
			Policies    []string          `json:"policies"`
			Meta        map[string]string `json:"meta"`
			TTL         string            `json:"ttl"`
			NumUses     int               `json:"num_uses"`
			DisplayName string            `json:"display_name"`
		}
		if err := decodeBody(r, &body); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
			return
		}
		var ttl time.Duration
		if body.TTL != "" {
			d, err := parseutil.ParseDurationSecond(body.TTL)
			if err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			ttl = d
		}
		policies := body.Policies
		if len(policies) == 0 {
			policies = caller.Policies
		}
		entry := s.newToken(policies, ttl, body.Meta, "auth/token/create")
		entry.NumUses = body.NumUses
		if body.DisplayName != "" {
			entry.DisplayName = "token-" + body.DisplayName
		}
		s.respond(w, r, &envelope{Auth: entry.authInfo()})

	case rest == "renew-self" && r.Method == http.MethodPost:
		var body struct {
			Increment int64 `json:"increment"`
		}
		decodeBody(r, &body)
		if !caller.Renewable {
			respondError(w, http.StatusBadRequest, "lease is not renewable")
			return
		}
		caller.CreatedAt = s.now()
		if body.Increment > 0 {
			caller.TTL = time.Duration(body.Increment) * time.Second
		}
		s.respond(w, r, &envelope{Auth: caller.authInfo()})

	case rest == "revoke-self" && r.Method == http.MethodPost:
		delete(s.tokens, caller.ID)
		s.respondNoContent(w, r)

	default:
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

func (s *Server) serveUserpass(w http.ResponseWriter, r *http.Request, mount, rest string) {
	kind, name, _ := strings.Cut(rest, "/")

	switch {
	case kind == "login" && r.Method == http.MethodPost:
		var body struct {
			Password string `json:"password"`
		}
		decodeBody(r, &body)
		user, ok := s.users[name]
		if !ok || body.Password == "" || user.Password != body.Password {
			respondError(w, http.StatusBadRequest, errInvalidCredentials)
			return
		}
		s.login(w, r, user.Policies, map[string]string{"username": name}, "auth/"+mount+"/login/"+name)

	case kind == "users" && name != "" && (r.Method == http.MethodPost || r.Method == http.MethodPut):
		var body struct {
			Password      string   `json:"password"`
			TokenPolicies []string `json:"token_policies"`
			TokenTTL      string   `json:"token_ttl"`
		}
		if err := decodeBody(r, &body); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse JSON input: "+err.Error())
			return
		}
		user, ok := s.users[name]
		if !ok {
			if body.Password == "" {
				respondError(w, http.StatusBadRequest, "missing password")
				return
			}
			user = &userEntry{}
			s.users[name] = user
		}
		if body.Password != "" {
			user.Password = body.Password
		}
		if body.TokenPolicies != nil {
			user.Policies = body.TokenPolicies
		}
		if body.TokenTTL != "" {
			d, err := parseutil.ParseDurationSecond(body.TokenTTL)
			if err != nil {
				respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			user.TTL = d
		}
		s.respondNoContent(w, r)

	case kind == "users" && name != "" && r.Method == http.MethodDelete:
		delete(s.users, name)
		s.respondNoContent(w, r)

	default:
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

func (s *Server) serveAppRole(w http.ResponseWriter, r *http.Request, mount, rest string) {
	if rest == "login" {
		var body struct {
			RoleID   string `json:"role_id"`
			SecretID string `json:"secret_id"`
		}
		decodeBody(r, &body)
		if body.RoleID == "" {
			respondError(w, http.StatusBadRequest, "missing role_id")
			return
		}
		for _, role := range s.approles {
			if role.RoleID != body.RoleID {
				continue
			}
			secretMeta, ok := role.SecretIDs[body.SecretID]
			if !ok {
				break
			}
			meta := map[string]string{"role_name": role.Name}
			for k, v := range secretMeta {
				meta[k] = v
			}
			s.login(w, r, role.Policies, meta, "auth/"+mount+"/login")
			return
		}
		respondError(w, http.StatusBadRequest, errInvalidRoleOrID)
		return
	}

	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] != "role" || parts[1] == "" {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no handler for route %q. route entry not found.", relPath(r)))
		return
	}
	name := parts[1]

	switch {
	case len(parts) == 2 && (r.Method == http.MethodPost || r.Method == http.MethodPut):
		var body struct {
			TokenPolicies []string `json:"token_policies"`
		}
		decodeBody(r, &body)
		s.appRole(name).Policies = body.TokenPolicies
		s.respondNoContent(w, r)

	case len(parts) == 3 && parts[2] == "role-id" && r.Method == http.MethodGet:
		role, ok := s.approles[name]
		if !ok {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("role %q does not exist", name))
			return
		}
		s.respondData(w, r, map[string]any{"role_id": role.RoleID})

	case len(parts) == 3 && parts[2] == "secret-id" && r.Method == http.MethodPost:
		role, ok := s.approles[name]
		if !ok {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("role %q does not exist", name))
			return
		}
		var body struct {
			Metadata string   `json:"metadata"`
			CIDRList []string `json:"cidr_list"`
		}
		decodeBody(r, &body)
		var meta map[string]string
		if body.Metadata != "" {
			if err := json.Unmarshal([]byte(body.Metadata), &meta); err != nil {
				respondError(w, http.StatusBadRequest, "failed to parse metadata: "+err.Error())
				return
			}
		}
		secretID := generateID()
		role.SecretIDs[secretID] = meta
		s.respondData(w, r, map[string]any{
			"secret_id":          secretID,
			"secret_id_accessor": generateID(),
			"secret_id_ttl":      0,
			"secret_id_num_uses": 0,
		})

	default:
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

func (s *Server) serveJWT(w http.ResponseWriter, r *http.Request, mount, rest string) {
	if rest != "login" || (r.Method != http.MethodPost && r.Method != http.MethodPut) {
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
		return
	}

	var body struct {
		JWT  string `json:"jwt"`
		Role string `json:"role"`
	}
	decodeBody(r, &body)
	if body.Role == "" {
		respondError(w, http.StatusBadRequest, "missing role")
		return
	}
	role, ok := s.jwtRoles[body.Role]
	if !ok {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("role %q could not be found", body.Role))
		return
	}
	if _, ok := role.JWTs[body.JWT]; !ok {
		respondError(w, http.StatusBadRequest, "error validating token: invalid signature")
		return
	}
	s.login(w, r, role.Policies, map[string]string{"role": body.Role}, "auth/"+mount+"/login")
}

// serveOIDC answers the two calls of the browser flow. The authorization
// URL points at a fictional provider; tests drive the redirect themselves
// with the state and nonce it carries.
func (s *Server) serveOIDC(w http.ResponseWriter, r *http.Request, mount, rest string) {
	switch {
	case rest == "oidc/auth_url" && r.Method == http.MethodPost:
		var body struct {
			Role        string `json:"role"`
			RedirectURI string `json:"redirect_uri"`
		}
		decodeBody(r, &body)
		if body.RedirectURI == "" {
			respondError(w, http.StatusBadRequest, "missing redirect_uri")
			return
		}
		state, nonce := generateID(), generateID()
		s.oidc[state] = &oidcState{Role: body.Role, Nonce: nonce, Redirect: body.RedirectURI}

		q := url.Values{
			"client_id":    {"testserver"},
			"redirect_uri": {body.RedirectURI},
			"state":        {state},
			"nonce":        {nonce},
		}
		s.respondData(w, r, map[string]any{"auth_url": "https://idp.test/authorize?" + q.Encode()})

	case rest == "oidc/callback" && r.Method == http.MethodGet:
		q := r.URL.Query()
		st, ok := s.oidc[q.Get("state")]
		if !ok {
			respondError(w, http.StatusBadRequest, "Expired or missing OAuth state.")
			return
		}
		if q.Get("nonce") != st.Nonce || q.Get("code") == "" {
			respondError(w, http.StatusBadRequest, "invalid OIDC callback")
			return
		}
		delete(s.oidc, q.Get("state"))
		s.login(w, r, nil, map[string]string{"role": st.Role}, "auth/"+mount+"/oidc/callback")

	default:
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

// serveAWS checks the shape of a signed GetCallerIdentity request. The
// request is not replayed against AWS.
func (s *Server) serveAWS(w http.ResponseWriter, r *http.Request, mount, rest string) {
	if rest != "login" || r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "unsupported operation")
		return
	}

	var body struct {
		Role    string `json:"role"`
		Method  string `json:"iam_http_request_method"`
		URL     string `json:"iam_request_url"`
		Body    string `json:"iam_request_body"`
		Headers string `json:"iam_request_headers"`
	}
	decodeBody(r, &body)

	if body.Method != http.MethodPost {
		respondError(w, http.StatusBadRequest, "invalid iam_http_request_method")
		return
	}
	reqBody, err := base64.StdEncoding.DecodeString(body.Body)
	if err != nil || !strings.Contains(string(reqBody), "Action=GetCallerIdentity") {
		respondError(w, http.StatusBadRequest, "invalid iam_request_body")
		return
	}
	if _, err := base64.StdEncoding.DecodeString(body.URL); err != nil {
		respondError(w, http.StatusBadRequest, "invalid iam_request_url")
		return
	}
	rawHeaders, err := base64.StdEncoding.DecodeString(body.Headers)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid iam_request_headers")
		return
	}
	var headers http.Header
	if err := json.Unmarshal(rawHeaders, &headers); err != nil {
		respondError(w, http.StatusBadRequest, "invalid iam_request_headers")
		return
	}
	if !strings.HasPrefix(headers.Get("Authorization"), "AWS4-HMAC-SHA256") {
		respondError(w, http.StatusBadRequest, "request is not signed")
		return
	}

	s.login(w, r, nil, map[string]string{"role": body.Role}, "auth/"+mount+"/login")
}
