// Package httpd binds the OAuth core to net/http. It is a thin adapter: one
// translation in, one translation out, no protocol logic of its own.
package httpd

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gummaworks/gauth/internal/oauth"
	"github.com/gummaworks/gauth/internal/oauth/sqlite"
	"github.com/gummaworks/gauth/internal/platform/obs"
)

// Server hosts the OAuth endpoints.
type Server struct {
	config   Config
	endpoint *oauth.Endpoint
	logger   *slog.Logger
	store    *sqlite.Store
}

// New wires stores, registry, and solicitor into a server. A nil solicitor
// selects one from the configured consent mode: auto-approve on behalf of the
// configured owner, or parameter-driven consent. Production deployments may
// inject their own. An empty StorePath selects the in-memory stores.
func New(config Config, solicitor oauth.Solicitor) (*Server, error) {
	registry, err := buildRegistry(config.Clients)
	if err != nil {
		return nil, err
	}
	if solicitor == nil {
		solicitor = solicitorFromConfig(config)
	}

	var grants oauth.GrantStore
	var tokens oauth.Issuer
	var store *sqlite.Store
	if strings.TrimSpace(config.StorePath) != "" {
		store, err = sqlite.Open(config.StorePath)
		if err != nil {
			return nil, err
		}
		grants, tokens = store, store
	} else {
		grants = oauth.NewMemoryGrants()
		tokens = oauth.NewMemoryTokens()
	}

	endpoint := oauth.NewEndpoint(config.endpointConfig(), registry, grants, tokens, solicitor)
	return &Server{
		config:   config,
		endpoint: endpoint,
		logger:   obs.Logger(),
		store:    store,
	}, nil
}

// Endpoint exposes the underlying coordinator.
func (s *Server) Endpoint() *oauth.Endpoint {
	return s.endpoint
}

// Close releases the backing store, if any.
func (s *Server) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// RegisterRoutes registers the OAuth endpoints on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/authorize", s.handleAuthorize)
	mux.HandleFunc("/token", s.handleToken)
	mux.HandleFunc("/introspect", s.handleIntrospect)
	mux.HandleFunc("/.well-known/oauth-authorization-server", s.handleMetadata)
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", obs.Handler())
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	var handler http.Handler = mux
	handler = MaxBodyBytes(handler, s.config.MaxBodyBytes)
	handler = RateLimit(handler, s.config.RateLimitBurst, s.config.RateLimitPerSecond)
	handler = obs.Instrument(handler)
	handler = Logging(s.logger, handler)
	return handler
}

// StartSweep runs periodic expiry eviction until the context ends.
func (s *Server) StartSweep(ctx context.Context) {
	s.endpoint.StartSweep(ctx, s.config.SweepInterval)
}

// coreRequest flattens an HTTP request into the core's request shape. Form
// parsing has already happened for POST handlers.
func coreRequest(r *http.Request) oauth.Request {
	query := make(map[string]string, len(r.URL.Query()))
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}
	form := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			form[key] = values[0]
		}
	}
	return oauth.Request{
		Query:         query,
		Form:          form,
		Authorization: r.Header.Get("Authorization"),
	}
}

// writeResponse translates the core's response onto the wire.
func writeResponse(w http.ResponseWriter, resp oauth.Response) {
	if resp.Location != "" {
		w.Header().Set("Location", resp.Location)
	}
	if resp.WWWAuthenticate != "" {
		w.Header().Set("WWW-Authenticate", resp.WWWAuthenticate)
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.Status)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := s.endpoint.Authorize(coreRequest(r))
	if resp.Status == http.StatusInternalServerError {
		s.logger.Error("authorize request failed", "client_id", r.URL.Query().Get("client_id"), "body", resp.Body)
	}
	writeResponse(w, resp)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	resp := s.endpoint.Token(coreRequest(r))
	if resp.Status == http.StatusOK {
		obs.CountTokenIssued(r.PostFormValue("grant_type"))
	}
	if resp.Status == http.StatusInternalServerError {
		s.logger.Error("token request failed", "grant_type", r.PostFormValue("grant_type"), "body", resp.Body)
	}
	writeResponse(w, resp)
}

type introspectResponse struct {
	Active   bool   `json:"active"`
	Scope    string `json:"scope,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	OwnerID  string `json:"owner_id,omitempty"`
	Exp      int64  `json:"exp,omitempty"`
}

// handleIntrospect reports token state to resource servers that present the
// shared resource secret.
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.ResourceSecret == "" {
		http.Error(w, "missing shared secret", http.StatusInternalServerError)
		return
	}
	if r.Header.Get("X-Resource-Secret") != s.config.ResourceSecret {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		http.Error(w, "missing bearer token", http.StatusBadRequest)
		return
	}
	accessToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if accessToken == "" {
		http.Error(w, "missing bearer token", http.StatusBadRequest)
		return
	}

	token, ok := s.endpoint.ValidateAccessToken(accessToken)
	if !ok {
		writeJSON(w, http.StatusOK, introspectResponse{Active: false})
		return
	}
	writeJSON(w, http.StatusOK, introspectResponse{
		Active:   true,
		Scope:    token.Scope.String(),
		ClientID: token.ClientID,
		OwnerID:  token.OwnerID,
		Exp:      token.ExpiresAt.Unix(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
