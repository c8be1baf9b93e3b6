package oauth

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Client is a registered OAuth client application. Clients are immutable once
// registered.
type Client struct {
	ID string
	// Name is an optional human-readable label.
	Name string
	// Confidential clients authenticate with a secret; public clients are
	// identified by id alone.
	Confidential bool
	// SecretHash is the bcrypt hash of the client secret, set only for
	// confidential clients.
	SecretHash []byte
	// RedirectURIs are the pre-registered redirect targets. Flows match
	// against these exactly, never by prefix.
	RedirectURIs []string
	// AllowedScopes bounds what any grant for this client may carry.
	AllowedScopes Scope
}

// NewPublicClient builds a public client.
func NewPublicClient(id string, redirectURIs []string, allowed Scope) Client {
	return Client{ID: id, RedirectURIs: redirectURIs, AllowedScopes: allowed}
}

// NewConfidentialClient builds a confidential client, hashing the secret.
func NewConfidentialClient(id, secret string, redirectURIs []string, allowed Scope) (Client, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return Client{}, fmt.Errorf("hash client secret: %w", err)
	}
	return Client{
		ID:            id,
		Confidential:  true,
		SecretHash:    hash,
		RedirectURIs:  redirectURIs,
		AllowedScopes: allowed,
	}, nil
}

// Registry stores registered clients keyed by id.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRegistry creates an empty client registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// Register adds a client. It fails with ErrDuplicateClient when the id is
// already taken.
func (r *Registry) Register(client Client) error {
	if client.ID == "" {
		return fmt.Errorf("client id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[client.ID]; ok {
		return fmt.Errorf("register client %q: %w", client.ID, ErrDuplicateClient)
	}
	r.clients[client.ID] = client
	return nil
}

// Lookup returns the client for the id, or false when unknown.
func (r *Registry) Lookup(clientID string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[clientID]
	return client, ok
}

// dummyHash absorbs a bcrypt comparison on authentication paths that have no
// stored hash, so a failed attempt costs the same whether the client id is
// registered or not. Response timing must not enumerate client ids.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gauth-dummy-credential"), bcrypt.DefaultCost)

// Authenticate checks client credentials. Confidential clients must present
// the secret matching their stored hash; public clients must present none.
// Every failure pays exactly one bcrypt comparison.
func (r *Registry) Authenticate(clientID, secret string) bool {
	client, ok := r.Lookup(clientID)
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
		return false
	}
	if !client.Confidential {
		if secret == "" {
			return true
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
		return false
	}
	return bcrypt.CompareHashAndPassword(client.SecretHash, []byte(secret)) == nil
}

// ValidateRedirectURI reports whether uri exactly equals one of the client's
// registered redirect URIs. Mismatches fail closed; there is no default.
func (r *Registry) ValidateRedirectURI(clientID, uri string) bool {
	client, ok := r.Lookup(clientID)
	if !ok || uri == "" {
		return false
	}
	for _, registered := range client.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// ValidateScope resolves the effective scope for a request. An empty request
// defaults to the client's full allowed set; otherwise the requested scope
// must be a subset of what the client allows.
func (r *Registry) ValidateScope(clientID string, requested Scope) (Scope, bool) {
	client, ok := r.Lookup(clientID)
	if !ok {
		return nil, false
	}
	if requested.IsEmpty() {
		return client.AllowedScopes, true
	}
	if !requested.Subset(client.AllowedScopes) {
		return nil, false
	}
	return requested, true
}
