package oauth

import (
	"sync"
	"time"
)

// Token is an issued bearer credential. Access and refresh values are opaque
// random strings with no decodable structure.
type Token struct {
	AccessToken  string
	RefreshToken string
	ClientID     string
	OwnerID      string
	Scope        Scope
	IssuedAt     time.Time
	ExpiresAt    time.Time
	// RefreshExpiresAt bounds the refresh token's life independently of the
	// access token's. Zero when no refresh token was issued.
	RefreshExpiresAt time.Time
}

// Issuer mints, validates, and revokes tokens.
type Issuer interface {
	// Issue mints a token pair for the client. A zero refreshTTL disables
	// the refresh token.
	Issue(clientID, ownerID string, scope Scope, ttl, refreshTTL time.Duration) (Token, error)
	// Validate resolves an access token. It returns false for unknown or
	// expired tokens; no token is valid past its expiry.
	Validate(accessToken string) (Token, bool)
	// Refresh exchanges a refresh token for a fresh pair. The issuing client
	// must match; the requested scope must not widen the original (empty
	// keeps it). When rotate is set the old refresh token is retired.
	Refresh(refreshToken, clientID string, requested Scope, ttl, refreshTTL time.Duration, rotate bool) (Token, error)
	// Revoke removes an access token and its paired refresh token.
	Revoke(accessToken string)
	// Sweep deletes tokens past their expiry.
	Sweep(now time.Time)
}

// MemoryTokens is the in-memory Issuer. Access tokens key the primary map; a
// secondary index resolves refresh tokens.
type MemoryTokens struct {
	mu      sync.Mutex
	access  map[string]*Token
	refresh map[string]*Token
	clock   func() time.Time
}

// NewMemoryTokens creates an empty in-memory token issuer.
func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{
		access:  make(map[string]*Token),
		refresh: make(map[string]*Token),
		clock:   time.Now,
	}
}

// Issue implements Issuer.
func (m *MemoryTokens) Issue(clientID, ownerID string, scope Scope, ttl, refreshTTL time.Duration) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issueLocked(clientID, ownerID, scope, ttl, refreshTTL)
}

func (m *MemoryTokens) issueLocked(clientID, ownerID string, scope Scope, ttl, refreshTTL time.Duration) (Token, error) {
	access, err := m.freshSecret(m.access)
	if err != nil {
		return Token{}, err
	}
	var refresh string
	if refreshTTL > 0 {
		if refresh, err = m.freshSecret(m.refresh); err != nil {
			return Token{}, err
		}
	}

	now := m.clock().UTC()
	token := Token{
		AccessToken:  access,
		RefreshToken: refresh,
		ClientID:     clientID,
		OwnerID:      ownerID,
		Scope:        scope,
		IssuedAt:     now,
		ExpiresAt:    now.Add(ttl),
	}
	if refresh != "" {
		token.RefreshExpiresAt = now.Add(refreshTTL)
	}
	m.access[access] = &token
	if refresh != "" {
		m.refresh[refresh] = &token
	}
	return token, nil
}

// freshSecret draws random values until one misses the index. A collision in
// a 256-bit space is negligible; the loop is a guard, not an expectation.
func (m *MemoryTokens) freshSecret(index map[string]*Token) (string, error) {
	for {
		value, err := newSecret(secretLength)
		if err != nil {
			return "", err
		}
		if _, exists := index[value]; !exists {
			return value, nil
		}
	}
}

// Validate implements Issuer.
func (m *MemoryTokens) Validate(accessToken string) (Token, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.access[accessToken]
	if !ok {
		return Token{}, false
	}
	if m.clock().UTC().After(token.ExpiresAt) {
		m.removeLocked(token)
		return Token{}, false
	}
	return *token, true
}

// Refresh implements Issuer.
func (m *MemoryTokens) Refresh(refreshToken, clientID string, requested Scope, ttl, refreshTTL time.Duration, rotate bool) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prior, ok := m.refresh[refreshToken]
	if !ok || prior.ClientID != clientID {
		return Token{}, ErrInvalidGrant
	}
	if m.clock().UTC().After(prior.RefreshExpiresAt) {
		m.removeLocked(prior)
		return Token{}, ErrInvalidGrant
	}

	scope := prior.Scope
	if !requested.IsEmpty() {
		if !requested.Subset(prior.Scope) {
			return Token{}, ErrInvalidScope
		}
		scope = requested
	}

	if rotate {
		m.removeLocked(prior)
		return m.issueLocked(clientID, prior.OwnerID, scope, ttl, refreshTTL)
	}

	// Reuse policy: the refresh token stays live, only the access half turns.
	delete(m.access, prior.AccessToken)
	access, err := m.freshSecret(m.access)
	if err != nil {
		return Token{}, err
	}
	now := m.clock().UTC()
	prior.AccessToken = access
	prior.Scope = scope
	prior.IssuedAt = now
	prior.ExpiresAt = now.Add(ttl)
	m.access[access] = prior
	return *prior, nil
}

// Revoke implements Issuer.
func (m *MemoryTokens) Revoke(accessToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token, ok := m.access[accessToken]; ok {
		m.removeLocked(token)
	}
}

// Sweep implements Issuer.
func (m *MemoryTokens) Sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now = now.UTC()
	for access, token := range m.access {
		if !now.After(token.ExpiresAt) {
			continue
		}
		if token.RefreshToken != "" && !now.After(token.RefreshExpiresAt) {
			// The refresh half is still live; only the access entry goes.
			delete(m.access, access)
			continue
		}
		m.removeLocked(token)
	}
	for refresh, token := range m.refresh {
		if now.After(token.RefreshExpiresAt) {
			delete(m.refresh, refresh)
			delete(m.access, token.AccessToken)
		}
	}
}

func (m *MemoryTokens) removeLocked(token *Token) {
	delete(m.access, token.AccessToken)
	if token.RefreshToken != "" {
		delete(m.refresh, token.RefreshToken)
	}
}
