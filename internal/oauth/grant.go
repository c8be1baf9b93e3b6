package oauth

import (
	"sync"
	"time"
)

// Grant is a single-use authorization code binding a client, redirect URI,
// and scope until it is redeemed or expires.
type Grant struct {
	Code        string
	ClientID    string
	OwnerID     string
	RedirectURI string
	Scope       Scope
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Consumed    bool
}

// GrantStore owns issued authorization codes. Implementations must make
// Consume atomic: concurrent redemptions of the same code yield exactly one
// success.
type GrantStore interface {
	// Create mints a fresh random code and stores the grant.
	Create(clientID, ownerID, redirectURI string, scope Scope, ttl time.Duration) (Grant, error)
	// Consume redeems a code at most once. The client and redirect URI must
	// match the values the grant was issued with; expiry is checked inside
	// the same atomic step. Every failure is ErrInvalidGrant.
	Consume(code, clientID, redirectURI string) (Grant, error)
	// Sweep deletes grants past their expiry.
	Sweep(now time.Time)
}

// MemoryGrants is the in-memory GrantStore. A single mutex serializes all
// mutations, which makes the consumed flag flip and the expiry check one
// atomic step.
type MemoryGrants struct {
	mu     sync.Mutex
	grants map[string]*Grant
	clock  func() time.Time
}

// NewMemoryGrants creates an empty in-memory grant store.
func NewMemoryGrants() *MemoryGrants {
	return &MemoryGrants{grants: make(map[string]*Grant), clock: time.Now}
}

// Create implements GrantStore.
func (m *MemoryGrants) Create(clientID, ownerID, redirectURI string, scope Scope, ttl time.Duration) (Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, err := newSecret(secretLength)
	if err != nil {
		return Grant{}, err
	}
	for _, exists := m.grants[code]; exists; _, exists = m.grants[code] {
		if code, err = newSecret(secretLength); err != nil {
			return Grant{}, err
		}
	}

	now := m.clock().UTC()
	grant := Grant{
		Code:        code,
		ClientID:    clientID,
		OwnerID:     ownerID,
		RedirectURI: redirectURI,
		Scope:       scope,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
	}
	m.grants[code] = &grant
	return grant, nil
}

// Consume implements GrantStore.
func (m *MemoryGrants) Consume(code, clientID, redirectURI string) (Grant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	grant, ok := m.grants[code]
	if !ok || grant.Consumed {
		return Grant{}, ErrInvalidGrant
	}
	if m.clock().UTC().After(grant.ExpiresAt) {
		delete(m.grants, code)
		return Grant{}, ErrInvalidGrant
	}
	if grant.ClientID != clientID || grant.RedirectURI != redirectURI {
		return Grant{}, ErrInvalidGrant
	}
	grant.Consumed = true
	return *grant, nil
}

// Sweep implements GrantStore.
func (m *MemoryGrants) Sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now = now.UTC()
	for code, grant := range m.grants {
		if now.After(grant.ExpiresAt) || grant.Consumed {
			delete(m.grants, code)
		}
	}
}
