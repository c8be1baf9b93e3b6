package oauth

import (
	"context"
	"time"
)

// Config carries the issuance policy for an endpoint.
type Config struct {
	// AuthorizationCodeTTL bounds how long a grant may wait for redemption.
	AuthorizationCodeTTL time.Duration
	// TokenTTL is the access token lifetime.
	TokenTTL time.Duration
	// RefreshTokenTTL is the refresh token lifetime; zero disables refresh
	// tokens entirely.
	RefreshTokenTTL time.Duration
	// RotateRefreshTokens retires the old refresh token on every refresh
	// when set; otherwise the same refresh token is reused.
	RotateRefreshTokens bool
}

// DefaultConfig returns the stock issuance policy.
func DefaultConfig() Config {
	return Config{
		AuthorizationCodeTTL: 10 * time.Minute,
		TokenTTL:             time.Hour,
		RefreshTokenTTL:      24 * time.Hour,
		RotateRefreshTokens:  true,
	}
}

// Endpoint composes the client registry, grant store, token issuer, and
// consent solicitor into the authorization and token flows. It is the single
// integration point HTTP adapters consume.
type Endpoint struct {
	config    Config
	registry  *Registry
	grants    GrantStore
	tokens    Issuer
	solicitor Solicitor
}

// NewEndpoint wires stores and the solicitor into an endpoint.
func NewEndpoint(config Config, registry *Registry, grants GrantStore, tokens Issuer, solicitor Solicitor) *Endpoint {
	return &Endpoint{
		config:    config,
		registry:  registry,
		grants:    grants,
		tokens:    tokens,
		solicitor: solicitor,
	}
}

// Registry exposes the client registry for registration at boot.
func (e *Endpoint) Registry() *Registry {
	return e.registry
}

// ValidateAccessToken resolves an access token for resource servers.
func (e *Endpoint) ValidateAccessToken(accessToken string) (Token, bool) {
	return e.tokens.Validate(accessToken)
}

// RevokeAccessToken removes a token and its refresh pair.
func (e *Endpoint) RevokeAccessToken(accessToken string) {
	e.tokens.Revoke(accessToken)
}

// Sweep evicts expired grants and tokens.
func (e *Endpoint) Sweep(now time.Time) {
	e.grants.Sweep(now)
	e.tokens.Sweep(now)
}

// StartSweep runs periodic expiry eviction until the context ends. Sweeping
// only deletes entries already past expiry; redemption's own atomic expiry
// check keeps the boundary deterministic.
func (e *Endpoint) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.Sweep(time.Now())
			}
		}
	}()
}
