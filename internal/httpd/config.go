package httpd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gummaworks/gauth/internal/oauth"
	"github.com/gummaworks/gauth/internal/platform/config"
)

// ClientConfig describes one registered client in configuration. A client
// with a secret is confidential; without one it is public.
type ClientConfig struct {
	ID           string   `json:"client_id"`
	Secret       string   `json:"client_secret,omitempty"`
	RedirectURIs []string `json:"redirect_uris"`
	Name         string   `json:"client_name,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}

// Config describes the HTTP server configuration.
type Config struct {
	Addr                 string
	Issuer               string
	ResourceSecret       string
	Clients              []ClientConfig
	TokenTTL             time.Duration
	AuthorizationCodeTTL time.Duration
	RefreshTokenTTL      time.Duration
	RotateRefreshTokens  bool
	StorePath            string
	SweepInterval        time.Duration
	ConsentMode          string
	ConsentOwner         string
	RateLimitPerSecond   int
	RateLimitBurst       int
	MaxBodyBytes         int64
}

// httpdEnv holds raw env values for server configuration.
type httpdEnv struct {
	Addr                 string        `env:"GAUTH_ADDR"             envDefault:":8080"`
	Issuer               string        `env:"GAUTH_ISSUER"`
	ResourceSecret       string        `env:"GAUTH_RESOURCE_SECRET"`
	ClientsJSON          string        `env:"GAUTH_CLIENTS"`
	TokenTTL             time.Duration `env:"GAUTH_TOKEN_TTL"        envDefault:"1h"`
	AuthorizationCodeTTL time.Duration `env:"GAUTH_CODE_TTL"         envDefault:"10m"`
	RefreshTokenTTL      time.Duration `env:"GAUTH_REFRESH_TTL"      envDefault:"24h"`
	RotateRefreshTokens  bool          `env:"GAUTH_ROTATE_REFRESH"   envDefault:"true"`
	StorePath            string        `env:"GAUTH_STORE_PATH"`
	SweepInterval        time.Duration `env:"GAUTH_SWEEP_INTERVAL"   envDefault:"1m"`
	ConsentMode          string        `env:"GAUTH_CONSENT_MODE"     envDefault:"auto"`
	ConsentOwner         string        `env:"GAUTH_CONSENT_OWNER"    envDefault:"dev-owner"`
	RateLimitPerSecond   int           `env:"GAUTH_RATE_PER_SECOND"  envDefault:"10"`
	RateLimitBurst       int           `env:"GAUTH_RATE_BURST"       envDefault:"20"`
	MaxBodyBytes         int64         `env:"GAUTH_MAX_BODY_BYTES"   envDefault:"65536"`
}

// LoadConfigFromEnv loads server configuration from GAUTH_* environment
// variables.
func LoadConfigFromEnv() (Config, error) {
	var raw httpdEnv
	if err := config.ParseEnv(&raw); err != nil {
		return Config{}, err
	}

	var clients []ClientConfig
	if strings.TrimSpace(raw.ClientsJSON) != "" {
		if err := json.Unmarshal([]byte(raw.ClientsJSON), &clients); err != nil {
			return Config{}, fmt.Errorf("parse GAUTH_CLIENTS: %w", err)
		}
	}

	return Config{
		Addr:                 raw.Addr,
		Issuer:               raw.Issuer,
		ResourceSecret:       raw.ResourceSecret,
		Clients:              clients,
		TokenTTL:             raw.TokenTTL,
		AuthorizationCodeTTL: raw.AuthorizationCodeTTL,
		RefreshTokenTTL:      raw.RefreshTokenTTL,
		RotateRefreshTokens:  raw.RotateRefreshTokens,
		StorePath:            raw.StorePath,
		SweepInterval:        raw.SweepInterval,
		ConsentMode:          raw.ConsentMode,
		ConsentOwner:         raw.ConsentOwner,
		RateLimitPerSecond:   raw.RateLimitPerSecond,
		RateLimitBurst:       raw.RateLimitBurst,
		MaxBodyBytes:         raw.MaxBodyBytes,
	}, nil
}

// endpointConfig converts the server config into the core issuance policy.
func (c Config) endpointConfig() oauth.Config {
	return oauth.Config{
		AuthorizationCodeTTL: c.AuthorizationCodeTTL,
		TokenTTL:             c.TokenTTL,
		RefreshTokenTTL:      c.RefreshTokenTTL,
		RotateRefreshTokens:  c.RotateRefreshTokens,
	}
}

// buildRegistry registers configured clients.
func buildRegistry(clients []ClientConfig) (*oauth.Registry, error) {
	registry := oauth.NewRegistry()
	for _, entry := range clients {
		allowed := oauth.ParseScope(strings.Join(entry.Scopes, " "))
		var client oauth.Client
		if entry.Secret != "" {
			var err error
			client, err = oauth.NewConfidentialClient(entry.ID, entry.Secret, entry.RedirectURIs, allowed)
			if err != nil {
				return nil, fmt.Errorf("build client %q: %w", entry.ID, err)
			}
		} else {
			client = oauth.NewPublicClient(entry.ID, entry.RedirectURIs, allowed)
		}
		client.Name = entry.Name
		if err := registry.Register(client); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
