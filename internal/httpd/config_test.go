package httpd

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfigFromEnv()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.Addr != ":8080" {
			t.Errorf("addr = %q, want :8080", cfg.Addr)
		}
		if cfg.TokenTTL != time.Hour {
			t.Errorf("token ttl = %v, want 1h", cfg.TokenTTL)
		}
		if cfg.AuthorizationCodeTTL != 10*time.Minute {
			t.Errorf("code ttl = %v, want 10m", cfg.AuthorizationCodeTTL)
		}
		if !cfg.RotateRefreshTokens {
			t.Error("expected rotation enabled by default")
		}
	})

	t.Run("clients from JSON", func(t *testing.T) {
		t.Setenv("GAUTH_CLIENTS", `[
			{"client_id":"plupp","client_secret":"plupp","redirect_uris":["http://localhost:8080/redirect"],"scopes":["default"]},
			{"client_id":"plapp","redirect_uris":["http://localhost:8080/redirect"]}
		]`)
		cfg, err := LoadConfigFromEnv()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if len(cfg.Clients) != 2 {
			t.Fatalf("clients = %d, want 2", len(cfg.Clients))
		}
		if cfg.Clients[0].Secret != "plupp" {
			t.Errorf("secret = %q", cfg.Clients[0].Secret)
		}
		if cfg.Clients[1].Secret != "" {
			t.Errorf("expected plapp to be public")
		}
	})

	t.Run("invalid clients JSON", func(t *testing.T) {
		t.Setenv("GAUTH_CLIENTS", "{not json")
		if _, err := LoadConfigFromEnv(); err == nil {
			t.Error("expected error for malformed GAUTH_CLIENTS")
		}
	})
}

func TestBuildRegistry(t *testing.T) {
	registry, err := buildRegistry([]ClientConfig{
		{ID: "plupp", Secret: "plupp", RedirectURIs: []string{"http://localhost:8080/redirect"}, Scopes: []string{"default"}},
		{ID: "plapp", RedirectURIs: []string{"http://localhost:8080/redirect"}, Scopes: []string{"default"}},
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	confidential, ok := registry.Lookup("plupp")
	if !ok {
		t.Fatal("plupp not registered")
	}
	if !confidential.Confidential {
		t.Error("expected plupp to be confidential")
	}
	if !registry.Authenticate("plupp", "plupp") {
		t.Error("expected plupp credentials to authenticate")
	}

	public, ok := registry.Lookup("plapp")
	if !ok {
		t.Fatal("plapp not registered")
	}
	if public.Confidential {
		t.Error("expected plapp to be public")
	}

	if _, err := buildRegistry([]ClientConfig{{ID: "dup"}, {ID: "dup"}}); err == nil {
		t.Error("expected duplicate client error")
	}
}
