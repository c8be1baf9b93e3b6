package httpd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gummaworks/gauth/internal/oauth"
)

func TestParamConsent(t *testing.T) {
	cfg := testConfig()
	cfg.ConsentMode = ConsentModeParam
	server, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { server.Close() })

	authorize := func(t *testing.T, extra string) *httptest.ResponseRecorder {
		t.Helper()
		target := "/authorize?response_type=code&client_id=demo&redirect_uri=" +
			url.QueryEscape("https://app.example/cb") + "&scope=read&state=xyz" + extra
		w := httptest.NewRecorder()
		server.handleAuthorize(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w
	}

	t.Run("no consent parameter denies", func(t *testing.T) {
		w := authorize(t, "")
		location, err := url.Parse(w.Header().Get("Location"))
		if err != nil {
			t.Fatalf("parse location: %v", err)
		}
		if location.Query().Get("error") != "access_denied" {
			t.Errorf("error = %q, want access_denied", location.Query().Get("error"))
		}
		if location.Query().Get("state") != "xyz" {
			t.Errorf("state = %q, want preserved", location.Query().Get("state"))
		}
	})

	t.Run("consent=deny denies", func(t *testing.T) {
		w := authorize(t, "&consent=deny")
		location, err := url.Parse(w.Header().Get("Location"))
		if err != nil {
			t.Fatalf("parse location: %v", err)
		}
		if location.Query().Get("error") != "access_denied" {
			t.Errorf("error = %q, want access_denied", location.Query().Get("error"))
		}
	})

	t.Run("consent=approve grants for the named owner", func(t *testing.T) {
		w := authorize(t, "&consent=approve&owner=alice")
		if w.Code != http.StatusFound {
			t.Fatalf("status = %d, want 302 (body %q)", w.Code, w.Body.String())
		}
		location, err := url.Parse(w.Header().Get("Location"))
		if err != nil {
			t.Fatalf("parse location: %v", err)
		}
		code := location.Query().Get("code")
		if code == "" {
			t.Fatal("missing code in redirect")
		}

		// The grant carries the owner from the request, visible after
		// exchange via introspection.
		form := url.Values{}
		form.Set("grant_type", "authorization_code")
		form.Set("code", code)
		form.Set("redirect_uri", "https://app.example/cb")
		form.Set("client_id", "demo")
		req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		tw := httptest.NewRecorder()
		server.handleToken(tw, req)
		if tw.Code != http.StatusOK {
			t.Fatalf("token status = %d (body %q)", tw.Code, tw.Body.String())
		}
		var body map[string]any
		if err := json.NewDecoder(tw.Body).Decode(&body); err != nil {
			t.Fatalf("decode token body: %v", err)
		}
		token, ok := server.Endpoint().ValidateAccessToken(body["access_token"].(string))
		if !ok {
			t.Fatal("issued token failed validation")
		}
		if token.OwnerID != "alice" {
			t.Errorf("owner = %q, want alice", token.OwnerID)
		}
	})

	t.Run("consent=approve without owner uses the fallback", func(t *testing.T) {
		w := authorize(t, "&consent=approve")
		if w.Code != http.StatusFound {
			t.Fatalf("status = %d, want 302", w.Code)
		}
		location, err := url.Parse(w.Header().Get("Location"))
		if err != nil {
			t.Fatalf("parse location: %v", err)
		}
		if location.Query().Get("code") == "" {
			t.Error("missing code in redirect")
		}
	})
}

func TestSolicitorFromConfig(t *testing.T) {
	approve := oauth.ConsentContext{Request: oauth.Request{Query: map[string]string{"consent": "approve"}}}
	deny := oauth.ConsentContext{Request: oauth.Request{}}

	t.Run("auto approves regardless of parameters", func(t *testing.T) {
		solicitor := solicitorFromConfig(Config{ConsentMode: ConsentModeAuto, ConsentOwner: "owner-1"})
		decision := solicitor.Decide(deny)
		if !decision.Authorized || decision.OwnerID != "owner-1" {
			t.Errorf("decision = %+v, want authorized for owner-1", decision)
		}
	})

	t.Run("param follows the request", func(t *testing.T) {
		solicitor := solicitorFromConfig(Config{ConsentMode: ConsentModeParam, ConsentOwner: "owner-1"})
		if decision := solicitor.Decide(deny); decision.Authorized {
			t.Errorf("decision = %+v, want denied without consent parameter", decision)
		}
		decision := solicitor.Decide(approve)
		if !decision.Authorized || decision.OwnerID != "owner-1" {
			t.Errorf("decision = %+v, want authorized for the fallback owner", decision)
		}
	})
}
