// Package sqlite persists grants and tokens in SQLite behind the same store
// contracts the in-memory implementations satisfy.
package sqlite

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gummaworks/gauth/internal/oauth"
)

// Timestamps are stored as Unix nanoseconds so SQL comparisons order
// correctly; formatted strings do not sort reliably across varying
// sub-second precision.
const schema = `
CREATE TABLE IF NOT EXISTS grants (
	code TEXT PRIMARY KEY,
	client_id TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	redirect_uri TEXT NOT NULL,
	scope TEXT NOT NULL,
	issued_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	consumed INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS tokens (
	access_token TEXT PRIMARY KEY,
	refresh_token TEXT,
	client_id TEXT NOT NULL,
	owner_id TEXT NOT NULL,
	scope TEXT NOT NULL,
	issued_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	refresh_expires_at INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS tokens_refresh ON tokens (refresh_token) WHERE refresh_token IS NOT NULL;
`

// Store implements oauth.GrantStore and oauth.Issuer over a SQLite file.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// Open opens (or creates) the store at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// The driver serializes writes; a single connection avoids SQLITE_BUSY
	// on concurrent redemptions.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, clock: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Create implements oauth.GrantStore.
func (s *Store) Create(clientID, ownerID, redirectURI string, scope oauth.Scope, ttl time.Duration) (oauth.Grant, error) {
	code, err := generateToken(32)
	if err != nil {
		return oauth.Grant{}, err
	}
	now := s.clock().UTC()
	expiresAt := now.Add(ttl)
	_, err = s.db.Exec(
		`INSERT INTO grants (code, client_id, owner_id, redirect_uri, scope, issued_at, expires_at, consumed)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		code, clientID, ownerID, redirectURI, scope.String(),
		now.UnixNano(), expiresAt.UnixNano(),
	)
	if err != nil {
		return oauth.Grant{}, fmt.Errorf("insert grant: %w", err)
	}
	return oauth.Grant{
		Code:        code,
		ClientID:    clientID,
		OwnerID:     ownerID,
		RedirectURI: redirectURI,
		Scope:       scope,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	}, nil
}

// Consume implements oauth.GrantStore. The guarded UPDATE carries the single
// authoritative consumed and expiry check, so racing redemptions resolve to
// one winner.
func (s *Store) Consume(code, clientID, redirectURI string) (oauth.Grant, error) {
	grant, err := s.getGrant(code)
	if err != nil {
		return oauth.Grant{}, err
	}
	if grant == nil {
		return oauth.Grant{}, oauth.ErrInvalidGrant
	}
	if grant.ClientID != clientID || grant.RedirectURI != redirectURI {
		return oauth.Grant{}, oauth.ErrInvalidGrant
	}

	now := s.clock().UTC()
	result, err := s.db.Exec(
		`UPDATE grants SET consumed = 1 WHERE code = ? AND consumed = 0 AND expires_at > ?`,
		code, now.UnixNano(),
	)
	if err != nil {
		return oauth.Grant{}, fmt.Errorf("consume grant: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return oauth.Grant{}, fmt.Errorf("consume grant: %w", err)
	}
	if rows != 1 {
		return oauth.Grant{}, oauth.ErrInvalidGrant
	}
	grant.Consumed = true
	return *grant, nil
}

func (s *Store) getGrant(code string) (*oauth.Grant, error) {
	var grant oauth.Grant
	var scope string
	var issuedAt, expiresAt int64
	var consumed int
	err := s.db.QueryRow(
		`SELECT code, client_id, owner_id, redirect_uri, scope, issued_at, expires_at, consumed
		FROM grants WHERE code = ?`,
		code,
	).Scan(&grant.Code, &grant.ClientID, &grant.OwnerID, &grant.RedirectURI, &scope, &issuedAt, &expiresAt, &consumed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load grant: %w", err)
	}
	grant.Scope = oauth.ParseScope(scope)
	grant.Consumed = consumed != 0
	grant.IssuedAt = time.Unix(0, issuedAt).UTC()
	grant.ExpiresAt = time.Unix(0, expiresAt).UTC()
	return &grant, nil
}

// Issue implements oauth.Issuer.
func (s *Store) Issue(clientID, ownerID string, scope oauth.Scope, ttl, refreshTTL time.Duration) (oauth.Token, error) {
	access, err := generateToken(32)
	if err != nil {
		return oauth.Token{}, err
	}
	now := s.clock().UTC()
	token := oauth.Token{
		AccessToken: access,
		ClientID:    clientID,
		OwnerID:     ownerID,
		Scope:       scope,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
	}

	var refresh sql.NullString
	var refreshExpires sql.NullInt64
	if refreshTTL > 0 {
		value, err := generateToken(32)
		if err != nil {
			return oauth.Token{}, err
		}
		token.RefreshToken = value
		token.RefreshExpiresAt = now.Add(refreshTTL)
		refresh = sql.NullString{String: value, Valid: true}
		refreshExpires = sql.NullInt64{Int64: token.RefreshExpiresAt.UnixNano(), Valid: true}
	}

	_, err = s.db.Exec(
		`INSERT INTO tokens (access_token, refresh_token, client_id, owner_id, scope, issued_at, expires_at, refresh_expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		access, refresh, clientID, ownerID, scope.String(),
		now.UnixNano(), token.ExpiresAt.UnixNano(), refreshExpires,
	)
	if err != nil {
		return oauth.Token{}, fmt.Errorf("insert token: %w", err)
	}
	return token, nil
}

// Validate implements oauth.Issuer.
func (s *Store) Validate(accessToken string) (oauth.Token, bool) {
	token, err := s.getToken(`access_token = ?`, accessToken)
	if err != nil || token == nil {
		return oauth.Token{}, false
	}
	if s.clock().UTC().After(token.ExpiresAt) {
		return oauth.Token{}, false
	}
	return *token, true
}

// Refresh implements oauth.Issuer.
func (s *Store) Refresh(refreshToken, clientID string, requested oauth.Scope, ttl, refreshTTL time.Duration, rotate bool) (oauth.Token, error) {
	prior, err := s.getToken(`refresh_token = ?`, refreshToken)
	if err != nil {
		return oauth.Token{}, err
	}
	if prior == nil || prior.ClientID != clientID {
		return oauth.Token{}, oauth.ErrInvalidGrant
	}
	now := s.clock().UTC()
	if now.After(prior.RefreshExpiresAt) {
		_, _ = s.db.Exec(`DELETE FROM tokens WHERE refresh_token = ?`, refreshToken)
		return oauth.Token{}, oauth.ErrInvalidGrant
	}

	scope := prior.Scope
	if !requested.IsEmpty() {
		if !requested.Subset(prior.Scope) {
			return oauth.Token{}, oauth.ErrInvalidScope
		}
		scope = requested
	}

	if rotate {
		// The guarded DELETE is the single-use step: a racing refresh on the
		// same token finds zero rows and fails.
		result, err := s.db.Exec(`DELETE FROM tokens WHERE refresh_token = ?`, refreshToken)
		if err != nil {
			return oauth.Token{}, fmt.Errorf("retire refresh token: %w", err)
		}
		if rows, err := result.RowsAffected(); err != nil || rows != 1 {
			return oauth.Token{}, oauth.ErrInvalidGrant
		}
		return s.Issue(clientID, prior.OwnerID, scope, ttl, refreshTTL)
	}

	access, err := generateToken(32)
	if err != nil {
		return oauth.Token{}, err
	}
	expiresAt := now.Add(ttl)
	_, err = s.db.Exec(
		`UPDATE tokens SET access_token = ?, scope = ?, issued_at = ?, expires_at = ? WHERE refresh_token = ?`,
		access, scope.String(), now.UnixNano(), expiresAt.UnixNano(), refreshToken,
	)
	if err != nil {
		return oauth.Token{}, fmt.Errorf("rotate access token: %w", err)
	}
	prior.AccessToken = access
	prior.Scope = scope
	prior.IssuedAt = now
	prior.ExpiresAt = expiresAt
	return *prior, nil
}

// Revoke implements oauth.Issuer.
func (s *Store) Revoke(accessToken string) {
	_, _ = s.db.Exec(`DELETE FROM tokens WHERE access_token = ?`, accessToken)
}

// Sweep implements the shared expiry eviction for both tables. Tokens with a
// live refresh half stay until the refresh expiry passes.
func (s *Store) Sweep(now time.Time) {
	stamp := now.UTC().UnixNano()
	_, _ = s.db.Exec(`DELETE FROM grants WHERE expires_at <= ? OR consumed = 1`, stamp)
	_, _ = s.db.Exec(`DELETE FROM tokens WHERE expires_at <= ? AND (refresh_expires_at IS NULL OR refresh_expires_at <= ?)`, stamp, stamp)
}

func (s *Store) getToken(where string, arg any) (*oauth.Token, error) {
	var token oauth.Token
	var refresh sql.NullString
	var refreshExpires sql.NullInt64
	var scope string
	var issuedAt, expiresAt int64
	err := s.db.QueryRow(
		`SELECT access_token, refresh_token, client_id, owner_id, scope, issued_at, expires_at, refresh_expires_at
		FROM tokens WHERE `+where,
		arg,
	).Scan(&token.AccessToken, &refresh, &token.ClientID, &token.OwnerID, &scope, &issuedAt, &expiresAt, &refreshExpires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load token: %w", err)
	}
	token.Scope = oauth.ParseScope(scope)
	if refresh.Valid {
		token.RefreshToken = refresh.String
	}
	token.IssuedAt = time.Unix(0, issuedAt).UTC()
	token.ExpiresAt = time.Unix(0, expiresAt).UTC()
	if refreshExpires.Valid {
		token.RefreshExpiresAt = time.Unix(0, refreshExpires.Int64).UTC()
	}
	return &token, nil
}
