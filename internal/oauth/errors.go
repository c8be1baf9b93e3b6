package oauth

import (
	"errors"
	"fmt"
)

// Store-level sentinel errors.
var (
	// ErrDuplicateClient is returned when registering a client id twice.
	ErrDuplicateClient = errors.New("client id already registered")
	// ErrInvalidGrant covers unknown, expired, consumed, or mismatched
	// authorization codes and refresh tokens. The single sentinel keeps
	// failures information-minimal: callers cannot tell which check tripped.
	ErrInvalidGrant = errors.New("invalid grant")
	// ErrInvalidScope is returned when a requested scope exceeds what the
	// original grant or client allows.
	ErrInvalidScope = errors.New("invalid scope")
)

// Standard OAuth error codes carried in error responses.
const (
	codeInvalidRequest          = "invalid_request"
	codeInvalidClient           = "invalid_client"
	codeInvalidGrant            = "invalid_grant"
	codeInvalidScope            = "invalid_scope"
	codeUnsupportedResponseType = "unsupported_response_type"
	codeUnsupportedGrantType    = "unsupported_grant_type"
	codeAccessDenied            = "access_denied"
	codeServerError             = "server_error"
)

// flowError is a protocol failure with everything needed to render it:
// the OAuth error code, a short description, the HTTP status, and whether
// a WWW-Authenticate challenge accompanies it.
type flowError struct {
	code        string
	description string
	status      int
	challenge   bool
}

func (e *flowError) Error() string {
	if e.description != "" {
		return fmt.Sprintf("%s: %s", e.code, e.description)
	}
	return e.code
}

func newFlowError(code, description string, status int) *flowError {
	return &flowError{code: code, description: description, status: status}
}

func newChallengeError(description string) *flowError {
	return &flowError{code: codeInvalidClient, description: description, status: StatusUnauthorized, challenge: true}
}
