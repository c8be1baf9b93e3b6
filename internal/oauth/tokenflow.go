package oauth

import (
	"encoding/base64"
	"errors"
	"strings"
)

// tokenResponse is the JSON success body of the token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// clientCredentials extracts client id and secret from the Authorization
// header (HTTP Basic) or, failing that, from the request body. Both
// client_secret_basic and client_secret_post are accepted.
func clientCredentials(req Request) (id, secret string) {
	if value, ok := strings.CutPrefix(req.Authorization, "Basic "); ok {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
		if err == nil {
			if pair := strings.SplitN(string(decoded), ":", 2); len(pair) == 2 {
				return pair[0], pair[1]
			}
		}
	}
	return req.form("client_id"), req.form("client_secret")
}

// Token runs the token flow: authenticate the client, redeem an
// authorization code or refresh token, and answer with a JSON token body.
// Failures never leak which check tripped beyond the standard error code.
func (e *Endpoint) Token(req Request) Response {
	clientID, clientSecret := clientCredentials(req)
	if clientID == "" {
		return errorResponse(newChallengeError("client authentication required"))
	}
	// Authenticate covers unknown ids too, at the same bcrypt cost as a
	// wrong secret, so the failure neither reads nor times differently.
	if !e.registry.Authenticate(clientID, clientSecret) {
		return errorResponse(newChallengeError("client authentication failed"))
	}

	switch req.form("grant_type") {
	case "authorization_code":
		return e.redeemAuthorizationCode(req, clientID)
	case "refresh_token":
		return e.redeemRefreshToken(req, clientID)
	case "":
		return errorResponse(newFlowError(codeInvalidRequest, "grant_type is required", StatusBadRequest))
	default:
		return errorResponse(newFlowError(codeUnsupportedGrantType, "unsupported grant_type", StatusBadRequest))
	}
}

func (e *Endpoint) redeemAuthorizationCode(req Request, clientID string) Response {
	code := req.form("code")
	redirectURI := req.form("redirect_uri")
	if code == "" || redirectURI == "" {
		return errorResponse(newFlowError(codeInvalidRequest, "code and redirect_uri are required", StatusBadRequest))
	}

	grant, err := e.grants.Consume(code, clientID, redirectURI)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			return errorResponse(newFlowError(codeInvalidGrant, "authorization code is invalid, expired, or already used", StatusBadRequest))
		}
		return errorResponse(newFlowError(codeServerError, "failed to redeem authorization code", StatusServerError))
	}

	token, err := e.tokens.Issue(clientID, grant.OwnerID, grant.Scope, e.config.TokenTTL, e.config.RefreshTokenTTL)
	if err != nil {
		return errorResponse(newFlowError(codeServerError, "failed to issue token", StatusServerError))
	}
	return e.tokenSuccess(token)
}

func (e *Endpoint) redeemRefreshToken(req Request, clientID string) Response {
	refresh := req.form("refresh_token")
	if refresh == "" {
		return errorResponse(newFlowError(codeInvalidRequest, "refresh_token is required", StatusBadRequest))
	}

	requested := ParseScope(req.form("scope"))
	token, err := e.tokens.Refresh(refresh, clientID, requested, e.config.TokenTTL, e.config.RefreshTokenTTL, e.config.RotateRefreshTokens)
	switch {
	case errors.Is(err, ErrInvalidGrant):
		return errorResponse(newFlowError(codeInvalidGrant, "refresh token is invalid or expired", StatusBadRequest))
	case errors.Is(err, ErrInvalidScope):
		return errorResponse(newFlowError(codeInvalidScope, "requested scope exceeds the original grant", StatusBadRequest))
	case err != nil:
		return errorResponse(newFlowError(codeServerError, "failed to refresh token", StatusServerError))
	}
	return e.tokenSuccess(token)
}

func (e *Endpoint) tokenSuccess(token Token) Response {
	return jsonResponse(StatusOK, tokenResponse{
		AccessToken:  token.AccessToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(e.config.TokenTTL.Seconds()),
		RefreshToken: token.RefreshToken,
		Scope:        token.Scope.String(),
	})
}
