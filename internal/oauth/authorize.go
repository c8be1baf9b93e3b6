package oauth

import (
	"net/url"
)

// authorizeRequest holds the parsed parameters of an authorization request.
type authorizeRequest struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	Scope        string
	State        string
}

func parseAuthorizeRequest(req Request) authorizeRequest {
	return authorizeRequest{
		ResponseType: req.query("response_type"),
		ClientID:     req.query("client_id"),
		RedirectURI:  req.query("redirect_uri"),
		Scope:        req.query("scope"),
		State:        req.query("state"),
	}
}

// Authorize runs the authorization-code flow: validate the request against
// the registry, solicit owner consent, persist a grant, and redirect back to
// the client with the code.
//
// Errors split on whether the redirect URI has been verified. Before that
// point failures come back as direct HTTP errors, because redirecting to an
// unverified target would hand the error (and any future code) to an
// attacker-chosen URI. After the URI checks out, errors travel in the
// redirect's query string with the client's state preserved verbatim.
func (e *Endpoint) Authorize(req Request) Response {
	request := parseAuthorizeRequest(req)

	if request.ClientID == "" {
		return errorResponse(newFlowError(codeInvalidRequest, "client_id is required", StatusBadRequest))
	}
	client, ok := e.registry.Lookup(request.ClientID)
	if !ok {
		return errorResponse(newFlowError(codeInvalidRequest, "unknown client_id", StatusBadRequest))
	}

	if request.RedirectURI == "" {
		return errorResponse(newFlowError(codeInvalidRequest, "redirect_uri is required", StatusBadRequest))
	}
	if parsed, err := url.Parse(request.RedirectURI); err != nil || !parsed.IsAbs() {
		return errorResponse(newFlowError(codeInvalidRequest, "malformed redirect_uri", StatusBadRequest))
	}
	if !e.registry.ValidateRedirectURI(request.ClientID, request.RedirectURI) {
		return errorResponse(newFlowError(codeInvalidRequest, "redirect_uri is not registered", StatusBadRequest))
	}

	// The redirect target is verified from here on; remaining failures are
	// encoded into it.
	if request.ResponseType != "code" {
		return redirectError(request, codeUnsupportedResponseType, "only the code response type is supported")
	}

	scope, ok := e.registry.ValidateScope(request.ClientID, ParseScope(request.Scope))
	if !ok {
		return redirectError(request, codeInvalidScope, "requested scope exceeds what the client allows")
	}

	decision := e.solicitor.Decide(ConsentContext{Request: req, Client: client, Scope: scope})
	if !decision.Authorized {
		return redirectError(request, codeAccessDenied, "resource owner denied the request")
	}

	// A store failure is internal, not a protocol outcome: it surfaces as a
	// direct 500 with no detail, never encoded into the redirect.
	grant, err := e.grants.Create(client.ID, decision.OwnerID, request.RedirectURI, scope, e.config.AuthorizationCodeTTL)
	if err != nil {
		return errorResponse(newFlowError(codeServerError, "authorization request could not be completed", StatusServerError))
	}

	return redirectCode(request, grant.Code)
}

func redirectCode(request authorizeRequest, code string) Response {
	target, err := url.Parse(request.RedirectURI)
	if err != nil {
		return errorResponse(newFlowError(codeServerError, "invalid redirect uri", StatusServerError))
	}
	query := target.Query()
	query.Set("code", code)
	if request.State != "" {
		query.Set("state", request.State)
	}
	target.RawQuery = query.Encode()
	return Response{Status: StatusFound, Location: target.String()}
}

func redirectError(request authorizeRequest, code, description string) Response {
	target, err := url.Parse(request.RedirectURI)
	if err != nil {
		return errorResponse(newFlowError(codeServerError, "invalid redirect uri", StatusServerError))
	}
	query := target.Query()
	query.Set("error", code)
	query.Set("error_description", description)
	if request.State != "" {
		query.Set("state", request.State)
	}
	target.RawQuery = query.Encode()
	return Response{Status: StatusFound, Location: target.String()}
}
