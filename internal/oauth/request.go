package oauth

import "encoding/json"

// Request is the generic inbound request the core consumes. Adapters populate
// it from whatever HTTP framework they bind to; the core never sees framework
// types.
type Request struct {
	// Query holds the request's query parameters, first value per key.
	Query map[string]string
	// Form holds the request's form/body parameters, first value per key.
	Form map[string]string
	// Authorization is the raw Authorization header value, empty if absent.
	Authorization string
}

func (r Request) query(key string) string {
	return r.Query[key]
}

func (r Request) form(key string) string {
	return r.Form[key]
}

// Response statuses the core produces. Values match the HTTP status codes
// adapters translate them to.
const (
	StatusOK           = 200
	StatusFound        = 302
	StatusBadRequest   = 400
	StatusUnauthorized = 401
	StatusServerError  = 500
)

// Response is the generic outbound response the core populates. Adapters
// translate it back to their framework's response type.
type Response struct {
	Status int
	// Location is the redirect target for StatusFound responses.
	Location string
	// WWWAuthenticate carries the challenge for StatusUnauthorized responses.
	WWWAuthenticate string
	// ContentType describes Body; empty means no body.
	ContentType string
	Body        string
}

const (
	contentTypeJSON = "application/json"
	contentTypeText = "text/plain"
)

func jsonResponse(status int, payload any) Response {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{Status: StatusServerError, ContentType: contentTypeText, Body: "encoding failure"}
	}
	return Response{Status: status, ContentType: contentTypeJSON, Body: string(body)}
}

// errorBody is the standard OAuth JSON error payload.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func errorResponse(err *flowError) Response {
	resp := jsonResponse(err.status, errorBody{Error: err.code, ErrorDescription: err.description})
	if err.challenge {
		resp.WWWAuthenticate = `Basic realm="token"`
	}
	return resp
}
