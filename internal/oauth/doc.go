// Package oauth implements the authorization-code and token flows of an
// OAuth2 authorization server over pluggable stores.
//
// The package has no HTTP framework dependency: adapters translate inbound
// requests into Request values and Response values back out, so the flow
// logic stays identical across transports.
package oauth
