package oauth

// ConsentContext carries everything a solicitor may need to decide: the
// original request plus the validated client and effective scope.
type ConsentContext struct {
	Request Request
	Client  Client
	Scope   Scope
}

// Decision is the outcome of soliciting owner consent.
type Decision struct {
	Authorized bool
	// OwnerID identifies the consenting resource owner when Authorized.
	OwnerID string
}

// Authorized builds an approving decision for the given owner.
func Authorized(ownerID string) Decision {
	return Decision{Authorized: true, OwnerID: ownerID}
}

// Denied is the rejecting decision.
var Denied = Decision{}

// Solicitor decides owner consent for an authorization request. It is the
// only caller-injectable decision point in the authorization flow, so
// alternate consent mechanisms swap in without touching flow logic.
type Solicitor interface {
	Decide(ctx ConsentContext) Decision
}

// SolicitorFunc adapts a function to the Solicitor interface.
type SolicitorFunc func(ctx ConsentContext) Decision

// Decide implements Solicitor.
func (f SolicitorFunc) Decide(ctx ConsentContext) Decision {
	return f(ctx)
}

// AllowAll approves every request on behalf of a fixed owner. Intended for
// development setups and tests.
func AllowAll(ownerID string) Solicitor {
	return SolicitorFunc(func(ConsentContext) Decision {
		return Authorized(ownerID)
	})
}

// DenyAll rejects every request.
func DenyAll() Solicitor {
	return SolicitorFunc(func(ConsentContext) Decision {
		return Denied
	})
}
