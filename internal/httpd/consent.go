package httpd

import (
	"github.com/gummaworks/gauth/internal/oauth"
)

// Consent modes selectable via configuration.
const (
	// ConsentModeAuto approves every authorization request on behalf of the
	// configured owner. Suits development and tests.
	ConsentModeAuto = "auto"
	// ConsentModeParam reads the decision from the authorization request
	// itself: consent=approve grants, anything else denies.
	ConsentModeParam = "param"
)

// ParamConsent decides from request parameters. The request must carry
// consent=approve to be granted; the owner parameter names the consenting
// resource owner, falling back to fallbackOwner when absent. Any other
// consent value, or none, denies.
func ParamConsent(fallbackOwner string) oauth.Solicitor {
	return oauth.SolicitorFunc(func(ctx oauth.ConsentContext) oauth.Decision {
		if ctx.Request.Query["consent"] != "approve" {
			return oauth.Denied
		}
		owner := ctx.Request.Query["owner"]
		if owner == "" {
			owner = fallbackOwner
		}
		return oauth.Authorized(owner)
	})
}

// solicitorFromConfig maps the configured consent mode to a solicitor.
func solicitorFromConfig(cfg Config) oauth.Solicitor {
	if cfg.ConsentMode == ConsentModeParam {
		return ParamConsent(cfg.ConsentOwner)
	}
	return oauth.AllowAll(cfg.ConsentOwner)
}
