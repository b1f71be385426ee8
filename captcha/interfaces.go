package captcha

import "context"

// ConfigProvider resolves runtime settings by key. Renderers read through it
// on every call, so a provider backed by live configuration takes effect on
// the next render.
type ConfigProvider interface {
	Get(key string) (any, bool)
	GetString(key string, defaultVal string) string
	GetBool(key string, defaultVal bool) bool
	GetStringSlice(key string, defaultVal []string) []string
}

// Verifier sends a token to the provider's siteverify endpoint.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) VerificationResult
}

// Keys read from a ConfigProvider.
const (
	KeyTokenParameterName = "recaptcha.default_token_parameter_name"
	KeyValidationRoute    = "recaptcha.default_validation_route"
	KeyAppURL             = "recaptcha.app_url"
	KeyFormID             = "recaptcha.default_form_id"
	KeyLanguage           = "recaptcha.default_language"
	KeyExplicit           = "recaptcha.explicit"
	KeySkipIP             = "recaptcha.skip_ip"
	KeyTagAttributes      = "recaptcha.tag_attributes"
)

// Defaults for the provider keys above.
const (
	DefaultTokenParameterName = "token"
	DefaultValidationRoute    = "recaptcha/validate"
)

// TagAttributeNames are the widget options forwarded as data-* attributes,
// in render order.
var TagAttributeNames = []string{
	"theme",
	"size",
	"tabindex",
	"callback",
	"expired-callback",
	"error-callback",
}
