package captcha

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	validatorV10 "github.com/go-playground/validator/v10"

	"github.com/leeforge/recaptcha/errors"
)

var validate = validatorV10.New()

// Settings is the static configuration, bound from config files or env.
type Settings struct {
	SiteKey   string        `mapstructure:"site_key" yaml:"site_key" json:"site_key" validate:"required"`
	SecretKey string        `mapstructure:"secret_key" yaml:"secret_key" json:"-"`
	Version   string        `mapstructure:"version" yaml:"version" json:"version" default:"v2" validate:"oneof=v2 invisible v3"`
	APIDomain string        `mapstructure:"api_domain" yaml:"api_domain" json:"api_domain" default:"www.google.com" validate:"required"`
	SkipIP    []string      `mapstructure:"skip_ip" yaml:"skip_ip" json:"skip_ip"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout" default:"10s" validate:"gte=0"`
	MinScore  float64       `mapstructure:"min_score" yaml:"min_score" json:"min_score" default:"0.5" validate:"gte=0,lte=1"`

	// TrustedProxies lists the peers whose forwarding headers are believed
	// when resolving the client IP. Same entry syntax as SkipIP.
	TrustedProxies []string `mapstructure:"trusted_proxies" yaml:"trusted_proxies" json:"trusted_proxies"`
}

// WithProviderSkipList returns a copy of s whose SkipIP also holds the
// provider's live recaptcha.skip_ip entries.
func (s Settings) WithProviderSkipList(provider ConfigProvider) Settings {
	if provider == nil {
		return s
	}
	extra := provider.GetStringSlice(KeySkipIP, nil)
	if len(extra) == 0 {
		return s
	}
	s.SkipIP = append(append([]string(nil), s.SkipIP...), extra...)
	return s
}

// Config is the validated, read-only view of Settings for one client.
// It is safe to share between goroutines.
type Config struct {
	siteKey   string
	secretKey string
	version   Version
	apiDomain string
	clientIP  string
	skipByIP  bool
	timeout   time.Duration
	minScore  float64
}

// NewConfig applies defaults, validates settings and resolves the skip flag
// for clientIP. Pass an empty clientIP when no request is involved.
//
// Only settings.SkipIP is consulted. To honour a provider's live
// recaptcha.skip_ip list as well, pass settings.WithProviderSkipList(provider),
// which is what handler.Handler does for every request.
func NewConfig(settings Settings, clientIP string) (Config, error) {
	if err := defaults.Set(&settings); err != nil {
		return Config{}, errors.WrapWithType(err, errors.ErrorTypeConfiguration, "apply recaptcha defaults")
	}
	settings.Version = strings.ToLower(strings.TrimSpace(settings.Version))
	settings.SiteKey = strings.TrimSpace(settings.SiteKey)

	if err := validateSettings(settings); err != nil {
		return Config{}, err
	}

	version, err := ParseVersion(settings.Version)
	if err != nil {
		return Config{}, err
	}

	return Config{
		siteKey:   settings.SiteKey,
		secretKey: settings.SecretKey,
		version:   version,
		apiDomain: settings.APIDomain,
		clientIP:  clientIP,
		skipByIP:  clientIP != "" && NewIPPolicy(settings.SkipIP).Skip(clientIP),
		timeout:   settings.Timeout,
		minScore:  settings.MinScore,
	}, nil
}

func validateSettings(settings Settings) error {
	err := validate.Struct(settings)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validatorV10.ValidationErrors)
	if !ok {
		return errors.WrapWithType(err, errors.ErrorTypeConfiguration, "invalid recaptcha settings")
	}

	chain := errors.NewErrorChain()
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := settingName(fe.StructField())
		fields = append(fields, field)
		if fe.Tag() == "required" {
			chain.Add(errors.NewRequired(field))
			continue
		}
		chain.Add(errors.NewInvalid(field, fe.Value(), validationMessage(fe)))
	}
	return errors.WrapWithType(chain, errors.ErrorTypeConfiguration, "invalid recaptcha settings: "+chain.Error()).
		WithDetail("fields", fields)
}

func settingName(structField string) string {
	switch structField {
	case "SiteKey":
		return "site_key"
	case "SecretKey":
		return "secret_key"
	case "APIDomain":
		return "api_domain"
	case "SkipIP":
		return "skip_ip"
	case "TrustedProxies":
		return "trusted_proxies"
	case "MinScore":
		return "min_score"
	default:
		return strings.ToLower(structField)
	}
}

func validationMessage(fe validatorV10.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}

// SiteKey is the public key embedded in rendered markup.
func (c Config) SiteKey() string { return c.siteKey }

// SecretKey is the server side key sent to siteverify. Never render it.
func (c Config) SecretKey() string { return c.secretKey }

// Version is the widget variant fixed at construction.
func (c Config) Version() Version { return c.version }

// APIDomain is the host serving api.js and siteverify.
func (c Config) APIDomain() string { return c.apiDomain }

// ClientIP is the address the config was resolved for, possibly empty.
func (c Config) ClientIP() string { return c.clientIP }

// SkipByIP reports whether the client bypasses the challenge.
func (c Config) SkipByIP() bool { return c.skipByIP }

// Timeout bounds a single siteverify call.
func (c Config) Timeout() time.Duration { return c.timeout }

// MinScore is the lowest v3 score accepted.
func (c Config) MinScore() float64 { return c.minScore }

// APIJSURL is the client script loaded by every variant.
func (c Config) APIJSURL() string {
	return "https://" + c.apiDomain + "/recaptcha/api.js"
}

// VerifyURL is the server side siteverify endpoint.
func (c Config) VerifyURL() string {
	return "https://" + c.apiDomain + "/recaptcha/api/siteverify"
}

// String never includes the secret key.
func (c Config) String() string {
	secret := ""
	if c.secretKey != "" {
		secret = "***"
	}
	return fmt.Sprintf("recaptcha{version=%s site_key=%s secret_key=%s api_domain=%s skip_by_ip=%t}",
		c.version, c.siteKey, secret, c.apiDomain, c.skipByIP)
}
