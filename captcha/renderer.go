package captcha

import (
	"html"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/leeforge/recaptcha/errors"
)

// variant renders the parts that differ between widget versions.
type variant interface {
	scriptTag(opts RenderOptions) string
	formSnippet(attrs map[string]string) string
	formButton(label string, props map[string]string) string
}

// Renderer produces the HTML and JavaScript fragments for one configuration.
// Provider values are read on every call.
type Renderer struct {
	cfg      Config
	provider ConfigProvider
	variant  variant
}

// New builds a renderer for cfg. A nil provider yields defaults everywhere.
func New(cfg Config, provider ConfigProvider) (*Renderer, error) {
	if strings.TrimSpace(cfg.siteKey) == "" {
		return nil, errors.NewConfiguration("recaptcha site key is required").WithDetail("field", "site_key")
	}
	if provider == nil {
		provider = EmptyProvider()
	}

	r := &Renderer{cfg: cfg, provider: provider}
	switch cfg.version {
	case VersionV2:
		r.variant = checkboxVariant{r}
	case VersionInvisible:
		r.variant = invisibleVariant{r}
	case VersionV3:
		r.variant = v3Variant{r}
	default:
		return nil, errors.NewConfiguration("unsupported recaptcha version: " + string(cfg.version)).
			WithDetail("field", "version")
	}
	return r, nil
}

// Config returns the config the renderer was built with.
func (r *Renderer) Config() Config { return r.cfg }

// Version is the variant this renderer emits markup for.
func (r *Renderer) Version() Version { return r.cfg.version }

// SkipByIP reports whether the client bypasses the challenge.
func (r *Renderer) SkipByIP() bool { return r.cfg.skipByIP }

// SiteKey is the public key used in rendered markup.
func (r *Renderer) SiteKey() string { return r.cfg.siteKey }

// FieldName is the form field the v2 widgets post their token in.
func (r *Renderer) FieldName() string { return FieldName }

// ScriptTag returns the loader and bootstrap script for the configured
// variant, or "" when the client is skipped by IP.
func (r *Renderer) ScriptTag(opts RenderOptions) string {
	if r.cfg.skipByIP {
		return ""
	}
	return r.variant.scriptTag(opts)
}

// ObjectTag exposes a ReCaptchaV3 object whose execute(action) resolves to a
// token. For skipped clients it resolves to the skip sentinel without
// touching grecaptcha. Other variants get "".
func (r *Renderer) ObjectTag() string {
	if r.cfg.version != VersionV3 {
		return ""
	}
	data := v3ObjectData{
		SiteKey:       r.cfg.siteKey,
		DefaultAction: DefaultAction,
		Sentinel:      SkipByIPSentinel,
	}
	if r.cfg.skipByIP {
		return execute("v3_object_skip", data)
	}
	return execute("v3_object", data)
}

// ObjectTagWithDependency is ObjectTag preceded by the v3 loader unless the
// client is skipped. Other variants get "".
func (r *Renderer) ObjectTagWithDependency() string {
	if r.cfg.version != VersionV3 {
		return ""
	}
	if r.cfg.skipByIP {
		return r.ObjectTag()
	}
	return execute("loader", r.v3Loader()) + r.ObjectTag()
}

// FormSnippet renders the checkbox widget container. Other variants get "".
func (r *Renderer) FormSnippet(attrs map[string]string) string {
	return r.variant.formSnippet(attrs)
}

// FormButton renders the invisible widget's submit button. Other variants get "".
func (r *Renderer) FormButton(label string, props map[string]string) string {
	return r.variant.formButton(label, props)
}

// FormID is the id of the form the invisible widget submits.
func (r *Renderer) FormID() string {
	return r.provider.GetString(KeyFormID, DefaultFormID)
}

// TokenParameterName is the query parameter the v3 fetch sends the token in.
func (r *Renderer) TokenParameterName() string {
	return r.provider.GetString(KeyTokenParameterName, DefaultTokenParameterName)
}

// ValidationURL joins the configured app URL and validation route. An
// absolute route is returned as is.
func (r *Renderer) ValidationURL() string {
	route := r.provider.GetString(KeyValidationRoute, DefaultValidationRoute)
	if strings.Contains(route, "://") {
		return route
	}
	base := strings.TrimRight(r.provider.GetString(KeyAppURL, ""), "/")
	return base + "/" + strings.TrimLeft(route, "/")
}

// ValidationURLWithToken is ValidationURL followed by "?{token parameter}",
// ready for "=" + token.
func (r *Renderer) ValidationURLWithToken() string {
	return r.ValidationURL() + "?" + r.TokenParameterName()
}

// Language returns the configured hl value in canonical form, or "" when
// unset or not a valid language tag.
func (r *Renderer) Language() string {
	raw := strings.TrimSpace(r.provider.GetString(KeyLanguage, ""))
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return ""
	}
	return tag.String()
}

func (r *Renderer) explicit() bool {
	return r.provider.GetBool(KeyExplicit, false)
}

// tagAttributes returns the configured widget options by name.
func (r *Renderer) tagAttributes() map[string]string {
	out := make(map[string]string)
	for _, name := range TagAttributeNames {
		if v := strings.TrimSpace(r.provider.GetString(KeyTagAttributes+"."+name, "")); v != "" {
			out[name] = v
		}
	}
	return out
}

func (r *Renderer) v3Loader() loaderData {
	return loaderData{URL: r.cfg.APIJSURL() + "?render=" + r.cfg.siteKey}
}

// v2Loader builds the async loader for the checkbox and invisible widgets.
func (r *Renderer) v2Loader(explicit bool) loaderData {
	query := url.Values{}
	if explicit {
		query.Set("onload", onloadCallbackName)
		query.Set("render", "explicit")
	}
	if hl := r.Language(); hl != "" {
		query.Set("hl", hl)
	}
	u := r.cfg.APIJSURL()
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return loaderData{URL: u, Async: true}
}

// htmlAttributes renders attrs as name="value" pairs, leading keys first and
// the rest sorted. Values are HTML escaped.
func htmlAttributes(attrs map[string]string, leading ...string) string {
	seen := make(map[string]bool, len(leading))
	var b strings.Builder
	write := func(name string) {
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(attrs[name]))
		b.WriteString(`"`)
	}
	for _, name := range leading {
		if _, ok := attrs[name]; ok && !seen[name] {
			seen[name] = true
			write(name)
		}
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		write(name)
	}
	return b.String()
}

func mergeClass(extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return "g-recaptcha"
	}
	for _, c := range strings.Fields(extra) {
		if c == "g-recaptcha" {
			return extra
		}
	}
	return "g-recaptcha " + extra
}

// jsValue renders a widget option as a JS literal for grecaptcha.render.
func jsValue(name, value string) string {
	switch {
	case strings.HasSuffix(name, "callback"):
		return value
	case name == "tabindex":
		if _, err := strconv.Atoi(value); err == nil {
			return value
		}
	}
	return "'" + value + "'"
}
