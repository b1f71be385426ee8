package captcha

import (
	"bytes"
	"embed"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Scripts are assembled verbatim: site keys and callback names are trusted
// configuration and are not escaped.
var scripts = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

const (
	onloadCallbackName = "recaptchaOnloadCallback"
	submitCallbackName = "recaptchaSubmitCallback"
	widgetElementID    = "recaptcha-element"
)

type loaderData struct {
	URL   string
	Async bool
}

type v3ScriptData struct {
	Loader                 loaderData
	SiteKey                string
	Action                 string
	CustomValidation       string
	CallbackThen           string
	CallbackCatch          string
	ValidationURLWithToken string
}

type v3ObjectData struct {
	SiteKey       string
	DefaultAction string
	Sentinel      string
}

type jsParam struct {
	Name  string
	Value string
}

type v2ScriptData struct {
	Loader         loaderData
	Explicit       bool
	OnloadCallback string
	ElementID      string
	SiteKey        string
	Params         []jsParam
}

type invisibleScriptData struct {
	Loader         loaderData
	SubmitCallback string
	FormID         string
}

func execute(name string, data any) string {
	var buf bytes.Buffer
	if err := scripts.ExecuteTemplate(&buf, name, data); err != nil {
		return ""
	}
	return buf.String()
}
