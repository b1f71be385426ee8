package handler

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/leeforge/recaptcha/captcha"
	"github.com/leeforge/recaptcha/json"
)

// TokenHeader lets API clients send the token without touching the body.
const TokenHeader = "X-Captcha-Token"

const maxTokenBody = 1 << 20

// extractToken looks in the header, the form fields and finally a JSON body.
// The body is restored for the next handler.
func extractToken(r *http.Request, param string) string {
	if t := strings.TrimSpace(r.Header.Get(TokenHeader)); t != "" {
		return t
	}
	if err := r.ParseForm(); err == nil {
		if t := r.Form.Get(captcha.FieldName); t != "" {
			return t
		}
		if t := r.Form.Get(param); t != "" {
			return t
		}
	}
	if r.Body == nil || !strings.Contains(r.Header.Get("Content-Type"), "json") {
		return ""
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxTokenBody))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	for _, key := range []string{param, "token", captcha.FieldName} {
		if t, ok := body[key].(string); ok && t != "" {
			return t
		}
	}
	return ""
}
