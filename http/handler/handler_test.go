package handler

import (
	"context"
	stdjson "encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/recaptcha/captcha"
	"github.com/leeforge/recaptcha/errors"
	"github.com/leeforge/recaptcha/http/responder"
)

type fakeVerifier struct {
	mu     sync.Mutex
	calls  []string
	result captcha.VerificationResult
}

func (f *fakeVerifier) Verify(_ context.Context, token, remoteIP string) captcha.VerificationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, token+"@"+remoteIP)
	return f.result
}

func (f *fakeVerifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type envelope struct {
	Data  map[string]any   `json:"data"`
	Error *responder.Error `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, stdjson.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func newHandler(t *testing.T, version string, v captcha.Verifier, provider captcha.ConfigProvider) *Handler {
	t.Helper()
	h, err := New(captcha.Settings{
		SiteKey:   "site",
		SecretKey: "secret",
		Version:   version,
		SkipIP:    []string{"10.0.0.0/8"},
		MinScore:  0.5,

		TrustedProxies: []string{"172.16.0.0/12"},
	}, provider, v, nil)
	require.NoError(t, err)
	return h
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	_, err := New(captcha.Settings{}, nil, &fakeVerifier{}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

	_, err = New(captcha.Settings{SiteKey: "site"}, nil, nil, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestValidateSuccess(t *testing.T) {
	v := &fakeVerifier{result: captcha.VerificationResult{Success: true, Score: 0.7, Action: "homepage"}}
	h := newHandler(t, "v3", v, nil)

	req := httptest.NewRequest(http.MethodGet, "/?token=abc", nil)
	req.RemoteAddr = "8.8.8.8:1234"
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, true, env.Data["success"])
	assert.Equal(t, 0.7, env.Data["score"])
	assert.Equal(t, []string{"abc@8.8.8.8"}, v.calls)
}

func TestValidateCustomTokenParameter(t *testing.T) {
	v := &fakeVerifier{result: captcha.VerificationResult{Success: true}}
	h := newHandler(t, "v3", v, captcha.NewMapProvider(map[string]any{
		captcha.KeyTokenParameterName: "t",
	}))

	form := url.Values{"t": {"from-form"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "8.8.8.8:1"
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"from-form@8.8.8.8"}, v.calls)
}

func TestValidateSkippedIP(t *testing.T) {
	v := &fakeVerifier{}
	h := newHandler(t, "v3", v, nil)

	req := httptest.NewRequest(http.MethodGet, "/?token=skip_by_ip", nil)
	req.RemoteAddr = "172.16.0.1:4000"
	req.Header.Set("X-Forwarded-For", "10.1.2.3, 172.16.0.2")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, true, env.Data["success"])
	assert.Equal(t, true, env.Data["skip_by_ip"])
	assert.Equal(t, 0.9, env.Data["score"])
	assert.Zero(t, v.callCount())
}

func TestValidateSkipListFromProvider(t *testing.T) {
	v := &fakeVerifier{}
	h := newHandler(t, "v3", v, captcha.NewMapProvider(map[string]any{
		captcha.KeySkipIP: "192.168.0.0/16",
	}))

	req := httptest.NewRequest(http.MethodGet, "/?token=x", nil)
	req.RemoteAddr = "192.168.4.4:1"
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, v.callCount())
}

func TestValidateRejectsSentinelFromOtherIPs(t *testing.T) {
	v := &fakeVerifier{}
	h := newHandler(t, "v3", v, nil)

	req := httptest.NewRequest(http.MethodGet, "/?token=skip_by_ip", nil)
	req.RemoteAddr = "8.8.8.8:1"
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, responder.ErrCodeCaptchaFailed, env.Error.Code)
	assert.Contains(t, rec.Body.String(), captcha.ErrCodeInvalidInputResponse)
	assert.Zero(t, v.callCount())
}

func TestValidateMissingToken(t *testing.T) {
	v := &fakeVerifier{}
	h := newHandler(t, "v3", v, nil)

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, responder.ErrCodeCaptchaMissing, env.Error.Code)
	assert.Zero(t, v.callCount())
}

func TestValidateProviderFailure(t *testing.T) {
	v := &fakeVerifier{result: captcha.FailedResult(
		errors.NewExternal("siteverify request failed"), captcha.ErrCodeRequestFailed)}
	h := newHandler(t, "v2", v, nil)

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?token=abc", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, responder.ErrCodeExternalService, env.Error.Code)
}

func TestMountUsesValidationRoute(t *testing.T) {
	v := &fakeVerifier{result: captcha.VerificationResult{Success: true}}
	h := newHandler(t, "v3", v, captcha.NewMapProvider(map[string]any{
		captcha.KeyValidationRoute: "https://app.test/captcha/check/",
	}))
	assert.Equal(t, "/captcha/check", h.ValidationPath())

	router := chi.NewRouter()
	h.Mount(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/captcha/check?token=abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDefaultValidationPath(t *testing.T) {
	h := newHandler(t, "v3", &fakeVerifier{}, nil)
	assert.Equal(t, "/recaptcha/validate", h.ValidationPath())
}

func TestRendererPerRequest(t *testing.T) {
	h := newHandler(t, "v3", &fakeVerifier{}, nil)

	skipped := httptest.NewRequest(http.MethodGet, "/", nil)
	skipped.RemoteAddr = "10.9.9.9:1"
	r, err := h.Renderer(skipped)
	require.NoError(t, err)
	assert.True(t, r.SkipByIP())
	assert.Empty(t, r.ScriptTag(captcha.RenderOptions{}))

	normal := httptest.NewRequest(http.MethodGet, "/", nil)
	normal.RemoteAddr = "8.8.8.8:80"
	r, err = h.Renderer(normal)
	require.NoError(t, err)
	assert.False(t, r.SkipByIP())
	assert.Contains(t, r.ScriptTag(captcha.RenderOptions{}), "render=site")
}

func TestRendererIgnoresSpoofedHeaders(t *testing.T) {
	h := newHandler(t, "v3", &fakeVerifier{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("CF-Connecting-IP", "10.9.9.9")
	r, err := h.Renderer(req)
	require.NoError(t, err)
	assert.False(t, r.SkipByIP())
	assert.Equal(t, "203.0.113.9", r.Config().ClientIP())
}

func TestClientIP(t *testing.T) {
	trusted := captcha.NewIPPolicy([]string{"172.16.0.0/12", "127.0.0.1"})

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"untrusted peer real ip ignored", map[string]string{"X-Real-Ip": "10.0.0.1"}, "3.3.3.3:1", "3.3.3.3"},
		{"untrusted peer cloudflare ignored", map[string]string{"CF-Connecting-IP": "10.0.0.1"}, "3.3.3.3:1", "3.3.3.3"},
		{"untrusted peer forwarded ignored", map[string]string{"X-Forwarded-For": "127.0.0.1"}, "203.0.113.9:5555", "203.0.113.9"},
		{"trusted real ip wins", map[string]string{"X-Real-Ip": "1.1.1.1", "X-Forwarded-For": "2.2.2.2"}, "172.16.0.1:1", "1.1.1.1"},
		{"trusted cloudflare", map[string]string{"CF-Connecting-IP": "4.4.4.4"}, "127.0.0.1:1", "4.4.4.4"},
		{"trusted forwarded skips own proxies", map[string]string{"X-Forwarded-For": "5.5.5.5, 6.6.6.6, 172.16.0.9"}, "172.16.0.1:1", "6.6.6.6"},
		{"trusted forwarded all proxies", map[string]string{"X-Forwarded-For": "172.16.0.8, 172.16.0.9"}, "172.16.0.1:1", "172.16.0.8"},
		{"trusted forwarded garbage", map[string]string{"X-Forwarded-For": "not-an-ip"}, "172.16.0.1:1", "172.16.0.1"},
		{"trusted without headers", nil, "172.16.0.1:1", "172.16.0.1"},
		{"remote addr", nil, "3.3.3.3:1", "3.3.3.3"},
		{"ipv6 remote", map[string]string{"X-Real-Ip": "10.0.0.1"}, "[2001:db8::1]:443", "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req, trusted))
		})
	}
}

func TestClientIPWithoutTrustedProxies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("X-Forwarded-For", "127.0.0.1")
	req.Header.Set("X-Real-Ip", "127.0.0.1")

	assert.Equal(t, "203.0.113.9", ClientIP(req, nil))
	assert.Equal(t, "203.0.113.9", ClientIP(req, captcha.NewIPPolicy(nil)))
}
