// Package handler serves the token validation endpoint and guards routes
// behind a reCAPTCHA check.
package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leeforge/recaptcha/captcha"
	"github.com/leeforge/recaptcha/errors"
	"github.com/leeforge/recaptcha/http/responder"
	"github.com/leeforge/recaptcha/logging"
)

// FailureHandler answers a request whose token did not pass.
type FailureHandler func(w http.ResponseWriter, r *http.Request, result captcha.VerificationResult)

// Option customises a Handler.
type Option func(*Handler)

// WithFailureHandler replaces DefaultFailureHandler. A nil fn is ignored.
func WithFailureHandler(fn FailureHandler) Option {
	return func(h *Handler) {
		if fn != nil {
			h.failure = fn
		}
	}
}

// Handler verifies tokens for the validation endpoint and for Protect.
type Handler struct {
	settings captcha.Settings
	proxies  *captcha.IPPolicy
	provider captcha.ConfigProvider
	verifier captcha.Verifier
	logger   logging.Logger
	failure  FailureHandler
}

// New checks settings once up front; per request configs are derived from
// them with the visitor's IP.
func New(settings captcha.Settings, provider captcha.ConfigProvider, verifier captcha.Verifier, logger logging.Logger, opts ...Option) (*Handler, error) {
	if _, err := captcha.NewConfig(settings, ""); err != nil {
		return nil, err
	}
	if verifier == nil {
		return nil, errors.NewConfiguration("recaptcha verifier is required")
	}
	if provider == nil {
		provider = captcha.EmptyProvider()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	h := &Handler{
		settings: settings,
		proxies:  captcha.NewIPPolicy(settings.TrustedProxies),
		provider: provider,
		verifier: verifier,
		logger:   logger.Named("recaptcha"),
		failure:  DefaultFailureHandler,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Config builds the captcha config for r's client. Skip entries come from
// the static settings and the provider's live list. The client IP honours
// forwarding headers only from settings.TrustedProxies.
func (h *Handler) Config(r *http.Request) (captcha.Config, error) {
	return captcha.NewConfig(h.settings.WithProviderSkipList(h.provider), h.ClientIP(r))
}

// ClientIP is the address skip rules and siteverify see for r.
func (h *Handler) ClientIP(r *http.Request) string {
	return ClientIP(r, h.proxies)
}

// Renderer returns a renderer bound to r's client, for use in templates.
func (h *Handler) Renderer(r *http.Request) (*captcha.Renderer, error) {
	cfg, err := h.Config(r)
	if err != nil {
		return nil, err
	}
	return captcha.New(cfg, h.provider)
}

func (h *Handler) tokenParameterName() string {
	return h.provider.GetString(captcha.KeyTokenParameterName, captcha.DefaultTokenParameterName)
}

// ValidationPath is the path part of the configured validation route.
func (h *Handler) ValidationPath() string {
	route := h.provider.GetString(captcha.KeyValidationRoute, captcha.DefaultValidationRoute)
	if strings.Contains(route, "://") {
		if u, err := url.Parse(route); err == nil {
			route = u.Path
		}
	}
	return "/" + strings.Trim(route, "/")
}

// Routes serves Validate on GET and POST at the router root.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Validate)
	r.Post("/", h.Validate)
	return r
}

// Mount attaches Routes at ValidationPath.
func (h *Handler) Mount(router chi.Router) {
	router.Mount(h.ValidationPath(), h.Routes())
}

// Validate checks the token sent in the configured parameter and answers
// with the verification result.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Config(r)
	if err != nil {
		responder.AppError(w, r, err, nil)
		return
	}

	result := h.check(r.Context(), cfg, r.FormValue(h.tokenParameterName()))
	if !result.Success {
		h.requestLogger(r).Info("recaptcha validation rejected",
			zap.String("client_ip", cfg.ClientIP()),
			zap.Strings("error_codes", result.ErrorCodes))
		h.failure(w, r, result)
		return
	}
	responder.OK(w, r, result)
}

// check resolves the skip bypass, the sentinel and the remote verification.
func (h *Handler) check(ctx context.Context, cfg captcha.Config, token string) captcha.VerificationResult {
	if cfg.SkipByIP() {
		return captcha.SkippedResult()
	}
	if token == "" {
		return captcha.FailedResult(
			errors.NewVerification("recaptcha token is missing", captcha.ErrCodeMissingInputResponse),
			captcha.ErrCodeMissingInputResponse,
		)
	}
	if token == captcha.SkipByIPSentinel {
		return captcha.FailedResult(
			errors.NewVerification("skip token used by a client that is not skipped", captcha.ErrCodeInvalidInputResponse),
			captcha.ErrCodeInvalidInputResponse,
		)
	}

	if timeout := cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return h.verifier.Verify(ctx, token, cfg.ClientIP())
}

func (h *Handler) requestLogger(r *http.Request) logging.Logger {
	return logging.WithContext(h.logger, r.Context())
}

// DefaultFailureHandler writes the result's error through the responder
// with the result as details.
func DefaultFailureHandler(w http.ResponseWriter, r *http.Request, result captcha.VerificationResult) {
	if result.HasErrorCode(captcha.ErrCodeMissingInputResponse) {
		responder.CustomError(w, r, http.StatusBadRequest, responder.ErrCodeCaptchaMissing, "", result)
		return
	}
	err := result.Err
	if err == nil {
		err = errors.NewVerification("recaptcha verification failed", result.ErrorCodes...)
	}
	responder.AppError(w, r, err, result)
}
