// Package verifier talks to the reCAPTCHA siteverify endpoint.
package verifier

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/leeforge/recaptcha/captcha"
	"github.com/leeforge/recaptcha/errors"
	"github.com/leeforge/recaptcha/json"
	"github.com/leeforge/recaptcha/logging"
)

var _ captcha.Verifier = (*Google)(nil)

// Google posts tokens to siteverify. It is safe for concurrent use.
type Google struct {
	secret   string
	endpoint string
	client   *http.Client
	logger   logging.Logger
}

type Option func(*Google)

// WithHTTPClient replaces the default client built from the configured timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Google) {
		if client != nil {
			g.client = client
		}
	}
}

// WithEndpoint overrides the siteverify URL derived from the API domain.
func WithEndpoint(endpoint string) Option {
	return func(g *Google) {
		if endpoint != "" {
			g.endpoint = endpoint
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(g *Google) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGoogle builds a verifier from cfg. The secret key is mandatory here even
// though rendering works without it.
func NewGoogle(cfg captcha.Config, opts ...Option) (*Google, error) {
	if strings.TrimSpace(cfg.SecretKey()) == "" {
		return nil, errors.NewConfiguration("recaptcha secret key is required").WithDetail("field", "secret_key")
	}
	g := &Google{
		secret:   cfg.SecretKey(),
		endpoint: cfg.VerifyURL(),
		client:   &http.Client{Timeout: cfg.Timeout()},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.Named("recaptcha.verifier")
	return g, nil
}

// Verify never returns an error: transport and decoding failures come back as
// an unsuccessful result with an error code and Err set.
func (g *Google) Verify(ctx context.Context, token, remoteIP string) captcha.VerificationResult {
	if strings.TrimSpace(token) == "" {
		return captcha.FailedResult(
			errors.NewVerification("recaptcha token is missing", captcha.ErrCodeMissingInputResponse),
			captcha.ErrCodeMissingInputResponse,
		)
	}

	form := url.Values{
		"secret":   {g.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return captcha.FailedResult(
			errors.WrapWithType(err, errors.ErrorTypeInternal, "build siteverify request"),
			captcha.ErrCodeRequestFailed,
		)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn("siteverify request failed", zap.Error(err))
		return captcha.FailedResult(transportError(err), captcha.ErrCodeRequestFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("siteverify returned unexpected status", zap.Int("status", resp.StatusCode))
		return captcha.FailedResult(
			errors.NewExternal("siteverify returned unexpected status").WithDetail("status", resp.StatusCode),
			captcha.ErrCodeBadStatus,
		)
	}

	var result captcha.VerificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		g.logger.Warn("siteverify response is not valid json", zap.Error(err))
		return captcha.FailedResult(
			errors.WrapWithType(err, errors.ErrorTypeExternal, "decode siteverify response").
				WithHTTPStatus(http.StatusBadGateway),
			captcha.ErrCodeInvalidJSON,
		)
	}
	result.SkipByIP = false

	if !result.Success {
		result.Err = errors.NewVerification("recaptcha verification failed", result.ErrorCodes...)
	}
	g.logger.Debug("siteverify",
		zap.Bool("success", result.Success),
		zap.Float64("score", result.Score),
		zap.String("action", result.Action),
		zap.Strings("error_codes", result.ErrorCodes),
	)
	return result
}

func transportError(err error) *errors.AppError {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.NewTimeout("siteverify request timed out").WithInnerError(err)
	}
	return errors.NewExternal("siteverify request failed").WithInnerError(err)
}
