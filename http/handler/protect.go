package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/leeforge/recaptcha/captcha"
	"github.com/leeforge/recaptcha/errors"
	"github.com/leeforge/recaptcha/http/responder"
)

type resultKey struct{}

// ResultFromContext returns the result stored by Protect.
func ResultFromContext(ctx context.Context) (captcha.VerificationResult, bool) {
	res, ok := ctx.Value(resultKey{}).(captcha.VerificationResult)
	return res, ok
}

// Protect rejects requests without a valid token. For v3 the action must
// equal expectedAction (when set) and the score reach min_score.
func (h *Handler) Protect(expectedAction string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cfg, err := h.Config(r)
			if err != nil {
				responder.AppError(w, r, err, nil)
				return
			}

			token := extractToken(r, h.tokenParameterName())
			result := h.check(r.Context(), cfg, token)
			if result.Success && !result.SkipByIP && cfg.Version() == captcha.VersionV3 {
				result = enforceV3(result, expectedAction, cfg.MinScore())
			}
			if !result.Success {
				h.requestLogger(r).Info("recaptcha protected route rejected",
					zap.String("path", r.URL.Path),
					zap.String("client_ip", cfg.ClientIP()),
					zap.String("expected_action", expectedAction),
					zap.Strings("error_codes", result.ErrorCodes))
				h.failure(w, r, result)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), resultKey{}, result)))
		})
	}
}

func enforceV3(result captcha.VerificationResult, expectedAction string, minScore float64) captcha.VerificationResult {
	if expectedAction != "" && result.Action != expectedAction {
		result.Success = false
		result.ErrorCodes = append(result.ErrorCodes, captcha.ErrCodeActionMismatch)
		result.Err = errors.NewVerification("recaptcha action mismatch", captcha.ErrCodeActionMismatch).
			WithDetail("expected", expectedAction).
			WithDetail("actual", result.Action)
		return result
	}
	if result.Score < minScore {
		result.Success = false
		result.ErrorCodes = append(result.ErrorCodes, captcha.ErrCodeScoreTooLow)
		result.Err = errors.NewVerification("recaptcha score too low", captcha.ErrCodeScoreTooLow).
			WithDetail("score", result.Score).
			WithDetail("min_score", minScore)
	}
	return result
}
