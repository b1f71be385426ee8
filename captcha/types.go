package captcha

import (
	"strings"

	"github.com/leeforge/recaptcha/errors"
)

// Version selects which reCAPTCHA widget is rendered.
type Version string

const (
	VersionV2        Version = "v2"        // checkbox
	VersionInvisible Version = "invisible" // invisible v2, bound to a button
	VersionV3        Version = "v3"        // score based, no user interaction
)

// ParseVersion accepts the configured version string case-insensitively.
func ParseVersion(s string) (Version, error) {
	switch v := Version(strings.ToLower(strings.TrimSpace(s))); v {
	case VersionV2, VersionInvisible, VersionV3:
		return v, nil
	default:
		return "", errors.NewConfiguration("unsupported recaptcha version: " + s).
			WithDetail("field", "version").
			WithDetail("value", s)
	}
}

const (
	// SkipByIPSentinel is what the client-side ReCaptchaV3.execute resolves to
	// when the visitor's IP is on the skip list.
	SkipByIPSentinel = "skip_by_ip"

	DefaultAction      = "homepage"
	DefaultButtonLabel = "Submit"
	DefaultAPIDomain   = "www.google.com"
	DefaultFormID      = "recaptcha-invisible-form"

	// FieldName is the form field the v2 widgets post their token in.
	FieldName = "g-recaptcha-response"

	// SkipByIPScore is reported for requests that bypassed the challenge.
	SkipByIPScore = 0.9
)

// Error codes reported in VerificationResult.ErrorCodes. The first two are
// also used by the provider itself.
const (
	ErrCodeMissingInputResponse = "missing-input-response"
	ErrCodeInvalidInputResponse = "invalid-input-response"
	ErrCodeRequestFailed        = "request-failed"
	ErrCodeBadStatus            = "bad-status"
	ErrCodeInvalidJSON          = "invalid-json"
	ErrCodeActionMismatch       = "action-mismatch"
	ErrCodeScoreTooLow          = "score-too-low"
)

// RenderOptions are the per call site knobs for ScriptTag.
type RenderOptions struct {
	// Action is the v3 action name, "homepage" when empty.
	Action string
	// CustomValidation names a JS function called with the token instead of
	// the default fetch to the validation endpoint.
	CustomValidation string
	// CallbackThen and CallbackCatch name JS functions hooked onto the default fetch.
	CallbackThen  string
	CallbackCatch string
	// FormID is the form submitted by the invisible widget.
	FormID string
}

// VerificationResult is the decoded siteverify answer. Failures talking to the
// provider are reported here too, never as a returned error.
type VerificationResult struct {
	Success     bool     `json:"success"`
	Score       float64  `json:"score,omitempty"`
	Action      string   `json:"action,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
	SkipByIP    bool     `json:"skip_by_ip,omitempty"`

	Err error `json:"-"`
}

// HasErrorCode reports whether code is among the result's error codes.
func (r VerificationResult) HasErrorCode(code string) bool {
	for _, c := range r.ErrorCodes {
		if c == code {
			return true
		}
	}
	return false
}

// SkippedResult is the result handed out to visitors on the skip list.
func SkippedResult() VerificationResult {
	return VerificationResult{
		Success:  true,
		Score:    SkipByIPScore,
		SkipByIP: true,
	}
}

// FailedResult builds an unsuccessful result carrying err and its codes.
func FailedResult(err *errors.AppError, codes ...string) VerificationResult {
	return VerificationResult{
		Success:    false,
		ErrorCodes: codes,
		Err:        err,
	}
}
