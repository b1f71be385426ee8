package responder

import (
	"net/http"

	"github.com/leeforge/recaptcha/errors"
)

const (
	// 4xxx - client errors
	ErrCodeBadRequest       = 4000
	ErrCodeValidationFailed = 4002
	ErrCodeCaptchaFailed    = 4010
	ErrCodeCaptchaMissing   = 4011

	// 5xxx - server errors
	ErrCodeInternalServer  = 5000
	ErrCodeConfiguration   = 5001
	ErrCodeExternalService = 5005
	ErrCodeTimeout         = 5006
)

var errorMessages = map[int]string{
	ErrCodeBadRequest:       "Bad Request",
	ErrCodeValidationFailed: "Validation Failed",
	ErrCodeCaptchaFailed:    "Captcha Verification Failed",
	ErrCodeCaptchaMissing:   "Captcha Token Missing",
	ErrCodeInternalServer:   "Internal Server Error",
	ErrCodeConfiguration:    "Captcha Misconfigured",
	ErrCodeExternalService:  "External Service Error",
	ErrCodeTimeout:          "Request Timeout",
}

// GetErrorMessage returns the default message for an error code
func GetErrorMessage(code int) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Unknown Error"
}

// NewError creates a new Error, falling back to the default message for code.
func NewError(code int, message string, details any) Error {
	if message == "" {
		message = GetErrorMessage(code)
	}
	return Error{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// codeFor maps an AppError type onto a response code and HTTP status.
func codeFor(err *errors.AppError) (int, int) {
	switch err.Type {
	case errors.ErrorTypeConfiguration:
		return ErrCodeConfiguration, http.StatusInternalServerError
	case errors.ErrorTypeValidation, errors.ErrorTypeRequired, errors.ErrorTypeInvalid:
		return ErrCodeValidationFailed, http.StatusBadRequest
	case errors.ErrorTypeVerification:
		return ErrCodeCaptchaFailed, http.StatusBadRequest
	case errors.ErrorTypeExternal:
		return ErrCodeExternalService, http.StatusBadGateway
	case errors.ErrorTypeTimeout:
		return ErrCodeTimeout, http.StatusGatewayTimeout
	default:
		return ErrCodeInternalServer, http.StatusInternalServerError
	}
}
