package responder

import (
	"net/http"

	"github.com/leeforge/recaptcha/errors"
	"github.com/leeforge/recaptcha/http/middleware"
	"github.com/leeforge/recaptcha/json"
	"github.com/leeforge/recaptcha/logging"
)

var encodeFailed = []byte("{\"error\":{\"code\":5000,\"message\":\"encode failed\"}}")

func writeJSON(w http.ResponseWriter, status int, payload *Response) {
	raw, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(encodeFailed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

// requestMeta builds Meta with the trace id of r applied before opts.
func requestMeta(r *http.Request, opts []Option) Meta {
	if r != nil {
		if traceID := logging.GetTraceID(r.Context()); traceID != "" {
			opts = append([]Option{WithTraceID(traceID)}, opts...)
		}
		if took := middleware.Elapsed(r.Context()); took > 0 {
			opts = append([]Option{WithTook(took)}, opts...)
		}
	}
	return *NewMeta(opts...)
}

// Write sends a success response with data
func Write(w http.ResponseWriter, r *http.Request, status int, data any, opts ...Option) {
	writeJSON(w, status, &Response{
		Data: data,
		Meta: requestMeta(r, opts),
	})
}

// WriteError sends an error response
func WriteError(w http.ResponseWriter, r *http.Request, status int, err Error, opts ...Option) {
	writeJSON(w, status, &Response{
		Error: &err,
		Meta:  requestMeta(r, opts),
	})
}

// OK responds with 200 OK and data
func OK(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	Write(w, r, http.StatusOK, data, opts...)
}

// BadRequest responds with 400 Bad Request
func BadRequest(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	WriteError(w, r, http.StatusBadRequest, NewError(ErrCodeBadRequest, message, nil), opts...)
}

// CustomError responds with custom status code and error
func CustomError(w http.ResponseWriter, r *http.Request, status int, code int, message string, details any, opts ...Option) {
	WriteError(w, r, status, NewError(code, message, details), opts...)
}

// AppError writes err using the code and status its type maps to. details
// replaces the error's own details when non-nil.
func AppError(w http.ResponseWriter, r *http.Request, err error, details any, opts ...Option) {
	appErr := errors.FromError(err)
	if appErr == nil {
		appErr = errors.NewInternal("")
	}
	code, status := codeFor(appErr)
	if appErr.HTTPStatus != 0 {
		status = appErr.HTTPStatus
	}
	if details == nil && len(appErr.Details) > 0 {
		details = appErr.Details
	}
	WriteError(w, r, status, NewError(code, appErr.Message, details), opts...)
}
