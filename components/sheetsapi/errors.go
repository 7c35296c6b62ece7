package sheetsapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/goliatone/go-sheets/pkg/materialize"
	"github.com/goliatone/go-sheets/pkg/provider"
	"github.com/goliatone/go-sheets/pkg/service"
	"github.com/goliatone/go-sheets/pkg/store"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// errInvalidJSON marks request bodies that could not be decoded.
var errInvalidJSON = errors.New("request body is not valid JSON")

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Expected string `json:"expected,omitempty"`
	Allowed  []any  `json:"allowed,omitempty"`
}

// classify maps err to a status and a response body.
func classify(err error) (int, errorDetail) {
	detail := errorDetail{Message: err.Error()}

	if fieldErr, ok := materialize.AsFieldError(err); ok {
		detail.Code = fieldErr.Code()
		detail.Path = fieldErr.Path
		detail.Expected = fieldErr.Expected
		for _, option := range fieldErr.Allowed {
			detail.Allowed = append(detail.Allowed, option.Interface())
		}
		return http.StatusUnprocessableEntity, detail
	}

	switch {
	case errors.Is(err, errInvalidJSON):
		detail.Code = "invalid_json"
		return http.StatusBadRequest, detail
	case errors.Is(err, service.ErrMissingIdentifier), errors.Is(err, provider.ErrMissingIdentifier):
		detail.Code = "missing_identifier"
		return http.StatusBadRequest, detail
	case errors.Is(err, service.ErrMissingOwner):
		detail.Code = "missing_owner"
		return http.StatusBadRequest, detail
	case errors.Is(err, service.ErrInvalidFieldsPayload):
		detail.Code = "invalid_fields_payload"
		return http.StatusBadRequest, detail
	case errors.Is(err, provider.ErrTemplateNotFound):
		detail.Code = "template_not_found"
		return http.StatusNotFound, detail
	case errors.Is(err, provider.ErrProviderUnavailable):
		detail.Code = "provider_unavailable"
		return http.StatusServiceUnavailable, detail
	case errors.Is(err, store.ErrNotFound):
		detail.Code = "sheet_not_found"
		return http.StatusNotFound, detail
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code := httpErr.StatusCode()
		detail.Code = statusCode(code)
		return code, detail
	}

	return http.StatusInternalServerError, errorDetail{
		Code:    "internal_error",
		Message: "internal error",
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code, detail := classify(err)
	if code >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", code,
			"error", err,
		)
	}
	writeJSON(w, code, errorBody{Error: detail})
}

func writeGuardError(w http.ResponseWriter, err error) {
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
		if code <= 0 {
			code = http.StatusForbidden
		}
	}
	writeJSON(w, code, errorBody{Error: errorDetail{
		Code:    statusCode(code),
		Message: http.StatusText(code),
	}})
}

// statusCode turns a status into a snake_case code, e.g. 401 -> "unauthorized".
func statusCode(code int) string {
	return strings.ReplaceAll(strings.ToLower(http.StatusText(code)), " ", "_")
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(payload)
}
