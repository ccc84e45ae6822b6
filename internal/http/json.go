package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/target/folio/internal/errors"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 4 << 20

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
// Document payloads are open maps, so unknown fields are only rejected for struct targets.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if _, open := dst.(*map[string]any); !open {
		dec.DisallowUnknownFields()
	}
	dec.UseNumber()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}
	if m, ok := dst.(*map[string]any); ok && *m != nil {
		normalizeNumbers(*m)
	}
	return true
}

// normalizeNumbers converts json.Number to int64 or float64 in place.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = normalizeNumbers(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = normalizeNumbers(child)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// errorBody is the API error shape. Field is set for single-field validation errors.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteAppError maps err to a status code and writes the API error body.
// Internal errors are logged and their detail is not echoed to the client.
func WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	body := errorBody{Error: string(code), Field: apperrors.GetField(err)}

	var appErr *apperrors.AppError
	switch {
	case status >= http.StatusInternalServerError:
		slog.Default().ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		body.Message = http.StatusText(status)
	case errors.As(err, &appErr):
		body.Message = appErr.Message
	default:
		body.Message = err.Error()
	}
	WriteJSON(w, status, body)
}

// statusFor maps an error to its HTTP status and API error code.
func statusFor(err error) (int, apperrors.ErrorCode) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, apperrors.ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, apperrors.ErrCodeCanceled
	}

	code := apperrors.GetCode(err)
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, code
	case apperrors.ErrCodeConflict, apperrors.ErrCodeForeignKey:
		return http.StatusConflict, code
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, code
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized, code
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden, code
	case apperrors.ErrCodeLocked:
		return http.StatusLocked, code
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, code
	case apperrors.ErrCodeCanceled:
		return http.StatusRequestTimeout, code
	default:
		return http.StatusInternalServerError, apperrors.ErrCodeInternal
	}
}
