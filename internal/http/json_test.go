package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/target/folio/internal/errors"
)

func TestDecodeJSON_OpenMapNormalizesNumbers(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"n":3,"f":1.5,"items":[{"q":10}],"extra":true}`))
	rr := httptest.NewRecorder()

	var got map[string]any
	require.True(t, DecodeJSON(rr, req, &got))

	assert.Equal(t, map[string]any{
		"n":     int64(3),
		"f":     1.5,
		"items": []any{map[string]any{"q": int64(10)}},
		"extra": true,
	}, got)
}

func TestDecodeJSON_StructRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@example.com","admin":true}`))
	rr := httptest.NewRecorder()

	assert.False(t, DecodeJSON(rr, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid_json")
}

func TestDecodeJSON_BodyTooLarge(t *testing.T) {
	big := `{"s":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rr := httptest.NewRecorder()

	var got map[string]any
	assert.False(t, DecodeJSON(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big)), &got))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
		field   string
	}{
		{"not found", apperrors.NotFound("missing"), http.StatusNotFound, "not_found", "missing", ""},
		{"validation field", apperrors.ValidationField("title", "This field is required."), http.StatusBadRequest, "validation", "This field is required.", "title"},
		{"conflict", apperrors.Conflict("taken"), http.StatusConflict, "conflict", "taken", ""},
		{"foreign key", apperrors.ForeignKey("in use"), http.StatusConflict, "foreign_key", "in use", ""},
		{"unauthorized", apperrors.Unauthorized("nope"), http.StatusUnauthorized, "unauthorized", "nope", ""},
		{"forbidden", apperrors.Forbidden("no"), http.StatusForbidden, "forbidden", "no", ""},
		{"locked", apperrors.Locked("locked out"), http.StatusLocked, "locked", "locked out", ""},
		{"wrapped", fmt.Errorf("outer: %w", apperrors.NotFound("inner")), http.StatusNotFound, "not_found", "inner", ""},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", "Gateway Timeout", ""},
		{"canceled", context.Canceled, http.StatusRequestTimeout, "canceled", "context canceled", ""},
		{"plain error", errors.New("pq: secret detail"), http.StatusInternalServerError, "internal", "Internal Server Error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteAppError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			require.Equal(t, tt.status, rr.Code)
			body := decodeBody(t, rr)
			assert.Equal(t, tt.code, body["error"])
			assert.Equal(t, tt.message, body["message"])
			if tt.field == "" {
				assert.NotContains(t, body, "field")
			} else {
				assert.Equal(t, tt.field, body["field"])
			}
		})
	}
}

func TestWriteAppError_LogsInternalDetail(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	rr := httptest.NewRecorder()
	WriteAppError(rr, httptest.NewRequest(http.MethodGet, "/api/posts", nil), errors.New("pq: secret detail"))

	assert.NotContains(t, rr.Body.String(), "secret detail")
	assert.Contains(t, buf.String(), "secret detail")
}
