package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMX_RequestDetection(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	assert.False(t, IsHTMX(r))
	assert.False(t, WantsPartial(r))

	r.Header.Set("Hx-Request", "true")
	assert.True(t, IsHTMX(r))
	assert.True(t, WantsPartial(r))

	r.Header.Set("Hx-History-Restore-Request", "true")
	assert.True(t, IsHistoryRestore(r))
	assert.False(t, WantsPartial(r), "history restore renders the full page")
}

func TestHTMXResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	HTMX(rr).Trigger("saved", map[string]any{"id": "123"}).PushURL("/admin/collections/posts/123").Redirect("/admin")

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "/admin", rr.Header().Get("Hx-Redirect"))
	assert.Equal(t, "/admin/collections/posts/123", rr.Header().Get("Hx-Push-Url"))
	assert.JSONEq(t, `{"saved":{"id":"123"}}`, rr.Header().Get("Hx-Trigger"))
}

func TestHTMXResponse_TriggerWithoutPayload(t *testing.T) {
	rr := httptest.NewRecorder()
	HTMX(rr).Trigger("refresh", nil)
	assert.JSONEq(t, `{"refresh":true}`, rr.Header().Get("Hx-Trigger"))
}

func TestHTMXResponse_Discard(t *testing.T) {
	rr := httptest.NewRecorder()
	HTMX(rr).Discard()
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "none", rr.Header().Get("Hx-Reswap"))
}
