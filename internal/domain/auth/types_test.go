package auth

import (
	"testing"
	"time"
)

func TestSession_Expired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now.Add(time.Minute)}
	if s.Expired(now) {
		t.Fatalf("did not expect expired")
	}
	if !s.Expired(now.Add(2 * time.Minute)) {
		t.Fatalf("expected expired")
	}
}

func TestUser_Claims(t *testing.T) {
	u := &User{
		ID:         "u1",
		Collection: "users",
		Strategy:   StrategyAPIKey,
		Email:      "a@example.com",
		Data:       map[string]any{"roles": []any{"editor"}, "id": "spoofed"},
	}
	c := u.Claims()
	if c["id"] != "u1" {
		t.Fatalf("expected id overlay, got %v", c["id"])
	}
	if c["collection"] != "users" || c["_strategy"] != "api-key" || c["email"] != "a@example.com" {
		t.Fatalf("unexpected claims: %+v", c)
	}
	if _, ok := c["roles"]; !ok {
		t.Fatalf("expected document fields in claims")
	}
	if (*User)(nil).Claims() != nil {
		t.Fatalf("expected nil claims for nil user")
	}
}
