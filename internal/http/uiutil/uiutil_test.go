package uiutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 4, 5, 6, 7, 800, time.UTC)

	got, ok := ParseTimestamp("2026-03-04T05:06:07.0000008Z")
	assert.True(t, ok)
	assert.True(t, want.Equal(got))

	_, ok = ParseTimestamp("yesterday")
	assert.False(t, ok)
	_, ok = ParseTimestamp(time.Time{})
	assert.False(t, ok)
	_, ok = ParseTimestamp((*time.Time)(nil))
	assert.False(t, ok)
	_, ok = ParseTimestamp(42)
	assert.False(t, ok)
}

func TestTruncateWithEllipsis(t *testing.T) {
	assert.Equal(t, "short", TruncateWithEllipsis("short", 10))
	assert.Equal(t, "héll…", TruncateWithEllipsis("héllo world", 5))
	assert.Equal(t, "…", TruncateWithEllipsis("abc", 1))
}
