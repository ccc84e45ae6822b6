package httpx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireTemplateRenderer parses the admin templates from the source tree.
// Tests are skipped when the tree is not available (for example when the
// package is vendored without frontend/); a template that fails to parse
// fails the test.
func RequireTemplateRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	if _, err := os.Stat(TemplatePathFromTest); err != nil {
		t.Skipf("admin templates not available: %v", err)
	}
	tr, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS:   os.DirFS(TemplatePathFromTest),
		StaticPrefix: "/static",
	})
	require.NoError(t, err, "admin templates must parse")
	return tr
}
