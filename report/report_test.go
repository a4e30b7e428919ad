package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyohosu/translate-nudge/document"
)

func TestRender(t *testing.T) {
	r := NewRenderer("https://example.com")

	out, err := r.Render([]Entry{
		{Element: document.Element{ID: "n1", Text: "Just shipped", HTML: `<p>Just <strong>shipped</strong></p>`}},
		{Element: document.Element{ID: "n2", Text: "  Weekend plans  "}, Processed: true},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "# Pending content (2)")
	assert.Contains(t, out, "## n1 (fresh)")
	assert.Contains(t, out, "Just **shipped**")
	assert.Contains(t, out, "## n2 (nudged)\n\nWeekend plans\n")
}

func TestRender_Empty(t *testing.T) {
	out, err := NewRenderer("").Render(nil)
	require.NoError(t, err)
	assert.Contains(t, out, "# Pending content (0)")
	assert.Contains(t, out, "Nothing looks untranslated.")
}
