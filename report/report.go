// Package report renders content that still looks untranslated as Markdown,
// for the pending endpoint and the MCP tool built on it.
package report

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/garyohosu/translate-nudge/document"
)

// Entry is one pending element and whether it was already nudged.
type Entry struct {
	document.Element
	Processed bool
}

// Renderer converts pending elements to Markdown. It is safe for concurrent
// use.
type Renderer struct {
	conv   *converter.Converter
	domain string
}

// NewRenderer creates a Renderer. domain resolves relative links in the
// rendered content and may be empty.
func NewRenderer(domain string) *Renderer {
	return &Renderer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
		domain: domain,
	}
}

// Render writes one section per entry. Entries without HTML fall back to
// their text.
func (r *Renderer) Render(entries []Entry) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Pending content (%d)\n", len(entries))
	if len(entries) == 0 {
		b.WriteString("\nNothing looks untranslated.\n")
		return b.String(), nil
	}

	for _, e := range entries {
		status := "fresh"
		if e.Processed {
			status = "nudged"
		}
		fmt.Fprintf(&b, "\n## %s (%s)\n\n", e.ID, status)

		body := strings.TrimSpace(e.Text)
		if e.HTML != "" {
			md, err := r.conv.ConvertString(e.HTML, converter.WithDomain(r.domain))
			if err != nil {
				return "", fmt.Errorf("report: convert %s: %w", e.ID, err)
			}
			body = strings.TrimSpace(md)
		}
		b.WriteString(body)
		b.WriteString("\n")
	}
	return b.String(), nil
}
