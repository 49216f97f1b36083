package render

import (
	"fmt"

	"github.com/dshills/clauseaudit/internal/schema"
)

// Renderer formats an audit result into bytes for output.
type Renderer interface {
	Render(res *schema.AuditResult) ([]byte, error)
}

// Formats lists the supported format names.
var Formats = []string{"json", "md", "html"}

// NewRenderer returns a Renderer for the given format string.
// Supported formats: "json" (default), "md", "html".
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "json", "":
		return &jsonRenderer{}, nil
	case "md":
		return &markdownRenderer{}, nil
	case "html":
		return &htmlRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are json, md, html", format)
	}
}

// Extension returns the file extension for a format.
func Extension(format string) string {
	switch format {
	case "md":
		return ".md"
	case "html":
		return ".html"
	}
	return ".json"
}
