package regulation

import (
	"fmt"
	"strings"

	"github.com/dshills/clauseaudit/internal/schema"
)

// FormatForPrompt wraps each citation in XML-style tags for prompt insertion.
func FormatForPrompt(citations []schema.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, c := range citations {
		sb.WriteString(fmt.Sprintf("<regulation law=%q article=%q>\n", c.LawName, c.ArticleNumber))
		sb.WriteString(c.Content)
		if !strings.HasSuffix(c.Content, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("</regulation>\n")
	}
	return sb.String()
}

// Citation converts an article into a citation with the given score.
func (a Article) Citation(score float64) schema.Citation {
	return schema.Citation{LawName: a.LawName, ArticleNumber: a.ArticleNumber, Content: a.Content, Score: score}
}
