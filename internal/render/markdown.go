package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/dshills/clauseaudit/internal/schema"
)

type markdownRenderer struct{}

// The report content is already markdown; the template appends what only
// the audit result carries.
var mdTemplate = template.Must(template.New("audit").Parse(`{{ .Report.Content }}{{ if .Warnings }}
---

## 处理告警
{{ range .Warnings }}
- {{ . }}{{ end }}
{{ end }}{{ if .Patches }}
---

## 条款修改补丁

` + "```" + `diff
{{ .Patches }}` + "```" + `
{{ end }}
---
*审核编号: {{ .AuditID }} | 审核类型: {{ .AuditType }} | 评分: {{ .Score }} | 评级: {{ .Grade.Label }}*
`))

func (r *markdownRenderer) Render(res *schema.AuditResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, res); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
