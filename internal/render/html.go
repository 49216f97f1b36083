package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dshills/clauseaudit/internal/schema"
)

type htmlRenderer struct{}

// Rendered from Report.Blocks, so the HTML carries the same sections as the
// markdown content.
var htmlTemplate = template.Must(template.New("audit").Funcs(template.FuncMap{
	"header": func(rows [][]string) []string {
		if len(rows) == 0 {
			return nil
		}
		return rows[0]
	},
	"body": func(rows [][]string) [][]string {
		if len(rows) < 2 {
			return nil
		}
		return rows[1:]
	},
}).Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>{{ .Report.Title }}</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2em auto; line-height: 1.6; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
th, td { border: 1px solid #999; padding: 4px 8px; text-align: left; }
th { background: #eee; }
</style>
</head>
<body>
{{ range .Report.Blocks }}{{ if eq .Type "heading1" }}<h1>{{ .Text }}</h1>
{{ else if eq .Type "heading2" }}<h2>{{ .Text }}</h2>
{{ else if eq .Type "heading3" }}<h3>{{ .Text }}</h3>
{{ else if eq .Type "bold" }}<p><strong>{{ .Text }}</strong></p>
{{ else if eq .Type "table" }}<table>
<thead><tr>{{ range header .Rows }}<th>{{ . }}</th>{{ end }}</tr></thead>
<tbody>{{ range body .Rows }}
<tr>{{ range . }}<td>{{ . }}</td>{{ end }}</tr>{{ end }}
</tbody>
</table>
{{ else }}<p>{{ .Text }}</p>
{{ end }}{{ end }}{{ if .Warnings }}<h2>处理告警</h2>
<ul>{{ range .Warnings }}
<li>{{ . }}</li>{{ end }}
</ul>
{{ end }}<footer><small>审核编号: {{ .AuditID }}</small></footer>
</body>
</html>
`))

func (r *htmlRenderer) Render(res *schema.AuditResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, res); err != nil {
		return nil, fmt.Errorf("rendering html: %w", err)
	}
	return buf.Bytes(), nil
}
