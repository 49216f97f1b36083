package render

import (
	"encoding/json"

	"github.com/dshills/clauseaudit/internal/schema"
)

type jsonRenderer struct{}

func (r *jsonRenderer) Render(res *schema.AuditResult) ([]byte, error) {
	return json.MarshalIndent(res, "", "  ")
}
