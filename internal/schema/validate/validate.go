package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/clauseaudit/internal/schema"
)

// Rules checks every rule and reports all field errors at once.
// Duplicate rule numbers are rejected since rule_number is the stable key.
func Rules(rules []schema.Rule) error {
	ve := &schema.ValidationError{}
	seen := make(map[string]int, len(rules))
	for i, r := range rules {
		prefix := fmt.Sprintf("rules[%d]", i)
		validateRule(ve, r, prefix)
		if r.RuleNumber == "" {
			continue
		}
		if j, dup := seen[r.RuleNumber]; dup {
			ve.Add(prefix+".rule_number", "duplicate rule_number %q (also rules[%d])", r.RuleNumber, j)
			continue
		}
		seen[r.RuleNumber] = i
	}
	return ve.OrNil()
}

// Rule checks a single rule.
func Rule(r schema.Rule) error {
	ve := &schema.ValidationError{}
	validateRule(ve, r, "rule")
	return ve.OrNil()
}

func validateRule(ve *schema.ValidationError, r schema.Rule, prefix string) {
	if strings.TrimSpace(r.RuleNumber) == "" {
		ve.Add(prefix+".rule_number", "rule_number is required")
	}
	if !r.Severity.IsValid() {
		ve.Add(prefix+".severity", "invalid severity %q (must be high, medium, or low)", r.Severity)
	}
	if strings.TrimSpace(r.Description) == "" {
		ve.Add(prefix+".description", "description is required")
	}
	for j, k := range r.Keywords {
		if k == "" {
			ve.Add(fmt.Sprintf("%s.keywords[%d]", prefix, j), "empty keyword would match every clause")
		}
	}
}

// Request checks an audit request before any work is done.
func Request(req schema.AuditRequest) error {
	ve := &schema.ValidationError{}
	if !schema.IsValidAuditType(req.AuditType) {
		ve.Add("audit_type", "must be full or negative-only, got %q", req.AuditType)
	}
	if req.DocumentPath == "" && req.DocumentText == "" && req.Clauses == nil {
		ve.Add("clauses", "one of document_path, document_text, or clauses is required")
	}
	for name, v := range req.PricingParams {
		if _, ok := schema.ParseParam(name); !ok {
			ve.Add("pricing_params."+name, "unknown pricing parameter")
			continue
		}
		if v < 0 {
			ve.Add("pricing_params."+name, "must be >= 0, got %g", v)
		}
	}
	return ve.OrNil()
}

// Disambiguation strips markdown fences, unmarshals the model's JSON answer,
// and checks that it carries a reason.
func Disambiguation(raw string) (*schema.Disambiguation, error) {
	cleaned := stripFences(raw)

	var d schema.Disambiguation
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		return nil, fmt.Errorf("JSON parse failed: %w", err)
	}
	if strings.TrimSpace(d.Reason) == "" {
		return nil, fmt.Errorf("reason is required")
	}
	return &d, nil
}

// stripFences removes leading/trailing markdown code fences (```json ... ``` or ``` ... ```).
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// Remove first line (the fence opener)
		idx := strings.Index(s, "\n")
		if idx >= 0 {
			s = s[idx+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		idx := strings.LastIndex(s, "\n```")
		if idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
