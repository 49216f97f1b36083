package llm

import (
	"fmt"
	"strings"

	"github.com/dshills/clauseaudit/internal/profile"
	"github.com/dshills/clauseaudit/internal/redact"
	"github.com/dshills/clauseaudit/internal/regulation"
	"github.com/dshills/clauseaudit/internal/schema"
)

const systemPromptBase = `You are an insurance product compliance reviewer. A keyword or pattern
rule from the regulator's negative list has matched a clause of a product
document. Decide whether the clause really breaches the rule.

Decision rules:
- Confirm only when the clause text itself breaches the rule as described
- A keyword that appears in a permitted context (a definition, a quoted
  exception, a customer-friendly restatement) is NOT a breach
- Judge the clause as written; do not assume text that is not shown
- When confirmed, propose a minimal rewrite of the clause that removes the
  breach and keeps its commercial meaning; leave rewrite empty otherwise

Output rules:
- Return JSON only: no prose, no markdown fences, no explanation
- "reason" is required and must be written in Chinese
- Do not include a score or severity; those are computed externally`

const answerSchema = `{
  "confirmed": true,
  "reason": "一句话说明判断依据",
  "rewrite": "修改后的条款全文(未确认时为空字符串)"
}`

// BuildSystemPrompt constructs the disambiguation system prompt with the
// product line's governing regulation and focus areas.
func BuildSystemPrompt(p *profile.Profile) string {
	var sb strings.Builder
	sb.WriteString(systemPromptBase)

	if p != nil {
		if rules := p.FormatForPrompt(); rules != "" {
			sb.WriteString("\n\n")
			sb.WriteString(rules)
		}
	}

	return sb.String()
}

// BuildUserPrompt constructs the user prompt for one violation. The clause
// is redacted before it is embedded.
func BuildUserPrompt(v schema.Violation, clause string, citations []schema.Citation) string {
	var sb strings.Builder

	sb.WriteString("Review the following rule match.\n\n")

	sb.WriteString(fmt.Sprintf("<rule number=%q severity=%q category=%q>\n", v.RuleNumber, v.Severity, v.Category))
	sb.WriteString(v.Description)
	sb.WriteString("\n</rule>\n\n")

	clause = redact.Redact(clause)
	sb.WriteString(fmt.Sprintf("<clause reference=%q>\n", v.ClauseReference))
	sb.WriteString(clause)
	if !strings.HasSuffix(clause, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("</clause>\n")

	if len(citations) > 0 {
		sb.WriteString("\n")
		sb.WriteString(regulation.FormatForPrompt(citations))
	}

	sb.WriteString("\nReturn your answer as JSON with this structure:\n")
	sb.WriteString(answerSchema)

	return sb.String()
}
