package schema

import "fmt"

// Severity classifies the regulatory risk of a rule and its violations.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// ParseSeverity returns the Severity for s. Unknown values are rejected
// rather than defaulted, so severity sums stay exact.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return Severity(s), nil
	}
	return "", fmt.Errorf("invalid severity %q (must be high, medium, or low)", s)
}

// IsValid reports whether s is one of the three defined severities.
func (s Severity) IsValid() bool {
	_, err := ParseSeverity(string(s))
	return err == nil
}

// Ordinal returns high(2) > medium(1) > low(0), or -1 when unrecognised.
func (s Severity) Ordinal() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 0
	}
	return -1
}

// Label is the severity name used in report tables.
func (s Severity) Label() string {
	switch s {
	case SeverityHigh:
		return "严重"
	case SeverityMedium:
		return "中等"
	case SeverityLow:
		return "轻微"
	}
	return string(s)
}

// AuditType selects how much of the pipeline runs.
type AuditType string

const (
	AuditFull         AuditType = "full"
	AuditNegativeOnly AuditType = "negative-only"
)

// IsValidAuditType reports whether t is a supported audit type.
func IsValidAuditType(t AuditType) bool {
	return t == AuditFull || t == AuditNegativeOnly
}

// Rule is one negative-list entry. A rule with no keywords and no patterns
// is valid but never fires.
type Rule struct {
	ID            string   `json:"id" yaml:"id"`
	RuleNumber    string   `json:"rule_number" yaml:"rule_number"`
	Description   string   `json:"description" yaml:"description"`
	Severity      Severity `json:"severity" yaml:"severity"`
	Category      string   `json:"category" yaml:"category"`
	Remediation   string   `json:"remediation" yaml:"remediation"`
	Keywords      []string `json:"keywords" yaml:"keywords"`
	Patterns      []string `json:"patterns" yaml:"patterns"`
	Version       string   `json:"version" yaml:"version"`
	EffectiveDate string   `json:"effective_date" yaml:"effective_date"`
}

// Clause is one text span of the audited document, addressed by Index.
type Clause struct {
	Index     int    `json:"clause_index"`
	Text      string `json:"text"`
	Reference string `json:"reference,omitempty"`
}

// Citation is a regulation article attached to a violation.
type Citation struct {
	LawName       string  `json:"law_name"`
	ArticleNumber string  `json:"article_number"`
	Content       string  `json:"content,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

func (c Citation) String() string {
	if c.ArticleNumber == "" {
		return "《" + c.LawName + "》"
	}
	return "《" + c.LawName + "》" + c.ArticleNumber
}

// Disambiguation is the LLM's second opinion on a keyword/pattern match.
type Disambiguation struct {
	Confirmed bool   `json:"confirmed"`
	Reason    string `json:"reason"`
	Rewrite   string `json:"rewrite,omitempty"`
	Model     string `json:"model"`
}

// Violation records one (clause, rule) match.
type Violation struct {
	ClauseIndex     int             `json:"clause_index"`
	ClauseText      string          `json:"clause_text"` // preview only; full text via ClauseIndex
	ClauseReference string          `json:"clause_reference,omitempty"`
	RuleNumber      string          `json:"rule_number"`
	Description     string          `json:"description"`
	Severity        Severity        `json:"severity"`
	Category        string          `json:"category"`
	Remediation     string          `json:"remediation"`
	Regulations     []Citation      `json:"regulations"`
	Disambiguation  *Disambiguation `json:"disambiguation,omitempty"`
}

// PricingParam names a tracked pricing parameter.
type PricingParam string

const (
	ParamMortality PricingParam = "mortality"
	ParamInterest  PricingParam = "interest"
	ParamExpense   PricingParam = "expense"
)

// PricingParams lists the tracked parameters in report order.
var PricingParams = []PricingParam{ParamMortality, ParamInterest, ParamExpense}

// ParseParam accepts "mortality" or "mortality_rate" style names.
func ParseParam(s string) (PricingParam, bool) {
	switch s {
	case "mortality", "mortality_rate":
		return ParamMortality, true
	case "interest", "interest_rate":
		return ParamInterest, true
	case "expense", "expense_rate":
		return ParamExpense, true
	}
	return "", false
}

// Label is the parameter name used in report tables.
func (p PricingParam) Label() string {
	switch p {
	case ParamMortality:
		return "死亡率/发生率"
	case ParamInterest:
		return "预定利率"
	case ParamExpense:
		return "费用率"
	}
	return string(p)
}

// ParamAssessment is the judgment for a single pricing parameter.
// Deviation is the absolute ratio |value-benchmark|/benchmark.
type ParamAssessment struct {
	Value      float64 `json:"value"`
	Benchmark  float64 `json:"benchmark"`
	Deviation  float64 `json:"deviation"`
	Reasonable bool    `json:"reasonable"`
	Note       string  `json:"note"`
}

// PricingAssessment holds only the parameters that were assessed.
type PricingAssessment map[PricingParam]ParamAssessment

// Issues counts parameters assessed as unreasonable.
func (p PricingAssessment) Issues() int {
	n := 0
	for _, a := range p {
		if !a.Reasonable {
			n++
		}
	}
	return n
}

// ProductInfo is the product metadata extracted from the document.
type ProductInfo struct {
	Name            string `json:"product_name"`
	Company         string `json:"insurance_company"`
	Type            string `json:"product_type"`
	InsurancePeriod string `json:"insurance_period,omitempty"`
	PaymentMethod   string `json:"payment_method,omitempty"`
	AgeRange        string `json:"age_range,omitempty"`
	OccupationClass string `json:"occupation_class,omitempty"`
	HasCashValue    bool   `json:"has_cash_value"`
	HasDividend     bool   `json:"has_dividend"`
	DocumentURL     string `json:"document_url,omitempty"`
	Version         string `json:"version,omitempty"`
}

// SeveritySummary counts violations per severity.
type SeveritySummary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Total is the number of counted violations.
func (s SeveritySummary) Total() int { return s.High + s.Medium + s.Low }

// Summary aggregates violation and pricing findings.
type Summary struct {
	TotalViolations   int             `json:"total_violations"`
	Severity          SeveritySummary `json:"violation_severity"`
	PricingIssues     int             `json:"pricing_issues"`
	HasIssues         bool            `json:"has_issues"`
	HasCriticalIssues bool            `json:"has_critical_issues"`
}

// NewSummary derives the summary flags from the counts.
func NewSummary(sev SeveritySummary, pricingIssues int) Summary {
	return Summary{
		TotalViolations:   sev.Total(),
		Severity:          sev,
		PricingIssues:     pricingIssues,
		HasIssues:         sev.Total() > 0 || pricingIssues > 0,
		HasCriticalIssues: sev.High > 0 || pricingIssues > 1,
	}
}

// Grade is the categorical label derived from the score.
type Grade string

const (
	GradeExcellent Grade = "excellent"
	GradeGood      Grade = "good"
	GradePass      Grade = "pass"
	GradeFail      Grade = "fail"
)

// GradeOrdinal orders grades from best(0) to worst(3), -1 when unrecognised.
func GradeOrdinal(g Grade) int {
	switch g {
	case GradeExcellent:
		return 0
	case GradeGood:
		return 1
	case GradePass:
		return 2
	case GradeFail:
		return 3
	}
	return -1
}

// Label is the grade name used in the report.
func (g Grade) Label() string {
	switch g {
	case GradeExcellent:
		return "优秀"
	case GradeGood:
		return "良好"
	case GradePass:
		return "合格"
	case GradeFail:
		return "不合格"
	}
	return string(g)
}

// EvaluationContext is everything the report assembler reads.
// It is built once per audit and not modified after scoring.
type EvaluationContext struct {
	Violations      []Violation       `json:"violations"`
	Pricing         PricingAssessment `json:"pricing,omitempty"`
	Product         ProductInfo       `json:"product"`
	Score           int               `json:"score"`
	Grade           Grade             `json:"grade"`
	Summary         Summary           `json:"summary"`
	RegulationBasis []string          `json:"regulation_basis"`
}

// BlockType is the kind of a structured report block.
type BlockType string

const (
	BlockHeading1  BlockType = "heading1"
	BlockHeading2  BlockType = "heading2"
	BlockHeading3  BlockType = "heading3"
	BlockParagraph BlockType = "paragraph"
	BlockBold      BlockType = "bold"
	BlockTable     BlockType = "table"
)

// Block is one element of the structured report rendering. Rows holds the
// header row followed by data rows for table blocks.
type Block struct {
	Type BlockType  `json:"type"`
	Text string     `json:"text,omitempty"`
	Rows [][]string `json:"rows,omitempty"`
}

// Report is the assembled report in both renderings.
type Report struct {
	ID       string            `json:"report_id"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Blocks   []Block           `json:"blocks"`
	Metadata map[string]string `json:"metadata"`
}

// AuditRequest is the input of one audit call.
type AuditRequest struct {
	DocumentPath  string             `json:"document_path,omitempty"`
	DocumentText  string             `json:"document_text,omitempty"`
	Clauses       []string           `json:"clauses,omitempty"`
	PricingParams map[string]float64 `json:"pricing_params,omitempty"`
	ProductType   string             `json:"product_type,omitempty"`
	ProductName   string             `json:"product_name,omitempty"`
	AuditType     AuditType          `json:"audit_type"`
}

// OutcomeMarker records the result of a side-effecting step that must not
// change the audit's correctness fields.
type OutcomeMarker struct {
	Success  bool   `json:"success"`
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AuditResult is the output of a successful (possibly degraded) audit.
type AuditResult struct {
	Success         bool              `json:"success"`
	AuditID         string            `json:"audit_id"`
	AuditType       AuditType         `json:"audit_type"`
	Product         ProductInfo       `json:"product"`
	Violations      []Violation       `json:"violations"`
	Pricing         PricingAssessment `json:"pricing,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
	Score           int               `json:"score"`
	Grade           Grade             `json:"grade"`
	Summary         Summary           `json:"summary"`
	RegulationBasis []string          `json:"regulation_basis"`
	Report          Report            `json:"report"`
	Patches         string            `json:"patches,omitempty"`
	Export          *OutcomeMarker    `json:"export,omitempty"`
	Push            *OutcomeMarker    `json:"push,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
	CreatedAt       string            `json:"created_at"`
}
