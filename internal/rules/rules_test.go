package rules

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/clauseaudit/internal/logging"
	"github.com/dshills/clauseaudit/internal/schema"
)

func rule(number string, sev schema.Severity, keywords []string, patterns []string) schema.Rule {
	return schema.Rule{
		RuleNumber:  number,
		Description: "desc " + number,
		Severity:    sev,
		Category:    "产品条款表述",
		Remediation: "fix " + number,
		Keywords:    keywords,
		Patterns:    patterns,
	}
}

// --- Match tests ---

func TestMatch_EmptyClauses(t *testing.T) {
	got := Match(nil, []schema.Rule{rule("NL-1", schema.SeverityHigh, []string{"x"}, nil)}, logging.Nop())
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestMatch_SingleHighKeyword(t *testing.T) {
	clauses := Clauses([]string{"保险公司不承担任何责任"})
	rules := []schema.Rule{rule("NL-001", schema.SeverityHigh, []string{"不承担任何责任"}, nil)}
	got := Match(clauses, rules, logging.Nop())
	if len(got) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(got))
	}
	v := got[0]
	if v.RuleNumber != "NL-001" || v.Severity != schema.SeverityHigh || v.ClauseIndex != 0 {
		t.Errorf("unexpected violation: %+v", v)
	}
	if v.Regulations == nil {
		t.Error("Regulations should be an empty list, not nil")
	}
}

func TestMatch_KeywordIsCaseSensitive(t *testing.T) {
	clauses := Clauses([]string{"The Insurer is not liable"})
	got := Match(clauses, []schema.Rule{rule("NL-1", schema.SeverityLow, []string{"insurer"}, nil)}, logging.Nop())
	if len(got) != 0 {
		t.Errorf("keyword match should be case-sensitive, got %d violations", len(got))
	}
}

func TestMatch_PatternIsUnanchored(t *testing.T) {
	clauses := Clauses([]string{"本合同等待期为180天，期间出险不赔"})
	got := Match(clauses, []schema.Rule{rule("NL-2", schema.SeverityMedium, nil, []string{`等待期为\d{3}天`})}, logging.Nop())
	if len(got) != 1 {
		t.Errorf("expected pattern to match mid-clause, got %d", len(got))
	}
}

func TestMatch_InertRuleNeverFires(t *testing.T) {
	clauses := Clauses([]string{"任何文本"})
	got := Match(clauses, []schema.Rule{rule("NL-3", schema.SeverityHigh, nil, nil)}, logging.Nop())
	if len(got) != 0 {
		t.Errorf("rule with no keywords or patterns fired: %+v", got)
	}
}

func TestMatch_OrderAndMultiplicity(t *testing.T) {
	clauses := Clauses([]string{"甲条款 免责 退保", "乙条款", "丙条款 免责"})
	rules := []schema.Rule{
		rule("R-A", schema.SeverityHigh, []string{"免责"}, nil),
		rule("R-B", schema.SeverityLow, []string{"退保", "免责"}, nil),
	}
	got := Match(clauses, rules, logging.Nop())
	want := []struct {
		idx  int
		rule string
	}{{0, "R-A"}, {0, "R-B"}, {2, "R-A"}, {2, "R-B"}}
	if len(got) != len(want) {
		t.Fatalf("got %d violations, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].ClauseIndex != w.idx || got[i].RuleNumber != w.rule {
			t.Errorf("violation[%d] = (%d, %s), want (%d, %s)", i, got[i].ClauseIndex, got[i].RuleNumber, w.idx, w.rule)
		}
	}
}

func TestMatch_MalformedPatternSkipped(t *testing.T) {
	clauses := Clauses([]string{"保险公司不承担任何责任", "等待期为365天"})
	rules := []schema.Rule{
		rule("BAD", schema.SeverityHigh, nil, []string{`([unclosed`}),
		rule("GOOD-1", schema.SeverityHigh, []string{"不承担任何责任"}, nil),
		rule("GOOD-2", schema.SeverityMedium, nil, []string{`等待期为\d+天`}),
	}
	set := Compile(rules, logging.Nop())
	if len(set.Problems()) != 1 || set.Problems()[0].RuleNumber != "BAD" {
		t.Fatalf("expected one problem for BAD, got %+v", set.Problems())
	}
	got := set.Match(clauses)
	if len(got) != 2 {
		t.Fatalf("expected 2 violations from good rules, got %d", len(got))
	}
	for _, v := range got {
		if v.RuleNumber == "BAD" {
			t.Errorf("faulty rule produced a violation: %+v", v)
		}
	}
}

func TestMatch_BadPatternKeepsKeywords(t *testing.T) {
	clauses := Clauses([]string{"含有关键字"})
	got := Match(clauses, []schema.Rule{rule("MIX", schema.SeverityLow, []string{"关键字"}, []string{`(`})}, logging.Nop())
	if len(got) != 1 {
		t.Errorf("keyword check should still fire when a pattern is bad, got %d", len(got))
	}
}

func TestMatch_Deterministic(t *testing.T) {
	clauses := Clauses([]string{"免责 等待期为90天", "不承担任何责任"})
	rules := []schema.Rule{
		rule("A", schema.SeverityHigh, []string{"不承担"}, nil),
		rule("B", schema.SeverityMedium, nil, []string{`等待期为\d+天`}),
	}
	a := Match(clauses, rules, nil)
	b := Match(clauses, rules, nil)
	if !reflect.DeepEqual(a, b) {
		t.Error("Match is not deterministic")
	}
}

// --- Preview tests ---

func TestPreview(t *testing.T) {
	short := strings.Repeat("条", PreviewLength)
	if got := Preview(short); got != short {
		t.Error("text at the limit must not be truncated")
	}
	long := strings.Repeat("条", PreviewLength+1)
	got := Preview(long)
	if !strings.HasSuffix(got, "...") || len([]rune(got)) != PreviewLength+3 {
		t.Errorf("Preview length = %d runes", len([]rune(got)))
	}
}

// --- GroupBySeverity tests ---

func TestGroupBySeverity(t *testing.T) {
	vs := []schema.Violation{
		{Severity: schema.SeverityHigh}, {Severity: schema.SeverityHigh}, {Severity: schema.SeverityMedium},
	}
	got := GroupBySeverity(vs)
	if got != (schema.SeveritySummary{High: 2, Medium: 1, Low: 0}) {
		t.Errorf("GroupBySeverity = %+v", got)
	}
	if got.Total() != len(vs) {
		t.Errorf("counts sum to %d, want %d", got.Total(), len(vs))
	}
}

// --- Pack tests ---

const samplePack = `version: "2024.1"
effective_date: "2024-01-01"
rules:
  - rule_number: NL-002
    description: 等待期过长
    severity: medium
    category: 产品责任设计
    patterns: ['等待期为\d{3}天']
  - rule_number: NL-001
    description: 免除保险人法定义务
    severity: high
    category: 产品条款表述
    keywords: [不承担任何责任]
    version: "2025.1"
`

func TestParsePack(t *testing.T) {
	got, err := ParsePack([]byte(samplePack))
	if err != nil {
		t.Fatalf("ParsePack: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(got))
	}
	if got[0].Version != "2024.1" || got[0].EffectiveDate != "2024-01-01" {
		t.Errorf("pack defaults not inherited: %+v", got[0])
	}
	if got[1].Version != "2025.1" {
		t.Errorf("rule version overwritten: %q", got[1].Version)
	}
	if got[1].ID != "NL-001" {
		t.Errorf("ID should default to rule_number, got %q", got[1].ID)
	}
}

func TestParsePack_UnknownSeverityRejected(t *testing.T) {
	bad := strings.Replace(samplePack, "severity: medium", "severity: severe", 1)
	_, err := ParsePack([]byte(bad))
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoadPack_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.yaml")
	if err := os.WriteFile(path, []byte(samplePack), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadPack(path)
	if err != nil {
		t.Fatalf("LoadPack: %v", err)
	}
	SortBySeverity(got)
	if got[0].RuleNumber != "NL-001" {
		t.Errorf("expected high rule first after sort, got %q", got[0].RuleNumber)
	}
}

func TestLoadPack_Missing(t *testing.T) {
	if _, err := LoadPack(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
