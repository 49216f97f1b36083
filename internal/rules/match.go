package rules

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/clauseaudit/internal/schema"
)

// PreviewLength is the number of runes of clause text kept in a violation.
const PreviewLength = 100

// Problem records a pattern that could not be compiled. The rest of the
// rule, and every other rule, still participates in matching.
type Problem struct {
	RuleNumber string
	Pattern    string
	Err        string
}

type compiledRule struct {
	rule     schema.Rule
	patterns []*regexp.Regexp
}

// Set is a rule list with its patterns compiled once.
type Set struct {
	rules    []compiledRule
	problems []Problem
}

// Compile prepares rules for matching in the given order. A pattern that
// fails to compile is dropped and logged.
func Compile(rules []schema.Rule, log *zap.SugaredLogger) *Set {
	s := &Set{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		cr := compiledRule{rule: r}
		for _, p := range r.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				s.problems = append(s.problems, Problem{RuleNumber: r.RuleNumber, Pattern: p, Err: err.Error()})
				if log != nil {
					log.Warnw("skipping malformed rule pattern", "rule", r.RuleNumber, "pattern", p, "error", err)
				}
				continue
			}
			cr.patterns = append(cr.patterns, re)
		}
		s.rules = append(s.rules, cr)
	}
	return s
}

// Problems returns the patterns dropped at compile time.
func (s *Set) Problems() []Problem { return s.problems }

// Len is the number of rules in the set, inert ones included.
func (s *Set) Len() int { return len(s.rules) }

// Match evaluates every rule against every clause, clause-major then in
// rule order, and emits one violation per matching pair.
func (s *Set) Match(clauses []schema.Clause) []schema.Violation {
	out := make([]schema.Violation, 0)
	for _, c := range clauses {
		for _, cr := range s.rules {
			if !cr.matches(c.Text) {
				continue
			}
			out = append(out, schema.Violation{
				ClauseIndex:     c.Index,
				ClauseText:      Preview(c.Text),
				ClauseReference: c.Reference,
				RuleNumber:      cr.rule.RuleNumber,
				Description:     cr.rule.Description,
				Severity:        cr.rule.Severity,
				Category:        cr.rule.Category,
				Remediation:     cr.rule.Remediation,
				Regulations:     []schema.Citation{},
			})
		}
	}
	return out
}

func (cr compiledRule) matches(text string) bool {
	for _, k := range cr.rule.Keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	for _, re := range cr.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Match compiles rules and matches clauses in one call.
func Match(clauses []schema.Clause, rules []schema.Rule, log *zap.SugaredLogger) []schema.Violation {
	return Compile(rules, log).Match(clauses)
}

// Clauses indexes raw clause strings by position.
func Clauses(texts []string) []schema.Clause {
	out := make([]schema.Clause, len(texts))
	for i, t := range texts {
		out[i] = schema.Clause{Index: i, Text: t}
	}
	return out
}

// Preview truncates text to PreviewLength runes, appending "..." if truncated.
func Preview(text string) string {
	r := []rune(text)
	if len(r) <= PreviewLength {
		return text
	}
	return string(r[:PreviewLength]) + "..."
}

// GroupBySeverity counts violations per severity. The counts sum to
// len(violations) because severities are validated when rules are loaded.
func GroupBySeverity(violations []schema.Violation) schema.SeveritySummary {
	var s schema.SeveritySummary
	for _, v := range violations {
		switch v.Severity {
		case schema.SeverityHigh:
			s.High++
		case schema.SeverityMedium:
			s.Medium++
		case schema.SeverityLow:
			s.Low++
		}
	}
	return s
}
