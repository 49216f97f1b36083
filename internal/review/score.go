package review

import (
	"fmt"
	"sort"

	"github.com/dshills/clauseaudit/internal/schema"
)

// PenaltyTable holds the points subtracted per violation severity and per
// unreasonable pricing parameter.
type PenaltyTable struct {
	High    int `json:"high" yaml:"high"`
	Medium  int `json:"medium" yaml:"medium"`
	Low     int `json:"low" yaml:"low"`
	Pricing int `json:"pricing" yaml:"pricing"`
}

// Named penalty tables. Both weightings exist in deployed rule sets, so the
// choice is configuration rather than code.
var penaltyTables = map[string]PenaltyTable{
	"strict":   {High: 20, Medium: 10, Low: 5, Pricing: 10},
	"moderate": {High: 10, Medium: 5, Low: 2, Pricing: 10},
}

// DefaultPenaltyTable is the table used when none is configured.
const DefaultPenaltyTable = "strict"

// LookupPenaltyTable returns the named table.
func LookupPenaltyTable(name string) (PenaltyTable, error) {
	if name == "" {
		name = DefaultPenaltyTable
	}
	t, ok := penaltyTables[name]
	if !ok {
		return PenaltyTable{}, fmt.Errorf("unknown penalty table %q: valid tables are %v", name, PenaltyTableNames())
	}
	return t, nil
}

// PenaltyTableNames lists the built-in table names in sorted order.
func PenaltyTableNames() []string {
	names := make([]string, 0, len(penaltyTables))
	for n := range penaltyTables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate rejects negative penalties; a negative penalty would let
// violations raise the score.
func (t PenaltyTable) Validate() error {
	ve := &schema.ValidationError{}
	for field, v := range map[string]int{"high": t.High, "medium": t.Medium, "low": t.Low, "pricing": t.Pricing} {
		if v < 0 {
			ve.Add("scoring.penalties."+field, "must be >= 0, got %d", v)
		}
	}
	sort.Slice(ve.Fields, func(i, j int) bool { return ve.Fields[i].Field < ve.Fields[j].Field })
	return ve.OrNil()
}

func (t PenaltyTable) penalty(s schema.Severity) (int, error) {
	switch s {
	case schema.SeverityHigh:
		return t.High, nil
	case schema.SeverityMedium:
		return t.Medium, nil
	case schema.SeverityLow:
		return t.Low, nil
	}
	return 0, schema.Invalid("severity", "invalid severity %q (must be high, medium, or low)", s)
}

// Thresholds are the minimum scores for each passing grade.
type Thresholds struct {
	Excellent int `json:"excellent" yaml:"excellent"`
	Good      int `json:"good" yaml:"good"`
	Pass      int `json:"pass" yaml:"pass"`
}

// DefaultThresholds returns 90/75/60.
func DefaultThresholds() Thresholds {
	return Thresholds{Excellent: 90, Good: 75, Pass: 60}
}

// Validate requires 100 >= excellent > good > pass >= 0.
func (th Thresholds) Validate() error {
	if th.Excellent > 100 || th.Pass < 0 || !(th.Excellent > th.Good && th.Good > th.Pass) {
		return schema.Invalid("scoring.thresholds", "must satisfy 100 >= excellent > good > pass >= 0, got %d/%d/%d", th.Excellent, th.Good, th.Pass)
	}
	return nil
}

// Score computes the deterministic 0..100 score.
// Start: 100, minus the table penalty per violation and per unreasonable
// pricing parameter, clamped to [0, 100]. An unknown severity is an error.
func Score(violations []schema.Violation, pricing schema.PricingAssessment, table PenaltyTable) (int, error) {
	if err := table.Validate(); err != nil {
		return 0, err
	}
	score := 100
	for i, v := range violations {
		p, err := table.penalty(v.Severity)
		if err != nil {
			return 0, fmt.Errorf("violations[%d]: %w", i, err)
		}
		score -= p
	}
	score -= pricing.Issues() * table.Pricing
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}

// GradeFor maps a score to its grade.
func GradeFor(score int, th Thresholds) schema.Grade {
	switch {
	case score >= th.Excellent:
		return schema.GradeExcellent
	case score >= th.Good:
		return schema.GradeGood
	case score >= th.Pass:
		return schema.GradePass
	}
	return schema.GradeFail
}

// FilterBySeverity returns only violations at or above the threshold.
func FilterBySeverity(violations []schema.Violation, threshold schema.Severity) []schema.Violation {
	if threshold == schema.SeverityLow {
		return violations
	}
	out := make([]schema.Violation, 0, len(violations))
	for _, v := range violations {
		if v.Severity.Ordinal() >= threshold.Ordinal() {
			out = append(out, v)
		}
	}
	return out
}
