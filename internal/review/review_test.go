package review

import (
	"errors"
	"testing"

	"github.com/dshills/clauseaudit/internal/schema"
)

func makeViolations(severities ...schema.Severity) []schema.Violation {
	vs := make([]schema.Violation, len(severities))
	for i, s := range severities {
		vs[i] = schema.Violation{ClauseIndex: i, Severity: s}
	}
	return vs
}

func strict(t *testing.T) PenaltyTable {
	t.Helper()
	tbl, err := LookupPenaltyTable("strict")
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

// --- Score tests ---

func TestScore_NoViolations(t *testing.T) {
	got, err := Score(nil, nil, strict(t))
	if err != nil {
		t.Fatal(err)
	}
	if got != 100 {
		t.Errorf("Score = %d, want 100", got)
	}
	if g := GradeFor(got, DefaultThresholds()); g != schema.GradeExcellent {
		t.Errorf("Grade = %q, want excellent", g)
	}
}

func TestScore_SingleHigh(t *testing.T) {
	tbl := strict(t)
	got, err := Score(makeViolations(schema.SeverityHigh), nil, tbl)
	if err != nil {
		t.Fatal(err)
	}
	if want := 100 - tbl.High; got != want {
		t.Errorf("Score = %d, want %d", got, want)
	}
}

func TestScore_Mixed(t *testing.T) {
	// strict: 1 high(-20) + 2 medium(-20) + 1 low(-5) = 55
	vs := makeViolations(schema.SeverityHigh, schema.SeverityMedium, schema.SeverityMedium, schema.SeverityLow)
	got, err := Score(vs, nil, strict(t))
	if err != nil {
		t.Fatal(err)
	}
	if got != 55 {
		t.Errorf("Score = %d, want 55", got)
	}
}

func TestScore_ModerateTable(t *testing.T) {
	tbl, err := LookupPenaltyTable("moderate")
	if err != nil {
		t.Fatal(err)
	}
	// 1 high(-10) + 1 medium(-5) + 1 low(-2) = 83
	got, err := Score(makeViolations(schema.SeverityHigh, schema.SeverityMedium, schema.SeverityLow), nil, tbl)
	if err != nil {
		t.Fatal(err)
	}
	if got != 83 {
		t.Errorf("Score = %d, want 83", got)
	}
}

func TestScore_PricingPenalty(t *testing.T) {
	pricing := schema.PricingAssessment{
		schema.ParamExpense:  {Reasonable: false},
		schema.ParamInterest: {Reasonable: true},
	}
	got, err := Score(nil, pricing, strict(t))
	if err != nil {
		t.Fatal(err)
	}
	if got != 90 {
		t.Errorf("Score = %d, want 90", got)
	}
}

func TestScore_ClampsAtZero(t *testing.T) {
	vs := makeViolations(
		schema.SeverityHigh, schema.SeverityHigh, schema.SeverityHigh,
		schema.SeverityHigh, schema.SeverityHigh, schema.SeverityHigh,
	)
	got, err := Score(vs, nil, strict(t))
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Errorf("Score = %d, want 0 (clamped)", got)
	}
}

func TestScore_InvalidSeverity(t *testing.T) {
	_, err := Score(makeViolations(schema.SeverityHigh, "urgent"), nil, strict(t))
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestScore_NegativePenaltyRejected(t *testing.T) {
	_, err := Score(nil, nil, PenaltyTable{High: -5})
	if err == nil {
		t.Error("expected error for negative penalty, got nil")
	}
}

func TestScore_Monotonic(t *testing.T) {
	tbl := strict(t)
	base := makeViolations(schema.SeverityMedium, schema.SeverityLow)
	for i := 0; i < 8; i++ {
		before, err := Score(base, nil, tbl)
		if err != nil {
			t.Fatal(err)
		}
		base = append(base, schema.Violation{Severity: schema.SeverityHigh})
		after, err := Score(base, nil, tbl)
		if err != nil {
			t.Fatal(err)
		}
		if after > before {
			t.Fatalf("adding a high violation raised the score: %d -> %d", before, after)
		}
		if after < 0 || after > 100 {
			t.Fatalf("score out of bounds: %d", after)
		}
	}
}

func TestScore_OrderIndependent(t *testing.T) {
	tbl := strict(t)
	a, _ := Score(makeViolations(schema.SeverityHigh, schema.SeverityLow, schema.SeverityMedium), nil, tbl)
	b, _ := Score(makeViolations(schema.SeverityLow, schema.SeverityMedium, schema.SeverityHigh), nil, tbl)
	if a != b {
		t.Errorf("order changed the score: %d vs %d", a, b)
	}
}

func TestLookupPenaltyTable_Unknown(t *testing.T) {
	if _, err := LookupPenaltyTable("lenient"); err == nil {
		t.Error("expected error for unknown table, got nil")
	}
	if tbl, err := LookupPenaltyTable(""); err != nil || tbl.High != 20 {
		t.Errorf("empty name should give the strict table, got %+v, %v", tbl, err)
	}
}

// --- Grade tests ---

func TestGradeFor(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		score int
		want  schema.Grade
	}{
		{100, schema.GradeExcellent},
		{90, schema.GradeExcellent},
		{89, schema.GradeGood},
		{75, schema.GradeGood},
		{74, schema.GradePass},
		{60, schema.GradePass},
		{59, schema.GradeFail},
		{0, schema.GradeFail},
	}
	for _, c := range cases {
		if got := GradeFor(c.score, th); got != c.want {
			t.Errorf("GradeFor(%d) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestThresholds_Validate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Errorf("default thresholds invalid: %v", err)
	}
	if err := (Thresholds{Excellent: 75, Good: 90, Pass: 60}).Validate(); err == nil {
		t.Error("expected error for non-descending thresholds")
	}
	if err := (Thresholds{Excellent: 120, Good: 90, Pass: 60}).Validate(); err == nil {
		t.Error("expected error for threshold above 100")
	}
}

// --- FilterBySeverity tests ---

func TestFilterBySeverity_Medium(t *testing.T) {
	vs := makeViolations(schema.SeverityHigh, schema.SeverityMedium, schema.SeverityLow)
	got := FilterBySeverity(vs, schema.SeverityMedium)
	if len(got) != 2 {
		t.Errorf("FilterBySeverity medium: got %d, want 2", len(got))
	}
}

func TestFilterBySeverity_LowReturnsAll(t *testing.T) {
	vs := makeViolations(schema.SeverityHigh, schema.SeverityLow)
	if got := FilterBySeverity(vs, schema.SeverityLow); len(got) != 2 {
		t.Errorf("FilterBySeverity low: got %d, want 2", len(got))
	}
}
