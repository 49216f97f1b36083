package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/clauseaudit/internal/schema"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault_Valid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	tbl, err := Default().PenaltyTable()
	if err != nil {
		t.Fatal(err)
	}
	if tbl.High != 20 || tbl.Medium != 10 || tbl.Low != 5 {
		t.Errorf("default penalty table = %+v, want strict", tbl)
	}
}

func TestLoad_NoFile(t *testing.T) {
	c, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Database.Path != "./clauseaudit.db" {
		t.Errorf("Database.Path = %q", c.Database.Path)
	}
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	path := writeFile(t, "clauseaudit.yaml", `
database:
  path: /tmp/audit.db
scoring:
  penalty_table: moderate
  thresholds: {excellent: 95, good: 80, pass: 65}
pricing:
  tolerance: 0.2
  tolerance_overrides:
    expense_rate: 0.3
audit:
  concurrency: 8
  search_timeout: 3s
export:
  adapter: blocks
  endpoint: http://docs.local/api/documents
`)
	c, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Database.Path != "/tmp/audit.db" {
		t.Errorf("Database.Path = %q", c.Database.Path)
	}
	if c.Audit.SearchTimeout != 3*time.Second {
		t.Errorf("SearchTimeout = %v, want 3s", c.Audit.SearchTimeout)
	}
	if c.Logging.Format != "console" {
		t.Errorf("unset field lost its default: %q", c.Logging.Format)
	}
	tbl, _ := c.PenaltyTable()
	if tbl.High != 10 {
		t.Errorf("penalty table high = %d, want 10 (moderate)", tbl.High)
	}
	pc, err := c.PricingConfig()
	if err != nil {
		t.Fatal(err)
	}
	if pc.Overrides[schema.ParamExpense] != 0.3 || pc.Tolerance != 0.2 {
		t.Errorf("pricing config = %+v", pc)
	}
}

func TestLoad_ExplicitPenalties(t *testing.T) {
	path := writeFile(t, "c.yaml", "scoring:\n  penalties: {high: 30, medium: 15, low: 1, pricing: 5}\n")
	c, err := Load(path, "")
	if err != nil {
		t.Fatal(err)
	}
	tbl, _ := c.PenaltyTable()
	if tbl.High != 30 || tbl.Pricing != 5 {
		t.Errorf("PenaltyTable = %+v", tbl)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), ""); err == nil {
		t.Error("expected error for missing config file, got nil")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "database: [unclosed\n")
	if _, err := Load(path, ""); err == nil {
		t.Error("expected parse error, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CLAUSEAUDIT_DB_PATH", "/data/env.db")
	t.Setenv("CLAUSEAUDIT_CONCURRENCY", "2")
	t.Setenv("CLAUSEAUDIT_LOG_FORMAT", "json")
	c, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Database.Path != "/data/env.db" || c.Audit.Concurrency != 2 || c.Logging.Format != "json" {
		t.Errorf("env overrides not applied: %+v", c)
	}
}

func TestLoad_EnvBadInteger(t *testing.T) {
	t.Setenv("CLAUSEAUDIT_CONCURRENCY", "many")
	_, err := Load("", "")
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	// Register cleanup for a variable the .env file will set.
	t.Setenv("CLAUSEAUDIT_OUTPUT_DIR", "")
	os.Unsetenv("CLAUSEAUDIT_OUTPUT_DIR")
	env := writeFile(t, ".env", "CLAUSEAUDIT_OUTPUT_DIR=/srv/reports\n")
	c, err := Load("", env)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Report.OutputDir != "/srv/reports" {
		t.Errorf("OutputDir = %q, want /srv/reports", c.Report.OutputDir)
	}
}

func TestLoad_MissingDotEnvIgnored(t *testing.T) {
	if _, err := Load("", filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestValidate_CollectsFields(t *testing.T) {
	c := Default()
	c.Logging.Format = "xml"
	c.Scoring.PenaltyTable = "lenient"
	c.Export.Adapter = "blocks"
	c.Audit.Concurrency = 0
	err := c.Validate()
	var ve *schema.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{
		"logging.format":        true,
		"scoring.penalty_table": true,
		"export.endpoint":       true,
		"audit.concurrency":     true,
	}
	for _, f := range ve.Fields {
		delete(want, f.Field)
	}
	if len(want) > 0 {
		t.Errorf("missing field errors %v in %v", want, ve)
	}
}

func TestPricingConfig_UnknownOverride(t *testing.T) {
	c := Default()
	c.Pricing.ToleranceOverrides = map[string]float64{"loading": 0.1}
	if _, err := c.PricingConfig(); err == nil {
		t.Error("expected error for unknown parameter, got nil")
	}
}
