package rules

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dshills/clauseaudit/internal/schema"
	"github.com/dshills/clauseaudit/internal/schema/validate"
)

// pack is the on-disk YAML form of a negative list.
type pack struct {
	Version       string        `yaml:"version"`
	EffectiveDate string        `yaml:"effective_date"`
	Rules         []schema.Rule `yaml:"rules"`
}

// LoadPack reads and validates a YAML negative-list pack.
func LoadPack(path string) ([]schema.Rule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules pack: %w", err)
	}
	return ParsePack(b)
}

// ParsePack decodes a YAML pack. Pack-level version and effective_date are
// inherited by rules that leave them empty. Validation failures are returned
// as a *schema.ValidationError listing every bad field.
func ParsePack(b []byte) ([]schema.Rule, error) {
	var p pack
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	for i := range p.Rules {
		r := &p.Rules[i]
		if r.Version == "" {
			r.Version = p.Version
		}
		if r.EffectiveDate == "" {
			r.EffectiveDate = p.EffectiveDate
		}
		if r.ID == "" {
			r.ID = r.RuleNumber
		}
	}
	if err := validate.Rules(p.Rules); err != nil {
		return nil, err
	}
	return p.Rules, nil
}

// SortBySeverity orders rules high to low, keeping rule_number order within
// a severity. This is the store's conventional read order.
func SortBySeverity(rules []schema.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		oi, oj := rules[i].Severity.Ordinal(), rules[j].Severity.Ordinal()
		if oi != oj {
			return oi > oj
		}
		return rules[i].RuleNumber < rules[j].RuleNumber
	})
}
