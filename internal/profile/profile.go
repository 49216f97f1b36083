package profile

import (
	"fmt"
	"strings"

	"github.com/dshills/clauseaudit/internal/schema"
)

// Profile describes a product line: how to recognise it, which specialised
// regulation applies, and the pricing benchmarks it is judged against.
type Profile struct {
	Name string
	// Markers are matched as substrings of the declared product type.
	Markers    []string
	Regulation string
	Benchmarks map[schema.PricingParam]float64
	// Capped parameters have a regulatory ceiling at the benchmark value.
	Capped     []schema.PricingParam
	FocusAreas []string
}

// detectOrder is the lookup order for Detect. The first matching profile
// wins, so a 万能型终身寿险 is treated as life.
var detectOrder = []func() *Profile{life, health, accident, universal, participating}

// Get returns the built-in profile for the given name.
func Get(name string) (*Profile, error) {
	switch name {
	case "general", "":
		return general(), nil
	case "life":
		return life(), nil
	case "health":
		return health(), nil
	case "accident":
		return accident(), nil
	case "universal":
		return universal(), nil
	case "participating":
		return participating(), nil
	default:
		return nil, fmt.Errorf("unknown profile %q: valid profiles are general, life, health, accident, universal, participating", name)
	}
}

// Detect returns the profile for a free-text product type. Profile names
// ("life") and Chinese markers ("寿险") are both recognised; anything else
// falls back to general.
func Detect(productType string) *Profile {
	pt := strings.ToLower(strings.TrimSpace(productType))
	if pt == "" {
		return general()
	}
	for _, mk := range detectOrder {
		p := mk()
		if pt == p.Name {
			return p
		}
		for _, m := range p.Markers {
			if strings.Contains(pt, m) {
				return p
			}
		}
	}
	return general()
}

// Benchmark returns the benchmark for param, and whether one is defined.
func (p *Profile) Benchmark(param schema.PricingParam) (float64, bool) {
	b, ok := p.Benchmarks[param]
	return b, ok
}

// IsCapped reports whether param has a regulatory ceiling in this profile.
func (p *Profile) IsCapped(param schema.PricingParam) bool {
	for _, c := range p.Capped {
		if c == param {
			return true
		}
	}
	return false
}

// FormatForPrompt returns a string suitable for injection into the LLM system prompt.
func (p *Profile) FormatForPrompt() string {
	if len(p.FocusAreas) == 0 && p.Regulation == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Product line: %s\n", p.Name))

	if p.Regulation != "" {
		sb.WriteString(fmt.Sprintf("\nGoverning regulation: %s\n", p.Regulation))
	}

	if len(p.FocusAreas) > 0 {
		sb.WriteString("\nReview focus areas:\n")
		for _, f := range p.FocusAreas {
			sb.WriteString(fmt.Sprintf("- %s\n", f))
		}
	}

	return sb.String()
}
