package pricing

import (
	"fmt"
	"math"

	"github.com/dshills/clauseaudit/internal/profile"
	"github.com/dshills/clauseaudit/internal/schema"
)

// DefaultTolerance is the maximum accepted deviation ratio.
const DefaultTolerance = 0.10

// Config controls the reasonableness judgment.
type Config struct {
	// Tolerance is the maximum |value-benchmark|/benchmark ratio accepted.
	Tolerance float64
	// Overrides replace Tolerance for individual parameters.
	Overrides map[schema.PricingParam]float64
}

// DefaultConfig returns a Config with DefaultTolerance for every parameter.
func DefaultConfig() Config {
	return Config{Tolerance: DefaultTolerance}
}

// Validate rejects negative tolerances.
func (c Config) Validate() error {
	ve := &schema.ValidationError{}
	if c.Tolerance < 0 {
		ve.Add("pricing.tolerance", "must be >= 0, got %g", c.Tolerance)
	}
	for p, tol := range c.Overrides {
		if tol < 0 {
			ve.Add("pricing.tolerance_overrides."+string(p), "must be >= 0, got %g", tol)
		}
	}
	return ve.OrNil()
}

func (c Config) tolerance(p schema.PricingParam) float64 {
	if t, ok := c.Overrides[p]; ok {
		return t
	}
	return c.Tolerance
}

// Evaluate judges each supplied parameter against the benchmark of the
// product's profile. Parameters absent from params are absent from the
// result. Values above 1 are read as percentages.
func Evaluate(params map[schema.PricingParam]float64, productType string, cfg Config) schema.PricingAssessment {
	out := make(schema.PricingAssessment, len(params))
	if len(params) == 0 {
		return out
	}
	prof := profile.Detect(productType)
	for _, param := range schema.PricingParams {
		raw, ok := params[param]
		if !ok {
			continue
		}
		benchmark, ok := prof.Benchmark(param)
		if !ok || benchmark == 0 {
			continue
		}
		value := normalize(raw)
		dev := math.Abs(value-benchmark) / benchmark
		reasonable := dev <= cfg.tolerance(param)
		out[param] = schema.ParamAssessment{
			Value:      value,
			Benchmark:  benchmark,
			Deviation:  round4(dev),
			Reasonable: reasonable,
			Note:       note(param, value, benchmark, reasonable, prof.IsCapped(param)),
		}
	}
	return out
}

// ParseParams converts request-style names ("expense_rate") into tracked
// parameters, skipping unknown names.
func ParseParams(in map[string]float64) map[schema.PricingParam]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[schema.PricingParam]float64, len(in))
	for k, v := range in {
		if p, ok := schema.ParseParam(k); ok {
			out[p] = v
		}
	}
	return out
}

// Recommendations returns advice for each unreasonable parameter in
// mortality, interest, expense order.
func Recommendations(a schema.PricingAssessment) []string {
	var recs []string
	for _, p := range schema.PricingParams {
		pa, ok := a[p]
		if !ok || pa.Reasonable {
			continue
		}
		switch p {
		case schema.ParamMortality:
			recs = append(recs, "建议复核死亡率/发生率假设，确保与最新经验生命表一致")
		case schema.ParamInterest:
			recs = append(recs, fmt.Sprintf("建议调整预定利率至%.2f%%以内，符合监管规定", pa.Benchmark*100))
		case schema.ParamExpense:
			recs = append(recs, fmt.Sprintf("建议将费用率控制在%.0f%%附近，避免偏离行业标准", pa.Benchmark*100))
		}
	}
	return recs
}

func normalize(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}

func note(p schema.PricingParam, value, benchmark float64, reasonable, capped bool) string {
	switch {
	case reasonable:
		return p.Label() + "符合行业标准"
	case capped && value > benchmark:
		return p.Label() + "超过监管上限"
	default:
		return p.Label() + "偏离行业标准"
	}
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
