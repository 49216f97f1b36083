package profile

import "github.com/dshills/clauseaudit/internal/schema"

func health() *Profile {
	return &Profile{
		Name:       "health",
		Markers:    []string{"健康险", "医疗", "重疾", "疾病"},
		Regulation: "《健康保险管理办法》",
		Benchmarks: map[schema.PricingParam]float64{
			schema.ParamMortality: 0.002,
			schema.ParamInterest:  0.035,
			schema.ParamExpense:   0.35,
		},
		Capped: []schema.PricingParam{schema.ParamInterest},
		FocusAreas: []string{
			"Waiting period length must be stated and reasonable",
			"Pre-existing condition exclusions must be specific",
			"Renewal conditions must be explicit",
		},
	}
}

func accident() *Profile {
	return &Profile{
		Name:       "accident",
		Markers:    []string{"意外"},
		Regulation: "《意外伤害保险管理办法》",
		Benchmarks: map[schema.PricingParam]float64{
			schema.ParamMortality: 0.001,
			schema.ParamInterest:  0.035,
			schema.ParamExpense:   0.25,
		},
		Capped: []schema.PricingParam{schema.ParamInterest},
		FocusAreas: []string{
			"Definition of accident must follow the industry standard wording",
			"Disability grading must reference the published table",
		},
	}
}
