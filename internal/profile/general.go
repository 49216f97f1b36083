package profile

import "github.com/dshills/clauseaudit/internal/schema"

func general() *Profile {
	return &Profile{
		Name:       "general",
		Regulation: "《保险公司管理规定》",
		Benchmarks: map[schema.PricingParam]float64{
			schema.ParamMortality: 0.001,
			schema.ParamInterest:  0.030,
			schema.ParamExpense:   0.20,
		},
	}
}
