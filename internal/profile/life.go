package profile

import "github.com/dshills/clauseaudit/internal/schema"

func lifeBenchmarks() map[schema.PricingParam]float64 {
	return map[schema.PricingParam]float64{
		schema.ParamMortality: 0.0005,
		schema.ParamInterest:  0.035,
		schema.ParamExpense:   0.12,
	}
}

func life() *Profile {
	return &Profile{
		Name:       "life",
		Markers:    []string{"寿险"},
		Regulation: "《人身保险公司保险条款和保险费率管理办法》",
		Benchmarks: lifeBenchmarks(),
		Capped:     []schema.PricingParam{schema.ParamInterest},
		FocusAreas: []string{
			"Cash value and surrender terms must be disclosed",
			"Guaranteed interest must not exceed the regulatory cap",
			"Exclusions must be prominent and specific",
		},
	}
}

func universal() *Profile {
	return &Profile{
		Name:       "universal",
		Markers:    []string{"万能"},
		Regulation: "《万能型人身保险管理办法》",
		Benchmarks: lifeBenchmarks(),
		Capped:     []schema.PricingParam{schema.ParamInterest},
		FocusAreas: []string{
			"Account value charges must be itemised",
			"Guaranteed crediting rate must be stated",
		},
	}
}

func participating() *Profile {
	return &Profile{
		Name:       "participating",
		Markers:    []string{"分红"},
		Regulation: "《分红型人身保险管理办法》",
		Benchmarks: lifeBenchmarks(),
		Capped:     []schema.PricingParam{schema.ParamInterest},
		FocusAreas: []string{
			"Dividends must be described as non-guaranteed",
			"Dividend distribution method must be stated",
		},
	}
}
