package report

import (
	"fmt"

	"github.com/dshills/clauseaudit/internal/profile"
	"github.com/dshills/clauseaudit/internal/schema"
)

// BaseRegulation is cited by every report.
const BaseRegulation = "《中华人民共和国保险法》"

// RegulationBasis lists the regulations a report relies on: the base law,
// the first regulation matching the product type (or the general
// fallback), then every citation carried by violations. Duplicates are
// dropped keeping first-seen order.
func RegulationBasis(productType string, violations []schema.Violation) []string {
	basis := []string{BaseRegulation, profile.Detect(productType).Regulation}
	for _, v := range violations {
		for _, c := range v.Regulations {
			basis = append(basis, c.String())
		}
	}
	return dedupe(basis)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

var categoryRegulations = map[string]string{
	"产品条款表述":      "《保险法》第十七条:订立保险合同,采用保险人提供的格式条款的,保险人向投保人提供的投保单应当附格式条款,保险人应当向投保人说明合同的内容。",
	"产品责任设计":      "《人身保险公司保险条款和保险费率管理办法》第六条:保险条款应当符合下列要求:(一)结构清晰、文字准确、表述严谨、通俗易懂;(二)要素完整、内容完备",
	"产品费率厘定及精算假设": "《人身保险公司保险条款和保险费率管理办法》第三十六条:保险公司应当按照审慎原则拟定保险费率,不得因费率厘定不真实、不合理而损害投保人、被保险人和受益人的合法权益。",
	"产品报送管理":      "《人身保险公司保险条款和保险费率管理办法》第十二条:保险公司报送审批或者备案的保险条款和保险费率,应当符合下列条件:(一)结构清晰、文字准确、表述严谨、通俗易懂",
	"产品形态设计":      "《健康保险管理办法》第十六条:健康保险产品应当根据被保险人的年龄、性别、健康状况等因素,合理确定保险费率和保险金额。",
	"销售管理":        "《保险销售行为监管办法》第十三条:保险销售人员应当向投保人说明保险合同的内容,特别是对投保人、被保险人、受益人的权利和义务、免除保险人责任的条款以及其他重要条款。",
	"理赔管理":        "《保险法》第二十二条:保险事故发生后,按照保险合同请求保险人赔偿或者给付保险金时,投保人、被保险人或者受益人应当向保险人提供其所能提供的与确认保险事故的性质、原因、损失程度等有关的证明和资料。",
	"客户服务":        "《保险公司服务管理办法》第八条:保险公司应当建立客户服务制度,明确服务标准和服务流程。",
}

// DefaultCategoryRegulation is used for categories without a mapping.
const DefaultCategoryRegulation = "《保险法》及相关监管规定"

// CategoryRegulation returns the regulation article for a rule category.
func CategoryRegulation(category string) string {
	if r, ok := categoryRegulations[category]; ok {
		return r
	}
	return DefaultCategoryRegulation
}

// violationRegulation prefers a citation found for the violation and falls
// back to the category mapping.
func violationRegulation(v schema.Violation) string {
	if len(v.Regulations) > 0 {
		return v.Regulations[0].String()
	}
	return CategoryRegulation(v.Category)
}

// Opinions, in decision order.
const (
	OpinionRejectHigh       = "不推荐上会"
	OpinionApprove          = "推荐通过"
	OpinionConditional      = "条件推荐"
	OpinionSupplement       = "需补充材料"
	OpinionRejectCompliance = "不予推荐"
)

// Conclusion derives the audit opinion and its explanation. The checks run
// top to bottom and the first match wins, so any high-severity violation
// rejects regardless of score.
func Conclusion(score int, s schema.Summary) (opinion, explanation string) {
	switch {
	case s.Severity.High > 0:
		return OpinionRejectHigh, fmt.Sprintf("产品存在%d项严重违规,触及监管红线,需完成整改后重新审核", s.Severity.High)
	case score >= 90:
		if !s.HasIssues {
			return OpinionApprove, "产品符合所有监管要求,未发现违规问题"
		}
		return OpinionApprove, fmt.Sprintf("产品整体符合监管要求,仅存在%d项轻微问题", s.TotalViolations+s.PricingIssues)
	case score >= 75:
		return OpinionConditional, fmt.Sprintf("产品整体符合要求,存在%d项中等问题,建议完成修改后提交审核", s.Severity.Medium)
	case score >= 60:
		return OpinionSupplement, fmt.Sprintf("产品存在%d项问题,建议补充说明材料后复审", s.TotalViolations+s.PricingIssues)
	}
	return OpinionRejectCompliance, "产品合规性不足,不建议提交审核"
}

// ScoreDescription is the one-line reading of a score in the metrics table.
func ScoreDescription(score int) string {
	switch {
	case score >= 90:
		return "产品优秀,建议快速通过"
	case score >= 80:
		return "产品良好,可正常上会"
	case score >= 70:
		return "产品合格,建议完成修改后上会"
	case score >= 60:
		return "产品基本合格,需补充说明材料"
	}
	return "产品不合格,不建议提交审核"
}
