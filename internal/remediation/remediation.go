package remediation

import (
	"strings"

	"github.com/dshills/clauseaudit/internal/schema"
)

// Default is returned when no strategy handles a violation.
const Default = "请根据监管要求完善相关条款"

// advice maps description keywords to a remediation. The first entry with
// any keyword present in the description wins.
type advice struct {
	keywords []string
	text     string
}

// strategy is a data-driven remediation rule for one problem area.
type strategy struct {
	name     string
	handles  func(v schema.Violation) bool
	table    []advice
	fallback string
}

func (s strategy) remediate(v schema.Violation) string {
	for _, a := range s.table {
		if containsAny(v.Description, a.keywords...) {
			return a.text
		}
	}
	return s.fallback
}

// registry is consulted in order; the first strategy that handles a
// violation decides.
var registry = []strategy{
	{
		name: "waiting_period",
		handles: func(v schema.Violation) bool {
			return strings.Contains(v.Description, "等待期")
		},
		table: []advice{
			{[]string{"过长", "超过"}, "将等待期调整为90天以内"},
			{[]string{"症状", "体征"}, "删除将等待期内症状或体征作为免责依据的表述"},
			{[]string{"突出"}, "在条款中以加粗或红色字体突出说明等待期"},
		},
		fallback: "合理设置等待期长度，确保符合监管规定",
	},
	{
		name: "exemption_clause",
		handles: func(v schema.Violation) bool {
			return containsAny(v.Description, "免责条款", "责任免除")
		},
		table: []advice{
			{[]string{"不集中"}, "将免责条款集中在合同显著位置"},
			{[]string{"不清晰", "表述不清"}, "使用清晰明确的语言表述免责情形"},
			{[]string{"加粗", "标红", "突出"}, "使用加粗或红色字体突出显示免责条款"},
			{[]string{"不合理"}, "删除不合理的免责条款，确保不违反保险法规定"},
		},
		fallback: "完善免责条款的表述和展示方式",
	},
	{
		name: "insurance_amount",
		handles: func(v schema.Violation) bool {
			return strings.Contains(v.Description, "保险金额") || strings.Contains(v.Category, "保险金额")
		},
		table: []advice{
			{[]string{"不规范", "不一致"}, "使用规范的保险金额表述，确保与保险法一致"},
		},
		fallback: "明确保险金额的确定方式和计算标准",
	},
}

// For returns the remediation for v. The rule's own remediation text takes
// priority over the registry.
func For(v schema.Violation) string {
	if strings.TrimSpace(v.Remediation) != "" {
		return v.Remediation
	}
	if s, ok := find(v); ok {
		return s.remediate(v)
	}
	return Default
}

// Strategy names the registry entry that handles v, or "" when none does.
func Strategy(v schema.Violation) string {
	if s, ok := find(v); ok {
		return s.name
	}
	return ""
}

func find(v schema.Violation) (strategy, bool) {
	for _, s := range registry {
		if s.handles(v) {
			return s, true
		}
	}
	return strategy{}, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
