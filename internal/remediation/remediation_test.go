package remediation

import (
	"testing"

	"github.com/dshills/clauseaudit/internal/schema"
)

func TestFor(t *testing.T) {
	cases := []struct {
		name string
		v    schema.Violation
		want string
	}{
		{"own remediation wins", schema.Violation{Description: "等待期过长", Remediation: "按规定修改"}, "按规定修改"},
		{"waiting period too long", schema.Violation{Description: "等待期过长"}, "将等待期调整为90天以内"},
		{"waiting period symptoms", schema.Violation{Description: "等待期内症状免责"}, "删除将等待期内症状或体征作为免责依据的表述"},
		{"waiting period default", schema.Violation{Description: "等待期设置"}, "合理设置等待期长度，确保符合监管规定"},
		{"exemption scattered", schema.Violation{Description: "免责条款不集中"}, "将免责条款集中在合同显著位置"},
		{"exemption unreasonable", schema.Violation{Description: "责任免除不合理"}, "删除不合理的免责条款，确保不违反保险法规定"},
		{"amount by category", schema.Violation{Description: "表述不规范", Category: "保险金额"}, "使用规范的保险金额表述，确保与保险法一致"},
		{"no strategy", schema.Violation{Description: "其他问题"}, Default},
		{"whitespace remediation ignored", schema.Violation{Description: "其他问题", Remediation: "  "}, Default},
	}
	for _, c := range cases {
		if got := For(c.v); got != c.want {
			t.Errorf("%s: For = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestStrategy_FirstMatchWins(t *testing.T) {
	// Mentions both waiting period and exemption clause; waiting period is registered first.
	v := schema.Violation{Description: "等待期相关免责条款不集中"}
	if got := Strategy(v); got != "waiting_period" {
		t.Errorf("Strategy = %q, want waiting_period", got)
	}
	if got := Strategy(schema.Violation{Description: "x"}); got != "" {
		t.Errorf("Strategy = %q, want empty", got)
	}
}
