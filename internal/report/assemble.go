package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dshills/clauseaudit/internal/pricing"
	"github.com/dshills/clauseaudit/internal/remediation"
	"github.com/dshills/clauseaudit/internal/schema"
)

// Row limits for the detail and suggestion tables.
const (
	HighDetailLimit   = 20
	MediumDetailLimit = 10
	P0Limit           = 10
	P1Limit           = 5
)

// Disclaimer closes every report.
const Disclaimer = "本报告由系统依据负面清单规则与定价基准自动生成,仅供产品审核参考,不构成法律意见。"

// Options carries the per-call values that must not be read from the clock
// inside Assemble.
type Options struct {
	ReportID    string
	GeneratedAt time.Time
}

type itemKind int

const (
	itemHeading1 itemKind = iota
	itemHeading2
	itemHeading3
	itemParagraph
	itemBold
	itemList
	itemTable
)

// item is the shared intermediate form. Content and Blocks are both
// rendered from the same []item so they cannot diverge.
type item struct {
	kind    itemKind
	text    string
	entries []string   // itemList
	rows    [][]string // itemTable, header first
}

// Assemble renders the evaluation context into markdown content and
// structured blocks. It reads nothing but its arguments, so repeated calls
// return identical output.
func Assemble(ctx *schema.EvaluationContext, opts Options) schema.Report {
	items := buildItems(ctx, opts)
	return schema.Report{
		ID:       opts.ReportID,
		Title:    Title(ctx.Product),
		Content:  renderContent(items),
		Blocks:   renderBlocks(items),
		Metadata: metadata(ctx, opts),
	}
}

// Title names the report after the product.
func Title(p schema.ProductInfo) string {
	if p.Name == "" {
		return "保险产品合规审核报告"
	}
	return p.Name + "合规审核报告"
}

func metadata(ctx *schema.EvaluationContext, opts Options) map[string]string {
	return map[string]string{
		"report_id":         opts.ReportID,
		"product_name":      ctx.Product.Name,
		"insurance_company": ctx.Product.Company,
		"product_type":      ctx.Product.Type,
		"generated_at":      opts.GeneratedAt.Format(time.RFC3339),
	}
}

func buildItems(ctx *schema.EvaluationContext, opts Options) []item {
	sev := ctx.Summary.Severity
	high, medium := byseverity(ctx.Violations)
	pricingIssues := unreasonable(ctx.Pricing)

	items := []item{{kind: itemHeading1, text: Title(ctx.Product)}}
	n := numberer{}

	// Conclusion: always.
	items = append(items, conclusionItems(n.next("审核结论"), ctx)...)

	// Details: regulation basis and severity breakdown when there are issues.
	if ctx.Summary.HasIssues {
		items = append(items,
			item{kind: itemHeading2, text: n.next("问题详情及依据")},
			item{kind: itemBold, text: "审核依据"},
			item{kind: itemList, entries: ctx.RegulationBasis},
			severityTable(ctx.Summary),
		)
		if sev.High > 0 {
			items = append(items, violationTable("表2-2:严重违规明细表", high, HighDetailLimit))
		}
		if sev.Medium > 0 {
			items = append(items, violationTable("表2-3:中等违规明细表", medium, MediumDetailLimit))
		}
		if len(pricingIssues) > 0 {
			items = append(items, pricingItems(ctx.Pricing, pricingIssues)...)
		}
	}

	// Suggestions mirror the high/medium detail tables.
	if sev.High > 0 || sev.Medium > 0 {
		items = append(items, item{kind: itemHeading2, text: n.next("修改建议")})
		if sev.High > 0 {
			items = append(items, suggestionTable("表3-1:P0级整改事项表(必须立即整改)", high, P0Limit))
		}
		if sev.Medium > 0 {
			items = append(items, suggestionTable("表3-2:P1级整改事项表(建议尽快整改)", medium, P1Limit))
		}
	}

	// Metadata and disclaimer: always.
	items = append(items,
		item{kind: itemHeading2, text: "附:报告信息"},
		item{kind: itemTable, text: "表4-1:报告信息", rows: [][]string{
			{"项目", "内容"},
			{"报告编号", opts.ReportID},
			{"产品名称", orUnknown(ctx.Product.Name)},
			{"保险公司", orUnknown(ctx.Product.Company)},
			{"产品类型", orUnknown(ctx.Product.Type)},
			{"生成时间", opts.GeneratedAt.Format("2006-01-02 15:04:05")},
		}},
		item{kind: itemParagraph, text: Disclaimer},
	)
	return items
}

func conclusionItems(heading string, ctx *schema.EvaluationContext) []item {
	s := ctx.Summary
	opinion, explanation := Conclusion(ctx.Score, s)

	pricingResult, pricingNote := "未评估", "未提供定价参数"
	if len(ctx.Pricing) > 0 {
		pricingResult = "合理"
		if s.PricingIssues > 0 {
			pricingResult = "需关注"
		}
		pricingNote = fmt.Sprintf("%d项定价参数需关注", s.PricingIssues)
	}

	return []item{
		{kind: itemHeading2, text: heading},
		{kind: itemBold, text: "审核意见:" + opinion},
		{kind: itemParagraph, text: "说明:" + explanation},
		{kind: itemTable, text: "表1-1:关键指标汇总表", rows: [][]string{
			{"序号", "指标项", "结果", "说明"},
			{"1", "综合评分", fmt.Sprintf("%d分", ctx.Score), ScoreDescription(ctx.Score)},
			{"2", "合规评级", ctx.Grade.Label(), "基于违规数量和严重程度评定"},
			{"3", "违规总数", fmt.Sprintf("%d项", s.TotalViolations),
				fmt.Sprintf("严重%d项,中等%d项,轻微%d项", s.Severity.High, s.Severity.Medium, s.Severity.Low)},
			{"4", "定价评估", pricingResult, pricingNote},
		}},
	}
}

func severityTable(s schema.Summary) item {
	total := s.TotalViolations
	pct := func(n int) string {
		if total == 0 {
			return "0%"
		}
		return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
	}
	return item{kind: itemTable, text: "表2-1:违规级别统计表", rows: [][]string{
		{"序号", "违规级别", "数量", "占比"},
		{"1", schema.SeverityHigh.Label(), fmt.Sprintf("%d项", s.Severity.High), pct(s.Severity.High)},
		{"2", schema.SeverityMedium.Label(), fmt.Sprintf("%d项", s.Severity.Medium), pct(s.Severity.Medium)},
		{"3", schema.SeverityLow.Label(), fmt.Sprintf("%d项", s.Severity.Low), pct(s.Severity.Low)},
		{"合计", "总计", fmt.Sprintf("%d项", total), "100%"},
	}}
}

func violationTable(caption string, vs []schema.Violation, limit int) item {
	rows := [][]string{{"序号", "条款内容", "问题说明", "法规依据"}}
	for i, v := range head(vs, limit) {
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			clauseCell(v, 80),
			cell(orUnknown(v.Description)),
			cell(violationRegulation(v)),
		})
	}
	return item{kind: itemTable, text: caption, rows: rows}
}

func suggestionTable(caption string, vs []schema.Violation, limit int) item {
	rows := [][]string{{"序号", "条款原文", "修改建议"}}
	for i, v := range head(vs, limit) {
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			cell(clip(v.ClauseText, 40)),
			cell(remediation.For(v)),
		})
	}
	return item{kind: itemTable, text: caption, rows: rows}
}

func pricingItems(a schema.PricingAssessment, issues []schema.PricingParam) []item {
	rows := [][]string{{"序号", "定价参数", "实际值", "基准值", "偏差", "说明"}}
	for i, p := range issues {
		pa := a[p]
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			p.Label(),
			formatRate(pa.Value),
			formatRate(pa.Benchmark),
			fmt.Sprintf("%.1f%%", pa.Deviation*100),
			pa.Note,
		})
	}
	items := []item{{kind: itemTable, text: "表2-4:定价问题汇总表", rows: rows}}
	if recs := pricing.Recommendations(a); len(recs) > 0 {
		items = append(items, item{kind: itemBold, text: "定价调整建议"}, item{kind: itemList, entries: recs})
	}
	return items
}

func byseverity(vs []schema.Violation) (high, medium []schema.Violation) {
	for _, v := range vs {
		switch v.Severity {
		case schema.SeverityHigh:
			high = append(high, v)
		case schema.SeverityMedium:
			medium = append(medium, v)
		}
	}
	return high, medium
}

func unreasonable(a schema.PricingAssessment) []schema.PricingParam {
	var out []schema.PricingParam
	for _, p := range schema.PricingParams {
		if pa, ok := a[p]; ok && !pa.Reasonable {
			out = append(out, p)
		}
	}
	return out
}

func head(vs []schema.Violation, n int) []schema.Violation {
	if len(vs) > n {
		return vs[:n]
	}
	return vs
}

// clauseCell prefixes the article reference unless it is a synthetic
// paragraph label.
func clauseCell(v schema.Violation, n int) string {
	text := clip(v.ClauseText, n)
	if v.ClauseReference != "" && !strings.HasPrefix(v.ClauseReference, "段落") {
		text = v.ClauseReference + ":" + text
	}
	return cell(text)
}

// clip cuts s to n runes, marking the cut with "...". Text already ending
// in the preview marker is trimmed of it first.
func clip(s string, n int) string {
	s = strings.TrimSuffix(s, "...")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// cell flattens whitespace so a value fits in one table row.
func cell(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func formatRate(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", f*100), "0"), ".") + "%"
}

func orUnknown(s string) string {
	if s == "" {
		return "未知"
	}
	return s
}

// numberer produces 一、二、三 section headings in inclusion order.
type numberer struct{ n int }

var chineseNumerals = []string{"一", "二", "三", "四", "五", "六", "七", "八", "九", "十"}

func (nb *numberer) next(title string) string {
	idx := nb.n
	nb.n++
	if idx < len(chineseNumerals) {
		return chineseNumerals[idx] + "、" + title
	}
	return fmt.Sprintf("%d、%s", idx+1, title)
}
