package document

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dshills/clauseaudit/internal/schema"
)

// Minimum lengths, in runes, for text to count as a clause.
const (
	minArticleLength   = 10
	minParagraphLength = 20
)

var articleStart = regexp.MustCompile(`^(第[一二三四五六七八九十百千万\d]+[条章节])(.+)`)

// ExtractClauses splits content into clauses at article headings such as
// "第五条". A clause runs until the next heading and keeps the heading as
// its reference. Text before the first heading is ignored. When the
// document has no article headings, blank-line separated paragraphs are
// used instead and referenced as "段落N".
func ExtractClauses(content string) []schema.Clause {
	var clauses []schema.Clause
	add := func(text, ref string, min int) {
		text = strings.TrimSpace(text)
		if utf8.RuneCountInString(text) > min {
			clauses = append(clauses, schema.Clause{Index: len(clauses), Text: text, Reference: ref})
		}
	}

	var current []string
	ref := ""
	for _, line := range strings.Split(content, "\n") {
		if m := articleStart.FindStringSubmatch(line); m != nil {
			if current != nil {
				add(strings.Join(current, "\n"), ref, minArticleLength)
			}
			ref = m[1]
			current = []string{line}
			continue
		}
		if current != nil {
			current = append(current, line)
		}
	}
	if current != nil {
		add(strings.Join(current, "\n"), ref, minArticleLength)
	}

	if len(clauses) == 0 {
		for i, para := range strings.Split(content, "\n\n") {
			add(para, fmt.Sprintf("段落%d", i+1), minParagraphLength)
		}
	}
	if clauses == nil {
		clauses = []schema.Clause{}
	}
	return clauses
}

// Each field tries its patterns in order; the first match wins.
var productPatterns = []struct {
	field    string
	patterns []*regexp.Regexp
}{
	{"product_name", compile(
		`(?m)^#\s*(.+?)(?:\s|条款|保险|产品|\n)`,
		`产品名称[：:]\s*(.+?)(?:\n|$)`,
		`保险产品名称[：:]\s*(.+?)(?:\n|$)`,
		`第[一二三四五六七八九十\d]+\s*条\s*产品名称[：:]\s*(.+?)(?:\n|$)`,
		`(?m)^(.+?)保险条款`,
	)},
	{"insurance_company", compile(
		`保险公司[：:]\s*(.+?)(?:\n|$)`,
		`承保公司[：:]\s*(.+?)(?:\n|$)`,
		`(?m)^(.+?人寿保险股份有限公司)`,
		`(?m)^(.+?保险有限公司)`,
	)},
	{"product_type", compile(
		`产品类型[：:]\s*(.+?)(?:\n|$)`,
		`险种[：:]\s*(.+?)(?:\n|$)`,
	)},
	{"insurance_period", compile(
		`保险期间[：:]\s*(.+?)(?:\n|$)`,
		`保险期限[：:]\s*(.+?)(?:\n|$)`,
		`第[一二三四五六七八九十\d]+\s*条\s*保险期间\s*\n(.+?)(?:\n|$)`,
	)},
	{"payment_method", compile(
		`缴费方式[：:]\s*(.+?)(?:\n|$)`,
		`交费方式[：:]\s*(.+?)(?:\n|$)`,
	)},
	{"age_range", compile(
		`投保年龄[：:]\s*(.+?)(?:\n|$)`,
		`年龄限制[：:]\s*(.+?)(?:\n|$)`,
		`凡出生满(.+?)周岁`,
		`(\d+周岁至\d+周岁)`,
	)},
	{"occupation_class", compile(
		`职业类别[：:]\s*(.+?)(?:\n|$)`,
		`职业等级[：:]\s*(.+?)(?:\n|$)`,
	)},
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// ExtractProductInfo pulls product metadata out of labelled lines such as
// "产品名称:" and "保险期间:". Fields without a match stay empty.
func ExtractProductInfo(content string) schema.ProductInfo {
	found := make(map[string]string, len(productPatterns))
	for _, f := range productPatterns {
		for _, re := range f.patterns {
			if m := re.FindStringSubmatch(content); m != nil {
				found[f.field] = strings.TrimSpace(m[1])
				break
			}
		}
	}
	return schema.ProductInfo{
		Name:            found["product_name"],
		Company:         found["insurance_company"],
		Type:            found["product_type"],
		InsurancePeriod: found["insurance_period"],
		PaymentMethod:   found["payment_method"],
		AgeRange:        found["age_range"],
		OccupationClass: found["occupation_class"],
	}
}

var pricingPatterns = []struct {
	param    schema.PricingParam
	patterns []*regexp.Regexp
}{
	{schema.ParamMortality, compile(
		`死亡率[：:]\s*([\d.]+)`,
		`发生率[：:]\s*([\d.]+)`,
	)},
	{schema.ParamInterest, compile(
		`预定利率[：:]\s*([\d.]+)`,
		`预定利率为([\d.]+)`,
		`年利率[：:]\s*([\d.]+)`,
		`利率[：:]\s*([\d.]+)`,
	)},
	{schema.ParamExpense, compile(
		`附加费用率[：:]\s*([\d.]+)`,
		`费用率[：:]\s*([\d.]+)`,
		`费用率为([\d.]+)`,
		`手续费[：:]\s*([\d.]+)`,
	)},
}

// ExtractPricingParams finds stated pricing parameters. Values are returned
// as written ("3.5" for 3.5%); the pricing evaluator normalises percents.
// Parameters that are absent or unparsable are omitted.
func ExtractPricingParams(content string) map[string]float64 {
	out := make(map[string]float64)
	for _, p := range pricingPatterns {
		for _, re := range p.patterns {
			m := re.FindStringSubmatch(content)
			if m == nil {
				continue
			}
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			out[string(p.param)] = v
			break
		}
	}
	return out
}

// HasCashValue reports whether the document mentions surrender values.
func HasCashValue(content string) bool {
	return strings.Contains(content, "现金价值") || strings.Contains(content, "退保金")
}

// HasDividend reports whether the document mentions dividends.
func HasDividend(content string) bool {
	return strings.Contains(content, "分红") || strings.Contains(content, "红利")
}
