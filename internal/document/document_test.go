package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDoc = `# 安心重疾险条款

产品名称:安心重大疾病保险
保险公司:示例人寿保险股份有限公司
产品类型:健康险
保险期间:终身
投保年龄:18周岁至60周岁

第一条 保险合同构成
本合同由保险条款、投保单、保险单以及其他书面协议构成。

第二条 责任免除
因下列情形之一导致被保险人身故的,保险公司不承担任何责任。

第三条 短

第四条 预定利率
本产品的预定利率为3.5%,费用率:15%。
`

func writeTempDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "product.md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_HashStable(t *testing.T) {
	path := writeTempDoc(t, "hello world\n")

	d1, err := Load(path)
	if err != nil {
		t.Fatalf("Load (first): %v", err)
	}
	d2, err := Load(path)
	if err != nil {
		t.Fatalf("Load (second): %v", err)
	}
	if d1.Hash != d2.Hash {
		t.Errorf("hash not stable: %q vs %q", d1.Hash, d2.Hash)
	}
	if !strings.HasPrefix(d1.Hash, "sha256:") {
		t.Errorf("hash missing sha256 prefix: %q", d1.Hash)
	}
	if d1.Path != path {
		t.Errorf("Path = %q, want %q", d1.Path, path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/product.md"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestFromText_LineCount(t *testing.T) {
	cases := map[string]int{"": 0, "a": 1, "a\nb\n": 2, "a\nb\nc": 3}
	for in, want := range cases {
		if got := FromText(in).LineCount; got != want {
			t.Errorf("LineCount(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestStructure(t *testing.T) {
	s := FromText("# 标题\n目录\n## 第一章\n正文").Structure()
	if len(s.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(s.Sections))
	}
	if s.Sections[1].Level != 2 || s.Sections[1].Title != "第一章" || s.Sections[1].Line != 3 {
		t.Errorf("unexpected section: %+v", s.Sections[1])
	}
	if !s.HasTableOfContents {
		t.Error("expected table of contents to be detected")
	}
}

// --- Clause extraction ---

func TestExtractClauses_Articles(t *testing.T) {
	clauses := ExtractClauses(sampleDoc)
	// 第三条 is too short and dropped.
	if len(clauses) != 3 {
		t.Fatalf("clauses = %d, want 3: %+v", len(clauses), clauses)
	}
	wantRefs := []string{"第一条", "第二条", "第四条"}
	for i, c := range clauses {
		if c.Index != i {
			t.Errorf("clauses[%d].Index = %d", i, c.Index)
		}
		if c.Reference != wantRefs[i] {
			t.Errorf("clauses[%d].Reference = %q, want %q", i, c.Reference, wantRefs[i])
		}
	}
	if !strings.Contains(clauses[1].Text, "不承担任何责任") {
		t.Errorf("second clause lost its body: %q", clauses[1].Text)
	}
}

func TestExtractClauses_ParagraphFallback(t *testing.T) {
	content := "短段落\n\n这是一个足够长的段落,用于说明保险责任的具体范围和条件。\n\n另一个足够长的段落,描述了被保险人的权利和义务内容。"
	clauses := ExtractClauses(content)
	if len(clauses) != 2 {
		t.Fatalf("clauses = %d, want 2", len(clauses))
	}
	if clauses[0].Reference != "段落2" || clauses[1].Reference != "段落3" {
		t.Errorf("references = %q, %q", clauses[0].Reference, clauses[1].Reference)
	}
}

func TestExtractClauses_Empty(t *testing.T) {
	clauses := ExtractClauses("")
	if clauses == nil || len(clauses) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", clauses)
	}
}

// --- Product info and pricing ---

func TestExtractProductInfo(t *testing.T) {
	info := ExtractProductInfo(sampleDoc)
	if info.Name != "安心重疾险" {
		t.Errorf("Name = %q", info.Name)
	}
	if info.Company != "示例人寿保险股份有限公司" {
		t.Errorf("Company = %q", info.Company)
	}
	if info.Type != "健康险" {
		t.Errorf("Type = %q", info.Type)
	}
	if info.InsurancePeriod != "终身" {
		t.Errorf("InsurancePeriod = %q", info.InsurancePeriod)
	}
	if info.AgeRange != "18周岁至60周岁" {
		t.Errorf("AgeRange = %q", info.AgeRange)
	}
}

func TestExtractPricingParams(t *testing.T) {
	params := ExtractPricingParams(sampleDoc)
	if params["interest"] != 3.5 {
		t.Errorf("interest = %v, want 3.5", params["interest"])
	}
	if params["expense"] != 15 {
		t.Errorf("expense = %v, want 15", params["expense"])
	}
	if _, ok := params["mortality"]; ok {
		t.Error("mortality should be omitted when absent")
	}
}

func TestHasCashValueAndDividend(t *testing.T) {
	if !HasCashValue("退保时返还现金价值") || HasCashValue("无") {
		t.Error("HasCashValue mismatch")
	}
	if !HasDividend("本产品为分红型") || HasDividend("无") {
		t.Error("HasDividend mismatch")
	}
}
