package regulation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dshills/clauseaudit/internal/schema"
)

const lawDoc = `# 健康保险管理办法

## 第一章 总则

第一条 为了促进健康保险的发展,规范健康保险的经营行为,保护健康保险活动当事人的合法权益,制定本办法。

第二条 本办法所称健康保险。

## 第二章 经营管理

### 第十六条
健康保险产品应当根据被保险人的年龄、性别、健康状况等因素,合理确定保险费率和保险金额。
`

func TestParse_Articles(t *testing.T) {
	arts := Parse(lawDoc, "fallback")
	// 第二条 is too short and dropped.
	if len(arts) != 2 {
		t.Fatalf("articles = %d, want 2: %+v", len(arts), arts)
	}
	if arts[0].LawName != "健康保险管理办法" || arts[0].ArticleNumber != "第一条" {
		t.Errorf("arts[0] = %+v", arts[0])
	}
	if arts[0].Category != "第一章 总则" {
		t.Errorf("arts[0].Category = %q", arts[0].Category)
	}
	if arts[1].ArticleNumber != "第十六条" || arts[1].Category != "第二章 经营管理" {
		t.Errorf("arts[1] = %+v", arts[1])
	}
	if strings.Contains(arts[1].Content, "#") {
		t.Errorf("heading marks not stripped: %q", arts[1].Content)
	}
	if !strings.Contains(arts[1].Content, "合理确定保险费率") {
		t.Errorf("body lost: %q", arts[1].Content)
	}
}

func TestParse_FallbackName(t *testing.T) {
	arts := Parse("第一条 保险公司应当建立客户服务制度,明确服务标准和服务流程,并向社会公开。", "保险公司服务管理办法")
	if len(arts) != 1 || arts[0].LawName != "保险公司服务管理办法" || arts[0].Category != DefaultCategory {
		t.Errorf("unexpected articles: %+v", arts)
	}
}

func TestParseDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b.md"), []byte(lawDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600); err != nil {
		t.Fatal(err)
	}
	arts, err := ParseDir(dir)
	if err != nil {
		t.Fatalf("ParseDir: %v", err)
	}
	if len(arts) != 2 {
		t.Errorf("articles = %d, want 2", len(arts))
	}
}

func TestParseFile_Missing(t *testing.T) {
	if _, err := ParseFile("/nonexistent/law.md"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

// --- Chunking ---

func TestChunkArticle_Windows(t *testing.T) {
	a := Article{ID: "REG-1", LawName: "保险法", ArticleNumber: "第十七条", Content: strings.Repeat("条", 1000)}
	chunks := ChunkArticle(a, DefaultChunkSize, DefaultChunkOverlap)
	// starts at 0, 450, 900
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if chunks[1].Start != 450 || chunks[1].End != 950 {
		t.Errorf("chunks[1] = [%d,%d), want [450,950)", chunks[1].Start, chunks[1].End)
	}
	if chunks[2].End != 1000 || utf8.RuneCountInString(chunks[2].Text) != 100 {
		t.Errorf("last chunk = [%d,%d)", chunks[2].Start, chunks[2].End)
	}
	if chunks[2].ID != "REG-1_chunk_2" || chunks[2].RegulationID != "REG-1" {
		t.Errorf("chunk id = %q", chunks[2].ID)
	}
}

func TestChunkArticle_Short(t *testing.T) {
	chunks := ChunkArticle(Article{Content: "短文本内容"}, DefaultChunkSize, DefaultChunkOverlap)
	if len(chunks) != 1 || chunks[0].Text != "短文本内容" {
		t.Errorf("unexpected chunks: %+v", chunks)
	}
}

func TestChunkArticle_BadParams(t *testing.T) {
	chunks := ChunkArticle(Article{Content: strings.Repeat("a", 30)}, 10, 10)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for _, c := range chunks {
		if c.End-c.Start > 10 {
			t.Errorf("chunk wider than size: %+v", c)
		}
	}
}

// --- Prompt formatting ---

func TestFormatForPrompt(t *testing.T) {
	out := FormatForPrompt([]schema.Citation{{LawName: "保险法", ArticleNumber: "第十七条", Content: "格式条款应当说明"}})
	if !strings.Contains(out, `<regulation law="保险法" article="第十七条">`) {
		t.Errorf("missing open tag: %q", out)
	}
	if !strings.HasSuffix(out, "</regulation>\n") {
		t.Errorf("missing close tag: %q", out)
	}
	if FormatForPrompt(nil) != "" {
		t.Error("expected empty string for no citations")
	}
}
