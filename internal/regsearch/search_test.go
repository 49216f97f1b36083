package regsearch

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/dshills/clauseaudit/internal/regulation"
)

type fakeStore struct {
	exact   []regulation.Article
	keyword []regulation.Article
	chunks  []regulation.Chunk
	err     error
}

func (f *fakeStore) SearchExact(ctx context.Context, q string, limit int) ([]regulation.Article, error) {
	return f.exact, f.err
}

func (f *fakeStore) SearchKeyword(ctx context.Context, q string, limit int) ([]regulation.Article, error) {
	return f.keyword, f.err
}

func (f *fakeStore) EmbeddedChunks(ctx context.Context) ([]regulation.Chunk, error) {
	return f.chunks, f.err
}

type fakeEmbedder struct {
	vec []float64
	err error
}

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return f.vec, f.err
}

var (
	art17 = regulation.Article{LawName: "保险法", ArticleNumber: "第十七条", Content: "格式条款应当说明"}
	art16 = regulation.Article{LawName: "健康保险管理办法", ArticleNumber: "第十六条", Content: "合理确定保险费率"}
	art22 = regulation.Article{LawName: "保险法", ArticleNumber: "第二十二条", Content: "提供证明和资料"}
)

func TestSearch_KeywordScore(t *testing.T) {
	e := New(&fakeStore{keyword: []regulation.Article{art17}}, nil, 5, nil)
	got, err := e.Search(context.Background(), "格式条款", ModeKeyword)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Score != KeywordScore {
		t.Errorf("Search = %+v", got)
	}
}

func TestSearch_ExactOutranksKeyword(t *testing.T) {
	st := &fakeStore{exact: []regulation.Article{art16}, keyword: []regulation.Article{art17, art16}}
	got, err := New(st, nil, 5, nil).Search(context.Background(), "q", ModeExact)
	if err != nil {
		t.Fatal(err)
	}
	// art16 appears twice and keeps its exact score.
	if len(got) != 2 || got[0].ArticleNumber != "第十六条" || got[0].Score != ExactScore {
		t.Errorf("Search = %+v", got)
	}
}

func TestSearch_HybridMergesSemantic(t *testing.T) {
	st := &fakeStore{
		keyword: []regulation.Article{art17},
		chunks: []regulation.Chunk{
			{LawName: art22.LawName, ArticleNumber: art22.ArticleNumber, Text: "a", Embedding: []float64{1, 0}},
			{LawName: art22.LawName, ArticleNumber: art22.ArticleNumber, Text: "b", Embedding: []float64{0.6, 0.8}},
			{LawName: art17.LawName, ArticleNumber: art17.ArticleNumber, Text: "c", Embedding: []float64{0, 1}},
		},
	}
	got, err := New(st, fakeEmbedder{vec: []float64{1, 0}}, 5, nil).Search(context.Background(), "q", ModeHybrid)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Search = %+v", got)
	}
	if got[0].ArticleNumber != "第二十二条" || got[0].Score != 1 || got[0].Content != "a" {
		t.Errorf("best semantic hit should lead: %+v", got[0])
	}
	if got[1].ArticleNumber != "第十七条" || got[1].Score != KeywordScore {
		t.Errorf("keyword hit should keep its better score: %+v", got[1])
	}
}

func TestSearch_TopK(t *testing.T) {
	st := &fakeStore{keyword: []regulation.Article{art17, art16, art22}}
	got, err := New(st, nil, 2, nil).Search(context.Background(), "q", ModeKeyword)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
	// Equal scores tie-break on law then article.
	if got[0].LawName != "保险法" || got[1].LawName != "保险法" {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestSearch_SemanticWithoutEmbedder(t *testing.T) {
	_, err := New(&fakeStore{}, nil, 5, nil).Search(context.Background(), "q", ModeSemantic)
	if !errors.Is(err, ErrNoEmbedder) {
		t.Errorf("expected ErrNoEmbedder, got %v", err)
	}
}

func TestSearch_PartialFailureDegrades(t *testing.T) {
	st := &fakeStore{keyword: []regulation.Article{art17}}
	e := New(st, fakeEmbedder{err: errors.New("connection refused")}, 5, nil)
	got, err := e.Search(context.Background(), "q", ModeHybrid)
	if err != nil {
		t.Fatalf("hybrid should survive a semantic failure: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Search = %+v", got)
	}
}

func TestSearch_AllStrategiesFail(t *testing.T) {
	st := &fakeStore{err: errors.New("database is locked")}
	if _, err := New(st, nil, 5, nil).Search(context.Background(), "q", ModeExact); err == nil {
		t.Error("expected error when every strategy fails")
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	got, err := New(&fakeStore{err: errors.New("unused")}, nil, 5, nil).Search(context.Background(), "", ModeHybrid)
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("empty query should give empty result, got %v, %v", got, err)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeHybrid {
		t.Errorf("ParseMode(\"\") = %q, %v", m, err)
	}
	if _, err := ParseMode("fuzzy"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("Cosine identical = %v", got)
	}
	if got := Cosine([]float64{1, 0}, []float64{0, 1}); got != 0 {
		t.Errorf("Cosine orthogonal = %v", got)
	}
	if got := Cosine([]float64{1}, []float64{1, 2}); got != 0 {
		t.Errorf("Cosine length mismatch = %v", got)
	}
	if got := Cosine([]float64{0, 0}, []float64{1, 2}); got != 0 {
		t.Errorf("Cosine zero vector = %v", got)
	}
}
