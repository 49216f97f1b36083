package regsearch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/dshills/clauseaudit/internal/llm"
	"github.com/dshills/clauseaudit/internal/logging"
	"github.com/dshills/clauseaudit/internal/regulation"
	"github.com/dshills/clauseaudit/internal/schema"
)

// Mode selects which retrieval strategies run.
type Mode string

const (
	// ModeExact looks up law name / article number, plus keyword matches.
	ModeExact    Mode = "exact"
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// ParseMode validates a mode name; "" means hybrid.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeHybrid, nil
	case ModeExact, ModeKeyword, ModeSemantic, ModeHybrid:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid search mode %q (must be exact, keyword, semantic, or hybrid)", s)
}

// Fixed scores for non-semantic hits.
const (
	ExactScore   = 1.0
	KeywordScore = 0.8
)

// DefaultTopK is the number of citations returned per query.
const DefaultTopK = 5

// keywordLimit bounds the rows fetched per keyword query.
const keywordLimit = 20

// Searcher finds regulation citations for a query.
type Searcher interface {
	Search(ctx context.Context, query string, mode Mode) ([]schema.Citation, error)
}

// Store is the persistence the engine reads from.
type Store interface {
	SearchExact(ctx context.Context, query string, limit int) ([]regulation.Article, error)
	SearchKeyword(ctx context.Context, query string, limit int) ([]regulation.Article, error)
	EmbeddedChunks(ctx context.Context) ([]regulation.Chunk, error)
}

// Engine searches the regulation store. Semantic search needs an embedder;
// without one, semantic mode fails and hybrid mode skips it.
type Engine struct {
	store    Store
	embedder llm.Embedder
	topK     int
	log      *zap.SugaredLogger
}

// New returns an Engine. embedder may be nil.
func New(store Store, embedder llm.Embedder, topK int, log *zap.SugaredLogger) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Engine{store: store, embedder: embedder, topK: topK, log: log}
}

// ErrNoEmbedder is returned by semantic search when no embedder is set.
var ErrNoEmbedder = errors.New("semantic search requires an embedding provider")

// Search runs the strategies selected by mode, keeps the best score per
// article and returns the top results by score. A failing strategy is
// logged and skipped; the call fails only when every strategy it tried
// failed.
func (e *Engine) Search(ctx context.Context, query string, mode Mode) ([]schema.Citation, error) {
	if query == "" {
		return []schema.Citation{}, nil
	}
	type strategy struct {
		name string
		run  func(context.Context, string) ([]schema.Citation, error)
	}
	var plan []strategy
	switch mode {
	case ModeExact:
		plan = []strategy{{"exact", e.exact}, {"keyword", e.keyword}}
	case ModeKeyword:
		plan = []strategy{{"keyword", e.keyword}}
	case ModeSemantic:
		plan = []strategy{{"semantic", e.semantic}}
	case ModeHybrid, "":
		plan = []strategy{{"exact", e.exact}, {"keyword", e.keyword}}
		if e.embedder != nil {
			plan = append(plan, strategy{"semantic", e.semantic})
		}
	default:
		return nil, fmt.Errorf("invalid search mode %q", mode)
	}

	var (
		hits     []schema.Citation
		failures []error
	)
	for _, s := range plan {
		found, err := s.run(ctx, query)
		if err != nil {
			e.log.Warnw("regulation search strategy failed", "strategy", s.name, "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		hits = append(hits, found...)
	}
	if len(failures) == len(plan) {
		return nil, errors.Join(failures...)
	}
	return merge(hits, e.topK), nil
}

func (e *Engine) exact(ctx context.Context, q string) ([]schema.Citation, error) {
	arts, err := e.store.SearchExact(ctx, q, e.topK)
	if err != nil {
		return nil, err
	}
	return citations(arts, ExactScore), nil
}

func (e *Engine) keyword(ctx context.Context, q string) ([]schema.Citation, error) {
	arts, err := e.store.SearchKeyword(ctx, q, keywordLimit)
	if err != nil {
		return nil, err
	}
	return citations(arts, KeywordScore), nil
}

func (e *Engine) semantic(ctx context.Context, q string) ([]schema.Citation, error) {
	if e.embedder == nil {
		return nil, ErrNoEmbedder
	}
	vec, err := e.embedder.Embed(ctx, q)
	if err != nil {
		return nil, err
	}
	chunks, err := e.store.EmbeddedChunks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]schema.Citation, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, schema.Citation{
			LawName:       c.LawName,
			ArticleNumber: c.ArticleNumber,
			Content:       c.Text,
			Score:         Cosine(vec, c.Embedding),
		})
	}
	return out, nil
}

func citations(arts []regulation.Article, score float64) []schema.Citation {
	out := make([]schema.Citation, len(arts))
	for i, a := range arts {
		out[i] = a.Citation(score)
	}
	return out
}

// merge keeps the highest-scoring hit per (law, article), then sorts by
// score descending with law and article as tie-breakers and cuts to topK.
func merge(hits []schema.Citation, topK int) []schema.Citation {
	best := make(map[string]int)
	out := make([]schema.Citation, 0, len(hits))
	for _, h := range hits {
		key := h.LawName + "\x00" + h.ArticleNumber
		if i, ok := best[key]; ok {
			if h.Score > out[i].Score {
				out[i] = h
			}
			continue
		}
		best[key] = len(out)
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].LawName != out[j].LawName {
			return out[i].LawName < out[j].LawName
		}
		return out[i].ArticleNumber < out[j].ArticleNumber
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// Cosine returns the cosine similarity of a and b, or 0 when the lengths
// differ or either vector is zero.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
