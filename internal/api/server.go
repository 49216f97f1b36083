package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/dshills/clauseaudit/internal/logging"
	"github.com/dshills/clauseaudit/internal/regsearch"
	"github.com/dshills/clauseaudit/internal/review"
	"github.com/dshills/clauseaudit/internal/schema"
	"github.com/dshills/clauseaudit/internal/store"
)

// Store is the minimal contract the API needs.
type Store interface {
	GetRules(ctx context.Context) ([]schema.Rule, error)
	ListAudits(ctx context.Context, limit, offset int) ([]store.AuditRow, error)
	LoadAudit(ctx context.Context, id string) (*schema.AuditResult, error)
}

// Runner runs one audit.
type Runner interface {
	Run(ctx context.Context, req schema.AuditRequest) (*schema.AuditResult, error)
}

// defaultMaxBody bounds POST bodies; clause text is small.
const defaultMaxBody = 8 << 20

type Server struct {
	Auditor Runner
	DB      Store
	Search  regsearch.Searcher // nil disables /regulations/search
	Log     *zap.SugaredLogger

	// APIKeyHash is a bcrypt hash of the bearer key; empty disables auth.
	APIKeyHash       string
	DefaultAuditType schema.AuditType
	MaxBodyBytes     int64
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	// Health
	r.Get("/api/v1/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.withAPIKey)

		// Audits
		r.Post("/api/v1/audits", s.handleCreateAudit)
		r.Get("/api/v1/audits", s.handleListAudits)
		r.Get("/api/v1/audits/{id}", s.handleGetAudit)

		// Rules and regulations
		r.Get("/api/v1/rules", s.handleRules)
		r.Get("/api/v1/regulations/search", s.handleSearch)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.err(w, http.StatusNotFound, "not found")
	})
	return r
}

func (s *Server) logger() *zap.SugaredLogger {
	if s.Log == nil {
		return logging.Nop()
	}
	return s.Log
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger().Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": time.Now().UTC(),
	})
}

// POST /api/v1/audits
func (s *Server) handleCreateAudit(w http.ResponseWriter, r *http.Request) {
	limit := s.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBody
	}
	var req schema.AuditRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.fail(w, schema.Invalid("body", "invalid JSON: %v", err))
		return
	}
	// The server never reads paths chosen by a client.
	if req.DocumentPath != "" {
		s.fail(w, schema.Invalid("document_path", "not accepted over HTTP; send document_text or clauses"))
		return
	}
	if req.AuditType == "" {
		req.AuditType = s.DefaultAuditType
		if req.AuditType == "" {
			req.AuditType = schema.AuditFull
		}
	}

	res, err := s.Auditor.Run(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GET /api/v1/audits
func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := clamp(parseInt(q.Get("limit"), 20), 1, 200)
	offset := max(parseInt(q.Get("offset"), 0), 0)

	rows, err := s.DB.ListAudits(r.Context(), limit, offset)
	if err != nil {
		s.fail(w, err)
		return
	}
	if rows == nil {
		rows = []store.AuditRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": rows, "limit": limit, "offset": offset,
	})
}

// GET /api/v1/audits/{id}?min_severity=
// min_severity trims the returned violation list; score and summary are
// left as audited.
func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	var minSev schema.Severity
	if q := r.URL.Query().Get("min_severity"); q != "" {
		sev, err := schema.ParseSeverity(q)
		if err != nil {
			s.err(w, http.StatusBadRequest, err.Error())
			return
		}
		minSev = sev
	}
	res, err := s.DB.LoadAudit(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		s.err(w, http.StatusNotFound, "audit not found")
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	if minSev != "" {
		filtered := *res
		filtered.Violations = review.FilterBySeverity(res.Violations, minSev)
		res = &filtered
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/v1/rules
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	items, err := s.DB.GetRules(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	if items == nil {
		items = []schema.Rule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// GET /api/v1/regulations/search?q=...&mode=hybrid
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.Search == nil {
		s.err(w, http.StatusServiceUnavailable, "regulation search is not configured")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.fail(w, schema.Invalid("q", "query is required"))
		return
	}
	mode, err := regsearch.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		s.fail(w, schema.Invalid("mode", "%v", err))
		return
	}
	cites, err := s.Search.Search(r.Context(), q, mode)
	if err != nil {
		s.fail(w, &schema.EnrichmentFailure{Step: "regulation search", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "mode": mode, "items": cites})
}

// fail writes err as a Failure body with a status derived from its kind.
func (s *Server) fail(w http.ResponseWriter, err error) {
	f := schema.NewFailure(err)
	code := http.StatusInternalServerError
	switch f.ErrorKind {
	case schema.KindValidation:
		code = http.StatusBadRequest
	case schema.KindEnrichment:
		code = http.StatusBadGateway
	default:
		s.logger().Errorw("request failed", "kind", f.ErrorKind, "error", err)
	}
	writeJSON(w, code, f)
}

func (s *Server) err(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
