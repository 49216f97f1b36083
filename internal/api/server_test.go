package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dshills/clauseaudit/internal/audit"
	"github.com/dshills/clauseaudit/internal/regsearch"
	"github.com/dshills/clauseaudit/internal/schema"
	"github.com/dshills/clauseaudit/internal/store"
)

type fakeStore struct {
	rules  []schema.Rule
	audits map[string]*schema.AuditResult
	fail   error
}

func (f *fakeStore) GetRules(context.Context) ([]schema.Rule, error) {
	return f.rules, f.fail
}

func (f *fakeStore) ListAudits(_ context.Context, limit, offset int) ([]store.AuditRow, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	var rows []store.AuditRow
	for id, a := range f.audits {
		rows = append(rows, store.AuditRow{ID: id, Score: a.Score, Grade: string(a.Grade)})
	}
	return rows, nil
}

func (f *fakeStore) LoadAudit(_ context.Context, id string) (*schema.AuditResult, error) {
	a, ok := f.audits[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

type fakeSearch struct{ mode regsearch.Mode }

func (f *fakeSearch) Search(_ context.Context, q string, mode regsearch.Mode) ([]schema.Citation, error) {
	f.mode = mode
	if q == "boom" {
		return nil, errors.New("index offline")
	}
	return []schema.Citation{{LawName: "保险法", ArticleNumber: "第十七条", Score: 1}}, nil
}

var exclusionRule = schema.Rule{
	RuleNumber:  "NL-001",
	Description: "免除保险人依法应承担的义务",
	Severity:    schema.SeverityHigh,
	Category:    "产品条款表述",
	Keywords:    []string{"不承担任何责任"},
}

func newServer(t *testing.T, keyHash string) (*Server, *fakeStore) {
	t.Helper()
	db := &fakeStore{
		rules:  []schema.Rule{exclusionRule},
		audits: map[string]*schema.AuditResult{"AUD-1": {AuditID: "AUD-1", Score: 80, Grade: schema.GradeGood}},
	}
	a := &audit.Auditor{Rules: db, Opts: audit.DefaultOptions(), Now: func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }}
	return &Server{Auditor: a, DB: db, Search: &fakeSearch{}, APIKeyHash: keyHash}, db
}

func do(t *testing.T, h http.Handler, method, path, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newServer(t, "")
	rec := do(t, s.Routes(), http.MethodGet, "/api/v1/health", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}
}

func TestCreateAudit(t *testing.T) {
	s, _ := newServer(t, "")
	rec := do(t, s.Routes(), http.MethodPost, "/api/v1/audits",
		`{"clauses": ["保险公司不承担任何责任"], "audit_type": "negative-only"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var res schema.AuditResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Success || len(res.Violations) != 1 || res.Score != 80 {
		t.Errorf("result = %+v", res)
	}
}

func TestCreateAudit_DefaultType(t *testing.T) {
	s, _ := newServer(t, "")
	rec := do(t, s.Routes(), http.MethodPost, "/api/v1/audits", `{"clauses": []}`, "")
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"audit_type":"full"`) {
		t.Errorf("status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestCreateAudit_ValidationFailure(t *testing.T) {
	s, _ := newServer(t, "")
	cases := []string{
		`{"clauses": ["x"], "audit_type": "quick"}`,
		`{"document_path": "/etc/passwd"}`,
		`{not json`,
		`{"clauses": ["x"], "surprise": 1}`,
	}
	for _, body := range cases {
		rec := do(t, s.Routes(), http.MethodPost, "/api/v1/audits", body, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, rec.Code)
			continue
		}
		var f schema.Failure
		if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
			t.Fatal(err)
		}
		if f.Success || f.ErrorKind != schema.KindValidation || len(f.Fields) == 0 {
			t.Errorf("%s: failure = %+v", body, f)
		}
	}
}

func TestCreateAudit_StorageFailure(t *testing.T) {
	s, db := newServer(t, "")
	db.fail = &schema.StorageError{Op: "get rules", Err: errors.New("locked")}
	rec := do(t, s.Routes(), http.MethodPost, "/api/v1/audits", `{"clauses": ["x"]}`, "")
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), schema.KindStorage) {
		t.Errorf("status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestAudits_ListAndGet(t *testing.T) {
	s, _ := newServer(t, "")
	h := s.Routes()

	rec := do(t, h, http.MethodGet, "/api/v1/audits?limit=500", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"limit":200`) {
		t.Errorf("list = %d %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/audits/AUD-1", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"audit_id":"AUD-1"`) {
		t.Errorf("get = %d %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/audits/AUD-404", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing audit status = %d", rec.Code)
	}
}

func TestGetAudit_MinSeverity(t *testing.T) {
	s, db := newServer(t, "")
	db.audits["AUD-2"] = &schema.AuditResult{AuditID: "AUD-2", Score: 75, Violations: []schema.Violation{
		{RuleNumber: "NL-001", Severity: schema.SeverityHigh},
		{RuleNumber: "NL-003", Severity: schema.SeverityLow},
	}}
	h := s.Routes()

	rec := do(t, h, http.MethodGet, "/api/v1/audits/AUD-2?min_severity=high", "", "")
	var got schema.AuditResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body)
	}
	if len(got.Violations) != 1 || got.Violations[0].RuleNumber != "NL-001" || got.Score != 75 {
		t.Errorf("filtered result = %+v", got)
	}
	if len(db.audits["AUD-2"].Violations) != 2 {
		t.Error("filtering must not modify the stored result")
	}

	rec = do(t, h, http.MethodGet, "/api/v1/audits/AUD-2?min_severity=extreme", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad severity status = %d", rec.Code)
	}
}

func TestRules(t *testing.T) {
	s, _ := newServer(t, "")
	rec := do(t, s.Routes(), http.MethodGet, "/api/v1/rules", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Errorf("rules = %d %s", rec.Code, rec.Body)
	}
}

func TestSearch(t *testing.T) {
	s, _ := newServer(t, "")
	h := s.Routes()

	rec := do(t, h, http.MethodGet, "/api/v1/regulations/search?q=%E5%85%8D%E8%B4%A3&mode=exact", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "第十七条") {
		t.Errorf("search = %d %s", rec.Code, rec.Body)
	}
	if s.Search.(*fakeSearch).mode != regsearch.ModeExact {
		t.Errorf("mode = %q", s.Search.(*fakeSearch).mode)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/regulations/search", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/regulations/search?q=x&mode=fuzzy", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad mode status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/regulations/search?q=boom", "", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("backend failure status = %d", rec.Code)
	}
}

func TestSearch_NotConfigured(t *testing.T) {
	s, _ := newServer(t, "")
	s.Search = nil
	rec := do(t, s.Routes(), http.MethodGet, "/api/v1/regulations/search?q=x", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := newServer(t, string(hash))
	h := s.Routes()

	if rec := do(t, h, http.MethodGet, "/api/v1/rules", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key: status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/rules", "", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/rules", "", "s3cret"); rec.Code != http.StatusOK {
		t.Errorf("right key: status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("health must not need a key: status = %d", rec.Code)
	}
}

func TestHashKey(t *testing.T) {
	hash, err := HashKey("k")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckKey(hash, "k") || CheckKey(hash, "K") {
		t.Error("CheckKey mismatch")
	}
}

func TestNotFound(t *testing.T) {
	s, _ := newServer(t, "")
	if rec := do(t, s.Routes(), http.MethodGet, "/nope", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}
