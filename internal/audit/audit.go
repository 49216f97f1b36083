package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/clauseaudit/internal/document"
	"github.com/dshills/clauseaudit/internal/export"
	"github.com/dshills/clauseaudit/internal/ids"
	"github.com/dshills/clauseaudit/internal/llm"
	"github.com/dshills/clauseaudit/internal/logging"
	"github.com/dshills/clauseaudit/internal/notify"
	"github.com/dshills/clauseaudit/internal/patch"
	"github.com/dshills/clauseaudit/internal/pricing"
	"github.com/dshills/clauseaudit/internal/profile"
	"github.com/dshills/clauseaudit/internal/regsearch"
	"github.com/dshills/clauseaudit/internal/report"
	"github.com/dshills/clauseaudit/internal/review"
	"github.com/dshills/clauseaudit/internal/rules"
	"github.com/dshills/clauseaudit/internal/schema"
	"github.com/dshills/clauseaudit/internal/schema/validate"
)

// RuleSource supplies the negative list, severity-descending by convention.
type RuleSource interface {
	GetRules(ctx context.Context) ([]schema.Rule, error)
}

// AuditStore persists finished audits.
type AuditStore interface {
	SaveAudit(ctx context.Context, res *schema.AuditResult, documentHash string) error
}

// Options are the tunables of one Auditor.
type Options struct {
	Penalties  review.PenaltyTable
	Thresholds review.Thresholds
	Pricing    pricing.Config

	// Concurrency bounds the enrichment fan-out.
	Concurrency         int
	SearchTimeout       time.Duration
	DisambiguateTimeout time.Duration
	ExportTimeout       time.Duration
	PushTimeout         time.Duration

	Temperature float64
	MaxTokens   int
	LinkBase    string
}

// DefaultOptions matches the built-in configuration.
func DefaultOptions() Options {
	tbl, _ := review.LookupPenaltyTable(review.DefaultPenaltyTable)
	return Options{
		Penalties:           tbl,
		Thresholds:          review.DefaultThresholds(),
		Pricing:             pricing.DefaultConfig(),
		Concurrency:         4,
		SearchTimeout:       10 * time.Second,
		DisambiguateTimeout: 60 * time.Second,
		ExportTimeout:       30 * time.Second,
		PushTimeout:         10 * time.Second,
		Temperature:         0.2,
		MaxTokens:           1024,
	}
}

// Auditor runs audits. Only Rules is required; every other collaborator
// is optional and its step is skipped when nil.
type Auditor struct {
	Rules    RuleSource
	Search   regsearch.Searcher
	Provider llm.Provider
	Exporter export.Exporter
	Pusher   notify.Pusher
	Store    AuditStore
	Opts     Options
	Log      *zap.SugaredLogger

	// Now is the clock; tests pin it.
	Now func() time.Time
}

// input is the preprocessed form of a request.
type input struct {
	clauses []schema.Clause
	product schema.ProductInfo
	params  map[schema.PricingParam]float64
	raw     string
	hash    string
}

// Run executes one audit. Errors before the report is assembled are
// returned; export, persistence and push failures are recorded on the
// result instead.
func (a *Auditor) Run(ctx context.Context, req schema.AuditRequest) (*schema.AuditResult, error) {
	log := a.Log
	if log == nil {
		log = logging.Nop()
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	started := now().UTC()

	// --- Step 1: Validate request ---
	if err := validate.Request(req); err != nil {
		return nil, err
	}
	if a.Rules == nil {
		return nil, fmt.Errorf("auditor has no rule source")
	}
	auditID := ids.New(ids.Audit, started)
	log = log.With("audit_id", auditID)

	// --- Step 2: Preprocess ---
	in, err := preprocess(req)
	if err != nil {
		return nil, err
	}
	log.Debugw("preprocessed document",
		"preprocess_id", ids.New(ids.Preprocess, started),
		"clauses", len(in.clauses),
		"product", in.product.Name,
		"pricing_params", len(in.params))

	// --- Step 3: Load rules ---
	ruleList, err := a.Rules.GetRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	if err := validate.Rules(ruleList); err != nil {
		return nil, err
	}

	// --- Step 4: Match ---
	set := rules.Compile(ruleList, log)
	violations := set.Match(in.clauses)
	var warnings []string
	for _, p := range set.Problems() {
		warnings = append(warnings, fmt.Sprintf("rule %s: pattern %q skipped: %s", p.RuleNumber, p.Pattern, p.Err))
	}
	log.Infow("matched clauses", "rules", set.Len(), "violations", len(violations))

	// --- Step 5: Enrich (full audits only) ---
	if req.AuditType == schema.AuditFull {
		warnings = append(warnings, a.enrich(ctx, violations, in, log)...)
	}

	// --- Step 6: Pricing (full audits with parameters only) ---
	var assessment schema.PricingAssessment
	if req.AuditType == schema.AuditFull && len(in.params) > 0 {
		assessment = pricing.Evaluate(in.params, in.product.Type, a.Opts.Pricing)
	}

	// --- Step 7: Score and grade ---
	score, err := review.Score(violations, assessment, a.Opts.Penalties)
	if err != nil {
		return nil, err
	}
	grade := review.GradeFor(score, a.Opts.Thresholds)
	summary := schema.NewSummary(rules.GroupBySeverity(violations), assessment.Issues())

	// --- Step 8: Assemble report ---
	ectx := &schema.EvaluationContext{
		Violations:      violations,
		Pricing:         assessment,
		Product:         in.product,
		Score:           score,
		Grade:           grade,
		Summary:         summary,
		RegulationBasis: report.RegulationBasis(in.product.Type, violations),
	}
	rep := report.Assemble(ectx, report.Options{ReportID: ids.New(ids.Report, started), GeneratedAt: started})

	res := &schema.AuditResult{
		Success:         true,
		AuditID:         auditID,
		AuditType:       req.AuditType,
		Product:         in.product,
		Violations:      violations,
		Pricing:         assessment,
		Recommendations: pricing.Recommendations(assessment),
		Score:           score,
		Grade:           grade,
		Summary:         summary,
		RegulationBasis: ectx.RegulationBasis,
		Report:          rep,
		CreatedAt:       started.Format(time.RFC3339),
	}
	if rw := patch.FromViolations(violations, in.clauses); len(rw) > 0 {
		res.Patches = patch.GenerateDiff(in.raw, rw, log)
	}

	res.Warnings = warnings

	// --- Step 9: Export ---
	if a.Exporter != nil {
		res.Export = a.export(ctx, res, log)
	}

	// --- Step 10: Persist ---
	if a.Store != nil {
		if err := a.Store.SaveAudit(ctx, res, in.hash); err != nil {
			log.Warnw("audit not persisted", "error", err)
			res.Warnings = append(res.Warnings, "audit not persisted: "+err.Error())
		}
	}

	// --- Step 11: Push ---
	if a.Pusher != nil {
		res.Push = a.push(ctx, res, log)
	}

	log.Infow("audit complete", "score", score, "grade", grade, "violations", len(violations))
	return res, nil
}

// preprocess turns the request into clauses, product info and pricing
// parameters. Explicit request values win over values extracted from the
// document.
func preprocess(req schema.AuditRequest) (*input, error) {
	var doc *document.Document
	switch {
	case req.DocumentPath != "":
		d, err := document.Load(req.DocumentPath)
		if err != nil {
			return nil, schema.Invalid("document_path", "%v", err)
		}
		doc = d
	case req.DocumentText != "":
		doc = document.FromText(req.DocumentText)
	}

	in := &input{params: map[schema.PricingParam]float64{}}
	if doc != nil {
		in.raw = doc.Raw
		in.hash = doc.Hash
		in.product = document.ExtractProductInfo(doc.Raw)
		in.product.HasCashValue = document.HasCashValue(doc.Raw)
		in.product.HasDividend = document.HasDividend(doc.Raw)
		for p, v := range pricing.ParseParams(document.ExtractPricingParams(doc.Raw)) {
			in.params[p] = v
		}
	}

	if req.Clauses != nil {
		in.clauses = rules.Clauses(req.Clauses)
		if doc == nil {
			in.raw = strings.Join(req.Clauses, "\n")
		}
	} else {
		in.clauses = document.ExtractClauses(in.raw)
	}

	if req.ProductName != "" {
		in.product.Name = req.ProductName
	}
	if req.ProductType != "" {
		in.product.Type = req.ProductType
	}
	for p, v := range pricing.ParseParams(req.PricingParams) {
		in.params[p] = v
	}
	return in, nil
}

// enrich attaches regulation citations and, when a provider is set, an LLM
// disambiguation to each violation. Each goroutine writes only its own
// index; failures degrade to empty results and come back as warnings in
// violation order.
func (a *Auditor) enrich(ctx context.Context, violations []schema.Violation, in *input, log *zap.SugaredLogger) []string {
	if len(violations) == 0 || (a.Search == nil && a.Provider == nil) {
		return nil
	}
	limit := a.Opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	full := make(map[int]string, len(in.clauses))
	for _, c := range in.clauses {
		full[c.Index] = c.Text
	}
	sysPrompt := llm.BuildSystemPrompt(profile.Detect(in.product.Type))

	perViolation := make([][]string, len(violations))
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range violations {
		g.Go(func() error {
			v := &violations[i]
			if a.Search != nil {
				cites, err := a.searchOne(ctx, v.Description)
				if err != nil {
					ef := &schema.EnrichmentFailure{Step: "regulation search", Err: err}
					log.Warnw("regulation search failed", "rule_number", v.RuleNumber, "clause_index", v.ClauseIndex, "error", err)
					perViolation[i] = append(perViolation[i], fmt.Sprintf("%s (rule %s, clause %d)", ef.Error(), v.RuleNumber, v.ClauseIndex))
					cites = []schema.Citation{}
				}
				v.Regulations = cites
			}
			if a.Provider != nil {
				d, err := a.disambiguate(ctx, sysPrompt, *v, full[v.ClauseIndex])
				if err != nil {
					ef := &schema.EnrichmentFailure{Step: "disambiguation", Err: err}
					log.Warnw("disambiguation failed", "rule_number", v.RuleNumber, "clause_index", v.ClauseIndex, "error", err)
					perViolation[i] = append(perViolation[i], fmt.Sprintf("%s (rule %s, clause %d)", ef.Error(), v.RuleNumber, v.ClauseIndex))
				} else {
					v.Disambiguation = d
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	var warnings []string
	for _, w := range perViolation {
		warnings = append(warnings, w...)
	}
	return warnings
}

func (a *Auditor) searchOne(ctx context.Context, query string) ([]schema.Citation, error) {
	if a.Opts.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Opts.SearchTimeout)
		defer cancel()
	}
	cites, err := a.Search.Search(ctx, query, regsearch.ModeHybrid)
	if err != nil {
		return nil, err
	}
	if cites == nil {
		cites = []schema.Citation{}
	}
	return cites, nil
}

func (a *Auditor) export(ctx context.Context, res *schema.AuditResult, log *zap.SugaredLogger) *schema.OutcomeMarker {
	if a.Opts.ExportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Opts.ExportTimeout)
		defer cancel()
	}
	loc, err := a.Exporter.Export(ctx, res)
	if err != nil {
		log.Warnw("export failed", "adapter", a.Exporter.Name(), "error", err)
		return &schema.OutcomeMarker{Success: false, Error: err.Error()}
	}
	log.Infow("report exported", "adapter", a.Exporter.Name(), "location", loc)
	return &schema.OutcomeMarker{Success: true, Location: loc}
}

func (a *Auditor) push(ctx context.Context, res *schema.AuditResult, log *zap.SugaredLogger) *schema.OutcomeMarker {
	if a.Opts.PushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Opts.PushTimeout)
		defer cancel()
	}
	link := notify.Link(res, a.Opts.LinkBase)
	if err := a.Pusher.Push(ctx, res, link); err != nil {
		log.Warnw("push failed", "channel", a.Pusher.Name(), "error", err)
		return &schema.OutcomeMarker{Success: false, Error: err.Error()}
	}
	return &schema.OutcomeMarker{Success: true, Location: link}
}
