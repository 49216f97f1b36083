package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/clauseaudit/internal/audit"
	"github.com/dshills/clauseaudit/internal/render"
	"github.com/dshills/clauseaudit/internal/rules"
	"github.com/dshills/clauseaudit/internal/schema"
	"github.com/dshills/clauseaudit/internal/store"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// auditFlags holds the parsed flags for the audit command.
type auditFlags struct {
	clauses     []string
	rulesPath   string
	auditType   string
	productType string
	productName string
	params      []string
	format      string
	out         string
	failOn      string
	patchOut    string
	model       string
	export      string
	noStore     bool
}

func main() {
	root, _ := newRootCmd()
	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		// cobra already printed the error
		os.Exit(1)
	}
}

func newRootCmd() (*cobra.Command, *globalFlags) {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "clauseaudit",
		Short:         "Audit insurance product clauses for compliance",
		Long:          "clauseaudit matches insurance product clauses against a negative list, checks pricing parameters against benchmarks and produces a scored compliance report.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Config file (YAML); defaults to $CLAUSEAUDIT_CONFIG")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before CLAUSEAUDIT_* overrides")
	pf.StringVar(&g.dbPath, "db", "", "SQLite database path (overrides database.path)")
	pf.BoolVar(&g.verbose, "verbose", false, "Log processing steps to stderr")
	pf.BoolVar(&g.debug, "debug", false, "Development logging (stack traces, caller info)")

	var flags auditFlags
	auditCmd := &cobra.Command{
		Use:   "audit [document]",
		Short: "Audit a product document or explicit clauses",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := ""
			if len(args) == 1 {
				doc = args[0]
			}
			return runAudit(cmd.Context(), doc, *g, flags)
		},
	}
	f := auditCmd.Flags()
	f.StringArrayVar(&flags.clauses, "clause", nil, "Clause text to audit (may be repeated; replaces document clauses)")
	f.StringVar(&flags.rulesPath, "rules", "", "Negative-list YAML pack to use instead of the rule store")
	f.StringVar(&flags.auditType, "type", "", "Audit type: full or negative-only (default audit.default_type)")
	f.StringVar(&flags.productType, "product-type", "", "Product type, e.g. 寿险 or health")
	f.StringVar(&flags.productName, "product-name", "", "Product name")
	f.StringArrayVar(&flags.params, "param", nil, "Pricing parameter name=value, e.g. expense_rate=0.15 (may be repeated)")
	f.StringVar(&flags.format, "format", "", "Output format: md, json or html (default report.format)")
	f.StringVar(&flags.out, "out", "", "Write output to file instead of stdout")
	f.StringVar(&flags.failOn, "fail-on", "", "Exit 2 if the grade is at or below this level (good, pass or fail)")
	f.StringVar(&flags.patchOut, "patch-out", "", "Write suggested clause rewrites in diff-match-patch format to this file")
	f.StringVar(&flags.model, "model", "", "LLM provider:model for disambiguation (overrides llm.model)")
	f.StringVar(&flags.export, "export", "", "Export adapter: none, file or blocks (overrides export.adapter)")
	f.BoolVar(&flags.noStore, "no-store", false, "Do not persist the audit (requires --rules)")

	root.AddCommand(auditCmd, newRulesCmd(g), newRegsCmd(g), newHistoryCmd(g), newShowCmd(g), newDiffCmd(g), newServeCmd(g), newHashKeyCmd())
	return root, g
}

func runAudit(ctx context.Context, docPath string, g globalFlags, flags auditFlags) error {
	ctx, stop := signal.NotifyContext(orBackground(ctx), os.Interrupt)
	defer stop()

	// --- Step 1: Validate flags ---
	params, err := validateFlags(docPath, flags)
	if err != nil {
		return codeError(3, "invalid flags: %s", err)
	}

	// --- Step 2: Load config and logger ---
	a, err := loadApp(g)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()
	format := flags.format
	if format == "" {
		format = a.cfg.Report.Format
	}
	renderer, err := render.NewRenderer(format)
	if err != nil {
		return codeError(3, "invalid format: %s", err)
	}

	// --- Step 3: Open store ---
	var db *store.DB
	if !flags.noStore {
		db, err = a.openDB()
		if err != nil {
			return err
		}
		defer db.Close()
	}

	// --- Step 4: Resolve rule source ---
	var source audit.RuleSource = db
	if flags.rulesPath != "" {
		a.log.Debugw("loading rules pack", "path", flags.rulesPath)
		pack, err := rules.LoadPack(flags.rulesPath)
		if err != nil {
			return codeError(3, "loading rules pack: %s", err)
		}
		rules.SortBySeverity(pack)
		source = packSource(pack)
	} else {
		n, err := db.CountRules(ctx)
		if err != nil {
			return codeError(4, "reading rule store: %s", err)
		}
		if n == 0 {
			return codeError(3, "rule store is empty: run 'clauseaudit rules import <pack.yaml>' or pass --rules")
		}
	}

	// --- Step 5: Build auditor ---
	au, err := a.auditor(source, db, flags.model, flags.export)
	if err != nil {
		return err
	}

	// --- Step 6: Run audit ---
	auditType := schema.AuditType(flags.auditType)
	if auditType == "" {
		auditType = a.cfg.Audit.DefaultType
	}
	req := schema.AuditRequest{
		DocumentPath:  docPath,
		Clauses:       flags.clauses,
		PricingParams: params,
		ProductType:   flags.productType,
		ProductName:   flags.productName,
		AuditType:     auditType,
	}
	a.log.Debugw("running audit", "document", docPath, "type", auditType)
	res, err := au.Run(ctx, req)
	if err != nil {
		if schema.ErrorKind(err) == schema.KindValidation {
			return codeError(3, "%s", err)
		}
		return codeError(5, "audit failed: %s", err)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "WARN: %s\n", w)
	}

	// --- Step 7: Write patches ---
	if flags.patchOut != "" && res.Patches != "" {
		if err := os.WriteFile(flags.patchOut, []byte(res.Patches), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "WARN: patch write failed: %s\n", err)
			// Continue; patches are advisory.
		}
	}

	// --- Step 8: Render and write output ---
	outputBytes, err := renderer.Render(res)
	if err != nil {
		return codeError(3, "rendering output: %s", err)
	}
	if err := writeOutput(flags.out, outputBytes); err != nil {
		return err
	}

	// --- Step 9: Evaluate --fail-on ---
	if flags.failOn != "" {
		threshold := schema.Grade(flags.failOn)
		if schema.GradeOrdinal(res.Grade) >= schema.GradeOrdinal(threshold) {
			return codeError(2, "grade %s meets or falls below --fail-on threshold %s", res.Grade, threshold)
		}
	}
	return nil
}

// packSource serves a rules pack loaded from disk.
type packSource []schema.Rule

func (p packSource) GetRules(context.Context) ([]schema.Rule, error) { return p, nil }

// validateFlags checks the audit flags and parses --param values.
func validateFlags(docPath string, flags auditFlags) (map[string]float64, error) {
	if docPath == "" && len(flags.clauses) == 0 {
		return nil, fmt.Errorf("a document path or at least one --clause is required")
	}
	if flags.auditType != "" && !schema.IsValidAuditType(schema.AuditType(flags.auditType)) {
		return nil, fmt.Errorf("--type must be full or negative-only, got %q", flags.auditType)
	}
	if flags.format != "" {
		if _, err := render.NewRenderer(flags.format); err != nil {
			return nil, err
		}
	}
	if flags.failOn != "" {
		switch schema.Grade(flags.failOn) {
		case schema.GradeGood, schema.GradePass, schema.GradeFail:
		default:
			return nil, fmt.Errorf("--fail-on must be good, pass or fail, got %q", flags.failOn)
		}
	}
	if flags.noStore && flags.rulesPath == "" {
		return nil, fmt.Errorf("--no-store requires --rules")
	}
	var params map[string]float64
	for _, p := range flags.params {
		name, raw, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("--param must be name=value, got %q", p)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("--param %s: invalid number %q", name, raw)
		}
		if params == nil {
			params = make(map[string]float64)
		}
		params[strings.TrimSpace(name)] = v
	}
	return params, nil
}

// writeOutput writes b to path, or to stdout when path is empty.
func writeOutput(path string, b []byte) error {
	if path != "" {
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return codeError(3, "writing output file: %s", err)
		}
		return nil
	}
	if _, err := os.Stdout.Write(b); err != nil {
		return codeError(3, "writing output: %s", err)
	}
	// Ensure output ends with a newline for terminal friendliness.
	if len(b) > 0 && b[len(b)-1] != '\n' {
		fmt.Fprintln(os.Stdout)
	}
	return nil
}
