package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/clauseaudit/internal/api"
	"github.com/dshills/clauseaudit/internal/patch"
	"github.com/dshills/clauseaudit/internal/regsearch"
	"github.com/dshills/clauseaudit/internal/regulation"
	"github.com/dshills/clauseaudit/internal/render"
	"github.com/dshills/clauseaudit/internal/rules"
	"github.com/dshills/clauseaudit/internal/store"
)

func newRulesCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "rules", Short: "Manage the negative-list rule store"}

	var replace bool
	importCmd := &cobra.Command{
		Use:   "import <pack.yaml>",
		Short: "Import a YAML negative-list pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesImport(cmd.Context(), *g, args[0], replace)
		},
	}
	importCmd.Flags().BoolVar(&replace, "replace", false, "Replace every stored rule instead of upserting")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored rules, most severe first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesList(cmd.Context(), *g)
		},
	}
	cmd.AddCommand(importCmd, listCmd)
	return cmd
}

func runRulesImport(ctx context.Context, g globalFlags, path string, replace bool) error {
	ctx = orBackground(ctx)
	a, err := loadApp(g)
	if err != nil {
		return err
	}
	pack, err := rules.LoadPack(path)
	if err != nil {
		return codeError(3, "loading rules pack: %s", err)
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if replace {
		err = db.ReplaceRules(ctx, pack)
	} else {
		err = db.UpsertRules(ctx, pack)
	}
	if err != nil {
		return codeError(4, "storing rules: %s", err)
	}
	a.log.Infow("rules imported", "path", path, "count", len(pack), "replace", replace)
	fmt.Fprintf(os.Stdout, "imported %d rules\n", len(pack))
	return nil
}

func runRulesList(ctx context.Context, g globalFlags) error {
	ctx = orBackground(ctx)
	a, err := loadApp(g)
	if err != nil {
		return err
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := db.GetRules(ctx)
	if err != nil {
		return codeError(4, "reading rules: %s", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tSEVERITY\tCATEGORY\tDESCRIPTION")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.RuleNumber, r.Severity, r.Category, rules.Preview(r.Description))
	}
	return tw.Flush()
}

func newRegsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{Use: "regs", Short: "Manage the regulation library"}

	var embed bool
	importCmd := &cobra.Command{
		Use:   "import <file-or-dir>",
		Short: "Import markdown law files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegsImport(cmd.Context(), *g, args[0], embed)
		},
	}
	importCmd.Flags().BoolVar(&embed, "embed", false, "Embed article chunks with llm.embedding_model")

	var mode string
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the regulation library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegsSearch(cmd.Context(), *g, args[0], mode)
		},
	}
	searchCmd.Flags().StringVar(&mode, "mode", "hybrid", "Search mode: exact, keyword, semantic or hybrid")

	showCmd := &cobra.Command{
		Use:   "show <law-name> <article-number>",
		Short: "Print one stored article",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegsShow(cmd.Context(), *g, args[0], args[1])
		},
	}

	cmd.AddCommand(importCmd, searchCmd, showCmd)
	return cmd
}

func runRegsImport(ctx context.Context, g globalFlags, path string, embed bool) error {
	ctx = orBackground(ctx)
	a, err := loadApp(g)
	if err != nil {
		return err
	}

	// --- Step 1: Parse law files ---
	info, err := os.Stat(path)
	if err != nil {
		return codeError(3, "reading %s: %s", path, err)
	}
	var arts []regulation.Article
	if info.IsDir() {
		arts, err = regulation.ParseDir(path)
	} else {
		arts, err = regulation.ParseFile(path)
	}
	if err != nil {
		return codeError(3, "parsing regulations: %s", err)
	}
	if len(arts) == 0 {
		return codeError(3, "no articles found in %s", path)
	}

	// --- Step 2: Store articles ---
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	stored, err := db.AddRegulations(ctx, arts)
	if err != nil {
		return codeError(4, "storing regulations: %s", err)
	}

	// --- Step 3: Chunk and embed ---
	var chunks []regulation.Chunk
	for _, art := range stored {
		chunks = append(chunks, regulation.ChunkArticle(art, a.cfg.Search.ChunkSize, a.cfg.Search.ChunkOverlap)...)
	}
	if embed {
		emb, err := a.embedder()
		if err != nil {
			return err
		}
		if emb == nil {
			return codeError(3, "--embed requires llm.embedding_model")
		}
		for i := range chunks {
			vec, err := emb.Embed(ctx, chunks[i].Text)
			if err != nil {
				return codeError(4, "embedding chunk %s: %s", chunks[i].ID, err)
			}
			chunks[i].Embedding = vec
		}
	}
	if err := db.SaveChunks(ctx, chunks); err != nil {
		return codeError(4, "storing chunks: %s", err)
	}

	total, err := db.CountRegulations(ctx)
	if err != nil {
		return codeError(4, "counting regulations: %s", err)
	}
	a.log.Infow("regulations imported", "path", path, "articles", len(stored), "chunks", len(chunks), "embedded", embed)
	fmt.Fprintf(os.Stdout, "imported %d articles (%d chunks); library holds %d articles\n", len(stored), len(chunks), total)
	return nil
}

func runRegsShow(ctx context.Context, g globalFlags, law, article string) error {
	ctx = orBackground(ctx)
	a, err := loadApp(g)
	if err != nil {
		return err
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	art, err := db.GetRegulation(ctx, law, article)
	if errors.Is(err, store.ErrNotFound) {
		return codeError(3, "%s %s not found", law, article)
	}
	if err != nil {
		return codeError(4, "loading regulation: %s", err)
	}
	fmt.Fprintf(os.Stdout, "%s [%s]\n\n%s\n", art.Citation(0).String(), art.Category, art.Content)
	return nil
}

func runRegsSearch(ctx context.Context, g globalFlags, query, modeName string) error {
	ctx = orBackground(ctx)
	mode, err := regsearch.ParseMode(modeName)
	if err != nil {
		return codeError(3, "%s", err)
	}
	a, err := loadApp(g)
	if err != nil {
		return err
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := a.searcher(db)
	if err != nil {
		return err
	}
	hits, err := s.Search(ctx, query, mode)
	if err != nil {
		return codeError(4, "search failed: %s", err)
	}
	if len(hits) == 0 {
		fmt.Fprintln(os.Stdout, "no results")
		return nil
	}
	for _, h := range hits {
		fmt.Fprintf(os.Stdout, "[%.2f] %s\n    %s\n", h.Score, h.String(), rules.Preview(h.Content))
	}
	return nil
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored audits, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), *g, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum audits to list")
	return cmd
}

func runHistory(ctx context.Context, g globalFlags, limit int) error {
	ctx = orBackground(ctx)
	if limit <= 0 {
		return codeError(3, "--limit must be positive")
	}
	a, err := loadApp(g)
	if err != nil {
		return err
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := db.ListAudits(ctx, limit, 0)
	if err != nil {
		return codeError(4, "listing audits: %s", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AUDIT\tCREATED\tPRODUCT\tTYPE\tSCORE\tGRADE\tVIOLATIONS")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%d\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.ProductName, r.AuditType, r.Score, r.Grade, r.Violations)
	}
	return tw.Flush()
}

func newShowCmd(g *globalFlags) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "show <audit-id>",
		Short: "Render a stored audit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), *g, args[0], format, out)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Output format: md, json or html (default report.format)")
	cmd.Flags().StringVar(&out, "out", "", "Write output to file instead of stdout")
	return cmd
}

func runShow(ctx context.Context, g globalFlags, id, format, out string) error {
	ctx = orBackground(ctx)
	a, err := loadApp(g)
	if err != nil {
		return err
	}
	if format == "" {
		format = a.cfg.Report.Format
	}
	renderer, err := render.NewRenderer(format)
	if err != nil {
		return codeError(3, "invalid format: %s", err)
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := db.LoadAudit(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return codeError(3, "audit %s not found", id)
	}
	if err != nil {
		return codeError(4, "loading audit: %s", err)
	}
	b, err := renderer.Render(res)
	if err != nil {
		return codeError(3, "rendering output: %s", err)
	}
	return writeOutput(out, b)
}

func newDiffCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <audit-a> <audit-b>",
		Short: "Show a line diff between the reports of two stored audits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.Context(), *g, args[0], args[1])
		},
	}
}

func runDiff(ctx context.Context, g globalFlags, idA, idB string) error {
	ctx = orBackground(ctx)
	a, err := loadApp(g)
	if err != nil {
		return err
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	var reports [2]string
	for i, id := range []string{idA, idB} {
		res, err := db.LoadAudit(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return codeError(3, "audit %s not found", id)
		}
		if err != nil {
			return codeError(4, "loading audit: %s", err)
		}
		reports[i] = res.Report.Content
	}
	d := patch.TextDiff(reports[0], reports[1])
	if d == "" {
		fmt.Fprintln(os.Stdout, "no differences")
		return nil
	}
	fmt.Fprint(os.Stdout, d)
	return nil
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the audit HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *g, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(ctx context.Context, g globalFlags, addr string) error {
	ctx, stop := signal.NotifyContext(orBackground(ctx), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(g)
	if err != nil {
		return err
	}
	defer func() { _ = a.log.Sync() }()
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	au, err := a.auditor(db, db, "", "")
	if err != nil {
		return err
	}
	srv := &api.Server{
		Auditor:          au,
		DB:               db,
		Search:           au.Search,
		Log:              a.log.Named("api"),
		APIKeyHash:       a.cfg.Server.APIKeyHash,
		DefaultAuditType: a.cfg.Audit.DefaultType,
	}
	if a.cfg.Server.APIKeyHash == "" {
		a.log.Warnw("API key not configured; endpoints are unauthenticated")
	}

	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Infow("listening", "addr", addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return codeError(4, "server: %s", err)
	case <-ctx.Done():
	}

	a.log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return codeError(4, "shutdown: %s", err)
	}
	return nil
}

func newHashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key <key>",
		Short: "Print the bcrypt hash of an API key for server.api_key_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" {
				return codeError(3, "key must not be empty")
			}
			h, err := api.HashKey(key)
			if err != nil {
				return codeError(3, "hashing key: %s", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
