package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/dshills/clauseaudit/internal/audit"
	"github.com/dshills/clauseaudit/internal/config"
	"github.com/dshills/clauseaudit/internal/export"
	"github.com/dshills/clauseaudit/internal/llm"
	"github.com/dshills/clauseaudit/internal/logging"
	"github.com/dshills/clauseaudit/internal/notify"
	"github.com/dshills/clauseaudit/internal/regsearch"
	"github.com/dshills/clauseaudit/internal/store"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	envFile    string
	dbPath     string
	verbose    bool
	debug      bool
}

// app is the loaded configuration plus the logger built from it.
type app struct {
	cfg config.Config
	log *zap.SugaredLogger
}

// loadApp reads configuration and builds the logger. Failures are input
// errors (exit 3).
func loadApp(g globalFlags) (*app, error) {
	path := g.configPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	cfg, err := config.Load(path, g.envFile)
	if err != nil {
		return nil, codeError(3, "loading config: %s", err)
	}
	if g.dbPath != "" {
		cfg.Database.Path = g.dbPath
	}
	level := cfg.Logging.Level
	if g.verbose {
		level = "debug"
	}
	log, err := logging.New(g.debug, cfg.Logging.Format, level)
	if err != nil {
		return nil, codeError(3, "configuring logging: %s", err)
	}
	if cfg.LLM.OllamaHost != "" {
		llm.SetOllamaHost(cfg.LLM.OllamaHost)
	}
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) openDB() (*store.DB, error) {
	db, err := store.Open(a.cfg.Database.Path)
	if err != nil {
		return nil, codeError(4, "opening database %s: %s", a.cfg.Database.Path, err)
	}
	return db, nil
}

// embedder returns nil when no embedding model is configured.
func (a *app) embedder() (llm.Embedder, error) {
	if a.cfg.LLM.EmbeddingModel == "" {
		return nil, nil
	}
	e, err := llm.NewEmbedder(a.cfg.LLM.EmbeddingModel)
	if err != nil {
		return nil, codeError(4, "creating embedder: %s", err)
	}
	return e, nil
}

func (a *app) searcher(db *store.DB) (*regsearch.Engine, error) {
	emb, err := a.embedder()
	if err != nil {
		return nil, err
	}
	return regsearch.New(db, emb, a.cfg.Search.TopK, a.log.Named("search")), nil
}

// auditor wires every configured collaborator. model overrides
// llm.model; exportAdapter overrides export.adapter when non-empty.
func (a *app) auditor(rules audit.RuleSource, db *store.DB, model, exportAdapter string) (*audit.Auditor, error) {
	opts := audit.DefaultOptions()
	tbl, err := a.cfg.PenaltyTable()
	if err != nil {
		return nil, codeError(3, "scoring config: %s", err)
	}
	pc, err := a.cfg.PricingConfig()
	if err != nil {
		return nil, codeError(3, "pricing config: %s", err)
	}
	opts.Penalties = tbl
	opts.Thresholds = a.cfg.Scoring.Thresholds
	opts.Pricing = pc
	opts.Concurrency = a.cfg.Audit.Concurrency
	opts.SearchTimeout = a.cfg.Audit.SearchTimeout
	opts.DisambiguateTimeout = a.cfg.Audit.DisambiguateTimeout
	opts.ExportTimeout = a.cfg.Export.Timeout
	opts.PushTimeout = a.cfg.Push.Timeout
	opts.Temperature = a.cfg.LLM.Temperature
	opts.MaxTokens = a.cfg.LLM.MaxTokens
	opts.LinkBase = a.cfg.Push.LinkBase

	au := &audit.Auditor{Rules: rules, Opts: opts, Log: a.log.Named("audit")}

	if db != nil {
		au.Store = db
		s, err := a.searcher(db)
		if err != nil {
			return nil, err
		}
		au.Search = s
	}

	if model == "" {
		model = a.cfg.LLM.Model
	}
	if model != "" {
		p, err := llm.NewProvider(model)
		if err != nil {
			return nil, codeError(4, "creating LLM provider: %s", err)
		}
		au.Provider = p
	}

	adapter := a.cfg.Export.Adapter
	if exportAdapter != "" {
		adapter = exportAdapter
	}
	ex, err := export.New(adapter, export.Options{
		OutputDir: a.cfg.Report.OutputDir,
		Format:    a.cfg.Report.Format,
		Endpoint:  a.cfg.Export.Endpoint,
		Token:     a.cfg.Export.Token,
	})
	if err != nil {
		return nil, codeError(3, "export config: %s", err)
	}
	if ex != nil {
		au.Exporter = ex
	}

	if a.cfg.Push.WebhookURL != "" {
		au.Pusher = &notify.Webhook{URL: a.cfg.Push.WebhookURL}
	}
	return au, nil
}
