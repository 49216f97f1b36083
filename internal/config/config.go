package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/clauseaudit/internal/pricing"
	"github.com/dshills/clauseaudit/internal/regsearch"
	"github.com/dshills/clauseaudit/internal/regulation"
	"github.com/dshills/clauseaudit/internal/render"
	"github.com/dshills/clauseaudit/internal/review"
	"github.com/dshills/clauseaudit/internal/schema"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CLAUSEAUDIT_"

// Export adapters.
const (
	ExportNone   = "none"
	ExportFile   = "file"
	ExportBlocks = "blocks"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"` // "./clauseaudit.db"
	} `yaml:"database"`

	Logging struct {
		Format string `yaml:"format"` // "console"|"json"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
		Debug  bool   `yaml:"debug"`
	} `yaml:"logging"`

	Scoring struct {
		PenaltyTable string               `yaml:"penalty_table"` // "strict"|"moderate"
		Penalties    *review.PenaltyTable `yaml:"penalties"`     // replaces the named table when set
		Thresholds   review.Thresholds    `yaml:"thresholds"`
	} `yaml:"scoring"`

	Pricing struct {
		Tolerance          float64            `yaml:"tolerance"`
		ToleranceOverrides map[string]float64 `yaml:"tolerance_overrides"`
	} `yaml:"pricing"`

	Audit struct {
		DefaultType         schema.AuditType `yaml:"default_type"`
		Concurrency         int              `yaml:"concurrency"`
		SearchTimeout       time.Duration    `yaml:"search_timeout"`
		DisambiguateTimeout time.Duration    `yaml:"disambiguate_timeout"`
	} `yaml:"audit"`

	Report struct {
		Format    string `yaml:"format"` // "md"|"json"|"html"
		OutputDir string `yaml:"output_dir"`
	} `yaml:"report"`

	Export struct {
		Adapter  string        `yaml:"adapter"` // "none"|"file"|"blocks"
		Endpoint string        `yaml:"endpoint"`
		Token    string        `yaml:"token"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"export"`

	Push struct {
		WebhookURL string        `yaml:"webhook_url"` // empty disables push
		LinkBase   string        `yaml:"link_base"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"push"`

	LLM struct {
		Model          string  `yaml:"model"` // "provider:model", empty disables disambiguation
		EmbeddingModel string  `yaml:"embedding_model"`
		OllamaHost     string  `yaml:"ollama_host"`
		Temperature    float64 `yaml:"temperature"`
		MaxTokens      int     `yaml:"max_tokens"`
	} `yaml:"llm"`

	Search struct {
		TopK         int `yaml:"top_k"`
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"search"`

	Server struct {
		Addr         string        `yaml:"addr"`
		APIKeyHash   string        `yaml:"api_key_hash"` // bcrypt; empty disables auth
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.Database.Path = "./clauseaudit.db"
	c.Logging.Format = "console"
	c.Logging.Level = "info"
	c.Scoring.PenaltyTable = review.DefaultPenaltyTable
	c.Scoring.Thresholds = review.DefaultThresholds()
	c.Pricing.Tolerance = pricing.DefaultTolerance
	c.Audit.DefaultType = schema.AuditFull
	c.Audit.Concurrency = 4
	c.Audit.SearchTimeout = 10 * time.Second
	c.Audit.DisambiguateTimeout = 60 * time.Second
	c.Report.Format = "md"
	c.Report.OutputDir = "./reports"
	c.Export.Adapter = ExportNone
	c.Export.Timeout = 30 * time.Second
	c.Push.Timeout = 10 * time.Second
	c.LLM.Temperature = 0.2
	c.LLM.MaxTokens = 1024
	c.Search.TopK = regsearch.DefaultTopK
	c.Search.ChunkSize = regulation.DefaultChunkSize
	c.Search.ChunkOverlap = regulation.DefaultChunkOverlap
	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 5 * time.Minute
	return c
}

// Load reads path over the defaults, then envFile, then CLAUSEAUDIT_*
// overrides. An empty path skips the file; a missing envFile is ignored.
// Variables already set in the process environment win over envFile.
func Load(path, envFile string) (Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return c, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	str("DB_PATH", &c.Database.Path)
	str("LOG_FORMAT", &c.Logging.Format)
	str("LOG_LEVEL", &c.Logging.Level)
	str("PENALTY_TABLE", &c.Scoring.PenaltyTable)
	str("REPORT_FORMAT", &c.Report.Format)
	str("OUTPUT_DIR", &c.Report.OutputDir)
	str("EXPORT_ADAPTER", &c.Export.Adapter)
	str("EXPORT_ENDPOINT", &c.Export.Endpoint)
	str("EXPORT_TOKEN", &c.Export.Token)
	str("PUSH_WEBHOOK", &c.Push.WebhookURL)
	str("PUSH_LINK_BASE", &c.Push.LinkBase)
	str("LLM_MODEL", &c.LLM.Model)
	str("EMBEDDING_MODEL", &c.LLM.EmbeddingModel)
	str("OLLAMA_HOST", &c.LLM.OllamaHost)
	str("SERVER_ADDR", &c.Server.Addr)
	str("API_KEY_HASH", &c.Server.APIKeyHash)

	if v := os.Getenv(EnvPrefix + "CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return schema.Invalid(EnvPrefix+"CONCURRENCY", "invalid integer %q", v)
		}
		c.Audit.Concurrency = n
	}
	if v := os.Getenv(EnvPrefix + "TOLERANCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return schema.Invalid(EnvPrefix+"TOLERANCE", "invalid number %q", v)
		}
		c.Pricing.Tolerance = f
	}
	return nil
}

// Validate checks enums and ranges, reporting every bad field at once.
func (c Config) Validate() error {
	ve := &schema.ValidationError{}
	switch c.Logging.Format {
	case "console", "json":
	default:
		ve.Add("logging.format", "must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		ve.Add("logging.level", "must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if _, err := c.PenaltyTable(); err != nil {
		ve.Add("scoring.penalty_table", "%v", err)
	}
	if err := c.Scoring.Thresholds.Validate(); err != nil {
		ve.Add("scoring.thresholds", "%v", err)
	}
	if _, err := c.PricingConfig(); err != nil {
		ve.Add("pricing", "%v", err)
	}
	if !schema.IsValidAuditType(c.Audit.DefaultType) {
		ve.Add("audit.default_type", "must be full or negative-only, got %q", c.Audit.DefaultType)
	}
	if c.Audit.Concurrency < 1 {
		ve.Add("audit.concurrency", "must be >= 1, got %d", c.Audit.Concurrency)
	}
	if c.Audit.SearchTimeout <= 0 {
		ve.Add("audit.search_timeout", "must be positive")
	}
	if _, err := render.NewRenderer(c.Report.Format); err != nil {
		ve.Add("report.format", "%v", err)
	}
	switch c.Export.Adapter {
	case ExportNone, ExportFile:
	case ExportBlocks:
		if c.Export.Endpoint == "" {
			ve.Add("export.endpoint", "required for the blocks adapter")
		}
	default:
		ve.Add("export.adapter", "must be none, file, or blocks, got %q", c.Export.Adapter)
	}
	if c.Search.TopK < 1 {
		ve.Add("search.top_k", "must be >= 1, got %d", c.Search.TopK)
	}
	if c.Search.ChunkSize < 1 || c.Search.ChunkOverlap < 0 || c.Search.ChunkOverlap >= c.Search.ChunkSize {
		ve.Add("search.chunk_size", "need chunk_size > chunk_overlap >= 0, got %d/%d", c.Search.ChunkSize, c.Search.ChunkOverlap)
	}
	return ve.OrNil()
}

// PenaltyTable resolves the configured penalty table. Explicit penalties
// replace the named table.
func (c Config) PenaltyTable() (review.PenaltyTable, error) {
	if c.Scoring.Penalties != nil {
		return *c.Scoring.Penalties, c.Scoring.Penalties.Validate()
	}
	return review.LookupPenaltyTable(c.Scoring.PenaltyTable)
}

// PricingConfig converts the pricing section, accepting "expense" or
// "expense_rate" style override keys.
func (c Config) PricingConfig() (pricing.Config, error) {
	pc := pricing.Config{Tolerance: c.Pricing.Tolerance}
	if len(c.Pricing.ToleranceOverrides) > 0 {
		pc.Overrides = make(map[schema.PricingParam]float64, len(c.Pricing.ToleranceOverrides))
		for name, tol := range c.Pricing.ToleranceOverrides {
			p, ok := schema.ParseParam(name)
			if !ok {
				return pc, fmt.Errorf("unknown pricing parameter %q in tolerance_overrides", name)
			}
			pc.Overrides[p] = tol
		}
	}
	return pc, pc.Validate()
}
