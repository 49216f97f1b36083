package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/clauseaudit/internal/render"
	"github.com/dshills/clauseaudit/internal/report"
	"github.com/dshills/clauseaudit/internal/schema"
)

// Exporter publishes an assembled report and returns where it landed.
type Exporter interface {
	Name() string
	Export(ctx context.Context, res *schema.AuditResult) (string, error)
}

// Options configures New.
type Options struct {
	OutputDir string // file adapter
	Format    string // file adapter: md, json or html
	Endpoint  string // blocks adapter
	Token     string // blocks adapter, sent as a bearer token
}

// New returns the exporter for adapter. "none" and "" return nil.
func New(adapter string, opts Options) (Exporter, error) {
	switch adapter {
	case "", "none":
		return nil, nil
	case "file":
		if _, err := render.NewRenderer(opts.Format); err != nil {
			return nil, err
		}
		return &FileExporter{Dir: opts.OutputDir, Format: opts.Format}, nil
	case "blocks":
		if opts.Endpoint == "" {
			return nil, fmt.Errorf("blocks exporter requires an endpoint")
		}
		return &BlocksExporter{Endpoint: opts.Endpoint, Token: opts.Token}, nil
	}
	return nil, fmt.Errorf("unknown export adapter %q: supported adapters are none, file, blocks", adapter)
}

// FileExporter writes the rendered report under Dir, named after the
// report ID.
type FileExporter struct {
	Dir    string
	Format string
}

func (e *FileExporter) Name() string { return "file" }

func (e *FileExporter) Export(ctx context.Context, res *schema.AuditResult) (string, error) {
	fail := func(err error) (string, error) {
		return "", &schema.ExportFailure{Adapter: e.Name(), Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	r, err := render.NewRenderer(e.Format)
	if err != nil {
		return fail(err)
	}
	b, err := r.Render(res)
	if err != nil {
		return fail(fmt.Errorf("rendering report: %w", err))
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return fail(err)
	}
	name := res.Report.ID
	if name == "" {
		name = res.AuditID
	}
	path := filepath.Join(e.Dir, name+render.Extension(e.Format))
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fail(err)
	}
	return path, nil
}

// httpClient bounds a single export call; per-call deadlines come from ctx.
var httpClient = &http.Client{Timeout: 2 * time.Minute}

// BlocksExporter posts the structured blocks to a document API, which
// answers with the created document's URL or ID.
type BlocksExporter struct {
	Endpoint string
	Token    string
}

type blocksRequest struct {
	Title    string            `json:"title"`
	Blocks   []schema.Block    `json:"blocks"`
	Markdown string            `json:"markdown"` // for targets without block support
	Metadata map[string]string `json:"metadata,omitempty"`
}

type blocksResponse struct {
	URL        string `json:"url"`
	DocumentID string `json:"document_id"`
	Error      string `json:"error"`
}

func (e *BlocksExporter) Name() string { return "blocks" }

func (e *BlocksExporter) Export(ctx context.Context, res *schema.AuditResult) (string, error) {
	fail := func(err error) (string, error) {
		return "", &schema.ExportFailure{Adapter: e.Name(), Err: err}
	}
	body, err := json.Marshal(blocksRequest{
		Title:    res.Report.Title,
		Blocks:   res.Report.Blocks,
		Markdown: report.BlocksToMarkdown(res.Report.Blocks),
		Metadata: res.Report.Metadata,
	})
	if err != nil {
		return fail(fmt.Errorf("marshaling request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if e.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.Token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	const maxBodyBytes = 1 << 20
	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(fmt.Errorf("reading response body: %w", err))
	}
	var br blocksResponse
	_ = json.Unmarshal(respBytes, &br)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if br.Error != "" {
			return fail(fmt.Errorf("HTTP %d: %s", resp.StatusCode, br.Error))
		}
		return fail(fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	switch {
	case br.URL != "":
		return br.URL, nil
	case br.DocumentID != "":
		return br.DocumentID, nil
	}
	return e.Endpoint, nil
}
