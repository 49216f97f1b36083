package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/clauseaudit/internal/llm"
	"github.com/dshills/clauseaudit/internal/schema"
	"github.com/dshills/clauseaudit/internal/schema/validate"
)

// disambiguate asks the provider whether v is a genuine violation of its
// rule, under the per-call timeout.
func (a *Auditor) disambiguate(ctx context.Context, sysPrompt string, v schema.Violation, clause string) (*schema.Disambiguation, error) {
	if a.Opts.DisambiguateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Opts.DisambiguateTimeout)
		defer cancel()
	}
	if clause == "" {
		clause = v.ClauseText
	}
	req := &llm.Request{
		SystemPrompt: sysPrompt,
		UserPrompt:   llm.BuildUserPrompt(v, clause, v.Regulations),
		Temperature:  a.Opts.Temperature,
		MaxTokens:    a.Opts.MaxTokens,
	}
	return callWithRetry(ctx, a.Provider, req)
}

// callWithRetry attempts an LLM call and retries once on validation failure.
func callWithRetry(ctx context.Context, provider llm.Provider, req *llm.Request) (*schema.Disambiguation, error) {
	resp, err := provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	d, parseErr := validate.Disambiguation(resp.Content)
	if parseErr == nil {
		d.Model = resp.Model
		return d, nil
	}

	// The retry prompt carries only a fixed error category, never the
	// model's previous output.
	repairReq := *req
	repairReq.UserPrompt = req.UserPrompt + fmt.Sprintf(
		"\n\nYour previous response failed validation (error category: %q). Return only valid JSON matching the structure above.",
		sanitizeErrForPrompt(parseErr),
	)

	resp2, err := provider.Complete(ctx, &repairReq)
	if err != nil {
		return nil, fmt.Errorf("LLM retry call failed: %w", err)
	}

	d, parseErr = validate.Disambiguation(resp2.Content)
	if parseErr != nil {
		return nil, fmt.Errorf("invalid model output after retry: %w", parseErr)
	}
	d.Model = resp2.Model
	return d, nil
}

// sanitizeErrForPrompt classifies a parse error into a fixed category string
// without echoing any LLM-generated content back into the retry prompt.
func sanitizeErrForPrompt(err error) string {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "JSON parse failed"):
		return "JSON syntax error"
	case strings.Contains(msg, "reason is required"):
		return "missing required field (reason)"
	default:
		return "schema validation error"
	}
}
