package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes caps how much of a provider reply is read.
const maxResponseBytes = 10 << 20

// postJSON sends body to url and decodes the reply into out regardless of
// status, so callers can read structured error fields. It returns the HTTP
// status and the raw reply for error messages.
func postJSON(ctx context.Context, url string, headers map[string]string, body, out any) (int, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, "", fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("reading response body: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, string(raw), fmt.Errorf("parsing response JSON (HTTP %d, body: %s): %w", resp.StatusCode, truncate(string(raw), 200), err)
	}
	return resp.StatusCode, string(raw), nil
}

// statusError formats a non-200 reply, preferring the provider's own
// error message.
func statusError(provider string, status int, detail, raw string) error {
	if detail != "" {
		return fmt.Errorf("%s: %s", provider, detail)
	}
	return fmt.Errorf("%s: HTTP %d: %s", provider, status, truncate(raw, 200))
}

// pickModel returns the per-request override or the provider default.
func pickModel(configured string, req *Request) string {
	if req.Model != "" {
		return req.Model
	}
	return configured
}

// temperature returns nil for zero so the provider default applies.
func temperature(req *Request) *float64 {
	if req.Temperature == 0 {
		return nil
	}
	t := req.Temperature
	return &t
}
