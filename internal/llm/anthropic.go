package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// anthropicAPIURL is a var so tests can point it at httptest.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// AnthropicAPIURL returns the Messages endpoint in use.
func AnthropicAPIURL() string { return anthropicAPIURL }

// SetAnthropicAPIURL overrides the Messages endpoint. Tests only.
func SetAnthropicAPIURL(u string) { anthropicAPIURL = u }

const anthropicVersion = "2023-06-01"

type anthropicProvider struct {
	model  string
	apiKey string
}

type anthropicRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// chatMessage is the role/content pair shared by the chat-style APIs.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (p *anthropicProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	body := anthropicRequest{
		Model:       pickModel(p.model, req),
		MaxTokens:   req.MaxTokens,
		System:      req.SystemPrompt,
		Messages:    []chatMessage{{Role: "user", Content: req.UserPrompt}},
		Temperature: temperature(req),
	}
	// max_tokens is mandatory for this API
	if body.MaxTokens <= 0 {
		body.MaxTokens = defaultMaxTokens
	}

	var out anthropicResponse
	status, raw, err := postJSON(ctx, anthropicAPIURL, map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}, body, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		detail := ""
		if out.Error != nil {
			detail = out.Error.Type + ": " + out.Error.Message
		}
		return nil, statusError("anthropic", status, detail, raw)
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic: no text content in response (got %d content blocks)", len(out.Content))
	}
	return &Response{Content: text.String(), Model: "anthropic:" + out.Model}, nil
}
