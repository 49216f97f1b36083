package llm

import (
	"context"
	"fmt"
	"net/http"
)

// openaiAPIURL is a var so tests can point it at httptest.
var openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIAPIURL returns the chat completions endpoint in use.
func OpenAIAPIURL() string { return openaiAPIURL }

// SetOpenAIAPIURL overrides the chat completions endpoint. Tests only.
func SetOpenAIAPIURL(u string) { openaiAPIURL = u }

type openaiProvider struct {
	model  string
	apiKey string
}

type openaiRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete asks for a JSON object reply; every prompt in this module
// expects one.
func (p *openaiProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	body := openaiRequest{
		Model:          pickModel(p.model, req),
		Messages:       chatMessages(req),
		MaxTokens:      req.MaxTokens,
		Temperature:    temperature(req),
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var out openaiResponse
	status, raw, err := postJSON(ctx, openaiAPIURL, map[string]string{"Authorization": "Bearer " + p.apiKey}, body, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		detail := ""
		if out.Error != nil {
			detail = out.Error.Type + ": " + out.Error.Message
		}
		return nil, statusError("openai", status, detail, raw)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}
	return &Response{Content: out.Choices[0].Message.Content, Model: "openai:" + out.Model}, nil
}

// chatMessages builds the system + user message list, leaving out an
// empty system prompt.
func chatMessages(req *Request) []chatMessage {
	msgs := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	return append(msgs, chatMessage{Role: "user", Content: req.UserPrompt})
}
