package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// ollamaHost is a var to allow test overrides via httptest.
var ollamaHost = "http://localhost:11434"

// OllamaHost returns the configured Ollama base URL.
func OllamaHost() string { return ollamaHost }

// SetOllamaHost overrides the Ollama base URL. The config layer and tests
// use it; OLLAMA_HOST still wins when set.
func SetOllamaHost(u string) { ollamaHost = strings.TrimRight(u, "/") }

func resolveOllamaHost() string {
	if h := os.Getenv("OLLAMA_HOST"); h != "" {
		return strings.TrimRight(h, "/")
	}
	return ollamaHost
}

type ollamaProvider struct {
	model string
	host  string
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Error   string      `json:"error"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error"`
}

func (p *ollamaProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := pickModel(p.model, req)
	body := ollamaChatRequest{
		Model:    model,
		Messages: chatMessages(req),
		Format:   "json",
		Options:  ollamaOptions{Temperature: temperature(req), NumPredict: req.MaxTokens},
	}

	var out ollamaChatResponse
	status, raw, err := postJSON(ctx, p.host+"/api/chat", nil, body, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError("ollama", status, out.Error, raw)
	}
	if out.Message.Content == "" {
		return nil, fmt.Errorf("ollama: empty message in response")
	}
	if out.Model == "" {
		out.Model = model
	}
	return &Response{Content: out.Message.Content, Model: "ollama:" + out.Model}, nil
}

// Embed returns the embedding vector for text.
func (p *ollamaProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	var out ollamaEmbedResponse
	status, raw, err := postJSON(ctx, p.host+"/api/embeddings", nil, ollamaEmbedRequest{Model: p.model, Prompt: text}, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError("ollama", status, out.Error, raw)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("ollama: empty embedding in response")
	}
	return out.Embedding, nil
}
