package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// sharedHTTPClient is used by all providers; a 5-minute timeout covers slow LLM
// responses. Per-call deadlines come from the caller's context.
var sharedHTTPClient = &http.Client{
	Timeout: 5 * time.Minute,
}

// defaultMaxTokens is the fallback when Request.MaxTokens is not set.
const defaultMaxTokens = 4096

// Request holds the parameters for an LLM completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	// Model overrides the provider's configured model when non-empty.
	Model string
}

// Response holds the result of an LLM completion call.
type Response struct {
	Content string
	Model   string // actual model used, echoed back for meta
}

// Provider is the interface for LLM completion backends.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Embedder turns text into an embedding vector for semantic search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// NewProvider parses a "provider:model" string and returns the appropriate Provider.
// The API key is read from the environment at construction time and validated immediately.
// Example: "anthropic:claude-sonnet-4-6", "openai:gpt-4o" or "ollama:qwen2:7b".
// Ollama needs no key; its host comes from OLLAMA_HOST or SetOllamaHost.
func NewProvider(providerModel string) (Provider, error) {
	name, model, err := splitProviderModel(providerModel)
	if err != nil {
		return nil, err
	}
	switch name {
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
		return &anthropicProvider{model: model, apiKey: apiKey}, nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
		return &openaiProvider{model: model, apiKey: apiKey}, nil
	case "ollama":
		return &ollamaProvider{model: model, host: resolveOllamaHost()}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: supported providers are anthropic, openai, ollama", name)
	}
}

// NewEmbedder returns an Embedder for a "provider:model" string. Only
// ollama serves embeddings.
func NewEmbedder(providerModel string) (Embedder, error) {
	name, model, err := splitProviderModel(providerModel)
	if err != nil {
		return nil, err
	}
	if name != "ollama" {
		return nil, fmt.Errorf("unknown embedding provider %q: supported providers are ollama", name)
	}
	return &ollamaProvider{model: model, host: resolveOllamaHost()}, nil
}

// splitProviderModel splits on the first colon so model tags such as
// "qwen2:7b" survive.
func splitProviderModel(providerModel string) (string, string, error) {
	parts := strings.SplitN(providerModel, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model format %q: expected provider:model (e.g. anthropic:claude-sonnet-4-6)", providerModel)
	}
	return parts[0], parts[1], nil
}

// truncate limits a string to maxLen runes, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
