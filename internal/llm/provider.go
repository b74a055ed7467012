package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/migration-warden/internal/config"
)

// Request is a single structured review call.
type Request struct {
	Instructions string
	Input        string
	Schema       map[string]any
}

// Provider sends one request to a language model and returns the raw JSON
// reply. Implementations do not retry.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

const ollamaTimeout = 10 * time.Minute

// NewProvider creates the provider selected by cfg.
func NewProvider(ctx context.Context, cfg config.AIConfig, prompts *PromptManager, logger *slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	model := cfg.ModelName()
	maxTokens := cfg.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxOutputTokens
	}

	switch cfg.Provider {
	case "openai":
		logger.Info("using OpenAI review provider", "model", model)
		return NewOpenAIProvider(cfg.APIKey, model, maxTokens), nil

	case "anthropic":
		logger.Info("using Anthropic review provider", "model", model)
		return NewAnthropicProvider(cfg.APIKey, model, maxTokens), nil

	case "gemini":
		logger.Info("using Gemini review provider", "model", model)
		llm, err := gemini.New(ctx,
			gemini.WithModel(model),
			gemini.WithAPIKey(cfg.APIKey),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return NewPromptProvider("gemini", llm, prompts)

	case "ollama":
		logger.Info("using Ollama review provider", "model", model, "host", cfg.OllamaHost)
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.OllamaHost),
			ollama.WithModel(model),
			ollama.WithHTTPClient(&http.Client{Timeout: ollamaTimeout}),
			ollama.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return NewPromptProvider("ollama", llm, prompts)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
