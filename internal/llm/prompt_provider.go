package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sevigo/goframe/llms"
)

type callFunc func(ctx context.Context, prompt string) (string, error)

// promptProvider drives models without a native structured output mode. The
// schema is embedded in the prompt and the reply is validated by the caller.
type promptProvider struct {
	name    string
	call    callFunc
	prompts *PromptManager
}

// NewPromptProvider wraps a goframe model.
func NewPromptProvider(name string, model llms.Model, prompts *PromptManager) (Provider, error) {
	if model == nil {
		return nil, fmt.Errorf("%s model is nil", name)
	}
	return newPromptProvider(name, func(ctx context.Context, prompt string) (string, error) {
		return model.Call(ctx, prompt)
	}, prompts), nil
}

func newPromptProvider(name string, call callFunc, prompts *PromptManager) *promptProvider {
	return &promptProvider{name: name, call: call, prompts: prompts}
}

func (p *promptProvider) Name() string { return p.name }

func (p *promptProvider) Complete(ctx context.Context, req Request) (string, error) {
	schema, err := json.MarshalIndent(req.Schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render schema: %w", err)
	}

	prompt, err := p.prompts.Render(StructuredReviewPrompt, ModelProvider(p.name), map[string]string{
		"Instructions": req.Instructions,
		"Schema":       string(schema),
		"Input":        req.Input,
	})
	if err != nil {
		return "", err
	}

	return p.call(ctx, prompt)
}
