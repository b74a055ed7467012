package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
)

const submitToolName = "submit_migration_reviews"

type anthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicProvider forces a single tool call whose input schema is the
// review schema, which is how Claude produces structured output.
func NewAnthropicProvider(apiKey, model string, maxTokens int, opts ...option.RequestOption) Provider {
	opts = append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &anthropicProvider{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	required, _ := req.Schema["required"].([]any)
	requiredNames := make([]string, 0, len(required))
	for _, r := range required {
		if s, ok := r.(string); ok {
			requiredNames = append(requiredNames, s)
		}
	}

	tool := anthropic.ToolParam{
		Name:        submitToolName,
		Description: anthropic.String("Submit the review of every migration."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type:       constant.Object("object"),
			Properties: req.Schema["properties"],
			Required:   requiredNames,
			ExtraFields: map[string]any{
				"additionalProperties": false,
			},
		},
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: req.Instructions}},
		Messages: []anthropic.MessageParam{{
			Role: anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(req.Input),
			},
		}},
		Tools: []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: submitToolName},
		},
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	for _, content := range message.Content {
		if content.Type == "tool_use" && content.Name == submitToolName {
			return string(content.Input), nil
		}
	}
	return "", fmt.Errorf("model did not call %s (stop reason %q)", submitToolName, message.StopReason)
}
