package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"

	"github.com/sevigo/migration-warden/internal/config"
)

const validReply = `{"migrations":[{"filename":"a.php","comment":"ok","changes":"","safe":true}]}`

func testRequest(t *testing.T) Request {
	t.Helper()
	schema, err := ResponseSchema()
	require.NoError(t, err)
	return Request{Instructions: "instructions", Input: "a.php\n\nselect 1\n\n<?php", Schema: schema}
}

func TestPromptProvider(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	var prompt string
	p := newPromptProvider("gemini", func(_ context.Context, in string) (string, error) {
		prompt = in
		return validReply, nil
	}, pm)

	out, err := p.Complete(context.Background(), testRequest(t))

	require.NoError(t, err)
	assert.Equal(t, validReply, out)
	assert.Contains(t, prompt, "instructions")
	assert.Contains(t, prompt, `"additionalProperties": false`)
	assert.Contains(t, prompt, "a.php\n\nselect 1")
	assert.Equal(t, "gemini", p.Name())
}

func TestPromptProvider_OllamaTemplate(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)

	var prompt string
	p := newPromptProvider("ollama", func(_ context.Context, in string) (string, error) {
		prompt = in
		return validReply, nil
	}, pm)

	_, err = p.Complete(context.Background(), testRequest(t))

	require.NoError(t, err)
	assert.Contains(t, prompt, "Output only JSON.")
}

func TestOpenAIProvider(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "responses")
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "resp_1",
			"object": "response",
			"status": "completed",
			"model":  "gpt-4.1",
			"output": []any{map[string]any{
				"type":   "message",
				"id":     "msg_1",
				"role":   "assistant",
				"status": "completed",
				"content": []any{map[string]any{
					"type":        "output_text",
					"text":        validReply,
					"annotations": []any{},
				}},
			}},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", "gpt-4.1", 2048, openaioption.WithBaseURL(srv.URL))
	out, err := p.Complete(context.Background(), testRequest(t))

	require.NoError(t, err)
	assert.Equal(t, validReply, out)
	assert.Equal(t, "gpt-4.1", body["model"])
	assert.Equal(t, "instructions", body["instructions"])
	assert.EqualValues(t, 2048, body["max_output_tokens"])
	format := body["text"].(map[string]any)["format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, SchemaName, format["name"])
	assert.Equal(t, true, format["strict"])
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", "gpt-4.1", 2048, openaioption.WithBaseURL(srv.URL))
	_, err := p.Complete(context.Background(), testRequest(t))

	assert.Error(t, err)
}

func TestAnthropicProvider(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "messages")
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"stop_reason": "tool_use",
			"content": [
				{"type": "tool_use", "id": "toolu_1", "name": "submit_migration_reviews", "input": `+validReply+`}
			],
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", "claude-sonnet-4-5", 2048, anthropicoption.WithBaseURL(srv.URL))
	out, err := p.Complete(context.Background(), testRequest(t))

	require.NoError(t, err)
	parsed, err := ParseReviewResponse(out)
	require.NoError(t, err)
	assert.Equal(t, "a.php", parsed.Migrations[0].Filename)

	choice := body["tool_choice"].(map[string]any)
	assert.Equal(t, "tool", choice["type"])
	assert.Equal(t, submitToolName, choice["name"])
	tools := body["tools"].([]any)
	schema := tools[0].(map[string]any)["input_schema"].(map[string]any)
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t, []any{"migrations"}, schema["required"])
}

func TestAnthropicProvider_NoToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"m","stop_reason":"end_turn",
			"content":[{"type":"text","text":"looks fine"}],"usage":{"input_tokens":1,"output_tokens":1}}`)
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", "m", 2048, anthropicoption.WithBaseURL(srv.URL))
	_, err := p.Complete(context.Background(), testRequest(t))

	assert.ErrorContains(t, err, "did not call")
}

func TestNewProvider(t *testing.T) {
	pm, err := NewPromptManager()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := NewProvider(context.Background(), config.AIConfig{Provider: "openai", APIKey: "k"}, pm, logger)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	p, err = NewProvider(context.Background(), config.AIConfig{Provider: "anthropic", APIKey: "k"}, pm, logger)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())

	_, err = NewProvider(context.Background(), config.AIConfig{Provider: "bard"}, pm, logger)
	assert.ErrorIs(t, err, config.ErrUnknownProvider)
}
