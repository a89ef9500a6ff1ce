package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/report-qa/internal/config"
	"github.com/sells-group/report-qa/pkg/anthropic"
)

func TestNew_Providers(t *testing.T) {
	ctx := context.Background()

	g, err := New(ctx, config.LLMConfig{Provider: "openai", Key: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, g)

	g, err = New(ctx, config.LLMConfig{Provider: "deepseek", Key: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, g)

	g, err = New(ctx, config.LLMConfig{Provider: "anthropic", Key: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, g)

	g, err = New(ctx, config.LLMConfig{Provider: "gemini", Key: "k"})
	require.NoError(t, err)
	assert.IsType(t, &Gemini{}, g)
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, config.LLMConfig{Provider: "openai"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")

	_, err = New(ctx, config.LLMConfig{Provider: "ollama", Key: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestModelFor(t *testing.T) {
	assert.Equal(t, DefaultOpenAIModel, ModelFor(config.LLMConfig{}))
	assert.Equal(t, DefaultAnthropicModel, ModelFor(config.LLMConfig{Provider: "anthropic"}))
	assert.Equal(t, DefaultGeminiModel, ModelFor(config.LLMConfig{Provider: "Gemini"}))
	assert.Equal(t, "deepseek-reasoner", ModelFor(config.LLMConfig{Provider: "openai", Model: "deepseek-reasoner"}))
}

func TestNewOpenAI_Defaults(t *testing.T) {
	g := NewOpenAI(config.LLMConfig{Key: "k"})
	assert.Equal(t, DefaultOpenAIModel, g.model)
}

func TestOpenAI_Generate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "deepseek-chat", body["model"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 1)
		assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "what is 6*7?", msgs[0].(map[string]any)["content"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "deepseek-chat",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": `{"value": "42", "chunk_id": 0}`}, "finish_reason": "stop"}},
			"usage":   map[string]any{"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19},
		})
	}))
	defer ts.Close()

	g := NewOpenAI(config.LLMConfig{Key: "sk-test", BaseURL: ts.URL, Model: "deepseek-chat"})
	resp, err := g.Generate(context.Background(), "what is 6*7?")
	require.NoError(t, err)
	assert.Equal(t, `{"value": "42", "chunk_id": 0}`, resp.Text)
	assert.Equal(t, "deepseek-chat", resp.Model)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 7, resp.Usage.OutputTokens)
}

func TestOpenAI_GenerateNoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","choices":[]}`)) //nolint:errcheck
	}))
	defer ts.Close()

	g := NewOpenAI(config.LLMConfig{Key: "k", BaseURL: ts.URL})
	_, err := g.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAI_GenerateHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	g := NewOpenAI(config.LLMConfig{Key: "k", BaseURL: ts.URL})
	_, err := g.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm: openai chat completion")
}

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func TestAnthropic_Generate(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == DefaultAnthropicModel &&
			req.MaxTokens == 512 &&
			len(req.Messages) == 1 &&
			req.Messages[0].Role == "user" &&
			req.Messages[0].Content == "prompt"
	})).Return(&anthropic.MessageResponse{
		Model:   DefaultAnthropicModel,
		Content: []anthropic.ContentBlock{{Type: "text", Text: `{"value":"N/A","chunk_id":null}`}},
		Usage:   anthropic.TokenUsage{InputTokens: 30, OutputTokens: 9},
	}, nil)

	g := NewAnthropicWithClient(client, config.LLMConfig{})
	resp, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"value":"N/A","chunk_id":null}`, resp.Text)
	assert.Equal(t, 30, resp.Usage.InputTokens)
	client.AssertExpectations(t)
}

func TestAnthropic_GenerateError(t *testing.T) {
	client := &mockAnthropic{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	g := NewAnthropicWithClient(client, config.LLMConfig{Model: "claude-haiku-4-5-20251001"})
	_, err := g.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm: anthropic message")
}

func TestGemini_Generate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": `["Acme Corp"]`}},
				},
				"finishReason": "STOP",
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 5, "candidatesTokenCount": 3},
		})
	}))
	defer ts.Close()

	g, err := NewGemini(context.Background(), config.LLMConfig{Key: "k", BaseURL: ts.URL})
	require.NoError(t, err)

	resp, err := g.Generate(context.Background(), "find orgs")
	require.NoError(t, err)
	assert.Equal(t, `["Acme Corp"]`, resp.Text)
	assert.Equal(t, DefaultGeminiModel, resp.Model)
	assert.Equal(t, 5, resp.Usage.InputTokens)
	assert.Equal(t, 3, resp.Usage.OutputTokens)
}
