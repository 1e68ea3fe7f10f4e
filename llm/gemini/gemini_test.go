package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/llm"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	return req
}

func testConfig(baseURL string) Config {
	return Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
	}
}

func candidate(text, finish string) map[string]any {
	c := map[string]any{
		"content": map[string]any{
			"role":  "model",
			"parts": []map[string]any{{"text": text}},
		},
		"index": 0,
	}
	if finish != "" {
		c["finishReason"] = finish
	}
	return c
}

func TestGenerate(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))

		req := readBody(t, r)
		contents := req["contents"].([]any)
		require.Len(t, contents, 1)
		parts := contents[0].(map[string]any)["parts"].([]any)
		assert.Equal(t, "Say hi", parts[0].(map[string]any)["text"])

		gc := req["generationConfig"].(map[string]any)
		assert.Equal(t, 0.5, gc["temperature"])
		assert.Equal(t, float64(64), gc["maxOutputTokens"])
		assert.Equal(t, []any{"END"}, gc["stopSequences"])
		assert.NotContains(t, gc, "topP")
		assert.Contains(t, req, "systemInstruction")

		writeJSON(t, w, map[string]any{
			"candidates": []any{candidate("Hello!", "STOP")},
			"usageMetadata": map[string]any{
				"promptTokenCount":     3,
				"candidatesTokenCount": 2,
				"totalTokenCount":      5,
			},
		})
	})

	cfg := testConfig(srv.URL)
	cfg.Temperature = llm.Float(0.5)
	cfg.MaxTokens = llm.Int(64)
	cfg.Stop = []string{"END"}
	cfg.System = "be brief"

	m, err := New(context.Background(), cfg)
	require.NoError(t, err)

	resp, err := m.Generate(context.Background(), "Say hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", resp.Content)
	assert.Equal(t, api.FinishStop, resp.FinishReason)
	assert.Equal(t, &api.TokenUsage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}, resp.TokenUsage)
}

func TestGenerateSafety(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"candidates": []any{candidate("", "SAFETY")},
		})
	})

	m, err := New(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	resp, err := m.Generate(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, api.FinishContentFilter, resp.FinishReason)
	assert.Nil(t, resp.TokenUsage)
}

func TestGenerateEmpty(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"candidates": []any{}})
	})

	m, err := New(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), "anything")
	assert.ErrorIs(t, err, api.ErrEmptyResponse)
}

func TestGenerateVendorError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"bad prompt","status":"INVALID_ARGUMENT"}}`)
	})

	m, err := New(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	_, err = m.Generate(context.Background(), "anything")
	require.Error(t, err)

	var apiErr genai.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Code)
	assert.Equal(t, "bad prompt", apiErr.Message)
}

func writeSSE(w http.ResponseWriter, chunks ...any) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, c := range chunks {
		b, _ := json.Marshal(c)
		fmt.Fprintf(w, "data: %s\n\n", b)
	}
}

func TestStream(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))

		writeSSE(w,
			map[string]any{"candidates": []any{candidate("Hel", "")}},
			map[string]any{"candidates": []any{candidate("lo", "")}},
			map[string]any{
				"candidates": []any{candidate("!", "MAX_TOKENS")},
				"usageMetadata": map[string]any{
					"promptTokenCount":     4,
					"candidatesTokenCount": 3,
					"totalTokenCount":      7,
				},
			},
		)
	})

	m, err := New(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	var chunks []string
	resp, err := m.Stream(context.Background(), "Say hello", func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo", "!"}, chunks)
	assert.Equal(t, "Hello!", resp.Content)
	assert.Equal(t, api.FinishLength, resp.FinishReason)
	assert.Equal(t, 7, resp.TokenUsage.TotalTokens)
}

func TestStreamHandlerError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w,
			map[string]any{"candidates": []any{candidate("a", "")}},
			map[string]any{"candidates": []any{candidate("b", "STOP")}},
		)
	})

	m, err := New(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	stop := errors.New("stop")
	calls := 0
	_, err = m.Stream(context.Background(), "x", func(string) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestEmbed(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/text-embedding-004:batchEmbedContents", r.URL.Path)

		req := readBody(t, r)
		requests := req["requests"].([]any)
		require.Len(t, requests, 2)
		first := requests[0].(map[string]any)
		assert.Equal(t, "models/text-embedding-004", first["model"])
		assert.Equal(t, float64(4), first["outputDimensionality"])

		writeJSON(t, w, map[string]any{
			"embeddings": []any{
				map[string]any{"values": []float32{0.5, 0.25, 0, 1}},
				map[string]any{"values": []float32{1, 0, 0, 0}},
			},
		})
	})

	cfg := testConfig(srv.URL)
	cfg.EmbeddingDimensions = llm.Int(4)
	m, err := New(context.Background(), cfg)
	require.NoError(t, err)

	resp, err := m.Embed(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, []float32{0.5, 0.25, 0, 1}, resp.Embeddings[0].Vector)
	assert.Equal(t, 1, resp.Embeddings[1].Index)
	assert.Nil(t, resp.TokenUsage)
}

func TestEmbedEmpty(t *testing.T) {
	m, err := New(context.Background(), testConfig("http://127.0.0.1:0"))
	require.NoError(t, err)

	resp, err := m.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Embeddings)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"missing key", Config{}, "api_key"},
		{"bad backend", Config{APIKey: "k", Backend: "bard"}, "backend"},
		{"project on gemini", Config{APIKey: "k", Project: "p"}, "project"},
		{"vertex key and project", Config{APIKey: "k", Backend: BackendVertex, Project: "p", Location: "l"}, "api_key"},
		{"vertex without location", Config{Backend: BackendVertex, Project: "p"}, "project"},
		{"retries", Config{APIKey: "k", ClientOptions: llm.ClientOptions{MaxRetries: llm.Int(2)}}, "max_retries"},
		{"temperature", Config{APIKey: "k", Temperature: llm.Float(2.5)}, "temperature"},
		{"top_p", Config{APIKey: "k", TopP: llm.Float(-0.1)}, "top_p"},
		{"top_k", Config{APIKey: "k", TopK: llm.Int(0)}, "top_k"},
		{"max_tokens", Config{APIKey: "k", MaxTokens: llm.Int(-1)}, "max_tokens"},
		{"dimensions", Config{APIKey: "k", EmbeddingDimensions: llm.Int(0)}, "embedding_dimensions"},
		{"proxy", Config{APIKey: "k", ClientOptions: llm.ClientOptions{Proxy: &llm.ProxyConfig{URL: "ftp://proxy"}}}, "proxy.url"},
		{"vertex adc proxy", Config{Backend: BackendVertex, Project: "p", Location: "l", ClientOptions: llm.ClientOptions{Proxy: &llm.ProxyConfig{URL: "http://proxy:8080"}}}, "proxy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg)
			var cfgErr *api.ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestDryRun(t *testing.T) {
	cfg := Config{
		APIKey:  "test-key",
		BaseURL: "http://127.0.0.1:0",
		ClientOptions: llm.ClientOptions{
			DryRun:        true,
			DryRunContent: "fake gemini answer",
		},
	}
	m, err := New(context.Background(), cfg)
	require.NoError(t, err)

	resp, err := m.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "fake gemini answer", resp.Content)
	assert.Equal(t, api.FinishStop, resp.FinishReason)
	require.NotNil(t, resp.TokenUsage)
	assert.Positive(t, resp.TokenUsage.TotalTokens)

	var chunks []string
	resp, err = m.Stream(context.Background(), "hello", func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fake ", "gemini ", "answer"}, chunks)
	assert.Equal(t, "fake gemini answer", resp.Content)

	er, err := m.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, er.Embeddings, 3)
	assert.Len(t, er.Embeddings[0].Vector, dummyDimensions)
}

func TestFinishReason(t *testing.T) {
	assert.Equal(t, api.FinishReason(""), FinishReason(""))
	assert.Equal(t, api.FinishStop, FinishReason(genai.FinishReasonStop))
	assert.Equal(t, api.FinishLength, FinishReason(genai.FinishReasonMaxTokens))
	assert.Equal(t, api.FinishContentFilter, FinishReason(genai.FinishReasonRecitation))
	assert.Equal(t, api.FinishContentFilter, FinishReason(genai.FinishReasonProhibitedContent))
	assert.Equal(t, api.FinishOther, FinishReason(genai.FinishReasonMalformedFunctionCall))
	assert.Equal(t, api.FinishOther, FinishReason(genai.FinishReasonUnexpectedToolCall))
	assert.Equal(t, api.FinishOther, FinishReason(genai.FinishReasonLanguage))
}

func TestCapabilities(t *testing.T) {
	m, err := New(context.Background(), testConfig("http://127.0.0.1:0"))
	require.NoError(t, err)

	caps := m.Capabilities()
	assert.True(t, caps.Has(api.Embeddings))
	assert.False(t, caps.Has(api.ImageGeneration))
	assert.False(t, caps.Has(api.Reranking))
	assert.Equal(t, 40, m.EstimateTokenCount(string(make([]byte, 160))))
}

func TestDryRunWithoutCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"gemini", Config{}},
		{"vertex", Config{Backend: BackendVertex, Project: "p", Location: "l"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.DryRun = true
			cfg.DryRunContent = "offline"

			m, err := New(context.Background(), cfg)
			require.NoError(t, err)

			resp, err := m.Generate(context.Background(), "hello")
			require.NoError(t, err)
			assert.Equal(t, "offline", resp.Content)
		})
	}
}
