package oai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/middleware"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithBaseURL(srv.URL+"/v1"),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return &client
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

func float(v float64) *float64 { return &v }

func TestGenerate(t *testing.T) {
	maxTokens := 16
	params := &Params{
		Model:       "gpt-3.5-turbo-instruct",
		Temperature: float(0.7),
		MaxTokens:   &maxTokens,
		Stop:        []string{"\n"},
	}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		req := readBody(t, r)
		assert.Equal(t, "gpt-3.5-turbo-instruct", req["model"])
		assert.Equal(t, []any{"Say hi"}, req["prompt"])
		assert.Equal(t, 0.7, req["temperature"])
		assert.Equal(t, float64(16), req["max_tokens"])
		assert.Equal(t, []any{"\n"}, req["stop"])
		assert.NotContains(t, req, "top_p")
		assert.NotContains(t, req, "presence_penalty")
		assert.NotContains(t, req, "user")

		writeJSON(t, w, map[string]any{
			"id":     "cmpl-1",
			"object": "text_completion",
			"model":  "gpt-3.5-turbo-instruct",
			"choices": []map[string]any{
				{"text": "Hi!", "index": 0, "finish_reason": "length"},
			},
			"usage": map[string]any{"prompt_tokens": 2, "completion_tokens": 3, "total_tokens": 5},
		})
	})

	resp, err := Generate(context.Background(), client, params.CompletionParams("Say hi"))
	require.NoError(t, err)
	assert.Equal(t, "Hi!", resp.Content)
	assert.Equal(t, api.FinishLength, resp.FinishReason)
	assert.Equal(t, &api.TokenUsage{InputTokens: 2, OutputTokens: 3, TotalTokens: 5}, resp.TokenUsage)
}

func TestGenerateEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"id": "x", "choices": []any{}})
	})

	p := &Params{Model: "m"}
	_, err := Generate(context.Background(), client, p.CompletionParams("x"))
	assert.ErrorIs(t, err, api.ErrEmptyResponse)
}

func TestGenerateVendorError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`)
	})

	p := &Params{Model: "m"}
	_, err := Generate(context.Background(), client, p.CompletionParams("x"))
	var apiErr *openai.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func writeSSE(w http.ResponseWriter, chunks ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, c := range chunks {
		fmt.Fprintf(w, "data: %s\n\n", c)
	}
}

func TestStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)
		assert.Equal(t, true, req["stream"])
		assert.Equal(t, map[string]any{"include_usage": true}, req["stream_options"])

		writeSSE(w,
			`{"id":"1","object":"text_completion","model":"m","choices":[{"text":"Hel","index":0,"finish_reason":null}]}`,
			`{"id":"1","object":"text_completion","model":"m","choices":[{"text":"lo","index":0,"finish_reason":null}]}`,
			`{"id":"1","object":"text_completion","model":"m","choices":[{"text":"","index":0,"finish_reason":"stop"}]}`,
			`{"id":"1","object":"text_completion","model":"m","choices":[],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`,
			`[DONE]`,
		)
	})

	var chunks []string
	p := &Params{Model: "m"}
	resp, err := Stream(context.Background(), client, p.CompletionParams("x"), true, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, chunks)
	assert.Equal(t, "Hello", resp.Content)
	assert.Equal(t, strings.Join(chunks, ""), resp.Content)
	assert.Equal(t, api.FinishStop, resp.FinishReason)
	assert.Equal(t, &api.TokenUsage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3}, resp.TokenUsage)
}

func TestStreamHandlerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w,
			`{"id":"1","choices":[{"text":"a","index":0}]}`,
			`{"id":"1","choices":[{"text":"b","index":0}]}`,
			`[DONE]`,
		)
	})

	stop := errors.New("stop")
	p := &Params{Model: "m"}
	_, err := Stream(context.Background(), client, p.CompletionParams("x"), false, func(c string) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)
}

func TestEmbed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		req := readBody(t, r)
		assert.Equal(t, []any{"a", "b"}, req["input"])
		assert.Equal(t, "text-embedding-3-small", req["model"])

		writeJSON(t, w, map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float64{0.5, 1}},
				{"object": "embedding", "index": 1, "embedding": []float64{-1, 0.25}},
			},
			"usage": map[string]any{"prompt_tokens": 2, "total_tokens": 2},
		})
	})

	resp, err := Embed(context.Background(), client, openai.EmbeddingNewParams{Model: "text-embedding-3-small"}, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, []float32{0.5, 1}, resp.Embeddings[0].Vector)
	assert.Equal(t, 1, resp.Embeddings[1].Index)
	assert.Equal(t, 2, resp.TokenUsage.InputTokens)

	resp, err = Embed(context.Background(), client, openai.EmbeddingNewParams{}, nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Embeddings)
}

func TestGenerateImage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		req := readBody(t, r)
		assert.Equal(t, "dall-e-3", req["model"])
		assert.Equal(t, "1024x1024", req["size"])
		assert.Equal(t, "hd", req["quality"])
		assert.Equal(t, "natural", req["style"])

		writeJSON(t, w, map[string]any{
			"created": 1,
			"data": []map[string]any{
				{"url": "https://img/1.png", "revised_prompt": "a cat"},
			},
		})
	})

	opts := &ImageOptions{Model: "dall-e-3", Quality: "hd"}
	params, err := opts.Params("cat")
	require.NoError(t, err)
	resp, err := GenerateImage(context.Background(), client, params)
	require.NoError(t, err)
	require.Len(t, resp.Images, 1)
	assert.Equal(t, "https://img/1.png", resp.Images[0].URL)
	assert.Equal(t, "a cat", resp.Images[0].RevisedPrompt)
}

func TestImageOptionsValidate(t *testing.T) {
	assert.NoError(t, (&ImageOptions{}).Validate())

	err := (&ImageOptions{Size: "10x10"}).Validate()
	var ce *api.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "image_size", ce.Field)
}

func TestFinishReason(t *testing.T) {
	assert.Equal(t, api.FinishReason(""), FinishReason(""))
	assert.Equal(t, api.FinishStop, FinishReason("stop"))
	assert.Equal(t, api.FinishLength, FinishReason("length"))
	assert.Equal(t, api.FinishContentFilter, FinishReason("content_filter"))
	assert.Equal(t, api.FinishToolExecution, FinishReason("tool_calls"))
	assert.Equal(t, api.FinishOther, FinishReason("unknown"))
}

func newDryRunClient() *openai.Client {
	mw := middleware.New(middleware.Config{
		Provider:      "openai",
		DryRun:        true,
		DryRunContent: "dry run reply",
		Faker:         Faker,
	})
	client := openai.NewClient(
		option.WithBaseURL("http://dry-run.invalid/v1"),
		option.WithAPIKey("k"),
		option.WithMaxRetries(0),
		option.WithMiddleware(mw),
	)
	return &client
}

func TestFakerCompletion(t *testing.T) {
	client := newDryRunClient()
	p := &Params{Model: "m"}

	resp, err := Generate(context.Background(), client, p.CompletionParams("hello there"))
	require.NoError(t, err)
	assert.Equal(t, "dry run reply", resp.Content)
	assert.Equal(t, api.FinishStop, resp.FinishReason)
	require.NotNil(t, resp.TokenUsage)
	assert.Equal(t, 3, resp.TokenUsage.InputTokens)

	var chunks []string
	resp, err = Stream(context.Background(), client, p.CompletionParams("hello"), true, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dry ", "run ", "reply"}, chunks)
	assert.Equal(t, "dry run reply", resp.Content)
	assert.Equal(t, api.FinishStop, resp.FinishReason)
	assert.NotNil(t, resp.TokenUsage)
}

func TestFakerEmbeddingsAndImages(t *testing.T) {
	client := newDryRunClient()

	er, err := Embed(context.Background(), client, openai.EmbeddingNewParams{Model: "e"}, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, er.Embeddings, 2)
	assert.Len(t, er.Embeddings[0].Vector, dummyDimensions)
	assert.NotEqual(t, er.Embeddings[0].Vector, er.Embeddings[1].Vector)

	opts := &ImageOptions{Model: "dall-e-3", ResponseFormat: "b64_json"}
	params, err := opts.Params("cat")
	require.NoError(t, err)
	ir, err := GenerateImage(context.Background(), client, params)
	require.NoError(t, err)
	require.Len(t, ir.Images, 1)
	assert.NotEmpty(t, ir.Images[0].Base64)
	assert.Empty(t, ir.Images[0].URL)
}

func TestDummyVectorStable(t *testing.T) {
	assert.Equal(t, DummyVector("x", 4), DummyVector("x", 4))
	for _, v := range DummyVector("x", 16) {
		assert.True(t, v >= -1 && v <= 1)
	}
}
