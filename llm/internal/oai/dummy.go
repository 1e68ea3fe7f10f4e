package oai

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qiangli/lm/middleware"
	"github.com/qiangli/lm/tokenizer"
)

// dimension of fake embedding vectors
const dummyDimensions = 8

type dummyRequest struct {
	Model          string          `json:"model"`
	Prompt         json.RawMessage `json:"prompt"`
	Input          json.RawMessage `json:"input"`
	Stream         bool            `json:"stream"`
	ResponseFormat string          `json:"response_format"`
}

type dummyChoice struct {
	Text         string `json:"text"`
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason"`
}

type dummyUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens"`
}

type dummyCompletion struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []dummyChoice `json:"choices"`
	Usage   *dummyUsage   `json:"usage,omitempty"`
}

// Faker answers completion, embedding and image requests in the OpenAI
// wire format without calling the service.
func Faker(req *http.Request, content string) (*http.Response, error) {
	body, err := middleware.ReadBody(req)
	if err != nil {
		return nil, err
	}
	var in dummyRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &in); err != nil {
			return nil, err
		}
	}

	path := req.URL.Path
	switch {
	case strings.HasSuffix(path, "/completions"):
		if in.Stream {
			return dummyStream(req, &in, content)
		}
		return middleware.JSONResponse(req, dummyCompletionOf(&in, content))
	case strings.HasSuffix(path, "/embeddings"):
		return middleware.JSONResponse(req, dummyEmbeddings(&in))
	case strings.HasSuffix(path, "/images/generations"):
		return middleware.JSONResponse(req, dummyImages(&in, content))
	}
	return nil, fmt.Errorf("dry run: unsupported request %s %s", req.Method, path)
}

func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	return nil
}

func dummyUsageOf(prompt []string, content string) *dummyUsage {
	var h tokenizer.Heuristic
	var in int
	for _, p := range prompt {
		in += h.EstimateTokenCountInText(p)
	}
	out := h.EstimateTokenCountInText(content)
	return &dummyUsage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}
}

func dummyCompletionOf(in *dummyRequest, content string) *dummyCompletion {
	return &dummyCompletion{
		ID:      uuid.NewString(),
		Object:  "text_completion",
		Created: time.Now().Unix(),
		Model:   in.Model,
		Choices: []dummyChoice{
			{Text: content, Index: 0, FinishReason: "stop"},
		},
		Usage: dummyUsageOf(stringList(in.Prompt), content),
	}
}

func dummyStream(req *http.Request, in *dummyRequest, content string) (*http.Response, error) {
	id := uuid.NewString()
	now := time.Now().Unix()
	chunk := func(choices []dummyChoice, usage *dummyUsage) middleware.Event {
		return middleware.Event{Data: &dummyCompletion{
			ID:      id,
			Object:  "text_completion",
			Created: now,
			Model:   in.Model,
			Choices: choices,
			Usage:   usage,
		}}
	}

	var events []middleware.Event
	for _, c := range middleware.Chunks(content) {
		events = append(events, chunk([]dummyChoice{{Text: c}}, nil))
	}
	events = append(events, chunk([]dummyChoice{{FinishReason: "stop"}}, nil))
	events = append(events, chunk([]dummyChoice{}, dummyUsageOf(stringList(in.Prompt), content)))
	events = append(events, middleware.Event{Data: "[DONE]"})
	return middleware.SSEResponse(req, events)
}

type dummyEmbedding struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

func dummyEmbeddings(in *dummyRequest) any {
	texts := stringList(in.Input)
	var data []dummyEmbedding
	for i, t := range texts {
		data = append(data, dummyEmbedding{
			Object:    "embedding",
			Embedding: DummyVector(t, dummyDimensions),
			Index:     i,
		})
	}
	usage := dummyUsageOf(texts, "")
	return map[string]any{
		"object": "list",
		"model":  in.Model,
		"data":   data,
		"usage":  map[string]int{"prompt_tokens": usage.PromptTokens, "total_tokens": usage.TotalTokens},
	}
}

// DummyVector derives a stable pseudo random vector from text.
func DummyVector(text string, n int) []float64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()
	v := make([]float64, n)
	for i := range v {
		seed = seed*6364136223846793005 + 1442695040888963407
		v[i] = float64(seed>>40)/float64(1<<24)*2 - 1
	}
	return v
}

func dummyImages(in *dummyRequest, content string) any {
	img := map[string]string{"revised_prompt": content}
	if in.ResponseFormat == "b64_json" {
		img["b64_json"] = base64.StdEncoding.EncodeToString([]byte(content))
	} else {
		img["url"] = "https://dry-run.invalid/" + uuid.NewString() + ".png"
	}
	return map[string]any{
		"created": time.Now().Unix(),
		"data":    []map[string]string{img},
	}
}
