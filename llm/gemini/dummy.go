package gemini

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/qiangli/lm/llm/internal/oai"
	"github.com/qiangli/lm/middleware"
	"github.com/qiangli/lm/tokenizer"
)

const dummyDimensions = 8

type dummyContent struct {
	Parts []struct {
		Text string `json:"text"`
	} `json:"parts"`
}

func (r *dummyContent) text() string {
	var sb strings.Builder
	for _, p := range r.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

type dummyRequest struct {
	Contents []dummyContent `json:"contents"`

	// batchEmbedContents
	Requests []struct {
		Content              dummyContent `json:"content"`
		OutputDimensionality int          `json:"outputDimensionality"`
	} `json:"requests"`

	// vertex predict
	Instances []struct {
		Content string `json:"content"`
	} `json:"instances"`
	Parameters struct {
		OutputDimensionality int `json:"outputDimensionality"`
	} `json:"parameters"`
}

// Faker answers generateContent, streamGenerateContent and embedding
// requests in the Gen AI wire format.
func Faker(req *http.Request, content string) (*http.Response, error) {
	body, err := middleware.ReadBody(req)
	if err != nil {
		return nil, err
	}
	var in dummyRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, err
	}

	path := req.URL.Path
	switch {
	case strings.HasSuffix(path, ":generateContent"):
		return middleware.JSONResponse(req, dummyGeneration(&in, content, content, true))
	case strings.HasSuffix(path, ":streamGenerateContent"):
		var events []middleware.Event
		chunks := middleware.Chunks(content)
		for i, c := range chunks {
			events = append(events, middleware.Event{
				Data: dummyGeneration(&in, c, content, i == len(chunks)-1),
			})
		}
		if len(events) == 0 {
			events = append(events, middleware.Event{Data: dummyGeneration(&in, "", content, true)})
		}
		return middleware.SSEResponse(req, events)
	case strings.HasSuffix(path, ":batchEmbedContents"):
		var embeddings []map[string]any
		for _, r := range in.Requests {
			embeddings = append(embeddings, map[string]any{
				"values": dummyVector(r.Content.text(), r.OutputDimensionality),
			})
		}
		return middleware.JSONResponse(req, map[string]any{"embeddings": embeddings})
	case strings.HasSuffix(path, ":predict"):
		var h tokenizer.Heuristic
		var predictions []map[string]any
		for _, r := range in.Instances {
			predictions = append(predictions, map[string]any{
				"embeddings": map[string]any{
					"values":     dummyVector(r.Content, in.Parameters.OutputDimensionality),
					"statistics": map[string]any{"token_count": h.EstimateTokenCountInText(r.Content)},
				},
			})
		}
		return middleware.JSONResponse(req, map[string]any{"predictions": predictions})
	}
	return nil, fmt.Errorf("dry run: unsupported request %s %s", req.Method, path)
}

func dummyGeneration(in *dummyRequest, text, content string, last bool) map[string]any {
	var prompt strings.Builder
	for _, c := range in.Contents {
		prompt.WriteString(c.text())
	}

	var h tokenizer.Heuristic
	inTokens := h.EstimateTokenCountInText(prompt.String())
	outTokens := h.EstimateTokenCountInText(content)

	candidate := map[string]any{
		"content": map[string]any{
			"role":  "model",
			"parts": []map[string]any{{"text": text}},
		},
		"index": 0,
	}
	if last {
		candidate["finishReason"] = "STOP"
	}
	return map[string]any{
		"candidates": []map[string]any{candidate},
		"usageMetadata": map[string]any{
			"promptTokenCount":     inTokens,
			"candidatesTokenCount": outTokens,
			"totalTokenCount":      inTokens + outTokens,
		},
	}
}

func dummyVector(text string, n int) []float32 {
	if n <= 0 {
		n = dummyDimensions
	}
	v64 := oai.DummyVector(text, n)
	v := make([]float32, n)
	for i, f := range v64 {
		v[i] = float32(f)
	}
	return v
}
