package anthropic

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/qiangli/lm/middleware"
	"github.com/qiangli/lm/tokenizer"
)

type dummyRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func (r *dummyRequest) prompt() string {
	var sb strings.Builder
	for _, m := range r.Messages {
		for _, c := range m.Content {
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}

// Faker answers Messages requests in the Anthropic wire format.
func Faker(req *http.Request, content string) (*http.Response, error) {
	if !strings.HasSuffix(req.URL.Path, "/messages") {
		return nil, fmt.Errorf("dry run: unsupported request %s %s", req.Method, req.URL.Path)
	}
	body, err := middleware.ReadBody(req)
	if err != nil {
		return nil, err
	}
	var in dummyRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, err
	}

	var h tokenizer.Heuristic
	inTokens := h.EstimateTokenCountInText(in.prompt())
	outTokens := h.EstimateTokenCountInText(content)
	id := "msg_" + uuid.NewString()

	if !in.Stream {
		return middleware.JSONResponse(req, map[string]any{
			"id":            id,
			"type":          "message",
			"role":          "assistant",
			"model":         in.Model,
			"content":       []map[string]any{{"type": "text", "text": content}},
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": inTokens, "output_tokens": outTokens},
		})
	}

	events := []middleware.Event{
		{Name: "message_start", Data: map[string]any{
			"type": "message_start",
			"message": map[string]any{
				"id":            id,
				"type":          "message",
				"role":          "assistant",
				"model":         in.Model,
				"content":       []any{},
				"stop_reason":   nil,
				"stop_sequence": nil,
				"usage":         map[string]any{"input_tokens": inTokens, "output_tokens": 1},
			},
		}},
		{Name: "content_block_start", Data: map[string]any{
			"type":          "content_block_start",
			"index":         0,
			"content_block": map[string]any{"type": "text", "text": ""},
		}},
		{Name: "ping", Data: map[string]any{"type": "ping"}},
	}
	for _, c := range middleware.Chunks(content) {
		events = append(events, middleware.Event{Name: "content_block_delta", Data: map[string]any{
			"type":  "content_block_delta",
			"index": 0,
			"delta": map[string]any{"type": "text_delta", "text": c},
		}})
	}
	events = append(events,
		middleware.Event{Name: "content_block_stop", Data: map[string]any{"type": "content_block_stop", "index": 0}},
		middleware.Event{Name: "message_delta", Data: map[string]any{
			"type":  "message_delta",
			"delta": map[string]any{"stop_reason": "end_turn", "stop_sequence": nil},
			"usage": map[string]any{"output_tokens": outTokens},
		}},
		middleware.Event{Name: "message_stop", Data: map[string]any{"type": "message_stop"}},
	)
	return middleware.SSEResponse(req, events)
}
