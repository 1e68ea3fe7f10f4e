// Package oai maps openai-go completions, embeddings and images onto the
// shared response types. It backs both the OpenAI and Azure OpenAI adapters.
package oai

import (
	"context"
	"strings"

	"github.com/openai/openai-go"

	"github.com/qiangli/lm/api"
)

// Params are the sampling settings of a completion request.
// nil fields are not sent.
type Params struct {
	Model            string
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
	Seed             *int64
	Stop             []string
	User             string

	// ask for a final usage chunk when streaming
	IncludeUsage bool
}

func (r *Params) CompletionParams(prompt string) openai.CompletionNewParams {
	params := openai.CompletionNewParams{
		Model: openai.CompletionNewParamsModel(r.Model),
		Prompt: openai.CompletionNewParamsPromptUnion{
			OfArrayOfStrings: []string{prompt},
		},
	}
	if r.Temperature != nil {
		params.Temperature = openai.Float(*r.Temperature)
	}
	if r.TopP != nil {
		params.TopP = openai.Float(*r.TopP)
	}
	if r.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*r.MaxTokens))
	}
	if r.PresencePenalty != nil {
		params.PresencePenalty = openai.Float(*r.PresencePenalty)
	}
	if r.FrequencyPenalty != nil {
		params.FrequencyPenalty = openai.Float(*r.FrequencyPenalty)
	}
	if r.Seed != nil {
		params.Seed = openai.Int(*r.Seed)
	}
	if len(r.Stop) > 0 {
		params.Stop = openai.CompletionNewParamsStopUnion{
			OfStringArray: r.Stop,
		}
	}
	if r.User != "" {
		params.User = openai.String(r.User)
	}
	return params
}

func Generate(ctx context.Context, client *openai.Client, params openai.CompletionNewParams) (*api.Response, error) {
	resp, err := client.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, api.ErrEmptyResponse
	}
	choice := resp.Choices[0]
	return &api.Response{
		Content:      choice.Text,
		TokenUsage:   toUsage(resp.Usage),
		FinishReason: FinishReason(string(choice.FinishReason)),
	}, nil
}

// Stream sends each text delta of the first choice to handler and returns
// the aggregated response.
func Stream(ctx context.Context, client *openai.Client, params openai.CompletionNewParams, includeUsage bool, handler api.StreamHandler) (*api.Response, error) {
	if includeUsage {
		params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		}
	}

	stream := client.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var sb strings.Builder
	var resp api.Response
	var seen bool

	for stream.Next() {
		chunk := stream.Current()
		if u := toUsage(chunk.Usage); u != nil {
			resp.TokenUsage = u
		}
		for _, choice := range chunk.Choices {
			if choice.Index != 0 {
				continue
			}
			seen = true
			if choice.Text != "" {
				sb.WriteString(choice.Text)
				if handler != nil {
					if err := handler(choice.Text); err != nil {
						return nil, err
					}
				}
			}
			if choice.FinishReason != "" {
				resp.FinishReason = FinishReason(string(choice.FinishReason))
			}
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	if !seen {
		return nil, api.ErrEmptyResponse
	}

	resp.Content = sb.String()
	return &resp, nil
}

func toUsage(u openai.CompletionUsage) *api.TokenUsage {
	if u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0 {
		return nil
	}
	return &api.TokenUsage{
		InputTokens:  int(u.PromptTokens),
		OutputTokens: int(u.CompletionTokens),
		TotalTokens:  int(u.TotalTokens),
	}
}

func FinishReason(s string) api.FinishReason {
	switch s {
	case "":
		return ""
	case "stop":
		return api.FinishStop
	case "length":
		return api.FinishLength
	case "content_filter":
		return api.FinishContentFilter
	case "tool_calls", "function_call":
		return api.FinishToolExecution
	default:
		return api.FinishOther
	}
}
