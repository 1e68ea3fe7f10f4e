package oai

import (
	"context"

	"github.com/openai/openai-go"

	"github.com/qiangli/lm/api"
)

func Embed(ctx context.Context, client *openai.Client, params openai.EmbeddingNewParams, texts []string) (*api.EmbeddingResponse, error) {
	if len(texts) == 0 {
		return &api.EmbeddingResponse{}, nil
	}
	params.Input = openai.EmbeddingNewParamsInputUnion{
		OfArrayOfStrings: texts,
	}

	resp, err := client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, api.ErrEmptyResponse
	}

	result := &api.EmbeddingResponse{}
	for _, d := range resp.Data {
		vector := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vector[i] = float32(v)
		}
		result.Embeddings = append(result.Embeddings, api.Embedding{
			Vector: vector,
			Index:  int(d.Index),
		})
	}
	if resp.Usage.TotalTokens > 0 {
		result.TokenUsage = &api.TokenUsage{
			InputTokens: int(resp.Usage.PromptTokens),
			TotalTokens: int(resp.Usage.TotalTokens),
		}
	}
	return result, nil
}
