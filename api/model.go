package api

import (
	"context"
)

// StreamHandler receives each partial text chunk in arrival order.
// A non nil error aborts the stream.
type StreamHandler func(chunk string) error

// LanguageModel turns a single prompt into one completion.
type LanguageModel interface {
	Generate(ctx context.Context, prompt string) (*Response, error)
}

// StreamingLanguageModel streams a completion and returns the aggregated
// response once the vendor stream ends.
type StreamingLanguageModel interface {
	Stream(ctx context.Context, prompt string, handler StreamHandler) (*Response, error)
}

type TokenCountEstimator interface {
	EstimateTokenCount(prompt string) int
}

type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) (*EmbeddingResponse, error)
}

type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string) (*ImageResponse, error)
}

type CapabilityReporter interface {
	Capabilities() Capabilities
}

// Tokenizer counts tokens of an arbitrary text.
type Tokenizer interface {
	EstimateTokenCountInText(text string) int
}
