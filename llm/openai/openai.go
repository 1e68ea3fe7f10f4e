// Package openai adapts OpenAI completions, embeddings and image
// generation to the shared model interfaces.
package openai

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/llm/internal/oai"
	"github.com/qiangli/lm/log"
	"github.com/qiangli/lm/tokenizer"
)

const Provider = "openai"

var ProviderCapabilities = api.NewCapabilities(
	api.Completion,
	api.Streaming,
	api.Async,
	api.Embeddings,
	api.ImageGeneration,
)

// Model is safe for concurrent use.
type Model struct {
	client *openai.Client

	params oai.Params

	embedding openai.EmbeddingNewParams
	image     *oai.ImageOptions

	tokenizer api.Tokenizer
}

func New(cfg Config, opts ...Option) (*Model, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := o.client
	if client == nil {
		c, err := NewClient(&cfg)
		if err != nil {
			return nil, err
		}
		client = c
	}

	tk := o.tokenizer
	if tk == nil {
		tk = tokenizer.Default(cfg.ModelName)
	}

	embedding := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(cfg.EmbeddingModel),
	}
	if cfg.EmbeddingDimensions != nil {
		embedding.Dimensions = openai.Int(int64(*cfg.EmbeddingDimensions))
	}
	if cfg.User != "" {
		embedding.User = openai.String(cfg.User)
	}

	return &Model{
		client: client,
		params: oai.Params{
			Model:            cfg.ModelName,
			Temperature:      cfg.Temperature,
			TopP:             cfg.TopP,
			MaxTokens:        cfg.MaxTokens,
			PresencePenalty:  cfg.PresencePenalty,
			FrequencyPenalty: cfg.FrequencyPenalty,
			Seed:             cfg.Seed,
			Stop:             cfg.Stop,
			User:             cfg.User,
			IncludeUsage:     true,
		},
		embedding: embedding,
		image:     cfg.imageOptions(),
		tokenizer: tk,
	}, nil
}

func NewClient(cfg *Config) (*openai.Client, error) {
	key := cfg.DryRunKey(cfg.APIKey)
	if key == "" {
		return nil, api.NewConfigError("api_key", "is required")
	}
	if err := cfg.ClientOptions.Validate(); err != nil {
		return nil, err
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMiddleware(cfg.Middleware(Provider, oai.Faker)),
	}
	if cfg.Organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.Organization))
	}
	if cfg.Project != "" {
		reqOpts = append(reqOpts, option.WithProject(cfg.Project))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries != nil {
		reqOpts = append(reqOpts, option.WithMaxRetries(*cfg.MaxRetries))
	}
	hc, err := cfg.HTTPClient()
	if err != nil {
		return nil, err
	}
	if hc != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(hc))
	}
	for k, v := range cfg.Headers {
		reqOpts = append(reqOpts, option.WithHeader(k, v))
	}

	client := openai.NewClient(reqOpts...)
	return &client, nil
}

func (r *Model) ModelName() string {
	return r.params.Model
}

func (r *Model) Generate(ctx context.Context, prompt string) (*api.Response, error) {
	log.GetLogger(ctx).Debugf(">OPENAI:\n model: %s prompt: %v\n", r.params.Model, len(prompt))

	resp, err := oai.Generate(ctx, r.client, r.params.CompletionParams(prompt))

	log.GetLogger(ctx).Debugf("<OPENAI:\n resp: %+v err: %v\n", resp, err)
	return resp, err
}

func (r *Model) Stream(ctx context.Context, prompt string, handler api.StreamHandler) (*api.Response, error) {
	log.GetLogger(ctx).Debugf(">OPENAI stream:\n model: %s prompt: %v\n", r.params.Model, len(prompt))

	resp, err := oai.Stream(ctx, r.client, r.params.CompletionParams(prompt), r.params.IncludeUsage, handler)

	log.GetLogger(ctx).Debugf("<OPENAI stream:\n resp: %+v err: %v\n", resp, err)
	return resp, err
}

func (r *Model) EstimateTokenCount(prompt string) int {
	return r.tokenizer.EstimateTokenCountInText(prompt)
}

func (r *Model) Embed(ctx context.Context, texts []string) (*api.EmbeddingResponse, error) {
	log.GetLogger(ctx).Debugf(">OPENAI:\n embed model: %s texts: %v\n", r.embedding.Model, len(texts))
	return oai.Embed(ctx, r.client, r.embedding, texts)
}

func (r *Model) GenerateImage(ctx context.Context, prompt string) (*api.ImageResponse, error) {
	log.GetLogger(ctx).Debugf(">OPENAI:\n image-gen %s\n", r.image)

	params, err := r.image.Params(prompt)
	if err != nil {
		return nil, err
	}
	return oai.GenerateImage(ctx, r.client, params)
}

func (r *Model) Capabilities() api.Capabilities {
	return api.NewCapabilities(ProviderCapabilities.List()...)
}
