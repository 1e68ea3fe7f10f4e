// Package azure adapts Azure OpenAI completions to the shared model
// interfaces using the openai-go SDK.
package azure

import (
	"context"

	"github.com/openai/openai-go"
	oaiazure "github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/llm"
	"github.com/qiangli/lm/llm/internal/oai"
	"github.com/qiangli/lm/log"
	"github.com/qiangli/lm/tokenizer"
)

const Provider = "azure"

// Model is safe for concurrent use.
type Model struct {
	client *openai.Client

	endpoint string
	params   oai.Params

	tokenizer api.Tokenizer

	embeddingDeployment string
	imageDeployment     string
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
		c, err := newClient(&cfg, &o)
		if err != nil {
			return nil, err
		}
		client = c
	}

	tk := o.tokenizer
	if tk == nil {
		tk = tokenizer.Default(DefaultTokenizerModel)
	}

	return &Model{
		client:   client,
		endpoint: cfg.Endpoint,
		params: oai.Params{
			Model:            cfg.DeploymentName,
			Temperature:      cfg.Temperature,
			TopP:             cfg.TopP,
			MaxTokens:        cfg.MaxTokens,
			PresencePenalty:  cfg.PresencePenalty,
			FrequencyPenalty: cfg.FrequencyPenalty,
			Stop:             cfg.Stop,
			User:             cfg.User,
		},
		tokenizer:           tk,
		embeddingDeployment: o.embeddingDeployment,
		imageDeployment:     o.imageDeployment,
	}, nil
}

// newClient picks the credential in order: token credential, non Azure key,
// Azure key.
func newClient(cfg *Config, o *options) (*openai.Client, error) {
	if err := cfg.ClientOptions.Validate(); err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" && cfg.DryRun {
		endpoint = llm.DryRunEndpoint
	}

	var reqOpts []option.RequestOption
	switch {
	case o.credential != nil:
		if endpoint == "" {
			return nil, api.NewConfigError("endpoint", "is required")
		}
		reqOpts = append(reqOpts,
			oaiazure.WithEndpoint(endpoint, cfg.ServiceVersion),
			oaiazure.WithTokenCredential(o.credential),
		)
	case cfg.NonAzureAPIKey != "":
		reqOpts = append(reqOpts,
			option.WithBaseURL(cfg.Endpoint),
			option.WithAPIKey(cfg.NonAzureAPIKey),
		)
	case cfg.DryRunKey(cfg.APIKey) != "":
		if endpoint == "" {
			return nil, api.NewConfigError("endpoint", "is required")
		}
		reqOpts = append(reqOpts,
			oaiazure.WithEndpoint(endpoint, cfg.ServiceVersion),
			oaiazure.WithAPIKey(cfg.DryRunKey(cfg.APIKey)),
			// OPENAI_API_KEY from the environment must not leak to Azure
			option.WithHeaderDel("Authorization"),
		)
	default:
		return nil, api.NewConfigError("api_key", "one of api_key, non_azure_api_key or a token credential is required")
	}

	reqOpts = append(reqOpts, option.WithMiddleware(cfg.Middleware(Provider, oai.Faker)))

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

func (r *Model) DeploymentName() string {
	return r.params.Model
}

func (r *Model) Endpoint() string {
	return r.endpoint
}

func (r *Model) Generate(ctx context.Context, prompt string) (*api.Response, error) {
	log.GetLogger(ctx).Debugf(">>>AZURE:\n deployment: %s prompt: %v\n\n", r.params.Model, len(prompt))

	resp, err := oai.Generate(ctx, r.client, r.params.CompletionParams(prompt))
	if err != nil {
		log.GetLogger(ctx).Errorf("***AZURE: %s\n\n", err)
		return nil, err
	}

	log.GetLogger(ctx).Debugf("<<<AZURE:\n finish: %s content: %v\n\n", resp.FinishReason, len(resp.Content))
	return resp, nil
}

func (r *Model) Stream(ctx context.Context, prompt string, handler api.StreamHandler) (*api.Response, error) {
	log.GetLogger(ctx).Debugf(">>>AZURE stream:\n deployment: %s prompt: %v\n\n", r.params.Model, len(prompt))

	resp, err := oai.Stream(ctx, r.client, r.params.CompletionParams(prompt), false, handler)
	if err != nil {
		log.GetLogger(ctx).Errorf("***AZURE: %s\n\n", err)
		return nil, err
	}
	return resp, nil
}

func (r *Model) EstimateTokenCount(prompt string) int {
	return r.tokenizer.EstimateTokenCountInText(prompt)
}

func (r *Model) Embed(ctx context.Context, texts []string) (*api.EmbeddingResponse, error) {
	if r.embeddingDeployment == "" {
		return nil, api.NewUnsupportedError("azure embeddings: no embedding deployment configured")
	}
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(r.embeddingDeployment),
	}
	if r.params.User != "" {
		params.User = openai.String(r.params.User)
	}
	return oai.Embed(ctx, r.client, params, texts)
}

func (r *Model) GenerateImage(ctx context.Context, prompt string) (*api.ImageResponse, error) {
	if r.imageDeployment == "" {
		return nil, api.NewUnsupportedError("azure images: no image deployment configured")
	}
	opts := &oai.ImageOptions{
		Model: r.imageDeployment,
		User:  r.params.User,
	}
	params, err := opts.Params(prompt)
	if err != nil {
		return nil, err
	}
	return oai.GenerateImage(ctx, r.client, params)
}

func (r *Model) Capabilities() api.Capabilities {
	caps := api.NewCapabilities(api.Completion, api.Streaming, api.Async)
	if r.embeddingDeployment != "" {
		caps[api.Embeddings] = true
	}
	if r.imageDeployment != "" {
		caps[api.ImageGeneration] = true
	}
	return caps
}

// ProviderCapabilities of a fully configured Azure model.
var ProviderCapabilities = api.NewCapabilities(
	api.Completion,
	api.Streaming,
	api.Async,
	api.Embeddings,
	api.ImageGeneration,
)
