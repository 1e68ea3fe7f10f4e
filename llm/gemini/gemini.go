// Package gemini adapts the Google Gen AI SDK, for both the Gemini API and
// Vertex AI, to the shared model interfaces.
package gemini

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/log"
	"github.com/qiangli/lm/middleware"
	"github.com/qiangli/lm/tokenizer"
)

const Provider = "gemini"

var ProviderCapabilities = api.NewCapabilities(
	api.Completion,
	api.Streaming,
	api.Async,
	api.Embeddings,
)

// Model is safe for concurrent use.
type Model struct {
	client *genai.Client
	cfg    Config

	generation *genai.GenerateContentConfig
	embedding  *genai.EmbedContentConfig

	tokenizer api.Tokenizer
}

func New(ctx context.Context, cfg Config, opts ...Option) (*Model, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client, err := NewClient(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	tk := o.tokenizer
	if tk == nil {
		tk = tokenizer.Heuristic{}
	}

	embedding := &genai.EmbedContentConfig{}
	if cfg.EmbeddingDimensions != nil {
		embedding.OutputDimensionality = genai.Ptr(int32(*cfg.EmbeddingDimensions))
	}

	return &Model{
		client:     client,
		cfg:        cfg,
		generation: cfg.generationConfig(),
		embedding:  embedding,
		tokenizer:  tk,
	}, nil
}

// NewClient creates a client for the configured backend.
// Vertex AI without an api key authenticates with application default
// credentials; the SDK owns that HTTP client so requests bypass the
// logging and metrics pipeline. Dry run needs no credentials.
func NewClient(ctx context.Context, cfg *Config) (*genai.Client, error) {
	if err := cfg.ClientOptions.Validate(); err != nil {
		return nil, err
	}

	cc := &genai.ClientConfig{
		APIKey:   cfg.APIKey,
		Backend:  genai.BackendGeminiAPI,
		Project:  cfg.Project,
		Location: cfg.Location,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	}
	if cfg.Backend == BackendVertex {
		cc.Backend = genai.BackendVertexAI
	} else {
		cc.APIKey = cfg.DryRunKey(cfg.APIKey)
	}
	if cfg.Timeout > 0 {
		cc.HTTPOptions.Timeout = genai.Ptr(cfg.Timeout)
	}
	if len(cfg.Headers) > 0 {
		cc.HTTPOptions.Headers = make(http.Header)
		for k, v := range cfg.Headers {
			cc.HTTPOptions.Headers.Set(k, v)
		}
	}

	// a caller supplied HTTP client also keeps genai from looking up
	// default credentials, so dry run works without them
	adc := cfg.Backend == BackendVertex && cfg.APIKey == "" && !cfg.DryRun
	if adc {
		if cfg.Proxy != nil {
			return nil, api.NewConfigError("proxy", "is not supported with application default credentials")
		}
	} else {
		hc, err := cfg.HTTPClient()
		if err != nil {
			return nil, err
		}
		var base http.RoundTripper = http.DefaultTransport
		if hc != nil {
			base = hc.Transport
		}
		cc.HTTPClient = &http.Client{
			Transport: middleware.Transport(base, cfg.Middleware(Provider, Faker)),
		}
	}

	return genai.NewClient(ctx, cc)
}

func (r *Config) generationConfig() *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{}
	if r.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(r.System, genai.RoleUser)
	}
	if r.Temperature != nil {
		gc.Temperature = genai.Ptr(float32(*r.Temperature))
	}
	if r.TopP != nil {
		gc.TopP = genai.Ptr(float32(*r.TopP))
	}
	if r.TopK != nil {
		gc.TopK = genai.Ptr(float32(*r.TopK))
	}
	if r.MaxTokens != nil {
		gc.MaxOutputTokens = int32(*r.MaxTokens)
	}
	if r.PresencePenalty != nil {
		gc.PresencePenalty = genai.Ptr(float32(*r.PresencePenalty))
	}
	if r.FrequencyPenalty != nil {
		gc.FrequencyPenalty = genai.Ptr(float32(*r.FrequencyPenalty))
	}
	if r.Seed != nil {
		gc.Seed = genai.Ptr(int32(*r.Seed))
	}
	if len(r.Stop) > 0 {
		gc.StopSequences = r.Stop
	}
	return gc
}

func (r *Model) ModelName() string {
	return r.cfg.ModelName
}

func (r *Model) Backend() string {
	return r.cfg.Backend
}

func (r *Model) Generate(ctx context.Context, prompt string) (*api.Response, error) {
	log.GetLogger(ctx).Debugf(">GEMINI:\n model: %s prompt: %v\n", r.cfg.ModelName, len(prompt))

	result, err := r.client.Models.GenerateContent(ctx, r.cfg.ModelName, genai.Text(prompt), r.generation)
	if err != nil {
		log.GetLogger(ctx).Errorf("***GEMINI: %s\n", err)
		return nil, err
	}
	if len(result.Candidates) == 0 {
		return nil, api.ErrEmptyResponse
	}

	resp := &api.Response{
		Content:      result.Text(),
		TokenUsage:   toUsage(result.UsageMetadata),
		FinishReason: FinishReason(result.Candidates[0].FinishReason),
	}

	log.GetLogger(ctx).Debugf("<GEMINI:\n resp: %+v\n", resp)
	return resp, nil
}

func (r *Model) Stream(ctx context.Context, prompt string, handler api.StreamHandler) (*api.Response, error) {
	log.GetLogger(ctx).Debugf(">GEMINI stream:\n model: %s prompt: %v\n", r.cfg.ModelName, len(prompt))

	var (
		sb     strings.Builder
		resp   api.Response
		chunks int
	)
	for result, err := range r.client.Models.GenerateContentStream(ctx, r.cfg.ModelName, genai.Text(prompt), r.generation) {
		if err != nil {
			log.GetLogger(ctx).Errorf("***GEMINI: %s\n", err)
			return nil, err
		}
		chunks++

		// usage is cumulative, the last chunk carries the totals
		if u := toUsage(result.UsageMetadata); u != nil {
			resp.TokenUsage = u
		}
		if len(result.Candidates) == 0 {
			continue
		}
		if fr := result.Candidates[0].FinishReason; fr != "" {
			resp.FinishReason = FinishReason(fr)
		}
		text := result.Text()
		if text == "" {
			continue
		}
		sb.WriteString(text)
		if handler != nil {
			if err := handler(text); err != nil {
				return nil, err
			}
		}
	}
	if chunks == 0 {
		return nil, api.ErrEmptyResponse
	}

	resp.Content = sb.String()
	return &resp, nil
}

func toUsage(u *genai.GenerateContentResponseUsageMetadata) *api.TokenUsage {
	if u == nil {
		return nil
	}
	total := int(u.TotalTokenCount)
	if total == 0 {
		total = int(u.PromptTokenCount + u.CandidatesTokenCount)
	}
	return &api.TokenUsage{
		InputTokens:  int(u.PromptTokenCount),
		OutputTokens: int(u.CandidatesTokenCount),
		TotalTokens:  total,
	}
}

func FinishReason(reason genai.FinishReason) api.FinishReason {
	switch reason {
	case "":
		return ""
	case genai.FinishReasonStop:
		return api.FinishStop
	case genai.FinishReasonMaxTokens:
		return api.FinishLength
	case genai.FinishReasonSafety,
		genai.FinishReasonRecitation,
		genai.FinishReasonBlocklist,
		genai.FinishReasonProhibitedContent,
		genai.FinishReasonSPII,
		genai.FinishReasonImageSafety:
		return api.FinishContentFilter
	default:
		return api.FinishOther
	}
}

func (r *Model) Embed(ctx context.Context, texts []string) (*api.EmbeddingResponse, error) {
	log.GetLogger(ctx).Debugf(">GEMINI embed:\n model: %s texts: %v\n", r.cfg.EmbeddingModel, len(texts))

	if len(texts) == 0 {
		return &api.EmbeddingResponse{Embeddings: []api.Embedding{}}, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}
	result, err := r.client.Models.EmbedContent(ctx, r.cfg.EmbeddingModel, contents, r.embedding)
	if err != nil {
		log.GetLogger(ctx).Errorf("***GEMINI: %s\n", err)
		return nil, err
	}
	if len(result.Embeddings) == 0 {
		return nil, api.ErrEmptyResponse
	}

	resp := &api.EmbeddingResponse{
		Embeddings: make([]api.Embedding, 0, len(result.Embeddings)),
	}
	var tokens int
	for i, e := range result.Embeddings {
		if e == nil {
			continue
		}
		resp.Embeddings = append(resp.Embeddings, api.Embedding{
			Vector: e.Values,
			Index:  i,
		})
		if e.Statistics != nil {
			tokens += int(e.Statistics.TokenCount)
		}
	}
	if tokens > 0 {
		resp.TokenUsage = &api.TokenUsage{InputTokens: tokens, TotalTokens: tokens}
	}
	return resp, nil
}

func (r *Model) EstimateTokenCount(prompt string) int {
	return r.tokenizer.EstimateTokenCountInText(prompt)
}

func (r *Model) Capabilities() api.Capabilities {
	return api.NewCapabilities(ProviderCapabilities.List()...)
}
