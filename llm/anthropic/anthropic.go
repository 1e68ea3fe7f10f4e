// Package anthropic adapts the Anthropic Messages API to the shared model
// interfaces. Each prompt is sent as a single user message.
package anthropic

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/log"
	"github.com/qiangli/lm/tokenizer"
)

const Provider = "anthropic"

var ProviderCapabilities = api.NewCapabilities(
	api.Completion,
	api.Streaming,
	api.Async,
)

// Model is safe for concurrent use.
type Model struct {
	client *anthropic.Client
	cfg    Config

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
		tk = tokenizer.Heuristic{}
	}

	return &Model{
		client:    client,
		cfg:       cfg,
		tokenizer: tk,
	}, nil
}

func NewClient(cfg *Config) (*anthropic.Client, error) {
	key := cfg.DryRunKey(cfg.APIKey)
	if key == "" {
		return nil, api.NewConfigError("api_key", "is required")
	}
	if err := cfg.ClientOptions.Validate(); err != nil {
		return nil, err
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMiddleware(cfg.Middleware(Provider, Faker)),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
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

	client := anthropic.NewClient(reqOpts...)
	return &client, nil
}

func (r *Model) ModelName() string {
	return r.cfg.ModelName
}

func (r *Model) params(prompt string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(r.cfg.ModelName),
		MaxTokens: int64(*r.cfg.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if r.cfg.Temperature != nil {
		params.Temperature = anthropic.Float(*r.cfg.Temperature)
	}
	if r.cfg.TopP != nil {
		params.TopP = anthropic.Float(*r.cfg.TopP)
	}
	if r.cfg.TopK != nil {
		params.TopK = anthropic.Int(int64(*r.cfg.TopK))
	}
	if len(r.cfg.Stop) > 0 {
		params.StopSequences = r.cfg.Stop
	}
	if r.cfg.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: r.cfg.System},
		}
	}
	return params
}

func (r *Model) Generate(ctx context.Context, prompt string) (*api.Response, error) {
	log.GetLogger(ctx).Debugf(">ANTHROPIC:\n model: %s prompt: %v\n", r.cfg.ModelName, len(prompt))

	msg, err := r.client.Messages.New(ctx, r.params(prompt))
	if err != nil {
		log.GetLogger(ctx).Errorf("***ANTHROPIC: %s\n", err)
		return nil, err
	}
	resp, err := toResponse(msg)

	log.GetLogger(ctx).Debugf("<ANTHROPIC:\n resp: %+v err: %v\n", resp, err)
	return resp, err
}

func (r *Model) Stream(ctx context.Context, prompt string, handler api.StreamHandler) (*api.Response, error) {
	log.GetLogger(ctx).Debugf(">ANTHROPIC stream:\n model: %s prompt: %v\n", r.cfg.ModelName, len(prompt))

	stream := r.client.Messages.NewStreaming(ctx, r.params(prompt))
	defer stream.Close()

	var msg anthropic.Message
	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return nil, err
		}
		if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" && event.Delta.Text != "" {
			if handler != nil {
				if err := handler(event.Delta.Text); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		log.GetLogger(ctx).Errorf("***ANTHROPIC: %s\n", err)
		return nil, err
	}
	return toResponse(&msg)
}

func toResponse(msg *anthropic.Message) (*api.Response, error) {
	if len(msg.Content) == 0 && msg.StopReason == "" {
		return nil, api.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	resp := &api.Response{
		Content:      sb.String(),
		FinishReason: FinishReason(msg.StopReason),
	}
	if msg.Usage.InputTokens > 0 || msg.Usage.OutputTokens > 0 {
		resp.TokenUsage = &api.TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		}
	}
	return resp, nil
}

func FinishReason(reason anthropic.StopReason) api.FinishReason {
	switch reason {
	case "":
		return ""
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence:
		return api.FinishStop
	case anthropic.StopReasonMaxTokens:
		return api.FinishLength
	case anthropic.StopReasonToolUse:
		return api.FinishToolExecution
	case anthropic.StopReasonRefusal:
		return api.FinishContentFilter
	default:
		return api.FinishOther
	}
}

func (r *Model) EstimateTokenCount(prompt string) int {
	return r.tokenizer.EstimateTokenCountInText(prompt)
}

func (r *Model) Capabilities() api.Capabilities {
	return api.NewCapabilities(ProviderCapabilities.List()...)
}
