package openai

import (
	"github.com/openai/openai-go"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/llm"
	"github.com/qiangli/lm/llm/internal/oai"
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultModelName      = "gpt-3.5-turbo-instruct"
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultImageModel     = "dall-e-3"
)

type Config struct {
	BaseURL      string `yaml:"base_url,omitempty" json:"base_url,omitempty" mapstructure:"base_url"`
	APIKey       string `yaml:"api_key,omitempty" json:"api_key,omitempty" mapstructure:"api_key"`
	Organization string `yaml:"organization,omitempty" json:"organization,omitempty" mapstructure:"organization"`
	Project      string `yaml:"project,omitempty" json:"project,omitempty" mapstructure:"project"`

	ModelName string `yaml:"model,omitempty" json:"model,omitempty" mapstructure:"model"`

	EmbeddingModel      string `yaml:"embedding_model,omitempty" json:"embedding_model,omitempty" mapstructure:"embedding_model"`
	EmbeddingDimensions *int   `yaml:"embedding_dimensions,omitempty" json:"embedding_dimensions,omitempty" mapstructure:"embedding_dimensions"`

	ImageModel   string `yaml:"image_model,omitempty" json:"image_model,omitempty" mapstructure:"image_model"`
	ImageSize    string `yaml:"image_size,omitempty" json:"image_size,omitempty" mapstructure:"image_size"`
	ImageQuality string `yaml:"image_quality,omitempty" json:"image_quality,omitempty" mapstructure:"image_quality"`
	ImageStyle   string `yaml:"image_style,omitempty" json:"image_style,omitempty" mapstructure:"image_style"`
	// url or b64_json
	ImageResponseFormat string `yaml:"image_response_format,omitempty" json:"image_response_format,omitempty" mapstructure:"image_response_format"`

	Temperature      *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" mapstructure:"temperature"`
	TopP             *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty" mapstructure:"top_p"`
	MaxTokens        *int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	PresencePenalty  *float64 `yaml:"presence_penalty,omitempty" json:"presence_penalty,omitempty" mapstructure:"presence_penalty"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty,omitempty" json:"frequency_penalty,omitempty" mapstructure:"frequency_penalty"`
	Seed             *int64   `yaml:"seed,omitempty" json:"seed,omitempty" mapstructure:"seed"`
	Stop             []string `yaml:"stop,omitempty" json:"stop,omitempty" mapstructure:"stop"`
	User             string   `yaml:"user,omitempty" json:"user,omitempty" mapstructure:"user"`

	llm.ClientOptions `yaml:",inline" json:",inline" mapstructure:",squash"`
}

type options struct {
	client    *openai.Client
	tokenizer api.Tokenizer
}

type Option func(*options)

// WithClient uses a prebuilt client and ignores connection settings.
func WithClient(client *openai.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

func WithTokenizer(t api.Tokenizer) Option {
	return func(o *options) {
		o.tokenizer = t
	}
}

func (r *Config) setDefaults() {
	if r.BaseURL == "" {
		r.BaseURL = DefaultBaseURL
	}
	if r.ModelName == "" {
		r.ModelName = DefaultModelName
	}
	if r.EmbeddingModel == "" {
		r.EmbeddingModel = DefaultEmbeddingModel
	}
	if r.ImageModel == "" {
		r.ImageModel = DefaultImageModel
	}
}

func (r *Config) imageOptions() *oai.ImageOptions {
	return &oai.ImageOptions{
		Model:          r.ImageModel,
		Size:           r.ImageSize,
		Quality:        r.ImageQuality,
		Style:          r.ImageStyle,
		ResponseFormat: r.ImageResponseFormat,
		User:           r.User,
	}
}

func (r *Config) validate() error {
	if err := llm.CheckRange("temperature", r.Temperature, 0, 2); err != nil {
		return err
	}
	if err := llm.CheckRange("top_p", r.TopP, 0, 1); err != nil {
		return err
	}
	if err := llm.CheckRange("presence_penalty", r.PresencePenalty, -2, 2); err != nil {
		return err
	}
	if err := llm.CheckRange("frequency_penalty", r.FrequencyPenalty, -2, 2); err != nil {
		return err
	}
	if err := llm.CheckPositive("max_tokens", r.MaxTokens); err != nil {
		return err
	}
	if err := llm.CheckPositive("embedding_dimensions", r.EmbeddingDimensions); err != nil {
		return err
	}
	return r.imageOptions().Validate()
}
