package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/llm"
)

const (
	DefaultModelName = "claude-3-5-haiku-latest"
	DefaultMaxTokens = 1024
)

type Config struct {
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" mapstructure:"api_key"`

	// empty uses the SDK default
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" mapstructure:"base_url"`

	ModelName string `yaml:"model,omitempty" json:"model,omitempty" mapstructure:"model"`

	// required by the Messages API
	MaxTokens *int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" mapstructure:"max_tokens"`

	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" mapstructure:"temperature"`
	TopP        *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty" mapstructure:"top_p"`
	TopK        *int     `yaml:"top_k,omitempty" json:"top_k,omitempty" mapstructure:"top_k"`
	Stop        []string `yaml:"stop,omitempty" json:"stop,omitempty" mapstructure:"stop"`
	System      string   `yaml:"system,omitempty" json:"system,omitempty" mapstructure:"system"`

	llm.ClientOptions `yaml:",inline" json:",inline" mapstructure:",squash"`
}

type options struct {
	client    *anthropic.Client
	tokenizer api.Tokenizer
}

type Option func(*options)

// WithClient uses a prebuilt client and ignores connection settings.
func WithClient(client *anthropic.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithTokenizer replaces the character based estimate.
func WithTokenizer(t api.Tokenizer) Option {
	return func(o *options) {
		o.tokenizer = t
	}
}

func (r *Config) setDefaults() {
	if r.ModelName == "" {
		r.ModelName = DefaultModelName
	}
	if r.MaxTokens == nil {
		r.MaxTokens = llm.Int(DefaultMaxTokens)
	}
}

func (r *Config) validate() error {
	if err := llm.CheckRange("temperature", r.Temperature, 0, 1); err != nil {
		return err
	}
	if err := llm.CheckRange("top_p", r.TopP, 0, 1); err != nil {
		return err
	}
	if err := llm.CheckPositive("top_k", r.TopK); err != nil {
		return err
	}
	return llm.CheckPositive("max_tokens", r.MaxTokens)
}
