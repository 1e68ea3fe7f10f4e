package gemini

import (
	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/llm"
)

const (
	DefaultModelName      = "gemini-2.0-flash"
	DefaultEmbeddingModel = "text-embedding-004"

	BackendGemini = "gemini"
	BackendVertex = "vertex"
)

type Config struct {
	// required for the gemini backend, optional for vertex
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" mapstructure:"api_key"`

	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" mapstructure:"base_url"`

	// gemini or vertex
	Backend  string `yaml:"backend,omitempty" json:"backend,omitempty" mapstructure:"backend"`
	Project  string `yaml:"project,omitempty" json:"project,omitempty" mapstructure:"project"`
	Location string `yaml:"location,omitempty" json:"location,omitempty" mapstructure:"location"`

	ModelName string `yaml:"model,omitempty" json:"model,omitempty" mapstructure:"model"`

	EmbeddingModel      string `yaml:"embedding_model,omitempty" json:"embedding_model,omitempty" mapstructure:"embedding_model"`
	EmbeddingDimensions *int   `yaml:"embedding_dimensions,omitempty" json:"embedding_dimensions,omitempty" mapstructure:"embedding_dimensions"`

	Temperature      *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" mapstructure:"temperature"`
	TopP             *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty" mapstructure:"top_p"`
	TopK             *int     `yaml:"top_k,omitempty" json:"top_k,omitempty" mapstructure:"top_k"`
	MaxTokens        *int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	PresencePenalty  *float64 `yaml:"presence_penalty,omitempty" json:"presence_penalty,omitempty" mapstructure:"presence_penalty"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty,omitempty" json:"frequency_penalty,omitempty" mapstructure:"frequency_penalty"`
	Seed             *int64   `yaml:"seed,omitempty" json:"seed,omitempty" mapstructure:"seed"`
	Stop             []string `yaml:"stop,omitempty" json:"stop,omitempty" mapstructure:"stop"`
	System           string   `yaml:"system,omitempty" json:"system,omitempty" mapstructure:"system"`

	llm.ClientOptions `yaml:",inline" json:",inline" mapstructure:",squash"`
}

type options struct {
	tokenizer api.Tokenizer
}

type Option func(*options)

// WithTokenizer replaces the character based estimate.
func WithTokenizer(t api.Tokenizer) Option {
	return func(o *options) {
		o.tokenizer = t
	}
}

func (r *Config) setDefaults() {
	if r.Backend == "" {
		r.Backend = BackendGemini
	}
	if r.ModelName == "" {
		r.ModelName = DefaultModelName
	}
	if r.EmbeddingModel == "" {
		r.EmbeddingModel = DefaultEmbeddingModel
	}
}

func (r *Config) validate() error {
	switch r.Backend {
	case BackendGemini:
		if r.DryRunKey(r.APIKey) == "" {
			return api.NewConfigError("api_key", "is required")
		}
		if r.Project != "" || r.Location != "" {
			return api.NewConfigError("project", "is only used by the %s backend", BackendVertex)
		}
	case BackendVertex:
		if r.APIKey != "" && (r.Project != "" || r.Location != "") {
			return api.NewConfigError("api_key", "and project/location are mutually exclusive")
		}
		if r.APIKey == "" && (r.Project == "" || r.Location == "") {
			return api.NewConfigError("project", "and location are required without an api_key")
		}
	default:
		return api.NewConfigError("backend", "must be %s or %s, got %q", BackendGemini, BackendVertex, r.Backend)
	}

	// the SDK has no retry policy
	if r.MaxRetries != nil {
		return api.NewConfigError("max_retries", "is not supported by %s", Provider)
	}

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
	if err := llm.CheckPositive("top_k", r.TopK); err != nil {
		return err
	}
	if err := llm.CheckPositive("max_tokens", r.MaxTokens); err != nil {
		return err
	}
	return llm.CheckPositive("embedding_dimensions", r.EmbeddingDimensions)
}
