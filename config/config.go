// Package config loads named model configurations from a file and the
// environment.
package config

import (
	"bytes"
	"maps"
	"os"
	"slices"
	"strings"

	"dario.cat/mergo"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/llm"
)

const EnvPrefix = "LM"

const redacted = "***"

// ModelConfig is the provider neutral model configuration.
// Fields a provider does not use are ignored by its adapter.
type ModelConfig struct {
	Provider string `yaml:"provider,omitempty" json:"provider,omitempty" mapstructure:"provider"`
	Model    string `yaml:"model,omitempty" json:"model,omitempty" mapstructure:"model"`
	BaseURL  string `yaml:"base_url,omitempty" json:"base_url,omitempty" mapstructure:"base_url"`
	APIKey   string `yaml:"api_key,omitempty" json:"api_key,omitempty" mapstructure:"api_key"`

	// azure
	Endpoint            string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" mapstructure:"endpoint"`
	ServiceVersion      string `yaml:"service_version,omitempty" json:"service_version,omitempty" mapstructure:"service_version"`
	Deployment          string `yaml:"deployment,omitempty" json:"deployment,omitempty" mapstructure:"deployment"`
	NonAzureAPIKey      string `yaml:"non_azure_api_key,omitempty" json:"non_azure_api_key,omitempty" mapstructure:"non_azure_api_key"`
	AzureIdentity       bool   `yaml:"azure_identity,omitempty" json:"azure_identity,omitempty" mapstructure:"azure_identity"`
	EmbeddingDeployment string `yaml:"embedding_deployment,omitempty" json:"embedding_deployment,omitempty" mapstructure:"embedding_deployment"`
	ImageDeployment     string `yaml:"image_deployment,omitempty" json:"image_deployment,omitempty" mapstructure:"image_deployment"`

	// openai
	Organization string `yaml:"organization,omitempty" json:"organization,omitempty" mapstructure:"organization"`

	// openai project or vertex project
	Project string `yaml:"project,omitempty" json:"project,omitempty" mapstructure:"project"`

	// gemini
	Backend  string `yaml:"backend,omitempty" json:"backend,omitempty" mapstructure:"backend"`
	Location string `yaml:"location,omitempty" json:"location,omitempty" mapstructure:"location"`

	EmbeddingModel      string `yaml:"embedding_model,omitempty" json:"embedding_model,omitempty" mapstructure:"embedding_model"`
	EmbeddingDimensions *int   `yaml:"embedding_dimensions,omitempty" json:"embedding_dimensions,omitempty" mapstructure:"embedding_dimensions"`

	ImageModel          string `yaml:"image_model,omitempty" json:"image_model,omitempty" mapstructure:"image_model"`
	ImageSize           string `yaml:"image_size,omitempty" json:"image_size,omitempty" mapstructure:"image_size"`
	ImageQuality        string `yaml:"image_quality,omitempty" json:"image_quality,omitempty" mapstructure:"image_quality"`
	ImageStyle          string `yaml:"image_style,omitempty" json:"image_style,omitempty" mapstructure:"image_style"`
	ImageResponseFormat string `yaml:"image_response_format,omitempty" json:"image_response_format,omitempty" mapstructure:"image_response_format"`

	Temperature      *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" mapstructure:"temperature"`
	TopP             *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty" mapstructure:"top_p"`
	TopK             *int     `yaml:"top_k,omitempty" json:"top_k,omitempty" mapstructure:"top_k"`
	MaxTokens        *int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	PresencePenalty  *float64 `yaml:"presence_penalty,omitempty" json:"presence_penalty,omitempty" mapstructure:"presence_penalty"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty,omitempty" json:"frequency_penalty,omitempty" mapstructure:"frequency_penalty"`
	Seed             *int64   `yaml:"seed,omitempty" json:"seed,omitempty" mapstructure:"seed"`
	Stop             []string `yaml:"stop,omitempty" json:"stop,omitempty" mapstructure:"stop"`
	User             string   `yaml:"user,omitempty" json:"user,omitempty" mapstructure:"user"`
	System           string   `yaml:"system,omitempty" json:"system,omitempty" mapstructure:"system"`

	llm.ClientOptions `yaml:",inline" json:",inline" mapstructure:",squash"`
}

// File is the on disk layout: shared defaults and named models.
type File struct {
	Defaults ModelConfig             `yaml:"defaults,omitempty" json:"defaults,omitempty" mapstructure:"defaults"`
	Models   map[string]*ModelConfig `yaml:"models,omitempty" json:"models,omitempty" mapstructure:"models"`

	// LM_ values, applied over every resolved model
	env ModelConfig
}

// keys overridable with LM_<KEY>
var envKeys = []string{
	"provider",
	"model",
	"base_url",
	"api_key",
	"endpoint",
	"service_version",
	"deployment",
	"non_azure_api_key",
	"azure_identity",
	"organization",
	"project",
	"backend",
	"location",
	"timeout",
	"max_retries",
	"log_requests",
	"dry_run",
	"dry_run_content",
}

// provider api key fallbacks, first set wins
var providerKeyEnv = map[string][]string{
	"azure":     {"AZURE_OPENAI_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Load reads path, if not empty, and the LM_ environment overrides. The
// overrides show in Defaults and take precedence over every named entry in
// Model. The format follows the file extension.
func Load(path string) (*File, error) {
	v := viper.New()
	ev := viper.New()
	for _, k := range envKeys {
		env := EnvPrefix + "_" + strings.ToUpper(k)
		if err := v.BindEnv("defaults."+k, env); err != nil {
			return nil, errors.Wrapf(err, "bind %s", env)
		}
		if err := ev.BindEnv(k, env); err != nil {
			return nil, errors.Wrapf(err, "bind %s", env)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var f File
	if err := v.Unmarshal(&f); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if err := ev.Unmarshal(&f.env); err != nil {
		return nil, errors.Wrap(err, "decode environment")
	}
	return &f, nil
}

// Names returns the configured model names.
func (r *File) Names() []string {
	return slices.Sorted(maps.Keys(r.Models))
}

// Model returns the named entry merged over the defaults. An empty name
// returns the defaults. Entry values win over defaults and LM_ values win
// over both.
func (r *File) Model(name string) (*ModelConfig, error) {
	var mc ModelConfig
	if name != "" {
		entry, ok := r.Models[strings.ToLower(name)]
		if !ok || entry == nil {
			return nil, api.NewNotFoundError("model " + name)
		}
		mc = *entry
	}
	if err := mergo.Merge(&mc, r.Defaults); err != nil {
		return nil, errors.Wrapf(err, "merge defaults into %s", name)
	}
	if err := mergo.Merge(&mc, r.env, mergo.WithOverride); err != nil {
		return nil, errors.Wrapf(err, "merge environment into %s", name)
	}
	mc.applyEnv(os.Getenv)
	return &mc, nil
}

func (r *ModelConfig) applyEnv(getenv func(string) string) {
	if r.APIKey == "" {
		for _, env := range providerKeyEnv[r.Provider] {
			if v := getenv(env); v != "" {
				r.APIKey = v
				break
			}
		}
	}
	if r.Provider == "azure" && r.Endpoint == "" {
		r.Endpoint = getenv("AZURE_OPENAI_ENDPOINT")
	}
}

// Redacted returns a copy safe to print.
func (r *ModelConfig) Redacted() *ModelConfig {
	c := *r
	if c.APIKey != "" {
		c.APIKey = redacted
	}
	if c.NonAzureAPIKey != "" {
		c.NonAzureAPIKey = redacted
	}
	if c.Proxy != nil {
		p := *c.Proxy
		if p.Password != "" {
			p.Password = redacted
		}
		c.Proxy = &p
	}
	if len(c.Headers) > 0 {
		headers := make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			switch strings.ToLower(k) {
			case "authorization", "api-key", "x-api-key", "x-goog-api-key":
				v = redacted
			}
			headers[k] = v
		}
		c.Headers = headers
	}
	return &c
}

// Marshal encodes v as YAML with two space indentation.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "encode yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
