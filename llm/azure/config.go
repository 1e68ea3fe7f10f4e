package azure

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/openai/openai-go"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/llm"
)

const (
	DefaultDeploymentName = "gpt-35-turbo-instruct"
	DefaultServiceVersion = "2024-10-21"
	DefaultTemperature    = 0.7

	// tokenizer model matching the default deployment
	DefaultTokenizerModel = "gpt-3.5-turbo-instruct"

	// endpoint used with a non Azure OpenAI key
	OpenAIEndpoint = "https://api.openai.com/v1"
)

// Config of an Azure OpenAI completion model.
// Optional sampling fields are not sent when nil.
type Config struct {
	Endpoint       string `yaml:"endpoint,omitempty" json:"endpoint,omitempty" mapstructure:"endpoint"`
	ServiceVersion string `yaml:"service_version,omitempty" json:"service_version,omitempty" mapstructure:"service_version"`
	APIKey         string `yaml:"api_key,omitempty" json:"api_key,omitempty" mapstructure:"api_key"`

	// key of the public OpenAI service, overrides Endpoint
	NonAzureAPIKey string `yaml:"non_azure_api_key,omitempty" json:"non_azure_api_key,omitempty" mapstructure:"non_azure_api_key"`

	DeploymentName string `yaml:"deployment,omitempty" json:"deployment,omitempty" mapstructure:"deployment"`

	Temperature      *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" mapstructure:"temperature"`
	TopP             *float64 `yaml:"top_p,omitempty" json:"top_p,omitempty" mapstructure:"top_p"`
	MaxTokens        *int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	PresencePenalty  *float64 `yaml:"presence_penalty,omitempty" json:"presence_penalty,omitempty" mapstructure:"presence_penalty"`
	FrequencyPenalty *float64 `yaml:"frequency_penalty,omitempty" json:"frequency_penalty,omitempty" mapstructure:"frequency_penalty"`
	Stop             []string `yaml:"stop,omitempty" json:"stop,omitempty" mapstructure:"stop"`
	User             string   `yaml:"user,omitempty" json:"user,omitempty" mapstructure:"user"`

	llm.ClientOptions `yaml:",inline" json:",inline" mapstructure:",squash"`
}

type options struct {
	credential azcore.TokenCredential
	client     *openai.Client
	tokenizer  api.Tokenizer

	embeddingDeployment string
	imageDeployment     string
}

type Option func(*options)

// WithTokenCredential authenticates with Microsoft Entra ID.
// It takes precedence over API keys.
func WithTokenCredential(cred azcore.TokenCredential) Option {
	return func(o *options) {
		o.credential = cred
	}
}

// WithClient uses a prebuilt client. Endpoint, credentials and client
// options of the Config are ignored.
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

// WithEmbeddingDeployment enables Embed against the named deployment.
func WithEmbeddingDeployment(name string) Option {
	return func(o *options) {
		o.embeddingDeployment = name
	}
}

// WithImageDeployment enables GenerateImage against the named deployment.
func WithImageDeployment(name string) Option {
	return func(o *options) {
		o.imageDeployment = name
	}
}

func (r *Config) setDefaults() {
	if r.DeploymentName == "" {
		r.DeploymentName = DefaultDeploymentName
	}
	if r.Temperature == nil {
		r.Temperature = llm.Float(DefaultTemperature)
	}
	if r.ServiceVersion == "" {
		r.ServiceVersion = DefaultServiceVersion
	}
	if r.NonAzureAPIKey != "" {
		r.Endpoint = OpenAIEndpoint
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
	return llm.CheckPositive("max_tokens", r.MaxTokens)
}
