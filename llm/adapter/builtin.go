package adapter

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/config"
	"github.com/qiangli/lm/llm/anthropic"
	"github.com/qiangli/lm/llm/azure"
	"github.com/qiangli/lm/llm/gemini"
	"github.com/qiangli/lm/llm/openai"
)

func registerBuiltins(r *Registry) {
	r.Register(azure.Provider, azure.ProviderCapabilities, newAzure)
	r.Register(openai.Provider, openai.ProviderCapabilities, newOpenAI)
	r.Register(anthropic.Provider, anthropic.ProviderCapabilities, newAnthropic)
	r.Register(gemini.Provider, gemini.ProviderCapabilities, newGemini)
}

func newAzure(ctx context.Context, mc *config.ModelConfig) (api.LanguageModel, error) {
	deployment := mc.Deployment
	if deployment == "" {
		deployment = mc.Model
	}
	cfg := azure.Config{
		Endpoint:         mc.Endpoint,
		ServiceVersion:   mc.ServiceVersion,
		APIKey:           mc.APIKey,
		NonAzureAPIKey:   mc.NonAzureAPIKey,
		DeploymentName:   deployment,
		Temperature:      mc.Temperature,
		TopP:             mc.TopP,
		MaxTokens:        mc.MaxTokens,
		PresencePenalty:  mc.PresencePenalty,
		FrequencyPenalty: mc.FrequencyPenalty,
		Stop:             mc.Stop,
		User:             mc.User,
		ClientOptions:    mc.ClientOptions,
	}

	var opts []azure.Option
	if mc.EmbeddingDeployment != "" {
		opts = append(opts, azure.WithEmbeddingDeployment(mc.EmbeddingDeployment))
	}
	if mc.ImageDeployment != "" {
		opts = append(opts, azure.WithImageDeployment(mc.ImageDeployment))
	}
	if mc.AzureIdentity {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, err
		}
		opts = append(opts, azure.WithTokenCredential(cred))
	}
	m, err := azure.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func newOpenAI(ctx context.Context, mc *config.ModelConfig) (api.LanguageModel, error) {
	m, err := openai.New(openai.Config{
		BaseURL:             mc.BaseURL,
		APIKey:              mc.APIKey,
		Organization:        mc.Organization,
		Project:             mc.Project,
		ModelName:           mc.Model,
		EmbeddingModel:      mc.EmbeddingModel,
		EmbeddingDimensions: mc.EmbeddingDimensions,
		ImageModel:          mc.ImageModel,
		ImageSize:           mc.ImageSize,
		ImageQuality:        mc.ImageQuality,
		ImageStyle:          mc.ImageStyle,
		ImageResponseFormat: mc.ImageResponseFormat,
		Temperature:         mc.Temperature,
		TopP:                mc.TopP,
		MaxTokens:           mc.MaxTokens,
		PresencePenalty:     mc.PresencePenalty,
		FrequencyPenalty:    mc.FrequencyPenalty,
		Seed:                mc.Seed,
		Stop:                mc.Stop,
		User:                mc.User,
		ClientOptions:       mc.ClientOptions,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func newAnthropic(ctx context.Context, mc *config.ModelConfig) (api.LanguageModel, error) {
	m, err := anthropic.New(anthropic.Config{
		APIKey:        mc.APIKey,
		BaseURL:       mc.BaseURL,
		ModelName:     mc.Model,
		MaxTokens:     mc.MaxTokens,
		Temperature:   mc.Temperature,
		TopP:          mc.TopP,
		TopK:          mc.TopK,
		Stop:          mc.Stop,
		System:        mc.System,
		ClientOptions: mc.ClientOptions,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func newGemini(ctx context.Context, mc *config.ModelConfig) (api.LanguageModel, error) {
	m, err := gemini.New(ctx, gemini.Config{
		APIKey:              mc.APIKey,
		BaseURL:             mc.BaseURL,
		Backend:             mc.Backend,
		Project:             mc.Project,
		Location:            mc.Location,
		ModelName:           mc.Model,
		EmbeddingModel:      mc.EmbeddingModel,
		EmbeddingDimensions: mc.EmbeddingDimensions,
		Temperature:         mc.Temperature,
		TopP:                mc.TopP,
		TopK:                mc.TopK,
		MaxTokens:           mc.MaxTokens,
		PresencePenalty:     mc.PresencePenalty,
		FrequencyPenalty:    mc.FrequencyPenalty,
		Seed:                mc.Seed,
		Stop:                mc.Stop,
		System:              mc.System,
		ClientOptions:       mc.ClientOptions,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}
