package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/config"
	"github.com/qiangli/lm/llm/adapter"
	"github.com/qiangli/lm/log"
)

func addModelFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("model", "m", "", "Named model from the config file, or the model name with --provider")
	flags.StringP("provider", "p", "", "Provider: "+strings.Join(adapter.Names(), ", "))
	flags.String("base-url", "", "Override the service base URL")
	flags.String("api-key", "", "Override the API key")
	flags.Float64("temperature", 0, "Sampling temperature")
	flags.Int("max-tokens", 0, "Maximum tokens to generate")
	flags.Bool("log-requests", false, "Log requests and responses")
}

func (a *app) loadConfig() (*config.File, error) {
	path := a.v.GetString("config")
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && path == defaultConfigFile() {
			path = ""
		}
	}
	return config.Load(path)
}

// modelConfig resolves --model against the config file and applies the
// command line overrides.
func (a *app) modelConfig(cmd *cobra.Command) (*config.ModelConfig, error) {
	f, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	name := a.v.GetString("model")
	provider := a.v.GetString("provider")

	var mc *config.ModelConfig
	if _, ok := f.Models[strings.ToLower(name)]; ok {
		mc, err = f.Model(name)
	} else {
		mc, err = f.Model("")
		if name != "" && provider == "" {
			return nil, api.NewNotFoundError("model " + name)
		}
		if err == nil && name != "" {
			mc.Model = name
		}
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if provider != "" {
		mc.Provider = provider
	}
	if v := a.v.GetString("base_url"); v != "" {
		mc.BaseURL = v
	}
	if v := a.v.GetString("api_key"); v != "" {
		mc.APIKey = v
	}
	if flags.Changed("temperature") {
		t := a.v.GetFloat64("temperature")
		mc.Temperature = &t
	}
	if flags.Changed("max-tokens") {
		n := a.v.GetInt("max_tokens")
		mc.MaxTokens = &n
	}
	if a.v.GetBool("log_requests") {
		mc.LogRequestsAndResponses = true
	}
	if a.v.GetBool("dry_run") {
		mc.DryRun = true
	}
	if v := a.v.GetString("dry_run_content"); v != "" {
		mc.DryRunContent = v
	}
	mc.Metrics = a.metrics
	return mc, nil
}

func (a *app) newModel(cmd *cobra.Command) (api.LanguageModel, error) {
	mc, err := a.modelConfig(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	log.GetLogger(ctx).Debugf("model config: %+v\n", mc.Redacted())
	return adapter.New(ctx, mc)
}

func prompt(args []string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("prompt is required")
	}
	return strings.Join(args, " "), nil
}

func unsupported(m api.LanguageModel, what string) error {
	name := "model"
	if r, ok := m.(interface{ ModelName() string }); ok {
		name = r.ModelName()
	}
	return api.NewUnsupportedError(what + " by " + name)
}
