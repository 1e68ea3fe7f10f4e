package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/qiangli/lm/log"
	"github.com/qiangli/lm/metrics"
)

type app struct {
	v *viper.Viper

	logger  log.Logger
	metrics *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:               "lm",
		Short:             "Language model command line tool",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", defaultConfigFile(), "config file")
	flags.Bool("verbose", false, "Show debugging information")
	flags.Bool("quiet", false, "Operate quietly")
	flags.Bool("trace", false, "Show full requests and responses")
	flags.Bool("dry-run", false, "Enable dry run mode. No API call will be made")
	flags.String("dry-run-content", "", "Content returned for dry run")
	flags.Bool("metrics", false, "Print request metrics when done")
	flags.String("log-file", "", "Copy log output to file")

	root.AddCommand(
		a.generateCmd(),
		a.streamCmd(),
		a.embedCmd(),
		a.imageCmd(),
		a.tokensCmd(),
		a.capabilitiesCmd(),
		a.docsCmd(),
		a.configCmd(),
	)
	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

// default: $LM_CONFIG or ~/.lm/config.yaml
func defaultConfigFile() string {
	if v := os.Getenv("LM_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".lm", "config.yaml")
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	// Bind the flags to viper using underscores
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		a.v.BindPFlag(key, f)
	})
	a.v.SetEnvPrefix("lm")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	a.logger = log.NewLogger(cmd.OutOrStdout(), cmd.ErrOrStderr())
	switch {
	case a.v.GetBool("quiet"):
		a.logger.SetLogLevel(log.Quiet)
	case a.v.GetBool("trace"):
		a.logger.SetLogLevel(log.Tracing)
	case a.v.GetBool("verbose"):
		a.logger.SetLogLevel(log.Verbose)
	default:
		a.logger.SetLogLevel(log.Informative)
	}
	if p := a.v.GetString("log_file"); p != "" {
		if err := a.logger.SetTeeFile(p); err != nil {
			return err
		}
	}
	cmd.SetContext(log.WithLogger(cmd.Context(), a.logger))

	if a.v.GetBool("metrics") {
		m, err := metrics.New(nil)
		if err != nil {
			return err
		}
		a.metrics = m
	}
	return nil
}

func (a *app) teardown(cmd *cobra.Command) error {
	if a.metrics != nil {
		if err := a.metrics.WriteText(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	if a.logger != nil {
		return a.logger.CloseTee()
	}
	return nil
}
