package main

import (
	"github.com/spf13/cobra"

	"github.com/qiangli/lm/config"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the merged model config with secrets redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mc, err := a.modelConfig(cmd)
			if err != nil {
				return err
			}
			data, err := config.Marshal(mc.Redacted())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	addModelFlags(show)

	list := &cobra.Command{
		Use:   "list",
		Short: "List the named models of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.loadConfig()
			if err != nil {
				return err
			}
			for _, name := range f.Names() {
				a.logger.Printf("%s\n", name)
			}
			return nil
		},
	}

	cmd.AddCommand(show, list)
	return cmd
}
