package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/qiangli/lm/docs"
	"github.com/qiangli/lm/llm/adapter"
)

func (a *app) capabilitiesCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Print the provider capability matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := docs.Table(adapter.Matrix(), format)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().Var(newFormatValue(docs.FormatMarkdown, &format), "format", "Output format: markdown, yaml, json or term")
	return cmd
}

func (a *app) docsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Build the HTML documentation site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var src fs.FS = docs.Pages()
			if dir := a.v.GetString("src"); dir != "" {
				src = os.DirFS(dir)
			}
			written, err := docs.BuildSite(src, adapter.Matrix(), a.v.GetString("out"))
			if err != nil {
				return err
			}
			for _, p := range written {
				a.logger.Infof("wrote %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().String("out", "site", "Output directory")
	cmd.Flags().String("src", "", "Markdown source directory (default bundled pages)")
	return cmd
}
