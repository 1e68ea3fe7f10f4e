package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/qiangli/lm/api"
)

func (a *app) generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [flags] PROMPT...",
		Short: "Generate a completion",
		Long: `Generate a completion for the prompt.

With --parallel each argument is a separate prompt. The prompts are sent
concurrently and the answers printed in argument order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newModel(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			usage := a.v.GetBool("usage")

			if !a.v.GetBool("parallel") {
				p, err := prompt(args)
				if err != nil {
					return err
				}
				resp, err := m.Generate(cmd.Context(), p)
				if err != nil {
					return err
				}
				printResponse(out, resp, usage)
				return nil
			}

			results := make([]<-chan api.Result, len(args))
			for i, p := range args {
				results[i] = api.GenerateAsync(cmd.Context(), m, p)
			}
			var total *api.TokenUsage
			for _, ch := range results {
				res := <-ch
				if res.Err != nil {
					return res.Err
				}
				printResponse(out, res.Response, false)
				total = total.Add(res.Response.TokenUsage)
			}
			if usage && total != nil {
				fmt.Fprintf(out, "\n[usage] input: %d output: %d total: %d\n", total.InputTokens, total.OutputTokens, total.TotalTokens)
			}
			return nil
		},
	}
	addModelFlags(cmd)
	cmd.Flags().Bool("usage", false, "Print token usage and finish reason")
	cmd.Flags().Bool("parallel", false, "Treat each argument as a separate prompt")
	return cmd
}

func (a *app) streamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stream [flags] PROMPT...",
		Short: "Stream a completion as it is generated",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newModel(cmd)
			if err != nil {
				return err
			}
			sm, ok := m.(api.StreamingLanguageModel)
			if !ok {
				return unsupported(m, "streaming")
			}
			p, err := prompt(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			resp, err := sm.Stream(cmd.Context(), p, func(chunk string) error {
				_, err := io.WriteString(out, chunk)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			if a.v.GetBool("usage") {
				printUsage(out, resp)
			}
			return nil
		},
	}
	addModelFlags(cmd)
	cmd.Flags().Bool("usage", false, "Print token usage and finish reason")
	return cmd
}

func printResponse(w io.Writer, resp *api.Response, usage bool) {
	fmt.Fprintln(w, resp.Content)
	if usage {
		printUsage(w, resp)
	}
}

func printUsage(w io.Writer, resp *api.Response) {
	fmt.Fprintln(w)
	if u := resp.TokenUsage; u != nil {
		fmt.Fprintf(w, "[usage] input: %d output: %d total: %d\n", u.InputTokens, u.OutputTokens, u.TotalTokens)
	}
	if resp.FinishReason != "" {
		fmt.Fprintf(w, "[finish] %s\n", resp.FinishReason)
	}
}
