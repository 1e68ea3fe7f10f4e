package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/tokenizer"
)

const defaultTokenizerModel = "gpt-4o"

func (a *app) embedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed [flags] TEXT...",
		Short: "Print the embedding of each text as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newModel(cmd)
			if err != nil {
				return err
			}
			em, ok := m.(api.EmbeddingModel)
			if !ok {
				return unsupported(m, "embeddings")
			}
			resp, err := em.Embed(cmd.Context(), args)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	addModelFlags(cmd)
	return cmd
}

func (a *app) imageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image [flags] PROMPT...",
		Short: "Generate an image and print its URL or base64 data",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newModel(cmd)
			if err != nil {
				return err
			}
			im, ok := m.(api.ImageModel)
			if !ok {
				return unsupported(m, "image generation")
			}
			p, err := prompt(args)
			if err != nil {
				return err
			}
			resp, err := im.GenerateImage(cmd.Context(), p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, img := range resp.Images {
				if img.URL != "" {
					fmt.Fprintln(out, img.URL)
				} else {
					fmt.Fprintln(out, img.Base64)
				}
				if img.RevisedPrompt != "" {
					a.logger.Infof("revised prompt: %s\n", img.RevisedPrompt)
				}
			}
			return nil
		},
	}
	addModelFlags(cmd)
	return cmd
}

func (a *app) tokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens [flags] TEXT...",
		Short: "Estimate the token count of the text",
		Long: `Estimate the token count of the text.

Without --model or --provider the text is counted with the tiktoken
encoding of --tokenizer and no credentials are needed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := prompt(args)
			if err != nil {
				return err
			}

			var n int
			if a.v.GetString("model") == "" && a.v.GetString("provider") == "" {
				n = tokenizer.Default(a.v.GetString("tokenizer")).EstimateTokenCountInText(text)
			} else {
				m, err := a.newModel(cmd)
				if err != nil {
					return err
				}
				te, ok := m.(api.TokenCountEstimator)
				if !ok {
					return unsupported(m, "token estimation")
				}
				n = te.EstimateTokenCount(text)
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	addModelFlags(cmd)
	cmd.Flags().String("tokenizer", defaultTokenizerModel, "Model whose tiktoken encoding is used")
	return cmd
}
