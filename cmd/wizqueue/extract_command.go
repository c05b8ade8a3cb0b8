package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"wizqueue/internal/daemonrun"
	"wizqueue/internal/logging"
	"wizqueue/internal/services/ollama"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Extract products from an invoice PDF without storing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}})
			if err != nil {
				return err
			}
			model := ollama.NewClient(ollama.Config{
				BaseURL:        cfg.Ollama.BaseURL,
				Model:          cfg.Ollama.Model,
				TimeoutSeconds: cfg.Ollama.TimeoutSeconds,
				Temperature:    cfg.Ollama.Temperature,
				TopP:           cfg.Ollama.TopP,
			}, ollama.WithRetryMaxAttempts(cfg.Ollama.RetryAttempts))
			pipeline, err := daemonrun.NewPipeline(cfg, model, logger)
			if err != nil {
				return err
			}
			products, err := pipeline.ExtractProductsFromPDF(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(products)
			}
			if len(products) == 0 {
				fmt.Fprintln(out, "No products found")
				return nil
			}
			fmt.Fprint(out, renderProducts(products))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print products as JSON")
	return cmd
}
