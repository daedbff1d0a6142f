package main

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	openaipkg "github.com/matheuscscp/fairshare/internal/openai"
	"github.com/matheuscscp/fairshare/services/secrets"

	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Extract the items of a receipt photo and print them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conf, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if conf.OpenAI.TokenSecretID != "" {
				secretsService, err := secrets.NewService(ctx)
				if err != nil {
					return fmt.Errorf("error creating secrets service: %w", err)
				}
				defer secretsService.Close()
				if conf.OpenAI.Token, err = secretsService.Read(ctx, conf.OpenAI.TokenSecretID); err != nil {
					return fmt.Errorf("error reading openai token secret: %w", err)
				}
			}

			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("error reading image: %w", err)
			}
			extractor := openaipkg.NewExtractor(conf.OpenAI.Token, conf.OpenAI.Model, conf.OpenAI.MaxTokens)
			items, err := extractor.Extract(ctx, image, http.DetectContentType(image))
			if err != nil {
				return err
			}
			if items, err = extractor.Followup(ctx, items, prompt); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tITEM\tCOUNT\tPRICE")
			for _, item := range items {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", item.ID, item.Name, item.Count, item.Price)
			}
			fmt.Fprintf(w, "\t\t\t%s\n", items.Total())
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&prompt, "fix", "", `Correction sent after the extraction, e.g. "there were 3 cokes"`)
	return cmd
}
