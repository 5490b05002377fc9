package main

import (
	"github.com/spf13/cobra"

	"github.com/abdelatifsd/Adjacent/internal/app"
	"github.com/abdelatifsd/Adjacent/internal/ingest"
)

var (
	ingestBatchSize  int
	ingestLimit      int
	ingestNoSchema   bool
	embedLimit       int
	embedBatchSize   int
	embedConcurrency int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.json|file.jsonl>",
	Short: "Validate a product catalog and upsert it into Neo4j",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := bootstrap(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer cleanup()

		in, err := a.Ingester()
		if err != nil {
			return err
		}
		sum, err := in.IngestFile(cmd.Context(), args[0], ingest.Options{
			BatchSize:  ingestBatchSize,
			Limit:      ingestLimit,
			SkipSchema: ingestNoSchema,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), sum)
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed products that have text but no vector yet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, cleanup, err := bootstrap(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer cleanup()

		b, err := a.Backfiller()
		if err != nil {
			return err
		}
		batch := embedBatchSize
		if batch <= 0 {
			batch = a.Cfg.Embedding.BatchSize
		}
		res, err := b.Run(cmd.Context(), ingest.BackfillOptions{
			Limit:       embedLimit,
			BatchSize:   batch,
			Concurrency: embedConcurrency,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 500, "Rows per Neo4j write")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 0, "Only ingest the first N records")
	ingestCmd.Flags().BoolVar(&ingestNoSchema, "no-constraints", false, "Skip creating the product id constraint")

	embedCmd.Flags().IntVar(&embedLimit, "limit", 0, "Embed at most N products")
	embedCmd.Flags().IntVar(&embedBatchSize, "batch-size", 0, "Texts per embedding request (default from config)")
	embedCmd.Flags().IntVar(&embedConcurrency, "concurrency", 2, "Embedding requests in flight")
	rootCmd.AddCommand(ingestCmd, embedCmd)
}
