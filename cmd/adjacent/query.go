package main

import (
	"github.com/spf13/cobra"

	"github.com/abdelatifsd/Adjacent/internal/app"
	"github.com/abdelatifsd/Adjacent/internal/recommend"
)

var (
	queryTopK          int
	querySkipInference bool
	queryTraceID       string
)

var queryCmd = &cobra.Command{
	Use:   "query <product-id>",
	Short: "Recommend products for an anchor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := bootstrap(cmd.Context(), app.Options{Queue: !querySkipInference})
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := a.Recommender.Query(cmd.Context(), recommend.Request{
			AnchorID:      args[0],
			TopK:          queryTopK,
			SkipInference: querySkipInference,
			TraceID:       queryTraceID,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var jobCmd = &cobra.Command{
	Use:   "job <job-id>",
	Short: "Show the status of an inference job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := bootstrap(cmd.Context(), app.Options{Queue: true})
		if err != nil {
			return err
		}
		defer cleanup()

		info, err := a.Recommender.JobStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), info)
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "Number of recommendations (default from config)")
	queryCmd.Flags().BoolVar(&querySkipInference, "skip-inference", false, "Do not schedule edge inference")
	queryCmd.Flags().StringVar(&queryTraceID, "trace-id", "", "Trace id to attach (generated when empty)")
	rootCmd.AddCommand(queryCmd, jobCmd)
}
