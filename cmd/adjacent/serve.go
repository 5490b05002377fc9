package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abdelatifsd/Adjacent/internal/app"
)

var serveWithWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, cleanup, err := bootstrap(cmd.Context(), app.Options{Queue: true})
		if err != nil {
			return err
		}
		defer cleanup()

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error { return a.HTTPServer().Run(ctx) })
		if serveWithWorker {
			if a.Inferencer == nil {
				a.Log.Warn("--with-worker ignored", "reason", app.ErrInferenceDisabled.Error())
			} else {
				g.Go(func() error { return a.RunWorker(ctx) })
			}
		}
		return g.Wait()
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume inference jobs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, cleanup, err := bootstrap(cmd.Context(), app.Options{Queue: true})
		if err != nil {
			return err
		}
		defer cleanup()
		return a.RunWorker(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithWorker, "with-worker", false, "Also consume inference jobs in this process")
	rootCmd.AddCommand(serveCmd, workerCmd)
}
