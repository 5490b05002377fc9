package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abdelatifsd/Adjacent/internal/app"
	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/platform/logger"
)

var rootCmd = &cobra.Command{
	Use:   "adjacent",
	Short: "Adjacent - lazily built product recommendation graph",
	Long: `Adjacent answers "what goes with this product?" from a Neo4j graph, falls back
to vector similarity for gaps, and enriches the graph in the background with
LLM-inferred edges.`,
	SilenceUsage: true,
}

// bootstrap loads configuration and wires the application. The returned
// cleanup func is always non-nil.
func bootstrap(ctx context.Context, opts app.Options) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, func() {}, err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, func() {}, fmt.Errorf("init logger: %w", err)
	}
	a, err := app.New(ctx, cfg, log, opts)
	if err != nil {
		log.Sync()
		return nil, func() {}, err
	}
	return a, func() { a.Close(context.WithoutCancel(ctx)) }, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
