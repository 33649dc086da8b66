package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/codesift/internal/store"
	"github.com/Aman-CERP/codesift/internal/ui"
)

func newStatsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, format string) error {
	a, cleanup, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := a.store.GetStats(ctx)
	if err != nil {
		return err
	}
	if err := a.store.UpdateCentroids(ctx); err != nil {
		return err
	}
	shards := a.store.Descriptors()

	if format == "json" {
		payload := struct {
			Stats  store.IndexStats        `json:"stats"`
			Shards []store.ShardDescriptor `json:"shards"`
		}{stats, shards}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	ui.NewResultFormatter(cmd.OutOrStdout(), noColor).RenderStats(stats, shards)
	return nil
}
