package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/codesift/internal/index"
)

func newClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all indexed data",
		Long: `Clear wipes every shard database. The next 'codesift index' rebuilds
the index from scratch, including re-embedding all files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return fmt.Errorf("refusing to clear without --force")
			}
			return runClear(cmd.Context(), cmd)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm deletion")
	return cmd
}

func runClear(ctx context.Context, cmd *cobra.Command) error {
	a, cleanup, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	lock, err := index.AcquireLock(ctx, a.cfg.Index.CacheDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	if err := a.store.Clear(ctx); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Index cleared.")
	return nil
}
