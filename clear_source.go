package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearSourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear-source <name>",
		Short: "Delete everything stored for one source",
		Long: `Delete all items, categories, navigation trees, and cache metadata stored
for the named source. The name need not still be in the config file, so
data of a removed source can be cleaned up. Favorites and resume positions
of that source are lost.`,
		Args: cobra.ExactArgs(1),
		RunE: runClearSource,
	}

	cmd.Flags().Bool("yes", false, "confirm deletion")

	return cmd
}

func runClearSource(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()
	name := args[0]

	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}

	if !yes {
		return fmt.Errorf("clearing %q deletes its favorites and resume positions; re-run with --yes", name)
	}

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.orch.ClearSource(ctx, name); err != nil {
		return err
	}

	cc.Statusf("Cleared source %s\n", name)

	notifyWatcherIfRunning(cc)

	return nil
}
