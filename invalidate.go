package main

import (
	"github.com/spf13/cobra"
)

func newInvalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate [live|movie|series ...]",
		Short: "Mark cached catalogs stale",
		Long: `Drop the cache metadata and navigation tree of the given kinds (all kinds
when none are given) for the active source. Stored items stay readable;
the next sync fetches even without --force. A running watch is told to
refresh now.`,
		RunE: runInvalidate,
	}
}

func runInvalidate(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	kinds, err := parseKinds(args)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, kind := range kinds {
		if err := a.orch.InvalidateCache(ctx, kind); err != nil {
			return err
		}

		cc.Statusf("Invalidated %s\n", kind)
	}

	notifyWatcherIfRunning(cc)

	return nil
}
