package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
	"github.com/tonimelisma/iptv-sync/internal/store"
)

func newFavoriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorite <live|movie|series> <id>",
		Short: "Mark an item as favorite",
		Long: `Mark an item of the active source as favorite, or clear the mark with --off.
Favorites survive catalog refreshes. This is safe while a sync runs.`,
		Args: cobra.ExactArgs(2),
		RunE: runFavorite,
	}

	cmd.Flags().Bool("off", false, "clear the favorite mark")

	return cmd
}

func runFavorite(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	kind, err := catalog.ParseKind(args[0])
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[1], err)
	}

	off, err := cmd.Flags().GetBool("off")
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	sourceID, err := a.activeSourceID()
	if err != nil {
		return err
	}

	if err := a.store.SetFavorite(ctx, kind, sourceID, id, !off); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no %s with id %d in source %s", kind, id, sourceID)
		}

		return err
	}

	if off {
		cc.Statusf("Removed %s %d from favorites\n", kind, id)
	} else {
		cc.Statusf("Added %s %d to favorites\n", kind, id)
	}

	return nil
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <movie-id> <position>",
		Short: "Record where playback of a movie stopped",
		Long: `Record the resume position of a movie in the active source. Position is
whole seconds ("754") or a duration ("12m34s"); 0 clears it. Resume
positions survive catalog refreshes.`,
		Args: cobra.ExactArgs(2),
		RunE: runResume,
	}
}

func runResume(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid movie id %q: %w", args[0], err)
	}

	pos, err := parsePosition(args[1])
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	sourceID, err := a.activeSourceID()
	if err != nil {
		return err
	}

	if err := a.store.SetResumePosition(ctx, sourceID, id, pos); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no movie with id %d in source %s", id, sourceID)
		}

		return err
	}

	cc.Statusf("Resume position of movie %d set to %s\n", id, formatPosition(pos))

	return nil
}

// parsePosition accepts whole seconds or a Go duration.
func parsePosition(s string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("position must not be negative")
		}

		return secondsToDuration(secs), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: use seconds or a duration like 12m34s", s)
	}

	if d < 0 {
		return 0, fmt.Errorf("position must not be negative")
	}

	return d, nil
}

func secondsToDuration(secs int64) time.Duration {
	return time.Duration(secs) * time.Second
}
