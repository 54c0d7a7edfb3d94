package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
	"github.com/tonimelisma/iptv-sync/internal/sync"
)

// errSyncFailed is returned when at least one kind ended in the error
// phase. The per-kind report has already been printed.
var errSyncFailed = errors.New("sync failed")

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [live|movie|series ...]",
		Short: "Fetch catalogs from the active source",
		Long: `Fetch the catalogs of the given kinds (all kinds when none are given) from
the active source and replace the stored rows.

Without --force a kind whose cache is younger than content_fallback_ttl is
left alone.`,
		RunE: runSync,
	}

	cmd.Flags().Bool("force", false, "fetch even when the cached catalog is fresh")

	return cmd
}

// syncReport is the JSON shape of one kind's outcome.
type syncReport struct {
	Kind      string `json:"kind"`
	Phase     string `json:"phase"`
	RunID     string `json:"run_id,omitempty"`
	FromCache bool   `json:"from_cache"`
	Count     int    `json:"count"`
	Parsed    int    `json:"parsed"`
	Chunks    int    `json:"chunks"`
	Deleted   int64  `json:"deleted"`
	HasCache  bool   `json:"has_cache"`
	Error     string `json:"error,omitempty"`
}

func newSyncReport(st sync.State) syncReport {
	r := syncReport{
		Kind:      st.Kind.String(),
		Phase:     st.Phase.String(),
		RunID:     st.Result.RunID,
		FromCache: st.Result.FromCache,
		Count:     st.Result.Count,
		Parsed:    st.Result.Parsed,
		Chunks:    st.Result.Chunks,
		Deleted:   st.Result.Deleted,
		HasCache:  st.HasCache,
	}

	if st.Err != nil {
		r.Error = st.Err.Error()
	}

	return r
}

func runSync(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())

	kinds, err := parseKinds(args)
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Canceled on return so the signal handler goes away with the command.
	cmdCtx, stop := context.WithCancel(cmd.Context())
	defer stop()

	ctx := shutdownContext(cmdCtx, cc.Logger)

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	if !cc.Flags.Quiet && !cc.Flags.JSON && isTerminal(os.Stderr) {
		stop := showProgress(a.orch, kinds, os.Stderr)
		defer stop()
	}

	states := syncKinds(ctx, a.orch, kinds, force)

	return reportSync(cmd.OutOrStdout(), cc.Flags.JSON, states)
}

// syncKinds syncs kinds concurrently and returns the states in kinds order.
func syncKinds(ctx context.Context, orch *sync.Orchestrator, kinds []catalog.Kind, force bool) []sync.State {
	if len(kinds) == len(catalog.AllKinds) {
		return orch.SyncAll(ctx, force)
	}

	states := make([]sync.State, len(kinds))

	var g errgroup.Group

	for i, kind := range kinds {
		g.Go(func() error {
			states[i] = orch.Sync(ctx, kind, force)
			return nil
		})
	}

	_ = g.Wait() // failures are carried in the states

	return states
}

func reportSync(w io.Writer, asJSON bool, states []sync.State) error {
	failed := 0

	reports := make([]syncReport, len(states))
	for i, st := range states {
		reports[i] = newSyncReport(st)

		if st.Phase == sync.PhaseError {
			failed++
		}
	}

	if asJSON {
		if err := printJSON(w, reports); err != nil {
			return err
		}
	} else {
		rows := make([][]string, len(reports))
		for i, r := range reports {
			rows[i] = []string{r.Kind, syncOutcome(r), strconv.Itoa(r.Count), strconv.Itoa(r.Chunks), r.Error}
		}

		printTable(w, []string{"KIND", "RESULT", "ITEMS", "CHUNKS", "ERROR"}, rows)
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d kinds", errSyncFailed, failed, len(states))
	}

	return nil
}

func syncOutcome(r syncReport) string {
	switch {
	case r.Error != "" && r.HasCache:
		return "failed (cache kept)"
	case r.Error != "":
		return "failed"
	case r.FromCache:
		return "cached"
	default:
		return "synced"
	}
}

// showProgress prints running parse totals for kinds on one terminal line
// until the returned stop function is called.
func showProgress(orch *sync.Orchestrator, kinds []catalog.Kind, w io.Writer) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan sync.State)

	var g errgroup.Group

	for _, kind := range kinds {
		ch, unsubscribe := orch.States(kind).Subscribe()

		g.Go(func() error {
			defer unsubscribe()

			for {
				select {
				case <-ctx.Done():
					return nil
				case st := <-ch:
					select {
					case updates <- st:
					case <-ctx.Done():
						return nil
					}
				}
			}
		})
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		progress := make(map[catalog.Kind]int, len(kinds))

		for {
			select {
			case <-ctx.Done():
				fmt.Fprint(w, "\r\033[K")
				return
			case st := <-updates:
				if st.Phase != sync.PhaseLoading {
					continue
				}

				progress[st.Kind] = st.Progress
				fmt.Fprint(w, "\r\033[K")

				for _, k := range kinds {
					fmt.Fprintf(w, "%s: %d  ", k, progress[k])
				}
			}
		}
	}()

	return func() {
		cancel()
		_ = g.Wait()
		<-done
	}
}
