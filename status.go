package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
	"github.com/tonimelisma/iptv-sync/internal/sync"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cache freshness per source and kind",
		Long: `Show what is stored for the active source and any other source with cached
data: item and category counts, last update, freshness against
content_fallback_ttl, and indexes left dropped by an interrupted load.`,
		RunE: runStatus,
	}
}

type statusReport struct {
	ConfigPath   string        `json:"config_path"`
	DBPath       string        `json:"db_path"`
	ActiveSource string        `json:"active_source,omitempty"`
	SourceError  string        `json:"source_error,omitempty"`
	WatchPID     int           `json:"watch_pid,omitempty"`
	Caches       []cacheStatus `json:"caches"`
}

type cacheStatus struct {
	Source         string     `json:"source"`
	Kind           string     `json:"kind"`
	Items          int        `json:"items"`
	Categories     int        `json:"categories"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
	Fresh          bool       `json:"fresh"`
	MissingIndexes []string   `json:"missing_indexes,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := cc.Holder.Config()
	report := statusReport{ConfigPath: cc.Holder.Path(), DBPath: cfg.Storage.DBPath}

	active, err := a.activeSourceID()
	switch {
	case err == nil:
		report.ActiveSource = active
	case errors.Is(err, sync.ErrNoActiveSource):
		report.SourceError = err.Error()
	default:
		return err
	}

	if proc, err := findWatcher(cfg.PIDFilePath()); err == nil {
		report.WatchPID = proc.Pid
	}

	report.Caches, err = collectCacheStatus(ctx, a, active, cfg.Sync.ContentFallbackTTLDuration(), time.Now())
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(cmd.OutOrStdout(), report)
	}

	printStatus(cmd.OutOrStdout(), report, time.Now())

	return nil
}

// collectCacheStatus lists every (source, kind) with metadata, plus every
// kind of the active source even when it has never been synced.
func collectCacheStatus(
	ctx context.Context, a *app, active string, ttl time.Duration, now time.Time,
) ([]cacheStatus, error) {
	mds, err := a.store.ListMetadata(ctx)
	if err != nil {
		return nil, err
	}

	type key struct {
		source string
		kind   catalog.Kind
	}

	byKey := make(map[key]catalog.CacheMetadata, len(mds))
	var order []key

	if active != "" {
		for _, k := range catalog.AllKinds {
			order = append(order, key{active, k})
		}
	}

	for _, md := range mds {
		k := key{md.SourceID, md.Kind}
		if _, seen := byKey[k]; !seen && md.SourceID != active {
			order = append(order, k)
		}

		byKey[k] = md
	}

	missingByKind := make(map[catalog.Kind][]string, len(catalog.AllKinds))

	for _, k := range catalog.AllKinds {
		missing, err := a.store.MissingIndexes(ctx, k)
		if err != nil {
			return nil, err
		}

		missingByKind[k] = missing
	}

	out := make([]cacheStatus, 0, len(order))

	for _, k := range order {
		items, err := a.store.Count(ctx, k.kind, k.source)
		if err != nil {
			return nil, err
		}

		cs := cacheStatus{
			Source:         k.source,
			Kind:           k.kind.String(),
			Items:          items,
			MissingIndexes: missingByKind[k.kind],
		}

		if md, ok := byKey[k]; ok {
			updated := md.LastUpdated
			cs.LastUpdated = &updated
			cs.Categories = md.CategoryCount
			cs.Fresh = md.IsFresh(now, ttl)
		}

		out = append(out, cs)
	}

	return out, nil
}

func printStatus(w io.Writer, r statusReport, now time.Time) {
	fmt.Fprintf(w, "Config:   %s\n", r.ConfigPath)
	fmt.Fprintf(w, "Database: %s\n", r.DBPath)

	if r.ActiveSource != "" {
		fmt.Fprintf(w, "Source:   %s\n", r.ActiveSource)
	} else {
		fmt.Fprintf(w, "Source:   none (%s)\n", r.SourceError)
	}

	if r.WatchPID != 0 {
		fmt.Fprintf(w, "Watch:    running (PID %d)\n", r.WatchPID)
	} else {
		fmt.Fprintln(w, "Watch:    not running")
	}

	fmt.Fprintln(w)

	rows := make([][]string, len(r.Caches))
	for i, c := range r.Caches {
		var updated time.Time
		if c.LastUpdated != nil {
			updated = *c.LastUpdated
		}

		rows[i] = []string{
			c.Source, c.Kind, strconv.Itoa(c.Items), strconv.Itoa(c.Categories),
			formatTime(updated), formatAge(now, updated), yesNo(c.Fresh), strings.Join(c.MissingIndexes, ","),
		}
	}

	printTable(w, []string{"SOURCE", "KIND", "ITEMS", "CATEGORIES", "UPDATED", "AGE", "FRESH", "MISSING INDEXES"}, rows)
}
