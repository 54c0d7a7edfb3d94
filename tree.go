package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <live|movie|series>",
		Short: "Show categories grouped by name prefix",
		Long: `Show the navigation tree of one kind: categories grouped by the prefix
before "|", ":" or " - " in their names. Ungrouped categories are listed
under "Other". Trees are cached for category_ttl.`,
		Args: cobra.ExactArgs(1),
		RunE: runTree,
	}
}

type treeGroup struct {
	Name       string         `json:"name"`
	Categories []treeCategory `json:"categories"`
}

type treeCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func runTree(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	kind, err := catalog.ParseKind(args[0])
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

	groups, err := a.nav.Tree(ctx, sourceID, kind)
	if err != nil {
		return err
	}

	cats, err := a.store.Categories(ctx, sourceID, kind)
	if err != nil {
		return err
	}

	names := catalog.NameIndex(cats)

	out := make([]treeGroup, len(groups))
	for i, g := range groups {
		tg := treeGroup{Name: g.GroupName, Categories: make([]treeCategory, len(g.CategoryIDs))}
		for j, id := range g.CategoryIDs {
			tg.Categories[j] = treeCategory{ID: id, Name: names[id]}
		}

		out[i] = tg
	}

	w := cmd.OutOrStdout()

	if cc.Flags.JSON {
		return printJSON(w, out)
	}

	if len(out) == 0 {
		cc.Statusf("No categories stored for %s. Run 'iptv-sync sync %s' first.\n", kind, kind)
		return nil
	}

	for _, g := range out {
		fmt.Fprintf(w, "%s (%d)\n", g.Name, len(g.Categories))

		for _, c := range g.Categories {
			fmt.Fprintf(w, "  %s  %s\n", c.ID, strings.TrimSpace(c.Name))
		}
	}

	return nil
}
