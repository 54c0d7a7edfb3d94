package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
	"github.com/tonimelisma/iptv-sync/internal/store"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <live|movie|series>",
		Short: "Page through stored items of one kind",
		Args:  cobra.ExactArgs(1),
		RunE:  runList,
	}

	cmd.Flags().String("category", "", "only items in this category id")
	cmd.Flags().Int("offset", 0, "items to skip")
	cmd.Flags().Int("limit", store.DefaultPageLimit, "items to show")
	cmd.Flags().Bool("favorites", false, "only favorites")

	return cmd
}

// listItem is the JSON shape shared by all kinds. Fields that do not apply
// to a kind are omitted.
type listItem struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Favorite     bool    `json:"favorite"`
	Rating       float64 `json:"rating,omitempty"`
	Extension    string  `json:"extension,omitempty"`
	ResumeSecs   int64   `json:"resume_seconds,omitempty"`
	EPGChannelID string  `json:"epg_channel_id,omitempty"`
	Genre        string  `json:"genre,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	kind, err := catalog.ParseKind(args[0])
	if err != nil {
		return err
	}

	req, err := pageRequestFromFlags(cmd, kind)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	if req.SourceID, err = a.activeSourceID(); err != nil {
		return err
	}

	var items []listItem

	switch kind {
	case catalog.KindLive:
		rows, err := a.store.Channels(ctx, req)
		if err != nil {
			return err
		}

		for _, c := range rows {
			items = append(items, listItem{
				ID: c.StreamID, Name: c.Name, CategoryID: c.CategoryID, CategoryName: c.CategoryName,
				Favorite: c.Favorite, EPGChannelID: c.EPGChannelID,
			})
		}
	case catalog.KindMovie:
		rows, err := a.store.Movies(ctx, req)
		if err != nil {
			return err
		}

		for _, m := range rows {
			items = append(items, listItem{
				ID: m.StreamID, Name: m.Name, CategoryID: m.CategoryID, CategoryName: m.CategoryName,
				Favorite: m.Favorite, Rating: m.Rating, Extension: m.Extension,
				ResumeSecs: int64(m.ResumePosition.Seconds()),
			})
		}
	case catalog.KindSeries:
		rows, err := a.store.Series(ctx, req)
		if err != nil {
			return err
		}

		for _, s := range rows {
			items = append(items, listItem{
				ID: s.SeriesID, Name: s.Name, CategoryID: s.CategoryID, CategoryName: s.CategoryName,
				Favorite: s.Favorite, Rating: s.Rating, Genre: s.Genre,
			})
		}
	}

	if cc.Flags.JSON {
		if items == nil {
			items = []listItem{}
		}

		return printJSON(cmd.OutOrStdout(), items)
	}

	printItems(cmd.OutOrStdout(), kind, items)

	return nil
}

func pageRequestFromFlags(cmd *cobra.Command, kind catalog.Kind) (catalog.PageRequest, error) {
	req := catalog.PageRequest{Kind: kind}

	var err error

	if req.CategoryID, err = cmd.Flags().GetString("category"); err != nil {
		return req, err
	}

	if req.Offset, err = cmd.Flags().GetInt("offset"); err != nil {
		return req, err
	}

	if req.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return req, err
	}

	if req.FavoritesOnly, err = cmd.Flags().GetBool("favorites"); err != nil {
		return req, err
	}

	if req.Offset < 0 || req.Limit < 0 {
		return req, fmt.Errorf("--offset and --limit must not be negative")
	}

	return req, nil
}

func printItems(w io.Writer, kind catalog.Kind, items []listItem) {
	headers := []string{"ID", "NAME", "CATEGORY", "FAV"}
	if kind == catalog.KindMovie {
		headers = append(headers, "RESUME")
	}

	rows := make([][]string, len(items))
	for i, it := range items {
		row := []string{strconv.FormatInt(it.ID, 10), it.Name, it.CategoryName, yesNo(it.Favorite)}
		if kind == catalog.KindMovie {
			row = append(row, formatPosition(secondsToDuration(it.ResumeSecs)))
		}

		rows[i] = row
	}

	printTable(w, headers, rows)
}
