package store

import (
	"fmt"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

type index struct {
	name string
	ddl  string
}

// table describes a content table. The primary key (source_id, idColumn) is
// never dropped; only the listed secondary indexes are suspended in bulk mode.
type table struct {
	name     string
	idColumn string
	indexes  []index
}

var tables = map[catalog.Kind]table{
	catalog.KindLive: {
		name:     "live_channels",
		idColumn: "stream_id",
		indexes: []index{
			{"idx_live_channels_category", "ON live_channels (source_id, category_id, num)"},
			{"idx_live_channels_name", "ON live_channels (source_id, name)"},
			{"idx_live_channels_favorite", "ON live_channels (source_id, favorite)"},
		},
	},
	catalog.KindMovie: {
		name:     "movies",
		idColumn: "stream_id",
		indexes: []index{
			{"idx_movies_category", "ON movies (source_id, category_id, name)"},
			{"idx_movies_added", "ON movies (source_id, added)"},
			{"idx_movies_favorite", "ON movies (source_id, favorite)"},
		},
	},
	catalog.KindSeries: {
		name:     "series",
		idColumn: "series_id",
		indexes: []index{
			{"idx_series_category", "ON series (source_id, category_id, name)"},
			{"idx_series_last_modified", "ON series (source_id, last_modified)"},
			{"idx_series_favorite", "ON series (source_id, favorite)"},
		},
	},
}

func tableFor(kind catalog.Kind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("store: no table for kind %s", kind)
	}

	return t, nil
}
