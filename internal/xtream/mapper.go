package xtream

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

// cleanName trims and NFC-normalizes a display name so that the same title
// sent with combining characters by one panel and precomposed by another
// sorts and filters identically.
func cleanName(s FlexString) string {
	return norm.NFC.String(strings.TrimSpace(string(s)))
}

// ToCategory converts a wire category to the domain type.
func (c Category) ToCategory(sourceID string, kind catalog.Kind) catalog.Category {
	parent := string(c.ParentID)
	if parent == "0" {
		parent = ""
	}

	return catalog.Category{
		SourceID:   sourceID,
		CategoryID: string(c.CategoryID),
		Kind:       kind,
		Name:       cleanName(c.CategoryName),
		ParentID:   parent,
	}
}

// ToChannel converts a live stream, resolving the category name from names.
func (s LiveStream) ToChannel(sourceID string, names map[string]string) catalog.Channel {
	catID := string(s.CategoryID)

	return catalog.Channel{
		SourceID:     sourceID,
		StreamID:     int64(s.StreamID),
		Num:          int(s.Num),
		Name:         cleanName(s.Name),
		Icon:         string(s.StreamIcon),
		CategoryID:   catID,
		CategoryName: names[catID],
		EPGChannelID: string(s.EPGChannelID),
		TVArchive:    bool(s.TVArchive),
		Added:        int64(s.Added),
	}
}

// ToMovie converts a VOD stream, resolving the category name from names.
func (s VODStream) ToMovie(sourceID string, names map[string]string) catalog.Movie {
	catID := string(s.CategoryID)

	return catalog.Movie{
		SourceID:     sourceID,
		StreamID:     int64(s.StreamID),
		Name:         cleanName(s.Name),
		Icon:         string(s.StreamIcon),
		CategoryID:   catID,
		CategoryName: names[catID],
		Rating:       float64(s.Rating),
		Extension:    string(s.ContainerExtension),
		Added:        int64(s.Added),
	}
}

// ToSeriesItem converts a series entry, resolving the category name from names.
func (s Series) ToSeriesItem(sourceID string, names map[string]string) catalog.SeriesItem {
	catID := string(s.CategoryID)

	return catalog.SeriesItem{
		SourceID:     sourceID,
		SeriesID:     int64(s.SeriesID),
		Name:         cleanName(s.Name),
		Cover:        string(s.Cover),
		CategoryID:   catID,
		CategoryName: names[catID],
		Plot:         string(s.Plot),
		Genre:        string(s.Genre),
		ReleaseDate:  string(s.ReleaseDate),
		Rating:       float64(s.Rating),
		LastModified: int64(s.LastModified),
	}
}
