package catalog

import "time"

// Channel is a live TV stream.
type Channel struct {
	SourceID     string
	StreamID     int64 // stable id assigned by the panel
	Num          int
	Name         string
	Icon         string
	CategoryID   string
	CategoryName string // resolved from the category list at write time
	EPGChannelID string
	TVArchive    bool
	Added        int64 // unix seconds, as reported by the panel
	Favorite     bool
}

// Movie is a video-on-demand stream.
type Movie struct {
	SourceID       string
	StreamID       int64
	Name           string
	Icon           string
	CategoryID     string
	CategoryName   string
	Rating         float64
	Extension      string // container extension used to build the playback URL
	Added          int64
	Favorite       bool
	ResumePosition time.Duration
}

// SeriesItem is a series entry. Seasons and episodes are fetched on demand
// and never stored by the bulk sync.
type SeriesItem struct {
	SourceID     string
	SeriesID     int64
	Name         string
	Cover        string
	CategoryID   string
	CategoryName string
	Plot         string
	Genre        string
	ReleaseDate  string
	Rating       float64
	LastModified int64
	Favorite     bool
}

// Category groups content of one kind. Unique on (SourceID, CategoryID, Kind).
type Category struct {
	SourceID   string
	CategoryID string
	Kind       Kind
	Name       string
	ParentID   string
}

// NameIndex builds the categoryID -> name lookup used by the mappers.
func NameIndex(cats []Category) map[string]string {
	idx := make(map[string]string, len(cats))
	for _, c := range cats {
		idx[c.CategoryID] = c.Name
	}

	return idx
}

// CacheMetadata records the outcome of the last completed sync for one
// source and kind. It is the single authority for "is a sync needed".
type CacheMetadata struct {
	SourceID      string
	Kind          Kind
	LastUpdated   time.Time
	ItemCount     int
	CategoryCount int
}

// IsFresh reports whether the metadata is younger than ttl at now.
func (m CacheMetadata) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(m.LastUpdated) < ttl
}

// NavigationGroup is a derived grouping of categories (for example every
// category whose name starts with "UK |"). Always reproducible from the
// category rows and a grouping function.
type NavigationGroup struct {
	SourceID    string
	Kind        Kind
	GroupName   string
	CategoryIDs []string
	Separator   string
}

// PageRequest selects a window of stored records for the UI.
type PageRequest struct {
	SourceID      string
	Kind          Kind
	CategoryID    string // empty for all categories
	FavoritesOnly bool
	Offset        int
	Limit         int
}

// Preserved holds the per-row user state that must survive a wholesale
// replace of a source's rows.
type Preserved struct {
	Favorites map[int64]bool
	Resume    map[int64]time.Duration
}

// Empty reports whether nothing needs re-applying.
func (p Preserved) Empty() bool {
	return len(p.Favorites) == 0 && len(p.Resume) == 0
}
