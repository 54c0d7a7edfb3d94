// Package catalog defines the content records, categories, and cache metadata
// shared by the remote client, the local store, and the sync pipeline. It is a
// leaf package with no dependencies beyond the standard library.
package catalog

import (
	"fmt"
	"strings"
)

// Kind identifies one of the three catalogs a source exposes.
type Kind int

// Content kinds, in the order they are synced by SyncAll.
const (
	KindLive Kind = iota
	KindMovie
	KindSeries
)

// AllKinds lists every content kind.
var AllKinds = []Kind{KindLive, KindMovie, KindSeries}

// String returns the storage/config spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindLive:
		return "live"
	case KindMovie:
		return "movie"
	case KindSeries:
		return "series"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a user- or database-supplied string into a Kind.
// Accepts a few common aliases ("channels", "movies", "vod").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live", "channel", "channels", "tv":
		return KindLive, nil
	case "movie", "movies", "vod":
		return KindMovie, nil
	case "series", "show", "shows":
		return KindSeries, nil
	default:
		return 0, fmt.Errorf("catalog: unknown content kind %q", s)
	}
}
