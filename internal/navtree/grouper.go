package navtree

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

// OtherGroup collects categories whose names carry no recognizable prefix.
const OtherGroup = "Other"

// Grouper derives navigation groups from a category list. It must be pure:
// the same input always yields the same groups.
type Grouper func(cats []catalog.Category) []catalog.NavigationGroup

// prefixSeparators are tried in order; the first one found in a name wins.
var prefixSeparators = []string{"|", ":", " - "}

// SplitPrefixGrouper groups categories by the text before the first
// separator, so "UK | Sports" and "UK | News" land in group "UK". Prefix
// matching ignores case. Groups keep the order in which their first member
// appears; OtherGroup, if present, comes last.
func SplitPrefixGrouper(cats []catalog.Category) []catalog.NavigationGroup {
	var (
		groups []catalog.NavigationGroup
		byKey  = make(map[string]int)
		other  []string
	)

	for _, c := range cats {
		prefix, sep, ok := splitPrefix(c.Name)
		if !ok {
			other = append(other, c.CategoryID)
			continue
		}

		key := strings.ToUpper(prefix)

		i, seen := byKey[key]
		if !seen {
			i = len(groups)
			byKey[key] = i
			groups = append(groups, catalog.NavigationGroup{
				SourceID:  c.SourceID,
				Kind:      c.Kind,
				GroupName: prefix,
				Separator: sep,
			})
		}

		groups[i].CategoryIDs = append(groups[i].CategoryIDs, c.CategoryID)
	}

	if len(other) > 0 {
		g := catalog.NavigationGroup{GroupName: OtherGroup, CategoryIDs: other}
		if len(cats) > 0 {
			g.SourceID = cats[0].SourceID
			g.Kind = cats[0].Kind
		}

		groups = append(groups, g)
	}

	return groups
}

// splitPrefix returns the normalized prefix of name and the separator that
// ended it. ok is false when no separator yields a non-empty prefix and rest.
func splitPrefix(name string) (prefix, sep string, ok bool) {
	name = norm.NFC.String(name)

	for _, s := range prefixSeparators {
		before, after, found := strings.Cut(name, s)
		if !found {
			continue
		}

		before = strings.TrimSpace(before)
		if before == "" || strings.TrimSpace(after) == "" {
			continue
		}

		return before, strings.TrimSpace(s), true
	}

	return "", "", false
}
