package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions.
const maxLevenshteinDistance = 3

// sourceSection is the table that holds per-source subtables.
const sourceSection = "source"

// knownTopLevelKeys are the valid keys and tables at the root of the file.
// Sorted so ties in edit distance resolve deterministically.
var knownTopLevelKeys = []string{"active_source", "logging", "network", sourceSection, "storage", "sync"}

// knownSectionKeys are the valid keys inside each fixed section, sorted.
var knownSectionKeys = map[string][]string{
	"sync": {
		"batch_size", "category_ttl", "content_fallback_ttl", "flush_threshold",
		"refresh_interval", "retry_attempts", "sync_timeout",
	},
	"network": {"connect_timeout", "require_vpn", "requests_per_second", "user_agent", "vpn_interfaces"},
	"logging": {"log_file", "log_format", "log_level"},
	"storage": {"db_path"},
}

// knownSourceKeys are the valid keys inside a [source.<name>] table, sorted.
var knownSourceKeys = []string{"enabled", "password", "url", "username"}

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns an
// error with suggestions for each one. Children of an unknown table are
// reported once, under the table.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	seen := make(map[string]bool)

	for _, key := range md.Undecoded() {
		err := unknownKeyError(key)
		if err == nil || seen[err.Error()] {
			continue
		}

		seen[err.Error()] = true
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func unknownKeyError(key toml.Key) error {
	switch {
	case len(key) == 0:
		return nil
	case key[0] == sourceSection && len(key) >= 3:
		return suggestKey(key[2], knownSourceKeys, fmt.Sprintf("[source.%s]", key[1]))
	case len(key) >= 2 && knownSectionKeys[key[0]] != nil:
		return suggestKey(key[1], knownSectionKeys[key[0]], fmt.Sprintf("[%s]", key[0]))
	}

	// Flat keys that belong to a section are a common mistake.
	for section, keys := range knownSectionKeys {
		if len(key) == 1 && slices.Contains(keys, key[0]) {
			return fmt.Errorf("unknown config key %q at top level, it belongs in [%s]", key[0], section)
		}
	}

	return suggestKey(key[0], knownTopLevelKeys, "")
}

// suggestKey builds the error for an unknown key, naming the closest known
// key when one is near enough.
func suggestKey(name string, known []string, where string) error {
	loc := ""
	if where != "" {
		loc = " in " + where
	}

	if suggestion := closestMatch(name, known); suggestion != "" {
		return fmt.Errorf("unknown config key %q%s, did you mean %q?", name, loc, suggestion)
	}

	return fmt.Errorf("unknown config key %q%s", name, loc)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings using two rows.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
