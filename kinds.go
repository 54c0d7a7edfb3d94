package main

import (
	"slices"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

// parseKinds turns kind arguments into content kinds in catalog order. No
// arguments means every kind.
func parseKinds(args []string) ([]catalog.Kind, error) {
	if len(args) == 0 {
		return catalog.AllKinds, nil
	}

	var kinds []catalog.Kind

	for _, arg := range args {
		k, err := catalog.ParseKind(arg)
		if err != nil {
			return nil, err
		}

		if !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}

	slices.Sort(kinds)

	return kinds, nil
}
