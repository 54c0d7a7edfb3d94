package config

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoSource is returned when no source is selected and the choice is
// ambiguous or there is nothing configured.
var ErrNoSource = errors.New("config: no active source")

// ErrSourceDisabled is returned when the selected source has enabled = false.
var ErrSourceDisabled = errors.New("config: source is disabled")

// SourceNames returns configured source names in sorted order.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Source looks up a source by name. Unknown names get a suggestion.
func (c *Config) Source(name string) (SourceConfig, error) {
	src, ok := c.Sources[name]
	if ok {
		return src, nil
	}

	if suggestion := closestMatch(name, c.SourceNames()); suggestion != "" {
		return SourceConfig{}, fmt.Errorf("unknown source %q, did you mean %q?", name, suggestion)
	}

	return SourceConfig{}, fmt.Errorf("unknown source %q", name)
}

// SelectSource picks the source to sync. Precedence: override, then
// active_source, then the only enabled source when there is exactly one.
func (c *Config) SelectSource(override string) (string, SourceConfig, error) {
	name := override
	if name == "" {
		name = c.ActiveSource
	}

	if name == "" {
		var enabled []string

		for _, n := range c.SourceNames() {
			if c.Sources[n].IsEnabled() {
				enabled = append(enabled, n)
			}
		}

		if len(enabled) != 1 {
			return "", SourceConfig{}, ErrNoSource
		}

		name = enabled[0]
	}

	src, err := c.Source(name)
	if err != nil {
		return "", SourceConfig{}, err
	}

	if !src.IsEnabled() {
		return "", SourceConfig{}, fmt.Errorf("%w: %s", ErrSourceDisabled, name)
	}

	return name, src, nil
}
