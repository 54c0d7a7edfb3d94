package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnknownKey_TopLevel(t *testing.T) {
	path := writeTestConfig(t, `active_sourc = "x"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "active_sourc"`)
	assert.Contains(t, err.Error(), `did you mean "active_source"`)
}

func TestLoad_UnknownKey_InSection(t *testing.T) {
	path := writeTestConfig(t, "[sync]\nflush_treshold = 10\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in [sync]")
	assert.Contains(t, err.Error(), "flush_threshold")
}

func TestLoad_UnknownKey_InSource(t *testing.T) {
	path := writeTestConfig(t, "[source.home]\nurl = \"http://a.example\"\nusername = \"u\"\npasword = \"p\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in [source.home]")
	assert.Contains(t, err.Error(), `did you mean "password"`)
}

func TestLoad_UnknownKey_FlatSectionKey(t *testing.T) {
	path := writeTestConfig(t, "log_level = \"debug\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs in [logging]")
}

func TestLoad_UnknownTableReportedOnce(t *testing.T) {
	path := writeTestConfig(t, "[synk]\nbatch_size = 1\nretry_attempts = 2\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "sync"`)
	assert.Equal(t, 1, strings.Count(err.Error(), `"synk"`))
}

func TestLoad_UnknownKey_NoSuggestion(t *testing.T) {
	path := writeTestConfig(t, "[network]\ncompletely_unrelated_key = true\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"flush_treshold", "flush_threshold", 1},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.expected, levenshtein(tt.a, tt.b))
		})
	}
}

func TestClosestMatch(t *testing.T) {
	assert.Equal(t, "url", closestMatch("uri", knownSourceKeys))
	assert.Empty(t, closestMatch("something_else_entirely", knownSourceKeys))
}
