package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"batch", "batch", 0},
		{"verison", "version", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "%q -> %q", tt.a, tt.b)
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []string{"api", "auth", "batch", "delete", "get", "patch", "post", "put", "version"}

	assert.Equal(t, "version", suggestCommand("verison", commands))
	assert.Equal(t, "batch", suggestCommand("BTCH", commands))
	assert.Equal(t, "", suggestCommand("", commands))
	assert.Equal(t, "", suggestCommand("zzzzzzzzzz", commands))
}

func TestSuggestFlag(t *testing.T) {
	flagNames := []string{"--include", "--input", "-i", "--max-retries", "--retry-delay"}

	assert.Equal(t, "--include", suggestFlag("--incude", flagNames))
	assert.Equal(t, "--retry-delay", suggestFlag("--retry-dela", flagNames))
	assert.Equal(t, "", suggestFlag("--", flagNames))
}

func TestSuggestFlagFuzzyFallback(t *testing.T) {
	flagNames := []string{"--include", "--max-retries", "--retry-delay"}

	// Too far by edit distance; matched as an abbreviation.
	assert.Equal(t, "--max-retries", suggestFlag("--mxrtr", flagNames))
}
