package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_HasPrefix(t *testing.T) {
	got, err := Generate("ebook")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "ebook-"))
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		got, err := Generate("user")
		require.NoError(t, err)
		assert.False(t, seen[got], "duplicate ID generated: %s", got)
		seen[got] = true
	}
}

func TestMustGenerate(t *testing.T) {
	got := MustGenerate("session")
	assert.True(t, strings.HasPrefix(got, "session-"))
	// NanoID default length is 21 characters plus our prefix and dash.
	assert.Len(t, got, len("session-")+21)
}
