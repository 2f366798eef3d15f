package color

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForUser_StableAndWellFormed(t *testing.T) {
	hexColor := regexp.MustCompile(`^#[0-9A-F]{6}$`)

	first := ForUser("user_abc123")
	assert.Regexp(t, hexColor, first)
	assert.Equal(t, first, ForUser("user_abc123"))

	assert.NotEqual(t, first, ForUser("user_xyz789"))
}
