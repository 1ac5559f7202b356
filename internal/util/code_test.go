package util

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmationCode(t *testing.T) {
	re := regexp.MustCompile(`^[0-9A-F]{6}$`)
	seen := map[string]bool{}

	for i := 0; i < 100; i++ {
		code := ConfirmationCode()
		require.Regexp(t, re, code)
		seen[code] = true
	}

	// 100 draws from a 16M space should not all collide
	assert.Greater(t, len(seen), 90)
}

func TestNewIDShapeAndUniqueness(t *testing.T) {
	a := NewID()
	b := NewID()

	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}
