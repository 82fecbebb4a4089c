package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidImageType(t *testing.T) {
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
		assert.True(t, isValidImageType(ext), ext)
	}
	for _, ext := range []string{".exe", ".svg", ".pdf", ""} {
		assert.False(t, isValidImageType(ext), ext)
	}
}

func TestContainsDotDot(t *testing.T) {
	assert.False(t, ContainsDotDot("avatars/a.png"))
	assert.False(t, ContainsDotDot("/avatars/a.png"))
	assert.True(t, ContainsDotDot("../etc/passwd"))
	assert.True(t, ContainsDotDot("avatars/../../etc/passwd"))
}
