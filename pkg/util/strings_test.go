package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	valid := []string{
		"seller@example.org",
		"x@y.io",
		"first.last@example.org",
		"user+tag@sub.example.co",
		"user_name@example-host.org",
	}
	for _, email := range valid {
		assert.True(t, IsValidEmail(email), email)
	}

	invalid := []string{
		"",
		"not-an-email",
		"@example.org",
		"user@",
		"user@example",
		".user@example.org",
		"user.@example.org",
		"user@-example.org",
		"user name@example.org",
	}
	for _, email := range invalid {
		assert.False(t, IsValidEmail(email), email)
	}
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "se****@example.org", MaskEmail("seller@example.org"))
	assert.Equal(t, "gh***@example.org", MaskEmail("ghost@example.org"))
	assert.Equal(t, "ab@example.org", MaskEmail("ab@example.org"))
	assert.Equal(t, "a@example.org", MaskEmail("a@example.org"))
	assert.Equal(t, "not-an-email", MaskEmail("not-an-email"))
}
