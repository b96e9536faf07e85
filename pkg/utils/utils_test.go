package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pushp314/hackarena-backend/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_RoundTrip(t *testing.T) {
	prev := config.AppConfig
	cfg := *prev
	cfg.JWTSecret = "utils-secret"
	config.AppConfig = &cfg
	t.Cleanup(func() { config.AppConfig = prev })

	token, err := GenerateToken("user-1", "ADMIN")
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "ADMIN", claims.Role)

	cfg.JWTSecret = "rotated"
	_, err = ValidateToken(token)
	assert.Error(t, err, "signed with another secret")
}

func TestGenerateSlug(t *testing.T) {
	s := GenerateSlug("Spring Sprint 3")
	assert.True(t, strings.HasPrefix(s, "spring-sprint-3-"), s)
	assert.Len(t, s, len("spring-sprint-3-")+6)
	assert.NotEqual(t, s, GenerateSlug("Spring Sprint 3"))

	assert.Len(t, GenerateSlug("!!!"), 8, "falls back to a random id")
}

func TestTruncateAndNormalize(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 5))
	assert.Equal(t, "ab...", TruncateString("abcdef", 2))

	// "é" is two bytes; a cut through it backs up to the rune boundary.
	out := TruncateString("aé€b", 2)
	assert.Equal(t, "a...", out)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "aé€...", TruncateString("aé€b", 6))
	assert.Equal(t, "a\nb\n", NormalizeNewlines("a\r\nb\r\n"))
}
