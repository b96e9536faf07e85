package utils

import (
	"github.com/gosimple/slug"
)

// GenerateSlug creates a URL-friendly slug from a string.
// A short random suffix keeps slugs unique across contests with the same title.
func GenerateSlug(input string) string {
	base := slug.Make(input)
	if base == "" {
		return GenerateID()[:8]
	}
	return base + "-" + GenerateID()[:6]
}
