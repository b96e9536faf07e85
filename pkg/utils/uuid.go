package utils

import "github.com/google/uuid"

// GenerateID returns a random UUID for primary keys.
func GenerateID() string {
	return uuid.New().String()
}
