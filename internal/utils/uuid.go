package utils

import "github.com/google/uuid"

// NewID returns a time-ordered UUID (version 7) string, falling back to a
// random v4 when the monotonic source fails. Time-ordered ids keep record
// and journal rows roughly insertion-ordered in their indexes.
func NewID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}
