package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionID returns a fresh unique identifier for an import session.
func NewSessionID() string {
	return uuid.NewString()
}

// NewLocationCode returns a twelve-character upper-case code used in
// archive path construction. The format is a persisted-layout constraint;
// the generator only needs to be collision resistant.
func NewLocationCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(hex[:12])
}

// NewShortCode returns an L-XXXXXX style display code.
func NewShortCode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "L-" + strings.ToUpper(hex[:6])
}
