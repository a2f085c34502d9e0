package shared

import (
	"crypto/sha256"
	"crypto/subtle"
)

// KeyMatches reports whether provided equals expected in constant time.
// An empty expected key never matches.
func KeyMatches(provided, expected string) bool {
	if expected == "" {
		return false
	}
	p := sha256.Sum256([]byte(provided))
	e := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(p[:], e[:]) == 1
}
