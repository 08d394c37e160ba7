package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns an opaque entity id: the type prefix, an underscore and 12
// random bytes in hex. Ids carry no ordering or meaning; uniqueness comes
// from the random tail.
func NewID(prefix string) string {
	bytes := make([]byte, 12)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
