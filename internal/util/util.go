package util

import (
	"crypto/sha1"
	"encoding/hex"
)

// EndpointID returns the hex sha1 of an endpoint uri. It is stable across
// restarts and safe to use as a path segment.
func EndpointID(uri string) string {
	sum := sha1.Sum([]byte(uri))

	return hex.EncodeToString(sum[:])
}
