// Package checksum fingerprints note contents for change detection and
// If-Match checks.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether data hashes to want. An empty want (no If-Match
// header) always matches; surrounding ETag quotes are ignored.
func Matches(data []byte, want string) bool {
	want = strings.Trim(want, `"`)
	return want == "" || want == Sum(data)
}
