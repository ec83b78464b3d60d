package collections

import (
	"crypto/sha256"
	"encoding/hex"
)

// StringSha256 returns the hex sha256 digest of s.
func StringSha256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ShortDigest returns the first n hex digits of the sha256 digest of s, for
// file names keyed by arbitrary strings.
func ShortDigest(s string, n int) string {
	digest := StringSha256(s)
	if n > 0 && n < len(digest) {
		return digest[:n]
	}
	return digest
}
