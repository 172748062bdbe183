package blake3

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [OutLen]byte

// String returns the digest in lowercase hex.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Equal reports whether two digests match, in constant time.
func (h Hash) Equal(other Hash) bool {
	return subtle.ConstantTimeCompare(h[:], other[:]) == 1
}

// ParseHash decodes a 64-character hex digest. Upper and lower case are
// both accepted.
func ParseHash(s string) (Hash, error) {
	if len(s) != 2*OutLen {
		return Hash{}, fmt.Errorf("blake3: expected %d hex characters, got %d", 2*OutLen, len(s))
	}
	var h Hash
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("blake3: invalid digest: %w", err)
	}
	return h, nil
}
