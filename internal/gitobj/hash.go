// Package gitobj implements the loose object envelope (C1) and the
// binary tree-entry format (C2) of the source repository's
// content-addressed object store.
package gitobj

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/javanhut/gitcs-filter/internal/ferrors"
)

// HashSize is the length in bytes of a content identifier (SHA-1).
const HashSize = 20

// Hash is a 20-byte content identifier. The zero value is never a
// valid hash produced by Sum; it is used as a sentinel for "absent".
type Hash [HashSize]byte

// Sum computes the content identifier of an already-framed object
// byte sequence (header + payload), per §3's "the hash of this
// uncompressed byte sequence is the object's identifier".
func Sum(envelope []byte) Hash {
	return Hash(sha1.Sum(envelope))
}

// String returns the 40-character lowercase hex form.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the sentinel zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ParseHash decodes a 40-character lowercase hex string into a Hash,
// validating the length as required by §3 ("any constructor must
// validate length").
func ParseHash(hexStr string) (Hash, error) {
	var h Hash
	if len(hexStr) != HashSize*2 {
		return h, ferrors.CorruptObject("invalid hash length: got %d chars, want %d", len(hexStr), HashSize*2)
	}
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return h, ferrors.CorruptObject("invalid hash hex %q: %s", hexStr, err)
	}
	copy(h[:], raw)
	return h, nil
}

// MustParseHash is ParseHash but panics on error; used only for
// compile-time-known constants in tests.
func MustParseHash(hexStr string) Hash {
	h, err := ParseHash(hexStr)
	if err != nil {
		panic(err)
	}
	return h
}
