// Package hash computes the content digests bindings use to tell a real
// change from an echo of a value they already published.
package hash

import (
	"encoding/json"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the xxhash digest of b.
func Sum(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// JSON digests the JSON encoding of v. Values that encode identically share
// a digest, so a struct and the map it round-trips to compare equal.
func JSON(v any) (uint64, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return Sum(b), nil
}

// Presence digests v together with whether it was present, so an absent
// value never matches a present zero value.
func Presence(v any, present bool) (uint64, error) {
	d, err := JSON(v)
	if err != nil {
		return 0, err
	}
	h := xxhash.New()
	var buf [9]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(d >> (8 * i))
	}
	if present {
		buf[8] = 1
	}
	_, _ = h.Write(buf[:])
	return h.Sum64(), nil
}
