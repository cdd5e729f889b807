package hash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// keyHash returns a 32-bit hash of key's string representation. Using
// xxhash (already present in this corpus's dependency surface via
// ristretto's transitive requirement) rather than a hand-rolled hash gives
// a fast, well-distributed, non-cryptographic hash without inventing one.
func keyHash[K comparable](key K) uint32 {
	return uint32(xxhash.Sum64String(fmt.Sprint(key)))
}
