package hashindex

import "github.com/cespare/xxhash/v2"

// defaultHash hashes encoded key bytes with xxhash — already one step
// removed from this module's own dependency graph (pulled in transitively
// by ristretto) and exactly the kind of fast, well-distributed hash an
// extendible hash table's bucket routing wants.
func defaultHash(b []byte) uint32 {
	return uint32(xxhash.Sum64(b))
}

// bucketIndex returns the directory slot a hash routes to at globalDepth:
// the low globalDepth bits of h, matching the directory's low-bit masking
// convention — two indices share a bucket iff their low ℓ bits agree.
func bucketIndex(h uint32, globalDepth uint8) uint32 {
	if globalDepth == 0 {
		return 0
	}
	mask := uint32(1)<<globalDepth - 1
	return h & mask
}

// imageIndex returns the "split image" of index at localDepth: the slot
// that shares every bit of index except the one at position localDepth-1,
// the sibling a bucket is split against and later merged back with.
func imageIndex(index uint32, localDepth uint8) uint32 {
	if localDepth == 0 {
		return index
	}
	return index ^ (1 << (localDepth - 1))
}
