package util

import (
	"github.com/OneOfOne/xxhash"
)

// 将一个键进行Hash
func HashCode(key []byte) uint64 {
	h := xxhash.New64()
	h.Write(key)
	return h.Sum64()
}

// HashCodeSeed hashes key with the given seed so that hashes can be chained.
func HashCodeSeed(key []byte, seed uint64) uint64 {
	return xxhash.Checksum64S(key, seed)
}
