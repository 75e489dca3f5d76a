/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package table implements the three per-worker forwarding tables: the
// FIB (longest-prefix match from name to next-hop face), the PIT (FIFO
// ring of outstanding Interests with a fixed TTL) and the CS (FIFO cache
// of recently seen Data chunks).
//
// All three share the same hash layout: a linear open index hash table
// whose buckets hold BucketSize slots of {busy, crc32, index} so that one
// bucket fits in a 64-byte cache line, with the entry payload stored in a
// flat backing array addressed by 32-bit index. The layout follows the
// Caesar content router design (Perino et al., ACM/IEEE ANCS'14).
package table

import (
	"errors"
	"hash/crc32"

	"github.com/icn-team/augustus/fw/defn"
)

// BucketSize is the number of slots per bucket, sized so a bucket fills
// exactly one cache line: 7 one-byte busy flags + 7 eight-byte slots.
const BucketSize = 7

// MasterCrcSeed seeds every name hash. Must match across routers only in
// so far as receive steering keys on the hash (see defn.BuildFrame).
const MasterCrcSeed uint32 = 0x11111111

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// HashName returns the seeded CRC32 hash of a name or name prefix.
func HashName(name []byte) uint32 {
	return crc32.Update(MasterCrcSeed, crcTable, name)
}

var (
	// ErrInvalid rejects an empty or oversize name.
	ErrInvalid = errors.New("invalid name")
	// ErrTableFull indicates the backing array is saturated or the
	// target bucket has no free slot.
	ErrTableFull = errors.New("table full")
	// ErrNotFound indicates the key is not in the table.
	ErrNotFound = errors.New("entry not found")
)

type bucketSlot struct {
	crc   uint32
	index uint32
}

type bucket struct {
	busy [BucketSize]uint8
	slot [BucketSize]bucketSlot
}

// validName bounds a key before it is copied into a fixed-size entry.
func validName(name []byte) bool {
	return len(name) > 0 && len(name) <= defn.MaxNameLen && name[0] != 0
}
