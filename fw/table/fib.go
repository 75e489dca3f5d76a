/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	"bytes"
	"math/rand/v2"

	"github.com/icn-team/augustus/fw/defn"
)

// fwdRecord maps a name prefix to a next-hop face.
type fwdRecord struct {
	face    defn.FaceID
	nameLen uint8
	name    [defn.MaxNameLen]byte
}

// Fib is the Forwarding Information Base.
//
// Records are appended to a flat array in insertion order; deletion only
// clears the bucket slot and never compacts the array, which therefore
// grows until full. Lookup is longest-prefix match over the slash-
// delimited components of the queried name, with uniform random selection
// among multi-path entries sharing the winning prefix.
type Fib struct {
	buckets     []bucket
	records     []fwdRecord
	numBuckets  uint32
	maxElements uint32
	nextFree    uint32
	rng         *rand.Rand
}

// NewFib creates a FIB with the given bucket count and record capacity.
func NewFib(numBuckets, maxElements uint32) *Fib {
	return &Fib{
		buckets:     make([]bucket, numBuckets),
		records:     make([]fwdRecord, maxElements),
		numBuckets:  numBuckets,
		maxElements: maxElements,
		rng:         rand.New(rand.NewPCG(uint64(MasterCrcSeed), uint64(numBuckets))),
	}
}

// Occupancy returns the number of record slots consumed so far. Deleted
// entries still count: the record array is never compacted.
func (f *Fib) Occupancy() uint32 { return f.nextFree }

// IsFull reports whether the record array is saturated.
func (f *Fib) IsFull() bool { return f.nextFree == f.maxElements }

// IsEmpty reports whether no record was ever inserted.
func (f *Fib) IsEmpty() bool { return f.nextFree == 0 }

// Add inserts a (prefix, face) entry. Inserting a pair that is already
// live is a no-op, keeping at most one live record per (name, face).
func (f *Fib) Add(name []byte, face defn.FaceID) error {
	if !validName(name) {
		return ErrInvalid
	}
	return f.AddWithHash(name, face, HashName(name))
}

// AddWithHash is Add for callers that already hold the name hash.
func (f *Fib) AddWithHash(name []byte, face defn.FaceID, crc uint32) error {
	b := &f.buckets[crc%f.numBuckets]
	freeTab := -1
	for tab := 0; tab < BucketSize; tab++ {
		if b.busy[tab] == 0 {
			if freeTab < 0 {
				freeTab = tab
			}
			continue
		}
		if b.slot[tab].crc != crc {
			continue
		}
		r := &f.records[b.slot[tab].index]
		if r.match(name) && r.face == face {
			return nil
		}
	}
	if freeTab < 0 || f.IsFull() {
		return ErrTableFull
	}

	b.busy[freeTab] = 1
	b.slot[freeTab].crc = crc
	b.slot[freeTab].index = f.nextFree

	r := &f.records[f.nextFree]
	r.face = face
	r.nameLen = uint8(len(name))
	copy(r.name[:], name)
	f.nextFree++
	return nil
}

// Del removes the entry matching (name, face). The record slot is not
// reclaimed; only the bucket slot is cleared.
func (f *Fib) Del(name []byte, face defn.FaceID) error {
	if !validName(name) {
		return ErrInvalid
	}
	return f.DelWithHash(name, face, HashName(name))
}

// DelWithHash is Del for callers that already hold the name hash.
func (f *Fib) DelWithHash(name []byte, face defn.FaceID, crc uint32) error {
	b := &f.buckets[crc%f.numBuckets]
	for tab := 0; tab < BucketSize; tab++ {
		if b.busy[tab] == 0 || b.slot[tab].crc != crc {
			continue
		}
		r := &f.records[b.slot[tab].index]
		if r.match(name) && r.face == face {
			b.busy[tab] = 0
			return nil
		}
	}
	return ErrNotFound
}

// LookupExact probes for an exact-match prefix and returns one of the
// matching faces, chosen uniformly at random when the prefix has
// multi-path entries.
func (f *Fib) LookupExact(name []byte, crc uint32) (defn.FaceID, bool) {
	b := &f.buckets[crc%f.numBuckets]
	var match [BucketSize]defn.FaceID
	nmatch := 0
	for tab := 0; tab < BucketSize; tab++ {
		if b.busy[tab] == 0 || b.slot[tab].crc != crc {
			continue
		}
		r := &f.records[b.slot[tab].index]
		if r.match(name) {
			match[nmatch] = r.face
			nmatch++
		}
	}
	switch nmatch {
	case 0:
		return 0, false
	case 1:
		return match[0], true
	default:
		return match[f.rng.IntN(nmatch)], true
	}
}

// Lookup performs a longest-prefix match for the parsed packet's name.
// It walks the components from longest prefix to shortest, caching each
// prefix hash in the packet view so a later probe never hashes the same
// bytes again.
func (f *Fib) Lookup(p *defn.Packet) (defn.FaceID, bool) {
	for k := p.ComponentNr - 1; k >= 0; k-- {
		plen := p.PrefixLen(k)
		if plen > len(p.Name) {
			continue
		}
		crc := HashName(p.Name[:plen])
		p.Crc[k] = crc
		if face, ok := f.LookupExact(p.Name[:plen], crc); ok {
			return face, true
		}
	}
	return 0, false
}

func (r *fwdRecord) match(name []byte) bool {
	return int(r.nameLen) == len(name) && bytes.Equal(r.name[:r.nameLen], name)
}
