/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	"bytes"
	"time"

	"github.com/icn-team/augustus/fw/defn"
)

// pitEntry is one slot of the PIT ring.
type pitEntry struct {
	active      bool
	bucket      uint32 // back-pointers into the hash table, needed
	tab         uint8  // when the expiry sweep clears the slot
	expiry      int64
	nameLen     uint8
	name        [defn.MaxNameLen]byte
	faceBitmask uint64
}

// Pit is the Pending Interest Table.
//
// The backing store is a ring of capacity maxElements+1; the spare slot
// distinguishes a full ring from an empty one by the head and tail
// indices alone. Because every entry carries the same TTL, the ring is
// FIFO-ordered by expiry as well as by insertion, so the expiry sweep
// walks from the tail and stops at the first live, unexpired entry.
type Pit struct {
	buckets    []bucket
	ring       []pitEntry
	numBuckets uint32
	capacity   uint32 // ring length, maxElements + 1
	top        uint32 // next insert
	bottom     uint32 // oldest live
	ttl        int64  // in clock units (nanoseconds)
}

// NewPit creates a PIT with the given bucket count, capacity and entry
// TTL. The TTL conversion happens once, here; the fast path only ever
// adds the cached value.
func NewPit(numBuckets, maxElements uint32, ttl time.Duration) *Pit {
	return &Pit{
		buckets:    make([]bucket, numBuckets),
		ring:       make([]pitEntry, maxElements+1),
		numBuckets: numBuckets,
		capacity:   maxElements + 1,
		ttl:        ttl.Nanoseconds(),
	}
}

// TTL returns the entry lifetime.
func (p *Pit) TTL() time.Duration { return time.Duration(p.ttl) }

// Occupancy returns the number of ring slots between tail and head.
// Tombstoned entries not yet reclaimed by the sweep are included.
func (p *Pit) Occupancy() uint32 {
	return (p.top + p.capacity - p.bottom) % p.capacity
}

// IsEmpty reports whether the ring holds no entries.
func (p *Pit) IsEmpty() bool { return p.top == p.bottom }

// IsFull reports whether the ring cannot take another entry.
func (p *Pit) IsFull() bool { return (p.top+1)%p.capacity == p.bottom }

// LookupAndUpdate processes an arriving Interest in a single probe.
//
// If an entry for the name exists, the receiving face is OR-ed into its
// bitmask and the call returns (false, nil): the Interest was aggregated
// and must not be forwarded. Otherwise a new entry is inserted and the
// call returns (true, nil): the caller must forward. ErrTableFull is
// returned when the ring is full or the target bucket has no free slot.
func (p *Pit) LookupAndUpdate(name []byte, crc uint32, face defn.FaceID, now int64) (bool, error) {
	b := &p.buckets[crc%p.numBuckets]
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
		e := &p.ring[b.slot[tab].index]
		if !e.match(name) {
			continue
		}
		e.faceBitmask |= uint64(1) << face
		return false, nil
	}

	if freeTab < 0 || p.IsFull() {
		return false, ErrTableFull
	}

	b.busy[freeTab] = 1
	b.slot[freeTab].crc = crc
	b.slot[freeTab].index = p.top

	e := &p.ring[p.top]
	e.active = true
	e.bucket = crc % p.numBuckets
	e.tab = uint8(freeTab)
	e.expiry = now + p.ttl
	e.nameLen = uint8(len(name))
	copy(e.name[:], name)
	e.faceBitmask = uint64(1) << face

	p.top = (p.top + 1) % p.capacity
	return true, nil
}

// LookupAndRemove processes an arriving Data packet in a single probe:
// it removes the entry for the name, if any, and returns its face
// bitmask. A zero return means no entry was pending; this cannot be
// confused with a live entry, whose bitmask always has at least one bit
// set.
func (p *Pit) LookupAndRemove(name []byte, crc uint32) uint64 {
	b := &p.buckets[crc%p.numBuckets]
	for tab := 0; tab < BucketSize; tab++ {
		if b.busy[tab] == 0 || b.slot[tab].crc != crc {
			continue
		}
		e := &p.ring[b.slot[tab].index]
		if !e.match(name) {
			continue
		}
		b.busy[tab] = 0
		e.active = false
		if p.bottom == b.slot[tab].index {
			p.bottom = (p.bottom + 1) % p.capacity
		}
		return e.faceBitmask
	}
	return 0
}

// Lookup probes for an entry without mutating the table. Control-plane
// and test use only; the data plane uses the combined operations.
func (p *Pit) Lookup(name []byte, crc uint32) (faceBitmask uint64, expiry int64, ok bool) {
	b := &p.buckets[crc%p.numBuckets]
	for tab := 0; tab < BucketSize; tab++ {
		if b.busy[tab] == 0 || b.slot[tab].crc != crc {
			continue
		}
		e := &p.ring[b.slot[tab].index]
		if e.match(name) {
			return e.faceBitmask, e.expiry, true
		}
	}
	return 0, 0, false
}

// PurgeExpired walks the ring from the tail, discarding tombstoned
// entries and expiring live ones whose deadline has passed, and stops at
// the first live entry that is still valid. Returns the number of slots
// reclaimed.
func (p *Pit) PurgeExpired(now int64) uint32 {
	purged := uint32(0)
	for !p.IsEmpty() {
		e := &p.ring[p.bottom]
		if e.active {
			if e.expiry > now {
				return purged
			}
			e.active = false
			p.buckets[e.bucket].busy[e.tab] = 0
		}
		// A tombstoned slot's bucket flag was already cleared by
		// LookupAndRemove; only the ring slot is reclaimed here.
		p.bottom = (p.bottom + 1) % p.capacity
		purged++
	}
	return purged
}

func (e *pitEntry) match(name []byte) bool {
	return int(e.nameLen) == len(name) && bytes.Equal(e.name[:e.nameLen], name)
}
