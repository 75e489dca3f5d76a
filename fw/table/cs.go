/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package table

import (
	"bytes"

	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// csEntry is one slot of the CS ring. The entry owns one reference to the
// cached Data packet buffer.
type csEntry struct {
	active  bool
	bucket  uint32
	tab     uint8
	nameLen uint8
	name    [defn.MaxNameLen]byte
	buf     *pktbuf.Buf
}

// Cs is the Content Store: a FIFO-replaced cache of recently seen Data
// chunks keyed by full name. Same ring-plus-buckets layout as the PIT,
// without expiry; entries live until evicted to make room.
type Cs struct {
	buckets    []bucket
	ring       []csEntry
	numBuckets uint32
	capacity   uint32 // ring length, maxElements + 1
	top        uint32
	bottom     uint32
}

// NewCs creates a content store with the given bucket count and capacity.
func NewCs(numBuckets, maxElements uint32) *Cs {
	return &Cs{
		buckets:    make([]bucket, numBuckets),
		ring:       make([]csEntry, maxElements+1),
		numBuckets: numBuckets,
		capacity:   maxElements + 1,
	}
}

// Occupancy returns the number of cached entries.
func (c *Cs) Occupancy() uint32 {
	return (c.top + c.capacity - c.bottom) % c.capacity
}

// IsEmpty reports whether the cache holds no entries.
func (c *Cs) IsEmpty() bool { return c.top == c.bottom }

// IsFull reports whether the next insert will evict.
func (c *Cs) IsFull() bool { return (c.top+1)%c.capacity == c.bottom }

// Insert caches a Data packet, taking ownership of one reference to buf.
// If the cache is full the oldest entry is evicted and its buffer
// released. Insertion is unconditional: the caller does not check for an
// existing entry, so a duplicate arrival is cached twice rather than
// spending a probe on the hot path.
//
// ErrTableFull is returned when the target bucket has no free slot; the
// caller keeps ownership of buf in that case.
func (c *Cs) Insert(name []byte, crc uint32, buf *pktbuf.Buf) error {
	b := &c.buckets[crc%c.numBuckets]
	for tab := 0; tab < BucketSize; tab++ {
		if b.busy[tab] != 0 {
			continue
		}
		if c.IsFull() {
			c.evictBottom()
		}

		b.busy[tab] = 1
		b.slot[tab].crc = crc
		b.slot[tab].index = c.top

		e := &c.ring[c.top]
		e.active = true
		e.bucket = crc % c.numBuckets
		e.tab = uint8(tab)
		e.nameLen = uint8(len(name))
		copy(e.name[:], name)
		e.buf = buf

		c.top = (c.top + 1) % c.capacity
		return nil
	}
	return ErrTableFull
}

// Lookup returns the cached Data packet for the name, or nil. The caller
// does not receive ownership: it must take its own reference (or copy)
// before handing the buffer to the transmit path.
func (c *Cs) Lookup(name []byte, crc uint32) *pktbuf.Buf {
	b := &c.buckets[crc%c.numBuckets]
	for tab := 0; tab < BucketSize; tab++ {
		if b.busy[tab] == 0 || b.slot[tab].crc != crc {
			continue
		}
		e := &c.ring[b.slot[tab].index]
		if e.match(name) {
			return e.buf
		}
	}
	return nil
}

// evictBottom releases the oldest entry: bucket slot cleared, buffer
// reference dropped, tail advanced.
func (c *Cs) evictBottom() {
	e := &c.ring[c.bottom]
	c.buckets[e.bucket].busy[e.tab] = 0
	e.active = false
	e.buf.Dec()
	e.buf = nil
	c.bottom = (c.bottom + 1) % c.capacity
}

// Destroy releases every live payload buffer. The store must not be used
// afterwards.
func (c *Cs) Destroy() {
	for !c.IsEmpty() {
		c.evictBottom()
	}
}

func (e *csEntry) match(name []byte) bool {
	return int(e.nameLen) == len(name) && bytes.Equal(e.name[:e.nameLen], name)
}
