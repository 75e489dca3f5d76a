// Reference-counted packet buffers
package pktbuf

import (
	"sync"
	"sync/atomic"
)

// Buf is a reference-counted packet buffer drawn from a Pool.
//
// A buffer starts with one reference. Code handing a buffer to another
// owner while keeping its own reference alive takes an extra reference
// with Inc. The forwarding engine does not share buffers this way: CS hit
// replies and Data fan-out transmit private copies made with Pool.Copy.
// Dec returns the buffer to its pool when the last reference drops.
type Buf struct {
	refs atomic.Int32
	pool *Pool
	data []byte
	len  int
}

// Bytes returns the current frame contents.
func (b *Buf) Bytes() []byte {
	return b.data[:b.len]
}

// Resize sets the frame length, growing the backing array if the frame is
// larger than the pool's buffer size.
func (b *Buf) Resize(n int) {
	if n > cap(b.data) {
		b.data = make([]byte, n)
	}
	b.len = n
}

// Refs returns the current reference count.
func (b *Buf) Refs() int32 {
	return b.refs.Load()
}

// Inc acquires an additional reference.
func (b *Buf) Inc() {
	b.refs.Add(1)
}

// Dec releases one reference, returning the buffer to its pool when the
// count reaches zero. Returns the remaining count.
func (b *Buf) Dec() int32 {
	c := b.refs.Add(-1)
	if c == 0 {
		b.pool.put(b)
	}
	return c
}

// Pool hands out fixed-size packet buffers and recycles released ones.
type Pool struct {
	size int
	pool sync.Pool
}

// NewPool creates a pool of buffers of the given size.
func NewPool(size int) *Pool {
	p := &Pool{size: size}
	p.pool.New = func() any {
		return &Buf{pool: p, data: make([]byte, size)}
	}
	return p
}

// Size returns the pool's buffer size.
func (p *Pool) Size() int {
	return p.size
}

// Get returns an empty buffer holding one reference.
func (p *Pool) Get() *Buf {
	b := p.pool.Get().(*Buf)
	b.refs.Store(1)
	b.len = 0
	return b
}

// Copy returns a buffer holding one reference and a copy of frame.
func (p *Pool) Copy(frame []byte) *Buf {
	b := p.Get()
	b.Resize(len(frame))
	copy(b.data, frame)
	return b
}

func (p *Pool) put(b *Buf) {
	if cap(b.data) == p.size {
		p.pool.Put(b)
	}
}
