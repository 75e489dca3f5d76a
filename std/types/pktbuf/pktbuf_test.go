package pktbuf_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/icn-team/augustus/std/types/pktbuf"
)

// Buffers carry one reference out of the pool, survive extra references,
// and return to the pool when the last reference drops.
func TestPoolRefCounting(t *testing.T) {
	pool := pktbuf.NewPool(64)

	buf := pool.Copy([]byte("frame"))
	require.Equal(t, int32(1), buf.Refs())
	require.Equal(t, []byte("frame"), buf.Bytes())

	buf.Inc()
	buf.Inc()
	require.Equal(t, int32(2), buf.Dec())
	require.Equal(t, int32(1), buf.Dec())
	require.Equal(t, int32(0), buf.Dec()) // released

	buf2 := pool.Get()
	require.Equal(t, int32(1), buf2.Refs())
	require.Empty(t, buf2.Bytes())
}

// Resize bounds the visible bytes and grows past the pool size when a
// jumbo frame demands it.
func TestBufResize(t *testing.T) {
	pool := pktbuf.NewPool(64)
	buf := pool.Get()

	buf.Resize(16)
	require.Len(t, buf.Bytes(), 16)

	buf.Resize(256)
	require.Len(t, buf.Bytes(), 256)
	buf.Dec()
}
