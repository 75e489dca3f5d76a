/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"fmt"
	"sync"

	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// MemTransport is an in-memory transport recording transmitted frames,
// with a bounded transmit queue so tests can exercise back-pressure.
type MemTransport struct {
	transportBase

	mu    sync.Mutex
	queue [][]byte
	cap   int
}

// MakeMemTransport creates a memory transport whose transmit queue holds
// at most capacity frames; further frames are refused like a saturated
// NIC queue.
func MakeMemTransport(faceID defn.FaceID, receiver Receiver, pool *pktbuf.Pool, capacity int) *MemTransport {
	t := new(MemTransport)
	t.makeTransportBase(faceID, receiver, pool)
	t.cap = capacity
	t.running.Store(true)
	return t
}

func (t *MemTransport) String() string {
	return fmt.Sprintf("mem-transport (face=%d)", t.faceID)
}

// TxBurst copies frames into the queue until it is full, releasing the
// accepted buffers, and returns the number accepted.
func (t *MemTransport) TxBurst(frames []*pktbuf.Buf) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, f := range frames {
		if len(t.queue) >= t.cap {
			break
		}
		frame := make([]byte, len(f.Bytes()))
		copy(frame, f.Bytes())
		t.queue = append(t.queue, frame)
		f.Dec()
		n++
	}
	t.nOutFrames.Add(uint64(n))
	return n
}

// Inject delivers a frame to the receiver as if it had arrived on this
// face.
func (t *MemTransport) Inject(frame []byte) {
	t.nInFrames.Add(1)
	t.receiver.Receive(t.pool.Copy(frame), t.faceID)
}

// Sent drains and returns the transmitted frames.
func (t *MemTransport) Sent() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.queue
	t.queue = nil
	return out
}

// Pending returns the number of frames in the transmit queue.
func (t *MemTransport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

func (t *MemTransport) Close() {
	t.running.Store(false)
}
