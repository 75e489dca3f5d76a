/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"github.com/cespare/xxhash/v2"

	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// Dispatcher steers received frames to workers by hashing the ICN name,
// so that Interests and the Data answering them always meet in the same
// worker's PIT. It takes the place of NIC receive-side scaling in the
// hardware design.
type Dispatcher struct {
	workers []*Worker
}

// NewDispatcher creates a dispatcher over the given workers.
func NewDispatcher(workers []*Worker) *Dispatcher {
	return &Dispatcher{workers: workers}
}

func (d *Dispatcher) String() string {
	return "dispatcher"
}

// Receive implements face.Receiver. Frames whose name cannot be extracted
// go to worker 0, which owns the malformed counter for them.
func (d *Dispatcher) Receive(buf *pktbuf.Buf, rx defn.FaceID) {
	i := 0
	if len(d.workers) > 1 {
		if name := defn.PeekName(buf.Bytes()); name != nil {
			i = int(xxhash.Sum64(name) % uint64(len(d.workers)))
		}
	}
	d.workers[i].Enqueue(RxPacket{Buf: buf, RxFace: rx})
}

// WorkerFor returns the worker that will process frames for the name.
func (d *Dispatcher) WorkerFor(name []byte) *Worker {
	if len(d.workers) == 1 {
		return d.workers[0]
	}
	return d.workers[xxhash.Sum64(name)%uint64(len(d.workers))]
}
