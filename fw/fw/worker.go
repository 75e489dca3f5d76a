/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package fw implements the forwarding engine: per-core workers owning
// their FIB, PIT and CS, the per-packet state machine, transmit batching
// and the dispatcher steering received frames to workers by name hash.
package fw

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/icn-team/augustus/fw/core"
	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/fw/face"
	"github.com/icn-team/augustus/fw/table"
	"github.com/icn-team/augustus/std/types/lockfree"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// MaxPktBurst is the largest burst received or transmitted together.
const MaxPktBurst = 32

// RxPacket is a received frame together with its arrival face.
type RxPacket struct {
	Buf    *pktbuf.Buf
	RxFace defn.FaceID
}

// FibCmdVerb selects the FIB mutation of a command.
type FibCmdVerb uint8

const (
	FibAdd FibCmdVerb = iota
	FibDel
)

// FibCmd is one FIB mutation, serialized into the worker loop through its
// command queue so that no FIB slot ever mutates during a lookup.
type FibCmd struct {
	Verb FibCmdVerb
	Name []byte
	Face defn.FaceID
}

// Worker is a single-threaded forwarding engine. It exclusively owns its
// FIB, PIT, CS, transmit batches and counters; the only shared entry
// points are the receive queue and the FIB command queue, both drained
// inside the worker loop.
type Worker struct {
	id    int
	fib   *table.Fib
	pit   *table.Pit
	cs    *table.Cs
	ports *face.PortTable
	pool  *pktbuf.Pool
	clock Clock
	stats Stats

	rx      *lockfree.YiQueue[RxPacket]
	fibCmds *lockfree.Queue[FibCmd]

	batches   [defn.MaxFaces]txBatch
	burstSize int

	drainDeadline int64
	purgeDeadline int64
	lastDrain     int64
	lastPurge     int64

	running atomic.Bool
	done    chan struct{}
}

type txBatch struct {
	frames [MaxPktBurst]*pktbuf.Buf
	len    int
}

// NewWorker creates a worker with freshly allocated tables.
func NewWorker(id int, cfg *core.Config, ports *face.PortTable, pool *pktbuf.Pool, clock Clock) *Worker {
	burst := cfg.Fwd.BurstSize
	if burst > MaxPktBurst {
		burst = MaxPktBurst
	}
	return &Worker{
		id:            id,
		fib:           table.NewFib(cfg.Fib.NumBuckets, cfg.Fib.MaxElements),
		pit:           table.NewPit(cfg.Pit.NumBuckets, cfg.Pit.MaxElements, time.Duration(cfg.Pit.TtlUs)*time.Microsecond),
		cs:            table.NewCs(cfg.Cs.NumBuckets, cfg.Cs.MaxElements),
		ports:         ports,
		pool:          pool,
		clock:         clock,
		rx:            lockfree.NewYiQueue[RxPacket](),
		fibCmds:       lockfree.NewQueue[FibCmd](),
		burstSize:     burst,
		drainDeadline: (time.Duration(cfg.Fwd.DrainUs) * time.Microsecond).Nanoseconds(),
		purgeDeadline: (time.Duration(cfg.Fwd.PitPurgeUs) * time.Microsecond).Nanoseconds(),
		done:          make(chan struct{}),
	}
}

func (w *Worker) String() string {
	return fmt.Sprintf("worker-%d", w.id)
}

// ID returns the worker's index.
func (w *Worker) ID() int { return w.id }

// Stats returns a snapshot of the worker's counters.
func (w *Worker) Stats() Stats { return w.stats }

// Fib exposes the worker's FIB for initialization and tests. At runtime
// only the worker mutates it, through the command queue.
func (w *Worker) Fib() *table.Fib { return w.fib }

// Pit exposes the worker's PIT for observability and tests.
func (w *Worker) Pit() *table.Pit { return w.pit }

// Cs exposes the worker's content store for observability and tests.
func (w *Worker) Cs() *table.Cs { return w.cs }

// Enqueue hands a received frame to the worker. Called by the dispatcher
// from transport goroutines.
func (w *Worker) Enqueue(pkt RxPacket) {
	w.rx.Push(pkt)
}

// EnqueueFibCmd queues a FIB mutation for the next loop iteration.
// Single producer: the controller.
func (w *Worker) EnqueueFibCmd(cmd FibCmd) {
	w.fibCmds.Push(cmd)
}

// Run executes the worker loop until Stop. Each iteration drains pending
// FIB commands, services the drain and purge deadlines, then receives and
// forwards a burst.
func (w *Worker) Run() {
	defer close(w.done)
	w.running.Store(true)

	var burst [MaxPktBurst]RxPacket
	idle := time.NewTimer(time.Duration(w.drainDeadline))
	defer idle.Stop()

	core.Log.Info(w, "Started")

	for w.running.Load() {
		w.drainFibCmds()

		now := w.clock.Now()
		if now-w.lastDrain > w.drainDeadline {
			// Reaching the drain deadline means the router is not
			// loaded, which also makes it a good time to purge
			w.lastDrain = now
			w.flushAll()
			w.pit.PurgeExpired(now)
			w.lastPurge = now
		}
		if now-w.lastPurge > w.purgeDeadline {
			w.pit.PurgeExpired(now)
			w.lastPurge = now
		}

		n := w.rx.PopBurst(burst[:w.burstSize])
		if n == 0 {
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(time.Duration(w.drainDeadline))
			select {
			case <-w.rx.Notify:
			case <-idle.C:
			}
			continue
		}

		for i := 0; i < n; i++ {
			w.ProcessFrame(burst[i].Buf, burst[i].RxFace, now)
		}
	}

	w.flushAll()
	core.Log.Info(w, "Stopped")
}

// Stop terminates the worker loop and waits for it to exit.
func (w *Worker) Stop() {
	if w.running.Swap(false) {
		// wake the loop if it is parked on an empty queue
		select {
		case w.rx.Notify <- struct{}{}:
		default:
		}
		<-w.done
	}
}

// Destroy releases the content store's cached buffers. The worker must be
// stopped.
func (w *Worker) Destroy() {
	w.cs.Destroy()
}

// drainFibCmds applies queued FIB mutations. Runs inside the worker loop,
// so the FIB never changes under a concurrent lookup.
func (w *Worker) drainFibCmds() {
	for {
		cmd, ok := w.fibCmds.Pop()
		if !ok {
			return
		}
		switch cmd.Verb {
		case FibAdd:
			if err := w.fib.Add(cmd.Name, cmd.Face); err != nil {
				core.Log.Warn(w, "FIB entry add unsuccessful", "name", string(cmd.Name), "face", cmd.Face, "err", err)
			} else {
				core.Log.Info(w, "FIB entry added", "name", string(cmd.Name), "face", cmd.Face)
			}
		case FibDel:
			if err := w.fib.Del(cmd.Name, cmd.Face); err != nil {
				core.Log.Warn(w, "FIB entry delete unsuccessful", "name", string(cmd.Name), "face", cmd.Face, "err", err)
			} else {
				core.Log.Info(w, "FIB entry deleted", "name", string(cmd.Name), "face", cmd.Face)
			}
		}
	}
}

// ProcessFrame runs the forwarding state machine for one received frame.
// The worker owns buf's reference; every path either forwards it, hands
// it to the content store, or releases it.
func (w *Worker) ProcessFrame(buf *pktbuf.Buf, rx defn.FaceID, now int64) {
	icn, err := defn.FramePayload(buf.Bytes())
	if err != nil {
		w.stats.Malformed++
		buf.Dec()
		return
	}

	var p defn.Packet
	defn.ParsePacket(icn, &p)
	if len(p.Name) == 0 || len(p.Name) > defn.MaxNameLen || p.ComponentNr == 0 {
		w.stats.Malformed++
		buf.Dec()
		return
	}

	crc := table.HashName(p.Name)
	p.Crc[p.ComponentNr] = crc

	switch p.Hdr.Type {
	case defn.TypeInterest:
		w.processInterest(buf, &p, crc, rx, now)
	case defn.TypeData:
		w.processData(buf, &p, crc)
	default:
		w.stats.Malformed++
		buf.Dec()
	}
}

func (w *Worker) processInterest(buf *pktbuf.Buf, p *defn.Packet, crc uint32, rx defn.FaceID, now int64) {
	w.stats.IntRecv++

	// Satisfy from cache if possible. The reply is a private copy of the
	// cached frame: the cached bytes must not be touched, and a shared
	// buffer could not carry per-destination Ethernet headers anyway.
	if data := w.cs.Lookup(p.Name, crc); data != nil {
		w.stats.IntCsHit++
		if core.Log.HasTrace() {
			core.Log.Trace(w, "CS hit", "name", string(p.Name), "face", rx)
		}
		out := w.pool.Copy(data.Bytes())
		w.rewriteAndEnqueue(out, rx)
		w.stats.DataSent++
		buf.Dec()
		return
	}

	inserted, err := w.pit.LookupAndUpdate(p.Name, crc, rx, now)
	if err != nil {
		// PIT ring full or bucket overflow
		w.stats.SwPktDrop++
		buf.Dec()
		return
	}
	if !inserted {
		// aggregated into an existing entry, already forwarded once
		w.stats.IntPitHit++
		buf.Dec()
		return
	}

	outFace, ok := w.fib.Lookup(p)
	if !ok {
		w.stats.IntNoRoute++
		w.pit.LookupAndRemove(p.Name, crc)
		buf.Dec()
		return
	}
	if outFace == rx {
		// entry points back where the Interest came from
		w.stats.IntFibLoop++
		w.pit.LookupAndRemove(p.Name, crc)
		buf.Dec()
		return
	}

	w.stats.IntFibHit++
	if core.Log.HasTrace() {
		core.Log.Trace(w, "Forwarding Interest", "name", string(p.Name), "face", outFace)
	}
	w.rewriteAndEnqueue(buf, outFace)
}

func (w *Worker) processData(buf *pktbuf.Buf, p *defn.Packet, crc uint32) {
	w.stats.DataRecv++

	// Cache first. Insertion does not probe for duplicates; a second
	// copy of a chunk is cached rather than spending a lookup here.
	csOwned := w.cs.Insert(p.Name, crc, buf) == nil

	mask := w.pit.LookupAndRemove(p.Name, crc)
	if mask == 0 {
		// nobody asked, or the entry expired
		w.stats.DataPitMiss++
		if !csOwned {
			buf.Dec()
		}
		return
	}

	if core.Log.HasTrace() {
		core.Log.Trace(w, "Forwarding Data", "name", string(p.Name), "mask", mask)
	}
	for i := 0; i < defn.MaxFaces; i++ {
		if mask&(uint64(1)<<i) == 0 {
			continue
		}
		out := w.pool.Copy(buf.Bytes())
		w.rewriteAndEnqueue(out, defn.FaceID(i))
		w.stats.DataSent++
	}
	if !csOwned {
		buf.Dec()
	}
}

// rewriteAndEnqueue stamps the Ethernet addresses for the target face and
// adds the frame to its transmit batch. The worker owns buf's reference
// and passes it to the batch.
func (w *Worker) rewriteAndEnqueue(buf *pktbuf.Buf, dst defn.FaceID) {
	port := w.ports.Get(dst)
	if port == nil {
		w.stats.NicPktDrop++
		buf.Dec()
		return
	}
	defn.RewriteMacs(buf.Bytes(), port.RemoteAddr, port.LocalAddr)

	b := &w.batches[dst]
	b.frames[b.len] = buf
	b.len++
	if b.len == w.burstSize {
		w.flushFace(dst)
	}
}

// flushFace transmits a face's batch. Frames the transport refuses are
// released and accounted as NIC drops.
func (w *Worker) flushFace(dst defn.FaceID) {
	b := &w.batches[dst]
	if b.len == 0 {
		return
	}
	port := w.ports.Get(dst)

	sent := 0
	if port != nil && port.Transport.IsRunning() {
		sent = port.Transport.TxBurst(b.frames[:b.len])
	}
	if sent < b.len {
		w.stats.NicPktDrop += uint64(b.len - sent)
		for i := sent; i < b.len; i++ {
			b.frames[i].Dec()
		}
	}
	b.len = 0
}

// flushAll transmits every non-empty batch.
func (w *Worker) flushAll() {
	for _, id := range w.ports.Faces() {
		w.flushFace(id)
	}
}

// FlushAll is the test hook for draining batches deterministically.
func (w *Worker) FlushAll() { w.flushAll() }

// PurgeExpired sweeps the PIT at the given time. Test hook; the loop
// calls the table directly.
func (w *Worker) PurgeExpired(now int64) uint32 {
	return w.pit.PurgeExpired(now)
}
