/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package fw

import (
	"fmt"
	"io"
)

// Stats is one worker's counter block. Only the owning worker increments
// it; ResetStats zeroes it from outside the worker, and the stats reporter
// reads it racily, which is acceptable for single-word counters that only
// ever increase between resets.
type Stats struct {
	IntRecv     uint64
	IntCsHit    uint64
	IntPitHit   uint64
	IntFibHit   uint64
	IntFibLoop  uint64
	IntNoRoute  uint64
	DataRecv    uint64
	DataSent    uint64
	DataPitMiss uint64
	NicPktDrop  uint64
	SwPktDrop   uint64
	Malformed   uint64
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	*s = Stats{}
}

// Add accumulates o into s.
func (s *Stats) Add(o *Stats) {
	s.IntRecv += o.IntRecv
	s.IntCsHit += o.IntCsHit
	s.IntPitHit += o.IntPitHit
	s.IntFibHit += o.IntFibHit
	s.IntFibLoop += o.IntFibLoop
	s.IntNoRoute += o.IntNoRoute
	s.DataRecv += o.DataRecv
	s.DataSent += o.DataSent
	s.DataPitMiss += o.DataPitMiss
	s.NicPktDrop += o.NicPktDrop
	s.SwPktDrop += o.SwPktDrop
	s.Malformed += o.Malformed
}

func (s *Stats) print(w io.Writer) {
	fmt.Fprintf(w, "    Interest recv: %d\n", s.IntRecv)
	fmt.Fprintf(w, "    CS hits: %d\n", s.IntCsHit)
	fmt.Fprintf(w, "    PIT hits: %d\n", s.IntPitHit)
	fmt.Fprintf(w, "    FIB hits: %d\n", s.IntFibHit)
	fmt.Fprintf(w, "    FIB loop: %d\n", s.IntFibLoop)
	fmt.Fprintf(w, "    Interest no route: %d\n", s.IntNoRoute)
	fmt.Fprintf(w, "    Data received: %d\n", s.DataRecv)
	fmt.Fprintf(w, "    Data sent: %d\n", s.DataSent)
	fmt.Fprintf(w, "    Data PIT miss: %d\n", s.DataPitMiss)
	fmt.Fprintf(w, "    Packet drops (NIC): %d\n", s.NicPktDrop)
	fmt.Fprintf(w, "    Packet drops (SW): %d\n", s.SwPktDrop)
	fmt.Fprintf(w, "    Malformed: %d\n", s.Malformed)
}

// PrintStats writes per-worker and aggregated statistics.
func PrintStats(w io.Writer, workers []*Worker) {
	var global Stats
	fmt.Fprintf(w, "Statistics:\n")
	for _, worker := range workers {
		snap := worker.Stats()
		fmt.Fprintf(w, "  [WORKER %d]:\n", worker.ID())
		snap.print(w)
		global.Add(&snap)
	}
	fmt.Fprintf(w, "  [GLOBAL]:\n")
	global.print(w)
	fmt.Fprintf(w, "=== END ===\n")
}

// ResetStats zeroes every worker's counters.
func ResetStats(workers []*Worker) {
	for _, worker := range workers {
		worker.stats.Reset()
	}
}
