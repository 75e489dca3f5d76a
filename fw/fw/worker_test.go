package fw

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icn-team/augustus/fw/core"
	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/fw/face"
	"github.com/icn-team/augustus/fw/table"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// testEnv is a single worker with three in-memory faces (1, 2 and 3) and
// a manual clock, mirroring the reference forwarding scenarios.
type testEnv struct {
	w     *Worker
	clock *ManualClock
	pool  *pktbuf.Pool
	ports *face.PortTable
	faces map[defn.FaceID]*face.MemTransport
}

func testConfig() *core.Config {
	cfg := core.DefaultConfig()
	cfg.Fib = core.TableConfig{NumBuckets: 64, MaxElements: 64}
	cfg.Pit = core.PitConfig{NumBuckets: 64, MaxElements: 64, TtlUs: 5000000}
	cfg.Cs = core.TableConfig{NumBuckets: 64, MaxElements: 64}
	return cfg
}

func newTestEnv(t *testing.T, cfg *core.Config) *testEnv {
	t.Helper()
	e := &testEnv{
		clock: &ManualClock{},
		pool:  pktbuf.NewPool(2048),
		ports: face.NewPortTable(),
		faces: make(map[defn.FaceID]*face.MemTransport),
	}
	for _, id := range []defn.FaceID{1, 2, 3} {
		mt := face.MakeMemTransport(id, nil, e.pool, 64)
		e.faces[id] = mt
		e.ports.Add(&face.Port{
			Transport:  mt,
			LocalAddr:  localMac(id),
			RemoteAddr: remoteMac(id),
		})
	}
	e.w = NewWorker(0, cfg, e.ports, e.pool, e.clock)
	return e
}

func localMac(id defn.FaceID) defn.MacAddr {
	return defn.MacAddr{0x02, 0, 0, 0, 0x10, byte(id)}
}

func remoteMac(id defn.FaceID) defn.MacAddr {
	return defn.MacAddr{0x02, 0, 0, 0, 0x20, byte(id)}
}

// inject runs one frame through the worker as if received on rx.
func (e *testEnv) inject(pktType uint16, name string, payload []byte, rx defn.FaceID) {
	icn := defn.EncodePacket(pktType, 64, []byte(name), payload)
	frame := defn.BuildFrame(localMac(rx), remoteMac(rx), table.HashName([]byte(name)), icn)
	e.w.ProcessFrame(e.pool.Copy(frame), rx, e.clock.Now())
}

// sentOn flushes and returns the frames transmitted on one face.
func (e *testEnv) sentOn(id defn.FaceID) [][]byte {
	e.w.FlushAll()
	return e.faces[id].Sent()
}

func assertFrameMacs(t *testing.T, frame []byte, id defn.FaceID) {
	t.Helper()
	assert.Equal(t, remoteMac(id)[:], frame[0:6], "destination MAC")
	assert.Equal(t, localMac(id)[:], frame[6:12], "source MAC")
}

// The reference end-to-end flow: FIB ("/a" -> face 2), faces 1, 2, 3.
// An Interest is forwarded via longest-prefix match, a second one
// aggregates, the Data fans out to both requesters and is cached, and a
// later Interest is satisfied from the cache.
func TestForwardingScenario(t *testing.T) {
	e := newTestEnv(t, testConfig())
	require.NoError(t, e.w.Fib().Add([]byte("/a"), 2))
	name := []byte("/a/b")
	crc := table.HashName(name)

	// (1) Interest on face 1: LPM misses "/a/b", hits "/a" -> face 2
	e.inject(defn.TypeInterest, "/a/b", nil, 1)
	mask, _, ok := e.w.Pit().Lookup(name, crc)
	require.True(t, ok)
	assert.Equal(t, uint64(0b010), mask)

	sent := e.sentOn(2)
	require.Len(t, sent, 1)
	assertFrameMacs(t, sent[0], 2)
	assert.Equal(t, uint64(1), e.w.Stats().IntRecv)
	assert.Equal(t, uint64(1), e.w.Stats().IntFibHit)

	// (2) second Interest on face 3 aggregates, nothing forwarded
	e.inject(defn.TypeInterest, "/a/b", nil, 3)
	mask, _, ok = e.w.Pit().Lookup(name, crc)
	require.True(t, ok)
	assert.Equal(t, uint64(0b1010), mask)
	assert.Equal(t, uint64(1), e.w.Stats().IntPitHit)
	assert.Empty(t, e.sentOn(2))
	assert.Empty(t, e.faces[1].Sent())
	assert.Empty(t, e.faces[3].Sent())

	// (3) Data arrives on face 2: cached, fanned out to faces 1 and 3
	payload := make([]byte, 42)
	e.inject(defn.TypeData, "/a/b", payload, 2)
	assert.Equal(t, uint64(1), e.w.Stats().DataRecv)
	assert.Equal(t, uint32(1), e.w.Cs().Occupancy())

	sent1 := e.sentOn(1)
	sent3 := e.faces[3].Sent()
	require.Len(t, sent1, 1)
	require.Len(t, sent3, 1)
	assertFrameMacs(t, sent1[0], 1)
	assertFrameMacs(t, sent3[0], 3)
	assert.Equal(t, uint64(2), e.w.Stats().DataSent)

	var p defn.Packet
	icn, err := defn.FramePayload(sent1[0])
	require.NoError(t, err)
	require.Equal(t, 0, defn.ParsePacket(icn, &p))
	assert.Equal(t, defn.TypeData, p.Hdr.Type)
	assert.Len(t, p.Payload, 42)

	// PIT entry consumed
	_, _, ok = e.w.Pit().Lookup(name, crc)
	assert.False(t, ok)

	// (4) third Interest on face 1 is satisfied from the cache
	e.inject(defn.TypeInterest, "/a/b", nil, 1)
	assert.Equal(t, uint64(1), e.w.Stats().IntCsHit)
	sent = e.sentOn(1)
	require.Len(t, sent, 1)
	assertFrameMacs(t, sent[0], 1)
	_, _, ok = e.w.Pit().Lookup(name, crc)
	assert.False(t, ok, "cache hit must not touch the PIT")

	// the cached copy stays owned by the CS after transmission
	cached := e.w.Cs().Lookup(name, crc)
	require.NotNil(t, cached)
	assert.Equal(t, int32(1), cached.Refs())

	// (5) idle past the TTL: the purge sweep empties the PIT
	e.inject(defn.TypeInterest, "/a/c", nil, 1)
	assert.NotEmpty(t, e.sentOn(2))
	assert.Equal(t, uint32(1), e.w.Pit().Occupancy())

	e.clock.Advance(6 * time.Second)
	e.w.PurgeExpired(e.clock.Now())
	assert.Equal(t, uint32(0), e.w.Pit().Occupancy())
}

// An Interest with no covering FIB entry is dropped and leaves no PIT
// entry behind.
func TestWorkerNoRoute(t *testing.T) {
	e := newTestEnv(t, testConfig())
	name := []byte("/z/x")

	e.inject(defn.TypeInterest, "/z/x", nil, 1)
	assert.Equal(t, uint64(1), e.w.Stats().IntNoRoute)
	_, _, ok := e.w.Pit().Lookup(name, table.HashName(name))
	assert.False(t, ok)
	assert.True(t, e.w.Pit().IsEmpty())
	assert.Empty(t, e.sentOn(2))
}

// An Interest whose FIB entry points back at the arrival face is dropped
// and its PIT entry removed.
func TestWorkerFibLoop(t *testing.T) {
	e := newTestEnv(t, testConfig())
	require.NoError(t, e.w.Fib().Add([]byte("/b"), 1))
	name := []byte("/b/x")

	e.inject(defn.TypeInterest, "/b/x", nil, 1)
	assert.Equal(t, uint64(1), e.w.Stats().IntFibLoop)
	_, _, ok := e.w.Pit().Lookup(name, table.HashName(name))
	assert.False(t, ok)
	assert.Empty(t, e.sentOn(1))
}

// Non-IPv4 frames, non-ICN datagrams and unknown ICN types all count as
// malformed and are dropped.
func TestWorkerMalformed(t *testing.T) {
	e := newTestEnv(t, testConfig())

	arp := make([]byte, 60)
	arp[12], arp[13] = 0x08, 0x06
	e.w.ProcessFrame(e.pool.Copy(arp), 1, 0)

	tcp := defn.BuildFrame(localMac(1), remoteMac(1), 0, defn.EncodePacket(defn.TypeInterest, 64, []byte("/a"), nil))
	tcp[defn.EthHdrLen+9] = 6
	e.w.ProcessFrame(e.pool.Copy(tcp), 1, 0)

	e.inject(defn.TypeControl+5, "/a/b", nil, 1)

	assert.Equal(t, uint64(3), e.w.Stats().Malformed)
	assert.Equal(t, uint64(0), e.w.Stats().IntRecv)
}

// A full PIT ring drops further Interests as software drops.
func TestWorkerPitFull(t *testing.T) {
	cfg := testConfig()
	cfg.Pit.MaxElements = 1
	e := newTestEnv(t, cfg)
	require.NoError(t, e.w.Fib().Add([]byte("/a"), 2))

	e.inject(defn.TypeInterest, "/a/x", nil, 1)
	e.inject(defn.TypeInterest, "/a/y", nil, 1)
	assert.Equal(t, uint64(1), e.w.Stats().SwPktDrop)
	assert.Len(t, e.sentOn(2), 1)
}

// Frames the transport refuses are released and counted as NIC drops.
func TestWorkerNicBackPressure(t *testing.T) {
	e := newTestEnv(t, testConfig())
	require.NoError(t, e.w.Fib().Add([]byte("/a"), 2))

	// shrink face 2's device queue to a single frame
	mt := face.MakeMemTransport(2, nil, e.pool, 1)
	e.faces[2] = mt
	e.ports.Add(&face.Port{Transport: mt, LocalAddr: localMac(2), RemoteAddr: remoteMac(2)})

	e.inject(defn.TypeInterest, "/a/x", nil, 1)
	e.inject(defn.TypeInterest, "/a/y", nil, 1)
	e.w.FlushAll()

	assert.Len(t, mt.Sent(), 1)
	assert.Equal(t, uint64(1), e.w.Stats().NicPktDrop)
}

// A batch reaching the burst threshold transmits immediately, without
// waiting for the drain deadline.
func TestWorkerBurstFlush(t *testing.T) {
	e := newTestEnv(t, testConfig())
	require.NoError(t, e.w.Fib().Add([]byte("/a"), 2))

	for i := 0; i < MaxPktBurst; i++ {
		e.inject(defn.TypeInterest, fmt.Sprintf("/a/n%02d", i), nil, 1)
	}
	assert.Equal(t, MaxPktBurst, e.faces[2].Pending())
}

// Data nobody asked for is cached but not forwarded.
func TestWorkerDataPitMiss(t *testing.T) {
	e := newTestEnv(t, testConfig())
	name := []byte("/q/r")

	e.inject(defn.TypeData, "/q/r", []byte("payload"), 2)
	assert.Equal(t, uint64(1), e.w.Stats().DataPitMiss)
	assert.Equal(t, uint64(0), e.w.Stats().DataSent)

	cached := e.w.Cs().Lookup(name, table.HashName(name))
	require.NotNil(t, cached)
	assert.Equal(t, int32(1), cached.Refs())
	assert.Empty(t, e.sentOn(1))
	assert.Empty(t, e.faces[2].Sent())
	assert.Empty(t, e.faces[3].Sent())
}

// The live worker loop: frames enqueued from outside are forwarded, FIB
// commands are applied between bursts, and batches drain on the deadline.
func TestWorkerLoop(t *testing.T) {
	cfg := testConfig()
	pool := pktbuf.NewPool(2048)
	ports := face.NewPortTable()
	mt1 := face.MakeMemTransport(1, nil, pool, 64)
	mt2 := face.MakeMemTransport(2, nil, pool, 64)
	ports.Add(&face.Port{Transport: mt1, LocalAddr: localMac(1), RemoteAddr: remoteMac(1)})
	ports.Add(&face.Port{Transport: mt2, LocalAddr: localMac(2), RemoteAddr: remoteMac(2)})

	w := NewWorker(0, cfg, ports, pool, NewSystemClock())
	w.EnqueueFibCmd(FibCmd{Verb: FibAdd, Name: []byte("/a"), Face: 2})
	go w.Run()
	defer w.Stop()

	name := []byte("/a/b")
	icn := defn.EncodePacket(defn.TypeInterest, 64, name, nil)
	frame := defn.BuildFrame(localMac(1), remoteMac(1), table.HashName(name), icn)

	require.Eventually(t, func() bool {
		w.Enqueue(RxPacket{Buf: pool.Copy(frame), RxFace: 1})
		return mt2.Pending() > 0 || len(mt2.Sent()) > 0
	}, 2*time.Second, 5*time.Millisecond)
}
