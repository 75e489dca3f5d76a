package mgmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icn-team/augustus/fw/core"
	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/fw/face"
	"github.com/icn-team/augustus/fw/fw"
	"github.com/icn-team/augustus/fw/table"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// Command names split into verb, prefix and face; malformed commands are
// rejected with a reason.
func TestParseCommand(t *testing.T) {
	verb, prefix, faceID, err := ParseCommand([]byte("ADD:/alu/video:2"))
	require.NoError(t, err)
	assert.Equal(t, "ADD", verb)
	assert.Equal(t, "/alu/video", string(prefix))
	assert.Equal(t, defn.FaceID(2), faceID)

	verb, prefix, faceID, err = ParseCommand([]byte("DEL:/a:63"))
	require.NoError(t, err)
	assert.Equal(t, "DEL", verb)
	assert.Equal(t, "/a", string(prefix))
	assert.Equal(t, defn.FaceID(63), faceID)

	for _, bad := range []string{
		"",             // empty
		"AD",           // too short
		"ADD/a:2",      // missing separator after verb
		"ADD:/a",       // missing face field
		"ADD::2",       // empty prefix
		"ADD:/a:",      // empty face
		"ADD:/a:12345", // face field too long
		"ADD:/a:x",     // non-decimal face
		"ADD:/a:64",    // face beyond the bitmask width
	} {
		_, _, _, err := ParseCommand([]byte(bad))
		assert.Error(t, err, "command %q", bad)
	}
}

// The encoded control packet round-trips through the parser used by the
// controller.
func TestEncodeCommand(t *testing.T) {
	datagram := EncodeCommand("ADD", "/alu", 3)

	var p defn.Packet
	defn.ParsePacket(datagram, &p)
	assert.Equal(t, defn.TypeControl, p.Hdr.Type)

	verb, prefix, faceID, err := ParseCommand(p.Name)
	require.NoError(t, err)
	assert.Equal(t, "ADD", verb)
	assert.Equal(t, "/alu", string(prefix))
	assert.Equal(t, defn.FaceID(3), faceID)
}

func newControllerEnv(t *testing.T) (*Controller, *fw.Worker, *face.MemTransport, *face.MemTransport) {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.Fib = core.TableConfig{NumBuckets: 64, MaxElements: 64}

	pool := pktbuf.NewPool(2048)
	ports := face.NewPortTable()
	mt1 := face.MakeMemTransport(1, nil, pool, 64)
	mt2 := face.MakeMemTransport(2, nil, pool, 64)
	ports.Add(&face.Port{Transport: mt1,
		LocalAddr:  defn.MacAddr{2, 0, 0, 0, 0x10, 1},
		RemoteAddr: defn.MacAddr{2, 0, 0, 0, 0x20, 1}})
	ports.Add(&face.Port{Transport: mt2,
		LocalAddr:  defn.MacAddr{2, 0, 0, 0, 0x10, 2},
		RemoteAddr: defn.MacAddr{2, 0, 0, 0, 0x20, 2}})

	w := fw.NewWorker(0, cfg, ports, pool, fw.NewSystemClock())

	ctrl, err := NewController("127.0.0.1:0", []*fw.Worker{w}, ports)
	require.NoError(t, err)
	return ctrl, w, mt1, mt2
}

// An ADD command sent over the control socket reaches the worker's FIB
// through its command queue, after which Interests for the prefix are
// forwarded.
func TestControllerAddCommand(t *testing.T) {
	ctrl, w, _, mt2 := newControllerEnv(t)
	go ctrl.Run()
	defer ctrl.Close()
	go w.Run()
	defer w.Stop()

	require.NoError(t, SendCommand(ctrl.LocalAddr().String(), "ADD", "/a", 2))

	pool := pktbuf.NewPool(2048)
	name := []byte("/a/b")
	icn := defn.EncodePacket(defn.TypeInterest, 64, name, nil)
	frame := defn.BuildFrame(defn.MacAddr{2, 0, 0, 0, 0x10, 1}, defn.MacAddr{2, 0, 0, 0, 0x20, 1},
		table.HashName(name), icn)

	require.Eventually(t, func() bool {
		w.Enqueue(fw.RxPacket{Buf: pool.Copy(frame), RxFace: 1})
		return mt2.Pending() > 0 || len(mt2.Sent()) > 0
	}, 2*time.Second, 5*time.Millisecond)
}

// Commands naming an unconfigured face are rejected before reaching any
// worker.
func TestControllerRejectsInvalidFace(t *testing.T) {
	ctrl, w, _, _ := newControllerEnv(t)
	go ctrl.Run()
	defer ctrl.Close()

	// face 9 has no port, face 0 is never configured
	require.NoError(t, SendCommand(ctrl.LocalAddr().String(), "ADD", "/a", 9))
	require.NoError(t, SendCommand(ctrl.LocalAddr().String(), "ADD", "/a", 0))
	// unknown verbs are dropped silently
	require.NoError(t, SendCommand(ctrl.LocalAddr().String(), "SET", "/a", 2))

	// rejected commands never reach the fan-out, so the FIB stays
	// untouched even once the datagrams have been handled
	time.Sleep(100 * time.Millisecond)
	assert.True(t, w.Fib().IsEmpty())
}

// A DEL command removes what ADD created.
func TestControllerDelCommand(t *testing.T) {
	ctrl, w, _, _ := newControllerEnv(t)
	go ctrl.Run()
	defer ctrl.Close()
	go w.Run()

	require.NoError(t, SendCommand(ctrl.LocalAddr().String(), "ADD", "/a", 2))
	require.NoError(t, SendCommand(ctrl.LocalAddr().String(), "DEL", "/a", 2))

	time.Sleep(200 * time.Millisecond)
	w.Stop()

	name := []byte("/a")
	_, ok := w.Fib().LookupExact(name, table.HashName(name))
	assert.False(t, ok)
}
