/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"fmt"
	"net"

	"github.com/icn-team/augustus/fw/core"
	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// UDPTunnelTransport carries whole Ethernet frames inside UDP datagrams,
// one frame per datagram. This is the deployment story when the process
// has no raw-socket privilege, and the loopback transport used in
// integration tests.
type UDPTunnelTransport struct {
	transportBase
	conn       *net.UDPConn
	remoteAddr *net.UDPAddr
}

// MakeUDPTunnelTransport binds a local UDP endpoint for the face and
// tunnels frames to the remote endpoint.
func MakeUDPTunnelTransport(
	faceID defn.FaceID,
	receiver Receiver,
	pool *pktbuf.Pool,
	local, remote string,
) (*UDPTunnelTransport, error) {
	localAddr, err := net.ResolveUDPAddr("udp", local)
	if err != nil {
		return nil, fmt.Errorf("invalid local endpoint %q: %w", local, err)
	}
	remoteAddr, err := net.ResolveUDPAddr("udp", remote)
	if err != nil {
		return nil, fmt.Errorf("invalid remote endpoint %q: %w", remote, err)
	}

	conn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("unable to bind %q: %w", local, err)
	}

	t := new(UDPTunnelTransport)
	t.makeTransportBase(faceID, receiver, pool)
	t.conn = conn
	t.remoteAddr = remoteAddr
	t.running.Store(true)

	go t.runReceive()
	return t, nil
}

func (t *UDPTunnelTransport) String() string {
	return fmt.Sprintf("udp-tunnel-transport (face=%d local=%s remote=%s)",
		t.faceID, t.conn.LocalAddr(), t.remoteAddr)
}

// LocalAddr returns the bound endpoint, useful when the configuration
// asked for an ephemeral port.
func (t *UDPTunnelTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// TxBurst writes each frame as one datagram. A send error marks the face
// down; frames not yet written are refused back to the caller.
func (t *UDPTunnelTransport) TxBurst(frames []*pktbuf.Buf) int {
	if !t.running.Load() {
		return 0
	}
	for i, f := range frames {
		if _, err := t.conn.WriteToUDP(f.Bytes(), t.remoteAddr); err != nil {
			core.Log.Warn(t, "Unable to send on socket - Face DOWN", "err", err)
			t.Close()
			t.nOutFrames.Add(uint64(i))
			return i
		}
		f.Dec()
	}
	t.nOutFrames.Add(uint64(len(frames)))
	return len(frames)
}

func (t *UDPTunnelTransport) runReceive() {
	defer t.Close()

	for t.running.Load() {
		buf := t.pool.Get()
		buf.Resize(t.pool.Size())
		n, _, err := t.conn.ReadFromUDP(buf.Bytes())
		if err != nil {
			buf.Dec()
			if t.running.Load() {
				core.Log.Warn(t, "Unable to read from socket - Face DOWN", "err", err)
			}
			return
		}
		buf.Resize(n)
		t.nInFrames.Add(1)
		t.receiver.Receive(buf, t.faceID)
	}
}

func (t *UDPTunnelTransport) Close() {
	if t.running.Swap(false) {
		t.conn.Close()
	}
}
