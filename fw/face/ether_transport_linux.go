/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

//go:build linux

package face

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/icn-team/augustus/fw/core"
	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// EtherTransport moves raw Ethernet frames through an AF_PACKET socket
// bound to one interface. Requires CAP_NET_RAW.
type EtherTransport struct {
	transportBase
	fd      int
	ifindex int
	ifname  string

	// LocalAddr is the interface's own Ethernet address, read at bind
	// time for the port table.
	LocalAddr defn.MacAddr
}

// MakeEtherTransport opens a raw socket on the named interface. With
// promisc set the interface also delivers frames addressed to other
// stations.
func MakeEtherTransport(
	faceID defn.FaceID,
	receiver Receiver,
	pool *pktbuf.Pool,
	ifname string,
	promisc bool,
) (*EtherTransport, error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("unknown interface %q: %w", ifname, err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("unable to open raw socket: %w", err)
	}

	sll := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, sll); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("unable to bind raw socket to %q: %w", ifname, err)
	}

	if promisc {
		mreq := unix.PacketMreq{
			Ifindex: int32(iface.Index),
			Type:    unix.PACKET_MR_PROMISC,
		}
		if err := unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, &mreq); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("unable to enable promiscuous mode on %q: %w", ifname, err)
		}
	}

	t := new(EtherTransport)
	t.makeTransportBase(faceID, receiver, pool)
	t.fd = fd
	t.ifindex = iface.Index
	t.ifname = ifname
	if len(iface.HardwareAddr) == 6 {
		copy(t.LocalAddr[:], iface.HardwareAddr)
	}
	t.running.Store(true)

	go t.runReceive()
	return t, nil
}

func (t *EtherTransport) String() string {
	return fmt.Sprintf("ether-transport (face=%d if=%s)", t.faceID, t.ifname)
}

// TxBurst writes frames to the interface. A full device queue (EAGAIN or
// ENOBUFS) refuses the remainder of the burst back to the caller; any
// other error marks the face down.
func (t *EtherTransport) TxBurst(frames []*pktbuf.Buf) int {
	if !t.running.Load() {
		return 0
	}
	for i, f := range frames {
		if _, err := unix.Write(t.fd, f.Bytes()); err != nil {
			if err == unix.EAGAIN || err == unix.ENOBUFS {
				t.nOutFrames.Add(uint64(i))
				return i
			}
			core.Log.Warn(t, "Unable to send on raw socket - Face DOWN", "err", err)
			t.Close()
			t.nOutFrames.Add(uint64(i))
			return i
		}
		f.Dec()
	}
	t.nOutFrames.Add(uint64(len(frames)))
	return len(frames)
}

func (t *EtherTransport) runReceive() {
	defer t.Close()

	for t.running.Load() {
		buf := t.pool.Get()
		buf.Resize(t.pool.Size())
		n, from, err := unix.Recvfrom(t.fd, buf.Bytes(), 0)
		if err != nil {
			buf.Dec()
			if err == unix.EINTR {
				continue
			}
			if t.running.Load() {
				core.Log.Warn(t, "Unable to read from raw socket - Face DOWN", "err", err)
			}
			return
		}
		// Skip looped-back copies of our own transmissions.
		if sll, ok := from.(*unix.SockaddrLinklayer); ok && sll.Pkttype == unix.PACKET_OUTGOING {
			buf.Dec()
			continue
		}
		buf.Resize(n)
		t.nInFrames.Add(1)
		t.receiver.Receive(buf, t.faceID)
	}
}

func (t *EtherTransport) Close() {
	if t.running.Swap(false) {
		unix.Close(t.fd)
	}
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}
