/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

//go:build !linux

package face

import (
	"errors"

	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// EtherTransport requires AF_PACKET sockets, which only Linux provides.
type EtherTransport struct {
	transportBase
	LocalAddr defn.MacAddr
}

func MakeEtherTransport(
	faceID defn.FaceID,
	receiver Receiver,
	pool *pktbuf.Pool,
	ifname string,
	promisc bool,
) (*EtherTransport, error) {
	return nil, errors.New("raw ethernet faces are only supported on linux")
}

func (t *EtherTransport) String() string { return "ether-transport" }

func (t *EtherTransport) TxBurst(frames []*pktbuf.Buf) int { return 0 }

func (t *EtherTransport) Close() {}
