/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package face provides the port layer: burst-oriented transports moving
// whole Ethernet frames, and the table mapping face IDs to transports and
// peer addresses.
package face

import (
	"sync/atomic"

	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// Receiver accepts frames arriving on a face. The forwarding dispatcher
// implements this; transports call it from their receive goroutines.
type Receiver interface {
	Receive(buf *pktbuf.Buf, rx defn.FaceID)
}

// Transport moves frames for one face.
//
// TxBurst submits a burst for transmission and returns how many frames
// were accepted; the transport owns the accepted frames and releases them
// after transmission. The caller keeps ownership of the rest — transmit
// back-pressure is its problem to account.
type Transport interface {
	String() string

	FaceID() defn.FaceID
	TxBurst(frames []*pktbuf.Buf) int
	IsRunning() bool
	Close()
}

// transportBase carries state common to all transport types.
type transportBase struct {
	faceID   defn.FaceID
	receiver Receiver
	pool     *pktbuf.Pool
	running  atomic.Bool

	nInFrames  atomic.Uint64
	nOutFrames atomic.Uint64
}

func (t *transportBase) makeTransportBase(faceID defn.FaceID, receiver Receiver, pool *pktbuf.Pool) {
	t.faceID = faceID
	t.receiver = receiver
	t.pool = pool
}

// FaceID returns the face this transport serves.
func (t *transportBase) FaceID() defn.FaceID {
	return t.faceID
}

// IsRunning returns whether the transport is up.
func (t *transportBase) IsRunning() bool {
	return t.running.Load()
}

// NInFrames returns the number of frames received.
func (t *transportBase) NInFrames() uint64 {
	return t.nInFrames.Load()
}

// NOutFrames returns the number of frames transmitted.
func (t *transportBase) NOutFrames() uint64 {
	return t.nOutFrames.Load()
}
