/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"fmt"

	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// NullTransport accepts and discards every frame. Used for faces that are
// configured but not yet attached to a link, and as a test double.
type NullTransport struct {
	transportBase
}

// MakeNullTransport creates a null transport for the given face.
func MakeNullTransport(faceID defn.FaceID) *NullTransport {
	t := new(NullTransport)
	t.makeTransportBase(faceID, nil, nil)
	t.running.Store(true)
	return t
}

func (t *NullTransport) String() string {
	return fmt.Sprintf("null-transport (face=%d)", t.faceID)
}

// TxBurst accepts every frame and releases it unsent.
func (t *NullTransport) TxBurst(frames []*pktbuf.Buf) int {
	for _, f := range frames {
		f.Dec()
	}
	t.nOutFrames.Add(uint64(len(frames)))
	return len(frames)
}

func (t *NullTransport) Close() {
	t.running.Store(false)
}
