/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/icn-team/augustus/fw/core"
	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// WSTunnelTransport carries Ethernet frames as binary WebSocket messages.
// Used for overlay faces crossing networks where neither raw sockets nor
// plain UDP reach the peer.
type WSTunnelTransport struct {
	transportBase
	c  *websocket.Conn
	wr sync.Mutex
}

// MakeWSTunnelTransport dials a WebSocket endpoint and runs the tunnel
// over the resulting connection.
func MakeWSTunnelTransport(
	faceID defn.FaceID,
	receiver Receiver,
	pool *pktbuf.Pool,
	url string,
) (*WSTunnelTransport, error) {
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to dial %q: %w", url, err)
	}
	return newWSTunnelTransport(faceID, receiver, pool, c), nil
}

// AcceptWSTunnelTransport upgrades an incoming HTTP request and runs the
// tunnel over the accepted connection.
func AcceptWSTunnelTransport(
	faceID defn.FaceID,
	receiver Receiver,
	pool *pktbuf.Pool,
	w http.ResponseWriter,
	r *http.Request,
) (*WSTunnelTransport, error) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to upgrade connection: %w", err)
	}
	return newWSTunnelTransport(faceID, receiver, pool, c), nil
}

func newWSTunnelTransport(faceID defn.FaceID, receiver Receiver, pool *pktbuf.Pool, c *websocket.Conn) *WSTunnelTransport {
	t := new(WSTunnelTransport)
	t.makeTransportBase(faceID, receiver, pool)
	t.c = c
	t.running.Store(true)

	go t.runReceive()
	return t
}

func (t *WSTunnelTransport) String() string {
	return fmt.Sprintf("ws-tunnel-transport (face=%d remote=%s)", t.faceID, t.c.RemoteAddr())
}

// TxBurst writes each frame as one binary message. A write error marks
// the face down; frames not yet written are refused back to the caller.
func (t *WSTunnelTransport) TxBurst(frames []*pktbuf.Buf) int {
	if !t.running.Load() {
		return 0
	}
	t.wr.Lock()
	defer t.wr.Unlock()
	for i, f := range frames {
		if err := t.c.WriteMessage(websocket.BinaryMessage, f.Bytes()); err != nil {
			core.Log.Warn(t, "Unable to send on socket - Face DOWN")
			t.Close()
			t.nOutFrames.Add(uint64(i))
			return i
		}
		f.Dec()
	}
	t.nOutFrames.Add(uint64(len(frames)))
	return len(frames)
}

func (t *WSTunnelTransport) runReceive() {
	defer t.Close()

	for {
		mt, message, err := t.c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err) {
				core.Log.Info(t, "WebSocket closed unexpectedly - Face DOWN", "err", err)
			} else if t.running.Load() && !websocket.IsCloseError(err) {
				core.Log.Warn(t, "Unable to read from WebSocket - Face DOWN", "err", err)
			}
			return
		}

		if mt != websocket.BinaryMessage {
			core.Log.Warn(t, "Ignored non-binary message")
			continue
		}

		t.nInFrames.Add(1)
		t.receiver.Receive(t.pool.Copy(message), t.faceID)
	}
}

func (t *WSTunnelTransport) Close() {
	if t.running.Swap(false) {
		t.c.Close()
	}
}
