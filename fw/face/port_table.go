/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package face

import (
	"github.com/icn-team/augustus/fw/defn"
)

// Port binds a face to its transport and the Ethernet addresses used when
// rewriting forwarded frames.
type Port struct {
	Transport  Transport
	LocalAddr  defn.MacAddr
	RemoteAddr defn.MacAddr
}

// PortTable maps face IDs to ports. It is built during initialization and
// read-only afterwards, so workers index it without synchronization.
type PortTable struct {
	ports [defn.MaxFaces]*Port
}

// NewPortTable creates an empty port table.
func NewPortTable() *PortTable {
	return &PortTable{}
}

// Add registers a port under its transport's face ID.
func (t *PortTable) Add(port *Port) {
	t.ports[port.Transport.FaceID()] = port
}

// Get returns the port for a face, or nil.
func (t *PortTable) Get(id defn.FaceID) *Port {
	if int(id) >= len(t.ports) {
		return nil
	}
	return t.ports[id]
}

// Configured reports whether a face exists and has a usable next hop: a
// port with a nonzero remote address. The controller rejects FIB updates
// pointing at unconfigured faces.
func (t *PortTable) Configured(id defn.FaceID) bool {
	p := t.Get(id)
	return p != nil && !p.RemoteAddr.IsZero()
}

// Faces returns the IDs of all registered ports.
func (t *PortTable) Faces() []defn.FaceID {
	out := make([]defn.FaceID, 0, 8)
	for id, p := range t.ports {
		if p != nil {
			out = append(out, defn.FaceID(id))
		}
	}
	return out
}

// Close shuts down every transport.
func (t *PortTable) Close() {
	for _, p := range t.ports {
		if p != nil {
			p.Transport.Close()
		}
	}
}
