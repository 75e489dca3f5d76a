/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package mgmt implements the control plane: the UDP listener accepting
// FIB update commands and fanning them out to every worker, and the
// observability surface exporting the forwarding counters.
package mgmt

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/icn-team/augustus/fw/core"
	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/fw/face"
	"github.com/icn-team/augustus/fw/fw"
)

// Controller accepts FIB update commands over a local datagram socket.
//
// Each datagram carries an ICN control packet whose name field is
// "<VERB>:<prefix>:<face_id>" with VERB either ADD or DEL. The controller
// never touches a worker's FIB directly: it enqueues the mutation onto
// every worker's command queue, and each worker applies it at the top of
// its loop.
type Controller struct {
	conn    *net.UDPConn
	workers []*fw.Worker
	ports   *face.PortTable
	running atomic.Bool
	done    chan struct{}
}

// NewController binds the control socket. The worker slice is the
// registry the controller fans commands out to.
func NewController(bindAddr string, workers []*fw.Worker, ports *face.PortTable) (*Controller, error) {
	addr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid control address %q: %w", bindAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("unable to bind control socket: %w", err)
	}
	return &Controller{
		conn:    conn,
		workers: workers,
		ports:   ports,
		done:    make(chan struct{}),
	}, nil
}

func (c *Controller) String() string {
	return "controller"
}

// LocalAddr returns the bound control endpoint.
func (c *Controller) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Run blocks on the control socket until Close, handling one command per
// datagram. This is the only blocking receive in the router.
func (c *Controller) Run() {
	defer close(c.done)
	c.running.Store(true)
	core.Log.Info(c, "Started", "addr", c.conn.LocalAddr())

	buffer := make([]byte, 1500)
	for c.running.Load() {
		n, _, err := c.conn.ReadFromUDP(buffer)
		if err != nil {
			if c.running.Load() {
				core.Log.Error(c, "Unable to read from control socket", "err", err)
			}
			return
		}
		c.handleDatagram(buffer[:n])
	}
}

// Close shuts the control socket down and waits for Run to return.
func (c *Controller) Close() {
	if c.running.Swap(false) {
		c.conn.Close()
		<-c.done
	}
}

func (c *Controller) handleDatagram(datagram []byte) {
	var p defn.Packet
	defn.ParsePacket(datagram, &p)
	if p.Hdr.Type != defn.TypeControl {
		core.Log.Warn(c, "Ignored non-control packet on control socket", "type", p.Hdr.Type)
		return
	}

	verb, prefix, faceID, err := ParseCommand(p.Name)
	if err != nil {
		core.Log.Warn(c, "Invalid FIB update command", "err", err)
		return
	}

	if !c.ports.Configured(faceID) {
		core.Log.Warn(c, "FIB update for invalid interface", "face", faceID)
		return
	}

	// The prefix borrows from the receive buffer; copy once before it
	// crosses into the workers.
	name := make([]byte, len(prefix))
	copy(name, prefix)

	cmd := fw.FibCmd{Name: name, Face: faceID}
	switch verb {
	case "ADD":
		cmd.Verb = fw.FibAdd
	case "DEL":
		cmd.Verb = fw.FibDel
	default:
		// unknown verbs are ignored
		core.Log.Debug(c, "Ignored unknown FIB update verb", "verb", verb)
		return
	}

	for _, w := range c.workers {
		w.EnqueueFibCmd(cmd)
	}
	core.Log.Info(c, "FIB update dispatched", "verb", verb, "name", string(name), "face", faceID)
}

// ParseCommand splits a control name of the form "<VERB>:<prefix>:<face>".
// The verb is a 3-byte ASCII token and the face a decimal number of at
// most 4 digits.
func ParseCommand(name []byte) (verb string, prefix []byte, faceID defn.FaceID, err error) {
	if len(name) < 4 || name[3] != defn.CommandSep {
		return "", nil, 0, fmt.Errorf("command too short")
	}
	verb = string(name[:3])

	rest := name[4:]
	sep := bytes.LastIndexByte(rest, defn.CommandSep)
	if sep < 0 {
		return "", nil, 0, fmt.Errorf("missing face field")
	}
	prefix = rest[:sep]
	if len(prefix) == 0 {
		return "", nil, 0, fmt.Errorf("empty prefix")
	}

	faceField := rest[sep+1:]
	if len(faceField) == 0 || len(faceField) > 4 {
		return "", nil, 0, fmt.Errorf("bad face field length")
	}
	v, convErr := strconv.ParseUint(string(faceField), 10, 16)
	if convErr != nil || v >= defn.MaxFaces {
		return "", nil, 0, fmt.Errorf("bad face id %q", faceField)
	}
	return verb, prefix, defn.FaceID(v), nil
}
