/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Package cmd assembles the daemon: faces, workers, dispatcher and
// controller, wired together from the configuration, plus the cobra
// command-line surface.
package cmd

import (
	"runtime"

	"github.com/icn-team/augustus/fw/core"
	"github.com/icn-team/augustus/fw/defn"
	"github.com/icn-team/augustus/fw/face"
	"github.com/icn-team/augustus/fw/fw"
	"github.com/icn-team/augustus/fw/mgmt"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// Augustus is the assembled router.
type Augustus struct {
	config     *core.Config
	profiler   *Profiler
	pool       *pktbuf.Pool
	ports      *face.PortTable
	workers    []*fw.Worker
	dispatcher *fw.Dispatcher
	controller *mgmt.Controller
	metrics    *mgmt.MetricsServer
}

// NewAugustus builds the router from its configuration. Initialization
// failures are fatal: the process exits with a message.
func NewAugustus(config *core.Config) *Augustus {
	a := &Augustus{
		config:   config,
		profiler: NewProfiler(config),
		pool:     pktbuf.NewPool(config.Fwd.MbufSize),
		ports:    face.NewPortTable(),
	}

	nWorkers := config.Fwd.Workers
	if nWorkers <= 0 {
		// one core stays free for the controller
		nWorkers = max(1, runtime.NumCPU()-1)
	}

	clock := fw.NewSystemClock()
	for i := 0; i < nWorkers; i++ {
		a.workers = append(a.workers, fw.NewWorker(i, config, a.ports, a.pool, clock))
	}
	a.dispatcher = fw.NewDispatcher(a.workers)

	for _, fc := range config.Faces {
		a.addFace(fc)
	}

	controller, err := mgmt.NewController(config.Control.BindAddr, a.workers, a.ports)
	if err != nil {
		core.Log.Fatal(a, "Unable to start controller", "err", err)
	}
	a.controller = controller

	return a
}

func (a *Augustus) String() string {
	return "augustus"
}

// addFace builds the transport for one configured face and registers its
// port.
func (a *Augustus) addFace(fc core.FaceConfig) {
	port := &face.Port{}
	var err error

	if fc.LocalMac != "" {
		if port.LocalAddr, err = defn.ParseMacAddr(fc.LocalMac); err != nil {
			core.Log.Fatal(a, "Invalid face configuration", "face", fc.Id, "err", err)
		}
	}
	if fc.RemoteMac != "" {
		if port.RemoteAddr, err = defn.ParseMacAddr(fc.RemoteMac); err != nil {
			core.Log.Fatal(a, "Invalid face configuration", "face", fc.Id, "err", err)
		}
	}

	id := defn.FaceID(fc.Id)
	switch fc.Kind {
	case "ether":
		t, err := face.MakeEtherTransport(id, a.dispatcher, a.pool, fc.Ifname, fc.Promisc)
		if err != nil {
			core.Log.Fatal(a, "Unable to create ethernet face", "face", fc.Id, "err", err)
		}
		if port.LocalAddr.IsZero() {
			port.LocalAddr = t.LocalAddr
		}
		port.Transport = t
	case "udp":
		t, err := face.MakeUDPTunnelTransport(id, a.dispatcher, a.pool, fc.Local, fc.Remote)
		if err != nil {
			core.Log.Fatal(a, "Unable to create udp face", "face", fc.Id, "err", err)
		}
		port.Transport = t
	case "ws":
		t, err := face.MakeWSTunnelTransport(id, a.dispatcher, a.pool, fc.Remote)
		if err != nil {
			core.Log.Fatal(a, "Unable to create websocket face", "face", fc.Id, "err", err)
		}
		port.Transport = t
	case "null", "":
		port.Transport = face.MakeNullTransport(id)
	default:
		core.Log.Fatal(a, "Unknown face kind", "face", fc.Id, "kind", fc.Kind)
	}

	a.ports.Add(port)
	core.Log.Info(a, "Created face", "face", fc.Id, "transport", port.Transport,
		"local", port.LocalAddr, "remote", port.RemoteAddr)
}

// Start launches the workers and the controller.
func (a *Augustus) Start() {
	core.Log.Info(a, "Starting", "version", core.Version, "workers", len(a.workers))
	a.profiler.Start()

	for _, w := range a.workers {
		go w.Run()
	}
	go a.controller.Run()

	if addr := a.config.Control.MetricsAddr; addr != "" {
		a.metrics = mgmt.NewMetricsServer(addr, a.workers)
		core.Log.Info(a, "Serving metrics", "addr", addr)
	}
}

// Stop tears the router down: control plane first, then the data plane,
// then the faces.
func (a *Augustus) Stop() {
	a.controller.Close()
	if a.metrics != nil {
		a.metrics.Close()
	}
	for _, w := range a.workers {
		w.Stop()
	}
	a.ports.Close()
	for _, w := range a.workers {
		w.Destroy()
	}
	a.profiler.Stop()
}

// Workers returns the worker registry, for the signal handlers.
func (a *Augustus) Workers() []*fw.Worker {
	return a.workers
}
