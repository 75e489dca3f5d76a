/* Augustus - High-speed ICN content router
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package mgmt

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icn-team/augustus/fw/core"
	"github.com/icn-team/augustus/fw/fw"
)

// statsCollector exports every worker's counter block as prometheus
// counters labeled by worker index.
type statsCollector struct {
	workers []*fw.Worker
	descs   map[string]*prometheus.Desc
}

// NewStatsCollector creates a collector over the given workers.
func NewStatsCollector(workers []*fw.Worker) prometheus.Collector {
	names := []string{
		"interests_received_total",
		"interest_cs_hits_total",
		"interest_pit_hits_total",
		"interest_fib_hits_total",
		"interest_fib_loops_total",
		"interest_no_route_total",
		"data_received_total",
		"data_sent_total",
		"data_pit_misses_total",
		"nic_packet_drops_total",
		"sw_packet_drops_total",
		"malformed_packets_total",
	}
	descs := make(map[string]*prometheus.Desc, len(names)+2)
	for _, n := range names {
		descs[n] = prometheus.NewDesc("augustus_"+n, "Forwarding counter "+n, []string{"worker"}, nil)
	}
	descs["pit_occupancy"] = prometheus.NewDesc(
		"augustus_pit_occupancy", "Live and tombstoned PIT ring slots", []string{"worker"}, nil)
	descs["cs_occupancy"] = prometheus.NewDesc(
		"augustus_cs_occupancy", "Cached Data chunks", []string{"worker"}, nil)
	return &statsCollector{workers: workers, descs: descs}
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs {
		ch <- d
	}
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	counter := func(name string, v uint64, worker string) {
		ch <- prometheus.MustNewConstMetric(c.descs[name], prometheus.CounterValue, float64(v), worker)
	}
	for _, w := range c.workers {
		id := strconv.Itoa(w.ID())
		s := w.Stats()
		counter("interests_received_total", s.IntRecv, id)
		counter("interest_cs_hits_total", s.IntCsHit, id)
		counter("interest_pit_hits_total", s.IntPitHit, id)
		counter("interest_fib_hits_total", s.IntFibHit, id)
		counter("interest_fib_loops_total", s.IntFibLoop, id)
		counter("interest_no_route_total", s.IntNoRoute, id)
		counter("data_received_total", s.DataRecv, id)
		counter("data_sent_total", s.DataSent, id)
		counter("data_pit_misses_total", s.DataPitMiss, id)
		counter("nic_packet_drops_total", s.NicPktDrop, id)
		counter("sw_packet_drops_total", s.SwPktDrop, id)
		counter("malformed_packets_total", s.Malformed, id)
		ch <- prometheus.MustNewConstMetric(c.descs["pit_occupancy"], prometheus.GaugeValue, float64(w.Pit().Occupancy()), id)
		ch <- prometheus.MustNewConstMetric(c.descs["cs_occupancy"], prometheus.GaugeValue, float64(w.Cs().Occupancy()), id)
	}
}

// MetricsServer serves /metrics and a plain-text /status page.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer registers the stats collector on a fresh registry and
// starts serving on addr.
func NewMetricsServer(addr string, workers []*fw.Worker) *MetricsServer {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewStatsCollector(workers))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fw.PrintStats(w, workers)
	})

	s := &MetricsServer{server: &http.Server{Addr: addr, Handler: mux}}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			core.Log.Error(s, "Metrics server failed", "err", err)
		}
	}()
	return s
}

func (s *MetricsServer) String() string {
	return "metrics"
}

// Close stops the listener.
func (s *MetricsServer) Close() {
	s.server.Close()
}
