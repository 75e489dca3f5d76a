package mgmt

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icn-team/augustus/fw/core"
	"github.com/icn-team/augustus/fw/face"
	"github.com/icn-team/augustus/fw/fw"
	"github.com/icn-team/augustus/std/types/pktbuf"
)

// The collector exports one family per counter plus the occupancy
// gauges, labeled per worker.
func TestStatsCollector(t *testing.T) {
	cfg := core.DefaultConfig()
	pool := pktbuf.NewPool(2048)
	workers := []*fw.Worker{
		fw.NewWorker(0, cfg, face.NewPortTable(), pool, fw.NewSystemClock()),
		fw.NewWorker(1, cfg, face.NewPortTable(), pool, fw.NewSystemClock()),
	}

	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(NewStatsCollector(workers)))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 14)

	byName := make(map[string]int)
	for _, f := range families {
		byName[f.GetName()] = len(f.GetMetric())
	}
	assert.Equal(t, 2, byName["augustus_interests_received_total"], "one series per worker")
	assert.Equal(t, 2, byName["augustus_pit_occupancy"])
	assert.Contains(t, byName, "augustus_malformed_packets_total")
}
