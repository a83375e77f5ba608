package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/angelfreak/connd/pkg/types"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ConnectToNetworkRequested("wifi0")
	c.ConnectToNetworkRequested("wifi1")
	c.DisconnectRequested("wifi0")
	c.ConnectSucceeded("wifi0")
	c.ConnectFailed("wifi1", types.ErrorBlockedByPolicy)
	c.ConnectFailed("wifi1", types.ErrorBlockedByPolicy)
	c.ConnectFailed("wifi2", types.ErrorConnectFailed)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.connectRequested))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.disconnectRequested))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.connectSucceeded))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.connectFailed.WithLabelValues(types.ErrorBlockedByPolicy)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.connectFailed.WithLabelValues(types.ErrorConnectFailed)))
}

func TestCollectorRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ConnectToNetworkRequested("wifi0")

	families, err := reg.Gather()
	assert.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["connd_connect_requested_total"])

	// Registering twice must fail instead of silently double counting.
	assert.Panics(t, func() { NewCollector(reg) })
}
