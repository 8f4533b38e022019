package viewer

import (
	"fmt"
	"testing"

	"cloud-hospital/queue/queue-tracker/pkg/infra"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHubHandlesLeaveAfterJoin(t *testing.T) {
	metrics := infra.ProvideMetrics()
	hub := ProvideHub(metrics, infra.NewNopLoggerFactory())
	go hub.Run()
	defer hub.Shutdown()

	for i := 0; i < 200; i++ {
		viewer := &Viewer{id: fmt.Sprintf("viewer-%v", i), ip: "127.0.0.1"}
		assert.True(t, hub.add(viewer))
		hub.remove(viewer)
	}

	assert.Equal(t, 0, hub.Size())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.ActiveViewers))
}

func TestHubRefusesViewersAfterShutdown(t *testing.T) {
	hub := ProvideHub(infra.ProvideMetrics(), infra.NewNopLoggerFactory())
	go hub.Run()

	hub.Shutdown()

	assert.False(t, hub.add(&Viewer{id: "late"}))
	assert.Equal(t, 0, hub.Size())
	hub.Shutdown()
}
