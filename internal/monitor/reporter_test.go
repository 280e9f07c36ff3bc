package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"web3-rpc-router-go/internal/router"
)

type stubSource struct {
	statuses []router.ProviderStatus
	queue    router.QueueStatus
}

func (s *stubSource) Status() []router.ProviderStatus { return s.statuses }
func (s *stubSource) QueueStatus() router.QueueStatus { return s.queue }

func TestReporter_Snapshot(t *testing.T) {
	source := &stubSource{
		statuses: []router.ProviderStatus{
			{Name: "alpha", Healthy: true},
			{Name: "beta", Healthy: false},
		},
		queue: router.QueueStatus{QueueLength: 3, MaxQueueSize: 1000, ActiveWorkers: 2, MaxConcurrency: 50},
	}
	rate := NewRateMonitor()
	for i := 0; i < 10; i++ {
		rate.Record()
	}

	snap := NewReporter(source, rate).Snapshot()
	assert.Len(t, snap.Providers, 2)
	assert.Equal(t, 3, snap.Queue.QueueLength)
	assert.Equal(t, 2.0, snap.RequestsPerSecond)
	assert.NotEmpty(t, snap.GeneratedAt)
}

func TestRateMonitor_Window(t *testing.T) {
	rate := NewRateMonitor()
	for i := 0; i < 50; i++ {
		rate.Record()
	}
	assert.Equal(t, 10.0, rate.PerSecond(), "50 requests over a 5s window")
}

func TestRateMonitor_IdleDecaysToZero(t *testing.T) {
	rate := NewRateMonitor()
	rate.Record()
	rate.lastTick = time.Now().Add(-6 * time.Second)
	assert.Equal(t, 0.0, rate.PerSecond())
}
