package monitor

import (
	"sync"
	"time"
)

// RateMonitor implements a 5-second sliding window for a deterministic
// requests-per-second figure in status payloads.
type RateMonitor struct {
	buckets    [5]int
	currentPos int
	lastTick   time.Time
	mu         sync.Mutex
}

func NewRateMonitor() *RateMonitor {
	return &RateMonitor{
		lastTick: time.Now(),
	}
}

// Record counts one outbound request in the current second bucket.
func (m *RateMonitor) Record() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	elapsed := int(now.Sub(m.lastTick).Seconds())
	if elapsed >= 1 {
		if elapsed >= 5 {
			for i := range m.buckets {
				m.buckets[i] = 0
			}
			m.currentPos = 0
		} else {
			for i := 0; i < elapsed; i++ {
				m.currentPos = (m.currentPos + 1) % 5
				m.buckets[m.currentPos] = 0
			}
		}
		m.lastTick = now
	}
	m.buckets[m.currentPos]++
}

// PerSecond returns the average request rate over the window.
func (m *RateMonitor) PerSecond() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastTick) > 5*time.Second {
		return 0.0
	}

	sum := 0
	for _, b := range m.buckets {
		sum += b
	}
	return float64(sum) / 5.0
}
