package router

import "time"

// CapableClient returns a direct client handle for the highest-priority
// healthy provider advertising the named capability, bypassing the
// admission queue and rate limiting entirely.
//
// Capability-gated traffic (large historical log scans, ENS lookups) is
// rare and latency-tolerant; what matters is landing on a node that can
// actually serve it, not fairness. No fallback: if nothing qualifies,
// ok is false.
func (m *Manager) CapableClient(capability string) (Caller, bool) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	// 列表恒为 priority 降序，第一个命中即最高优先级
	for _, ps := range m.providers {
		ps.maybeRecover(now, m.opts.BackoffDuration)
		if ps.healthy && ps.config.HasCapability(capability) {
			return ps.client, true
		}
	}
	return nil, false
}
