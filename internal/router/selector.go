package router

import (
	"time"
)

// selectProvider picks the next provider for one call.
//
// Pass 1: round-robin over the priority-sorted list; the first provider
// passing the availability check (healthy, under daily quota, token
// debited) wins.
//
// Pass 2: nobody had a token. Among healthy, quota-remaining providers
// pick the shortest token wait; if it fits under MaxSelectorWait, sleep
// it out, force-debit that provider and return it.
//
// Returns nil when every provider is exhausted.
func (m *Manager) selectProvider() *providerState {
	now := time.Now()

	m.mu.Lock()
	n := len(m.providers)
	if n == 0 {
		m.mu.Unlock()
		return nil
	}

	for i := 0; i < n; i++ {
		ps := m.providers[m.cursor%n]
		m.cursor++
		if ps.available(now, m.opts.BackoffDuration) {
			m.mu.Unlock()
			return ps
		}
	}

	var best *providerState
	var bestWait time.Duration
	for _, ps := range m.providers {
		if !ps.waitCandidate(now, m.opts.BackoffDuration) {
			continue
		}
		wait := ps.bucket.TimeUntilNextToken()
		if best == nil || wait < bestWait {
			best, bestWait = ps, wait
		}
	}
	m.mu.Unlock()

	if best == nil || bestWait > m.opts.MaxSelectorWait {
		return nil
	}

	if bestWait > 0 {
		m.metrics.SelectorWaits.Inc()
		Logger.Debug("⏳ RPC_SELECTOR_WAIT",
			"provider", best.config.Name,
			"wait_ms", bestWait.Milliseconds())
		time.Sleep(bestWait)
	}
	// 已经睡满了等待时间，直接强制扣令牌
	best.bucket.ForceConsume()
	return best
}
