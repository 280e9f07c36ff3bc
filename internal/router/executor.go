package router

import (
	"context"
	"encoding/json"
	"time"
)

// execute runs one logical call with failover: up to one attempt per
// configured provider. Retryable failures rotate to the next provider;
// caller-fault errors surface immediately.
func (m *Manager) execute(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	attempts := m.providerCount()
	var lastErr error

	for i := 0; i < attempts; i++ {
		ps := m.selectProvider()
		if ps == nil {
			break
		}
		name := ps.config.Name

		if m.opts.OnRequest != nil {
			m.opts.OnRequest()
		}
		m.metrics.RequestsTotal.WithLabelValues(name).Inc()

		start := time.Now()
		var raw json.RawMessage
		err := ps.client.CallContext(ctx, &raw, method, params...)
		m.metrics.RequestLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if err == nil {
			m.recordSuccess(ps)
			return raw, nil
		}

		if isNonRetryable(err) {
			// 调用方的锅：不记节点错误，不换节点
			m.metrics.RequestsFailed.WithLabelValues(name, "non_retryable").Inc()
			return nil, &NonRetryableError{Method: method, Err: err}
		}

		m.metrics.RequestsFailed.WithLabelValues(name, "retryable").Inc()
		m.recordFailure(ps, method, err)
		lastErr = err
	}

	return nil, &ExhaustedError{Last: lastErr}
}

// recordSuccess resets the error streak, restores health and counts the
// call against the daily quota.
func (m *Manager) recordSuccess(ps *providerState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ps.errorStreak = 0
	if !ps.healthy {
		ps.healthy = true
		Logger.Info("✅ RPC_NODE_RECOVERED", "provider", ps.config.Name)
	}
	ps.dailyCount++

	m.metrics.ProviderHealthy.WithLabelValues(ps.config.Name).Set(1)
	m.metrics.DailyCalls.WithLabelValues(ps.config.Name).Set(float64(ps.dailyCount))
}

// recordFailure bumps the consecutive-error streak; at the threshold the
// provider flips unhealthy and enters its backoff window.
func (m *Manager) recordFailure(ps *providerState, method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ps.errorStreak++
	ps.lastError = time.Now()

	if ps.errorStreak >= m.opts.ErrorStreakThreshold && ps.healthy {
		ps.healthy = false
		m.metrics.ProviderHealthy.WithLabelValues(ps.config.Name).Set(0)
		Logger.Warn("🚨 RPC_NODE_UNHEALTHY",
			"provider", ps.config.Name,
			"url", maskURL(ps.config.URL),
			"error_streak", ps.errorStreak,
			"backoff_seconds", m.opts.BackoffDuration.Seconds())
		return
	}

	Logger.Warn("rpc_call_failed",
		"provider", ps.config.Name,
		"method", method,
		"error_streak", ps.errorStreak,
		"error", err.Error())
}
