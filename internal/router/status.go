package router

import "time"

// ProviderStatus 单节点监控快照。URL 已掩码，仅供展示/日志。
// 重建客户端请用 Configs()，这俩用混了会出线上事故。
type ProviderStatus struct {
	Name            string  `json:"name"`
	URL             string  `json:"url"`
	Healthy         bool    `json:"healthy"`
	Priority        int     `json:"priority"`
	CallsPerSecond  float64 `json:"calls_per_second"`
	TokensAvailable float64 `json:"tokens_available"`
	DailyUsed       int64   `json:"daily_used"`
	DailyLimit      int64   `json:"daily_limit,omitempty"`
	ErrorStreak     int     `json:"error_streak"`
	LastError       string  `json:"last_error,omitempty"`
}

// QueueStatus 准入队列的瞬时快照
type QueueStatus struct {
	QueueLength    int `json:"queue_length"`
	MaxQueueSize   int `json:"max_queue_size"`
	ActiveWorkers  int `json:"active_workers"`
	MaxConcurrency int `json:"max_concurrency"`
}

// Status returns per-provider monitoring snapshots in priority order.
func (m *Manager) Status() []ProviderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make([]ProviderStatus, 0, len(m.providers))
	for _, ps := range m.providers {
		status := ProviderStatus{
			Name:            ps.config.Name,
			URL:             maskURL(ps.config.URL),
			Healthy:         ps.healthy,
			Priority:        ps.config.Priority,
			CallsPerSecond:  ps.config.CallsPerSecond,
			TokensAvailable: ps.bucket.Tokens(),
			DailyUsed:       ps.dailyCount,
			DailyLimit:      ps.config.CallsPerDay,
			ErrorStreak:     ps.errorStreak,
		}
		if !ps.lastError.IsZero() {
			status.LastError = ps.lastError.UTC().Format(time.RFC3339)
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// QueueStatus returns the admission-control snapshot.
func (m *Manager) QueueStatus() QueueStatus {
	return QueueStatus{
		QueueLength:    len(m.queue),
		MaxQueueSize:   m.opts.MaxQueueSize,
		ActiveWorkers:  int(m.active.Load()),
		MaxConcurrency: m.opts.MaxConcurrency,
	}
}
