package monitor

import (
	"context"
	"log/slog"
	"time"

	"web3-rpc-router-go/internal/router"
)

const (
	// 日配额预警阈值
	AlertThreshold    = 0.80
	CriticalThreshold = 0.90
)

// StatusSource 路由器暴露给监控的只读切面
type StatusSource interface {
	Status() []router.ProviderStatus
	QueueStatus() router.QueueStatus
}

// Snapshot is the combined payload pushed to dashboards.
type Snapshot struct {
	Providers         []router.ProviderStatus `json:"providers"`
	Queue             router.QueueStatus      `json:"queue"`
	RequestsPerSecond float64                 `json:"requests_per_second"`
	GeneratedAt       string                  `json:"generated_at"`
}

// Reporter periodically logs router health and flags providers running
// hot against their daily quota. Display-only: it never feeds decisions
// back into selection.
type Reporter struct {
	source StatusSource
	rate   *RateMonitor
}

func NewReporter(source StatusSource, rate *RateMonitor) *Reporter {
	return &Reporter{source: source, rate: rate}
}

// Snapshot 生成一份完整状态快照
func (r *Reporter) Snapshot() Snapshot {
	return Snapshot{
		Providers:         r.source.Status(),
		Queue:             r.source.QueueStatus(),
		RequestsPerSecond: r.rate.PerSecond(),
		GeneratedAt:       time.Now().UTC().Format(time.RFC3339),
	}
}

// Run blocks, emitting one summary per interval until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *Reporter) report() {
	statuses := r.source.Status()
	queue := r.source.QueueStatus()

	healthy := 0
	for _, status := range statuses {
		if status.Healthy {
			healthy++
		}
		r.checkQuota(status)
	}

	slog.Info("📊 ROUTER_STATUS",
		"healthy_providers", healthy,
		"total_providers", len(statuses),
		"queue_length", queue.QueueLength,
		"active_workers", queue.ActiveWorkers,
		"requests_per_second", r.rate.PerSecond())

	if healthy == 0 {
		slog.Error("🛑 CRITICAL: no healthy RPC providers left")
	}
}

func (r *Reporter) checkQuota(status router.ProviderStatus) {
	if status.DailyLimit == 0 {
		return
	}
	ratio := float64(status.DailyUsed) / float64(status.DailyLimit)
	if ratio >= CriticalThreshold {
		slog.Error("🛑 CRITICAL: provider daily quota nearly exhausted",
			"provider", status.Name,
			"used", status.DailyUsed,
			"limit", status.DailyLimit)
	} else if ratio >= AlertThreshold {
		slog.Warn("⚠️  QUOTA WARNING: provider usage exceeds threshold",
			"provider", status.Name,
			"used", status.DailyUsed,
			"limit", status.DailyLimit,
			"remaining", status.DailyLimit-status.DailyUsed)
	}
}
