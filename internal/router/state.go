package router

import (
	"context"
	"time"

	"web3-rpc-router-go/internal/limiter"
)

// Caller is the minimal surface of the underlying JSON-RPC client.
// *rpc.Client from go-ethereum satisfies it; tests substitute fakes.
type Caller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

// providerState 单个节点的运行时状态。除 bucket（自带锁）外，
// 所有可变字段都由 Manager.mu 保护。
type providerState struct {
	config ProviderConfig
	client Caller
	bucket *limiter.TokenBucket

	healthy     bool
	errorStreak int
	lastError   time.Time

	dailyCount     int64
	dailyResetTime time.Time
}

func newProviderState(cfg ProviderConfig, client Caller) *providerState {
	return &providerState{
		config:         cfg,
		client:         client,
		bucket:         limiter.NewTokenBucket(cfg.CallsPerSecond),
		healthy:        true,
		dailyResetTime: nextUTCMidnight(time.Now()),
	}
}

// maybeRecover flips an unhealthy node back once the backoff window has
// elapsed. Runs before every availability check.
func (s *providerState) maybeRecover(now time.Time, backoff time.Duration) {
	if !s.healthy && now.After(s.lastError.Add(backoff)) {
		s.healthy = true
		s.errorStreak = 0
		Logger.Info("✅ RPC_NODE_BACKOFF_ELAPSED", "provider", s.config.Name)
	}
}

// maybeResetDaily 跨 UTC 零点惰性重置日计数
func (s *providerState) maybeResetDaily(now time.Time) {
	if !now.Before(s.dailyResetTime) {
		s.dailyCount = 0
		s.dailyResetTime = nextUTCMidnight(now)
	}
}

// underDailyQuota reports whether the node still has daily budget.
func (s *providerState) underDailyQuota() bool {
	return s.config.CallsPerDay == 0 || s.dailyCount < s.config.CallsPerDay
}

// available runs the full availability check and, on success, debits one
// token. A true return means the token is already consumed.
func (s *providerState) available(now time.Time, backoff time.Duration) bool {
	s.maybeRecover(now, backoff)
	s.maybeResetDaily(now)
	if !s.healthy || !s.underDailyQuota() {
		return false
	}
	return s.bucket.TryConsume()
}

// waitCandidate: 健康且有日配额，仅缺令牌的节点才值得等待
func (s *providerState) waitCandidate(now time.Time, backoff time.Duration) bool {
	s.maybeRecover(now, backoff)
	s.maybeResetDaily(now)
	return s.healthy && s.underDailyQuota()
}

func nextUTCMidnight(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day()+1, 0, 0, 0, 0, time.UTC)
}

// maskURL 掩码 URL（保护 API 密钥），仅用于日志和状态展示
func maskURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "..." + url[len(url)-10:]
	}
	return url
}
