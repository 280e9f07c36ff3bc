package limiter

import (
	"time"

	"golang.org/x/time/rate"
)

// BurstSeconds 桶容量 = callsPerSecond × BurstSeconds（2 秒突发余量）
const BurstSeconds = 2

// TokenBucket 单节点令牌桶限速器
// 封装 rate.Limiter，暴露非阻塞的 TryConsume / 等待时间查询语义
type TokenBucket struct {
	limiter  *rate.Limiter
	rps      float64
	capacity int
}

// NewTokenBucket creates a bucket refilling at callsPerSecond tokens/sec
// with capacity 2×callsPerSecond (two seconds of burst headroom).
func NewTokenBucket(callsPerSecond float64) *TokenBucket {
	if callsPerSecond <= 0 {
		callsPerSecond = 1
	}
	capacity := int(callsPerSecond * BurstSeconds)
	if capacity < 1 {
		capacity = 1
	}
	return &TokenBucket{
		limiter:  rate.NewLimiter(rate.Limit(callsPerSecond), capacity),
		rps:      callsPerSecond,
		capacity: capacity,
	}
}

// TryConsume debits one token if available. Never blocks.
func (b *TokenBucket) TryConsume() bool {
	return b.limiter.Allow()
}

// ForceConsume debits the next token unconditionally, going negative if
// the bucket is empty. Used after the selector has already slept out the
// advertised wait.
func (b *TokenBucket) ForceConsume() {
	_ = b.limiter.Reserve()
}

// TimeUntilNextToken returns how long until one token is available
// (0 if one is available right now). Does not consume.
func (b *TokenBucket) TimeUntilNextToken() time.Duration {
	r := b.limiter.Reserve()
	d := r.Delay()
	r.Cancel()
	return d
}

// Tokens 当前可用令牌数（用于状态快照，可能为负）
func (b *TokenBucket) Tokens() float64 {
	return b.limiter.Tokens()
}

// RPS returns the configured refill rate.
func (b *TokenBucket) RPS() float64 {
	return b.rps
}

// Capacity returns the bucket ceiling.
func (b *TokenBucket) Capacity() int {
	return b.capacity
}
