package limiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket_BurstThenThrottle(t *testing.T) {
	// 5 RPS → capacity 10：允许 10 次突发，第 11 次拒绝
	bucket := NewTokenBucket(5)
	assert.Equal(t, 10, bucket.Capacity())

	for i := 0; i < 10; i++ {
		assert.True(t, bucket.TryConsume(), "burst consume %d should succeed", i+1)
	}
	assert.False(t, bucket.TryConsume(), "11th consume should be throttled")

	// 下一个令牌约 200ms 后可用（1/5s），给调度抖动留余量
	wait := bucket.TimeUntilNextToken()
	assert.Greater(t, wait, 100*time.Millisecond)
	assert.Less(t, wait, 400*time.Millisecond)
}

func TestTokenBucket_NeverExceedsCapacity(t *testing.T) {
	bucket := NewTokenBucket(100)

	// 长时间空闲后 tokens 不应超过容量
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, bucket.Tokens(), float64(bucket.Capacity()))

	for i := 0; i < bucket.Capacity(); i++ {
		assert.True(t, bucket.TryConsume())
	}
	assert.GreaterOrEqual(t, bucket.Tokens(), -1.0)
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	bucket := NewTokenBucket(50) // one token every 20ms

	for bucket.TryConsume() {
	}
	assert.False(t, bucket.TryConsume())

	time.Sleep(60 * time.Millisecond)
	assert.True(t, bucket.TryConsume(), "bucket should refill after waiting")
}

func TestTokenBucket_ForceConsumeGoesNegative(t *testing.T) {
	bucket := NewTokenBucket(1)

	for bucket.TryConsume() {
	}
	bucket.ForceConsume()

	// 强制消费后欠账：下一个令牌的等待时间变长
	wait := bucket.TimeUntilNextToken()
	assert.Greater(t, wait, 500*time.Millisecond)
}

func TestTokenBucket_ZeroTimeWhenAvailable(t *testing.T) {
	bucket := NewTokenBucket(10)
	assert.Equal(t, time.Duration(0), bucket.TimeUntilNextToken())
}

func TestTokenBucket_MinimumCapacity(t *testing.T) {
	bucket := NewTokenBucket(0.2)
	assert.Equal(t, 1, bucket.Capacity())
	assert.True(t, bucket.TryConsume())
	assert.False(t, bucket.TryConsume())
}
