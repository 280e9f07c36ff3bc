package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_RoundRobinFairness(t *testing.T) {
	m := newTestManager(t, []ProviderConfig{
		testConfig("alpha", 1, 1000),
		testConfig("beta", 1, 1000),
	}, Options{}, nil)

	counts := map[string]int{}
	for i := 0; i < 100; i++ {
		ps := m.selectProvider()
		require.NotNil(t, ps)
		counts[ps.config.Name]++
	}

	assert.InDelta(t, 50, counts["alpha"], 10, "round-robin should split evenly")
	assert.InDelta(t, 50, counts["beta"], 10)
}

func TestSelector_SkipsUnhealthy(t *testing.T) {
	m := newTestManager(t, []ProviderConfig{
		testConfig("alpha", 1, 1000),
		testConfig("beta", 1, 1000),
	}, Options{}, nil)

	bad := m.stateByName("alpha")
	m.mu.Lock()
	bad.healthy = false
	bad.lastError = time.Now()
	m.mu.Unlock()

	for i := 0; i < 10; i++ {
		ps := m.selectProvider()
		require.NotNil(t, ps)
		assert.Equal(t, "beta", ps.config.Name)
	}
}

func TestSelector_BackoffRecovery(t *testing.T) {
	m := newTestManager(t, []ProviderConfig{
		testConfig("alpha", 1, 1000),
	}, Options{BackoffDuration: 60 * time.Second}, nil)

	ps := m.stateByName("alpha")
	m.mu.Lock()
	ps.healthy = false
	ps.errorStreak = 3
	ps.lastError = time.Now().Add(-30 * time.Second)
	m.mu.Unlock()

	// 还在退避窗口内：不可选
	assert.Nil(t, m.selectProvider())

	m.mu.Lock()
	ps.lastError = time.Now().Add(-61 * time.Second)
	m.mu.Unlock()

	// 退避期满：恢复健康，错误流水清零
	selected := m.selectProvider()
	require.NotNil(t, selected)
	assert.Equal(t, "alpha", selected.config.Name)
	assert.True(t, selected.healthy)
	assert.Equal(t, 0, selected.errorStreak)
}

func TestSelector_DailyQuota(t *testing.T) {
	cfg := testConfig("alpha", 2, 1000)
	cfg.CallsPerDay = 5
	m := newTestManager(t, []ProviderConfig{
		cfg,
		testConfig("beta", 1, 1000),
	}, Options{}, nil)

	quotaed := m.stateByName("alpha")
	m.mu.Lock()
	quotaed.dailyCount = 5
	m.mu.Unlock()

	for i := 0; i < 10; i++ {
		ps := m.selectProvider()
		require.NotNil(t, ps)
		assert.Equal(t, "beta", ps.config.Name, "provider over daily quota must be skipped")
	}

	// 模拟跨过 UTC 零点：惰性重置后重新可选
	m.mu.Lock()
	quotaed.dailyResetTime = time.Now().Add(-time.Second)
	m.mu.Unlock()

	selectedAlpha := false
	for i := 0; i < 4; i++ {
		if m.selectProvider().config.Name == "alpha" {
			selectedAlpha = true
		}
	}
	assert.True(t, selectedAlpha)
	assert.Equal(t, int64(0), quotaed.dailyCount)
}

func TestSelector_BoundedWaitForNextToken(t *testing.T) {
	// 50 RPS → 令牌间隔 20ms，远低于 5s 的等待上限
	m := newTestManager(t, []ProviderConfig{
		testConfig("alpha", 1, 50),
	}, Options{}, nil)

	ps := m.stateByName("alpha")
	for ps.bucket.TryConsume() {
	}

	start := time.Now()
	selected := m.selectProvider()
	elapsed := time.Since(start)

	require.NotNil(t, selected, "selector should wait out a short token gap")
	assert.Equal(t, "alpha", selected.config.Name)
	assert.Less(t, elapsed, time.Second)
}

func TestSelector_WaitCeilingExceeded(t *testing.T) {
	// 0.05 RPS → 下一个令牌 20s 后才有，超出上限，直接放弃
	m := newTestManager(t, []ProviderConfig{
		testConfig("alpha", 1, 0.05),
	}, Options{MaxSelectorWait: 5 * time.Second}, nil)

	ps := m.stateByName("alpha")
	for ps.bucket.TryConsume() {
	}

	start := time.Now()
	assert.Nil(t, m.selectProvider())
	assert.Less(t, time.Since(start), time.Second, "must not sleep when the wait exceeds the ceiling")
}

func TestSelector_PrefersPriorityOrderInRotation(t *testing.T) {
	m := newTestManager(t, []ProviderConfig{
		testConfig("low", 1, 1000),
		testConfig("high", 9, 1000),
	}, Options{}, nil)

	// 列表按优先级降序，游标从 0 开始：第一跳必须是 high
	first := m.selectProvider()
	require.NotNil(t, first)
	assert.Equal(t, "high", first.config.Name)
}
