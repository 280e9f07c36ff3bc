package router

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_FailoverToNextProvider(t *testing.T) {
	cfgA := testConfig("alpha", 1, 1000)
	cfgB := testConfig("beta", 1, 1000)
	flaky := &fakeCaller{fn: failWith("connection reset by peer")}
	good := &fakeCaller{}

	m := newTestManager(t, []ProviderConfig{cfgA, cfgB}, Options{},
		map[string]*fakeCaller{cfgA.URL: flaky, cfgB.URL: good})

	raw, err := m.execute(context.Background(), "eth_blockNumber", nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`"0x1"`), raw)
	assert.Equal(t, 1, flaky.callCount())
	assert.Equal(t, 1, good.callCount())
	assert.Equal(t, 1, m.stateByName("alpha").errorStreak)
}

func TestExecutor_StreakFlipsHealth(t *testing.T) {
	cfg := testConfig("alpha", 1, 1000)
	flaky := &fakeCaller{fn: failWith("i/o timeout")}

	m := newTestManager(t, []ProviderConfig{cfg}, Options{ErrorStreakThreshold: 3},
		map[string]*fakeCaller{cfg.URL: flaky})

	for i := 0; i < 3; i++ {
		_, err := m.execute(context.Background(), "eth_blockNumber", nil)
		var exhausted *ExhaustedError
		require.ErrorAs(t, err, &exhausted)
	}

	ps := m.stateByName("alpha")
	assert.False(t, ps.healthy, "3 consecutive retryable failures must flip health")
	assert.Equal(t, 3, ps.errorStreak)

	// 第 4 次：节点在退避期内被整体跳过，连网络调用都不该发生
	before := flaky.callCount()
	_, err := m.execute(context.Background(), "eth_blockNumber", nil)
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, before, flaky.callCount())
}

func TestExecutor_NonRetryableShortCircuit(t *testing.T) {
	cfgA := testConfig("alpha", 1, 1000)
	cfgB := testConfig("beta", 1, 1000)
	bad := &fakeCaller{fn: failWith("invalid argument 0: json: cannot unmarshal")}
	standby := &fakeCaller{}

	m := newTestManager(t, []ProviderConfig{cfgA, cfgB}, Options{},
		map[string]*fakeCaller{cfgA.URL: bad, cfgB.URL: standby})

	_, err := m.execute(context.Background(), "eth_call", []interface{}{"0xdead"})

	var nonRetryable *NonRetryableError
	require.ErrorAs(t, err, &nonRetryable)
	assert.Equal(t, "eth_call", nonRetryable.Method)
	assert.Equal(t, 0, standby.callCount(), "no failover on caller-fault errors")
	assert.Equal(t, 0, m.stateByName("alpha").errorStreak, "caller faults must not count against the provider")
	assert.True(t, m.stateByName("alpha").healthy)
}

func TestExecutor_ExecutionRevertedIsNonRetryable(t *testing.T) {
	cfg := testConfig("alpha", 1, 1000)
	reverting := &fakeCaller{fn: failWith("execution reverted: ERC20: transfer amount exceeds balance")}

	m := newTestManager(t, []ProviderConfig{cfg}, Options{},
		map[string]*fakeCaller{cfg.URL: reverting})

	_, err := m.execute(context.Background(), "eth_call", nil)
	var nonRetryable *NonRetryableError
	require.ErrorAs(t, err, &nonRetryable)
}

func TestExecutor_SuccessResetsStreakAndCountsQuota(t *testing.T) {
	cfg := testConfig("alpha", 1, 1000)
	m := newTestManager(t, []ProviderConfig{cfg}, Options{}, nil)

	ps := m.stateByName("alpha")
	m.mu.Lock()
	ps.errorStreak = 2
	ps.healthy = false
	ps.lastError = time.Now().Add(-2 * DefaultBackoffDuration)
	m.mu.Unlock()

	_, err := m.execute(context.Background(), "eth_blockNumber", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ps.errorStreak)
	assert.True(t, ps.healthy)
	assert.Equal(t, int64(1), ps.dailyCount)
}

func TestExecutor_ExhaustedWrapsLastError(t *testing.T) {
	cfgA := testConfig("alpha", 1, 1000)
	cfgB := testConfig("beta", 1, 1000)
	m := newTestManager(t, []ProviderConfig{cfgA, cfgB}, Options{},
		map[string]*fakeCaller{
			cfgA.URL: {fn: failWith("connection refused")},
			cfgB.URL: {fn: failWith("502 bad gateway")},
		})

	_, err := m.execute(context.Background(), "eth_blockNumber", nil)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.NotNil(t, exhausted.Last)
	assert.Contains(t, err.Error(), "all providers exhausted")
}

func TestIsNonRetryable_Classification(t *testing.T) {
	retryable := []error{
		errors.New("connection reset by peer"),
		errors.New("i/o timeout"),
		errors.New("EOF"),
		errors.New("503 service unavailable"),
	}
	for _, err := range retryable {
		assert.False(t, isNonRetryable(err), "%v should be retryable", err)
	}

	nonRetryable := []error{
		errors.New("execution reverted"),
		errors.New("out of gas"),
		errors.New("gas required exceeds allowance (21000)"),
		errors.New("invalid argument 0"),
		errors.New("the method eth_newFilter does not exist/method not found"),
		context.Canceled,
		context.DeadlineExceeded,
	}
	for _, err := range nonRetryable {
		assert.True(t, isNonRetryable(err), "%v should be non-retryable", err)
	}
}
