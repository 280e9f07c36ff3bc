package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeCaller 可编程的假 RPC 客户端
type fakeCaller struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

func (f *fakeCaller) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, result, method, args...)
	}
	if raw, ok := result.(*json.RawMessage); ok {
		*raw = json.RawMessage(`"0x1"`)
	}
	return nil
}

func (f *fakeCaller) Close() {}

func (f *fakeCaller) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func failWith(msg string) func(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	return func(context.Context, interface{}, string, ...interface{}) error {
		return fmt.Errorf("%s", msg)
	}
}

func testConfig(name string, priority int, cps float64) ProviderConfig {
	return ProviderConfig{
		Name:           name,
		URL:            "https://" + name + ".example.org/v2/super-secret-api-key",
		CallsPerSecond: cps,
		Priority:       priority,
		Active:         true,
	}
}

// newTestManager wires a manager whose dial resolves to the given fakes
// by provider URL. Unlisted URLs get a default always-succeeding fake.
func newTestManager(t *testing.T, configs []ProviderConfig, opts Options, fakes map[string]*fakeCaller) *Manager {
	t.Helper()
	dial := func(_ context.Context, url string) (Caller, error) {
		if c, ok := fakes[url]; ok {
			return c, nil
		}
		return &fakeCaller{}, nil
	}
	m, err := newManager(context.Background(), configs, opts, dial)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func (m *Manager) stateByName(name string) *providerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ps := range m.providers {
		if ps.config.Name == name {
			return ps
		}
	}
	return nil
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
