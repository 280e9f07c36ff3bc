package router

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// Default ceilings, matching the free-tier realities the portfolio
// tracker runs against.
const (
	DefaultMaxQueueSize         = 1000
	DefaultMaxConcurrency       = 50
	DefaultErrorStreakThreshold = 3
	DefaultBackoffDuration      = 60 * time.Second
	DefaultMaxSelectorWait      = 5 * time.Second
	DefaultDialTimeout          = 10 * time.Second
)

// Options 路由器可调参数，零值字段使用默认值
type Options struct {
	MaxQueueSize         int
	MaxConcurrency       int
	ErrorStreakThreshold int
	BackoffDuration      time.Duration
	MaxSelectorWait      time.Duration
	DialTimeout          time.Duration

	// OnRequest, if set, is invoked once per outbound network attempt.
	// Used to feed the request-rate monitor without coupling to it.
	OnRequest func()
}

func (o Options) withDefaults() Options {
	if o.MaxQueueSize <= 0 {
		o.MaxQueueSize = DefaultMaxQueueSize
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = DefaultMaxConcurrency
	}
	if o.ErrorStreakThreshold <= 0 {
		o.ErrorStreakThreshold = DefaultErrorStreakThreshold
	}
	if o.BackoffDuration <= 0 {
		o.BackoffDuration = DefaultBackoffDuration
	}
	if o.MaxSelectorWait <= 0 {
		o.MaxSelectorWait = DefaultMaxSelectorWait
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	return o
}

type dialFunc func(ctx context.Context, url string) (Caller, error)

// Manager 多节点 RPC 请求路由器：
// 限速 + 轮询负载均衡 + 健康跟踪 + 有界队列/并发准入控制
type Manager struct {
	mu        sync.Mutex
	providers []*providerState // 始终按 priority 降序排列
	cursor    int              // round-robin 游标

	opts    Options
	queue   chan *queuedCall
	done    chan struct{}
	wg      sync.WaitGroup
	closed  atomic.Bool
	active  atomic.Int32
	metrics *Metrics
	dial    dialFunc
}

// New builds a Manager from the active provider configs, dialing each
// endpoint. Configs that fail to dial are skipped with a warning;
// construction fails if nothing usable remains.
func New(ctx context.Context, configs []ProviderConfig, opts Options) (*Manager, error) {
	return newManager(ctx, configs, opts, dialRPC)
}

func dialRPC(ctx context.Context, url string) (Caller, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newManager(ctx context.Context, configs []ProviderConfig, opts Options, dial dialFunc) (*Manager, error) {
	opts = opts.withDefaults()
	m := &Manager{
		opts:    opts,
		queue:   make(chan *queuedCall, opts.MaxQueueSize),
		done:    make(chan struct{}),
		metrics: GetMetrics(),
		dial:    dial,
	}

	for _, cfg := range configs {
		if !cfg.Active {
			continue
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		state, err := m.dialProvider(ctx, cfg)
		if err != nil {
			Logger.Warn("⚠️ RPC_NODE_DIAL_FAILED", "provider", cfg.Name, "url", maskURL(cfg.URL), "error", err.Error())
			continue
		}
		m.providers = append(m.providers, state)
	}
	if len(m.providers) == 0 {
		return nil, fmt.Errorf("rpc router: no active providers available")
	}
	m.sortProvidersLocked()

	m.startWorkers()
	Logger.Info("🚀 RPC_ROUTER_STARTED",
		"providers", len(m.providers),
		"max_queue", opts.MaxQueueSize,
		"max_concurrency", opts.MaxConcurrency)
	return m, nil
}

func (m *Manager) dialProvider(ctx context.Context, cfg ProviderConfig) (*providerState, error) {
	dialCtx, cancel := context.WithTimeout(ctx, m.opts.DialTimeout)
	defer cancel()
	client, err := m.dial(dialCtx, cfg.URL)
	if err != nil {
		return nil, err
	}
	return newProviderState(cfg, client), nil
}

// sortProvidersLocked keeps the list in descending priority order.
// Caller holds m.mu (or the list is not yet visible to other goroutines).
func (m *Manager) sortProvidersLocked() {
	sort.SliceStable(m.providers, func(i, j int) bool {
		return m.providers[i].config.Priority > m.providers[j].config.Priority
	})
}

func (m *Manager) providerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.providers)
}

// AddProvider dials and inserts a provider at runtime.
func (m *Manager) AddProvider(ctx context.Context, cfg ProviderConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !cfg.Active {
		return fmt.Errorf("rpc router: provider %s is not active", cfg.Name)
	}
	m.mu.Lock()
	for _, ps := range m.providers {
		if ps.config.Name == cfg.Name {
			m.mu.Unlock()
			return fmt.Errorf("rpc router: provider %s already registered", cfg.Name)
		}
	}
	m.mu.Unlock()

	state, err := m.dialProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("rpc router: dial %s: %w", cfg.Name, err)
	}

	m.mu.Lock()
	m.providers = append(m.providers, state)
	m.sortProvidersLocked()
	m.mu.Unlock()
	Logger.Info("➕ RPC_NODE_ADDED", "provider", cfg.Name, "priority", cfg.Priority)
	return nil
}

// RemoveProvider drops a provider by name, closing its client.
// Returns false if no provider carries that name.
func (m *Manager) RemoveProvider(name string) bool {
	m.mu.Lock()
	var removed *providerState
	for i, ps := range m.providers {
		if ps.config.Name == name {
			removed = ps
			m.providers = append(m.providers[:i], m.providers[i+1:]...)
			break
		}
	}
	m.sortProvidersLocked()
	m.mu.Unlock()

	if removed == nil {
		return false
	}
	removed.client.Close()
	Logger.Info("➖ RPC_NODE_REMOVED", "provider", name)
	return true
}

// Configs returns the full provider configurations, untruncated URLs
// included. This is the authoritative source for rebuilding clients;
// it is never safe to log as-is.
func (m *Manager) Configs() []ProviderConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	configs := make([]ProviderConfig, 0, len(m.providers))
	for _, ps := range m.providers {
		configs = append(configs, ps.config)
	}
	return configs
}

// Close stops the worker pool, rejects anything still queued and closes
// all provider clients. In-flight calls finish first.
func (m *Manager) Close() {
	if m.closed.Swap(true) {
		return
	}
	close(m.done)
	m.wg.Wait()

	// 清空残留队列：逐个拒绝，避免调用方永久挂起
	for {
		select {
		case call := <-m.queue:
			call.result <- callResult{err: ErrClosed}
		default:
			m.mu.Lock()
			for _, ps := range m.providers {
				ps.client.Close()
			}
			m.mu.Unlock()
			Logger.Info("🛑 RPC_ROUTER_STOPPED")
			return
		}
	}
}
