package router

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"web3-rpc-router-go/internal/recovery"
)

// queuedCall 队列中的一次待执行调用；result 即它的 future
type queuedCall struct {
	ctx        context.Context
	method     string
	params     []interface{}
	result     chan callResult
	enqueuedAt time.Time
}

type callResult struct {
	raw json.RawMessage
	err error
}

// Send submits one RPC call through admission control and blocks until
// a worker resolves it. A full queue rejects immediately (backpressure).
// Cancelling ctx abandons the future but does not stop the underlying
// request once admitted.
func (m *Manager) Send(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	call := &queuedCall{
		ctx:        ctx,
		method:     method,
		params:     params,
		result:     make(chan callResult, 1),
		enqueuedAt: time.Now(),
	}

	select {
	case m.queue <- call:
		m.metrics.QueueDepth.Set(float64(len(m.queue)))
	default:
		m.metrics.QueueRejections.Inc()
		return nil, ErrQueueFull
	}

	select {
	case res := <-call.result:
		return res.raw, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// startWorkers launches the fixed pool. MaxConcurrency 个 worker 共享
// 一条有界 channel，天然实现有界队列 + 并发上限。
func (m *Manager) startWorkers() {
	for i := 0; i < m.opts.MaxConcurrency; i++ {
		m.wg.Add(1)
		name := fmt.Sprintf("rpc-worker-%d", i)
		go func() {
			defer m.wg.Done()
			recovery.WithRecoveryNamed(name, m.workerLoop)
		}()
	}
}

func (m *Manager) workerLoop() {
	for {
		select {
		case <-m.done:
			return
		case call := <-m.queue:
			m.metrics.QueueDepth.Set(float64(len(m.queue)))
			m.runCall(call)
		}
	}
}

func (m *Manager) runCall(call *queuedCall) {
	m.active.Add(1)
	m.metrics.ActiveWorkers.Inc()
	defer func() {
		m.active.Add(-1)
		m.metrics.ActiveWorkers.Dec()

		// 单次调用 panic 不拖垮 worker，也不让 future 挂死
		if r := recover(); r != nil {
			call.result <- callResult{err: fmt.Errorf("rpc router: panic executing %s: %v", call.method, r)}
		}
	}()

	raw, err := m.execute(call.ctx, call.method, call.params)
	call.result <- callResult{raw: raw, err: err}
}
