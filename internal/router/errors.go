package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrQueueFull 队列已满，立即拒绝（背压信号，不重试）
var ErrQueueFull = errors.New("rpc router: admission queue full")

// ErrClosed is returned for calls submitted after Close.
var ErrClosed = errors.New("rpc router: manager closed")

// ExhaustedError means every provider was unhealthy, over quota or
// rate-limited, or the bounded wait elapsed. Wraps the last underlying
// error observed during the attempt, if any.
type ExhaustedError struct {
	Last error
}

func (e *ExhaustedError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("rpc router: all providers exhausted (last error: %v)", e.Last)
	}
	return "rpc router: all providers exhausted"
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// NonRetryableError 调用方自身的错误（参数非法、执行 revert 等），
// 不做故障转移，不计入节点错误流水
type NonRetryableError struct {
	Method string
	Err    error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("rpc router: non-retryable error on %s: %v", e.Method, e.Err)
}

func (e *NonRetryableError) Unwrap() error { return e.Err }

// nonRetryablePatterns: caller-fault conditions identified by message.
// VM/execution failures follow go-ethereum's error strings; parameter
// faults follow the JSON-RPC error conventions upstream nodes emit.
var nonRetryablePatterns = []string{
	"execution reverted",
	"out of gas",
	"gas required exceeds allowance",
	"insufficient funds",
	"nonce too low",
	"invalid argument",
	"invalid params",
	"method not found",
	"method not supported",
}

// isNonRetryable 判断错误是否应立即上抛（不切换节点）
func isNonRetryable(err error) bool {
	// 调用方主动取消/超时：不是节点的问题
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range nonRetryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
