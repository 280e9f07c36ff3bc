// Package ethrpc adapts the router manager to the provider interface
// the rest of the application expects from go-ethereum. Every call goes
// through Send; the adapter itself adds no routing logic.
package ethrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"web3-rpc-router-go/internal/router"
)

// largeScanBlocks：跨度超过该值的 getLogs 走能力路由，
// 直连支持大范围扫描的节点
const largeScanBlocks = 10_000

// Router is the facade surface the adapter depends on.
type Router interface {
	Send(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
	CapableClient(capability string) (router.Caller, bool)
}

// Client wraps a router.Manager behind the conventional RPC-provider shape.
type Client struct {
	router Router
}

func New(r Router) *Client {
	return &Client{router: r}
}

// CallContext mirrors *rpc.Client.CallContext, delegating to the router.
func (c *Client) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	raw, err := c.router.Send(ctx, method, args...)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(raw, result)
}

// Call is the context-free variant some library code still expects.
func (c *Client) Call(result interface{}, method string, args ...interface{}) error {
	return c.CallContext(context.Background(), result, method, args...)
}

// BlockNumber 当前链头高度
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var height hexutil.Uint64
	if err := c.CallContext(ctx, &height, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return uint64(height), nil
}

// ChainID returns the chain id the providers serve.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := c.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return nil, err
	}
	return (*big.Int)(&id), nil
}

// BalanceAt 账户余额（wei）
func (c *Client) BalanceAt(ctx context.Context, account string, blockNumber *big.Int) (*uint256.Int, error) {
	var hex string
	if err := c.CallContext(ctx, &hex, "eth_getBalance", account, toBlockNumArg(blockNumber)); err != nil {
		return nil, err
	}
	balance, err := uint256.FromHex(hex)
	if err != nil {
		return nil, fmt.Errorf("ethrpc: malformed balance %q: %w", hex, err)
	}
	return balance, nil
}

// FilterLogs fetches event logs. Scans spanning more than
// largeScanBlocks blocks are routed to a provider advertising the
// large-scan capability, bypassing the queue.
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	arg, err := toFilterArg(q)
	if err != nil {
		return nil, err
	}

	var logs []types.Log
	if isLargeScan(q) {
		direct, ok := c.router.CapableClient(router.CapLargeBlockScans)
		if !ok {
			return nil, errors.New("ethrpc: no provider supports large block scans")
		}
		if err := direct.CallContext(ctx, &logs, "eth_getLogs", arg); err != nil {
			return nil, err
		}
		return logs, nil
	}

	if err := c.CallContext(ctx, &logs, "eth_getLogs", arg); err != nil {
		return nil, err
	}
	return logs, nil
}

// ENSClient hands back a direct client for name-resolution calls.
func (c *Client) ENSClient() (router.Caller, bool) {
	return c.router.CapableClient(router.CapENS)
}

func isLargeScan(q ethereum.FilterQuery) bool {
	if q.FromBlock == nil || q.ToBlock == nil {
		return false
	}
	span := new(big.Int).Sub(q.ToBlock, q.FromBlock)
	return span.Cmp(big.NewInt(largeScanBlocks)) > 0
}

func toBlockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	return hexutil.EncodeBig(number)
}

func toFilterArg(q ethereum.FilterQuery) (interface{}, error) {
	arg := map[string]interface{}{
		"address": q.Addresses,
		"topics":  q.Topics,
	}
	if q.BlockHash != nil {
		if q.FromBlock != nil || q.ToBlock != nil {
			return nil, errors.New("ethrpc: cannot specify both BlockHash and FromBlock/ToBlock")
		}
		arg["blockHash"] = *q.BlockHash
		return arg, nil
	}
	if q.FromBlock == nil {
		arg["fromBlock"] = "0x0"
	} else {
		arg["fromBlock"] = toBlockNumArg(q.FromBlock)
	}
	arg["toBlock"] = toBlockNumArg(q.ToBlock)
	return arg, nil
}
