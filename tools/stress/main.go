// Stress tool: floods the RPC router with eth_blockNumber traffic to
// observe admission control, rate limiting and failover under load.
package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"web3-rpc-router-go/internal/config"
	"web3-rpc-router-go/internal/ethrpc"
	"web3-rpc-router-go/internal/monitor"
	"web3-rpc-router-go/internal/router"
)

const (
	callers  = 100
	duration = 30 * time.Second
)

func main() {
	fmt.Println("🚀 RPC Router Stress Tester")
	router.InitLogger("error") // 压测时只看错误日志

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	rate := monitor.NewRateMonitor()
	mgr, err := router.New(context.Background(), cfg.Providers, router.Options{
		OnRequest: rate.Record,
	})
	if err != nil {
		panic(err)
	}
	defer mgr.Close()

	client := ethrpc.New(mgr)
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var ok, queueFull, exhausted, other atomic.Int64

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				qs := mgr.QueueStatus()
				fmt.Printf("📊 ok=%d queue_full=%d exhausted=%d other=%d | depth=%d/%d workers=%d/%d rps=%.1f\n",
					ok.Load(), queueFull.Load(), exhausted.Load(), other.Load(),
					qs.QueueLength, qs.MaxQueueSize, qs.ActiveWorkers, qs.MaxConcurrency,
					rate.PerSecond())
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				_, err := client.BlockNumber(ctx)
				switch {
				case err == nil:
					ok.Add(1)
				case errors.Is(err, router.ErrQueueFull):
					queueFull.Add(1)
					time.Sleep(50 * time.Millisecond) // 背压：退避后重试
				case isExhausted(err):
					exhausted.Add(1)
				case ctx.Err() != nil:
					return
				default:
					other.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	fmt.Printf("\n✅ Done: ok=%d queue_full=%d exhausted=%d other=%d\n",
		ok.Load(), queueFull.Load(), exhausted.Load(), other.Load())
	for _, status := range mgr.Status() {
		fmt.Printf("   %s healthy=%v daily_used=%d error_streak=%d\n",
			status.Name, status.Healthy, status.DailyUsed, status.ErrorStreak)
	}
}

func isExhausted(err error) bool {
	var exhausted *router.ExhaustedError
	return errors.As(err, &exhausted)
}
