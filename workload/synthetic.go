// Package workload drives a synthetic overlapping buy/sell order stream
// against a pipeline.Core, the shared generator behind cmd/exchange's
// "bench" subcommand and the standalone cmd/benchmark and cmd/profile
// tools. Grounded on the teacher's cmd/benchmark/main.go worker-goroutine
// shape (NumCPU-2 producers, one ticker reporting throughput once a
// second), adapted to submit domain.OrderCommand values through
// pipeline.Core.Submit instead of calling a single MatchingEngine directly.
package workload

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"clob-engine/domain"
	"clob-engine/idgen"
	"clob-engine/pipeline"
)

// Stats summarizes one Run.
type Stats struct {
	Duration   time.Duration
	Orders     int64
	Trades     int64
	OrdersPerS float64
}

// Run seeds numWorkers accounts on symbol, then drives overlapping ASK/BID
// PLACE_ORDER commands from NumCPU-2 worker goroutines for duration,
// printing a once-a-second throughput line, and returns the final tally.
func Run(core *pipeline.Core, symbol int32, duration time.Duration) Stats {
	numWorkers := runtime.NumCPU() - 2
	if numWorkers < 1 {
		numWorkers = 1
	}

	var orderCount, tradeCount atomic.Int64
	uids := make([]int64, numWorkers)
	for i := range uids {
		uid := int64(i + 1)
		uids[i] = uid
		<-core.Submit(&domain.OrderCommand{Command: domain.AddUser, UID: uid, Timestamp: time.Now().UnixNano()})
		<-core.Submit(&domain.OrderCommand{Command: domain.BalanceAdjustment, UID: uid, Symbol: 1, Size: 1 << 40, Timestamp: time.Now().UnixNano()})
		<-core.Submit(&domain.OrderCommand{Command: domain.BalanceAdjustment, UID: uid, Symbol: 2, Size: 1 << 40, Timestamp: time.Now().UnixNano()})
	}

	stopCh := make(chan struct{})
	start := time.Now()
	for _, uid := range uids {
		go func(uid int64) {
			rng := rand.New(rand.NewSource(uid + 1))
			ids := idgen.New()
			var orderID int64
			for {
				select {
				case <-stopCh:
					return
				default:
				}
				orderID = ids.Next()
				action := domain.Ask
				if orderID%2 == 0 {
					action = domain.Bid
				}
				price := int64(50000 + rng.Intn(200))
				reserve := price
				if action == domain.Bid {
					reserve = price + int64(rng.Intn(5))
				}
				future := core.Submit(&domain.OrderCommand{
					Command: domain.PlaceOrder, UID: uid, Symbol: symbol,
					OrderID: uid<<32 | orderID, Action: action, OrderType: domain.GTC,
					Price: price, ReserveBidPrice: reserve, Size: 1, Timestamp: time.Now().UnixNano(),
				})
				res := <-future
				orderCount.Add(1)
				if res.MatcherEvent != nil && res.MatcherEvent.EventType == domain.Trade {
					tradeCount.Add(1)
				}
			}
		}(uid)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadlineCh := time.After(duration)
loop:
	for {
		select {
		case <-ticker.C:
			elapsed := time.Since(start).Seconds()
			orders := orderCount.Load()
			fmt.Printf("[%.0fs] orders: %d (%.0f/s) trades: %d\n", elapsed, orders, float64(orders)/elapsed, tradeCount.Load())
		case <-deadlineCh:
			break loop
		}
	}
	close(stopCh)
	time.Sleep(200 * time.Millisecond)

	elapsed := time.Since(start)
	return Stats{
		Duration:   elapsed,
		Orders:     orderCount.Load(),
		Trades:     tradeCount.Load(),
		OrdersPerS: float64(orderCount.Load()) / elapsed.Seconds(),
	}
}
