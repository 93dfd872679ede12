// Command benchmark drives the synthetic overlapping buy/sell workload
// directly against a pipeline.Core and prints a throughput summary plus the
// resulting order-book depth, standing in for the teacher's single-symbol
// MatchingEngine throughput harness.
package main

import (
	"fmt"
	"time"

	"clob-engine/config"
	"clob-engine/domain"
	"clob-engine/pipeline"
	"clob-engine/workload"
)

func main() {
	fmt.Println("=== matching engine throughput benchmark ===")

	cfg := config.Default()
	core, err := pipeline.New(cfg, nil)
	if err != nil {
		panic(err)
	}
	core.AddSymbol(&domain.CoreSymbolSpecification{
		SymbolID: 1, Type: domain.CurrencyExchangePair,
		BaseCurrency: 1, QuoteCurrency: 2, BaseScaleK: 1, QuoteScaleK: 1,
	})
	core.Start()
	defer core.Stop()

	stats := workload.Run(core, 1, 5*time.Second)

	fmt.Println("\n=== results ===")
	fmt.Printf("duration:      %v\n", stats.Duration)
	fmt.Printf("orders:        %d\n", stats.Orders)
	fmt.Printf("trades:        %d\n", stats.Trades)
	fmt.Printf("order rate:    %.0f/s\n", stats.OrdersPerS)

	book := core.Book(1)
	if book == nil {
		return
	}
	snap := book.L2MarketDataSnapshot(5)
	fmt.Println("\n=== order book depth (top 5) ===")
	for i := range snap.AskPrices {
		fmt.Printf("  ask %d: price %d size %d\n", i+1, snap.AskPrices[i], snap.AskSizes[i])
	}
	for i := range snap.BidPrices {
		fmt.Printf("  bid %d: price %d size %d\n", i+1, snap.BidPrices[i], snap.BidSizes[i])
	}
}
