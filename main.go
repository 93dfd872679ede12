// Command clob-engine is a thin convenience wrapper around cmd/exchange:
// most users should build/run cmd/exchange directly, but `go run .` at the
// module root still does something useful out of the box.
package main

import (
	"fmt"
	"time"

	"clob-engine/config"
	"clob-engine/domain"
	"clob-engine/pipeline"
)

func main() {
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

	fmt.Println("exchange core started")

	<-core.Submit(&domain.OrderCommand{Command: domain.AddUser, UID: 1, Timestamp: time.Now().UnixNano()})
	<-core.Submit(&domain.OrderCommand{Command: domain.AddUser, UID: 2, Timestamp: time.Now().UnixNano()})
	<-core.Submit(&domain.OrderCommand{Command: domain.BalanceAdjustment, UID: 1, Symbol: 1, Size: 100_000_000, Timestamp: time.Now().UnixNano()})
	<-core.Submit(&domain.OrderCommand{Command: domain.BalanceAdjustment, UID: 2, Symbol: 2, Size: 100_000_000, Timestamp: time.Now().UnixNano()})

	sell := <-core.Submit(&domain.OrderCommand{
		Command: domain.PlaceOrder, UID: 1, Symbol: 1, OrderID: 1,
		Action: domain.Ask, OrderType: domain.GTC, Price: 50000, Size: 1, Timestamp: time.Now().UnixNano(),
	})
	fmt.Printf("submitted sell order: result=%v\n", sell.ResultCode)

	buy := <-core.Submit(&domain.OrderCommand{
		Command: domain.PlaceOrder, UID: 2, Symbol: 1, OrderID: 2,
		Action: domain.Bid, OrderType: domain.GTC, Price: 50000, ReserveBidPrice: 50000, Size: 1, Timestamp: time.Now().UnixNano(),
	})
	fmt.Printf("submitted buy order: result=%v\n", buy.ResultCode)
	if buy.MatcherEvent != nil && buy.MatcherEvent.EventType == domain.Trade {
		fmt.Printf("trade executed: price=%d size=%d maker=%d\n", buy.MatcherEvent.Price, buy.MatcherEvent.Size, buy.MatcherEvent.MakerOrderID)
	}
}
