package risk

import (
	"testing"

	"clob-engine/domain"
	"clob-engine/orderbook"
)

const (
	usd int32 = 1
	eur int32 = 2
	jpy int32 = 3
)

func newExchangeEngine() (*Engine, *domain.CoreSymbolSpecification) {
	profiles := NewProfileService()
	symbols := NewSymbolProvider()
	spec := &domain.CoreSymbolSpecification{
		SymbolID: 1, Type: domain.CurrencyExchangePair,
		BaseCurrency: eur, QuoteCurrency: usd,
		BaseScaleK: 1, QuoteScaleK: 1,
	}
	symbols.Add(spec)
	return NewEngine(profiles, symbols), spec
}

// TestExchangeHoldAndRefund exercises the full round trip spec.md's
// round-trip laws require: a BID's quote hold must be released in full on
// cancel (S4), and a fully matched trade must leave zero residual hold.
func TestExchangeHoldAndRefund(t *testing.T) {
	engine, spec := newExchangeEngine()
	engine.Profiles.GetOrCreate(1).Accounts[spec.QuoteCurrency] = 10_000_000

	place := &domain.OrderCommand{
		Command: domain.PlaceOrder, OrderID: 203, UID: 1,
		Action: domain.Bid, OrderType: domain.GTC,
		Price: 18000, ReserveBidPrice: 18500, Size: 500, Symbol: 1,
	}
	engine.PreProcessCommand(place)
	if place.ResultCode != domain.ValidForMatchingEngine {
		t.Fatalf("expected hold to succeed, got %v", place.ResultCode)
	}
	held := spec.AmountBidTakerFee(500, 18500)
	if got := engine.Profiles.Get(1).Accounts[spec.QuoteCurrency]; got != 10_000_000-held {
		t.Fatalf("expected balance reduced by hold %d, got %d", held, got)
	}

	book := orderbook.NewDirectBook(1, spec, 10)
	book.ProcessOrderCommand(place)

	cancel := &domain.OrderCommand{Command: domain.CancelOrder, OrderID: 203, UID: 1, Symbol: 1}
	book.ProcessOrderCommand(cancel)
	if cancel.ResultCode != domain.Success {
		t.Fatalf("cancel failed: %v", cancel.ResultCode)
	}
	engine.PostProcessCommand(cancel)

	if got := engine.Profiles.Get(1).Accounts[spec.QuoteCurrency]; got != 10_000_000 {
		t.Fatalf("expected full balance restored after cancel, got %d", got)
	}
}

// TestExchangeTradeSettlesBothSides covers the completed maker-side
// settlement (our Open Question resolution): both the taker and the maker
// must end up correctly credited/debited, including fee-role correction
// when the "buyer" in a BID/ASK pairing is the maker.
func TestExchangeTradeSettlesBothSides(t *testing.T) {
	engine, spec := newExchangeEngine()
	spec.TakerFee = 2
	spec.MakerFee = 1

	alice := engine.Profiles.GetOrCreate(1) // maker, ASK
	bob := engine.Profiles.GetOrCreate(2)   // taker, BID
	alice.Accounts[spec.BaseCurrency] = 1000
	bob.Accounts[spec.QuoteCurrency] = 1_000_000

	book := orderbook.NewDirectBook(1, spec, 10)

	askCmd := &domain.OrderCommand{
		Command: domain.PlaceOrder, OrderID: 1, UID: 1,
		Action: domain.Ask, OrderType: domain.GTC, Price: 100, Size: 10, Symbol: 1,
	}
	engine.PreProcessCommand(askCmd)
	book.ProcessOrderCommand(askCmd)
	engine.PostProcessCommand(askCmd)

	bidCmd := &domain.OrderCommand{
		Command: domain.PlaceOrder, OrderID: 2, UID: 2,
		Action: domain.Bid, OrderType: domain.IOC, Price: 100, ReserveBidPrice: 110, Size: 10, Symbol: 1,
	}
	engine.PreProcessCommand(bidCmd)
	if bidCmd.ResultCode != domain.ValidForMatchingEngine {
		t.Fatalf("bid hold failed: %v", bidCmd.ResultCode)
	}
	book.ProcessOrderCommand(bidCmd)
	engine.PostProcessCommand(bidCmd)

	if got := alice.Accounts[spec.BaseCurrency]; got != 1000-10 {
		t.Fatalf("expected alice's base debited by 10, got %d", got)
	}
	wantAliceQuote := spec.QuoteAmount(10, 100) - 10*spec.MakerFee
	if got := alice.Accounts[spec.QuoteCurrency]; got != wantAliceQuote {
		t.Fatalf("expected alice (maker) quote credit %d, got %d", wantAliceQuote, got)
	}
	if got := bob.Accounts[spec.BaseCurrency]; got != 10 {
		t.Fatalf("expected bob credited 10 base, got %d", got)
	}
	wantBobQuote := int64(1_000_000) - spec.QuoteAmount(10, 100) - 10*spec.TakerFee
	if got := bob.Accounts[spec.QuoteCurrency]; got != wantBobQuote {
		t.Fatalf("expected bob (taker) final quote balance %d, got %d", wantBobQuote, got)
	}
}

// TestS5FuturesConservation reproduces spec's S5 scenario: opening a
// futures position between a taker and a maker conserves open interest
// (open_long == open_short) and the sum of quote balances (minus fees paid
// out of the system) remains invariant.
func TestS5FuturesConservation(t *testing.T) {
	profiles := NewProfileService()
	symbols := NewSymbolProvider()
	spec := &domain.CoreSymbolSpecification{
		SymbolID: 7, Type: domain.FuturesContract,
		QuoteCurrency: jpy, QuoteScaleK: 1,
		MakerFee: 1, TakerFee: 2,
	}
	symbols.Add(spec)
	engine := NewEngine(profiles, symbols)

	alice := engine.Profiles.GetOrCreate(1) // taker, long
	bob := engine.Profiles.GetOrCreate(2)   // maker, short
	alice.Accounts[jpy] = 1_000_000
	bob.Accounts[jpy] = 1_000_000
	startSum := alice.Accounts[jpy] + bob.Accounts[jpy]

	book := orderbook.NewDirectBook(7, spec, 10)

	makerCmd := &domain.OrderCommand{
		Command: domain.PlaceOrder, OrderID: 1, UID: 2,
		Action: domain.Ask, OrderType: domain.GTC, Price: 10770, Size: 30, Symbol: 7,
	}
	engine.PreProcessCommand(makerCmd)
	book.ProcessOrderCommand(makerCmd)
	engine.PostProcessCommand(makerCmd)

	takerCmd := &domain.OrderCommand{
		Command: domain.PlaceOrder, OrderID: 2, UID: 1,
		Action: domain.Bid, OrderType: domain.IOC, Price: 10770, ReserveBidPrice: 10770, Size: 30, Symbol: 7,
	}
	engine.PreProcessCommand(takerCmd)
	book.ProcessOrderCommand(takerCmd)
	engine.PostProcessCommand(takerCmd)

	alicePos := alice.Positions[7]
	bobPos := bob.Positions[7]
	if alicePos.Direction != domain.PositionLong || alicePos.OpenVolume != 30 {
		t.Fatalf("expected alice long 30, got dir=%v vol=%d", alicePos.Direction, alicePos.OpenVolume)
	}
	if bobPos.Direction != domain.PositionShort || bobPos.OpenVolume != 30 {
		t.Fatalf("expected bob short 30, got dir=%v vol=%d", bobPos.Direction, bobPos.OpenVolume)
	}
	if alicePos.OpenVolume != bobPos.OpenVolume {
		t.Fatalf("open interest not conserved: long=%d short=%d", alicePos.OpenVolume, bobPos.OpenVolume)
	}

	feesPaid := 30*spec.TakerFee + 30*spec.MakerFee
	endSum := alice.Accounts[jpy] + bob.Accounts[jpy]
	if endSum != startSum-feesPaid {
		t.Fatalf("balance sum not invariant modulo fees: start=%d end=%d fees=%d", startSum, endSum, feesPaid)
	}
}

// TestFuturesMarginTradingDisabledRejectsPlaceOrder covers spec.md's
// RISK_MARGIN_TRADING_DISABLED result code: a shard with margin trading off
// must reject every futures PLACE_ORDER before it reaches the book.
func TestFuturesMarginTradingDisabledRejectsPlaceOrder(t *testing.T) {
	profiles := NewProfileService()
	symbols := NewSymbolProvider()
	spec := &domain.CoreSymbolSpecification{
		SymbolID: 7, Type: domain.FuturesContract,
		QuoteCurrency: jpy, QuoteScaleK: 1, MarginBuy: 100, MarginSell: 100,
	}
	symbols.Add(spec)
	engine := NewShardedEngine(0, 0, false, profiles, symbols)
	engine.Profiles.GetOrCreate(1).Accounts[jpy] = 1_000_000

	cmd := &domain.OrderCommand{
		Command: domain.PlaceOrder, OrderID: 1, UID: 1,
		Action: domain.Bid, OrderType: domain.GTC, Price: 10770, Size: 30, Symbol: 7,
	}
	engine.PreProcessCommand(cmd)
	if cmd.ResultCode != domain.RiskMarginTradingDisabled {
		t.Fatalf("expected RiskMarginTradingDisabled, got %v", cmd.ResultCode)
	}
}

// TestFuturesMarginCheckRejectsUndercollateralizedOrder covers spec.md's
// RISK_NSF path for futures: a position's per-lot margin requirement must be
// checked against the user's quote balance before the order reaches the book.
func TestFuturesMarginCheckRejectsUndercollateralizedOrder(t *testing.T) {
	profiles := NewProfileService()
	symbols := NewSymbolProvider()
	spec := &domain.CoreSymbolSpecification{
		SymbolID: 7, Type: domain.FuturesContract,
		QuoteCurrency: jpy, QuoteScaleK: 1, MarginBuy: 1000, MarginSell: 1000,
	}
	symbols.Add(spec)
	engine := NewShardedEngine(0, 0, true, profiles, symbols)
	engine.Profiles.GetOrCreate(1).Accounts[jpy] = 10_000 // covers 10 lots, not 30

	cmd := &domain.OrderCommand{
		Command: domain.PlaceOrder, OrderID: 1, UID: 1,
		Action: domain.Bid, OrderType: domain.GTC, Price: 10770, Size: 30, Symbol: 7,
	}
	engine.PreProcessCommand(cmd)
	if cmd.ResultCode != domain.RiskNSF {
		t.Fatalf("expected RiskNSF for a 30-lot order against 10 lots of margin, got %v", cmd.ResultCode)
	}

	cmd2 := &domain.OrderCommand{
		Command: domain.PlaceOrder, OrderID: 2, UID: 1,
		Action: domain.Bid, OrderType: domain.GTC, Price: 10770, Size: 10, Symbol: 7,
	}
	engine.PreProcessCommand(cmd2)
	if cmd2.ResultCode != domain.ValidForMatchingEngine {
		t.Fatalf("expected a fully-margined 10-lot order to pass, got %v", cmd2.ResultCode)
	}
}
