package domain

// CoreSymbolSpecification is created once via a BatchAddSymbolsCommand and
// never mutated after insertion; both risk and matching engines hold
// read-only references to the same instance.
type CoreSymbolSpecification struct {
	SymbolID int32
	Type     SymbolType

	BaseCurrency  int32
	QuoteCurrency int32

	// BaseScaleK / QuoteScaleK are integer lot-size multipliers: a resting
	// quantity of 1 unit represents BaseScaleK base-currency minor units,
	// and price is quoted in units of QuoteScaleK quote-currency minor units.
	BaseScaleK  int64
	QuoteScaleK int64

	MakerFee int64
	TakerFee int64

	// MarginBuy / MarginSell are the per-lot quote-currency margin a futures
	// position requires on the long/short side respectively. Unused for
	// CurrencyExchangePair symbols.
	MarginBuy  int64
	MarginSell int64
}

// AmountAsk returns the base-currency amount reserved/settled for an ASK of
// `size` lots.
func (s *CoreSymbolSpecification) AmountAsk(size int64) int64 {
	return size * s.BaseScaleK
}

// AmountBidTakerFee returns the quote-currency amount held for a non-budget
// BID of `size` lots at `reservePrice`, including the taker fee.
func (s *CoreSymbolSpecification) AmountBidTakerFee(size, reservePrice int64) int64 {
	return size*reservePrice*s.QuoteScaleK + size*s.TakerFee
}

// AmountBidTakerFeeForBudget returns the quote-currency amount held for a
// FOK_BUDGET BID of `size` lots at `price`, including the taker fee.
func (s *CoreSymbolSpecification) AmountBidTakerFeeForBudget(size, price int64) int64 {
	return size*price*s.QuoteScaleK + size*s.TakerFee
}

// QuoteAmount returns the quote-currency value of `size` lots trading at
// `price`, without fees (used to settle the base/quote leg of a trade).
func (s *CoreSymbolSpecification) QuoteAmount(size, price int64) int64 {
	return size * price * s.QuoteScaleK
}
