package risk

import "clob-engine/domain"

// lastPriceRecord is one symbol's cached top-of-book, grounded on
// RiskEngine.cpp's lastPriceCache_: updated only while margin trading is
// enabled, and only from a command that already carries an L2 snapshot
// (cmd.MarketData), since maintaining it otherwise would cost every command a
// market-data request it doesn't need.
type lastPriceRecord struct {
	AskPrice int64 // math.MaxInt64 when the ask side is empty
	BidPrice int64 // 0 when the bid side is empty
}

// updateLastPriceCache refreshes symbol's cached top-of-book from cmd's L2
// snapshot, mirroring RiskEngine.cpp's "for margin-mode symbols... record the
// best bid/ask" step that runs right after matching.
func (e *Engine) updateLastPriceCache(cmd *domain.OrderCommand) {
	if !e.MarginTradingEnabled || cmd.MarketData == nil {
		return
	}
	rec, ok := e.lastPriceCache[cmd.Symbol]
	if !ok {
		rec = &lastPriceRecord{}
		e.lastPriceCache[cmd.Symbol] = rec
	}
	if n := cmd.MarketData.AskSize(); n > 0 {
		rec.AskPrice = cmd.MarketData.AskPrices[0]
	} else {
		rec.AskPrice = maxMarkPrice
	}
	if n := cmd.MarketData.BidSize(); n > 0 {
		rec.BidPrice = cmd.MarketData.BidPrices[0]
	} else {
		rec.BidPrice = 0
	}
}

// maxMarkPrice stands in for "no resting asks" so a long position's
// mark-to-market never spuriously looks cheap to close.
const maxMarkPrice = int64(1) << 62
