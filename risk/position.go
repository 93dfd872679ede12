package risk

import "clob-engine/domain"

// settleFuturesEvents applies TRADE/REJECT/REDUCE events to futures
// positions, grounded on RiskEngine.cpp's HandleMatcherEventMargin: fees are
// charged in quote currency proportional to the size that actually opened
// new exposure (UpdatePositionForMarginTrade's openedSize), and pending
// reservations taken at PLACE_ORDER time are released on any unexecuted
// residual. Every mutation is gated on owns(uid), so a taker and its maker
// on different shards each update only their own side.
func (e *Engine) settleFuturesEvents(cmd *domain.OrderCommand, spec *domain.CoreSymbolSpecification) {
	for ev := cmd.MatcherEvent; ev != nil; ev = ev.NextEvent {
		switch ev.EventType {
		case domain.Trade:
			e.settleFuturesTrade(cmd, ev, spec)
		case domain.Reject, domain.Reduce:
			if e.owns(cmd.UID) {
				e.releaseFuturesPending(cmd, ev)
			}
		}
	}
}

func (e *Engine) settleFuturesTrade(cmd *domain.OrderCommand, ev *domain.MatcherTradeEvent, spec *domain.CoreSymbolSpecification) {
	if e.owns(cmd.UID) {
		if taker := e.Profiles.Get(cmd.UID); taker != nil {
			takerPos := taker.PositionOrCreate(cmd.Symbol)
			takerOpened := takerPos.UpdatePositionForMarginTrade(cmd.Action, ev.Size, ev.Price)
			if cmd.Action == domain.Bid {
				takerPos.PendingBuySize -= ev.Size
			} else {
				takerPos.PendingSellSize -= ev.Size
			}
			taker.Accounts[spec.QuoteCurrency] -= takerOpened * spec.TakerFee
		}
	}

	if e.owns(ev.MakerUID) {
		if maker := e.Profiles.Get(ev.MakerUID); maker != nil {
			makerPos := maker.PositionOrCreate(cmd.Symbol)
			makerOpened := makerPos.UpdatePositionForMarginTrade(cmd.Action.Opposite(), ev.Size, ev.Price)
			if cmd.Action == domain.Bid {
				makerPos.PendingSellSize -= ev.Size
			} else {
				makerPos.PendingBuySize -= ev.Size
			}
			maker.Accounts[spec.QuoteCurrency] -= makerOpened * spec.MakerFee
		}
	}
}

// additionalMarginFor returns the extra margin this order's size alone would
// require, at the spec's per-lot rate for its side.
func (e *Engine) additionalMarginFor(cmd *domain.OrderCommand, spec *domain.CoreSymbolSpecification) int64 {
	if cmd.Action == domain.Bid {
		return cmd.Size * spec.MarginBuy
	}
	return cmd.Size * spec.MarginSell
}

// availableMargin estimates the quote-currency margin profile has free to
// back a new order on cmd's side: its balance, plus the existing position's
// unrealized P&L marked at the last-price cache (a long position marks at
// the best bid it could actually be closed at; a short marks at the best
// ask), minus the margin already held against that existing position. An
// empty or opposite-direction position needs no held margin released here —
// UpdatePositionForMarginTrade only charges margin for the side a position is
// actually open on.
func (e *Engine) availableMargin(cmd *domain.OrderCommand, profile *domain.UserProfile, pos *domain.SymbolPositionRecord, spec *domain.CoreSymbolSpecification) int64 {
	balance := profile.Accounts[spec.QuoteCurrency]
	if pos.Direction == domain.PositionEmpty || pos.OpenVolume == 0 {
		return balance
	}

	avgOpenPrice := pos.OpenPriceSum / pos.OpenVolume
	last := e.lastPriceCache[cmd.Symbol]

	if pos.Direction == domain.PositionLong {
		markPrice := avgOpenPrice
		if last != nil && last.BidPrice > 0 {
			markPrice = last.BidPrice
		}
		unrealized := pos.OpenVolume * (markPrice - avgOpenPrice) * spec.QuoteScaleK
		return balance + unrealized - pos.OpenVolume*spec.MarginBuy
	}

	markPrice := avgOpenPrice
	if last != nil && last.AskPrice > 0 && last.AskPrice < maxMarkPrice {
		markPrice = last.AskPrice
	}
	unrealized := pos.OpenVolume * (avgOpenPrice - markPrice) * spec.QuoteScaleK
	return balance + unrealized - pos.OpenVolume*spec.MarginSell
}

func (e *Engine) releaseFuturesPending(cmd *domain.OrderCommand, ev *domain.MatcherTradeEvent) {
	owner := e.Profiles.Get(cmd.UID)
	if owner == nil {
		return
	}
	pos := owner.PositionOrCreate(cmd.Symbol)
	pos.PendingRelease(cmd.Action, ev.Size)
}
