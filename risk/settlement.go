package risk

import "clob-engine/domain"

// settleExchangeEvents walks cmd's event chain and applies each event to
// the exchange-pair balances it affects. This is the completion of
// RiskEngine.cpp's HandleMatcherEventsExchangeBuy/Sell, which the original
// marks "Simplified implementation... TODO: Implement full logic with maker
// handling" — here both the taker and every maker referenced by a TRADE
// event are settled (SPEC_FULL.md Open Question resolution). Every mutation
// is gated on owns(uid): this shard only applies the slice of a fill that
// belongs to a uid it owns, so the taker's shard and a maker's shard (which
// may differ) each contribute their own side independently.
func (e *Engine) settleExchangeEvents(cmd *domain.OrderCommand, spec *domain.CoreSymbolSpecification) {
	for ev := cmd.MatcherEvent; ev != nil; ev = ev.NextEvent {
		switch ev.EventType {
		case domain.Trade:
			e.settleExchangeTrade(cmd, ev, spec)
		case domain.Reject, domain.Reduce:
			if e.owns(cmd.UID) {
				e.releaseExchangeHold(cmd, ev, spec)
			}
		}
	}
}

// settleExchangeTrade credits/debits both sides of one fill. The taker's
// role (buyer/seller) is cmd.Action; the maker is always the other role.
func (e *Engine) settleExchangeTrade(cmd *domain.OrderCommand, ev *domain.MatcherTradeEvent, spec *domain.CoreSymbolSpecification) {
	quoteAmt := spec.QuoteAmount(ev.Size, ev.Price)
	baseAmt := spec.AmountAsk(ev.Size)
	takerFee := ev.Size * spec.TakerFee
	makerFee := ev.Size * spec.MakerFee

	takerIsBuyer := cmd.Action == domain.Bid
	buyerUID, sellerUID := cmd.UID, ev.MakerUID
	buyerFee, sellerFee := takerFee, makerFee
	if !takerIsBuyer {
		buyerUID, sellerUID = ev.MakerUID, cmd.UID
		buyerFee, sellerFee = makerFee, takerFee
	}

	// Seller's base hold (escrowed in full at PLACE_ORDER time) is consumed
	// by this fill; only the quote proceeds need crediting here.
	if e.owns(sellerUID) {
		if seller := e.Profiles.Get(sellerUID); seller != nil {
			seller.Accounts[spec.QuoteCurrency] += quoteAmt - sellerFee
		}
	}

	// Buyer receives the base leg outright, and refunds the portion of its
	// conservative at-placement quote escrow (reserved at BidderHoldPrice
	// assuming taker-fee, worst case) that this fill didn't actually need:
	// price improvement plus the maker/taker fee-role correction when the
	// buyer turned out to be the maker.
	if e.owns(buyerUID) {
		if buyer := e.Profiles.Get(buyerUID); buyer != nil {
			buyer.Accounts[spec.BaseCurrency] += baseAmt
			escrowedForFill := ev.Size*ev.BidderHoldPrice*spec.QuoteScaleK + takerFee
			actualCost := quoteAmt + buyerFee
			if refund := escrowedForFill - actualCost; refund != 0 {
				buyer.Accounts[spec.QuoteCurrency] += refund
			}
		}
	}
}

// releaseExchangeHold returns the unexecuted portion of a PLACE_ORDER's
// escrow to its owner on REJECT (IOC/FOK residual) or REDUCE
// (CANCEL_ORDER/REDUCE_ORDER), per spec.md S4. Only ever touches cmd.UID,
// so the caller gates this on owns(cmd.UID).
func (e *Engine) releaseExchangeHold(cmd *domain.OrderCommand, ev *domain.MatcherTradeEvent, spec *domain.CoreSymbolSpecification) {
	owner := e.Profiles.Get(cmd.UID)
	if owner == nil {
		return
	}
	if cmd.Action == domain.Ask {
		owner.Accounts[spec.BaseCurrency] += spec.AmountAsk(ev.Size)
		return
	}
	owner.Accounts[spec.QuoteCurrency] += ev.Size*ev.BidderHoldPrice*spec.QuoteScaleK + ev.Size*spec.TakerFee
}
