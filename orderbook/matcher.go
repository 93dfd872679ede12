// Package orderbook implements the two matching engine variants spec.md
// §4.5/§4.6 describes behind a common Matcher contract: a naive reference
// implementation (price-level map of FIFO queues, §4.5) used as a
// conformance oracle, and a direct/ART-backed implementation (§4.6) that is
// the production hot path. Both share the price-time priority, FOK_BUDGET,
// and event-ordering semantics in §4.5; they differ only in the data
// structure backing price->level and orderId->order lookups.
package orderbook

import (
	"encoding/binary"
	"hash"

	"clob-engine/domain"
)

// Matcher is the tagged-variant contract spec.md §9 calls for: "a small
// trait/interface with three methods" rather than a class hierarchy.
type Matcher interface {
	// ProcessOrderCommand applies cmd to the book, setting cmd.ResultCode and
	// attaching cmd.MatcherEvent (and cmd.MarketData, when requested).
	ProcessOrderCommand(cmd *domain.OrderCommand)

	// L2MarketDataSnapshot returns up to `depth` levels per side.
	L2MarketDataSnapshot(depth int) *domain.L2MarketData

	// StateHash returns a deterministic fingerprint of the book's resting
	// orders, used to verify replay equivalence (spec.md §8).
	StateHash() uint64
}

// eventChain accumulates a command's matcher-event chain. TRADE events are
// tail-appended so they come out in execution order; a REJECT always comes
// first: prependReject head-inserts it for a partially filled IOC order whose
// unexecuted remainder is rejected after some fills already matched, and
// appendReject adds it to an empty chain (a FOK_BUDGET order that cannot fill
// is rejected before anything matches).
type eventChain struct {
	head, tail *domain.MatcherTradeEvent
}

func (c *eventChain) append(ev *domain.MatcherTradeEvent) {
	ev.NextEvent = nil
	if c.tail != nil {
		c.tail.NextEvent = ev
	} else {
		c.head = ev
	}
	c.tail = ev
}

// appendTrade draws a pooled event rather than allocating, mirroring the
// teacher's sync.Pool-backed trade reporting (matching/engine.go).
func (c *eventChain) appendTrade(makerOrderID, makerUID, price, size, bidderHoldPrice int64, takerCompleted, makerCompleted bool) {
	ev := domain.NewMatcherTradeEvent()
	ev.EventType = domain.Trade
	ev.MakerOrderID = makerOrderID
	ev.MakerUID = makerUID
	ev.Price = price
	ev.Size = size
	ev.BidderHoldPrice = bidderHoldPrice
	ev.TakerOrderCompleted = takerCompleted
	ev.MakerOrderCompleted = makerCompleted
	c.append(ev)
}

// appendReject is for the case where nothing has matched yet (a pure
// FOK_BUDGET reject, chain empty): head-insert and tail-append coincide, so
// the plain append is used there directly.
func (c *eventChain) appendReject(size, price, bidderHoldPrice int64) {
	ev := domain.NewMatcherTradeEvent()
	ev.EventType = domain.Reject
	ev.Size = size
	ev.Price = price
	ev.BidderHoldPrice = bidderHoldPrice
	ev.ActiveOrderCompleted = true
	c.append(ev)
}

// prependReject inserts a REJECT at the head of the chain, ahead of any
// TRADE events match() already appended. Used for a partially filled IOC
// order: the fills already happened and are in the chain by the time the
// unexecuted remainder is rejected, but spec.md requires the REJECT to
// precede them regardless.
func (c *eventChain) prependReject(size, price, bidderHoldPrice int64) {
	ev := domain.NewMatcherTradeEvent()
	ev.EventType = domain.Reject
	ev.Size = size
	ev.Price = price
	ev.BidderHoldPrice = bidderHoldPrice
	ev.ActiveOrderCompleted = true
	ev.NextEvent = c.head
	c.head = ev
	if c.tail == nil {
		c.tail = ev
	}
}

func (c *eventChain) appendReduce(size, price, bidderHoldPrice int64) {
	ev := domain.NewMatcherTradeEvent()
	ev.EventType = domain.Reduce
	ev.Size = size
	ev.Price = price
	ev.BidderHoldPrice = bidderHoldPrice
	ev.ActiveOrderCompleted = true
	c.append(ev)
}

// writeInt64 feeds an int64 into a running hash in a fixed byte order, used
// by both NaiveBook.StateHash and DirectBook.StateHash so the two
// implementations produce identical fingerprints for identical book state.
func writeInt64(h hash.Hash, v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	h.Write(buf[:])
}
