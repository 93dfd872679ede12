package domain

import "sync"

// MatcherEventType tags the variant of a MatcherTradeEvent.
type MatcherEventType int8

const (
	Trade MatcherEventType = iota
	Reject
	Reduce
	BinaryEvent
)

// MatcherTradeEvent is one link of the intrusive singly-linked chain a
// matching engine attaches to a command. Chains are produced best-price
// first, FIFO within a price level: a REJECT (if any) always comes first, a
// REDUCE is always the sole event, and TRADE events follow execution order.
//
// Fields are a superset across variants (mirrors the teacher's flat Order /
// Trade structs): only the fields relevant to EventType are meaningful.
type MatcherTradeEvent struct {
	EventType MatcherEventType

	// TRADE fields.
	MakerOrderID      int64
	MakerUID          int64
	Price             int64
	Size              int64
	BidderHoldPrice   int64
	TakerOrderCompleted bool
	MakerOrderCompleted bool

	// REJECT / REDUCE fields (Size, Price, BidderHoldPrice shared with TRADE).
	ActiveOrderCompleted bool

	// BINARY_EVENT payload (serialized report response fragment).
	BinaryPayload []byte

	NextEvent *MatcherTradeEvent
}

// eventPool backs the shared event pool described in §4.4/§9: the matching
// engines take from it, the grouping stage puts chains back. Recycling is a
// pure capacity optimization, never a correctness requirement, so a plain
// sync.Pool (rather than the arena/handle scheme sketched in spec.md §9) is
// sufficient here.
var eventPool = sync.Pool{
	New: func() any { return &MatcherTradeEvent{} },
}

// NewMatcherTradeEvent takes one event from the shared pool.
func NewMatcherTradeEvent() *MatcherTradeEvent {
	return eventPool.Get().(*MatcherTradeEvent)
}

// ReleaseEventChain zeroes every event of a chain and returns it to the
// shared pool. Called by the grouping stage: on flushes of its accumulated
// chains when pooling is enabled, and on each stale chain right away when
// pooling is disabled.
func ReleaseEventChain(head *MatcherTradeEvent) {
	for head != nil {
		next := head.NextEvent
		*head = MatcherTradeEvent{}
		eventPool.Put(head)
		head = next
	}
}

// ChainLength counts the events in a chain (used by the grouping stage to
// decide when to flush its thread-local accumulation back to the pool).
func ChainLength(head *MatcherTradeEvent) int {
	n := 0
	for e := head; e != nil; e = e.NextEvent {
		n++
	}
	return n
}

// L2MarketData is the optional L2 snapshot attached to a command when
// serviceFlags requests one (periodic heartbeat) or the command is an
// ORDER_BOOK_REQUEST.
type L2MarketData struct {
	AskPrices []int64
	AskSizes  []int64
	AskOrders []int64
	BidPrices []int64
	BidSizes  []int64
	BidOrders []int64
}

func (d *L2MarketData) AskSize() int { return len(d.AskPrices) }
func (d *L2MarketData) BidSize() int { return len(d.BidPrices) }
