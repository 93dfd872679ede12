package domain

// OrderCommand is the fixed-size event stored in each ring buffer slot.
// Commands are reused in place across slots (the ring buffer never
// allocates a new OrderCommand after startup); pipeline.Core.Submit
// overwrites a slot's whole command each time it is claimed.
type OrderCommand struct {
	Command OrderCommandType

	OrderID int64
	Symbol  int32
	UID     int64

	Action    OrderAction
	OrderType OrderType

	Price           int64
	ReserveBidPrice int64
	Size            int64

	Timestamp    int64
	UserCookie   int64
	ServiceFlags int32
	EventsGroup  int64

	ResultCode ResultCode

	MatcherEvent *MatcherTradeEvent
	MarketData   *L2MarketData

	// BinaryWords carries the 5 int64 words of a binary-batch frame;
	// BinaryLast marks the terminating frame (symbol == -1 doubles as the
	// sentinel per spec.md, BinaryLast is kept for readability).
	BinaryWords [5]int64
	BinaryLast  bool
}

// Reset clears the pointer fields and the binary-frame fields to their zero
// state; the other fields keep their values. No stage of the pipeline calls it.
func (c *OrderCommand) Reset() {
	c.MatcherEvent = nil
	c.MarketData = nil
	c.BinaryWords = [5]int64{}
	c.BinaryLast = false
}
