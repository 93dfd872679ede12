package orderbook

import (
	"hash/fnv"

	"clob-engine/art"
	"clob-engine/domain"
)

// DirectBook is the production matching engine (spec.md §4.6): price
// buckets are a doubly-linked list ordered best-price-first so the matching
// loop steps level-to-level in O(1), while an ART keyed on price locates the
// bucket to splice a new level into in O(log256 N), and a second ART keyed
// on orderId gives O(log256 N) cancel/reduce/move lookup without touching
// the book's price side at all.
type DirectBook struct {
	symbol int32
	spec   *domain.CoreSymbolSpecification

	askHead *domain.PriceBucket // best ask first (ascending)
	bidHead *domain.PriceBucket // best bid first (descending)

	askBuckets *art.Tree // price -> *PriceBucket
	bidBuckets *art.Tree // price -> *PriceBucket
	orders     *art.Tree // orderId -> *DirectOrder

	l2Depth int
}

var _ Matcher = (*DirectBook)(nil)

// NewDirectBook creates an empty direct book for symbol.
func NewDirectBook(symbol int32, spec *domain.CoreSymbolSpecification, l2Depth int) *DirectBook {
	return &DirectBook{
		symbol:     symbol,
		spec:       spec,
		askBuckets: art.New(),
		bidBuckets: art.New(),
		orders:     art.New(),
		l2Depth:    l2Depth,
	}
}

func (b *DirectBook) bucketsFor(action domain.OrderAction) *art.Tree {
	if action == domain.Bid {
		return b.bidBuckets
	}
	return b.askBuckets
}

func (b *DirectBook) head(action domain.OrderAction) *domain.PriceBucket {
	if action == domain.Bid {
		return b.bidHead
	}
	return b.askHead
}

func (b *DirectBook) setHead(action domain.OrderAction, h *domain.PriceBucket) {
	if action == domain.Bid {
		b.bidHead = h
	} else {
		b.askHead = h
	}
}

// ProcessOrderCommand implements the Matcher contract; see matcher.go.
func (b *DirectBook) ProcessOrderCommand(cmd *domain.OrderCommand) {
	switch cmd.Command {
	case domain.PlaceOrder:
		b.placeOrder(cmd)
	case domain.CancelOrder:
		b.cancelOrder(cmd)
	case domain.MoveOrder:
		b.moveOrder(cmd)
	case domain.ReduceOrder:
		b.reduceOrder(cmd)
	case domain.OrderBookRequest:
		cmd.MarketData = b.L2MarketDataSnapshot(int(cmd.Size))
		cmd.ResultCode = domain.Success
	default:
		cmd.ResultCode = domain.Success
	}

	if cmd.ServiceFlags == 1 && cmd.MarketData == nil {
		cmd.MarketData = b.L2MarketDataSnapshot(b.l2Depth)
	}
}

// findOrCreateBucket returns the bucket for price on the given side,
// splicing a new one into the best-price-first linked list via
// GetHigherValue/GetLowerValue if none exists yet.
func (b *DirectBook) findOrCreateBucket(action domain.OrderAction, price int64) *domain.PriceBucket {
	tree := b.bucketsFor(action)
	if v, ok := tree.Get(price); ok {
		return v.(*domain.PriceBucket)
	}

	bucket := &domain.PriceBucket{Price: price}
	tree.Put(price, bucket)

	// Asks are ordered ascending (lowest price best); bids descending
	// (highest price best). GetHigherValue/GetLowerValue on the price ART
	// directly gives us the neighbor to splice next to.
	var neighborPrice int64
	var neighborIsNext bool
	var found bool
	if action == domain.Ask {
		if v, ok := tree.GetHigherValue(price); ok {
			neighborPrice = v.(*domain.PriceBucket).Price
			neighborIsNext = true
			found = true
		} else if v, ok := tree.GetLowerValue(price); ok {
			neighborPrice = v.(*domain.PriceBucket).Price
			neighborIsNext = false
			found = true
		}
	} else {
		if v, ok := tree.GetLowerValue(price); ok {
			neighborPrice = v.(*domain.PriceBucket).Price
			neighborIsNext = true
			found = true
		} else if v, ok := tree.GetHigherValue(price); ok {
			neighborPrice = v.(*domain.PriceBucket).Price
			neighborIsNext = false
			found = true
		}
	}

	if !found {
		b.setHead(action, bucket)
		return bucket
	}
	neighborVal, _ := tree.Get(neighborPrice)
	neighbor := neighborVal.(*domain.PriceBucket)
	if neighborIsNext {
		bucket.Next = neighbor
		bucket.Prev = neighbor.Prev
		if neighbor.Prev != nil {
			neighbor.Prev.Next = bucket
		} else {
			b.setHead(action, bucket)
		}
		neighbor.Prev = bucket
	} else {
		bucket.Prev = neighbor
		bucket.Next = neighbor.Next
		if neighbor.Next != nil {
			neighbor.Next.Prev = bucket
		}
		neighbor.Next = bucket
	}
	return bucket
}

func (b *DirectBook) unlinkBucket(action domain.OrderAction, bucket *domain.PriceBucket) {
	if bucket.Prev != nil {
		bucket.Prev.Next = bucket.Next
	} else {
		b.setHead(action, bucket.Next)
	}
	if bucket.Next != nil {
		bucket.Next.Prev = bucket.Prev
	}
	b.bucketsFor(action).Remove(bucket.Price)
}

func (b *DirectBook) placeOrder(cmd *domain.OrderCommand) {
	if _, exists := b.orders.Get(cmd.OrderID); exists {
		cmd.ResultCode = domain.MatchingDuplicateOrderID
		return
	}
	if cmd.Action == domain.Bid && cmd.ReserveBidPrice < cmd.Price {
		cmd.ResultCode = domain.RiskInvalidReserveBidPrice
		return
	}

	chain := &eventChain{}
	remaining := b.match(cmd.Price, cmd.Size, cmd.Action, cmd.OrderType, cmd.ReserveBidPrice, chain)

	switch cmd.OrderType {
	case domain.GTC:
		if remaining > 0 {
			b.insertResting(cmd.OrderID, cmd.UID, cmd.Action, cmd.Price, cmd.ReserveBidPrice, remaining, cmd.Timestamp)
		}
	case domain.IOC:
		if remaining > 0 {
			chain.prependReject(remaining, cmd.Price, cmd.ReserveBidPrice)
		}
	}

	cmd.MatcherEvent = chain.head
	cmd.ResultCode = domain.Success
}

func (b *DirectBook) match(limitPrice, size int64, action domain.OrderAction, orderType domain.OrderType, reserveBidPrice int64, chain *eventChain) int64 {
	oppAction := action.Opposite()

	if orderType == domain.FOKBudget {
		if !b.fokBudgetAchievable(oppAction, limitPrice, size, action, reserveBidPrice) {
			chain.appendReject(size, limitPrice, reserveBidPrice)
			return 0
		}
	}

	remaining := size
	bucket := b.head(oppAction)
	for remaining > 0 && bucket != nil {
		if action == domain.Bid && bucket.Price > limitPrice {
			break
		}
		if action == domain.Ask && bucket.Price < limitPrice {
			break
		}

		next := bucket.Next
		for remaining > 0 && bucket.Head != nil {
			maker := bucket.Head
			tradeSize := min64(remaining, maker.Remaining())

			maker.Filled += tradeSize
			remaining -= tradeSize
			bucket.Volume -= tradeSize

			makerCompleted := maker.IsCompleted()
			chain.appendTrade(maker.OrderID, maker.UID, maker.Price, tradeSize, reserveBidPrice, remaining == 0, makerCompleted)

			if makerCompleted {
				bucket.Unlink(maker)
				b.orders.Remove(maker.OrderID)
			}
		}
		if bucket.IsEmpty() {
			b.unlinkBucket(oppAction, bucket)
		}
		bucket = next
	}
	return remaining
}

func (b *DirectBook) fokBudgetAchievable(oppAction domain.OrderAction, limitPrice, size int64, action domain.OrderAction, budget int64) bool {
	remaining := size
	var total int64
	for bucket := b.head(oppAction); bucket != nil && remaining > 0; bucket = bucket.Next {
		if action == domain.Bid && bucket.Price > limitPrice {
			break
		}
		if action == domain.Ask && bucket.Price < limitPrice {
			break
		}
		take := min64(remaining, bucket.Volume)
		total += take * bucket.Price
		remaining -= take
	}
	if remaining > 0 {
		return false
	}
	if action == domain.Bid {
		return total <= budget
	}
	return total >= budget
}

func (b *DirectBook) insertResting(orderID, uid int64, action domain.OrderAction, price, reserveBidPrice, size, timestamp int64) *domain.DirectOrder {
	order := &domain.DirectOrder{
		Order: domain.Order{
			OrderID:         orderID,
			UID:             uid,
			Action:          action,
			Price:           price,
			ReserveBidPrice: reserveBidPrice,
			Size:            size,
			Timestamp:       timestamp,
		},
	}
	bucket := b.findOrCreateBucket(action, price)
	bucket.PushBack(order)
	b.orders.Put(orderID, order)
	return order
}

func (b *DirectBook) cancelOrder(cmd *domain.OrderCommand) {
	v, ok := b.orders.Get(cmd.OrderID)
	if !ok {
		cmd.ResultCode = domain.MatchingUnknownOrderID
		return
	}
	order := v.(*domain.DirectOrder)
	if order.UID != cmd.UID {
		cmd.ResultCode = domain.MatchingUnknownOrderID
		return
	}
	cmd.Action = order.Action
	bucket := order.Bucket
	remaining := order.Remaining()
	bucket.Unlink(order)
	b.orders.Remove(cmd.OrderID)
	if bucket.IsEmpty() {
		b.unlinkBucket(order.Action, bucket)
	}

	chain := &eventChain{}
	chain.appendReduce(remaining, order.Price, order.ReserveBidPrice)
	cmd.MatcherEvent = chain.head
	cmd.ResultCode = domain.Success
}

func (b *DirectBook) reduceOrder(cmd *domain.OrderCommand) {
	if cmd.Size <= 0 {
		cmd.ResultCode = domain.MatchingReduceFailedWrongSize
		return
	}
	v, ok := b.orders.Get(cmd.OrderID)
	if !ok {
		cmd.ResultCode = domain.MatchingUnknownOrderID
		return
	}
	order := v.(*domain.DirectOrder)
	if order.UID != cmd.UID {
		cmd.ResultCode = domain.MatchingUnknownOrderID
		return
	}
	cmd.Action = order.Action

	reduceBy := min64(cmd.Size, order.Remaining())
	order.Size -= reduceBy
	bucket := order.Bucket
	bucket.Volume -= reduceBy

	chain := &eventChain{}
	chain.appendReduce(reduceBy, order.Price, order.ReserveBidPrice)
	cmd.MatcherEvent = chain.head
	cmd.ResultCode = domain.Success

	if order.Remaining() == 0 {
		bucket.Unlink(order)
		b.orders.Remove(cmd.OrderID)
		if bucket.IsEmpty() {
			b.unlinkBucket(order.Action, bucket)
		}
	}
}

func (b *DirectBook) moveOrder(cmd *domain.OrderCommand) {
	v, ok := b.orders.Get(cmd.OrderID)
	if !ok {
		cmd.ResultCode = domain.MatchingUnknownOrderID
		return
	}
	order := v.(*domain.DirectOrder)
	if order.UID != cmd.UID {
		cmd.ResultCode = domain.MatchingUnknownOrderID
		return
	}
	cmd.Action = order.Action
	if order.Action == domain.Bid && cmd.Price > order.ReserveBidPrice {
		cmd.ResultCode = domain.MatchingMoveFailedPriceOverRiskLimit
		return
	}
	if cmd.Price == order.Price {
		cmd.ResultCode = domain.Success
		return
	}

	bucket := order.Bucket
	remaining := order.Remaining()
	bucket.Unlink(order)
	b.orders.Remove(cmd.OrderID)
	if bucket.IsEmpty() {
		b.unlinkBucket(order.Action, bucket)
	}

	chain := &eventChain{}
	newRemaining := b.match(cmd.Price, remaining, order.Action, domain.GTC, order.ReserveBidPrice, chain)
	if newRemaining > 0 {
		b.insertResting(order.OrderID, order.UID, order.Action, cmd.Price, order.ReserveBidPrice, newRemaining, order.Timestamp)
	}
	cmd.MatcherEvent = chain.head
	cmd.ResultCode = domain.Success
}

// L2MarketDataSnapshot implements the Matcher contract.
func (b *DirectBook) L2MarketDataSnapshot(depth int) *domain.L2MarketData {
	data := &domain.L2MarketData{}
	i := 0
	for bucket := b.askHead; bucket != nil && i < depth; bucket, i = bucket.Next, i+1 {
		data.AskPrices = append(data.AskPrices, bucket.Price)
		data.AskSizes = append(data.AskSizes, bucket.Volume)
		data.AskOrders = append(data.AskOrders, int64(bucket.OrderCount))
	}
	i = 0
	for bucket := b.bidHead; bucket != nil && i < depth; bucket, i = bucket.Next, i+1 {
		data.BidPrices = append(data.BidPrices, bucket.Price)
		data.BidSizes = append(data.BidSizes, bucket.Volume)
		data.BidOrders = append(data.BidOrders, int64(bucket.OrderCount))
	}
	return data
}

// StateHash implements the Matcher contract: must agree with NaiveBook's
// hash bit-for-bit for the same sequence of commands, since spec.md §8's
// replay-equivalence property compares the two implementations directly.
func (b *DirectBook) StateHash() uint64 {
	h := fnv.New64a()
	writeSide := func(head *domain.PriceBucket) {
		for bucket := head; bucket != nil; bucket = bucket.Next {
			for o := bucket.Head; o != nil; o = o.Next {
				writeInt64(h, o.OrderID)
				writeInt64(h, o.UID)
				writeInt64(h, o.Price)
				writeInt64(h, o.Remaining())
			}
		}
	}
	writeSide(b.askHead)
	writeSide(b.bidHead)
	return h.Sum64()
}
