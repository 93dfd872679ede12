package orderbook

import (
	"container/list"
	"hash/fnv"

	"github.com/emirpasic/gods/v2/trees/redblacktree"

	"clob-engine/domain"
)

// naiveLevel is a price level: a FIFO of *domain.Order kept in a
// container/list, exactly the structure the teacher's
// HashMapListPriceTree/PriceLevel_ used for its single generalized book
// (orderbook/price_tree.go) — the naive engine keeps that shape verbatim
// since spec.md §4.5 describes the naive book as "a price-level map of FIFO
// queues", the textbook case container/list already fits.
type naiveLevel struct {
	price  int64
	orders *list.List
	volume int64
}

// naiveSide is one side (bids or asks) of a NaiveBook: a red-black tree
// keyed by price, comparator-flipped for the bid side so Left() is always
// the best price regardless of side. This replaces the teacher's
// HashMapListPriceTree's separate map-plus-sorted-slice bookkeeping
// (orderbook/price_tree.go) with emirpasic/gods/v2's ordered tree, since the
// naive engine's whole point is to be an obviously-correct oracle and a
// library-backed tree is harder to get subtly wrong than a hand-rolled
// sorted-slice insert (spec.md §9).
type naiveSide struct {
	tree *redblacktree.Tree[int64, *naiveLevel]
}

func newNaiveSide(descending bool) *naiveSide {
	cmp := func(a, b int64) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
	if descending {
		cmp = func(a, b int64) int {
			switch {
			case a > b:
				return -1
			case a < b:
				return 1
			default:
				return 0
			}
		}
	}
	return &naiveSide{tree: redblacktree.NewWith[int64, *naiveLevel](cmp)}
}

func (s *naiveSide) getOrCreateLevel(price int64) *naiveLevel {
	lvl, found := s.tree.Get(price)
	if !found {
		lvl = &naiveLevel{price: price, orders: list.New()}
		s.tree.Put(price, lvl)
	}
	return lvl
}

func (s *naiveSide) levelAt(price int64) (*naiveLevel, bool) {
	return s.tree.Get(price)
}

func (s *naiveSide) removeLevel(price int64) {
	s.tree.Remove(price)
}

func (s *naiveSide) bestPrice() (int64, bool) {
	node := s.tree.Left()
	if node == nil {
		return 0, false
	}
	return node.Key, true
}

// orderedPrices returns every resting price on this side, best price first.
func (s *naiveSide) orderedPrices() []int64 {
	return s.tree.Keys()
}

// NaiveBook is the reference matching engine for one symbol: a price-level
// map of FIFO queues on each side, plus an orderId index for O(1) cancel.
type NaiveBook struct {
	symbol  int32
	spec    *domain.CoreSymbolSpecification
	asks    *naiveSide
	bids    *naiveSide
	orders  map[int64]*list.Element // orderId -> element within its level's list
	levelOf map[int64]*naiveLevel   // orderId -> owning level (either side)
	l2Depth int
}

var _ Matcher = (*NaiveBook)(nil)

// NewNaiveBook creates a naive book for symbol, using spec for fee/scale
// arithmetic the matcher itself never needs (kept for symmetry with
// DirectBook's constructor; the naive book performs no risk arithmetic).
func NewNaiveBook(symbol int32, spec *domain.CoreSymbolSpecification, l2Depth int) *NaiveBook {
	return &NaiveBook{
		symbol:  symbol,
		spec:    spec,
		asks:    newNaiveSide(false),
		bids:    newNaiveSide(true),
		orders:  make(map[int64]*list.Element),
		levelOf: make(map[int64]*naiveLevel),
		l2Depth: l2Depth,
	}
}

func (b *NaiveBook) sideFor(action domain.OrderAction) *naiveSide {
	if action == domain.Bid {
		return b.bids
	}
	return b.asks
}

func (b *NaiveBook) opposite(action domain.OrderAction) *naiveSide {
	if action == domain.Bid {
		return b.asks
	}
	return b.bids
}

// ProcessOrderCommand implements the Matcher contract; see matcher.go.
func (b *NaiveBook) ProcessOrderCommand(cmd *domain.OrderCommand) {
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

func (b *NaiveBook) placeOrder(cmd *domain.OrderCommand) {
	if _, exists := b.orders[cmd.OrderID]; exists {
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
			b.insertResting(cmd, remaining, chain)
		}
	case domain.IOC, domain.FOKBudget:
		// residual (if any) was already rejected inside match for FOK_BUDGET;
		// for IOC any leftover is rejected here, ahead of any trades match()
		// already appended.
		if remaining > 0 && cmd.OrderType == domain.IOC {
			chain.prependReject(remaining, cmd.Price, cmd.ReserveBidPrice)
		}
	}

	cmd.MatcherEvent = chain.head
	cmd.ResultCode = domain.Success
}

// match executes `size` at `limitPrice` against the opposite side, honoring
// FOK_BUDGET's pre-check. Returns the unexecuted remainder.
func (b *NaiveBook) match(limitPrice, size int64, action domain.OrderAction, orderType domain.OrderType, reserveBidPrice int64, chain *eventChain) int64 {
	opp := b.opposite(action)

	if orderType == domain.FOKBudget {
		if !b.fokBudgetAchievable(opp, limitPrice, size, action, reserveBidPrice) {
			chain.appendReject(size, limitPrice, reserveBidPrice)
			return 0
		}
	}

	remaining := size
	for remaining > 0 {
		bestPrice, ok := opp.bestPrice()
		if !ok {
			break
		}
		if action == domain.Bid && bestPrice > limitPrice {
			break
		}
		if action == domain.Ask && bestPrice < limitPrice {
			break
		}

		lvl, _ := opp.levelAt(bestPrice)
		for remaining > 0 && lvl.orders.Len() > 0 {
			front := lvl.orders.Front()
			maker := front.Value.(*domain.Order)
			tradeSize := min64(remaining, maker.Remaining())

			maker.Filled += tradeSize
			remaining -= tradeSize
			lvl.volume -= tradeSize

			makerCompleted := maker.IsCompleted()
			chain.appendTrade(maker.OrderID, maker.UID, maker.Price, tradeSize, reserveBidPrice, remaining == 0, makerCompleted)

			if makerCompleted {
				lvl.orders.Remove(front)
				delete(b.orders, maker.OrderID)
				delete(b.levelOf, maker.OrderID)
			}
		}
		if lvl.orders.Len() == 0 {
			opp.removeLevel(bestPrice)
		}
	}
	return remaining
}

// fokBudgetAchievable aggregates the achievable spend (BID) or receipt (ASK)
// walking the opposite book up to `size`, per spec.md §4.5.
func (b *NaiveBook) fokBudgetAchievable(opp *naiveSide, limitPrice, size int64, action domain.OrderAction, budget int64) bool {
	remaining := size
	var total int64
	for _, price := range opp.orderedPrices() {
		if remaining <= 0 {
			break
		}
		if action == domain.Bid && price > limitPrice {
			break
		}
		if action == domain.Ask && price < limitPrice {
			break
		}
		lvl, _ := opp.levelAt(price)
		avail := lvl.volume
		take := min64(remaining, avail)
		total += take * price
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

func (b *NaiveBook) insertResting(cmd *domain.OrderCommand, remaining int64, chain *eventChain) {
	order := &domain.Order{
		OrderID:         cmd.OrderID,
		UID:             cmd.UID,
		Action:          cmd.Action,
		Price:           cmd.Price,
		ReserveBidPrice: cmd.ReserveBidPrice,
		Size:            remaining,
		Filled:          0,
		Timestamp:       cmd.Timestamp,
	}
	side := b.sideFor(cmd.Action)
	lvl := side.getOrCreateLevel(cmd.Price)
	elem := lvl.orders.PushBack(order)
	lvl.volume += remaining
	b.orders[cmd.OrderID] = elem
	b.levelOf[cmd.OrderID] = lvl
}

func (b *NaiveBook) cancelOrder(cmd *domain.OrderCommand) {
	elem, ok := b.orders[cmd.OrderID]
	if !ok {
		cmd.ResultCode = domain.MatchingUnknownOrderID
		return
	}
	order := elem.Value.(*domain.Order)
	if order.UID != cmd.UID {
		cmd.ResultCode = domain.MatchingUnknownOrderID
		return
	}
	cmd.Action = order.Action
	lvl := b.levelOf[cmd.OrderID]
	remaining := order.Remaining()
	lvl.orders.Remove(elem)
	lvl.volume -= remaining
	delete(b.orders, cmd.OrderID)
	delete(b.levelOf, cmd.OrderID)
	if lvl.orders.Len() == 0 {
		side := b.sideFor(order.Action)
		side.removeLevel(lvl.price)
	}

	chain := &eventChain{}
	chain.appendReduce(remaining, order.Price, order.ReserveBidPrice)
	cmd.MatcherEvent = chain.head
	cmd.ResultCode = domain.Success
}

func (b *NaiveBook) reduceOrder(cmd *domain.OrderCommand) {
	if cmd.Size <= 0 {
		cmd.ResultCode = domain.MatchingReduceFailedWrongSize
		return
	}
	elem, ok := b.orders[cmd.OrderID]
	if !ok {
		cmd.ResultCode = domain.MatchingUnknownOrderID
		return
	}
	order := elem.Value.(*domain.Order)
	if order.UID != cmd.UID {
		cmd.ResultCode = domain.MatchingUnknownOrderID
		return
	}
	cmd.Action = order.Action

	reduceBy := min64(cmd.Size, order.Remaining())
	order.Size -= reduceBy
	lvl := b.levelOf[cmd.OrderID]
	lvl.volume -= reduceBy

	chain := &eventChain{}
	chain.appendReduce(reduceBy, order.Price, order.ReserveBidPrice)
	cmd.MatcherEvent = chain.head
	cmd.ResultCode = domain.Success

	if order.Remaining() == 0 {
		lvl.orders.Remove(elem)
		delete(b.orders, cmd.OrderID)
		delete(b.levelOf, cmd.OrderID)
		if lvl.orders.Len() == 0 {
			side := b.sideFor(order.Action)
			side.removeLevel(lvl.price)
		}
	}
}

func (b *NaiveBook) moveOrder(cmd *domain.OrderCommand) {
	elem, ok := b.orders[cmd.OrderID]
	if !ok {
		cmd.ResultCode = domain.MatchingUnknownOrderID
		return
	}
	order := elem.Value.(*domain.Order)
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

	lvl := b.levelOf[cmd.OrderID]
	remaining := order.Remaining()
	lvl.orders.Remove(elem)
	lvl.volume -= remaining
	delete(b.orders, cmd.OrderID)
	delete(b.levelOf, cmd.OrderID)
	if lvl.orders.Len() == 0 {
		side := b.sideFor(order.Action)
		side.removeLevel(lvl.price)
	}

	chain := &eventChain{}
	newRemaining := b.match(cmd.Price, remaining, order.Action, domain.GTC, order.ReserveBidPrice, chain)
	if newRemaining > 0 {
		b.insertResting(&domain.OrderCommand{
			OrderID:         order.OrderID,
			UID:             order.UID,
			Action:          order.Action,
			Price:           cmd.Price,
			ReserveBidPrice: order.ReserveBidPrice,
			Timestamp:       order.Timestamp,
		}, newRemaining, chain)
	}
	cmd.MatcherEvent = chain.head
	cmd.ResultCode = domain.Success
}

// L2MarketDataSnapshot implements the Matcher contract.
func (b *NaiveBook) L2MarketDataSnapshot(depth int) *domain.L2MarketData {
	data := &domain.L2MarketData{}
	for i, price := range b.asks.orderedPrices() {
		if i >= depth {
			break
		}
		lvl, _ := b.asks.levelAt(price)
		data.AskPrices = append(data.AskPrices, price)
		data.AskSizes = append(data.AskSizes, lvl.volume)
		data.AskOrders = append(data.AskOrders, int64(lvl.orders.Len()))
	}
	for i, price := range b.bids.orderedPrices() {
		if i >= depth {
			break
		}
		lvl, _ := b.bids.levelAt(price)
		data.BidPrices = append(data.BidPrices, price)
		data.BidSizes = append(data.BidSizes, lvl.volume)
		data.BidOrders = append(data.BidOrders, int64(lvl.orders.Len()))
	}
	return data
}

// StateHash implements the Matcher contract: a deterministic FNV-1a hash
// over every resting order's identity and remaining size, walked in
// price-time order so replay comparisons are stable across runs.
func (b *NaiveBook) StateHash() uint64 {
	h := fnv.New64a()
	writeSide := func(side *naiveSide) {
		for _, price := range side.orderedPrices() {
			lvl, _ := side.levelAt(price)
			for e := lvl.orders.Front(); e != nil; e = e.Next() {
				o := e.Value.(*domain.Order)
				writeInt64(h, o.OrderID)
				writeInt64(h, o.UID)
				writeInt64(h, o.Price)
				writeInt64(h, o.Remaining())
			}
		}
	}
	writeSide(b.asks)
	writeSide(b.bids)
	return h.Sum64()
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
