package domain

// UserProfile holds one user's balances and futures positions. It is owned
// exclusively by the risk shard whose mask the uid hashes to (uid &
// shardMask == shardId); no other shard or stage may mutate it.
type UserProfile struct {
	UID int64

	// Accounts maps currency code to signed integer minor-unit balance.
	Accounts map[int32]int64

	// Positions maps symbolId to that symbol's open futures position.
	Positions map[int32]*SymbolPositionRecord

	// Suspended users may still be referenced as makers but reject new
	// activity initiated by themselves.
	Suspended bool
}

// NewUserProfile allocates an empty profile for uid.
func NewUserProfile(uid int64) *UserProfile {
	return &UserProfile{
		UID:       uid,
		Accounts:  make(map[int32]int64),
		Positions: make(map[int32]*SymbolPositionRecord),
	}
}

// PositionOrCreate returns the position record for symbol, creating an empty
// one on first access (futures positions are lazily materialized).
func (p *UserProfile) PositionOrCreate(symbol int32) *SymbolPositionRecord {
	rec, ok := p.Positions[symbol]
	if !ok {
		rec = &SymbolPositionRecord{Symbol: symbol}
		p.Positions[symbol] = rec
	}
	return rec
}

// SymbolPositionRecord tracks one user's open futures position in one
// symbol: direction, open volume, the weighted sum of open prices (so the
// average open price is OpenPriceSum/OpenVolume), and reserves pending
// against resting orders not yet matched.
type SymbolPositionRecord struct {
	Symbol    int32
	Direction PositionDirection

	OpenVolume   int64
	OpenPriceSum int64

	PendingSellSize int64
	PendingBuySize  int64
}

// IsEmpty reports whether the position carries no open volume and no
// pending reservations — safe to garbage collect from UserProfile.Positions.
func (r *SymbolPositionRecord) IsEmpty() bool {
	return r.Direction == PositionEmpty && r.PendingSellSize == 0 && r.PendingBuySize == 0
}

// UpdatePositionForMarginTrade applies a trade of `size` at `price` on the
// given action to the position, implementing netting semantics: a trade on
// the opposite side of the current position offsets it (closing at the
// weighted average open price, realizing any difference outside this
// record); a trade on the same side (or from flat) extends the position and
// folds the new volume into OpenPriceSum. Returns openedSize, the portion of
// size that opened new exposure (vs. closed existing exposure) — callers use
// this to prorate maker/taker fees.
func (r *SymbolPositionRecord) UpdatePositionForMarginTrade(action OrderAction, size, price int64) (openedSize int64) {
	tradeDirection := PositionLong
	if action == Ask {
		tradeDirection = PositionShort
	}

	if r.Direction == PositionEmpty || r.Direction == tradeDirection {
		// Extends (or opens) a position in the trade's direction.
		r.Direction = tradeDirection
		r.OpenVolume += size
		r.OpenPriceSum += size * price
		return size
	}

	// Opposite direction: offset first, then flip if the trade overshoots.
	if size <= r.OpenVolume {
		avgPrice := r.OpenPriceSum / r.OpenVolume
		r.OpenVolume -= size
		r.OpenPriceSum -= size * avgPrice
		if r.OpenVolume == 0 {
			r.Direction = PositionEmpty
			r.OpenPriceSum = 0
		}
		return 0
	}

	closing := r.OpenVolume
	opening := size - closing
	r.Direction = tradeDirection
	r.OpenVolume = opening
	r.OpenPriceSum = opening * price
	_ = closing
	return opening
}

// PendingRelease releases a reservation previously taken against a resting
// futures order (on CANCEL/REDUCE/REJECT) for the given action and size.
func (r *SymbolPositionRecord) PendingRelease(action OrderAction, size int64) {
	if action == Bid {
		r.PendingBuySize -= size
	} else {
		r.PendingSellSize -= size
	}
}
