package risk

import "clob-engine/domain"

// Engine is one risk shard: pre-trade holds/margin checks (R1, run before
// the matching engine) and post-trade settlement (R2, run after). Grounded
// on RiskEngine.cpp's PreProcessCommand/PostProcessCommand switch dispatch,
// split across two methods here because the Go pipeline steps R1 and R2 as
// two distinct stages around the matching stage rather than one monolithic
// class.
//
// Every shard's Pre/PostProcessCommand runs for every command that passes
// through the pipeline (spec.md: "all shards see every command but ignore
// non-matching ones") — a shard only mutates the slice of state it owns,
// gated by owns(uid). This is what lets R2 settle a cross-shard trade: the
// taker's shard applies the taker's side of the fill and the maker's shard
// (which may be a different shard entirely) applies the maker's side, each
// from its own call to PostProcessCommand.
type Engine struct {
	ShardID   int64
	ShardMask int64

	// MarginTradingEnabled gates PLACE_ORDER for FuturesContract symbols:
	// off, every futures order is rejected with RiskMarginTradingDisabled,
	// matching RiskEngine.cpp's cfgMarginTradingEnabled_ flag.
	MarginTradingEnabled bool

	Profiles *ProfileService
	Symbols  *SymbolProvider

	lastPriceCache map[int32]*lastPriceRecord
}

// NewEngine creates a risk shard backed by the given profile/symbol
// registries that owns every uid — equivalent to a single-shard deployment.
// Margin trading is enabled by default, matching the single-engine test
// fixtures that exercise futures symbols without separately configuring it.
// Use NewShardedEngine to participate in a multi-shard Core.
func NewEngine(profiles *ProfileService, symbols *SymbolProvider) *Engine {
	return &Engine{
		MarginTradingEnabled: true,
		Profiles:             profiles,
		Symbols:              symbols,
		lastPriceCache:       make(map[int32]*lastPriceRecord),
	}
}

// NewShardedEngine creates a risk shard that owns exactly the uids
// satisfying uid&shardMask == shardID — shardMask is shardCount-1 for a
// power-of-two shard count, the same scheme pipeline.Core uses to route a
// command's ring slot.
func NewShardedEngine(shardID, shardMask int64, marginTradingEnabled bool, profiles *ProfileService, symbols *SymbolProvider) *Engine {
	return &Engine{
		ShardID:              shardID,
		ShardMask:            shardMask,
		MarginTradingEnabled: marginTradingEnabled,
		Profiles:             profiles,
		Symbols:              symbols,
		lastPriceCache:       make(map[int32]*lastPriceRecord),
	}
}

// owns reports whether uid belongs to this shard.
func (e *Engine) owns(uid int64) bool {
	return uid&e.ShardMask == e.ShardID
}

// PreProcessCommand validates and reserves funds/margin for a command
// before it reaches the matching engine. Mutating commands other than
// PLACE_ORDER either need no hold (CANCEL/REDUCE/MOVE are checked against
// the book itself) or are handled inline (ADD_USER, BALANCE_ADJUSTMENT,
// SUSPEND_USER/RESUME_USER). cmd.UID always names the command's owning
// user, so a shard that doesn't own it does nothing: exactly one shard
// across the whole Core ends up setting cmd.ResultCode.
func (e *Engine) PreProcessCommand(cmd *domain.OrderCommand) {
	if !e.owns(cmd.UID) {
		return
	}
	switch cmd.Command {
	case domain.AddUser:
		e.Profiles.GetOrCreate(cmd.UID)
		cmd.ResultCode = domain.Success
	case domain.SuspendUser:
		if p := e.Profiles.Get(cmd.UID); p != nil {
			p.Suspended = true
		}
		cmd.ResultCode = domain.Success
	case domain.ResumeUser:
		if p := e.Profiles.Get(cmd.UID); p != nil {
			p.Suspended = false
		}
		cmd.ResultCode = domain.Success
	case domain.BalanceAdjustment:
		e.applyBalanceAdjustment(cmd)
	case domain.PlaceOrder:
		e.preProcessPlaceOrder(cmd)
	default:
		cmd.ResultCode = domain.ValidForMatchingEngine
	}
}

func (e *Engine) applyBalanceAdjustment(cmd *domain.OrderCommand) {
	profile := e.Profiles.GetOrCreate(cmd.UID)
	// Size carries the signed adjustment amount; currency is carried in
	// Symbol, matching the teacher's flat reuse of OrderCommand's generic
	// int fields for non-order commands (matching/engine.go does the same
	// for its control commands).
	profile.Accounts[cmd.Symbol] += cmd.Size
	cmd.ResultCode = domain.Success
}

func (e *Engine) preProcessPlaceOrder(cmd *domain.OrderCommand) {
	profile := e.Profiles.Get(cmd.UID)
	if profile == nil || profile.Suspended {
		cmd.ResultCode = domain.AuthInvalidUser
		return
	}
	spec := e.Symbols.Get(cmd.Symbol)
	if spec == nil {
		cmd.ResultCode = domain.InvalidSymbol
		return
	}
	if cmd.Action == domain.Bid && cmd.ReserveBidPrice < cmd.Price {
		cmd.ResultCode = domain.RiskInvalidReserveBidPrice
		return
	}

	switch spec.Type {
	case domain.CurrencyExchangePair:
		e.holdExchangeOrder(cmd, profile, spec)
	case domain.FuturesContract:
		e.reserveFuturesOrder(cmd, profile, spec)
	default:
		cmd.ResultCode = domain.UnsupportedSymbolType
	}
}

// holdExchangeOrder escrows the funds a PLACE_ORDER command could consume:
// the full base-currency amount for an ASK, or the taker-fee-inclusive
// quote-currency amount for a BID (conservative: the order may end up
// filling as a maker at a better price, in which case settlement refunds
// the difference — see settlement.go).
func (e *Engine) holdExchangeOrder(cmd *domain.OrderCommand, profile *domain.UserProfile, spec *domain.CoreSymbolSpecification) {
	if cmd.Action == domain.Ask {
		if cmd.Price*spec.QuoteScaleK <= spec.TakerFee {
			cmd.ResultCode = domain.RiskAskPriceLowerThanFee
			return
		}
		hold := spec.AmountAsk(cmd.Size)
		if profile.Accounts[spec.BaseCurrency] < hold {
			cmd.ResultCode = domain.RiskNSF
			return
		}
		profile.Accounts[spec.BaseCurrency] -= hold
		cmd.ResultCode = domain.ValidForMatchingEngine
		return
	}

	var hold int64
	if cmd.OrderType == domain.FOKBudget {
		hold = spec.AmountBidTakerFeeForBudget(cmd.Size, cmd.Price)
	} else {
		hold = spec.AmountBidTakerFee(cmd.Size, cmd.ReserveBidPrice)
	}
	if profile.Accounts[spec.QuoteCurrency] < hold {
		cmd.ResultCode = domain.RiskNSF
		return
	}
	profile.Accounts[spec.QuoteCurrency] -= hold
	cmd.ResultCode = domain.ValidForMatchingEngine
}

// reserveFuturesOrder enforces available margin before a futures PLACE_ORDER
// reaches the matching engine, then reserves pending exposure on the position
// record so concurrent orders on the same symbol can't jointly overcommit
// margin; the actual position update happens at settlement (position.go).
func (e *Engine) reserveFuturesOrder(cmd *domain.OrderCommand, profile *domain.UserProfile, spec *domain.CoreSymbolSpecification) {
	if !e.MarginTradingEnabled {
		cmd.ResultCode = domain.RiskMarginTradingDisabled
		return
	}
	pos := profile.PositionOrCreate(cmd.Symbol)
	if e.availableMargin(cmd, profile, pos, spec) < e.additionalMarginFor(cmd, spec) {
		cmd.ResultCode = domain.RiskNSF
		return
	}
	if cmd.Action == domain.Bid {
		pos.PendingBuySize += cmd.Size
	} else {
		pos.PendingSellSize += cmd.Size
	}
	cmd.ResultCode = domain.ValidForMatchingEngine
}

// PostProcessCommand settles a command's matcher-event chain against
// whichever of the taker's and each referenced maker's balances/positions
// this shard owns — settleExchangeEvents/settleFuturesEvents gate every
// mutation on owns(uid) internally, since the taker and a given maker can
// belong to different shards.
func (e *Engine) PostProcessCommand(cmd *domain.OrderCommand) {
	spec := e.Symbols.Get(cmd.Symbol)
	if spec == nil {
		return
	}
	if spec.Type == domain.FuturesContract {
		// Runs even for commands with no trade (e.g. an ORDER_BOOK_REQUEST
		// or a ServiceFlags heartbeat carrying only an L2 snapshot).
		e.updateLastPriceCache(cmd)
	}
	if cmd.MatcherEvent == nil {
		return
	}
	switch spec.Type {
	case domain.CurrencyExchangePair:
		e.settleExchangeEvents(cmd, spec)
	case domain.FuturesContract:
		e.settleFuturesEvents(cmd, spec)
	}
}
