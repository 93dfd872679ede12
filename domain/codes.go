package domain

// OrderCommandType is the tagged kind of an OrderCommand travelling through
// the ring buffer. Numeric values are fixed: they are persisted verbatim in
// the journal, so reordering them would break replay compatibility.
type OrderCommandType int8

const (
	PlaceOrder OrderCommandType = iota
	MoveOrder
	CancelOrder
	ReduceOrder
	OrderBookRequest
	AddUser
	SuspendUser
	ResumeUser
	BalanceAdjustment
	BinaryDataCommand
	BinaryDataQuery
	Reset
	Nop
	PersistStateMatching
	PersistStateRisk
	GroupingControl
	ShutdownSignal
	ReservedCompressed
)

func (t OrderCommandType) String() string {
	switch t {
	case PlaceOrder:
		return "PLACE_ORDER"
	case MoveOrder:
		return "MOVE_ORDER"
	case CancelOrder:
		return "CANCEL_ORDER"
	case ReduceOrder:
		return "REDUCE_ORDER"
	case OrderBookRequest:
		return "ORDER_BOOK_REQUEST"
	case AddUser:
		return "ADD_USER"
	case SuspendUser:
		return "SUSPEND_USER"
	case ResumeUser:
		return "RESUME_USER"
	case BalanceAdjustment:
		return "BALANCE_ADJUSTMENT"
	case BinaryDataCommand:
		return "BINARY_DATA_COMMAND"
	case BinaryDataQuery:
		return "BINARY_DATA_QUERY"
	case Reset:
		return "RESET"
	case Nop:
		return "NOP"
	case PersistStateMatching:
		return "PERSIST_STATE_MATCHING"
	case PersistStateRisk:
		return "PERSIST_STATE_RISK"
	case GroupingControl:
		return "GROUPING_CONTROL"
	case ShutdownSignal:
		return "SHUTDOWN_SIGNAL"
	case ReservedCompressed:
		return "RESERVED_COMPRESSED"
	default:
		return "UNKNOWN"
	}
}

// MutatingCommand reports whether a command type must be journaled (it can
// change book/risk/user state). ORDER_BOOK_REQUEST, NOP and binary query
// frames are excluded; every other type, control commands included, counts.
func (t OrderCommandType) MutatingCommand() bool {
	switch t {
	case OrderBookRequest, Nop, BinaryDataQuery:
		return false
	default:
		return true
	}
}

// ResultCode is the outcome stamped on a command by the pipeline.
type ResultCode int16

const (
	New ResultCode = iota
	Success
	ValidForMatchingEngine

	AuthInvalidUser
	InvalidSymbol
	UnsupportedSymbolType

	RiskNSF
	RiskInvalidReserveBidPrice
	RiskAskPriceLowerThanFee
	RiskMarginTradingDisabled

	MatchingDuplicateOrderID
	MatchingUnknownOrderID
	MatchingInvalidOrderBookID
	MatchingReduceFailedWrongSize
	MatchingMoveFailedPriceOverRiskLimit
)

func (r ResultCode) String() string {
	switch r {
	case New:
		return "NEW"
	case Success:
		return "SUCCESS"
	case ValidForMatchingEngine:
		return "VALID_FOR_MATCHING_ENGINE"
	case AuthInvalidUser:
		return "AUTH_INVALID_USER"
	case InvalidSymbol:
		return "INVALID_SYMBOL"
	case UnsupportedSymbolType:
		return "UNSUPPORTED_SYMBOL_TYPE"
	case RiskNSF:
		return "RISK_NSF"
	case RiskInvalidReserveBidPrice:
		return "RISK_INVALID_RESERVE_BID_PRICE"
	case RiskAskPriceLowerThanFee:
		return "RISK_ASK_PRICE_LOWER_THAN_FEE"
	case RiskMarginTradingDisabled:
		return "RISK_MARGIN_TRADING_DISABLED"
	case MatchingDuplicateOrderID:
		return "MATCHING_DUPLICATE_ORDER_ID"
	case MatchingUnknownOrderID:
		return "MATCHING_UNKNOWN_ORDER_ID"
	case MatchingInvalidOrderBookID:
		return "MATCHING_INVALID_ORDER_BOOK_ID"
	case MatchingReduceFailedWrongSize:
		return "MATCHING_REDUCE_FAILED_WRONG_SIZE"
	case MatchingMoveFailedPriceOverRiskLimit:
		return "MATCHING_MOVE_FAILED_PRICE_OVER_RISK_LIMIT"
	default:
		return "UNKNOWN"
	}
}

// OrderAction is the side of an order or trade.
type OrderAction int8

const (
	Ask OrderAction = iota
	Bid
)

func (a OrderAction) Opposite() OrderAction {
	if a == Bid {
		return Ask
	}
	return Bid
}

// OrderType is the execution semantics of a PLACE_ORDER command.
type OrderType int8

const (
	GTC OrderType = iota
	IOC
	FOKBudget
)

// BalanceAdjustmentType distinguishes a manual balance top-up from a
// suspend/resume-driven adjustment, for bookkeeping in the risk engine's
// per-currency totals.
type BalanceAdjustmentType int8

const (
	Adjustment BalanceAdjustmentType = iota
	Suspend
)

// SymbolType distinguishes spot/exchange pairs from margined futures.
type SymbolType int8

const (
	CurrencyExchangePair SymbolType = iota
	FuturesContract
)

// PositionDirection is the sign of a futures position.
type PositionDirection int8

const (
	PositionEmpty PositionDirection = iota
	PositionLong
	PositionShort
)
