package binarycmd

import (
	"fmt"

	"clob-engine/domain"
	"clob-engine/risk"
)

// Handler applies decoded binary payloads to engine state, or produces a
// serialized report fragment for ReportQuery (spec.md §4.8: "dispatches to
// a handler callback that mutates engine state ... or produces a serialized
// report fragment").
type Handler struct {
	Engine *risk.Engine
}

// Dispatch decodes payload per cmdType and applies it. For BINARY_DATA_QUERY
// it returns the encoded report fragment this shard contributes; for
// BINARY_DATA_COMMAND it returns nil.
func (h *Handler) Dispatch(cmdType domain.OrderCommandType, payload []byte) ([]byte, error) {
	switch cmdType {
	case domain.BinaryDataCommand:
		return nil, h.dispatchCommand(payload)
	case domain.BinaryDataQuery:
		return h.dispatchQuery(payload)
	default:
		return nil, fmt.Errorf("binarycmd: unexpected command type %v", cmdType)
	}
}

func (h *Handler) dispatchCommand(payload []byte) error {
	var symbols BatchAddSymbolsCommand
	if err := decode(payload, &symbols); err == nil && len(symbols.Symbols) > 0 {
		for i := range symbols.Symbols {
			h.Engine.Symbols.Add(&symbols.Symbols[i])
		}
		return nil
	}

	var accounts BatchAddAccountsCommand
	if err := decode(payload, &accounts); err != nil {
		return fmt.Errorf("binarycmd: payload matched neither known batch command: %w", err)
	}
	profile := h.Engine.Profiles.GetOrCreate(accounts.UID)
	for currency, amount := range accounts.Balances {
		profile.Accounts[currency] += amount
	}
	return nil
}

func (h *Handler) dispatchQuery(payload []byte) ([]byte, error) {
	var q ReportQuery
	if err := decode(payload, &q); err != nil {
		return nil, fmt.Errorf("binarycmd: decode report query: %w", err)
	}

	switch q.Kind {
	case ReportTotalBalances:
		totals := make(map[int32]int64)
		h.Engine.Profiles.ForEach(func(p *domain.UserProfile) {
			for currency, amount := range p.Accounts {
				totals[currency] += amount
			}
		})
		return Encode(totals)

	case ReportSingleUserProfile:
		profile := h.Engine.Profiles.Get(q.UID)
		if profile == nil {
			return Encode(domain.UserProfile{UID: q.UID})
		}
		return Encode(*profile)

	default:
		return nil, fmt.Errorf("binarycmd: unknown report query kind %v", q.Kind)
	}
}

// MergeTotalBalances sums per-shard ReportTotalBalances fragments into one
// map, the single-shard reduction spec.md §4.8 describes ("reducing
// per-currency maps by summation").
func MergeTotalBalances(fragments [][]byte) (map[int32]int64, error) {
	merged := make(map[int32]int64)
	for _, frag := range fragments {
		var partial map[int32]int64
		if err := decode(frag, &partial); err != nil {
			return nil, fmt.Errorf("binarycmd: decode balance fragment: %w", err)
		}
		for currency, amount := range partial {
			merged[currency] += amount
		}
	}
	return merged, nil
}
