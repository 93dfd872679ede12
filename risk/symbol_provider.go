package risk

import "clob-engine/domain"

// SymbolProvider is a read-mostly registry of CoreSymbolSpecification,
// populated once via BatchAddSymbolsCommand (SPEC_FULL.md §4.12) and shared
// read-only across every risk and matching shard — the same specification
// instance backs a symbol's risk arithmetic and its matching engine.
type SymbolProvider struct {
	symbols map[int32]*domain.CoreSymbolSpecification
}

// NewSymbolProvider creates an empty registry.
func NewSymbolProvider() *SymbolProvider {
	return &SymbolProvider{symbols: make(map[int32]*domain.CoreSymbolSpecification)}
}

// Add registers spec, overwriting any prior specification for the same
// SymbolID (specifications are expected to be added once per symbol; a
// second add during replay is a deliberate idempotent overwrite).
func (p *SymbolProvider) Add(spec *domain.CoreSymbolSpecification) {
	p.symbols[spec.SymbolID] = spec
}

// Get returns the specification for symbol, or nil if unknown.
func (p *SymbolProvider) Get(symbol int32) *domain.CoreSymbolSpecification {
	return p.symbols[symbol]
}
