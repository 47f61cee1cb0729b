package core

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SYMBOLS - Instrument metadata management
// ═══════════════════════════════════════════════════════════════════════════════

// SymbolManager maps symbols onto contract specs
type SymbolManager struct {
	mu          sync.RWMutex
	instruments map[string]types.Instrument
}

// NewSymbolManager creates a manager preloaded with the common index futures
func NewSymbolManager() *SymbolManager {
	sm := &SymbolManager{
		instruments: make(map[string]types.Instrument),
	}
	for _, inst := range DefaultInstruments() {
		sm.Add(inst)
	}
	return sm
}

// DefaultInstruments are CME equity index, energy and metal contracts
func DefaultInstruments() []types.Instrument {
	spec := func(symbol, tick, value string) types.Instrument {
		return types.Instrument{
			Symbol:    symbol,
			TickSize:  decimal.RequireFromString(tick),
			TickValue: decimal.RequireFromString(value),
		}
	}
	return []types.Instrument{
		spec("ES", "0.25", "12.50"),
		spec("MES", "0.25", "1.25"),
		spec("NQ", "0.25", "5.00"),
		spec("MNQ", "0.25", "0.50"),
		spec("YM", "1", "5.00"),
		spec("MYM", "1", "0.50"),
		spec("RTY", "0.1", "5.00"),
		spec("M2K", "0.1", "0.50"),
		spec("CL", "0.01", "10.00"),
		spec("GC", "0.1", "10.00"),
	}
}

// Add adds or updates an instrument
func (sm *SymbolManager) Add(inst types.Instrument) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.instruments[strings.ToUpper(inst.Symbol)] = inst
}

// Get retrieves an instrument by exact symbol
func (sm *SymbolManager) Get(symbol string) (types.Instrument, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	inst, ok := sm.instruments[strings.ToUpper(symbol)]
	return inst, ok
}

// Resolve finds the instrument for a contract symbol such as "ESZ4" or
// "MNQH25" by the longest registered root. The returned instrument carries
// the full contract symbol.
func (sm *SymbolManager) Resolve(symbol string) (types.Instrument, bool) {
	upper := strings.ToUpper(symbol)

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if inst, ok := sm.instruments[upper]; ok {
		return inst, true
	}

	var best types.Instrument
	found := false
	for root, inst := range sm.instruments {
		if !strings.HasPrefix(upper, root) {
			continue
		}
		if !found || len(root) > len(best.Symbol) {
			best, found = inst, true
		}
	}
	if found {
		best.Symbol = symbol
	}
	return best, found
}

// Symbols returns the registered roots, sorted
func (sm *SymbolManager) Symbols() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]string, 0, len(sm.instruments))
	for s := range sm.instruments {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Count returns total number of instruments
func (sm *SymbolManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.instruments)
}
