package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ROUTER - Routes bars and quotes to the engine of their instrument
// ═══════════════════════════════════════════════════════════════════════════════
//
// The router only guards its map. Each engine is single threaded, so a
// driver must not feed the same symbol from two goroutines at once.
//
// ═══════════════════════════════════════════════════════════════════════════════

// ErrUnknownSymbol is returned for data of an unregistered instrument
var ErrUnknownSymbol = errors.New("no engine for symbol")

type Router struct {
	mu      sync.RWMutex
	engines map[string]*Engine
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{
		engines: make(map[string]*Engine),
	}
}

// Subscribe registers an engine under its instrument symbol
func (r *Router) Subscribe(e *Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Symbol()] = e
}

// Engine returns the engine for a symbol
func (r *Router) Engine(symbol string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[symbol]
	return e, ok
}

// Symbols returns the registered symbols, sorted
func (r *Router) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.engines))
	for s := range r.engines {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Route sends a closed bar to its engine
func (r *Router) Route(bar types.Bar) (*Output, error) {
	e, ok := r.Engine(bar.Symbol)
	if !ok {
		return nil, fmt.Errorf("%s: %w", bar.Symbol, ErrUnknownSymbol)
	}
	return e.OnBarClose(bar)
}

// RouteTick sends an intrabar quote to its engine
func (r *Router) RouteTick(symbol string, q types.Quote) error {
	e, ok := r.Engine(symbol)
	if !ok {
		return fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	e.OnTick(q)
	return nil
}

// SetTradingEnabled switches live entries for every engine
func (r *Router) SetTradingEnabled(on bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.engines {
		e.SetTradingEnabled(on)
	}
}

// Stats returns the counters of every engine by symbol
func (r *Router) Stats() map[string]Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Stats, len(r.engines))
	for s, e := range r.engines {
		out[s] = e.Stats()
	}
	return out
}

// Flush writes the running day of every engine
func (r *Router) Flush() {
	r.mu.RLock()
	engines := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		engines = append(engines, e)
	}
	r.mu.RUnlock()

	for _, e := range engines {
		e.Flush()
	}
}
