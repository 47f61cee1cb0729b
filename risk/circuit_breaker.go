package risk

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CIRCUIT BREAKER - Pause entries after consecutive losing trades
// ═══════════════════════════════════════════════════════════════════════════════

// CircuitBreaker counts losing round trips, measured in bars
type CircuitBreaker struct {
	mu sync.RWMutex

	maxConsecutiveLosses int // 0 = disabled
	cooldownBars         int

	consecutiveLosses int
	tripped           bool
	trippedAt         int
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(maxLosses, cooldownBars int) *CircuitBreaker {
	return &CircuitBreaker{
		maxConsecutiveLosses: maxLosses,
		cooldownBars:         cooldownBars,
	}
}

// Open reports whether entries are blocked at bar index
func (cb *CircuitBreaker) Open(index int) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.tripped {
		return false
	}
	if index-cb.trippedAt >= cb.cooldownBars {
		cb.tripped = false
		cb.consecutiveLosses = 0
		log.Info().Int("bar", index).Msg("✅ Circuit breaker reset after cooldown")
		return false
	}
	return true
}

// RecordResult records a closed round trip
func (cb *CircuitBreaker) RecordResult(pnl decimal.Decimal, index int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !pnl.IsNegative() {
		cb.consecutiveLosses = 0
		return
	}
	cb.consecutiveLosses++
	if cb.maxConsecutiveLosses > 0 && cb.consecutiveLosses >= cb.maxConsecutiveLosses && !cb.tripped {
		cb.tripped = true
		cb.trippedAt = index
		log.Warn().
			Int("consecutive_losses", cb.consecutiveLosses).
			Int("cooldown_bars", cb.cooldownBars).
			Msg("🚨 CIRCUIT BREAKER TRIPPED")
	}
}

// Reset clears the breaker
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveLosses = 0
	cb.tripped = false
	cb.trippedAt = 0
}

// ConsecutiveLosses returns the current losing streak
func (cb *CircuitBreaker) ConsecutiveLosses() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.consecutiveLosses
}
