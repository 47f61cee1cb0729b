package risk

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/feeds"
	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DAILY GATE - Entry approval for one instrument
// ═══════════════════════════════════════════════════════════════════════════════
//
// Signal → Gate approves/rejects → Manager sizes → Executor submits
//
// The daily budget is only consumed by RecordEntry, after the execution
// service accepted the order. A rejected order never counts.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Rejection reasons
var (
	ErrOutsideRTH   = errors.New("outside regular trading hours")
	ErrDailyCap     = errors.New("daily trade cap reached")
	ErrSameBar      = errors.New("bar already produced a trade")
	ErrPositionOpen = errors.New("position already open")
	ErrDailyLoss    = errors.New("daily loss limit hit")
	ErrCircuitOpen  = errors.New("circuit breaker tripped")
)

// GateConfig for the daily gate
type GateConfig struct {
	MaxDailyTrades  int
	MaxDailyLossPct float64 // percent of balance, 0 = off
}

// Gate owns the DailyRiskState
type Gate struct {
	mu      sync.RWMutex
	cfg     GateConfig
	cal     feeds.Calendar
	state   types.DailyRiskState
	started bool
}

// NewGate creates a gate with an empty day
func NewGate(cfg GateConfig, cal feeds.Calendar) *Gate {
	g := &Gate{cfg: cfg, cal: cal}
	g.state.LastTradeBar = types.NeverBar
	return g
}

// State returns a copy of the daily state
func (g *Gate) State() types.DailyRiskState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// RollSession starts a new trading day
func (g *Gate) RollSession(day time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roll(day)
}

func (g *Gate) roll(day time.Time) {
	prev := g.state.TradeCountToday
	g.state = types.DailyRiskState{SessionDate: day, LastTradeBar: types.NeverBar}
	g.started = true
	log.Debug().
		Str("day", day.Format("2006-01-02")).
		Int("prev_trades", prev).
		Msg("📅 Daily risk state reset")
}

// Observe rolls the day when t belongs to a new trading day.
// Returns true when a roll happened.
func (g *Gate) Observe(t time.Time) bool {
	day := g.cal.TradingDay(t)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.started && day.Equal(g.state.SessionDate) {
		return false
	}
	g.roll(day)
	return true
}

// Check runs every entry rule for a signal at bar index
func (g *Gate) Check(t time.Time, index int, pos types.PositionSnapshot, balance decimal.Decimal) error {
	g.Observe(t)

	g.mu.RLock()
	defer g.mu.RUnlock()

	switch {
	case !g.cal.InRTH(t):
		return ErrOutsideRTH
	case g.cfg.MaxDailyTrades > 0 && g.state.TradeCountToday >= g.cfg.MaxDailyTrades:
		return ErrDailyCap
	case g.state.LastTradeBar == index:
		return ErrSameBar
	case !pos.IsFlat():
		return ErrPositionOpen
	}

	if g.cfg.MaxDailyLossPct > 0 && balance.IsPositive() {
		limit := balance.Mul(decimal.NewFromFloat(g.cfg.MaxDailyLossPct)).Div(decimal.NewFromInt(100))
		if pos.RealizedPnL.LessThan(limit.Neg()) {
			return ErrDailyLoss
		}
	}
	return nil
}

// RecordEntry consumes one trade of the daily budget
func (g *Gate) RecordEntry(index int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state.TradeCountToday++
	g.state.LastTradeBar = index
}
