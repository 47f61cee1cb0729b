package risk

import (
	"math"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/feeds"
	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RISK MANAGER - Entry sizing and live order management
// ═══════════════════════════════════════════════════════════════════════════════
//
// Responsibilities:
// 1. Gate signals (RTH, daily cap, one trade per bar, daily loss, breaker)
// 2. Size entries and price the attached stop and target
// 3. Trail the protective stop, extend the target, flatten stale trades
//
// ═══════════════════════════════════════════════════════════════════════════════

// Config for the manager
type Config struct {
	MaxDailyTrades  int
	MaxDailyLossPct float64

	SizingMode     string
	Contracts      int
	RiskPct        float64
	MaxContracts   int
	AccountBalance decimal.Decimal

	StopMode        string
	HardStopPct     float64
	StopATRMult     float64
	TargetATRWide   float64
	TargetATRNarrow float64
	TrendThreshold  float64

	TrailTriggerATR   float64
	TrailDistATR      float64
	ExtendTriggerATR  float64
	TargetExtendedATR float64
	ExtendADXMin      float64
	RSIExhaustLong    float64 // no extension for longs at or above this RSI
	RSIExhaustShort   float64 // no extension for shorts at or below this RSI

	MaxHoldBars int // 0 = off

	MaxConsecutiveLosses int // 0 = off
	BreakerCooldownBars  int
}

// DefaultConfig returns the standard risk settings
func DefaultConfig() Config {
	return Config{
		MaxDailyTrades:       8,
		MaxDailyLossPct:      3,
		SizingMode:           SizingFixed,
		Contracts:            2,
		RiskPct:              1,
		MaxContracts:         10,
		AccountBalance:       decimal.NewFromInt(50000),
		StopMode:             StopPercent,
		HardStopPct:          0.20,
		StopATRMult:          2.5,
		TargetATRWide:        8,
		TargetATRNarrow:      4,
		TrendThreshold:       0.15,
		TrailTriggerATR:      2,
		TrailDistATR:         1.5,
		ExtendTriggerATR:     4,
		TargetExtendedATR:    12,
		ExtendADXMin:         25,
		RSIExhaustLong:       80,
		RSIExhaustShort:      20,
		MaxHoldBars:          0,
		MaxConsecutiveLosses: 0,
		BreakerCooldownBars:  30,
	}
}

// SizingInputs are the market values an entry is sized from
type SizingInputs struct {
	ATR      float64
	Slope    float64
	Position types.PositionSnapshot
	Balance  decimal.Decimal // zero = configured account balance
}

// LiveContext is the bar-close view of the live position
type LiveContext struct {
	Index    int
	Bar      types.Bar
	ATR      float64
	ADX      float64
	RSI      float64
	Position types.PositionSnapshot
	Orders   []types.Order
}

// Manager owns risk state for one instrument
type Manager struct {
	mu sync.RWMutex

	cfg     Config
	inst    types.Instrument
	gate    *Gate
	sizer   *Sizer
	breaker *CircuitBreaker

	// live position tracking
	entryBar int
}

// NewManager creates a risk manager for one instrument
func NewManager(cfg Config, inst types.Instrument, cal feeds.Calendar) *Manager {
	if cfg.StopMode != StopATR {
		cfg.StopMode = StopPercent
	}
	rm := &Manager{
		cfg:      cfg,
		inst:     inst,
		gate:     NewGate(GateConfig{MaxDailyTrades: cfg.MaxDailyTrades, MaxDailyLossPct: cfg.MaxDailyLossPct}, cal),
		sizer:    NewSizer(cfg.SizingMode, cfg.Contracts, cfg.RiskPct, cfg.MaxContracts),
		breaker:  NewCircuitBreaker(cfg.MaxConsecutiveLosses, cfg.BreakerCooldownBars),
		entryBar: types.NeverBar,
	}

	log.Info().
		Str("symbol", inst.Symbol).
		Int("max_daily_trades", cfg.MaxDailyTrades).
		Str("sizing", rm.sizer.Mode()).
		Str("stop_mode", cfg.StopMode).
		Float64("hard_stop_pct", cfg.HardStopPct).
		Msg("🛡️ Risk manager initialized")

	return rm
}

// Gate exposes the daily gate
func (rm *Manager) Gate() *Gate {
	return rm.gate
}

// Reset restores a fresh state, as before the first bar
func (rm *Manager) Reset() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.gate = NewGate(rm.gate.cfg, rm.gate.cal)
	rm.breaker.Reset()
	rm.entryBar = types.NeverBar
}

// RollSession resets the daily state for a new trading day
func (rm *Manager) RollSession(bar types.Bar) {
	rm.gate.RollSession(rm.gate.cal.TradingDay(bar.Time))
}

// ═══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ═══════════════════════════════════════════════════════════════════════════════

// OnSignal approves, sizes and prices an entry. The daily budget is not
// touched; call RecordEntry once the order was accepted.
func (rm *Manager) OnSignal(sig types.Signal, in SizingInputs) (*types.OrderRequest, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	balance := in.Balance
	if !balance.IsPositive() {
		balance = rm.cfg.AccountBalance
	}

	if err := rm.gate.Check(sig.Time, sig.BarIndex, in.Position, balance); err != nil {
		return nil, err
	}
	if rm.breaker.Open(sig.BarIndex) {
		return nil, ErrCircuitOpen
	}

	ref := rm.inst.RoundToTick(decimal.NewFromFloat(sig.Price))
	stopOff := StopOffset(rm.cfg.StopMode, ref, rm.cfg.HardStopPct, in.ATR, rm.cfg.StopATRMult, rm.inst)
	targetOff := TargetOffset(in.ATR, rm.targetMult(in.Slope), stopOff, rm.inst)
	qty := rm.sizer.Quantity(balance, stopOff, rm.inst)

	req := &types.OrderRequest{
		Symbol:       rm.inst.Symbol,
		Direction:    sig.Direction,
		Quantity:     qty,
		Reference:    ref,
		StopOffset:   stopOff,
		TargetOffset: targetOff,
		BarIndex:     sig.BarIndex,
		Setups:       sig.Setups,
	}

	log.Info().
		Str("symbol", req.Symbol).
		Str("side", string(req.Direction)).
		Str("qty", qty.String()).
		Str("ref", ref.String()).
		Str("stop", req.StopPrice().String()).
		Str("target", req.TargetPrice().String()).
		Str("risk", rm.sizer.RiskAmount(qty, stopOff, rm.inst).StringFixed(2)).
		Msg("🎯 Entry approved")

	return req, nil
}

// RecordEntry consumes the daily budget after a successful submit
func (rm *Manager) RecordEntry(index int) {
	rm.gate.RecordEntry(index)
	rm.mu.Lock()
	rm.entryBar = index
	rm.mu.Unlock()
}

// RecordExit feeds a closed round trip to the circuit breaker
func (rm *Manager) RecordExit(pnl decimal.Decimal, index int) {
	rm.breaker.RecordResult(pnl, index)
	if streak := rm.breaker.ConsecutiveLosses(); streak > 1 {
		log.Warn().
			Str("symbol", rm.inst.Symbol).
			Int("streak", streak).
			Msg("📉 Losing streak")
	}
}

// LossStreak returns the consecutive losing round trips since the last win
func (rm *Manager) LossStreak() int {
	return rm.breaker.ConsecutiveLosses()
}

func (rm *Manager) targetMult(slope float64) float64 {
	if math.Abs(slope) > rm.cfg.TrendThreshold {
		return rm.cfg.TargetATRWide
	}
	return rm.cfg.TargetATRNarrow
}

// ═══════════════════════════════════════════════════════════════════════════════
// LIVE MANAGEMENT
// ═══════════════════════════════════════════════════════════════════════════════

// OnBarClose returns the order changes for an open live position
func (rm *Manager) OnBarClose(ctx LiveContext) []types.OrderModification {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	dir := ctx.Position.Direction()
	if dir == types.None {
		rm.entryBar = types.NeverBar
		return nil
	}
	if ctx.Position.EntryBar > 0 {
		rm.entryBar = ctx.Position.EntryBar
	}
	if rm.entryBar == types.NeverBar {
		rm.entryBar = ctx.Index
	}

	if rm.cfg.MaxHoldBars > 0 && ctx.Index-rm.entryBar >= rm.cfg.MaxHoldBars {
		log.Info().
			Str("symbol", rm.inst.Symbol).
			Int("held_bars", ctx.Index-rm.entryBar).
			Msg("⏰ Max hold reached, flattening")
		return []types.OrderModification{{Kind: types.ModifyFlatten, Reason: "max_hold_bars"}}
	}

	var mods []types.OrderModification
	avg := ctx.Position.AveragePrice
	px := decimal.NewFromFloat(ctx.Bar.Close)
	exitSide := dir.Opposite()

	if stop, ok := findOrder(ctx.Orders, rm.inst.Symbol, types.OrderStop, exitSide); ok {
		if cand, ok := TrailPrice(dir, avg, px, ctx.ATR, rm.cfg.TrailTriggerATR, rm.cfg.TrailDistATR, rm.inst); ok && Better(dir, cand, stop.Price) {
			mods = append(mods, types.OrderModification{
				Kind:     types.ModifyTrailStop,
				OrderID:  stop.ID,
				OldPrice: stop.Price,
				NewPrice: cand,
				Reason:   "trail",
			})
		}
	}

	if target, ok := findOrder(ctx.Orders, rm.inst.Symbol, types.OrderLimit, exitSide); ok && rm.momentumIntact(dir, ctx) {
		if cand, ok := ExtendedTarget(dir, avg, px, ctx.ATR, rm.cfg.ExtendTriggerATR, rm.cfg.TargetExtendedATR, rm.inst); ok && Better(dir, cand, target.Price) {
			mods = append(mods, types.OrderModification{
				Kind:     types.ModifyExtendTarget,
				OrderID:  target.ID,
				OldPrice: target.Price,
				NewPrice: cand,
				Reason:   "momentum",
			})
		}
	}

	return mods
}

func (rm *Manager) momentumIntact(dir types.Direction, ctx LiveContext) bool {
	if ctx.ADX < rm.cfg.ExtendADXMin {
		return false
	}
	if dir == types.Long {
		return ctx.RSI < rm.cfg.RSIExhaustLong
	}
	return ctx.RSI > rm.cfg.RSIExhaustShort
}

func findOrder(orders []types.Order, symbol string, kind types.OrderKind, side types.Direction) (types.Order, bool) {
	for _, o := range orders {
		if o.Kind == kind && o.Direction == side && (o.Symbol == "" || o.Symbol == symbol) {
			return o, true
		}
	}
	return types.Order{}, false
}
