package risk

import (
	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TP/SL MATH - Stop, target, trailing and extension prices
// ═══════════════════════════════════════════════════════════════════════════════

// Stop modes
const (
	StopPercent = "percent"
	StopATR     = "atr"
)

var hundred = decimal.NewFromInt(100)

// StopOffset is the distance from entry to the protective stop.
// ATR mode falls back to percent while ATR is unknown.
func StopOffset(mode string, entry decimal.Decimal, hardStopPct, atr, atrMult float64, inst types.Instrument) decimal.Decimal {
	var off decimal.Decimal
	if mode == StopATR && atr > 0 && atrMult > 0 {
		off = decimal.NewFromFloat(atr * atrMult)
	} else {
		off = entry.Mul(decimal.NewFromFloat(hardStopPct)).Div(hundred)
	}
	return atLeastOneTick(inst.RoundToTick(off), inst)
}

// TargetOffset is mult·ATR; without ATR the target mirrors the stop
func TargetOffset(atr, mult float64, stopOffset decimal.Decimal, inst types.Instrument) decimal.Decimal {
	if atr <= 0 || mult <= 0 {
		return stopOffset
	}
	return atLeastOneTick(inst.RoundToTick(decimal.NewFromFloat(atr*mult)), inst)
}

// TrailPrice returns the trailed stop for an open position, ok=false until
// the open gain exceeds triggerATR·ATR.
func TrailPrice(dir types.Direction, avg, px decimal.Decimal, atr, triggerATR, distATR float64, inst types.Instrument) (decimal.Decimal, bool) {
	if atr <= 0 || triggerATR <= 0 {
		return decimal.Zero, false
	}
	sign := decimal.NewFromFloat(dir.Sign())
	gain := px.Sub(avg).Mul(sign)
	if gain.LessThanOrEqual(decimal.NewFromFloat(triggerATR * atr)) {
		return decimal.Zero, false
	}
	dist := decimal.NewFromFloat(distATR * atr)
	return inst.RoundToTick(px.Sub(dist.Mul(sign))), true
}

// ExtendedTarget returns avg ± extendATR·ATR once price moved triggerATR·ATR
// in favor, ok=false otherwise.
func ExtendedTarget(dir types.Direction, avg, px decimal.Decimal, atr, triggerATR, extendATR float64, inst types.Instrument) (decimal.Decimal, bool) {
	if atr <= 0 || extendATR <= 0 {
		return decimal.Zero, false
	}
	sign := decimal.NewFromFloat(dir.Sign())
	move := px.Sub(avg).Mul(sign)
	if move.LessThan(decimal.NewFromFloat(triggerATR * atr)) {
		return decimal.Zero, false
	}
	return inst.RoundToTick(avg.Add(decimal.NewFromFloat(extendATR * atr).Mul(sign))), true
}

// Better reports whether candidate is strictly more favorable than current
// for an exit order protecting a dir position. For stops: higher for longs.
// For targets: further from entry, also higher for longs.
func Better(dir types.Direction, candidate, current decimal.Decimal) bool {
	if dir == types.Short {
		return candidate.LessThan(current)
	}
	return candidate.GreaterThan(current)
}

func atLeastOneTick(off decimal.Decimal, inst types.Instrument) decimal.Decimal {
	if inst.TickSize.IsPositive() && off.LessThan(inst.TickSize) {
		return inst.TickSize
	}
	return off
}
