package risk

import (
	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POSITION SIZING - Fixed contracts or fixed fractional risk
// ═══════════════════════════════════════════════════════════════════════════════
//
// Risk formula: contracts = (balance × risk%) / (stopTicks × tickValue)
//
// Floors at one contract, capped at MaxContracts.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Sizing modes
const (
	SizingFixed = "fixed"
	SizingRisk  = "risk"
)

// Sizer computes entry quantities
type Sizer struct {
	mode         string
	contracts    decimal.Decimal
	riskPct      decimal.Decimal // percent of balance, 1 = 1%
	maxContracts decimal.Decimal
}

// NewSizer creates a position sizer
func NewSizer(mode string, contracts int, riskPct float64, maxContracts int) *Sizer {
	if mode != SizingRisk {
		mode = SizingFixed
	}
	if contracts < 1 {
		contracts = 1
	}
	return &Sizer{
		mode:         mode,
		contracts:    decimal.NewFromInt(int64(contracts)),
		riskPct:      decimal.NewFromFloat(riskPct),
		maxContracts: decimal.NewFromInt(int64(maxContracts)),
	}
}

// Mode returns the sizing mode
func (s *Sizer) Mode() string {
	return s.mode
}

// Quantity for an entry whose stop sits stopOffset away
func (s *Sizer) Quantity(balance, stopOffset decimal.Decimal, inst types.Instrument) decimal.Decimal {
	if s.mode == SizingFixed {
		return s.cap(s.contracts)
	}

	one := decimal.NewFromInt(1)
	if !stopOffset.IsPositive() || !inst.TickSize.IsPositive() || !inst.TickValue.IsPositive() {
		return one
	}

	riskAmount := balance.Mul(s.riskPct).Div(decimal.NewFromInt(100))
	stopTicks := stopOffset.Div(inst.TickSize)
	perContract := stopTicks.Mul(inst.TickValue)

	qty := riskAmount.Div(perContract).Floor()
	if qty.LessThan(one) {
		qty = one
	}
	return s.cap(qty)
}

// RiskAmount is the currency at risk for qty contracts
func (s *Sizer) RiskAmount(qty, stopOffset decimal.Decimal, inst types.Instrument) decimal.Decimal {
	return qty.Mul(stopOffset).Mul(inst.PointValue())
}

func (s *Sizer) cap(qty decimal.Decimal) decimal.Decimal {
	if s.maxContracts.IsPositive() && qty.GreaterThan(s.maxContracts) {
		return s.maxContracts
	}
	return qty
}
