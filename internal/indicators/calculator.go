package indicators

import (
	"github.com/web3guy0/xylbot/feeds"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CALCULATOR - Per-bar indicator snapshot for one instrument
// ═══════════════════════════════════════════════════════════════════════════════

// CalculatorConfig holds indicator periods
type CalculatorConfig struct {
	SMAPeriod        int
	EMAPeriod        int
	MidEMAPeriod     int
	ATRPeriod        int
	ATRAvgPeriod     int
	RSIPeriod        int
	CCIPeriod        int
	ADXPeriod        int
	StochPeriod      int
	MFIPeriod        int
	VWAPMomentumBars int
	Window           int // bars handed to the oscillators
}

// DefaultCalculatorConfig returns the standard periods
func DefaultCalculatorConfig() CalculatorConfig {
	return CalculatorConfig{
		SMAPeriod:        100,
		EMAPeriod:        1000,
		MidEMAPeriod:     21,
		ATRPeriod:        14,
		ATRAvgPeriod:     20,
		RSIPeriod:        14,
		CCIPeriod:        14,
		ADXPeriod:        14,
		StochPeriod:      14,
		MFIPeriod:        14,
		VWAPMomentumBars: 20,
		Window:           300,
	}
}

// Snapshot is every indicator value for the latest bar
type Snapshot struct {
	SMA            float64
	EMA            float64
	MidEMA         float64
	ATR            float64
	ATRAvg         float64
	RSI            float64
	CCI            float64
	PrevCCI        float64
	HasPrevCCI     bool
	ADX            float64
	StochK         float64
	MFI            float64
	VWAPMomentum   float64
	CumDeltaRising bool
}

// ScoreInputs combines the snapshot with the bar's close and VWAP
func (s Snapshot) ScoreInputs(close, vwap float64) ScoreInputs {
	return ScoreInputs{
		Close:          close,
		VWAP:           vwap,
		SMA:            s.SMA,
		EMA:            s.EMA,
		RSI:            s.RSI,
		VWAPMomentum:   s.VWAPMomentum,
		ADX:            s.ADX,
		StochK:         s.StochK,
		CCI:            s.CCI,
		MFI:            s.MFI,
		ATR:            s.ATR,
		ATRAvg:         s.ATRAvg,
		CumDeltaRising: s.CumDeltaRising,
	}
}

// Calculator keeps the few values that need memory between bars
type Calculator struct {
	cfg CalculatorConfig
	lib Library

	prevCCI      float64
	hasPrevCCI   bool
	prevCumDelta float64
	hasPrevDelta bool
	atrHist      []float64
	vwapHist     []float64
}

// NewCalculator creates a calculator; lib nil = go-talib with simple ATR
func NewCalculator(cfg CalculatorConfig, lib Library) *Calculator {
	if lib == nil {
		lib = NewTalibLibrary(ATRSimple)
	}
	return &Calculator{cfg: cfg, lib: lib}
}

// Reset clears the memory between bars
func (c *Calculator) Reset() {
	c.prevCCI = 0
	c.hasPrevCCI = false
	c.prevCumDelta = 0
	c.hasPrevDelta = false
	c.atrHist = nil
	c.vwapHist = nil
}

// Compute the snapshot for the latest bar in series. Must be called exactly
// once per closed bar, after the session statistics for it are known.
func (c *Calculator) Compute(series *feeds.BarSeries, vwap, cumDelta float64) Snapshot {
	var s Snapshot

	closes := series.Closes()
	w := c.cfg.Window
	highs := Tail(series.Highs(), w)
	lows := Tail(series.Lows(), w)
	wc := Tail(closes, w)
	vols := Tail(series.Volumes(), w)

	s.SMA = c.lib.SMA(closes, c.cfg.SMAPeriod)
	s.EMA = c.lib.EMA(closes, c.cfg.EMAPeriod)
	s.MidEMA = c.lib.EMA(wc, c.cfg.MidEMAPeriod)
	s.ATR = c.lib.ATR(highs, lows, wc, c.cfg.ATRPeriod)
	s.RSI = c.lib.RSI(wc, c.cfg.RSIPeriod)
	s.CCI = c.lib.CCI(highs, lows, wc, c.cfg.CCIPeriod)
	s.ADX = c.lib.ADX(highs, lows, wc, c.cfg.ADXPeriod)
	s.StochK = c.lib.StochK(highs, lows, wc, c.cfg.StochPeriod)
	s.MFI = c.lib.MFI(highs, lows, wc, vols, c.cfg.MFIPeriod)

	c.atrHist = appendBounded(c.atrHist, s.ATR, c.cfg.ATRAvgPeriod)
	s.ATRAvg = SMA(c.atrHist, c.cfg.ATRAvgPeriod)

	c.vwapHist = appendBounded(c.vwapHist, vwap, c.cfg.VWAPMomentumBars+1)
	s.VWAPMomentum = Momentum(c.vwapHist, c.cfg.VWAPMomentumBars)

	s.PrevCCI, s.HasPrevCCI = c.prevCCI, c.hasPrevCCI
	c.prevCCI, c.hasPrevCCI = s.CCI, true

	s.CumDeltaRising = c.hasPrevDelta && cumDelta > c.prevCumDelta
	c.prevCumDelta, c.hasPrevDelta = cumDelta, true

	return s
}

func appendBounded(values []float64, v float64, keep int) []float64 {
	values = append(values, v)
	if keep > 0 && len(values) > 4*keep {
		values = append([]float64(nil), values[len(values)-keep:]...)
	}
	return values
}
