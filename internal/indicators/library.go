package indicators

import (
	"github.com/markcheno/go-talib"
)

// ═══════════════════════════════════════════════════════════════════════════════
// INDICATOR LIBRARY - Black-box technical indicators
// ═══════════════════════════════════════════════════════════════════════════════
//
// Every function returns the value at the last element of its inputs.
// Insufficient history never errors: each indicator falls back to its
// neutral value (RSI/Stoch/MFI 50, CCI/ADX/ATR 0, averages of what exists).
//
// ═══════════════════════════════════════════════════════════════════════════════

// Library is the indicator collaborator consumed by the Calculator
type Library interface {
	SMA(values []float64, period int) float64
	EMA(values []float64, period int) float64
	ATR(highs, lows, closes []float64, period int) float64
	RSI(closes []float64, period int) float64
	CCI(highs, lows, closes []float64, period int) float64
	ADX(highs, lows, closes []float64, period int) float64
	StochK(highs, lows, closes []float64, period int) float64
	MFI(highs, lows, closes, volumes []float64, period int) float64
}

// Smoothing types for ATR and RSI
const (
	ATRSimple = "simple" // plain mean of true range / gains and losses
	ATRWilder = "wilder" // Wilder's smoothing
)

// TalibLibrary adapts go-talib to Library. ATRType selects the moving
// average behind both ATR and RSI.
type TalibLibrary struct {
	ATRType string
}

// NewTalibLibrary creates the adapter; unknown types fall back to simple
func NewTalibLibrary(atrType string) *TalibLibrary {
	if atrType != ATRWilder {
		atrType = ATRSimple
	}
	return &TalibLibrary{ATRType: atrType}
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func sameLen(n int, series ...[]float64) bool {
	for _, s := range series {
		if len(s) != n {
			return false
		}
	}
	return true
}

// SMA of the last period values
func (l *TalibLibrary) SMA(values []float64, period int) float64 {
	if period <= 1 || len(values) < period {
		return SMA(values, period)
	}
	return last(talib.Sma(values, period))
}

// EMA falls back to a plain average until period values exist
func (l *TalibLibrary) EMA(values []float64, period int) float64 {
	if period <= 1 || len(values) < period {
		return EMA(values, period)
	}
	return last(talib.Ema(values, period))
}

// ATR smoothed per ATRType
func (l *TalibLibrary) ATR(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if period <= 0 || n < period+1 || !sameLen(n, highs, lows) {
		return 0
	}
	if l.ATRType == ATRWilder {
		return last(talib.Atr(highs, lows, closes, period))
	}
	tr := talib.TRange(highs, lows, closes)
	return average(tr[n-period:])
}

// RSI smoothed per ATRType
func (l *TalibLibrary) RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}
	if l.ATRType == ATRWilder {
		return last(talib.Rsi(closes, period))
	}
	return SimpleRSI(closes, period)
}

// CCI computed on closes (typical price collapses to close)
func (l *TalibLibrary) CCI(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if period <= 1 || n < period || !sameLen(n, highs, lows) {
		return 0
	}
	return last(talib.Cci(closes, closes, closes, period))
}

// ADX with Wilder smoothing
func (l *TalibLibrary) ADX(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if period <= 1 || n < 2*period+1 || !sameLen(n, highs, lows) {
		return 0
	}
	return last(talib.Adx(highs, lows, closes, period))
}

// StochK is the fast %K over period bars
func (l *TalibLibrary) StochK(highs, lows, closes []float64, period int) float64 {
	n := len(closes)
	if period <= 0 || n < period+2 || !sameLen(n, highs, lows) {
		return 50
	}
	k, _ := talib.StochF(highs, lows, closes, period, 3, talib.SMA)
	return last(k)
}

// MFI is the money flow index over period bars
func (l *TalibLibrary) MFI(highs, lows, closes, volumes []float64, period int) float64 {
	n := len(closes)
	if period <= 0 || n < period+1 || !sameLen(n, highs, lows, volumes) {
		return 50
	}
	return last(talib.Mfi(highs, lows, closes, volumes, period))
}
