package indicators

// ═══════════════════════════════════════════════════════════════════════════════
// MOMENTUM SCORER - Composite bucket score, nominally 0-200
// ═══════════════════════════════════════════════════════════════════════════════
//
// Deterministic and stateless. Bucket boundaries are strict comparisons:
// a value sitting exactly on a boundary falls into the lower bucket.
//
// ═══════════════════════════════════════════════════════════════════════════════

// ScoreInputs are the per-bar values the score is built from
type ScoreInputs struct {
	Close          float64
	VWAP           float64
	SMA            float64 // short SMA (100)
	EMA            float64 // long EMA (1000)
	RSI            float64
	VWAPMomentum   float64 // percent change of VWAP over 20 bars
	ADX            float64
	StochK         float64
	CCI            float64
	MFI            float64
	ATR            float64
	ATRAvg         float64 // SMA of ATR
	CumDeltaRising bool
}

// ScoreBreakdown keeps the points of every factor
type ScoreBreakdown struct {
	Position     int
	RSI          int
	VWAPMomentum int
	ADX          int
	Stoch        int
	CCI          int
	MFI          int
	ATR          int
	Delta        int
}

// Total is the sum of all factors
func (b ScoreBreakdown) Total() int {
	return b.Position + b.RSI + b.VWAPMomentum + b.ADX + b.Stoch + b.CCI + b.MFI + b.ATR + b.Delta
}

// MaxScore is the highest reachable total
const MaxScore = 50 + 25 + 25 + 20 + 20 + 20 + 15 + 10 + 15

// Score returns the composite momentum score
func Score(in ScoreInputs) int {
	return Breakdown(in).Total()
}

// Breakdown scores every factor
func Breakdown(in ScoreInputs) ScoreBreakdown {
	var b ScoreBreakdown

	switch {
	case in.Close > in.SMA && in.Close > in.EMA && in.Close > in.VWAP:
		b.Position = 50
	case in.Close < in.SMA && in.Close < in.EMA && in.Close < in.VWAP:
		b.Position = 0
	default:
		b.Position = 25
	}

	b.RSI = bucket(in.RSI, 70, 25, 30, 0, 50, 15, 5)
	b.VWAPMomentum = bucket(in.VWAPMomentum, 1, 25, -1, 0, 0, 15, 5)

	switch {
	case in.ADX > 40:
		b.ADX = 20
	case in.ADX > 25:
		b.ADX = 10
	}

	b.Stoch = bucket(in.StochK, 80, 20, 20, 0, 50, 12, 4)
	b.CCI = bucket(in.CCI, 100, 20, -100, 0, 0, 12, 4)
	b.MFI = bucket(in.MFI, 80, 15, 20, 0, 50, 10, 3)

	switch {
	case in.ATRAvg > 0 && in.ATR > 1.5*in.ATRAvg:
		b.ATR = 10
	case in.ATRAvg > 0 && in.ATR < 0.5*in.ATRAvg:
		b.ATR = 0
	default:
		b.ATR = 5
	}

	if in.CumDeltaRising {
		b.Delta = 15
	}
	return b
}

// bucket maps v onto four levels: above hi, below lo, above mid, otherwise
func bucket(v, hi float64, hiPts int, lo float64, loPts int, mid float64, midPts, restPts int) int {
	switch {
	case v > hi:
		return hiPts
	case v < lo:
		return loPts
	case v > mid:
		return midPts
	}
	return restPts
}
