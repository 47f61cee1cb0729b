package indicators

import (
	"math"

	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TREND CLASSIFIER - Slope based trend / extreme / chop regime
// ═══════════════════════════════════════════════════════════════════════════════

// Chop policies
const (
	ChopNoise = "noise" // share of near-flat slopes
	ChopFlips = "flips" // slope sign flips
)

// TrendConfig holds the regime thresholds (slopes are in percent)
type TrendConfig struct {
	SlopeBars          int
	TrendThreshold     float64
	TrendExitThreshold float64 // active trend held while |slope| stays above this
	ExtremeThreshold   float64

	ChopPolicy         string
	ChopLookback       int
	ChopNoiseThreshold float64
	ChopPct            float64 // 0-100
	FlipWindow         int
	FlipLimit          int

	MajorityLookback int
}

// DefaultTrendConfig returns defaults tuned for 1-minute index futures
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		SlopeBars:          5,
		TrendThreshold:     0.15,
		TrendExitThreshold: 0.15,
		ExtremeThreshold:   0.35,
		ChopPolicy:         ChopNoise,
		ChopLookback:       10,
		ChopNoiseThreshold: 0.03,
		ChopPct:            70,
		FlipWindow:         6,
		FlipLimit:          3,
		MajorityLookback:   10,
	}
}

// Regime is the classifier output for one bar
type Regime struct {
	Slope        float64
	PrevSlope    float64
	Trend        types.TrendState
	Extreme      types.ExtremeState
	Choppy       bool
	RisingShare  float64 // fraction of positive slopes in the majority window
	FallingShare float64
}

// TrendClassifier keeps only the last trend state for hysteresis
type TrendClassifier struct {
	cfg  TrendConfig
	last types.TrendState
}

// NewTrendClassifier creates a classifier
func NewTrendClassifier(cfg TrendConfig) *TrendClassifier {
	if cfg.TrendExitThreshold <= 0 || cfg.TrendExitThreshold > cfg.TrendThreshold {
		cfg.TrendExitThreshold = cfg.TrendThreshold
	}
	if cfg.ExtremeThreshold < cfg.TrendThreshold {
		cfg.ExtremeThreshold = cfg.TrendThreshold
	}
	return &TrendClassifier{cfg: cfg, last: types.TrendNeutral}
}

// Config returns the effective configuration
func (tc *TrendClassifier) Config() TrendConfig {
	return tc.cfg
}

// Reset drops the hysteresis state
func (tc *TrendClassifier) Reset() {
	tc.last = types.TrendNeutral
}

// Slope is the percent change over h bars ending at i, measured against
// close[i]. 0 when the horizon is unavailable or a price is not positive.
func Slope(closes []float64, i, h int) float64 {
	if h <= 0 || i < h || i >= len(closes) {
		return 0
	}
	cur, old := closes[i], closes[i-h]
	if cur <= 0 || old <= 0 {
		return 0
	}
	return (cur - old) / cur * 100
}

// Classify the latest bar of closes
func (tc *TrendClassifier) Classify(closes []float64) Regime {
	r := Regime{Trend: types.TrendNeutral, Extreme: types.ExtremeNone}
	i := len(closes) - 1
	h := tc.cfg.SlopeBars

	if i < h {
		tc.last = types.TrendNeutral
		return r
	}

	r.Slope = Slope(closes, i, h)
	r.PrevSlope = Slope(closes, i-1, h)

	r.Trend = tc.trend(r.Slope)
	tc.last = r.Trend

	abs := math.Abs(r.Slope)
	if abs > tc.cfg.ExtremeThreshold {
		if r.Slope > 0 {
			r.Extreme = types.ExtremeUp
		} else {
			r.Extreme = types.ExtremeDown
		}
	}

	r.Choppy = tc.choppy(closes)
	r.RisingShare, r.FallingShare = tc.majority(closes)
	return r
}

func (tc *TrendClassifier) trend(slope float64) types.TrendState {
	abs := math.Abs(slope)
	if abs > tc.cfg.TrendThreshold {
		if slope > 0 {
			return types.TrendStrongUp
		}
		return types.TrendStrongDown
	}
	// Hold an active trend until the slope decays below the exit level
	switch {
	case tc.last == types.TrendStrongUp && slope > 0 && slope > tc.cfg.TrendExitThreshold:
		return types.TrendStrongUp
	case tc.last == types.TrendStrongDown && slope < 0 && -slope > tc.cfg.TrendExitThreshold:
		return types.TrendStrongDown
	}
	return types.TrendNeutral
}

// slopes returns the last n slopes, or nil without enough history
func (tc *TrendClassifier) slopes(closes []float64, n int) []float64 {
	i := len(closes) - 1
	h := tc.cfg.SlopeBars
	if n <= 0 || i-n+1 < h {
		return nil
	}
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		out[k] = Slope(closes, i-n+1+k, h)
	}
	return out
}

func (tc *TrendClassifier) choppy(closes []float64) bool {
	if tc.cfg.ChopPolicy == ChopFlips {
		s := tc.slopes(closes, tc.cfg.FlipWindow)
		if s == nil {
			return false
		}
		flips := 0
		prev := 0.0
		for _, v := range s {
			if v == 0 {
				continue
			}
			if prev != 0 && (v > 0) != (prev > 0) {
				flips++
			}
			prev = v
		}
		return flips > tc.cfg.FlipLimit
	}

	s := tc.slopes(closes, tc.cfg.ChopLookback)
	if s == nil {
		return false
	}
	flat := 0
	for _, v := range s {
		if math.Abs(v) < tc.cfg.ChopNoiseThreshold {
			flat++
		}
	}
	return float64(flat)/float64(len(s))*100 >= tc.cfg.ChopPct
}

func (tc *TrendClassifier) majority(closes []float64) (rising, falling float64) {
	s := tc.slopes(closes, tc.cfg.MajorityLookback)
	if s == nil {
		return 0, 0
	}
	up, down := 0, 0
	for _, v := range s {
		switch {
		case v > 0:
			up++
		case v < 0:
			down++
		}
	}
	n := float64(len(s))
	return float64(up) / n, float64(down) / n
}
