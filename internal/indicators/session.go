package indicators

import (
	"math"
	"sort"
	"time"

	"github.com/web3guy0/xylbot/feeds"
	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SESSION ACCUMULATOR - Incremental VWAP, sigma and cumulative delta
// ═══════════════════════════════════════════════════════════════════════════════
//
// Sums restart on the first bar of each trading day. Cumulative delta
// restarts at that bar's own delta, not at zero.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Price sources for the VWAP sums
const (
	PriceClose   = "close"
	PriceTypical = "typical"
)

// SessionConfig for the accumulator
type SessionConfig struct {
	BandKs      []float64 // sigma multipliers, any order
	PriceSource string    // close | typical

	// Adaptive band selection
	AdaptiveLookback int
	AdaptiveSteps    []float64 // widest first
}

// DefaultSessionConfig returns the standard band set
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		BandKs:           []float64{0.5, 1.0, 1.5, 2.0},
		PriceSource:      PriceClose,
		AdaptiveLookback: 10,
		AdaptiveSteps:    []float64{2.0, 1.5, 1.0},
	}
}

// SessionStats is the session part of a DerivedBar
type SessionStats struct {
	SessionDate time.Time
	NewSession  bool
	CumVolume   float64
	VWAP        float64
	StdDev      float64
	CumDelta    float64
	Bands       []types.Band
}

// SessionAccumulator owns one instrument's SessionState
type SessionAccumulator struct {
	cfg     SessionConfig
	cal     feeds.Calendar
	ks      []float64
	state   types.SessionState
	started bool
}

// NewSessionAccumulator creates an accumulator
func NewSessionAccumulator(cfg SessionConfig, cal feeds.Calendar) *SessionAccumulator {
	ks := append([]float64(nil), cfg.BandKs...)
	sort.Float64s(ks)
	return &SessionAccumulator{cfg: cfg, cal: cal, ks: ks}
}

// Reset forgets the current session
func (a *SessionAccumulator) Reset() {
	a.state = types.SessionState{}
	a.started = false
}

// State returns a copy of the running sums
func (a *SessionAccumulator) State() types.SessionState {
	return a.state
}

// Update folds one closed bar into the session
func (a *SessionAccumulator) Update(bar types.Bar) SessionStats {
	day := a.cal.TradingDay(bar.Time)
	newSession := !a.started || !day.Equal(a.state.SessionDate)

	if newSession {
		a.state = types.SessionState{SessionDate: day, CumDelta: bar.Delta()}
		a.started = true
	} else {
		a.state.CumDelta += bar.Delta()
	}

	p := priceOf(bar, a.cfg.PriceSource)
	a.state.CumVolume += bar.Volume
	a.state.CumPriceVolume += p * bar.Volume
	a.state.CumPrice2Volume += p * p * bar.Volume

	vwap, sd := vwapStats(a.state.CumVolume, a.state.CumPriceVolume, a.state.CumPrice2Volume, bar.Close)

	return SessionStats{
		SessionDate: day,
		NewSession:  newSession,
		CumVolume:   a.state.CumVolume,
		VWAP:        vwap,
		StdDev:      sd,
		CumDelta:    a.state.CumDelta,
		Bands:       Bands(vwap, sd, a.ks),
	}
}

// ActiveK picks the adaptive band multiplier for the latest bars
func (a *SessionAccumulator) ActiveK(recent []types.Bar, stats SessionStats) float64 {
	return ActiveBandK(recent, stats.VWAP, stats.StdDev, a.cfg.AdaptiveLookback, a.cfg.AdaptiveSteps)
}

// Bands returns vwap ± k·sd for each k, ascending by k
func Bands(vwap, sd float64, ks []float64) []types.Band {
	out := make([]types.Band, 0, len(ks))
	for _, k := range ks {
		out = append(out, types.Band{K: k, Upper: vwap + k*sd, Lower: vwap - k*sd})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].K < out[j].K })
	return out
}

// SessionVWAP recomputes VWAP and sigma over bars from scratch
func SessionVWAP(bars []types.Bar, source string) (vwap, sd float64) {
	if len(bars) == 0 {
		return 0, 0
	}
	var v, pv, p2v float64
	for _, b := range bars {
		p := priceOf(b, source)
		v += b.Volume
		pv += p * b.Volume
		p2v += p * p * b.Volume
	}
	return vwapStats(v, pv, p2v, bars[len(bars)-1].Close)
}

// ActiveBandK returns the widest step whose z-score was reached in the last
// lookback bars, the narrowest step otherwise. Steps are tried widest first.
func ActiveBandK(recent []types.Bar, vwap, sd float64, lookback int, steps []float64) float64 {
	if len(steps) == 0 {
		return 0
	}
	ordered := append([]float64(nil), steps...)
	sort.Sort(sort.Reverse(sort.Float64Slice(ordered)))
	narrowest := ordered[len(ordered)-1]

	if lookback <= 0 || len(recent) < lookback || sd <= 0 {
		return narrowest
	}

	maxZ := 0.0
	for _, b := range recent[len(recent)-lookback:] {
		var dev float64
		if b.Close > vwap {
			dev = b.High - vwap
		} else {
			dev = vwap - b.Low
		}
		maxZ = math.Max(maxZ, dev/sd)
	}

	for _, k := range ordered {
		if maxZ >= k {
			return k
		}
	}
	return narrowest
}

func priceOf(bar types.Bar, source string) float64 {
	if source == PriceTypical {
		return bar.TypicalPrice()
	}
	return bar.Close
}

func vwapStats(v, pv, p2v, fallback float64) (float64, float64) {
	if v <= 0 {
		return fallback, 0
	}
	vwap := pv / v
	variance := p2v/v - vwap*vwap
	if variance < 0 {
		variance = 0
	}
	return vwap, math.Sqrt(variance)
}
