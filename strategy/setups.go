package strategy

import (
	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SETUPS A-E
// ═══════════════════════════════════════════════════════════════════════════════

// DefaultSetups returns every setup in evaluation order
func DefaultSetups() []Setup {
	return []Setup{
		{ID: types.SetupA, Name: "momentum_reversal", Eval: MomentumReversal},
		{ID: types.SetupB, Name: "band_exhaustion", Eval: BandExhaustion},
		{ID: types.SetupC, Name: "trend_pullback", Eval: TrendPullback},
		{ID: types.SetupD, Name: "extreme_breakout", Eval: ExtremeBreakout},
		{ID: types.SetupE, Name: "key_level_continuation", Eval: KeyLevelContinuation},
	}
}

// MomentumReversal (A): CCI crosses back inside its band while the
// composite score sits at an extreme.
func MomentumReversal(c *Context, cfg *Config) types.Direction {
	if !c.Ind.HasPrevCCI || c.Regime.Choppy {
		return types.None
	}
	prev, cur := c.Ind.PrevCCI, c.Ind.CCI
	score := c.Derived.Score

	crossUp := prev <= -cfg.CCILevel && cur > -cfg.CCILevel
	if crossUp && score < cfg.ScoreLongMax &&
		c.Derived.Trend != types.TrendStrongDown && c.Derived.Extreme != types.ExtremeDown {
		return types.Long
	}

	crossDown := prev >= cfg.CCILevel && cur < cfg.CCILevel
	if crossDown && score > cfg.ScoreShortMin && score < cfg.ScoreShortMax &&
		c.Derived.Trend != types.TrendStrongUp && c.Derived.Extreme != types.ExtremeUp {
		return types.Short
	}
	return types.None
}

// BandExhaustion (B): close outside the outer band, beating the prior
// bar's open back toward VWAP, with a slope that has already turned back.
func BandExhaustion(c *Context, cfg *Config) types.Direction {
	outer, ok := c.Derived.OuterBand()
	if !ok || c.Derived.StdDev <= 0 || !c.HasPrev {
		return types.None
	}
	slope, prevSlope := c.Regime.Slope, c.Regime.PrevSlope

	if c.Bar.Close < outer.Lower && c.Bar.Close > c.Prev.Open && slope > prevSlope {
		return types.Long
	}
	if c.Bar.Close > outer.Upper && c.Bar.Close < c.Prev.Open && slope < prevSlope {
		return types.Short
	}
	return types.None
}

// TrendPullback (C): in a strong trend price makes a shallow dip into the
// inner band zone (not through it) and tags the long SMA, then closes with
// the trend.
func TrendPullback(c *Context, cfg *Config) types.Direction {
	inner, ok := c.Derived.InnerBand()
	sma := c.Ind.SMA
	if !ok || sma <= 0 {
		return types.None
	}
	touchesSMA := c.Bar.Low <= sma && c.Bar.High >= sma

	switch c.Derived.Trend {
	case types.TrendStrongUp:
		if touchesSMA && c.Bar.Low <= inner.Upper && c.Bar.Low >= inner.Lower && c.Bullish() && c.Bar.Close > sma {
			return types.Long
		}
	case types.TrendStrongDown:
		if touchesSMA && c.Bar.High >= inner.Lower && c.Bar.High <= inner.Upper && c.Bearish() && c.Bar.Close < sma {
			return types.Short
		}
	}
	return types.None
}

// ExtremeBreakout (D): during an extreme move, close beyond the mid EMA and
// beyond the recent closing range.
func ExtremeBreakout(c *Context, cfg *Config) types.Direction {
	if !c.HasRange || c.Ind.MidEMA <= 0 {
		return types.None
	}
	switch c.Derived.Extreme {
	case types.ExtremeUp:
		if c.Bar.Close > c.Ind.MidEMA && c.Bar.Close > c.RangeHigh {
			return types.Long
		}
	case types.ExtremeDown:
		if c.Bar.Close < c.Ind.MidEMA && c.Bar.Close < c.RangeLow {
			return types.Short
		}
	}
	return types.None
}

// KeyLevelContinuation (E): in an established trend price tags a key level
// (mid EMA, long SMA or an inner band edge) and rejects it with a wick.
func KeyLevelContinuation(c *Context, cfg *Config) types.Direction {
	levels := []float64{c.Ind.MidEMA, c.Ind.SMA}
	if inner, ok := c.Derived.InnerBand(); ok && c.Derived.StdDev > 0 {
		levels = append(levels, inner.Lower, inner.Upper)
	}
	body := c.Body()

	switch c.Derived.Trend {
	case types.TrendStrongUp:
		wick := c.LowerWick()
		if wick <= 0 || wick < cfg.WickRatio*body {
			return types.None
		}
		for _, lvl := range levels {
			if lvl > 0 && c.Bar.Low <= lvl && c.Bar.Close > lvl {
				return types.Long
			}
		}
	case types.TrendStrongDown:
		wick := c.UpperWick()
		if wick <= 0 || wick < cfg.WickRatio*body {
			return types.None
		}
		for _, lvl := range levels {
			if lvl > 0 && c.Bar.High >= lvl && c.Bar.Close < lvl {
				return types.Short
			}
		}
	}
	return types.None
}
