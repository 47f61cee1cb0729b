package strategy

import (
	"time"

	"github.com/web3guy0/xylbot/internal/indicators"
	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SETUP INTERFACE - Tagged list of entry rules
// ═══════════════════════════════════════════════════════════════════════════════
//
// Every setup is a pure function of the bar Context:
//   Eval(*Context, *Config) types.Direction
//
// None means the setup did not fire. The Evaluator runs all enabled setups
// and resolves conflicts, overrides and gates in a single pass.
//
// ═══════════════════════════════════════════════════════════════════════════════

// SetupFunc evaluates one setup for one closed bar
type SetupFunc func(c *Context, cfg *Config) types.Direction

// Setup is one named entry rule
type Setup struct {
	ID   types.SetupID
	Name string
	Eval SetupFunc
}

// Context is everything a setup may look at for one closed bar
type Context struct {
	Index    int
	Time     time.Time
	Bar      types.Bar
	Prev     types.Bar
	HasPrev  bool
	BarsSeen int // bars processed since the last full reset

	Derived types.DerivedBar
	Regime  indicators.Regime
	Ind     indicators.Snapshot

	// Highest / lowest close of the bars before this one
	RangeHigh float64
	RangeLow  float64
	HasRange  bool

	Virtual types.VirtualPosition
	InRTH   bool
}

// Body is |close - open|
func (c *Context) Body() float64 {
	d := c.Bar.Close - c.Bar.Open
	if d < 0 {
		return -d
	}
	return d
}

// LowerWick is the distance from the body bottom to the low
func (c *Context) LowerWick() float64 {
	return minf(c.Bar.Open, c.Bar.Close) - c.Bar.Low
}

// UpperWick is the distance from the high to the body top
func (c *Context) UpperWick() float64 {
	return c.Bar.High - maxf(c.Bar.Open, c.Bar.Close)
}

// Bullish reports close > open
func (c *Context) Bullish() bool {
	return c.Bar.Close > c.Bar.Open
}

// Bearish reports close < open
func (c *Context) Bearish() bool {
	return c.Bar.Close < c.Bar.Open
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
