package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TYPES - Avoid import cycles
// ═══════════════════════════════════════════════════════════════════════════════

// Direction of a signal or order
type Direction string

const (
	None  Direction = ""
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Sign returns +1 for long, -1 for short, 0 otherwise
func (d Direction) Sign() float64 {
	switch d {
	case Long:
		return 1
	case Short:
		return -1
	}
	return 0
}

// Opposite returns the other side
func (d Direction) Opposite() Direction {
	switch d {
	case Long:
		return Short
	case Short:
		return Long
	}
	return None
}

// Bar is one closed OHLCV bar with bid/ask volume split.
// Bars are immutable once produced by the feed.
type Bar struct {
	Symbol    string
	Time      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	AskVolume float64 // volume traded at the ask (buyers lifting)
	BidVolume float64 // volume traded at the bid (sellers hitting)
}

// Delta is ask volume minus bid volume
func (b Bar) Delta() float64 {
	return b.AskVolume - b.BidVolume
}

// TypicalPrice is (high + low + close) / 3
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Quote is an intrabar top-of-book / trade update
type Quote struct {
	Time      time.Time
	Bid       float64
	Ask       float64
	BidSize   float64
	AskSize   float64
	LastPrice float64
	LastSize  float64
}

// SessionState holds the running per-session sums
type SessionState struct {
	SessionDate     time.Time
	CumVolume       float64
	CumPriceVolume  float64
	CumPrice2Volume float64
	CumDelta        float64
}

// ═══════════════════════════════════════════════════════════════════════════════
// DERIVED STATE
// ═══════════════════════════════════════════════════════════════════════════════

// TrendState is the slope based trend classification
type TrendState string

const (
	TrendNeutral    TrendState = "NEUTRAL"
	TrendStrongUp   TrendState = "STRONG_UP"
	TrendStrongDown TrendState = "STRONG_DOWN"
)

// ExtremeState layers on top of TrendState
type ExtremeState string

const (
	ExtremeNone ExtremeState = "NONE"
	ExtremeUp   ExtremeState = "EXTREME_UP"
	ExtremeDown ExtremeState = "EXTREME_DOWN"
)

// Band is VWAP ± K standard deviations
type Band struct {
	K     float64
	Upper float64
	Lower float64
}

// DerivedBar is everything computed for one closed bar
type DerivedBar struct {
	Index    int
	Time     time.Time
	Close    float64
	VWAP     float64
	StdDev   float64
	Bands    []Band // ascending by K
	ActiveK  float64
	CumDelta float64
	Slope    float64
	Trend    TrendState
	Extreme  ExtremeState
	Choppy   bool
	Score    int
}

// InnerBand returns the band with the smallest K
func (d DerivedBar) InnerBand() (Band, bool) {
	if len(d.Bands) == 0 {
		return Band{}, false
	}
	return d.Bands[0], true
}

// OuterBand returns the band with the largest K
func (d DerivedBar) OuterBand() (Band, bool) {
	if len(d.Bands) == 0 {
		return Band{}, false
	}
	return d.Bands[len(d.Bands)-1], true
}

// SetupID names one of the entry rules
type SetupID string

const (
	SetupA SetupID = "A" // momentum reversal
	SetupB SetupID = "B" // band exhaustion
	SetupC SetupID = "C" // trend pullback
	SetupD SetupID = "D" // extreme breakout
	SetupE SetupID = "E" // continuation at key level
)

// SetupResult is the outcome of one setup on one bar
type SetupResult struct {
	Setup     SetupID
	Direction Direction
	Fired     bool
}

// ═══════════════════════════════════════════════════════════════════════════════
// POSITION STATE
// ═══════════════════════════════════════════════════════════════════════════════

// PositionState of the virtual simulator
type PositionState string

const (
	Flat     PositionState = "FLAT"
	LongPos  PositionState = "LONG"
	ShortPos PositionState = "SHORT"
)

// NeverBar marks a bar index that has not happened yet
const NeverBar = -1

// Direction maps a position state to its side
func (s PositionState) Direction() Direction {
	switch s {
	case LongPos:
		return Long
	case ShortPos:
		return Short
	}
	return None
}

// StateFor maps a side to the position state
func StateFor(d Direction) PositionState {
	switch d {
	case Long:
		return LongPos
	case Short:
		return ShortPos
	}
	return Flat
}

// VirtualPosition is the paper position used to pace signals
type VirtualPosition struct {
	State         PositionState
	EntryPrice    float64
	StopPrice     float64
	TargetPrice   float64
	EntryBar      int
	LastSignalBar int // NeverBar until the first signal
	LastExitBar   int // NeverBar until the first exit
}

// DailyRiskState is reset on every new trading day
type DailyRiskState struct {
	TradeCountToday int
	LastTradeBar    int
	SessionDate     time.Time
}

// ═══════════════════════════════════════════════════════════════════════════════
// ORDERS
// ═══════════════════════════════════════════════════════════════════════════════

// Instrument is the contract spec the risk math needs
type Instrument struct {
	Symbol    string
	TickSize  decimal.Decimal
	TickValue decimal.Decimal // currency per tick per contract
}

// PointValue is the currency value of a full point move per contract
func (i Instrument) PointValue() decimal.Decimal {
	if i.TickSize.IsZero() {
		return i.TickValue
	}
	return i.TickValue.Div(i.TickSize)
}

// RoundToTick rounds a price to the nearest tick
func (i Instrument) RoundToTick(price decimal.Decimal) decimal.Decimal {
	if !i.TickSize.IsPositive() {
		return price
	}
	return price.Div(i.TickSize).Round(0).Mul(i.TickSize)
}

// OrderKind of a working order
type OrderKind string

const (
	OrderMarket OrderKind = "MARKET"
	OrderStop   OrderKind = "STOP"
	OrderLimit  OrderKind = "LIMIT"
)

// Order is a working order as reported by the execution service
type Order struct {
	ID        string
	ParentID  string
	Symbol    string
	Kind      OrderKind
	Direction Direction // side of the order itself (a long's stop is SHORT)
	Quantity  decimal.Decimal
	Price     decimal.Decimal
}

// PositionSnapshot is the live position reported by the execution service
type PositionSnapshot struct {
	Symbol       string
	Quantity     decimal.Decimal // signed: >0 long, <0 short
	AveragePrice decimal.Decimal
	RealizedPnL  decimal.Decimal // for the current trading day
	EntryBar     int
}

// Direction returns the side of the position
func (p PositionSnapshot) Direction() Direction {
	switch p.Quantity.Sign() {
	case 1:
		return Long
	case -1:
		return Short
	}
	return None
}

// IsFlat reports a zero quantity
func (p PositionSnapshot) IsFlat() bool {
	return p.Quantity.IsZero()
}

// OrderRequest is a bracketed entry (market + attached stop/target)
type OrderRequest struct {
	Symbol       string
	Direction    Direction
	Quantity     decimal.Decimal
	Reference    decimal.Decimal // price the offsets were computed from
	StopOffset   decimal.Decimal
	TargetOffset decimal.Decimal
	BarIndex     int
	Setups       []SetupID
}

// StopPrice of the attached protective stop
func (r OrderRequest) StopPrice() decimal.Decimal {
	if r.Direction == Short {
		return r.Reference.Add(r.StopOffset)
	}
	return r.Reference.Sub(r.StopOffset)
}

// TargetPrice of the attached profit target
func (r OrderRequest) TargetPrice() decimal.Decimal {
	if r.Direction == Short {
		return r.Reference.Sub(r.TargetOffset)
	}
	return r.Reference.Add(r.TargetOffset)
}

// ModificationKind of an order mutation
type ModificationKind string

const (
	ModifyTrailStop    ModificationKind = "TRAIL_STOP"
	ModifyExtendTarget ModificationKind = "EXTEND_TARGET"
	ModifyFlatten      ModificationKind = "FLATTEN"
)

// OrderModification is a request to move or cancel working orders
type OrderModification struct {
	Kind     ModificationKind
	OrderID  string
	OldPrice decimal.Decimal
	NewPrice decimal.Decimal
	Reason   string
}

// ═══════════════════════════════════════════════════════════════════════════════
// OUTPUT
// ═══════════════════════════════════════════════════════════════════════════════

// Signal is emitted at most once per closed bar
type Signal struct {
	ID        string
	Symbol    string
	Time      time.Time
	BarIndex  int
	Direction Direction
	Price     float64 // close at signal
	Marker    float64 // where to draw the arrow
	Setups    []SetupID
	Score     int
	Bid       float64
	Ask       float64
}
