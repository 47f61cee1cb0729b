package execution

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/feeds"
	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PAPER BROKER - Simulated fills for replay
// ═══════════════════════════════════════════════════════════════════════════════
//
// Order Flow:
//   SubmitEntry → market fill at reference ± slippage
//                 ↓
//         STOP + LIMIT target (OCO)
//                 ↓
//   OnBar: stop checked before target against the bar's range
//
// ═══════════════════════════════════════════════════════════════════════════════

// PaperConfig holds simulation settings
type PaperConfig struct {
	SlippageTicks int             // adverse ticks on market and stop fills
	Commission    decimal.Decimal // per contract per side
}

// DefaultPaperConfig returns sensible defaults
func DefaultPaperConfig() PaperConfig {
	return PaperConfig{
		SlippageTicks: 0,
		Commission:    decimal.Zero,
	}
}

// Fill is one simulated execution
type Fill struct {
	OrderID   string
	Kind      types.OrderKind
	Direction types.Direction
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	BarIndex  int
	Time      time.Time
}

// Trade is a closed round trip
type Trade struct {
	ID         string
	Symbol     string
	Direction  types.Direction
	Quantity   decimal.Decimal
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	EntryBar   int
	ExitBar    int
	ExitTime   time.Time
	Reason     string
	PnL        decimal.Decimal
}

// PaperBroker implements Service and BarObserver for one instrument
type PaperBroker struct {
	mu   sync.RWMutex
	cfg  PaperConfig
	inst types.Instrument
	cal  feeds.Calendar

	qty      decimal.Decimal // signed
	avg      decimal.Decimal
	entryBar int
	entryID  string
	orders   map[string]*types.Order

	lastBar   types.Bar
	lastIndex int
	day       time.Time
	realized  decimal.Decimal // today
	total     decimal.Decimal
	trades    []Trade
	submitErr error

	onFill  func(Fill)
	onClose func(Trade)
}

// NewPaperBroker creates a flat paper account
func NewPaperBroker(cfg PaperConfig, inst types.Instrument, cal feeds.Calendar) *PaperBroker {
	return &PaperBroker{
		cfg:       cfg,
		inst:      inst,
		cal:       cal,
		entryBar:  types.NeverBar,
		lastIndex: types.NeverBar,
		orders:    make(map[string]*types.Order),
	}
}

// OnFill registers a fill callback
func (pb *PaperBroker) OnFill(fn func(Fill)) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.onFill = fn
}

// OnClose registers a round-trip callback
func (pb *PaperBroker) OnClose(fn func(Trade)) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.onClose = fn
}

// SetSubmitError makes every SubmitEntry fail with err (nil clears it)
func (pb *PaperBroker) SetSubmitError(err error) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.submitErr = err
}

// Reset returns to a flat account with no history
func (pb *PaperBroker) Reset() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.qty = decimal.Zero
	pb.avg = decimal.Zero
	pb.entryBar = types.NeverBar
	pb.entryID = ""
	pb.orders = make(map[string]*types.Order)
	pb.lastBar = types.Bar{}
	pb.lastIndex = types.NeverBar
	pb.day = time.Time{}
	pb.realized = decimal.Zero
	pb.total = decimal.Zero
	pb.trades = nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// SERVICE
// ═══════════════════════════════════════════════════════════════════════════════

// SubmitEntry fills immediately and attaches the bracket
func (pb *PaperBroker) SubmitEntry(req types.OrderRequest) (string, error) {
	pb.mu.Lock()

	if pb.submitErr != nil {
		err := pb.submitErr
		pb.mu.Unlock()
		return "", err
	}
	if !req.Quantity.IsPositive() {
		pb.mu.Unlock()
		return "", ErrInvalidQuantity
	}
	if !pb.qty.IsZero() {
		pb.mu.Unlock()
		return "", ErrPositionOpen
	}
	if !req.Reference.IsPositive() {
		pb.mu.Unlock()
		return "", ErrNoPrice
	}

	id := uuid.NewString()
	sign := decimal.NewFromFloat(req.Direction.Sign())
	fillPrice := req.Reference.Add(pb.slippage().Mul(sign))

	pb.qty = req.Quantity.Mul(sign)
	pb.avg = fillPrice
	pb.entryBar = req.BarIndex
	pb.entryID = id

	exitSide := req.Direction.Opposite()
	stop := &types.Order{
		ID: uuid.NewString(), ParentID: id, Symbol: pb.inst.Symbol,
		Kind: types.OrderStop, Direction: exitSide, Quantity: req.Quantity,
		Price: pb.inst.RoundToTick(req.StopPrice()),
	}
	target := &types.Order{
		ID: uuid.NewString(), ParentID: id, Symbol: pb.inst.Symbol,
		Kind: types.OrderLimit, Direction: exitSide, Quantity: req.Quantity,
		Price: pb.inst.RoundToTick(req.TargetPrice()),
	}
	pb.orders[stop.ID] = stop
	pb.orders[target.ID] = target

	fill := Fill{
		OrderID: id, Kind: types.OrderMarket, Direction: req.Direction,
		Price: fillPrice, Quantity: req.Quantity, BarIndex: req.BarIndex, Time: pb.lastBar.Time,
	}
	cb := pb.onFill
	pb.mu.Unlock()

	log.Info().
		Str("symbol", pb.inst.Symbol).
		Str("side", string(req.Direction)).
		Str("qty", req.Quantity.String()).
		Str("fill", fillPrice.String()).
		Str("stop", stop.Price.String()).
		Str("target", target.Price.String()).
		Msg("📝 Paper entry filled")

	if cb != nil {
		cb(fill)
	}
	return id, nil
}

// ModifyOrder moves a working order
func (pb *PaperBroker) ModifyOrder(id string, price decimal.Decimal) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	o, ok := pb.orders[id]
	if !ok {
		return fmt.Errorf("modify %s: %w", id, ErrOrderNotFound)
	}
	o.Price = pb.inst.RoundToTick(price)
	return nil
}

// FlattenAll closes at the last seen close
func (pb *PaperBroker) FlattenAll() error {
	pb.mu.Lock()
	if pb.qty.IsZero() {
		pb.orders = make(map[string]*types.Order)
		pb.mu.Unlock()
		return nil
	}
	px := decimal.NewFromFloat(pb.lastBar.Close)
	if !px.IsPositive() {
		px = pb.avg
	}
	trade, cbClose, cbFill, fill := pb.closeLocked(px, pb.lastIndex, pb.lastBar.Time, "flatten", "")
	pb.mu.Unlock()

	pb.notify(trade, cbClose, cbFill, fill)
	return nil
}

// GetPosition returns the live position
func (pb *PaperBroker) GetPosition() (types.PositionSnapshot, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return types.PositionSnapshot{
		Symbol:       pb.inst.Symbol,
		Quantity:     pb.qty,
		AveragePrice: pb.avg,
		RealizedPnL:  pb.realized,
		EntryBar:     pb.entryBar,
	}, nil
}

// ListOpenOrders returns working orders, stops first
func (pb *PaperBroker) ListOpenOrders() ([]types.Order, error) {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	out := make([]types.Order, 0, len(pb.orders))
	for _, o := range pb.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind > out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// BAR SIMULATION
// ═══════════════════════════════════════════════════════════════════════════════

// OnBar rolls the daily PnL and fills stop or target against the bar range
func (pb *PaperBroker) OnBar(bar types.Bar, index int) {
	pb.mu.Lock()

	if day := pb.cal.TradingDay(bar.Time); !day.Equal(pb.day) {
		pb.day = day
		pb.realized = decimal.Zero
	}
	pb.lastBar = bar
	pb.lastIndex = index

	dir := directionOf(pb.qty)
	if dir == types.None {
		pb.mu.Unlock()
		return
	}

	var stop, target *types.Order
	for _, o := range pb.orders {
		switch o.Kind {
		case types.OrderStop:
			stop = o
		case types.OrderLimit:
			target = o
		}
	}

	high := decimal.NewFromFloat(bar.High)
	low := decimal.NewFromFloat(bar.Low)

	var px decimal.Decimal
	var reason, orderID string
	switch {
	case stop != nil && dir == types.Long && low.LessThanOrEqual(stop.Price):
		px, reason, orderID = stop.Price.Sub(pb.slippage()), "stop", stop.ID
	case stop != nil && dir == types.Short && high.GreaterThanOrEqual(stop.Price):
		px, reason, orderID = stop.Price.Add(pb.slippage()), "stop", stop.ID
	case target != nil && dir == types.Long && high.GreaterThanOrEqual(target.Price):
		px, reason, orderID = target.Price, "target", target.ID
	case target != nil && dir == types.Short && low.LessThanOrEqual(target.Price):
		px, reason, orderID = target.Price, "target", target.ID
	default:
		pb.mu.Unlock()
		return
	}

	trade, cbClose, cbFill, fill := pb.closeLocked(px, index, bar.Time, reason, orderID)
	pb.mu.Unlock()

	pb.notify(trade, cbClose, cbFill, fill)
}

// closeLocked books the round trip; caller holds the lock
func (pb *PaperBroker) closeLocked(px decimal.Decimal, index int, at time.Time, reason, orderID string) (Trade, func(Trade), func(Fill), Fill) {
	dir := directionOf(pb.qty)
	qty := pb.qty.Abs()

	pnl := px.Sub(pb.avg).Mul(pb.qty).Mul(pb.inst.PointValue())
	pnl = pnl.Sub(pb.cfg.Commission.Mul(qty).Mul(decimal.NewFromInt(2)))

	trade := Trade{
		ID:         pb.entryID,
		Symbol:     pb.inst.Symbol,
		Direction:  dir,
		Quantity:   qty,
		EntryPrice: pb.avg,
		ExitPrice:  px,
		EntryBar:   pb.entryBar,
		ExitBar:    index,
		ExitTime:   at,
		Reason:     reason,
		PnL:        pnl,
	}
	fill := Fill{
		OrderID: orderID, Direction: dir.Opposite(), Price: px,
		Quantity: qty, BarIndex: index, Time: at,
	}
	switch reason {
	case "stop":
		fill.Kind = types.OrderStop
	case "target":
		fill.Kind = types.OrderLimit
	default:
		fill.Kind = types.OrderMarket
	}

	pb.realized = pb.realized.Add(pnl)
	pb.total = pb.total.Add(pnl)
	pb.trades = append(pb.trades, trade)

	pb.qty = decimal.Zero
	pb.avg = decimal.Zero
	pb.entryBar = types.NeverBar
	pb.entryID = ""
	pb.orders = make(map[string]*types.Order)

	log.Info().
		Str("symbol", trade.Symbol).
		Str("side", string(dir)).
		Str("reason", reason).
		Str("exit", px.String()).
		Str("pnl", pnl.StringFixed(2)).
		Msg("💰 Paper position closed")

	return trade, pb.onClose, pb.onFill, fill
}

func (pb *PaperBroker) notify(trade Trade, onClose func(Trade), onFill func(Fill), fill Fill) {
	if onFill != nil {
		onFill(fill)
	}
	if onClose != nil {
		onClose(trade)
	}
}

func (pb *PaperBroker) slippage() decimal.Decimal {
	return pb.inst.TickSize.Mul(decimal.NewFromInt(int64(pb.cfg.SlippageTicks)))
}

// ═══════════════════════════════════════════════════════════════════════════════
// STATS
// ═══════════════════════════════════════════════════════════════════════════════

// Trades returns closed round trips
func (pb *PaperBroker) Trades() []Trade {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return append([]Trade(nil), pb.trades...)
}

// TotalPnL across all days
func (pb *PaperBroker) TotalPnL() decimal.Decimal {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.total
}

// LoadPosition restores an open position, e.g. after a restart
func (pb *PaperBroker) LoadPosition(pos types.PositionSnapshot, orders []types.Order) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.qty = pos.Quantity
	pb.avg = pos.AveragePrice
	pb.entryBar = pos.EntryBar
	pb.entryID = uuid.NewString()
	pb.orders = make(map[string]*types.Order)
	for i := range orders {
		o := orders[i]
		pb.orders[o.ID] = &o
	}
}

// Metrics summarizes the closed round trips
type Metrics struct {
	Symbol   string
	Trades   int
	Wins     int
	Losses   int
	TotalPnL decimal.Decimal
}

// WinRate is Wins/Trades in percent, 0 without trades
func (m Metrics) WinRate() float64 {
	if m.Trades == 0 {
		return 0
	}
	return float64(m.Wins) / float64(m.Trades) * 100
}

// Metrics returns summary figures
func (pb *PaperBroker) Metrics() Metrics {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	m := Metrics{Symbol: pb.inst.Symbol, Trades: len(pb.trades), TotalPnL: pb.total}
	for _, t := range pb.trades {
		switch {
		case t.PnL.IsPositive():
			m.Wins++
		case t.PnL.IsNegative():
			m.Losses++
		}
	}
	return m
}

func directionOf(qty decimal.Decimal) types.Direction {
	switch qty.Sign() {
	case 1:
		return types.Long
	case -1:
		return types.Short
	}
	return types.None
}
