package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/execution"
	"github.com/web3guy0/xylbot/feeds"
	"github.com/web3guy0/xylbot/internal/indicators"
	"github.com/web3guy0/xylbot/risk"
	"github.com/web3guy0/xylbot/strategy"
	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ENGINE - Per-instrument bar pipeline
// ═══════════════════════════════════════════════════════════════════════════════
//
// Flow (one closed bar):
//   Series → Session → Trend → Indicators → Score
//          → Real sync → Setups → Virtual → Risk → Execution
//          → Live management → Storage / Notifier
//
// An engine is driven from a single goroutine. It never blocks and never
// panics on the per-bar path: failures are logged and the bar continues.
//
// ═══════════════════════════════════════════════════════════════════════════════

// ErrWrongSymbol is returned for a bar of another instrument
var ErrWrongSymbol = errors.New("bar symbol does not match engine instrument")

// Config bundles every component configuration for one instrument
type Config struct {
	Instrument   types.Instrument
	Calendar     feeds.Calendar
	SeriesMaxLen int     // bars retained in memory, 0 = unbounded
	RangeBars    int     // highest/lowest close lookback for breakouts
	MarkerATR    float64 // signal arrow offset from the bar extreme
	ATRType      string  // indicators.ATRSimple or indicators.ATRWilder

	Session    indicators.SessionConfig
	Trend      indicators.TrendConfig
	Indicators indicators.CalculatorConfig
	Strategy   strategy.Config
	Virtual    strategy.VirtualConfig
	Risk       risk.Config

	// Setups overrides the default A-E list when non-nil
	Setups []strategy.Setup
}

// DefaultConfig returns the standard settings for an instrument
func DefaultConfig(inst types.Instrument) Config {
	return Config{
		Instrument:   inst,
		Calendar:     feeds.DefaultCalendar(),
		SeriesMaxLen: 5000,
		RangeBars:    5,
		MarkerATR:    0.5,
		ATRType:      indicators.ATRSimple,
		Session:      indicators.DefaultSessionConfig(),
		Trend:        indicators.DefaultTrendConfig(),
		Indicators:   indicators.DefaultCalculatorConfig(),
		Strategy:     strategy.DefaultConfig(),
		Virtual:      strategy.DefaultVirtualConfig(),
		Risk:         risk.DefaultConfig(),
	}
}

// SignalEvent is a signal together with what became of it
type SignalEvent struct {
	Signal   types.Signal
	Request  *types.OrderRequest
	OrderID  string
	Rejected string // risk or submit failure, empty when accepted
}

// OrderEvent is one live order lifecycle step
type OrderEvent struct {
	Symbol    string
	Time      time.Time
	BarIndex  int
	Kind      string // ENTRY, TRAIL_STOP, EXTEND_TARGET, FLATTEN, EXIT
	Direction types.Direction
	OrderID   string
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	PnL       decimal.Decimal
	Reason    string
}

// DailyStat summarises one trading day
type DailyStat struct {
	Symbol      string
	Day         time.Time
	Bars        int
	Signals     int
	Entries     int
	Exits       int
	RealizedPnL decimal.Decimal
}

// Recorder persists engine events
type Recorder interface {
	RecordSignal(ev SignalEvent) error
	RecordOrderEvent(ev OrderEvent) error
	RecordDailyStat(st DailyStat) error
}

// Notifier pushes engine events to a human
type Notifier interface {
	NotifySignal(ev SignalEvent)
	NotifyOrderEvent(ev OrderEvent)
}

// ErrorNotifier is optionally implemented by a Notifier that wants
// failures the engine logged and swallowed
type ErrorNotifier interface {
	NotifyError(err error)
}

// SessionNotifier is optionally implemented by a Notifier that wants
// the closing summary of each trading day
type SessionNotifier interface {
	NotifySessionSummary(st DailyStat)
}

// Output is everything produced for one closed bar
type Output struct {
	Index         int
	Derived       types.DerivedBar
	Evaluation    strategy.Evaluation
	Virtual       types.VirtualPosition
	VirtualExit   *strategy.VirtualExit
	Signal        *types.Signal
	Request       *types.OrderRequest
	OrderID       string
	Rejected      string
	Modifications []types.OrderModification // applied successfully
	Exit          *OrderEvent               // live position closed on this bar
}

// Stats are replay-wide counters
type Stats struct {
	Bars           int
	OutOfOrder     int
	Signals        int
	Ambiguous      int
	Entries        int
	Rejected       int
	SubmitFailures int
	Modifications  int
	Exits          int
	RealizedPnL    decimal.Decimal
}

// Engine runs the full pipeline for one instrument
type Engine struct {
	cfg  Config
	inst types.Instrument
	cal  feeds.Calendar

	series  *feeds.BarSeries
	session *indicators.SessionAccumulator
	trend   *indicators.TrendClassifier
	calc    *indicators.Calculator
	eval    *strategy.Evaluator
	virtual *strategy.VirtualTracker
	risk    *risk.Manager
	quotes  *feeds.QuoteBook

	exec     execution.Service
	observer execution.BarObserver
	recorder Recorder
	notifier Notifier

	tradingOff atomic.Bool

	// published copy of stats for readers on other goroutines
	mu        sync.RWMutex
	published Stats

	barsSeen int
	lastPos  types.PositionSnapshot
	lastDay  time.Time
	day      DailyStat
	stats    Stats
}

// NewEngine wires an engine to an execution service. If svc also
// implements execution.BarObserver it sees every bar before the engine.
func NewEngine(cfg Config, svc execution.Service) *Engine {
	if cfg.RangeBars <= 0 {
		cfg.RangeBars = 5
	}
	inst := cfg.Instrument
	tick, _ := inst.TickSize.Float64()

	setups := cfg.Setups
	if setups == nil {
		setups = strategy.DefaultSetups()
	}

	e := &Engine{
		cfg:     cfg,
		inst:    inst,
		cal:     cfg.Calendar,
		series:  feeds.NewBarSeries(inst.Symbol, cfg.SeriesMaxLen),
		session: indicators.NewSessionAccumulator(cfg.Session, cfg.Calendar),
		trend:   indicators.NewTrendClassifier(cfg.Trend),
		calc:    indicators.NewCalculator(cfg.Indicators, indicators.NewTalibLibrary(cfg.ATRType)),
		eval:    strategy.NewEvaluatorWith(cfg.Strategy, setups),
		virtual: strategy.NewVirtualTracker(cfg.Virtual),
		risk:    risk.NewManager(cfg.Risk, inst, cfg.Calendar),
		quotes:  feeds.NewQuoteBook(tick),
		exec:    svc,
	}
	if obs, ok := svc.(execution.BarObserver); ok {
		e.observer = obs
	}
	e.Initialize()

	log.Info().
		Str("symbol", inst.Symbol).
		Str("tick", inst.TickSize.String()).
		Str("setups", cfg.Strategy.Enabled).
		Msg("⚡ Engine created")

	return e
}

// SetRecorder attaches a storage sink
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// SetNotifier attaches a notification sink
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// SetTradingEnabled switches live entries on or off. Signals, the virtual
// tracker and management of an open position keep running either way.
func (e *Engine) SetTradingEnabled(on bool) {
	e.tradingOff.Store(!on)
}

// TradingEnabled reports whether new entries are submitted
func (e *Engine) TradingEnabled() bool {
	return !e.tradingOff.Load()
}

// Symbol returns the instrument symbol
func (e *Engine) Symbol() string {
	return e.inst.Symbol
}

// Risk exposes the risk manager
func (e *Engine) Risk() *risk.Manager {
	return e.risk
}

// Virtual returns the current virtual position
func (e *Engine) Virtual() types.VirtualPosition {
	return e.virtual.Position()
}

// Stats returns the counters since the last Initialize. Safe to call from
// any goroutine; the copy is refreshed after every bar.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.published
}

func (e *Engine) publish() {
	e.mu.Lock()
	e.published = e.stats
	e.mu.Unlock()
}

// Initialize resets every persistent component, exactly as a fresh replay
func (e *Engine) Initialize() {
	e.series.Reset()
	e.session.Reset()
	e.trend.Reset()
	e.calc.Reset()
	e.virtual.Reset()
	e.risk.Reset()
	e.quotes.Reset()

	e.barsSeen = 0
	e.lastPos = types.PositionSnapshot{Symbol: e.inst.Symbol, EntryBar: types.NeverBar}
	e.lastDay = time.Time{}
	e.day = DailyStat{}
	e.stats = Stats{}
	e.publish()
}

// ResetSession runs the trading-day rollover for the session of bar
func (e *Engine) ResetSession(bar types.Bar) {
	e.flushDay()
	e.risk.RollSession(bar)
	e.virtual.ResetSession()
	e.day = DailyStat{Symbol: e.inst.Symbol, Day: e.cal.TradingDay(bar.Time)}

	log.Debug().
		Str("symbol", e.inst.Symbol).
		Time("day", e.day.Day).
		Msg("New session")
}

// OnTick folds an intrabar quote into the quote book
func (e *Engine) OnTick(q types.Quote) {
	e.quotes.Update(q)
}

// Replay initializes the engine and feeds every bar in order
func (e *Engine) Replay(bars []types.Bar) Stats {
	e.Initialize()
	for _, bar := range bars {
		if _, err := e.OnBarClose(bar); err != nil {
			log.Debug().Err(err).Str("symbol", e.inst.Symbol).Msg("Bar skipped")
		}
	}
	e.Flush()
	return e.stats
}

// Flush writes the running day's statistics
func (e *Engine) Flush() {
	e.flushDay()
}

// ═══════════════════════════════════════════════════════════════════════════════
// BAR PIPELINE
// ═══════════════════════════════════════════════════════════════════════════════

// OnBarClose processes one fully closed bar
func (e *Engine) OnBarClose(bar types.Bar) (*Output, error) {
	if bar.Symbol != "" && bar.Symbol != e.inst.Symbol {
		return nil, fmt.Errorf("%s: %w", bar.Symbol, ErrWrongSymbol)
	}
	if err := e.series.Append(bar); err != nil {
		e.stats.OutOfOrder++
		e.publish()
		log.Warn().
			Str("symbol", e.inst.Symbol).
			Time("time", bar.Time).
			Msg("⚠️ Out of order bar ignored")
		return nil, fmt.Errorf("append %s: %w", e.inst.Symbol, err)
	}
	idx := e.series.LastIndex()
	e.barsSeen++
	e.stats.Bars++
	defer e.publish()
	defer e.quotes.RollBar()

	if e.observer != nil {
		e.observer.OnBar(bar, idx)
	}

	// Session statistics
	ss := e.session.Update(bar)
	if ss.NewSession {
		e.ResetSession(bar)
	}
	e.day.Bars++

	out := &Output{Index: idx}

	// Live position may have closed inside the broker on this bar
	pos := e.syncPosition(bar, idx, out)

	// Regime and indicators
	regime := e.trend.Classify(e.series.Closes())
	snap := e.calc.Compute(e.series, ss.VWAP, ss.CumDelta)
	score := indicators.Score(snap.ScoreInputs(bar.Close, ss.VWAP))

	derived := types.DerivedBar{
		Index:    idx,
		Time:     bar.Time,
		Close:    bar.Close,
		VWAP:     ss.VWAP,
		StdDev:   ss.StdDev,
		Bands:    ss.Bands,
		ActiveK:  e.session.ActiveK(e.sessionBars(idx), ss),
		CumDelta: ss.CumDelta,
		Slope:    regime.Slope,
		Trend:    regime.Trend,
		Extreme:  regime.Extreme,
		Choppy:   regime.Choppy,
		Score:    score,
	}
	out.Derived = derived

	// Real position dictates the virtual side
	e.virtual.SyncReal(pos, idx)

	ctx := e.context(bar, idx, derived, regime, snap)
	ev := e.eval.Evaluate(ctx)
	out.Evaluation = ev
	if ev.Reason == strategy.ReasonAmbiguous {
		e.stats.Ambiguous++
	}

	trigger := types.None
	if ev.Signal {
		trigger = ev.Direction
	}
	out.Virtual, out.VirtualExit = e.virtual.OnBarClose(bar, idx, snap.ATR, regime.Slope, trigger)

	if ev.Signal {
		e.onSignal(bar, idx, ev, regime, snap, pos, out)
	}

	e.manageLive(bar, idx, snap, out)

	log.Debug().
		Str("symbol", e.inst.Symbol).
		Int("bar", idx).
		Float64("close", bar.Close).
		Float64("vwap", ss.VWAP).
		Float64("slope", regime.Slope).
		Int("score", score).
		Str("reason", ev.Reason).
		Msg("Bar processed")

	return out, nil
}

func (e *Engine) context(bar types.Bar, idx int, derived types.DerivedBar, regime indicators.Regime, snap indicators.Snapshot) *strategy.Context {
	ctx := &strategy.Context{
		Index:    idx,
		Time:     bar.Time,
		Bar:      bar,
		BarsSeen: e.barsSeen,
		Derived:  derived,
		Regime:   regime,
		Ind:      snap,
		Virtual:  e.virtual.Position(),
		InRTH:    e.cal.InRTH(bar.Time),
	}
	if prev, ok := e.series.Ago(1); ok {
		ctx.Prev, ctx.HasPrev = prev, true
	}
	hi, okHi := e.series.HighestClose(e.cfg.RangeBars)
	lo, okLo := e.series.LowestClose(e.cfg.RangeBars)
	if okHi && okLo {
		ctx.RangeHigh, ctx.RangeLow, ctx.HasRange = hi, lo, true
	}
	return ctx
}

// sessionBars returns the retained bars of the current session
func (e *Engine) sessionBars(idx int) []types.Bar {
	bars := e.series.Bars()
	offset := e.series.Len() - e.series.Retained()
	start := e.series.SessionStart(idx, e.cal) - offset
	if start < 0 {
		start = 0
	}
	if start > len(bars) {
		return nil
	}
	return bars[start:]
}

func (e *Engine) onSignal(bar types.Bar, idx int, ev strategy.Evaluation, regime indicators.Regime, snap indicators.Snapshot, pos types.PositionSnapshot, out *Output) {
	q := e.quotes.Snapshot()
	sig := types.Signal{
		ID:        uuid.NewString(),
		Symbol:    e.inst.Symbol,
		Time:      bar.Time,
		BarIndex:  idx,
		Direction: ev.Direction,
		Price:     bar.Close,
		Setups:    ev.Fired,
		Score:     out.Derived.Score,
		Bid:       q.Bid,
		Ask:       q.Ask,
	}
	if ev.Direction == types.Long {
		sig.Marker = bar.Low - e.cfg.MarkerATR*snap.ATR
	} else {
		sig.Marker = bar.High + e.cfg.MarkerATR*snap.ATR
	}
	out.Signal = &sig
	e.stats.Signals++
	e.day.Signals++

	log.Info().
		Str("symbol", sig.Symbol).
		Str("side", string(sig.Direction)).
		Int("bar", idx).
		Float64("price", sig.Price).
		Int("score", sig.Score).
		Str("setups", setupList(sig.Setups)).
		Msg("🎯 SIGNAL")

	sev := SignalEvent{Signal: sig}
	defer func() {
		e.record(func(r Recorder) error { return r.RecordSignal(sev) })
		if e.notifier != nil {
			e.notifier.NotifySignal(sev)
		}
	}()

	if e.exec == nil {
		return
	}
	if e.tradingOff.Load() {
		sev.Rejected = "trading paused"
		out.Rejected = sev.Rejected
		log.Info().Str("symbol", sig.Symbol).Int("bar", idx).Msg("⏸️ Trading paused, entry skipped")
		return
	}

	req, err := e.risk.OnSignal(sig, risk.SizingInputs{ATR: snap.ATR, Slope: regime.Slope, Position: pos})
	if err != nil {
		e.stats.Rejected++
		sev.Rejected = err.Error()
		out.Rejected = sev.Rejected
		log.Warn().Err(err).Str("symbol", sig.Symbol).Int("bar", idx).Msg("🚫 Entry rejected")
		return
	}
	sev.Request = req
	out.Request = req

	id, err := e.exec.SubmitEntry(*req)
	if err != nil {
		e.stats.SubmitFailures++
		sev.Rejected = err.Error()
		out.Rejected = sev.Rejected
		log.Error().Err(err).Str("symbol", sig.Symbol).Int("bar", idx).Msg("❌ Entry submit failed")
		e.alert(fmt.Errorf("%s entry: %w", sig.Symbol, err))
		return
	}

	e.risk.RecordEntry(idx)
	e.stats.Entries++
	e.day.Entries++
	sev.OrderID = id
	out.OrderID = id

	if p, err := e.exec.GetPosition(); err == nil {
		e.lastPos = p
	}

	e.emitOrder(OrderEvent{
		Symbol:    sig.Symbol,
		Time:      bar.Time,
		BarIndex:  idx,
		Kind:      "ENTRY",
		Direction: sig.Direction,
		OrderID:   id,
		Price:     req.Reference,
		Quantity:  req.Quantity,
	})
}

// manageLive trails, extends or flattens the live position
func (e *Engine) manageLive(bar types.Bar, idx int, snap indicators.Snapshot, out *Output) {
	if e.exec == nil {
		return
	}
	pos, err := e.exec.GetPosition()
	if err != nil {
		log.Error().Err(err).Str("symbol", e.inst.Symbol).Msg("Failed to read position")
		return
	}
	var orders []types.Order
	if !pos.IsFlat() {
		if orders, err = e.exec.ListOpenOrders(); err != nil {
			log.Error().Err(err).Str("symbol", e.inst.Symbol).Msg("Failed to list orders")
			return
		}
	}

	mods := e.risk.OnBarClose(risk.LiveContext{
		Index:    idx,
		Bar:      bar,
		ATR:      snap.ATR,
		ADX:      snap.ADX,
		RSI:      snap.RSI,
		Position: pos,
		Orders:   orders,
	})

	for _, m := range mods {
		var err error
		if m.Kind == types.ModifyFlatten {
			err = e.exec.FlattenAll()
		} else {
			err = e.exec.ModifyOrder(m.OrderID, m.NewPrice)
		}
		if err != nil {
			log.Error().Err(err).
				Str("symbol", e.inst.Symbol).
				Str("kind", string(m.Kind)).
				Str("order", m.OrderID).
				Msg("❌ Order modification failed")
			e.alert(fmt.Errorf("%s %s %s: %w", e.inst.Symbol, m.Kind, m.OrderID, err))
			continue
		}

		e.stats.Modifications++
		out.Modifications = append(out.Modifications, m)
		log.Info().
			Str("symbol", e.inst.Symbol).
			Str("kind", string(m.Kind)).
			Str("old", m.OldPrice.String()).
			Str("new", m.NewPrice.String()).
			Str("reason", m.Reason).
			Msg("🔧 Order modified")

		e.emitOrder(OrderEvent{
			Symbol:    e.inst.Symbol,
			Time:      bar.Time,
			BarIndex:  idx,
			Kind:      string(m.Kind),
			Direction: pos.Direction(),
			OrderID:   m.OrderID,
			Price:     m.NewPrice,
			Quantity:  pos.Quantity.Abs(),
			Reason:    m.Reason,
		})
	}

	if len(out.Modifications) > 0 {
		e.syncPosition(bar, idx, out)
	}
}

// syncPosition reads the live position and books a close if one happened
func (e *Engine) syncPosition(bar types.Bar, idx int, out *Output) types.PositionSnapshot {
	if e.exec == nil {
		return e.lastPos
	}
	pos, err := e.exec.GetPosition()
	if err != nil {
		log.Error().Err(err).Str("symbol", e.inst.Symbol).Msg("Failed to read position")
		return e.lastPos
	}

	day := e.cal.TradingDay(bar.Time)
	if !e.lastPos.IsFlat() && pos.IsFlat() {
		base := e.lastPos.RealizedPnL
		if !day.Equal(e.lastDay) {
			base = decimal.Zero
		}
		pnl := pos.RealizedPnL.Sub(base)

		e.risk.RecordExit(pnl, idx)
		e.stats.Exits++
		e.stats.RealizedPnL = e.stats.RealizedPnL.Add(pnl)
		e.day.Exits++
		e.day.RealizedPnL = e.day.RealizedPnL.Add(pnl)

		exit := OrderEvent{
			Symbol:    e.inst.Symbol,
			Time:      bar.Time,
			BarIndex:  idx,
			Kind:      "EXIT",
			Direction: e.lastPos.Direction(),
			Price:     decimal.NewFromFloat(bar.Close),
			Quantity:  e.lastPos.Quantity.Abs(),
			PnL:       pnl,
		}
		out.Exit = &exit

		log.Info().
			Str("symbol", e.inst.Symbol).
			Int("bar", idx).
			Str("pnl", pnl.StringFixed(2)).
			Msg("📊 Live position closed")
		e.emitOrder(exit)
	}

	e.lastPos = pos
	e.lastDay = day
	return pos
}

func (e *Engine) emitOrder(ev OrderEvent) {
	e.record(func(r Recorder) error { return r.RecordOrderEvent(ev) })
	if e.notifier != nil {
		e.notifier.NotifyOrderEvent(ev)
	}
}

func (e *Engine) record(fn func(Recorder) error) {
	if e.recorder == nil {
		return
	}
	if err := fn(e.recorder); err != nil {
		log.Error().Err(err).Str("symbol", e.inst.Symbol).Msg("Failed to record event")
		e.alert(fmt.Errorf("%s record: %w", e.inst.Symbol, err))
	}
}

func (e *Engine) alert(err error) {
	if en, ok := e.notifier.(ErrorNotifier); ok {
		en.NotifyError(err)
	}
}

func (e *Engine) flushDay() {
	if e.day.Bars == 0 {
		return
	}
	st := e.day
	e.record(func(r Recorder) error { return r.RecordDailyStat(st) })
	if sn, ok := e.notifier.(SessionNotifier); ok {
		sn.NotifySessionSummary(st)
	}
	log.Info().
		Str("symbol", st.Symbol).
		Str("day", st.Day.Format("2006-01-02")).
		Int("signals", st.Signals).
		Int("entries", st.Entries).
		Str("pnl", st.RealizedPnL.StringFixed(2)).
		Msg("📅 Session closed")
	e.day.Bars = 0
}

func setupList(ids []types.SetupID) string {
	s := ""
	for _, id := range ids {
		s += string(id)
	}
	return s
}
