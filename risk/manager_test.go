package risk

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/types"
)

func newTestManager(edit func(*Config)) *Manager {
	cfg := DefaultConfig()
	cfg.HardStopPct = 0.1
	if edit != nil {
		edit(&cfg)
	}
	return NewManager(cfg, es, rthCal)
}

func longSignal(index int) types.Signal {
	return types.Signal{
		Symbol:    "ES",
		Time:      at(4, 10, index%60),
		BarIndex:  index,
		Direction: types.Long,
		Price:     5000,
		Setups:    []types.SetupID{types.SetupA},
	}
}

func TestOnSignalBuildsBracket(t *testing.T) {
	rm := newTestManager(nil)
	req, err := rm.OnSignal(longSignal(10), SizingInputs{ATR: 4, Slope: 0.05})
	if err != nil {
		t.Fatalf("OnSignal: %v", err)
	}
	if !req.StopPrice().Equal(d("4995")) {
		t.Errorf("stop = %s, want 4995", req.StopPrice())
	}
	// narrow target: 4·ATR
	if !req.TargetPrice().Equal(d("5016")) {
		t.Errorf("target = %s, want 5016", req.TargetPrice())
	}
	if !req.Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("qty = %s, want 2", req.Quantity)
	}

	wide, _ := rm.OnSignal(longSignal(11), SizingInputs{ATR: 4, Slope: 0.5})
	if !wide.TargetPrice().Equal(d("5032")) {
		t.Errorf("wide target = %s, want 5032", wide.TargetPrice())
	}
}

func TestOnSignalBudgetOnlyAfterRecordEntry(t *testing.T) {
	rm := newTestManager(func(c *Config) { c.MaxDailyTrades = 1 })

	for i := 0; i < 3; i++ {
		if _, err := rm.OnSignal(longSignal(10+i), SizingInputs{ATR: 4}); err != nil {
			t.Fatalf("signal %d rejected before any entry: %v", i, err)
		}
	}
	rm.RecordEntry(12)
	if _, err := rm.OnSignal(longSignal(20), SizingInputs{ATR: 4}); !errors.Is(err, ErrDailyCap) {
		t.Fatalf("after entry: %v", err)
	}
}

func TestOnSignalCircuitBreaker(t *testing.T) {
	rm := newTestManager(func(c *Config) {
		c.MaxConsecutiveLosses = 2
		c.BreakerCooldownBars = 10
	})
	rm.RecordExit(d("-100"), 5)
	rm.RecordExit(d("-50"), 8)
	if got := rm.LossStreak(); got != 2 {
		t.Fatalf("loss streak = %d, want 2", got)
	}

	if _, err := rm.OnSignal(longSignal(12), SizingInputs{ATR: 4}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("inside cooldown: %v", err)
	}
	if _, err := rm.OnSignal(longSignal(18), SizingInputs{ATR: 4}); err != nil {
		t.Fatalf("after cooldown: %v", err)
	}
}

func liveLong(index int, close float64, stop, target string) LiveContext {
	return LiveContext{
		Index:    index,
		Bar:      types.Bar{Close: close, High: close, Low: close},
		ATR:      4,
		ADX:      30,
		RSI:      60,
		Position: types.PositionSnapshot{Symbol: "ES", Quantity: decimal.NewFromInt(2), AveragePrice: d("5000"), EntryBar: 10},
		Orders: []types.Order{
			{ID: "stop-1", Symbol: "ES", Kind: types.OrderStop, Direction: types.Short, Price: d(stop)},
			{ID: "tgt-1", Symbol: "ES", Kind: types.OrderLimit, Direction: types.Short, Price: d(target)},
		},
	}
}

func TestOnBarCloseTrailsStrictlyBetter(t *testing.T) {
	rm := newTestManager(nil)

	mods := rm.OnBarClose(liveLong(11, 5010, "4995", "5100"))
	if len(mods) != 1 || mods[0].Kind != types.ModifyTrailStop || !mods[0].NewPrice.Equal(d("5004")) || mods[0].OrderID != "stop-1" {
		t.Fatalf("mods = %+v", mods)
	}

	// already at the trailed price: no modify
	if mods := rm.OnBarClose(liveLong(12, 5010, "5004", "5100")); len(mods) != 0 {
		t.Fatalf("equal price should not modify: %+v", mods)
	}
	// never loosen
	if mods := rm.OnBarClose(liveLong(13, 5009, "5004", "5100")); len(mods) != 0 {
		t.Fatalf("worse price should not modify: %+v", mods)
	}
}

func TestOnBarCloseExtendsTarget(t *testing.T) {
	rm := newTestManager(func(c *Config) { c.TrailTriggerATR = 0 })

	mods := rm.OnBarClose(liveLong(11, 5020, "4995", "5016"))
	if len(mods) != 1 || mods[0].Kind != types.ModifyExtendTarget || !mods[0].NewPrice.Equal(d("5048")) {
		t.Fatalf("mods = %+v", mods)
	}

	// never pull a target closer
	if mods := rm.OnBarClose(liveLong(12, 5020, "4995", "5060")); len(mods) != 0 {
		t.Fatalf("closer target: %+v", mods)
	}

	// exhausted momentum
	ctx := liveLong(13, 5020, "4995", "5016")
	ctx.RSI = 85
	if mods := rm.OnBarClose(ctx); len(mods) != 0 {
		t.Fatalf("exhausted RSI: %+v", mods)
	}
	ctx.RSI, ctx.ADX = 60, 20
	if mods := rm.OnBarClose(ctx); len(mods) != 0 {
		t.Fatalf("weak ADX: %+v", mods)
	}
}

func TestOnBarCloseMaxHold(t *testing.T) {
	rm := newTestManager(func(c *Config) { c.MaxHoldBars = 15 })

	if mods := rm.OnBarClose(liveLong(24, 5001, "4995", "5016")); len(mods) != 0 {
		t.Fatalf("before max hold: %+v", mods)
	}
	mods := rm.OnBarClose(liveLong(25, 5001, "4995", "5016"))
	if len(mods) != 1 || mods[0].Kind != types.ModifyFlatten {
		t.Fatalf("mods = %+v", mods)
	}
}

func TestOnBarCloseFlat(t *testing.T) {
	rm := newTestManager(nil)
	if mods := rm.OnBarClose(LiveContext{Index: 3}); mods != nil {
		t.Fatalf("flat: %+v", mods)
	}
}
