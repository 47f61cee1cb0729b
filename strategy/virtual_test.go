package strategy

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/types"
)

func ohlc(o, h, l, c float64) types.Bar {
	return types.Bar{Open: o, High: h, Low: l, Close: c, Volume: 1}
}

func trackerForScenario() *VirtualTracker {
	cfg := DefaultVirtualConfig()
	cfg.HardStopPct = 0.1
	cfg.TrailTriggerATR = 2
	cfg.TrailDistATR = 1.5
	return NewVirtualTracker(cfg)
}

func TestVirtualStopAndTrailScenario(t *testing.T) {
	vt := trackerForScenario()
	const atr = 4.0

	pos, exit := vt.OnBarClose(ohlc(4998, 5001, 4997, 5000), 10, atr, 0, types.Long)
	if exit != nil || pos.State != types.LongPos {
		t.Fatalf("entry: state %s exit %v", pos.State, exit)
	}
	if math.Abs(pos.StopPrice-4995) > 1e-9 {
		t.Fatalf("stop = %v, want 4995", pos.StopPrice)
	}
	if pos.LastSignalBar != 10 {
		t.Fatalf("LastSignalBar = %d", pos.LastSignalBar)
	}

	// gain 10 > 2·ATR: stop = max(4995, 5010 - 1.5·4) = 5004
	pos, exit = vt.OnBarClose(ohlc(5001, 5011, 5000, 5010), 11, atr, 0, types.None)
	if exit != nil {
		t.Fatalf("unexpected exit %+v", exit)
	}
	if math.Abs(pos.StopPrice-5004) > 1e-9 {
		t.Fatalf("trailed stop = %v, want 5004", pos.StopPrice)
	}

	// pullback keeps the stop where it is
	pos, _ = vt.OnBarClose(ohlc(5010, 5010, 5005, 5006), 12, atr, 0, types.None)
	if pos.StopPrice != 5004 {
		t.Fatalf("stop loosened to %v", pos.StopPrice)
	}
}

func TestVirtualTrailingIsMonotone(t *testing.T) {
	vt := trackerForScenario()
	vt.cfg.TargetATRNarrow = 1000
	vt.OnBarClose(ohlc(100, 100, 100, 100), 0, 1, 0, types.Long)

	prev := vt.Position().StopPrice
	closes := []float64{101, 103, 102, 104, 103.5, 106, 105, 108, 107, 110}
	for i, c := range closes {
		pos, exit := vt.OnBarClose(ohlc(c, c+0.2, c-0.2, c), i+1, 1, 0, types.None)
		if exit != nil {
			t.Fatalf("bar %d: unexpected exit %+v", i+1, exit)
		}
		if pos.StopPrice < prev {
			t.Fatalf("bar %d: stop went from %v to %v", i+1, prev, pos.StopPrice)
		}
		prev = pos.StopPrice
	}
}

func TestVirtualStopBeforeTarget(t *testing.T) {
	vt := NewVirtualTracker(DefaultVirtualConfig())
	vt.OnBarClose(ohlc(100, 100, 100, 100), 0, 1, 0, types.Long)
	p := vt.Position()

	// one bar spanning both stop and target
	pos, exit := vt.OnBarClose(ohlc(100, p.TargetPrice+1, p.StopPrice-1, 100), 1, 1, 0, types.None)
	if exit == nil || exit.Reason != "stop" {
		t.Fatalf("exit = %+v, want stop", exit)
	}
	if pos.State != types.Flat || pos.LastExitBar != 1 {
		t.Fatalf("after exit: %+v", pos)
	}
}

func TestVirtualShortTargetExit(t *testing.T) {
	vt := NewVirtualTracker(DefaultVirtualConfig())
	pos, _ := vt.OnBarClose(ohlc(200, 200, 200, 200), 0, 2, 0, types.Short)
	if pos.TargetPrice != 200-4*2 {
		t.Fatalf("narrow target = %v", pos.TargetPrice)
	}
	if pos.StopPrice <= 200 {
		t.Fatalf("short stop %v should be above entry", pos.StopPrice)
	}

	_, exit := vt.OnBarClose(ohlc(195, 195.5, 191, 193), 1, 2, 0, types.None)
	if exit == nil || exit.Reason != "target" || exit.Price != 192 {
		t.Fatalf("exit = %+v, want target at 192", exit)
	}
}

func TestVirtualWideTargetInTrend(t *testing.T) {
	vt := NewVirtualTracker(DefaultVirtualConfig())
	pos, _ := vt.OnBarClose(ohlc(100, 100, 100, 100), 0, 1, 0.5, types.Long)
	if pos.TargetPrice != 108 {
		t.Fatalf("wide target = %v, want 108", pos.TargetPrice)
	}
}

func TestVirtualSingleState(t *testing.T) {
	vt := NewVirtualTracker(DefaultVirtualConfig())
	triggers := []types.Direction{types.Long, types.Short, types.None, types.Short, types.Long}
	for i := 0; i < 50; i++ {
		c := 100 + float64(i%7) - 3
		pos, _ := vt.OnBarClose(ohlc(c, c+2, c-2, c), i, 1, 0, triggers[i%len(triggers)])
		switch pos.State {
		case types.Flat, types.LongPos, types.ShortPos:
		default:
			t.Fatalf("bar %d: invalid state %q", i, pos.State)
		}
	}
}

func TestVirtualSyncReal(t *testing.T) {
	vt := NewVirtualTracker(DefaultVirtualConfig())
	vt.OnBarClose(ohlc(100, 100, 100, 100), 0, 1, 0, types.Long)

	vt.SyncReal(types.PositionSnapshot{Quantity: decimal.NewFromInt(-2), AveragePrice: decimal.NewFromInt(101)}, 3)
	pos := vt.Position()
	if pos.State != types.ShortPos || pos.EntryPrice != 101 || pos.EntryBar != 3 {
		t.Fatalf("after sync: %+v", pos)
	}

	// flat live position leaves the virtual state alone
	vt.SyncReal(types.PositionSnapshot{}, 4)
	if vt.Position().State != types.ShortPos {
		t.Fatal("flat snapshot should not change the virtual state")
	}
}

func TestVirtualResetSession(t *testing.T) {
	vt := NewVirtualTracker(DefaultVirtualConfig())
	vt.OnBarClose(ohlc(100, 100, 100, 100), 7, 1, 0, types.Long)
	vt.ResetSession()

	pos := vt.Position()
	if pos.State != types.Flat || pos.LastSignalBar != 7 {
		t.Fatalf("after session reset: %+v", pos)
	}

	vt.Reset()
	if vt.Position().LastSignalBar != types.NeverBar {
		t.Fatal("Reset should clear markers")
	}
}

func TestVirtualFollowsLivePosition(t *testing.T) {
	vt := NewVirtualTracker(DefaultVirtualConfig())
	vt.OnBarClose(ohlc(100, 100, 100, 100), 0, 1, 0, types.Long)
	live := types.PositionSnapshot{Quantity: decimal.NewFromInt(2), AveragePrice: decimal.NewFromInt(100)}

	// live long still open: a bar far through the virtual stop changes nothing
	vt.SyncReal(live, 1)
	pos, exit := vt.OnBarClose(ohlc(100, 100, 90, 91), 1, 1, 0, types.None)
	if exit != nil || pos.State != types.LongPos {
		t.Fatalf("virtual left the live side: state %s exit %+v", pos.State, exit)
	}

	// live position closed: the tracker runs its own exits again
	vt.SyncReal(types.PositionSnapshot{}, 2)
	pos, exit = vt.OnBarClose(ohlc(91, 91, 89, 90), 2, 1, 0, types.None)
	if exit == nil || exit.Reason != "stop" || pos.State != types.Flat {
		t.Fatalf("after live exit: state %s exit %+v", pos.State, exit)
	}
}
