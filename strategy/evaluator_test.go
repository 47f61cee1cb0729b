package strategy

import (
	"testing"

	"github.com/web3guy0/xylbot/internal/indicators"
	"github.com/web3guy0/xylbot/types"
)

func fire(id types.SetupID, dir types.Direction) Setup {
	return Setup{ID: id, Name: string(id), Eval: func(*Context, *Config) types.Direction { return dir }}
}

func readyContext(index int) *Context {
	return &Context{
		Index:    index,
		BarsSeen: 1000,
		Bar:      ohlc(100, 101, 99, 100),
		Derived:  types.DerivedBar{VWAP: 100},
		Ind:      indicators.Snapshot{SMA: 100},
		InRTH:    true,
		Virtual: types.VirtualPosition{
			State:         types.Flat,
			LastSignalBar: types.NeverBar,
			LastExitBar:   types.NeverBar,
		},
	}
}

func TestEvaluateDuplicatesCountOnce(t *testing.T) {
	e := NewEvaluatorWith(DefaultConfig(), []Setup{
		fire(types.SetupA, types.Long),
		fire(types.SetupB, types.None),
		fire(types.SetupC, types.Long),
	})
	ev := e.Evaluate(readyContext(200))

	if !ev.Signal || ev.Direction != types.Long {
		t.Fatalf("got %+v", ev)
	}
	if len(ev.Fired) != 2 || len(ev.Results) != 3 {
		t.Fatalf("fired %v results %v", ev.Fired, ev.Results)
	}
}

func TestEvaluateAmbiguousCancelsBoth(t *testing.T) {
	e := NewEvaluatorWith(DefaultConfig(), []Setup{
		fire(types.SetupA, types.Long),
		fire(types.SetupD, types.Short),
	})
	ev := e.Evaluate(readyContext(200))

	if ev.Signal || ev.Direction != types.None || ev.Reason != ReasonAmbiguous {
		t.Fatalf("got %+v", ev)
	}
}

func TestEvaluateStructuralOverrides(t *testing.T) {
	long := NewEvaluatorWith(DefaultConfig(), []Setup{fire(types.SetupB, types.Long)})
	short := NewEvaluatorWith(DefaultConfig(), []Setup{fire(types.SetupB, types.Short)})

	below := readyContext(200)
	below.Bar.Close = 95
	if ev := long.Evaluate(below); ev.Signal || ev.Reason != ReasonStructure {
		t.Errorf("long below VWAP and SMA: %+v", ev)
	}
	if ev := short.Evaluate(below); !ev.Signal {
		t.Errorf("short below VWAP and SMA should pass: %+v", ev)
	}

	falling := readyContext(200)
	falling.Regime.FallingShare = 0.8
	if ev := long.Evaluate(falling); ev.Signal || ev.Reason != ReasonMajority {
		t.Errorf("long against falling majority: %+v", ev)
	}

	rising := readyContext(200)
	rising.Regime.RisingShare = 0.7
	if ev := short.Evaluate(rising); ev.Signal || ev.Reason != ReasonMajority {
		t.Errorf("short against rising majority: %+v", ev)
	}
}

func TestEvaluateGates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownBars = 3
	e := NewEvaluatorWith(cfg, []Setup{fire(types.SetupA, types.Long)})

	tests := []struct {
		name   string
		edit   func(*Context)
		reason string
	}{
		{"warmup", func(c *Context) { c.BarsSeen = 10 }, ReasonWarmup},
		{"outside rth", func(c *Context) { c.InRTH = false }, ReasonOutsideRTH},
		{"virtual active", func(c *Context) { c.Virtual.State = types.ShortPos }, ReasonVirtualActive},
		{"spacing", func(c *Context) { c.Virtual.LastSignalBar = 197 }, ReasonSpacing},
		{"cooldown", func(c *Context) { c.Virtual.LastExitBar = 199 }, ReasonCooldown},
		{"spacing satisfied", func(c *Context) { c.Virtual.LastSignalBar = 195 }, ReasonNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := readyContext(200)
			tt.edit(c)
			ev := e.Evaluate(c)
			if ev.Reason != tt.reason || ev.Signal != (tt.reason == ReasonNone) {
				t.Errorf("got signal=%v reason=%q, want %q", ev.Signal, ev.Reason, tt.reason)
			}
		})
	}
}

func TestEnabledSetupsFilter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = "ad"
	e := NewEvaluator(cfg)
	ev := e.Evaluate(readyContext(200))
	if len(ev.Results) != 2 || ev.Results[0].Setup != types.SetupA || ev.Results[1].Setup != types.SetupD {
		t.Fatalf("results %+v", ev.Results)
	}
}

// Signals fed back through the tracker are never closer than the spacing
func TestSignalSpacing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinBarsBetweenSignals = 7
	e := NewEvaluatorWith(cfg, []Setup{fire(types.SetupA, types.Long)})

	vcfg := DefaultVirtualConfig()
	vcfg.HardStopPct = 0.01
	vt := NewVirtualTracker(vcfg)

	last := types.NeverBar
	for i := 0; i < 120; i++ {
		c := readyContext(i)
		// alternate bars knock out any open virtual position quickly
		if i%2 == 1 {
			c.Bar = ohlc(100, 101, 98, 100)
		}
		c.Virtual = vt.Position()
		ev := e.Evaluate(c)

		trigger := types.None
		if ev.Signal {
			if last != types.NeverBar && i-last < cfg.MinBarsBetweenSignals {
				t.Fatalf("signals at %d and %d", last, i)
			}
			last = i
			trigger = ev.Direction
		}
		vt.OnBarClose(c.Bar, i, 1, 0, trigger)
	}
	if last == types.NeverBar {
		t.Fatal("expected at least one signal")
	}
}
