package bot

import (
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/core"
	"github.com/web3guy0/xylbot/types"
)

type fakeSender struct {
	texts []string
	modes []string
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.texts = append(f.texts, m.Text)
		f.modes = append(f.modes, m.ParseMode)
	}
	return tgbotapi.Message{}, nil
}

type fakeStats struct {
	stats   map[string]core.Stats
	pos     []types.PositionSnapshot
	trading bool
}

func (f *fakeStats) Stats() map[string]core.Stats            { return f.stats }
func (f *fakeStats) OpenPositions() []types.PositionSnapshot { return f.pos }
func (f *fakeStats) TradingEnabled() bool                    { return f.trading }

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFormatSignal(t *testing.T) {
	sig := types.Signal{
		Symbol: "ES", Direction: types.Long, Price: 5007.5, Score: 42,
		Setups: []types.SetupID{types.SetupA, types.SetupE},
		Bid:    5007.25, Ask: 5007.5,
	}

	tests := []struct {
		name string
		ev   core.SignalEvent
		want []string
	}{
		{
			name: "traded",
			ev: core.SignalEvent{Signal: sig, Request: &types.OrderRequest{
				Direction: types.Long, Quantity: d("2"), Reference: d("5007.5"),
				StopOffset: d("10"), TargetOffset: d("8"),
			}},
			want: []string{"🟢 *SIGNAL LONG*", "*ES* @ 5007.5", "Setups: *A+E*", "Score: *42*", "Stop: *4997.5* (-10)", "Target: *5015.5* (+8)", "5007.25 / 5007.5"},
		},
		{
			name: "rejected",
			ev:   core.SignalEvent{Signal: sig, Rejected: "daily trade cap reached"},
			want: []string{"Not traded: _daily trade cap reached_"},
		},
		{
			name: "signal only",
			ev:   core.SignalEvent{Signal: sig},
			want: []string{"Signal only"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatSignal(tt.ev)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("missing %q in:\n%s", w, got)
				}
			}
		})
	}
}

func TestFormatOrderEvent(t *testing.T) {
	exit := FormatOrderEvent(core.OrderEvent{
		Symbol: "ES", Kind: "EXIT", Direction: types.Long,
		Price: d("4997.5"), Quantity: d("2"), PnL: d("-1000"),
	})
	if !strings.HasPrefix(exit, "📉") || !strings.Contains(exit, "P&L: *-1000.00*") {
		t.Errorf("exit message:\n%s", exit)
	}

	trail := FormatOrderEvent(core.OrderEvent{
		Symbol: "ES", Kind: string(types.ModifyTrailStop), Direction: types.Long,
		Price: d("5004"), Reason: "trail",
	})
	if !strings.HasPrefix(trail, "🔒") || strings.Contains(trail, "Qty") || !strings.Contains(trail, "trail") {
		t.Errorf("trail message:\n%s", trail)
	}
}

func TestFormatStatsSorted(t *testing.T) {
	got := FormatStats(map[string]core.Stats{
		"NQ": {Bars: 10},
		"ES": {Bars: 20, Signals: 2, Entries: 1, RealizedPnL: d("125")},
	})
	if strings.Index(got, "*ES*") > strings.Index(got, "*NQ*") {
		t.Errorf("symbols not sorted:\n%s", got)
	}
	if !strings.Contains(got, "+125.00") {
		t.Errorf("pnl missing:\n%s", got)
	}
	if FormatStats(nil) != "📭 No engines running" {
		t.Error("empty stats message")
	}
}

func TestFormatDailyStat(t *testing.T) {
	got := FormatDailyStat(core.DailyStat{
		Symbol: "ES", Day: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Bars: 390, Signals: 3, Entries: 2, Exits: 2, RealizedPnL: d("-50"),
	})
	for _, w := range []string{"📉", "SESSION ES 2024-03-04", "Bars: *390*", "P&L: *-50.00*"} {
		if !strings.Contains(got, w) {
			t.Errorf("missing %q in:\n%s", w, got)
		}
	}
}

func TestCommandsUseProvider(t *testing.T) {
	out := &fakeSender{}
	stats := &fakeStats{
		stats:   map[string]core.Stats{"ES": {Bars: 5}},
		pos:     []types.PositionSnapshot{{Symbol: "ES", Quantity: d("-2"), AveragePrice: d("5010")}},
		trading: true,
	}
	b := newBot(out, 42, stats)

	paused := false
	b.SetControlCallbacks(func() { paused = true; stats.trading = false }, func() { paused = false; stats.trading = true })

	b.handleCommand("pause")
	b.handleCommand("STATUS")
	b.handleCommand("positions")
	b.handleCommand("nope")

	if !paused {
		t.Fatal("pause callback not called")
	}
	if len(out.texts) != 4 {
		t.Fatalf("sent %d messages", len(out.texts))
	}
	if !strings.Contains(out.texts[1], "PAUSED") || !strings.Contains(out.texts[1], "Open positions: *1*") {
		t.Errorf("status:\n%s", out.texts[1])
	}
	if !strings.Contains(out.texts[2], "🔴 *ES* SHORT x2 @ 5010") {
		t.Errorf("positions:\n%s", out.texts[2])
	}
	if !strings.Contains(out.texts[3], "Unknown command") || out.modes[3] != "" {
		t.Errorf("unknown command reply %q mode %q", out.texts[3], out.modes[3])
	}
}

func TestNotifierSendsMarkdown(t *testing.T) {
	out := &fakeSender{}
	b := newBot(out, 1, nil)

	var n core.Notifier = b
	n.NotifySignal(core.SignalEvent{Signal: types.Signal{Symbol: "ES", Direction: types.Short, Price: 5000}})
	n.NotifyOrderEvent(core.OrderEvent{Symbol: "ES", Kind: "ENTRY", Direction: types.Short, Price: d("5000"), Quantity: d("1")})

	if len(out.texts) != 2 || out.modes[0] != "Markdown" {
		t.Fatalf("texts %v modes %v", out.texts, out.modes)
	}
	if !strings.HasPrefix(out.texts[0], "🔴 *SIGNAL SHORT*") {
		t.Errorf("signal:\n%s", out.texts[0])
	}
}
