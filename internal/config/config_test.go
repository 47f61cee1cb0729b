package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/risk"
	"github.com/web3guy0/xylbot/types"
)

var es = types.Instrument{
	Symbol:    "ES",
	TickSize:  decimal.RequireFromString("0.25"),
	TickValue: decimal.RequireFromString("12.5"),
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TelegramEnabled() {
		t.Error("telegram enabled without token")
	}
	if cfg.DefaultSymbol != "ES" || !cfg.DatabaseEnabled {
		t.Errorf("defaults %+v", cfg)
	}

	cal, err := cfg.Calendar()
	if err != nil {
		t.Fatal(err)
	}
	if cal.SessionStart != 18*time.Hour || cal.RTHStart != 9*time.Hour+30*time.Minute || cal.RTHEnd != 16*time.Hour {
		t.Errorf("calendar %+v", cal)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"TELEGRAM_CHAT_ID", "abc"},
		{"TIMEZONE", "Mars/Olympus"},
		{"RTH_START", "9h30"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("TIMEZONE", "UTC")
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%q accepted", tt.key, tt.value)
			}
		})
	}
}

func TestEngineOverlay(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("HARD_STOP_PCT", "0.1")
	t.Setenv("TRAIL_DIST_ATR", "2.5")
	t.Setenv("TREND_THRESHOLD", "0.2")
	t.Setenv("STOP_MODE", risk.StopATR)
	t.Setenv("SETUPS", "ab")
	t.Setenv("BAND_KS", "1, 2,3")
	t.Setenv("ADAPTIVE_STEPS", "2,x")
	t.Setenv("ACCOUNT_BALANCE", "25000")
	t.Setenv("MAX_DAILY_TRADES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	ec, err := cfg.Engine(es)
	if err != nil {
		t.Fatal(err)
	}

	if ec.Virtual.HardStopPct != 0.1 || ec.Risk.HardStopPct != 0.1 {
		t.Errorf("hard stop virtual=%v risk=%v", ec.Virtual.HardStopPct, ec.Risk.HardStopPct)
	}
	if ec.Virtual.TrailDistATR != 2.5 || ec.Risk.TrailDistATR != 2.5 {
		t.Error("trail distance not shared")
	}
	if ec.Trend.TrendThreshold != 0.2 || ec.Virtual.TrendThreshold != 0.2 || ec.Risk.TrendThreshold != 0.2 {
		t.Error("trend threshold not shared")
	}
	if ec.Risk.StopMode != risk.StopATR || ec.Strategy.Enabled != "AB" {
		t.Errorf("stop mode %q setups %q", ec.Risk.StopMode, ec.Strategy.Enabled)
	}
	if len(ec.Session.BandKs) != 3 || ec.Session.BandKs[1] != 2 {
		t.Errorf("band ks %v", ec.Session.BandKs)
	}
	if len(ec.Session.AdaptiveSteps) != 3 {
		t.Errorf("bad list should keep default, got %v", ec.Session.AdaptiveSteps)
	}
	if !ec.Risk.AccountBalance.Equal(decimal.NewFromInt(25000)) {
		t.Errorf("balance %s", ec.Risk.AccountBalance)
	}
	if ec.Risk.MaxDailyTrades != 8 {
		t.Errorf("bad int should keep default, got %d", ec.Risk.MaxDailyTrades)
	}
	if ec.Instrument.Symbol != "ES" || ec.Calendar.Location != time.UTC {
		t.Errorf("instrument %+v calendar %+v", ec.Instrument, ec.Calendar)
	}
}
