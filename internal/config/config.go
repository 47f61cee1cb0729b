package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/core"
	"github.com/web3guy0/xylbot/execution"
	"github.com/web3guy0/xylbot/feeds"
	"github.com/web3guy0/xylbot/types"
)

// Config holds all configuration for the bot
type Config struct {
	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Mode
	Debug bool

	// Data
	BarsFile      string
	DefaultSymbol string
	RecoverState  bool

	// Exchange calendar
	Timezone     string
	SessionStart string
	RTHStart     string
	RTHEnd       string

	// Paper execution
	Paper execution.PaperConfig

	// Database
	DatabaseEnabled bool
	DatabasePath    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Telegram
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		// Mode
		Debug: getEnvBool("DEBUG", false),

		// Data
		BarsFile:      getEnv("BARS_FILE", "data/bars.csv"),
		DefaultSymbol: getEnv("SYMBOL", "ES"),
		RecoverState:  getEnvBool("RECOVER_POSITION", false),

		// Calendar
		Timezone:     getEnv("TIMEZONE", "America/New_York"),
		SessionStart: getEnv("SESSION_START", "18:00"),
		RTHStart:     getEnv("RTH_START", "09:30"),
		RTHEnd:       getEnv("RTH_END", "16:00"),

		// Paper execution
		Paper: execution.PaperConfig{
			SlippageTicks: getEnvInt("SLIPPAGE_TICKS", 0),
			Commission:    getEnvDecimal("COMMISSION", decimal.Zero),
		},

		// Database
		DatabaseEnabled: getEnvBool("DB_ENABLED", true),
		DatabasePath:    getEnv("DATABASE_PATH", "data/xylbot.db"),
	}

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if _, err := cfg.Calendar(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// TelegramEnabled reports whether both token and chat are set
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Calendar builds the exchange calendar
func (c *Config) Calendar() (feeds.Calendar, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return feeds.Calendar{}, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cal := feeds.Calendar{Location: loc}

	for _, f := range []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"SESSION_START", c.SessionStart, &cal.SessionStart},
		{"RTH_START", c.RTHStart, &cal.RTHStart},
		{"RTH_END", c.RTHEnd, &cal.RTHEnd},
	} {
		if f.val == "" {
			continue
		}
		d, err := feeds.ParseClock(f.val)
		if err != nil {
			return feeds.Calendar{}, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.dst = d
	}
	return cal, nil
}

// Engine returns the engine configuration for an instrument, defaults
// overlaid with environment values
func (c *Config) Engine(inst types.Instrument) (core.Config, error) {
	ec := core.DefaultConfig(inst)

	cal, err := c.Calendar()
	if err != nil {
		return ec, err
	}
	ec.Calendar = cal
	ec.SeriesMaxLen = getEnvInt("SERIES_MAX_LEN", ec.SeriesMaxLen)
	ec.RangeBars = getEnvInt("RANGE_BARS", ec.RangeBars)
	ec.MarkerATR = getEnvFloat("MARKER_ATR", ec.MarkerATR)
	ec.ATRType = getEnv("ATR_TYPE", ec.ATRType)

	// Session
	ec.Session.PriceSource = getEnv("VWAP_PRICE", ec.Session.PriceSource)
	ec.Session.BandKs = getEnvFloats("BAND_KS", ec.Session.BandKs)
	ec.Session.AdaptiveLookback = getEnvInt("ADAPTIVE_LOOKBACK", ec.Session.AdaptiveLookback)
	ec.Session.AdaptiveSteps = getEnvFloats("ADAPTIVE_STEPS", ec.Session.AdaptiveSteps)

	// Trend
	ec.Trend.SlopeBars = getEnvInt("SLOPE_BARS", ec.Trend.SlopeBars)
	ec.Trend.TrendThreshold = getEnvFloat("TREND_THRESHOLD", ec.Trend.TrendThreshold)
	ec.Trend.TrendExitThreshold = getEnvFloat("TREND_EXIT_THRESHOLD", ec.Trend.TrendExitThreshold)
	ec.Trend.ExtremeThreshold = getEnvFloat("EXTREME_THRESHOLD", ec.Trend.ExtremeThreshold)
	ec.Trend.ChopPolicy = getEnv("CHOP_POLICY", ec.Trend.ChopPolicy)
	ec.Trend.ChopLookback = getEnvInt("CHOP_LOOKBACK", ec.Trend.ChopLookback)
	ec.Trend.ChopNoiseThreshold = getEnvFloat("CHOP_NOISE", ec.Trend.ChopNoiseThreshold)
	ec.Trend.ChopPct = getEnvFloat("CHOP_PCT", ec.Trend.ChopPct)
	ec.Trend.MajorityLookback = getEnvInt("MAJORITY_LOOKBACK", ec.Trend.MajorityLookback)

	// Indicators
	ec.Indicators.SMAPeriod = getEnvInt("SMA_PERIOD", ec.Indicators.SMAPeriod)
	ec.Indicators.EMAPeriod = getEnvInt("EMA_PERIOD", ec.Indicators.EMAPeriod)
	ec.Indicators.MidEMAPeriod = getEnvInt("MID_EMA_PERIOD", ec.Indicators.MidEMAPeriod)
	ec.Indicators.ATRPeriod = getEnvInt("ATR_PERIOD", ec.Indicators.ATRPeriod)

	// Setups
	ec.Strategy.Enabled = strings.ToUpper(getEnv("SETUPS", ec.Strategy.Enabled))
	ec.Strategy.ScoreLongMax = getEnvInt("SCORE_LONG_MAX", ec.Strategy.ScoreLongMax)
	ec.Strategy.ScoreShortMin = getEnvInt("SCORE_SHORT_MIN", ec.Strategy.ScoreShortMin)
	ec.Strategy.ScoreShortMax = getEnvInt("SCORE_SHORT_MAX", ec.Strategy.ScoreShortMax)
	ec.Strategy.CCILevel = getEnvFloat("CCI_LEVEL", ec.Strategy.CCILevel)
	ec.Strategy.WickRatio = getEnvFloat("WICK_RATIO", ec.Strategy.WickRatio)
	ec.Strategy.MajorityShare = getEnvFloat("MAJORITY_SHARE", ec.Strategy.MajorityShare)
	ec.Strategy.MinBarsBetweenSignals = getEnvInt("MIN_BARS_BETWEEN_SIGNALS", ec.Strategy.MinBarsBetweenSignals)
	ec.Strategy.CooldownBars = getEnvInt("COOLDOWN_BARS", ec.Strategy.CooldownBars)
	ec.Strategy.WarmupBars = getEnvInt("WARMUP_BARS", ec.Strategy.WarmupBars)

	// Bracket: shared by the virtual tracker and live orders
	hardStop := getEnvFloat("HARD_STOP_PCT", ec.Risk.HardStopPct)
	wide := getEnvFloat("TARGET_ATR_WIDE", ec.Risk.TargetATRWide)
	narrow := getEnvFloat("TARGET_ATR_NARROW", ec.Risk.TargetATRNarrow)
	trailTrigger := getEnvFloat("TRAIL_TRIGGER_ATR", ec.Risk.TrailTriggerATR)
	trailDist := getEnvFloat("TRAIL_DIST_ATR", ec.Risk.TrailDistATR)

	ec.Virtual.HardStopPct, ec.Risk.HardStopPct = hardStop, hardStop
	ec.Virtual.TargetATRWide, ec.Risk.TargetATRWide = wide, wide
	ec.Virtual.TargetATRNarrow, ec.Risk.TargetATRNarrow = narrow, narrow
	ec.Virtual.TrailTriggerATR, ec.Risk.TrailTriggerATR = trailTrigger, trailTrigger
	ec.Virtual.TrailDistATR, ec.Risk.TrailDistATR = trailDist, trailDist
	ec.Virtual.TrendThreshold = ec.Trend.TrendThreshold
	ec.Risk.TrendThreshold = ec.Trend.TrendThreshold

	// Risk
	ec.Risk.MaxDailyTrades = getEnvInt("MAX_DAILY_TRADES", ec.Risk.MaxDailyTrades)
	ec.Risk.MaxDailyLossPct = getEnvFloat("MAX_DAILY_LOSS_PCT", ec.Risk.MaxDailyLossPct)
	ec.Risk.SizingMode = getEnv("SIZING_MODE", ec.Risk.SizingMode)
	ec.Risk.Contracts = getEnvInt("CONTRACTS", ec.Risk.Contracts)
	ec.Risk.RiskPct = getEnvFloat("RISK_PCT", ec.Risk.RiskPct)
	ec.Risk.MaxContracts = getEnvInt("MAX_CONTRACTS", ec.Risk.MaxContracts)
	ec.Risk.AccountBalance = getEnvDecimal("ACCOUNT_BALANCE", ec.Risk.AccountBalance)
	ec.Risk.StopMode = getEnv("STOP_MODE", ec.Risk.StopMode)
	ec.Risk.StopATRMult = getEnvFloat("STOP_ATR_MULT", ec.Risk.StopATRMult)
	ec.Risk.ExtendTriggerATR = getEnvFloat("EXTEND_TRIGGER_ATR", ec.Risk.ExtendTriggerATR)
	ec.Risk.TargetExtendedATR = getEnvFloat("TARGET_EXTENDED_ATR", ec.Risk.TargetExtendedATR)
	ec.Risk.ExtendADXMin = getEnvFloat("EXTEND_ADX_MIN", ec.Risk.ExtendADXMin)
	ec.Risk.MaxHoldBars = getEnvInt("MAX_HOLD_BARS", ec.Risk.MaxHoldBars)
	ec.Risk.MaxConsecutiveLosses = getEnvInt("MAX_CONSECUTIVE_LOSSES", ec.Risk.MaxConsecutiveLosses)
	ec.Risk.BreakerCooldownBars = getEnvInt("BREAKER_COOLDOWN_BARS", ec.Risk.BreakerCooldownBars)

	return ec, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvFloats parses a comma separated list; any bad item keeps the default
func getEnvFloats(key string, defaultValue []float64) []float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []float64
	for _, part := range strings.Split(value, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return defaultValue
		}
		out = append(out, f)
	}
	return out
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
