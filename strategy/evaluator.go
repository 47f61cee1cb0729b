package strategy

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SETUP EVALUATOR - Runs setups A-E and resolves them into one intent
// ═══════════════════════════════════════════════════════════════════════════════
//
// Resolution order:
//   1. setups firing in one direction count once
//   2. opposite directions on the same bar cancel both (ambiguous)
//   3. structural overrides (price below VWAP and SMA, slope majority)
//   4. gates: warm-up, RTH, virtual position, signal spacing, cooldown
//
// ═══════════════════════════════════════════════════════════════════════════════

// Reasons reported on a blocked or empty evaluation
const (
	ReasonNone          = ""
	ReasonNoSetup       = "no_setup"
	ReasonAmbiguous     = "ambiguous"
	ReasonStructure     = "structure_override"
	ReasonMajority      = "slope_majority"
	ReasonWarmup        = "warmup"
	ReasonOutsideRTH    = "outside_rth"
	ReasonVirtualActive = "virtual_active"
	ReasonSpacing       = "min_bars_between_signals"
	ReasonCooldown      = "cooldown"
)

// Config for the evaluator and its setups
type Config struct {
	Enabled string // setup ids to run, e.g. "ABCDE"

	ScoreLongMax  int
	ScoreShortMin int
	ScoreShortMax int
	CCILevel      float64
	WickRatio     float64

	MajorityShare         float64 // slope share that cancels the opposite side
	MinBarsBetweenSignals int
	CooldownBars          int // bars after a virtual exit
	WarmupBars            int
}

// DefaultConfig returns the standard evaluator settings
func DefaultConfig() Config {
	return Config{
		Enabled:               "ABCDE",
		ScoreLongMax:          70,
		ScoreShortMin:         130,
		ScoreShortMax:         190,
		CCILevel:              100,
		WickRatio:             1.5,
		MajorityShare:         0.6,
		MinBarsBetweenSignals: 5,
		CooldownBars:          0,
		WarmupBars:            100,
	}
}

// Evaluation is the outcome for one closed bar
type Evaluation struct {
	Results   []types.SetupResult
	Fired     []types.SetupID // setups backing Direction
	Direction types.Direction
	Signal    bool
	Reason    string
}

// Evaluator runs the setup list
type Evaluator struct {
	cfg    Config
	setups []Setup
}

// NewEvaluator creates an evaluator over the enabled default setups
func NewEvaluator(cfg Config) *Evaluator {
	return NewEvaluatorWith(cfg, DefaultSetups())
}

// NewEvaluatorWith creates an evaluator over a custom setup list
func NewEvaluatorWith(cfg Config, setups []Setup) *Evaluator {
	var active []Setup
	for _, s := range setups {
		if cfg.Enabled == "" || strings.Contains(strings.ToUpper(cfg.Enabled), string(s.ID)) {
			active = append(active, s)
		}
	}
	return &Evaluator{cfg: cfg, setups: active}
}

// Config returns the evaluator configuration
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Evaluate must only be called for fully closed bars
func (e *Evaluator) Evaluate(c *Context) Evaluation {
	ev := Evaluation{Results: make([]types.SetupResult, 0, len(e.setups))}

	var longs, shorts []types.SetupID
	for _, s := range e.setups {
		dir := s.Eval(c, &e.cfg)
		ev.Results = append(ev.Results, types.SetupResult{Setup: s.ID, Direction: dir, Fired: dir != types.None})
		switch dir {
		case types.Long:
			longs = append(longs, s.ID)
		case types.Short:
			shorts = append(shorts, s.ID)
		}
	}

	switch {
	case len(longs) == 0 && len(shorts) == 0:
		ev.Reason = ReasonNoSetup
		return ev
	case len(longs) > 0 && len(shorts) > 0:
		ev.Reason = ReasonAmbiguous
		log.Warn().
			Int("bar", c.Index).
			Str("long", joinIDs(longs)).
			Str("short", joinIDs(shorts)).
			Msg("⚠️ Opposite setups on one bar, both cancelled")
		return ev
	case len(longs) > 0:
		ev.Direction, ev.Fired = types.Long, longs
	default:
		ev.Direction, ev.Fired = types.Short, shorts
	}

	if reason := e.override(c, ev.Direction); reason != ReasonNone {
		ev.Reason = reason
		return ev
	}
	if reason := e.gate(c); reason != ReasonNone {
		ev.Reason = reason
		return ev
	}

	ev.Signal = true
	return ev
}

func (e *Evaluator) override(c *Context, dir types.Direction) string {
	px, vwap, sma := c.Bar.Close, c.Derived.VWAP, c.Ind.SMA
	switch dir {
	case types.Long:
		if sma > 0 && px < vwap && px < sma {
			return ReasonStructure
		}
		if e.cfg.MajorityShare > 0 && c.Regime.FallingShare >= e.cfg.MajorityShare {
			return ReasonMajority
		}
	case types.Short:
		if sma > 0 && px > vwap && px > sma {
			return ReasonStructure
		}
		if e.cfg.MajorityShare > 0 && c.Regime.RisingShare >= e.cfg.MajorityShare {
			return ReasonMajority
		}
	}
	return ReasonNone
}

func (e *Evaluator) gate(c *Context) string {
	v := c.Virtual
	switch {
	case c.BarsSeen < e.cfg.WarmupBars:
		return ReasonWarmup
	case !c.InRTH:
		return ReasonOutsideRTH
	case v.State.Direction() != types.None:
		return ReasonVirtualActive
	case v.LastSignalBar != types.NeverBar && c.Index-v.LastSignalBar < e.cfg.MinBarsBetweenSignals:
		return ReasonSpacing
	case v.LastExitBar != types.NeverBar && c.Index-v.LastExitBar < e.cfg.CooldownBars:
		return ReasonCooldown
	}
	return ReasonNone
}

func joinIDs(ids []types.SetupID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
